package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testDeparture = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func TestCalculateRefund_Slabs(t *testing.T) {
	cases := []struct {
		name       string
		before     time.Duration
		wantCharge float64
		wantRefund float64
		wantPolicy string
	}{
		{"three days out", 72 * time.Hour, 200, 1800, RefundPolicy[0].Description},
		{"exactly 48h stays in the 24-48 slab", 48 * time.Hour, 500, 1500, RefundPolicy[1].Description},
		{"47h", 47 * time.Hour, 500, 1500, RefundPolicy[1].Description},
		{"30h", 30 * time.Hour, 500, 1500, RefundPolicy[1].Description},
		{"13h", 13 * time.Hour, 1000, 1000, RefundPolicy[2].Description},
		{"7h", 7 * time.Hour, 1500, 500, RefundPolicy[3].Description},
		{"5h", 5 * time.Hour, 2000, 0, RefundPolicy[4].Description},
		{"one minute", time.Minute, 2000, 0, RefundPolicy[4].Description},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := CalculateRefund(2000, testDeparture, testDeparture.Add(-tc.before))

			assert.Equal(t, tc.wantCharge, q.Charge)
			assert.Equal(t, tc.wantRefund, q.RefundAmount)
			assert.Equal(t, tc.wantPolicy, q.Policy)
		})
	}
}

func TestCalculateRefund_AfterDeparture(t *testing.T) {
	for _, now := range []time.Time{testDeparture, testDeparture.Add(time.Hour)} {
		q := CalculateRefund(2000, testDeparture, now)

		assert.Zero(t, q.RefundAmount)
		assert.Equal(t, 2000.0, q.Charge)
		assert.Equal(t, noRefundPolicy, q.Policy)
	}
}

func TestCalculateRefund_ChargePlusRefundIsTotal(t *testing.T) {
	q := CalculateRefund(1075, testDeparture, testDeparture.Add(-20*time.Hour))

	assert.Equal(t, 1075.0, q.Charge+q.RefundAmount)
	assert.Equal(t, 537.5, q.Charge)
}
