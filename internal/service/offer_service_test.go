package service

import (
	"context"
	"testing"
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseOffer() models.Offer {
	return models.Offer{
		Code:          "SAVE10",
		DiscountType:  models.DiscountPercentage,
		DiscountValue: 10,
		MaxDiscount:   100,
		ValidFrom:     fixtureStart.Add(-time.Hour),
		ValidTo:       fixtureStart.Add(time.Hour),
		UsageLimit:    10,
		IsActive:      true,
	}
}

func TestEvaluateOffer(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(o *models.Offer)
		amount   float64
		valid    bool
		discount float64
		reason   string
	}{
		{name: "capped percentage", amount: 1075, valid: true, discount: 100, reason: "offer applied, you save 100.00"},
		{name: "uncapped percentage", amount: 550, valid: true, discount: 55},
		{name: "flat", mutate: func(o *models.Offer) { o.DiscountType = models.DiscountFlat; o.DiscountValue = 75 }, amount: 550, valid: true, discount: 75},
		{name: "flat capped", mutate: func(o *models.Offer) { o.DiscountType = models.DiscountFlat; o.DiscountValue = 500 }, amount: 550, valid: true, discount: 100},
		{name: "flat above amount", mutate: func(o *models.Offer) { o.DiscountType = models.DiscountFlat; o.DiscountValue = 80; o.MaxDiscount = 500 }, amount: 50, valid: true, discount: 50},
		{name: "inactive", mutate: func(o *models.Offer) { o.IsActive = false }, amount: 550, reason: "offer is not active"},
		{name: "not started", mutate: func(o *models.Offer) { o.ValidFrom = fixtureStart.Add(time.Minute) }, amount: 550, reason: "offer has expired or is not yet valid"},
		{name: "expired", mutate: func(o *models.Offer) { o.ValidTo = fixtureStart.Add(-time.Minute) }, amount: 550, reason: "offer has expired or is not yet valid"},
		{name: "used up", mutate: func(o *models.Offer) { o.TimesUsed = 10 }, amount: 550, reason: "offer usage limit reached"},
		{name: "below minimum", mutate: func(o *models.Offer) { o.MinBookingAmount = 600 }, amount: 550, reason: "minimum booking amount of 600.00 required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := baseOffer()
			if tt.mutate != nil {
				tt.mutate(&o)
			}
			res := EvaluateOffer(&o, tt.amount, fixtureStart)

			assert.Equal(t, tt.valid, res.Valid)
			assert.Equal(t, tt.discount, res.Discount)
			assert.Equal(t, tt.amount-tt.discount, res.FinalAmount)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, res.Reason)
			}
		})
	}
}

func TestOfferValidator_Validate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.addOffer("SAVE10", nil)

	res, err := f.offers.Validate(ctx, " save10 ", 1075)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "SAVE10", res.Code)
	assert.Equal(t, 975.0, res.FinalAmount)
	assert.Zero(t, f.offer(offer.ID).TimesUsed)

	res, err = f.offers.Validate(ctx, "MISSING", 1075)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "invalid offer code", res.Reason)

	res, err = f.offers.Validate(ctx, "", 1075)
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestOfferValidator_Lists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addOffer("BIG", func(o *models.Offer) { o.MinBookingAmount = 2000 })
	f.addOffer("SMALL", nil)
	f.addOffer("OFF", func(o *models.Offer) { o.IsActive = false })
	f.addOffer("GONE", func(o *models.Offer) { o.UsageLimit = 1; o.TimesUsed = 1 })

	active, err := f.offers.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)

	applicable, err := f.offers.ListApplicable(ctx, 550)
	require.NoError(t, err)
	require.Len(t, applicable, 1)
	assert.Equal(t, "SMALL", applicable[0].Offer.Code)
	assert.Equal(t, 55.0, applicable[0].Discount)

	_, err = f.offers.ListApplicable(ctx, 0)
	assert.ErrorIs(t, err, ErrValidation)
}
