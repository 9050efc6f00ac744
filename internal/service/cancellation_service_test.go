package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) pay(t *testing.T, b *models.Booking) *models.Payment {
	t.Helper()
	p, err := f.payments.ConfirmPayment(context.Background(), b.UserID, ConfirmPaymentInput{
		BookingID: b.ID, Amount: b.TotalFare, Method: models.MethodCard,
	})
	require.NoError(t, err)
	return p
}

func TestRequestCancellation(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, alice, "A1", "A2")
	f.pay(t, b)

	c, err := f.cancellations.RequestCancellation(context.Background(), alice, b.ID, "plans changed")
	require.NoError(t, err)

	assert.Equal(t, "plans changed", c.Reason)
	assert.Equal(t, models.RefundPending, c.RefundStatus)
	assert.Equal(t, 107.5, c.CancellationCharge)
	assert.Equal(t, 967.5, c.RefundAmount)
	assert.Equal(t, RefundPolicy[0].Description, c.Policy)
	assert.Equal(t, fixtureStart, c.CancelledAt)

	got, err := f.bookings.GetBooking(context.Background(), alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, got.Status)
	require.NotNil(t, got.Payment)
	assert.Equal(t, models.PaymentRefunded, got.Payment.Status)
	require.NotNil(t, got.Cancellation)
	assert.Equal(t, c.ID, got.Cancellation.ID)
	assert.Equal(t, 40, f.trip(t).AvailableSeats)
}

func TestRequestCancellation_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, alice, "A1", "A2")

	_, err := f.cancellations.RequestCancellation(ctx, alice, b.ID, "")
	require.NoError(t, err)

	_, err = f.cancellations.RequestCancellation(ctx, alice, b.ID, "")
	assert.ErrorIs(t, err, ErrDuplicateCancellation)
	_, err = f.bookings.CancelBooking(ctx, alice, b.ID)
	assert.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, 40, f.trip(t).AvailableSeats)
}

func TestRequestCancellation_Concurrent(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, alice, "A1", "A2", "A3")

	const n = 10
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.cancellations.RequestCancellation(context.Background(), alice, b.ID, "")
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidState), err.Error())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 40, f.trip(t).AvailableSeats)
}

func TestRequestCancellation_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, alice, "A1")

	_, err := f.cancellations.RequestCancellation(ctx, bob, b.ID, "")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	f.db.mu.Lock()
	completed := f.db.bookings[b.ID]
	completed.Status = models.BookingCompleted
	f.db.bookings[b.ID] = completed
	f.db.mu.Unlock()
	_, err = f.cancellations.RequestCancellation(ctx, alice, b.ID, "")
	assert.ErrorIs(t, err, ErrBookingCompleted)
}

func TestRequestCancellation_AfterDeparture(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, alice, "A1")
	f.clock.Advance(72 * time.Hour)

	_, err := f.cancellations.RequestCancellation(context.Background(), alice, b.ID, "")
	require.ErrorIs(t, err, ErrCancelAfterDepart)
	assert.Equal(t, "cannot cancel after departure", err.Error())
	assert.Equal(t, 39, f.trip(t).AvailableSeats)
}

func TestPreviewRefund(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, alice, "A1")
	f.clock.Advance(42 * time.Hour) // 30 hours before departure

	quote, err := f.cancellations.PreviewRefund(context.Background(), alice, b.ID)
	require.NoError(t, err)

	assert.Equal(t, 25.0, quote.ChargePercent)
	assert.Equal(t, 137.5, quote.Charge)
	assert.Equal(t, 412.5, quote.RefundAmount)
	assert.Equal(t, 30.0, quote.HoursBeforeDeparture)

	got, err := f.bookings.GetBooking(context.Background(), alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, got.Status)
}

func TestRefundPolicy_IsACopy(t *testing.T) {
	f := newFixture(t)
	policy := f.cancellations.RefundPolicy()
	policy[0].ChargePercent = 0

	assert.Equal(t, 10.0, RefundPolicy[0].ChargePercent)
	assert.Len(t, f.cancellations.RefundPolicy(), 5)
}

func TestRequestRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, alice, "A1")
	f.pay(t, b)

	_, err := f.cancellations.RequestRefund(ctx, alice, b.ID)
	assert.ErrorIs(t, err, ErrNotCancelled)

	c, err := f.cancellations.RequestCancellation(ctx, alice, b.ID, "")
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	refund, err := f.cancellations.RequestRefund(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RefundPending, refund.RefundStatus)
	require.NotNil(t, refund.RefundRequestedAt)
	assert.Equal(t, fixtureStart.Add(time.Hour), *refund.RefundRequestedAt)

	again, err := f.cancellations.RequestRefund(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, refund.RefundRequestedAt, again.RefundRequestedAt)

	processed, err := f.cancellations.UpdateRefundStatus(ctx, c.ID, models.RefundProcessed)
	require.NoError(t, err)
	assert.Equal(t, models.RefundProcessed, processed.RefundStatus)
	require.NotNil(t, processed.RefundProcessedAt)

	_, err = f.cancellations.RequestRefund(ctx, alice, b.ID)
	assert.ErrorIs(t, err, ErrRefundProcessed)

	_, err = f.cancellations.UpdateRefundStatus(ctx, c.ID, models.RefundRejected)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.cancellations.UpdateRefundStatus(ctx, c.ID, models.RefundPending)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRequestRefund_Rejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, alice, "A1")
	f.pay(t, b)
	c, err := f.cancellations.RequestCancellation(ctx, alice, b.ID, "")
	require.NoError(t, err)

	_, err = f.cancellations.UpdateRefundStatus(ctx, c.ID, models.RefundRejected)
	require.NoError(t, err)

	_, err = f.cancellations.RequestRefund(ctx, alice, b.ID)
	assert.ErrorIs(t, err, ErrRefundRejected)
}

func TestRequestRefund_Unpaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, alice, "A1")
	_, err := f.cancellations.RequestCancellation(ctx, alice, b.ID, "")
	require.NoError(t, err)

	_, err = f.cancellations.RequestRefund(ctx, alice, b.ID)
	assert.ErrorIs(t, err, ErrNoRefundablePayment)
}

func TestGetCancellation_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, alice, "A1")
	c, err := f.cancellations.RequestCancellation(ctx, alice, b.ID, "")
	require.NoError(t, err)

	got, err := f.cancellations.GetCancellation(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.BookingID)

	_, err = f.cancellations.GetCancellation(ctx, bob, c.ID)
	assert.ErrorIs(t, err, ErrCancellationNotFound)

	byBooking, err := f.cancellations.GetRefundByBooking(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, byBooking.ID)
}
