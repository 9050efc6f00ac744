package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/events"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/lock"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const DefaultCancellationReason = "Customer requested cancellation"

type CancellationService interface {
	RefundPolicy() []RefundSlab
	PreviewRefund(ctx context.Context, userID, bookingID string) (*RefundQuote, error)
	RequestCancellation(ctx context.Context, userID, bookingID, reason string) (*models.Cancellation, error)
	GetCancellation(ctx context.Context, userID, id string) (*models.Cancellation, error)
	RequestRefund(ctx context.Context, userID, bookingID string) (*models.Cancellation, error)
	GetRefundByBooking(ctx context.Context, userID, bookingID string) (*models.Cancellation, error)
	UpdateRefundStatus(ctx context.Context, id string, status models.RefundStatus) (*models.Cancellation, error)
}

type cancellationService struct {
	stores  Stores
	locker  lock.Locker
	emitter *events.Emitter
	log     *zap.Logger
	now     func() time.Time
}

func NewCancellationService(stores Stores, locker lock.Locker, emitter *events.Emitter, log *zap.Logger, opts ...Option) CancellationService {
	o := buildOptions(opts)
	return &cancellationService{
		stores:  stores,
		locker:  locker,
		emitter: emitter,
		log:     log.Named("cancellations"),
		now:     o.now,
	}
}

func (s *cancellationService) RefundPolicy() []RefundSlab {
	out := make([]RefundSlab, len(RefundPolicy))
	copy(out, RefundPolicy)
	return out
}

// PreviewRefund quotes what a cancellation right now would refund. Nothing is written.
func (s *cancellationService) PreviewRefund(ctx context.Context, userID, bookingID string) (*RefundQuote, error) {
	booking, err := s.ownedBooking(ctx, nil, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if err := cancellable(booking); err != nil {
		return nil, err
	}
	trip, err := s.stores.Trips.FindByID(ctx, booking.TripID)
	if err != nil {
		return nil, lookupErr(err, ErrTripNotFound, "load trip")
	}
	quote := CalculateRefund(booking.TotalFare, trip.DepartureAt, s.now())
	return &quote, nil
}

func (s *cancellationService) RequestCancellation(ctx context.Context, userID, bookingID, reason string) (*models.Cancellation, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCancellationReason
	}

	booking, err := s.ownedBooking(ctx, nil, userID, bookingID)
	if err != nil {
		return nil, err
	}

	var cancellation *models.Cancellation
	err = withTripLock(ctx, s.locker, booking.TripID, func() error {
		return s.stores.Tx.Transaction(ctx, func(tx *gorm.DB) error {
			trip, err := s.stores.Trips.FindByIDForUpdate(ctx, tx, booking.TripID)
			if err != nil {
				return lookupErr(err, ErrTripNotFound, "load trip")
			}

			// Re-read under the row lock; the first read only checked ownership.
			current, err := s.stores.Bookings.FindByID(ctx, tx, bookingID)
			if err != nil {
				return lookupErr(err, ErrBookingNotFound, "load booking")
			}
			if _, err := s.stores.Cancellations.FindByBookingID(ctx, tx, bookingID); err == nil {
				return ErrDuplicateCancellation
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("load cancellation: %w", err)
			}
			if err := cancellable(current); err != nil {
				return err
			}

			now := s.now()
			if !trip.DepartureAt.After(now) {
				return ErrCancelAfterDepart
			}
			quote := CalculateRefund(current.TotalFare, trip.DepartureAt, now)

			ok, err := s.stores.Bookings.TransitionStatus(ctx, tx, current.ID, models.BookingConfirmed, models.BookingCancelled)
			if err != nil {
				return fmt.Errorf("cancel booking: %w", err)
			}
			if !ok {
				return ErrAlreadyCancelled
			}
			if err := s.stores.Bookings.ReleaseSeats(ctx, tx, current.ID); err != nil {
				return fmt.Errorf("release seats: %w", err)
			}
			if err := s.stores.Trips.AdjustAvailableSeats(ctx, tx, trip.ID, current.SeatCount); err != nil {
				return fmt.Errorf("increment available seats: %w", err)
			}

			cancellation = &models.Cancellation{
				ID:                 uuid.NewString(),
				BookingID:          current.ID,
				CancelledBy:        userID,
				Reason:             reason,
				RefundAmount:       quote.RefundAmount,
				CancellationCharge: quote.Charge,
				Policy:             quote.Policy,
				RefundStatus:       models.RefundPending,
				CancelledAt:        now,
			}
			if err := s.stores.Cancellations.Create(ctx, tx, cancellation); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrDuplicateCancellation
				}
				return fmt.Errorf("create cancellation: %w", err)
			}

			return s.refundPayment(ctx, tx, current.ID)
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking cancelled",
		zap.String("booking_id", bookingID),
		zap.String("trip_id", booking.TripID),
		zap.Int("seats", booking.SeatCount),
		zap.Float64("refund_amount", cancellation.RefundAmount),
		zap.Float64("charge", cancellation.CancellationCharge),
	)
	s.emitter.Emit(ctx, events.BookingCancelled, events.BookingEvent{
		BookingID:  booking.ID,
		Reference:  booking.Reference,
		UserID:     booking.UserID,
		TripID:     booking.TripID,
		Seats:      booking.SeatNumbers(),
		TotalFare:  booking.TotalFare,
		Status:     string(models.BookingCancelled),
		OccurredAt: cancellation.CancelledAt,
	})
	return cancellation, nil
}

// refundPayment flips a completed payment to refunded. Bookings that were
// never paid have nothing to flip.
func (s *cancellationService) refundPayment(ctx context.Context, tx *gorm.DB, bookingID string) error {
	payment, err := s.stores.Payments.FindByBookingID(ctx, tx, bookingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load payment: %w", err)
	}
	if payment.Status != models.PaymentCompleted {
		return nil
	}
	if _, err := s.stores.Payments.TransitionStatus(ctx, tx, payment.ID, models.PaymentCompleted, models.PaymentRefunded); err != nil {
		return fmt.Errorf("refund payment: %w", err)
	}
	return nil
}

func (s *cancellationService) GetCancellation(ctx context.Context, userID, id string) (*models.Cancellation, error) {
	c, err := s.stores.Cancellations.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrCancellationNotFound, "load cancellation")
	}
	if _, err := s.ownedBooking(ctx, nil, userID, c.BookingID); err != nil {
		return nil, ErrCancellationNotFound
	}
	return c, nil
}

// RequestRefund records that the customer asked for the refund computed at
// cancellation time. Processing stays with the back office.
func (s *cancellationService) RequestRefund(ctx context.Context, userID, bookingID string) (*models.Cancellation, error) {
	booking, err := s.ownedBooking(ctx, nil, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingCancelled {
		return nil, ErrNotCancelled
	}

	c, err := s.stores.Cancellations.FindByBookingID(ctx, nil, bookingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotCancelled
	}
	if err != nil {
		return nil, fmt.Errorf("load cancellation: %w", err)
	}

	payment, err := s.stores.Payments.FindByBookingID(ctx, nil, bookingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoRefundablePayment
	}
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if payment.Status != models.PaymentRefunded {
		return nil, ErrNoRefundablePayment
	}

	switch c.RefundStatus {
	case models.RefundProcessed:
		return nil, ErrRefundProcessed
	case models.RefundRejected:
		return nil, ErrRefundRejected
	}

	if c.RefundRequestedAt == nil {
		at := s.now()
		if err := s.stores.Cancellations.MarkRefundRequested(ctx, c.ID, at); err != nil {
			return nil, fmt.Errorf("mark refund requested: %w", err)
		}
		c.RefundRequestedAt = &at

		s.log.Info("refund requested", zap.String("booking_id", bookingID), zap.Float64("amount", c.RefundAmount))
		s.emitter.Emit(ctx, events.RefundRequested, refundEvent(c, at))
	}
	return c, nil
}

func (s *cancellationService) GetRefundByBooking(ctx context.Context, userID, bookingID string) (*models.Cancellation, error) {
	if _, err := s.ownedBooking(ctx, nil, userID, bookingID); err != nil {
		return nil, err
	}
	c, err := s.stores.Cancellations.FindByBookingID(ctx, nil, bookingID)
	if err != nil {
		return nil, lookupErr(err, ErrCancellationNotFound, "load cancellation")
	}
	return c, nil
}

// UpdateRefundStatus is the back-office transition; refunds only move forward.
func (s *cancellationService) UpdateRefundStatus(ctx context.Context, id string, status models.RefundStatus) (*models.Cancellation, error) {
	c, err := s.stores.Cancellations.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrCancellationNotFound, "load cancellation")
	}
	if !c.RefundStatus.CanTransitionTo(status) {
		return nil, invalidState("refund cannot move from %s to %s", c.RefundStatus, status)
	}

	at := s.now()
	ok, err := s.stores.Cancellations.TransitionRefund(ctx, id, c.RefundStatus, status, at)
	if err != nil {
		return nil, fmt.Errorf("update refund status: %w", err)
	}
	if !ok {
		return nil, newError(ErrConflict, "refund status changed concurrently")
	}
	c.RefundStatus = status
	c.RefundProcessedAt = &at

	s.log.Info("refund status updated", zap.String("cancellation_id", id), zap.String("status", string(status)))
	s.emitter.Emit(ctx, events.RefundUpdated, refundEvent(c, at))
	return c, nil
}

func (s *cancellationService) ownedBooking(ctx context.Context, tx *gorm.DB, userID, bookingID string) (*models.Booking, error) {
	booking, err := s.stores.Bookings.FindByID(ctx, tx, bookingID)
	if err != nil {
		return nil, lookupErr(err, ErrBookingNotFound, "load booking")
	}
	if booking.UserID != userID {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

func cancellable(b *models.Booking) error {
	switch b.Status {
	case models.BookingCancelled:
		return ErrAlreadyCancelled
	case models.BookingCompleted:
		return ErrBookingCompleted
	}
	return nil
}

func refundEvent(c *models.Cancellation, at time.Time) events.RefundEvent {
	return events.RefundEvent{
		CancellationID: c.ID,
		BookingID:      c.BookingID,
		RefundAmount:   c.RefundAmount,
		RefundStatus:   string(c.RefundStatus),
		OccurredAt:     at,
	}
}
