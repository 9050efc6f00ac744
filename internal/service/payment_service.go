package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/events"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/lock"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ConfirmPaymentInput struct {
	BookingID string
	Amount    float64
	Method    models.PaymentMethod
}

// PaymentService records gateway confirmations. The gateway itself is trusted
// and external; this service only checks the confirmation against the booking.
type PaymentService interface {
	ConfirmPayment(ctx context.Context, userID string, in ConfirmPaymentInput) (*models.Payment, error)
	GetPaymentByBooking(ctx context.Context, userID, bookingID string) (*models.Payment, error)
}

type paymentService struct {
	stores  Stores
	locker  lock.Locker
	emitter *events.Emitter
	log     *zap.Logger
	now     func() time.Time
}

func NewPaymentService(stores Stores, locker lock.Locker, emitter *events.Emitter, log *zap.Logger, opts ...Option) PaymentService {
	o := buildOptions(opts)
	return &paymentService{stores: stores, locker: locker, emitter: emitter, log: log.Named("payments"), now: o.now}
}

func (s *paymentService) ConfirmPayment(ctx context.Context, userID string, in ConfirmPaymentInput) (*models.Payment, error) {
	if !in.Method.Valid() {
		return nil, validation("unsupported payment method: %s", in.Method)
	}

	owned, err := s.stores.Bookings.FindByID(ctx, nil, in.BookingID)
	if err != nil {
		return nil, lookupErr(err, ErrBookingNotFound, "load booking")
	}
	if owned.UserID != userID {
		return nil, ErrBookingNotFound
	}

	// Same trip lock and trip row lock as cancellation.
	var payment *models.Payment
	err = withTripLock(ctx, s.locker, owned.TripID, func() error {
		return s.stores.Tx.Transaction(ctx, func(tx *gorm.DB) error {
			if _, err := s.stores.Trips.FindByIDForUpdate(ctx, tx, owned.TripID); err != nil {
				return lookupErr(err, ErrTripNotFound, "load trip")
			}
			booking, err := s.stores.Bookings.FindByID(ctx, tx, in.BookingID)
			if err != nil {
				return lookupErr(err, ErrBookingNotFound, "load booking")
			}
			if booking.Status != models.BookingConfirmed {
				return invalidState("payment can only be made for confirmed bookings")
			}

			if _, err := s.stores.Payments.FindByBookingID(ctx, tx, booking.ID); err == nil {
				return ErrPaymentExists
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("load payment: %w", err)
			}

			if math.Abs(roundMoney(in.Amount)-booking.TotalFare) >= 0.005 {
				return validation("payment amount %.2f does not match booking total %.2f", in.Amount, booking.TotalFare)
			}

			now := s.now()
			payment = &models.Payment{
				ID:            uuid.NewString(),
				BookingID:     booking.ID,
				Amount:        booking.TotalFare,
				Method:        in.Method,
				Status:        models.PaymentCompleted,
				TransactionID: newTransactionID(now),
				PaidAt:        now,
			}
			if err := s.stores.Payments.Create(ctx, tx, payment); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrPaymentExists
				}
				return fmt.Errorf("create payment: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment confirmed",
		zap.String("booking_id", payment.BookingID),
		zap.String("transaction_id", payment.TransactionID),
		zap.Float64("amount", payment.Amount),
	)
	s.emitter.Emit(ctx, events.PaymentConfirmed, events.PaymentEvent{
		PaymentID:     payment.ID,
		BookingID:     payment.BookingID,
		Amount:        payment.Amount,
		TransactionID: payment.TransactionID,
		OccurredAt:    payment.PaidAt,
	})
	return payment, nil
}

func (s *paymentService) GetPaymentByBooking(ctx context.Context, userID, bookingID string) (*models.Payment, error) {
	booking, err := s.stores.Bookings.FindByID(ctx, nil, bookingID)
	if err != nil {
		return nil, lookupErr(err, ErrBookingNotFound, "load booking")
	}
	if booking.UserID != userID {
		return nil, ErrBookingNotFound
	}
	payment, err := s.stores.Payments.FindByBookingID(ctx, nil, bookingID)
	if err != nil {
		return nil, lookupErr(err, ErrPaymentNotFound, "load payment")
	}
	return payment, nil
}
