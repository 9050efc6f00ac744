package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/lock"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultHoldTTL = 10 * time.Minute

// Stores bundles the repositories the engines share.
type Stores struct {
	Tx            repository.Transactor
	Trips         repository.TripRepository
	Schedules     repository.ScheduleRepository
	Stops         repository.StopRepository
	Bookings      repository.BookingRepository
	Offers        repository.OfferRepository
	Cancellations repository.CancellationRepository
	Payments      repository.PaymentRepository
}

type options struct {
	now     func() time.Time
	holdTTL time.Duration
}

type Option func(*options)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithHoldTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.holdTTL = ttl
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, holdTTL: DefaultHoldTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// lookupErr turns a missing row into the given not-found error and wraps anything else.
func lookupErr(err error, notFoundErr *Error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr
	}
	return fmt.Errorf("%s: %w", what, err)
}

// withTripLock runs fn under the trip lock. Callers emit events after it
// returns, never inside fn.
func withTripLock(ctx context.Context, locker lock.Locker, tripID string, fn func() error) error {
	unlock, err := locker.Lock(ctx, tripID)
	if err != nil {
		return fmt.Errorf("lock trip %s: %w", tripID, err)
	}
	defer unlock()
	return fn()
}

func shortHex(n int) string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:n]
}

func newHoldID() string {
	return shortHex(12)
}

func newBookingReference(now time.Time) string {
	return "BK" + now.Format("20060102") + shortHex(6)
}

func newTransactionID(now time.Time) string {
	return "TXN" + now.Format("20060102150405") + shortHex(8)
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// normalizeSeats trims seat numbers and rejects blanks and duplicates.
func normalizeSeats(seats []string) ([]string, error) {
	if len(seats) == 0 {
		return nil, ErrNoSeats
	}
	out := make([]string, 0, len(seats))
	seen := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, validation("seat number must not be empty")
		}
		if _, dup := seen[s]; dup {
			return nil, validation("duplicate seat number: %s", s)
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}
