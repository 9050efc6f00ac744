package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/events"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/lock"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/repository"
	"go.uber.org/zap"
)

type HoldManager interface {
	CreateHold(ctx context.Context, userID, tripID string, seats []string) (*models.SeatHold, error)
	GetHold(ctx context.Context, holdID string) (*models.SeatHold, error)
	ReleaseHold(ctx context.Context, holdID string) error
	HeldSeats(ctx context.Context, tripID string) ([]string, error)
}

type holdManager struct {
	store    repository.HoldStore
	trips    repository.TripRepository
	bookings repository.BookingRepository
	locker   lock.Locker
	emitter  *events.Emitter
	log      *zap.Logger
	now      func() time.Time
	ttl      time.Duration
}

func NewHoldManager(
	store repository.HoldStore,
	trips repository.TripRepository,
	bookings repository.BookingRepository,
	locker lock.Locker,
	emitter *events.Emitter,
	log *zap.Logger,
	opts ...Option,
) HoldManager {
	o := buildOptions(opts)
	return &holdManager{
		store:    store,
		trips:    trips,
		bookings: bookings,
		locker:   locker,
		emitter:  emitter,
		log:      log.Named("holds"),
		now:      o.now,
		ttl:      o.holdTTL,
	}
}

func (m *holdManager) CreateHold(ctx context.Context, userID, tripID string, seats []string) (*models.SeatHold, error) {
	seats, err := normalizeSeats(seats)
	if err != nil {
		return nil, err
	}

	var hold *models.SeatHold
	err = withTripLock(ctx, m.locker, tripID, func() error {
		if _, err := m.trips.FindByID(ctx, tripID); err != nil {
			return lookupErr(err, ErrTripNotFound, "load trip")
		}

		now := m.now()
		unavailable, err := m.unavailableSeats(ctx, tripID, now)
		if err != nil {
			return err
		}

		var taken []string
		for _, s := range seats {
			if _, ok := unavailable[s]; ok {
				taken = append(taken, s)
			}
		}
		if len(taken) > 0 {
			return seatConflict("seats not available", taken)
		}

		hold = &models.SeatHold{
			ID:        newHoldID(),
			TripID:    tripID,
			UserID:    userID,
			Seats:     seats,
			ExpiresAt: now.Add(m.ttl),
		}
		if err := m.store.Put(ctx, hold); err != nil {
			return fmt.Errorf("store hold: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Info("hold created",
		zap.String("hold_id", hold.ID),
		zap.String("trip_id", tripID),
		zap.Strings("seats", seats),
		zap.Time("expires_at", hold.ExpiresAt),
	)
	m.emitter.Emit(ctx, events.HoldCreated, events.HoldEvent{
		HoldID: hold.ID, TripID: tripID, UserID: userID, Seats: seats, ExpiresAt: hold.ExpiresAt,
	})
	return hold, nil
}

// GetHold treats an expired hold exactly like a missing one.
func (m *holdManager) GetHold(ctx context.Context, holdID string) (*models.SeatHold, error) {
	hold, err := m.store.Get(ctx, holdID)
	if errors.Is(err, repository.ErrHoldNotFound) {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load hold: %w", err)
	}
	if hold.Expired(m.now()) {
		m.log.Debug("hold lookup hit an expired hold", zap.String("hold_id", holdID))
		return nil, ErrHoldNotFound
	}
	return hold, nil
}

// ReleaseHold reports an expired hold as not found, but still drops it.
func (m *holdManager) ReleaseHold(ctx context.Context, holdID string) error {
	hold, err := m.store.Get(ctx, holdID)
	if errors.Is(err, repository.ErrHoldNotFound) {
		return ErrHoldNotFound
	}
	if err != nil {
		return fmt.Errorf("load hold: %w", err)
	}

	err = withTripLock(ctx, m.locker, hold.TripID, func() error {
		if err := m.store.Remove(ctx, holdID); err != nil {
			if errors.Is(err, repository.ErrHoldNotFound) {
				return ErrHoldNotFound
			}
			return fmt.Errorf("remove hold: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if hold.Expired(m.now()) {
		m.log.Debug("release of an already expired hold", zap.String("hold_id", holdID))
		return ErrHoldNotFound
	}

	m.log.Info("hold released", zap.String("hold_id", holdID), zap.String("trip_id", hold.TripID))
	m.emitter.Emit(ctx, events.HoldReleased, events.HoldEvent{
		HoldID: holdID, TripID: hold.TripID, UserID: hold.UserID, Seats: hold.Seats,
	})
	return nil
}

// HeldSeats returns the seats covered by unexpired holds on the trip.
func (m *holdManager) HeldSeats(ctx context.Context, tripID string) ([]string, error) {
	var holds []models.SeatHold
	err := withTripLock(ctx, m.locker, tripID, func() error {
		var err error
		holds, err = m.store.ListByTrip(ctx, tripID)
		if err != nil {
			return fmt.Errorf("list holds: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := m.now()
	seen := make(map[string]struct{})
	var seats []string
	for _, h := range holds {
		if h.Expired(now) {
			continue
		}
		for _, s := range h.Seats {
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				seats = append(seats, s)
			}
		}
	}
	sort.Strings(seats)
	return seats, nil
}

// unavailableSeats is the union of confirmed seats and unexpired held seats.
// Callers hold the trip lock.
func (m *holdManager) unavailableSeats(ctx context.Context, tripID string, now time.Time) (map[string]struct{}, error) {
	confirmed, err := m.bookings.ConfirmedSeatNumbers(ctx, nil, tripID)
	if err != nil {
		return nil, fmt.Errorf("load confirmed seats: %w", err)
	}
	holds, err := m.store.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list holds: %w", err)
	}

	out := make(map[string]struct{}, len(confirmed))
	for _, s := range confirmed {
		out[s] = struct{}{}
	}
	for _, h := range holds {
		if h.Expired(now) {
			continue
		}
		for _, s := range h.Seats {
			out[s] = struct{}{}
		}
	}
	return out, nil
}

// HoldSweeper drops expired holds from stores that keep them forever.
// Availability checks already ignore expired holds, so this is housekeeping.
type HoldSweeper struct {
	store repository.HoldStore
	log   *zap.Logger
	now   func() time.Time
}

func NewHoldSweeper(store repository.HoldStore, log *zap.Logger, opts ...Option) *HoldSweeper {
	o := buildOptions(opts)
	return &HoldSweeper{store: store, log: log.Named("hold-sweeper"), now: o.now}
}

// Sweep runs one pass and returns how many holds were dropped.
func (s *HoldSweeper) Sweep(ctx context.Context) int {
	sweeper, ok := s.store.(repository.ExpiredHoldSweeper)
	if !ok {
		return 0
	}
	n, err := sweeper.DeleteExpired(ctx, s.now())
	if err != nil {
		s.log.Warn("hold sweep failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		s.log.Debug("swept expired holds", zap.Int("count", n))
	}
	return n
}

// Run sweeps on every tick until ctx is done.
func (s *HoldSweeper) Run(ctx context.Context, interval time.Duration) {
	if _, ok := s.store.(repository.ExpiredHoldSweeper); !ok {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
