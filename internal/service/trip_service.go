package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/events"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/lock"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SeatAvailability struct {
	TripID         string            `json:"trip_id"`
	Status         models.TripStatus `json:"status"`
	TotalSeats     int               `json:"total_seats"`
	AvailableSeats int               `json:"available_seats"`
	BookedSeats    []string          `json:"booked_seats"`
	HeldSeats      []string          `json:"held_seats"`
}

type TripService interface {
	SeatAvailability(ctx context.Context, tripID string) (*SeatAvailability, error)
	CancelTrip(ctx context.Context, tripID string) (*models.Trip, error)
	UpdateStatus(ctx context.Context, tripID string, status models.TripStatus) (*models.Trip, error)
}

type tripService struct {
	stores  Stores
	holds   HoldManager
	locker  lock.Locker
	emitter *events.Emitter
	log     *zap.Logger
	now     func() time.Time
}

func NewTripService(stores Stores, holds HoldManager, locker lock.Locker, emitter *events.Emitter, log *zap.Logger, opts ...Option) TripService {
	o := buildOptions(opts)
	return &tripService{
		stores:  stores,
		holds:   holds,
		locker:  locker,
		emitter: emitter,
		log:     log.Named("trips"),
		now:     o.now,
	}
}

// SeatAvailability is a snapshot; a seat listed free here can still be lost
// to a concurrent hold or booking.
func (s *tripService) SeatAvailability(ctx context.Context, tripID string) (*SeatAvailability, error) {
	trip, err := s.stores.Trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, lookupErr(err, ErrTripNotFound, "load trip")
	}
	booked, err := s.stores.Bookings.ConfirmedSeatNumbers(ctx, nil, tripID)
	if err != nil {
		return nil, fmt.Errorf("load confirmed seats: %w", err)
	}
	held, err := s.holds.HeldSeats(ctx, tripID)
	if err != nil {
		return nil, err
	}
	sort.Strings(booked)
	if booked == nil {
		booked = []string{}
	}
	if held == nil {
		held = []string{}
	}
	return &SeatAvailability{
		TripID:         trip.ID,
		Status:         trip.Status,
		TotalSeats:     trip.TotalSeats,
		AvailableSeats: trip.AvailableSeats,
		BookedSeats:    booked,
		HeldSeats:      held,
	}, nil
}

// CancelTrip is the operator cancel: every confirmed booking on the trip is
// cancelled and its seats released. The trip is terminal afterwards.
func (s *tripService) CancelTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	var (
		trip      *models.Trip
		cancelled []models.Booking
	)
	err := withTripLock(ctx, s.locker, tripID, func() error {
		return s.stores.Tx.Transaction(ctx, func(tx *gorm.DB) error {
			t, err := s.stores.Trips.FindByIDForUpdate(ctx, tx, tripID)
			if err != nil {
				return lookupErr(err, ErrTripNotFound, "load trip")
			}
			if !t.Status.CanTransitionTo(models.TripCancelled) {
				return invalidState("trip in status %s cannot be cancelled", t.Status)
			}

			bookings, err := s.stores.Bookings.ListConfirmedByTrip(ctx, tx, tripID)
			if err != nil {
				return fmt.Errorf("list bookings: %w", err)
			}
			for _, b := range bookings {
				ok, err := s.stores.Bookings.TransitionStatus(ctx, tx, b.ID, models.BookingConfirmed, models.BookingCancelled)
				if err != nil {
					return fmt.Errorf("cancel booking %s: %w", b.ID, err)
				}
				if !ok {
					continue
				}
				if err := s.stores.Bookings.ReleaseSeats(ctx, tx, b.ID); err != nil {
					return fmt.Errorf("release seats of %s: %w", b.ID, err)
				}
				cancelled = append(cancelled, b)
			}

			if err := s.stores.Trips.ResetAvailableSeats(ctx, tx, tripID); err != nil {
				return fmt.Errorf("reset available seats: %w", err)
			}
			if err := s.stores.Trips.UpdateStatus(ctx, tx, tripID, models.TripCancelled); err != nil {
				return fmt.Errorf("update trip status: %w", err)
			}
			t.Status = models.TripCancelled
			t.AvailableSeats = t.TotalSeats
			trip = t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	s.log.Info("trip cancelled", zap.String("trip_id", tripID), zap.Int("cancelled_bookings", len(cancelled)))
	for i := range cancelled {
		b := &cancelled[i]
		b.Status = models.BookingCancelled
		s.emitter.Emit(ctx, events.BookingCancelled, bookingEvent(b, now))
	}
	s.emitter.Emit(ctx, events.TripCancelled, events.TripEvent{
		TripID:            tripID,
		Status:            string(models.TripCancelled),
		CancelledBookings: len(cancelled),
		OccurredAt:        now,
	})
	return trip, nil
}

func (s *tripService) UpdateStatus(ctx context.Context, tripID string, status models.TripStatus) (*models.Trip, error) {
	if !status.Valid() {
		return nil, validation("unknown trip status: %s", status)
	}
	if status == models.TripCancelled {
		return s.CancelTrip(ctx, tripID)
	}

	unlock, err := s.locker.Lock(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("lock trip %s: %w", tripID, err)
	}
	defer unlock()

	var trip *models.Trip
	err = s.stores.Tx.Transaction(ctx, func(tx *gorm.DB) error {
		t, err := s.stores.Trips.FindByIDForUpdate(ctx, tx, tripID)
		if err != nil {
			return lookupErr(err, ErrTripNotFound, "load trip")
		}
		if !t.Status.CanTransitionTo(status) {
			return invalidState("trip cannot move from %s to %s", t.Status, status)
		}
		if err := s.stores.Trips.UpdateStatus(ctx, tx, tripID, status); err != nil {
			return fmt.Errorf("update trip status: %w", err)
		}
		t.Status = status
		trip = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("trip status updated", zap.String("trip_id", tripID), zap.String("status", string(status)))
	return trip, nil
}
