package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CatalogService keeps the local copy of operator-owned data (trips,
// schedules, stops, offers) in sync. Upserts are idempotent by id.
type CatalogService interface {
	UpsertTrip(ctx context.Context, trip *models.Trip) error
	UpsertSchedule(ctx context.Context, schedule *models.Schedule) error
	UpsertStop(ctx context.Context, stop *models.Stop) error
	UpsertOffer(ctx context.Context, offer *models.Offer) error
}

type catalogService struct {
	stores Stores
	log    *zap.Logger
}

func NewCatalogService(stores Stores, log *zap.Logger) CatalogService {
	return &catalogService{stores: stores, log: log.Named("catalog")}
}

// UpsertTrip never touches a known trip's status or booked seats. A capacity
// change moves the available counter by the same amount.
func (s *catalogService) UpsertTrip(ctx context.Context, trip *models.Trip) error {
	if !isUUID(trip.ID) || !isUUID(trip.ScheduleID) {
		return validation("trip and schedule ids must be uuids")
	}
	if trip.TotalSeats <= 0 {
		return validation("total seats must be positive")
	}
	if !trip.ArrivalAt.After(trip.DepartureAt) {
		return validation("arrival must be after departure")
	}

	existing, err := s.stores.Trips.FindByID(ctx, trip.ID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		trip.AvailableSeats = trip.TotalSeats
		if trip.Status == "" {
			trip.Status = models.TripScheduled
		}
		if err := s.stores.Trips.Upsert(ctx, trip); err != nil {
			return fmt.Errorf("insert trip: %w", err)
		}
		s.log.Info("trip synced", zap.String("trip_id", trip.ID), zap.Int("total_seats", trip.TotalSeats))
		return nil
	case err != nil:
		return fmt.Errorf("load trip: %w", err)
	}

	booked := existing.TotalSeats - existing.AvailableSeats
	if trip.TotalSeats < booked {
		return invalidState("capacity %d is below the %d seats already booked", trip.TotalSeats, booked)
	}

	err = s.stores.Tx.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.stores.Trips.Upsert(ctx, trip); err != nil {
			return fmt.Errorf("update trip: %w", err)
		}
		if delta := trip.TotalSeats - existing.TotalSeats; delta != 0 {
			if err := s.stores.Trips.AdjustAvailableSeats(ctx, tx, trip.ID, delta); err != nil {
				if errors.Is(err, repository.ErrSeatCounterOutOfRange) {
					return invalidState("capacity change would break the seat counter")
				}
				return fmt.Errorf("adjust available seats: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("trip synced", zap.String("trip_id", trip.ID), zap.Int("total_seats", trip.TotalSeats))
	return nil
}

func (s *catalogService) UpsertSchedule(ctx context.Context, schedule *models.Schedule) error {
	if !isUUID(schedule.ID) || !isUUID(schedule.RouteID) {
		return validation("schedule and route ids must be uuids")
	}
	if schedule.BaseFare < 0 {
		return validation("base fare must not be negative")
	}
	if err := s.stores.Schedules.Upsert(ctx, schedule); err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}
	s.log.Info("schedule synced", zap.String("schedule_id", schedule.ID))
	return nil
}

func (s *catalogService) UpsertStop(ctx context.Context, stop *models.Stop) error {
	if !isUUID(stop.ID) || !isUUID(stop.RouteID) {
		return validation("stop and route ids must be uuids")
	}
	if strings.TrimSpace(stop.Name) == "" {
		return validation("stop name is required")
	}
	if err := s.stores.Stops.Upsert(ctx, stop); err != nil {
		return fmt.Errorf("upsert stop: %w", err)
	}
	s.log.Info("stop synced", zap.String("stop_id", stop.ID))
	return nil
}

func (s *catalogService) UpsertOffer(ctx context.Context, offer *models.Offer) error {
	switch {
	case !isUUID(offer.ID):
		return validation("offer id must be a uuid")
	case strings.TrimSpace(offer.Code) == "":
		return validation("offer code is required")
	case offer.DiscountType != models.DiscountPercentage && offer.DiscountType != models.DiscountFlat:
		return validation("unknown discount type: %s", offer.DiscountType)
	case offer.DiscountValue < 0 || offer.MaxDiscount < 0 || offer.MinBookingAmount < 0:
		return validation("offer amounts must not be negative")
	case offer.UsageLimit < 0:
		return validation("usage limit must not be negative")
	case offer.ValidTo.Before(offer.ValidFrom):
		return validation("offer window ends before it starts")
	}
	if err := s.stores.Offers.Upsert(ctx, offer); err != nil {
		return fmt.Errorf("upsert offer: %w", err)
	}
	s.log.Info("offer synced", zap.String("offer_id", offer.ID), zap.String("code", offer.Code))
	return nil
}
