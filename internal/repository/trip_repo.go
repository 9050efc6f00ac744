package repository

import (
	"context"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TripRepository interface {
	FindByID(ctx context.Context, id string) (*models.Trip, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Trip, error)
	AdjustAvailableSeats(ctx context.Context, tx *gorm.DB, id string, delta int) error
	ResetAvailableSeats(ctx context.Context, tx *gorm.DB, id string) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status models.TripStatus) error
	Upsert(ctx context.Context, trip *models.Trip) error
}

type tripRepository struct {
	db *gorm.DB
}

func NewTripRepository(db *gorm.DB) TripRepository {
	return &tripRepository{db: db}
}

func (r *tripRepository) FindByID(ctx context.Context, id string) (*models.Trip, error) {
	var trip models.Trip
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&trip).Error; err != nil {
		return nil, err
	}
	return &trip, nil
}

// FindByIDForUpdate acquires a row-level lock on the trip within the given transaction.
func (r *tripRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Trip, error) {
	var trip models.Trip
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&trip).Error; err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *tripRepository) AdjustAvailableSeats(ctx context.Context, tx *gorm.DB, id string, delta int) error {
	res := conn(r.db, tx).WithContext(ctx).
		Model(&models.Trip{}).
		Where("id = ? AND available_seats + ? BETWEEN 0 AND total_seats", id, delta).
		UpdateColumn("available_seats", gorm.Expr("available_seats + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSeatCounterOutOfRange
	}
	return nil
}

func (r *tripRepository) ResetAvailableSeats(ctx context.Context, tx *gorm.DB, id string) error {
	return conn(r.db, tx).WithContext(ctx).
		Model(&models.Trip{}).
		Where("id = ?", id).
		UpdateColumn("available_seats", gorm.Expr("total_seats")).Error
}

func (r *tripRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status models.TripStatus) error {
	return conn(r.db, tx).WithContext(ctx).
		Model(&models.Trip{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// Upsert syncs a trip from the operator catalog. The available seat counter
// is owned by this service and is only set on first insert.
func (r *tripRepository) Upsert(ctx context.Context, trip *models.Trip) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"schedule_id", "trip_date", "departure_at", "arrival_at", "total_seats", "updated_at"}),
	}).Create(trip).Error
}
