package repository

import (
	"context"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScheduleRepository interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	Upsert(ctx context.Context, schedule *models.Schedule) error
}

type StopRepository interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Stop, error)
	Upsert(ctx context.Context, stop *models.Stop) error
}

type scheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&schedule).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepository) Upsert(ctx context.Context, schedule *models.Schedule) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"bus_id", "route_id", "base_fare", "updated_at"}),
	}).Create(schedule).Error
}

type stopRepository struct {
	db *gorm.DB
}

func NewStopRepository(db *gorm.DB) StopRepository {
	return &stopRepository{db: db}
}

func (r *stopRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Stop, error) {
	var stops []models.Stop
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&stops).Error; err != nil {
		return nil, err
	}
	return stops, nil
}

func (r *stopRepository) Upsert(ctx context.Context, stop *models.Stop) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"route_id", "stop_name", "stop_order", "updated_at"}),
	}).Create(stop).Error
}
