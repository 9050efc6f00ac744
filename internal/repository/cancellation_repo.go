package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"gorm.io/gorm"
)

type CancellationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, c *models.Cancellation) error
	FindByID(ctx context.Context, id string) (*models.Cancellation, error)
	FindByBookingID(ctx context.Context, tx *gorm.DB, bookingID string) (*models.Cancellation, error)
	MarkRefundRequested(ctx context.Context, id string, at time.Time) error
	TransitionRefund(ctx context.Context, id string, from, to models.RefundStatus, at time.Time) (bool, error)
}

type cancellationRepository struct {
	db *gorm.DB
}

func NewCancellationRepository(db *gorm.DB) CancellationRepository {
	return &cancellationRepository{db: db}
}

func (r *cancellationRepository) Create(ctx context.Context, tx *gorm.DB, c *models.Cancellation) error {
	return tx.WithContext(ctx).Create(c).Error
}

func (r *cancellationRepository) FindByID(ctx context.Context, id string) (*models.Cancellation, error) {
	var c models.Cancellation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cancellationRepository) FindByBookingID(ctx context.Context, tx *gorm.DB, bookingID string) (*models.Cancellation, error) {
	var c models.Cancellation
	if err := conn(r.db, tx).WithContext(ctx).Where("booking_id = ?", bookingID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cancellationRepository) MarkRefundRequested(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Cancellation{}).
		Where("id = ? AND refund_requested_at IS NULL", id).
		Update("refund_requested_at", at).Error
}

func (r *cancellationRepository) TransitionRefund(ctx context.Context, id string, from, to models.RefundStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Cancellation{}).
		Where("id = ? AND refund_status = ?", id, from).
		Updates(map[string]any{"refund_status": to, "refund_processed_at": at})
	return res.RowsAffected > 0, res.Error
}
