package repository

import (
	"context"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, p *models.Payment) error
	FindByBookingID(ctx context.Context, tx *gorm.DB, bookingID string) (*models.Payment, error)
	TransitionStatus(ctx context.Context, tx *gorm.DB, id string, from, to models.PaymentStatus) (bool, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, tx *gorm.DB, p *models.Payment) error {
	return conn(r.db, tx).WithContext(ctx).Create(p).Error
}

func (r *paymentRepository) FindByBookingID(ctx context.Context, tx *gorm.DB, bookingID string) (*models.Payment, error) {
	var p models.Payment
	if err := conn(r.db, tx).WithContext(ctx).Where("booking_id = ?", bookingID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) TransitionStatus(ctx context.Context, tx *gorm.DB, id string, from, to models.PaymentStatus) (bool, error) {
	res := conn(r.db, tx).WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}
