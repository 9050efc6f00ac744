package repository

import (
	"context"
	"strings"
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OfferRepository interface {
	FindByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Offer, error)
	ListActive(ctx context.Context, now time.Time) ([]models.Offer, error)
	Redeem(ctx context.Context, tx *gorm.DB, id string) (bool, error)
	Upsert(ctx context.Context, offer *models.Offer) error
}

type offerRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) FindByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Offer, error) {
	var offer models.Offer
	err := conn(r.db, tx).WithContext(ctx).
		Where("offer_code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// ListActive returns offers that are switched on, inside their window and not used up.
func (r *offerRepository) ListActive(ctx context.Context, now time.Time) ([]models.Offer, error) {
	var offers []models.Offer
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND valid_from <= ? AND valid_to >= ? AND times_used < usage_limit", true, now, now).
		Order("valid_to ASC").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

// Redeem consumes one use of the offer. It reports false when the usage
// limit was reached by a concurrent redemption.
func (r *offerRepository) Redeem(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	res := conn(r.db, tx).WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ? AND times_used < usage_limit", id).
		UpdateColumn("times_used", gorm.Expr("times_used + 1"))
	return res.RowsAffected > 0, res.Error
}

// Upsert syncs an offer definition; the usage counter is never overwritten.
func (r *offerRepository) Upsert(ctx context.Context, offer *models.Offer) error {
	offer.Code = strings.ToUpper(strings.TrimSpace(offer.Code))
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"offer_code", "description", "discount_type", "discount_value", "min_booking_amount",
			"max_discount", "valid_from", "valid_to", "usage_limit", "is_active", "updated_at",
		}),
	}).Create(offer).Error
}
