package models

import "time"

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

type Offer struct {
	ID               string       `gorm:"type:uuid;primaryKey" json:"id"`
	Code             string       `gorm:"column:offer_code;type:varchar(32);not null;uniqueIndex" json:"code"`
	Description      string       `gorm:"type:text" json:"description"`
	DiscountType     DiscountType `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue    float64      `gorm:"type:numeric(10,2);not null" json:"discount_value"`
	MinBookingAmount float64      `gorm:"type:numeric(10,2);not null;default:0" json:"min_booking_amount"`
	MaxDiscount      float64      `gorm:"type:numeric(10,2);not null" json:"max_discount"`
	ValidFrom        time.Time    `gorm:"not null" json:"valid_from"`
	ValidTo          time.Time    `gorm:"not null" json:"valid_to"`
	UsageLimit       int          `gorm:"not null" json:"usage_limit"`
	TimesUsed        int          `gorm:"not null;default:0" json:"times_used"`
	IsActive         bool         `gorm:"not null" json:"is_active"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}
