package models

import "time"

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundProcessed RefundStatus = "processed"
	RefundRejected  RefundStatus = "rejected"
)

// CanTransitionTo only moves forward: Pending -> Processed | Rejected.
func (s RefundStatus) CanTransitionTo(next RefundStatus) bool {
	switch s {
	case RefundPending:
		return next == RefundProcessed || next == RefundRejected
	case RefundProcessed, RefundRejected:
		return false
	}
	return false
}

type Cancellation struct {
	ID                 string       `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID          string       `gorm:"type:uuid;not null;uniqueIndex" json:"booking_id"`
	CancelledBy        string       `gorm:"type:varchar(64);not null" json:"cancelled_by"`
	Reason             string       `gorm:"type:text;not null" json:"reason"`
	RefundAmount       float64      `gorm:"type:numeric(10,2);not null" json:"refund_amount"`
	CancellationCharge float64      `gorm:"type:numeric(10,2);not null" json:"cancellation_charge"`
	Policy             string       `gorm:"type:varchar(120);not null" json:"policy"`
	RefundStatus       RefundStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"refund_status"`
	CancelledAt        time.Time    `gorm:"not null" json:"cancelled_at"`
	RefundRequestedAt  *time.Time   `json:"refund_requested_at,omitempty"`
	RefundProcessedAt  *time.Time   `json:"refund_processed_at,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}
