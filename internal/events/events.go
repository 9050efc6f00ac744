package events

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Routing keys for lifecycle events published by this service.
const (
	HoldCreated      = "hold.created"
	HoldReleased     = "hold.released"
	BookingCreated   = "booking.created"
	BookingModified  = "booking.modified"
	BookingCancelled = "booking.cancelled"
	PaymentConfirmed = "payment.confirmed"
	RefundRequested  = "refund.requested"
	RefundUpdated    = "refund.updated"
	TripCancelled    = "trip.cancelled"
)

// Publisher delivers a JSON-serializable payload to a broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Keyed payloads choose their broker partition key.
type Keyed interface {
	EventKey() string
}

type HoldEvent struct {
	HoldID    string    `json:"hold_id"`
	TripID    string    `json:"trip_id"`
	UserID    string    `json:"user_id,omitempty"`
	Seats     []string  `json:"seats"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

func (e HoldEvent) EventKey() string { return e.TripID }

type BookingEvent struct {
	BookingID  string    `json:"booking_id"`
	Reference  string    `json:"booking_reference"`
	UserID     string    `json:"user_id"`
	TripID     string    `json:"trip_id"`
	Seats      []string  `json:"seats"`
	TotalFare  float64   `json:"total_fare"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e BookingEvent) EventKey() string { return e.TripID }

type RefundEvent struct {
	CancellationID string    `json:"cancellation_id"`
	BookingID      string    `json:"booking_id"`
	RefundAmount   float64   `json:"refund_amount"`
	RefundStatus   string    `json:"refund_status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (e RefundEvent) EventKey() string { return e.BookingID }

type PaymentEvent struct {
	PaymentID     string    `json:"payment_id"`
	BookingID     string    `json:"booking_id"`
	Amount        float64   `json:"amount"`
	TransactionID string    `json:"transaction_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (e PaymentEvent) EventKey() string { return e.BookingID }

type TripEvent struct {
	TripID            string    `json:"trip_id"`
	Status            string    `json:"status"`
	CancelledBookings int       `json:"cancelled_bookings"`
	OccurredAt        time.Time `json:"occurred_at"`
}

func (e TripEvent) EventKey() string { return e.TripID }

// Emitter publishes after commit. Broker failures are logged and never
// surface to the caller; a nil Emitter or publisher drops events.
type Emitter struct {
	pub Publisher
	log *zap.Logger
}

func NewEmitter(pub Publisher, log *zap.Logger) *Emitter {
	return &Emitter{pub: pub, log: log}
}

func (e *Emitter) Emit(ctx context.Context, routingKey string, payload any) {
	if e == nil || e.pub == nil {
		return
	}
	if err := e.pub.Publish(ctx, routingKey, payload); err != nil {
		e.log.Warn("failed to publish event", zap.String("routing_key", routingKey), zap.Error(err))
	}
}
