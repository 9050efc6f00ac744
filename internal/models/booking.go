package models

import "time"

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingConfirmed:
		return next == BookingCancelled || next == BookingCompleted
	case BookingCancelled, BookingCompleted:
		return false
	}
	return false
}

type Booking struct {
	ID         string        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string        `gorm:"type:varchar(64);not null;index" json:"user_id"`
	TripID     string        `gorm:"type:uuid;not null;index" json:"trip_id"`
	Reference  string        `gorm:"column:booking_reference;type:varchar(20);not null;uniqueIndex" json:"booking_reference"`
	SeatCount  int           `gorm:"not null" json:"seat_count"`
	BaseFare   float64       `gorm:"type:numeric(10,2);not null" json:"base_fare"`
	Tax        float64       `gorm:"type:numeric(10,2);not null" json:"tax"`
	Service    float64       `gorm:"column:service_charge;type:numeric(10,2);not null" json:"service_charge"`
	Discount   float64       `gorm:"type:numeric(10,2);not null;default:0" json:"discount"`
	OfferCode  *string       `gorm:"type:varchar(32)" json:"offer_code,omitempty"`
	TotalFare  float64       `gorm:"type:numeric(10,2);not null" json:"total_fare"`
	Status     BookingStatus `gorm:"type:varchar(20);not null;default:'confirmed';index" json:"status"`
	Passengers string        `gorm:"column:passenger_details;type:text" json:"-"`
	BookedAt   time.Time     `gorm:"not null" json:"booked_at"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`

	Seats        []BookedSeat  `gorm:"foreignKey:BookingID" json:"seats,omitempty"`
	Payment      *Payment      `gorm:"foreignKey:BookingID" json:"payment,omitempty"`
	Cancellation *Cancellation `gorm:"foreignKey:BookingID" json:"cancellation,omitempty"`
}

// TotalBeforeDiscount is the fare the discount was computed against.
func (b *Booking) TotalBeforeDiscount() float64 {
	return b.BaseFare + b.Tax + b.Service
}

func (b *Booking) SeatNumbers() []string {
	out := make([]string, len(b.Seats))
	for i, s := range b.Seats {
		out[i] = s.SeatNumber
	}
	return out
}

// BookedSeat is released (not deleted) when its booking is cancelled so the
// partial unique index on (trip_id, seat_number) only covers live seats.
type BookedSeat struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	BookingID       string `gorm:"type:uuid;not null;index" json:"booking_id"`
	TripID          string `gorm:"type:uuid;not null" json:"trip_id"`
	SeatNumber      string `gorm:"type:varchar(10);not null" json:"seat_number"`
	PassengerName   string `gorm:"type:varchar(120);not null" json:"passenger_name"`
	PassengerAge    int    `json:"passenger_age"`
	PassengerGender string `gorm:"type:varchar(20)" json:"passenger_gender"`
	BoardingStopID  string `gorm:"type:uuid;not null" json:"boarding_stop_id"`
	DroppingStopID  string `gorm:"type:uuid;not null" json:"dropping_stop_id"`
	Released        bool   `gorm:"not null;default:false" json:"-"`
}

// Passenger is one entry of the serialized manifest kept on the booking.
type Passenger struct {
	Name       string `json:"name"`
	Age        int    `json:"age"`
	Gender     string `json:"gender"`
	SeatNumber string `json:"seat_number"`
}
