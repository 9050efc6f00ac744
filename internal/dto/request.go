package dto

import "github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"

type CreateHoldRequest struct {
	TripID string   `json:"trip_id" validate:"required,uuid"`
	Seats  []string `json:"seats" validate:"required,min=1,dive,required,max=10"`
}

type PassengerRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Age        int    `json:"age" validate:"gte=0,lte=120"`
	Gender     string `json:"gender" validate:"required,oneof=male female other"`
	SeatNumber string `json:"seat_number" validate:"required,max=10"`
}

type CreateBookingRequest struct {
	TripID         string             `json:"trip_id" validate:"required,uuid"`
	Seats          []string           `json:"seats" validate:"required,min=1,dive,required,max=10"`
	Passengers     []PassengerRequest `json:"passengers" validate:"required,min=1,dive"`
	BoardingStopID string             `json:"boarding_stop_id" validate:"required,uuid"`
	DroppingStopID string             `json:"dropping_stop_id" validate:"required,uuid"`
	OfferCode      string             `json:"offer_code" validate:"omitempty,max=32"`
	HoldID         string             `json:"hold_id" validate:"omitempty,len=12"`
}

func (r CreateBookingRequest) PassengerList() []models.Passenger {
	out := make([]models.Passenger, len(r.Passengers))
	for i, p := range r.Passengers {
		out[i] = models.Passenger{Name: p.Name, Age: p.Age, Gender: p.Gender, SeatNumber: p.SeatNumber}
	}
	return out
}

type ModifyBookingRequest struct {
	BoardingStopID *string `json:"boarding_stop_id" validate:"omitempty,uuid"`
	DroppingStopID *string `json:"dropping_stop_id" validate:"omitempty,uuid"`
}

type BookingRefRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
}

type CancellationRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
	Reason    string `json:"reason" validate:"max=500"`
}

type UpdateRefundRequest struct {
	Status models.RefundStatus `json:"status" validate:"required,oneof=processed rejected"`
}

type ValidateOfferRequest struct {
	Code   string  `json:"code" validate:"required,max=32"`
	Amount float64 `json:"amount" validate:"gt=0"`
}

type ConfirmPaymentRequest struct {
	BookingID string               `json:"booking_id" validate:"required,uuid"`
	Amount    float64              `json:"amount" validate:"gt=0"`
	Method    models.PaymentMethod `json:"method" validate:"required,oneof=card upi wallet netbanking"`
}

type UpdateTripStatusRequest struct {
	Status models.TripStatus `json:"status" validate:"required,oneof=scheduled in_transit completed cancelled"`
}
