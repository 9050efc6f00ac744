package dto

import (
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/service"
)

// Response is the envelope every /api/v1 route answers with.
type Response struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// ErrorMessage is carried as the Message of an echo.HTTPError so the error
// handler can render structured details.
type ErrorMessage struct {
	Message string
	Errors  []string
}

func OK(message string, data any) Response {
	return Response{Success: true, Message: message, Data: data}
}

func Fail(message string, errs []string) Response {
	return Response{Success: false, Message: message, Errors: errs}
}

type SeatResponse struct {
	SeatNumber      string `json:"seat_number"`
	PassengerName   string `json:"passenger_name"`
	PassengerAge    int    `json:"passenger_age"`
	PassengerGender string `json:"passenger_gender"`
	BoardingStopID  string `json:"boarding_stop_id"`
	BoardingStop    string `json:"boarding_stop,omitempty"`
	DroppingStopID  string `json:"dropping_stop_id"`
	DroppingStop    string `json:"dropping_stop,omitempty"`
}

type PaymentSummary struct {
	ID            string               `json:"id"`
	Amount        float64              `json:"amount"`
	Method        models.PaymentMethod `json:"method"`
	Status        models.PaymentStatus `json:"status"`
	TransactionID string               `json:"transaction_id"`
	PaidAt        time.Time            `json:"paid_at"`
}

type CancellationSummary struct {
	ID                 string              `json:"id"`
	Reason             string              `json:"reason"`
	RefundAmount       float64             `json:"refund_amount"`
	CancellationCharge float64             `json:"cancellation_charge"`
	RefundStatus       models.RefundStatus `json:"refund_status"`
	CancelledAt        time.Time           `json:"cancelled_at"`
}

type BookingResponse struct {
	ID            string               `json:"id"`
	Reference     string               `json:"booking_reference"`
	UserID        string               `json:"user_id"`
	TripID        string               `json:"trip_id"`
	Status        models.BookingStatus `json:"status"`
	SeatCount     int                  `json:"seat_count"`
	BaseFare      float64              `json:"base_fare"`
	Tax           float64              `json:"tax"`
	ServiceCharge float64              `json:"service_charge"`
	Discount      float64              `json:"discount"`
	OfferCode     *string              `json:"offer_code,omitempty"`
	TotalFare     float64              `json:"total_fare"`
	BookedAt      time.Time            `json:"booked_at"`
	Seats         []SeatResponse       `json:"seats"`
	Payment       *PaymentSummary      `json:"payment,omitempty"`
	Cancellation  *CancellationSummary `json:"cancellation,omitempty"`
}

type BookingPageResponse struct {
	Items      []BookingResponse `json:"items"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	Total      int64             `json:"total"`
	TotalPages int               `json:"total_pages"`
}

// ToBookingResponse maps a booking; stopNames may be nil.
func ToBookingResponse(b *models.Booking, stopNames map[string]string) BookingResponse {
	resp := BookingResponse{
		ID:            b.ID,
		Reference:     b.Reference,
		UserID:        b.UserID,
		TripID:        b.TripID,
		Status:        b.Status,
		SeatCount:     b.SeatCount,
		BaseFare:      b.BaseFare,
		Tax:           b.Tax,
		ServiceCharge: b.Service,
		Discount:      b.Discount,
		OfferCode:     b.OfferCode,
		TotalFare:     b.TotalFare,
		BookedAt:      b.BookedAt,
		Seats:         make([]SeatResponse, len(b.Seats)),
	}
	for i, s := range b.Seats {
		resp.Seats[i] = SeatResponse{
			SeatNumber:      s.SeatNumber,
			PassengerName:   s.PassengerName,
			PassengerAge:    s.PassengerAge,
			PassengerGender: s.PassengerGender,
			BoardingStopID:  s.BoardingStopID,
			BoardingStop:    stopNames[s.BoardingStopID],
			DroppingStopID:  s.DroppingStopID,
			DroppingStop:    stopNames[s.DroppingStopID],
		}
	}
	if p := b.Payment; p != nil {
		resp.Payment = &PaymentSummary{
			ID:            p.ID,
			Amount:        p.Amount,
			Method:        p.Method,
			Status:        p.Status,
			TransactionID: p.TransactionID,
			PaidAt:        p.PaidAt,
		}
	}
	if c := b.Cancellation; c != nil {
		resp.Cancellation = &CancellationSummary{
			ID:                 c.ID,
			Reason:             c.Reason,
			RefundAmount:       c.RefundAmount,
			CancellationCharge: c.CancellationCharge,
			RefundStatus:       c.RefundStatus,
			CancelledAt:        c.CancelledAt,
		}
	}
	return resp
}

func ToBookingPageResponse(p *service.BookingPage) BookingPageResponse {
	items := make([]BookingResponse, len(p.Items))
	for i := range p.Items {
		items[i] = ToBookingResponse(&p.Items[i], nil)
	}
	return BookingPageResponse{
		Items:      items,
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      p.Total,
		TotalPages: p.TotalPages,
	}
}
