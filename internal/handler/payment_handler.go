package handler

import (
	"net/http"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/dto"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/middleware"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/service"
	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	svc service.PaymentService
}

func NewPaymentHandler(svc service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func (h *PaymentHandler) RegisterRoutes(g *echo.Group) {
	payments := g.Group("/payments")
	payments.POST("", h.ConfirmPayment)
	payments.GET("/booking/:bookingId", h.GetPaymentByBooking)
}

func (h *PaymentHandler) ConfirmPayment(c echo.Context) error {
	var req dto.ConfirmPaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	payment, err := h.svc.ConfirmPayment(c.Request().Context(), middleware.CallerID(c), service.ConfirmPaymentInput{
		BookingID: req.BookingID,
		Amount:    req.Amount,
		Method:    req.Method,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, dto.OK("payment confirmed", payment))
}

func (h *PaymentHandler) GetPaymentByBooking(c echo.Context) error {
	bookingID, err := uuidParam(c, "bookingId", "booking")
	if err != nil {
		return err
	}

	payment, err := h.svc.GetPaymentByBooking(c.Request().Context(), middleware.CallerID(c), bookingID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("", payment))
}
