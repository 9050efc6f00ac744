package handler

import (
	"net/http"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/dto"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/middleware"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/service"
	"github.com/labstack/echo/v4"
)

type CancellationHandler struct {
	svc service.CancellationService
}

func NewCancellationHandler(svc service.CancellationService) *CancellationHandler {
	return &CancellationHandler{svc: svc}
}

func (h *CancellationHandler) RegisterRoutes(g *echo.Group) {
	cancellations := g.Group("/cancellations")
	cancellations.GET("/policy", h.GetPolicy)
	cancellations.POST("/calculate", h.CalculateRefund)
	cancellations.POST("", h.RequestCancellation)
	cancellations.GET("/:id", h.GetCancellation)

	refunds := g.Group("/refunds")
	refunds.POST("", h.RequestRefund)
	refunds.GET("/booking/:bookingId", h.GetRefundByBooking)
	refunds.PATCH("/:id", h.UpdateRefundStatus)
}

func (h *CancellationHandler) GetPolicy(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.OK("", h.svc.RefundPolicy()))
}

func (h *CancellationHandler) CalculateRefund(c echo.Context) error {
	var req dto.BookingRefRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	quote, err := h.svc.PreviewRefund(c.Request().Context(), middleware.CallerID(c), req.BookingID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("", quote))
}

func (h *CancellationHandler) RequestCancellation(c echo.Context) error {
	var req dto.CancellationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	cancellation, err := h.svc.RequestCancellation(c.Request().Context(), middleware.CallerID(c), req.BookingID, req.Reason)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, dto.OK("booking cancelled", cancellation))
}

func (h *CancellationHandler) GetCancellation(c echo.Context) error {
	id, err := uuidParam(c, "id", "cancellation")
	if err != nil {
		return err
	}

	cancellation, err := h.svc.GetCancellation(c.Request().Context(), middleware.CallerID(c), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("", cancellation))
}

func (h *CancellationHandler) RequestRefund(c echo.Context) error {
	var req dto.BookingRefRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	refund, err := h.svc.RequestRefund(c.Request().Context(), middleware.CallerID(c), req.BookingID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("refund requested", refund))
}

func (h *CancellationHandler) GetRefundByBooking(c echo.Context) error {
	bookingID, err := uuidParam(c, "bookingId", "booking")
	if err != nil {
		return err
	}

	refund, err := h.svc.GetRefundByBooking(c.Request().Context(), middleware.CallerID(c), bookingID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("", refund))
}

func (h *CancellationHandler) UpdateRefundStatus(c echo.Context) error {
	id, err := uuidParam(c, "id", "cancellation")
	if err != nil {
		return err
	}
	var req dto.UpdateRefundRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	refund, err := h.svc.UpdateRefundStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("refund status updated", refund))
}
