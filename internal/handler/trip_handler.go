package handler

import (
	"net/http"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/dto"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/service"
	"github.com/labstack/echo/v4"
)

type TripHandler struct {
	svc service.TripService
}

func NewTripHandler(svc service.TripService) *TripHandler {
	return &TripHandler{svc: svc}
}

func (h *TripHandler) RegisterRoutes(g *echo.Group) {
	trips := g.Group("/trips")
	trips.GET("/:id/seats", h.GetSeats)
	trips.POST("/:id/cancel", h.CancelTrip)
	trips.PATCH("/:id/status", h.UpdateStatus)
}

func (h *TripHandler) GetSeats(c echo.Context) error {
	id, err := uuidParam(c, "id", "trip")
	if err != nil {
		return err
	}

	avail, err := h.svc.SeatAvailability(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("", avail))
}

func (h *TripHandler) CancelTrip(c echo.Context) error {
	id, err := uuidParam(c, "id", "trip")
	if err != nil {
		return err
	}

	trip, err := h.svc.CancelTrip(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("trip cancelled", trip))
}

func (h *TripHandler) UpdateStatus(c echo.Context) error {
	id, err := uuidParam(c, "id", "trip")
	if err != nil {
		return err
	}
	var req dto.UpdateTripStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	trip, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("trip status updated", trip))
}
