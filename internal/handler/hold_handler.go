package handler

import (
	"net/http"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/dto"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/middleware"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/service"
	"github.com/labstack/echo/v4"
)

type HoldHandler struct {
	svc service.HoldManager
}

func NewHoldHandler(svc service.HoldManager) *HoldHandler {
	return &HoldHandler{svc: svc}
}

func (h *HoldHandler) RegisterRoutes(g *echo.Group) {
	holds := g.Group("/holds")
	holds.POST("", h.CreateHold)
	holds.GET("/:id", h.GetHold)
	holds.DELETE("/:id", h.ReleaseHold)
}

func (h *HoldHandler) CreateHold(c echo.Context) error {
	var req dto.CreateHoldRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	hold, err := h.svc.CreateHold(c.Request().Context(), middleware.CallerID(c), req.TripID, req.Seats)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, dto.OK("seats held", hold))
}

func (h *HoldHandler) GetHold(c echo.Context) error {
	hold, err := h.ownHold(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.OK("", hold))
}

func (h *HoldHandler) ReleaseHold(c echo.Context) error {
	hold, err := h.ownHold(c)
	if err != nil {
		return err
	}
	if err := h.svc.ReleaseHold(c.Request().Context(), hold.ID); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("hold released", nil))
}

// ownHold hides holds that belong to someone else.
func (h *HoldHandler) ownHold(c echo.Context) (*models.SeatHold, error) {
	hold, err := h.svc.GetHold(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, toHTTPError(err)
	}
	if hold.UserID != middleware.CallerID(c) {
		return nil, toHTTPError(service.ErrHoldNotFound)
	}
	return hold, nil
}
