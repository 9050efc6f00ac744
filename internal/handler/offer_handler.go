package handler

import (
	"net/http"
	"strconv"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/dto"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/service"
	"github.com/labstack/echo/v4"
)

type OfferHandler struct {
	svc service.OfferValidator
}

func NewOfferHandler(svc service.OfferValidator) *OfferHandler {
	return &OfferHandler{svc: svc}
}

// RegisterRoutes expects the public /offers group.
func (h *OfferHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.ListActive)
	g.GET("/applicable", h.ListApplicable)
	g.POST("/validate", h.Validate)
}

func (h *OfferHandler) Validate(c echo.Context) error {
	var req dto.ValidateOfferRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.svc.Validate(c.Request().Context(), req.Code, req.Amount)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK(res.Reason, res))
}

func (h *OfferHandler) ListActive(c echo.Context) error {
	offers, err := h.svc.ListActive(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("", offers))
}

func (h *OfferHandler) ListApplicable(c echo.Context) error {
	amount, err := strconv.ParseFloat(c.QueryParam("amount"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid amount")
	}

	offers, err := h.svc.ListApplicable(c.Request().Context(), amount)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("", offers))
}
