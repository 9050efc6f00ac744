package handler

import (
	"net/http"
	"strconv"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/dto"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/middleware"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/repository"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type BookingHandler struct {
	svc   service.BookingService
	stops repository.StopRepository
	log   *zap.Logger
}

func NewBookingHandler(svc service.BookingService, stops repository.StopRepository, log *zap.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, stops: stops, log: log.Named("bookings")}
}

func (h *BookingHandler) RegisterRoutes(g *echo.Group) {
	bookings := g.Group("/bookings")
	bookings.POST("", h.CreateBooking)
	bookings.GET("", h.ListBookings)
	bookings.GET("/reference/:ref", h.GetBookingByReference)
	bookings.GET("/:id", h.GetBooking)
	bookings.PATCH("/:id", h.ModifyBooking)
	bookings.DELETE("/:id", h.CancelBooking)
	bookings.GET("/:id/ticket", h.GetTicket)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req dto.CreateBookingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	booking, err := h.svc.CreateBooking(c.Request().Context(), service.CreateBookingInput{
		UserID:         middleware.CallerID(c),
		TripID:         req.TripID,
		Seats:          req.Seats,
		Passengers:     req.PassengerList(),
		BoardingStopID: req.BoardingStopID,
		DroppingStopID: req.DroppingStopID,
		OfferCode:      req.OfferCode,
		HoldID:         req.HoldID,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, dto.OK("booking confirmed", h.withStops(c, booking)))
}

func (h *BookingHandler) ListBookings(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	result, err := h.svc.ListBookings(c.Request().Context(), middleware.CallerID(c), page, pageSize)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("", dto.ToBookingPageResponse(result)))
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := uuidParam(c, "id", "booking")
	if err != nil {
		return err
	}

	booking, err := h.svc.GetBooking(c.Request().Context(), middleware.CallerID(c), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("", h.withStops(c, booking)))
}

func (h *BookingHandler) GetBookingByReference(c echo.Context) error {
	ref := c.Param("ref")
	if ref == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking reference")
	}

	booking, err := h.svc.GetBookingByReference(c.Request().Context(), middleware.CallerID(c), ref)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("", h.withStops(c, booking)))
}

func (h *BookingHandler) ModifyBooking(c echo.Context) error {
	id, err := uuidParam(c, "id", "booking")
	if err != nil {
		return err
	}
	var req dto.ModifyBookingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	booking, err := h.svc.ModifyBooking(c.Request().Context(), middleware.CallerID(c), id, service.ModifyBookingInput{
		BoardingStopID: req.BoardingStopID,
		DroppingStopID: req.DroppingStopID,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("booking updated", h.withStops(c, booking)))
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	id, err := uuidParam(c, "id", "booking")
	if err != nil {
		return err
	}

	cancellation, err := h.svc.CancelBooking(c.Request().Context(), middleware.CallerID(c), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.OK("booking cancelled", cancellation))
}

func (h *BookingHandler) GetTicket(c echo.Context) error {
	id, err := uuidParam(c, "id", "booking")
	if err != nil {
		return err
	}

	ticket, err := h.svc.RenderTicket(c.Request().Context(), middleware.CallerID(c), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.String(http.StatusOK, ticket)
}

// withStops resolves stop names for the response. Missing names are left
// blank rather than failing the read.
func (h *BookingHandler) withStops(c echo.Context, b *models.Booking) dto.BookingResponse {
	if h.stops == nil || len(b.Seats) == 0 {
		return dto.ToBookingResponse(b, nil)
	}
	ids := make([]string, 0, 2*len(b.Seats))
	for _, s := range b.Seats {
		ids = append(ids, s.BoardingStopID, s.DroppingStopID)
	}
	stops, err := h.stops.FindByIDs(c.Request().Context(), ids)
	if err != nil {
		h.log.Warn("stop names unavailable", zap.String("booking_id", b.ID), zap.Error(err))
		return dto.ToBookingResponse(b, nil)
	}
	names := make(map[string]string, len(stops))
	for _, s := range stops {
		names[s.ID] = s.Name
	}
	return dto.ToBookingResponse(b, names)
}
