package handler

import (
	"errors"
	"net/http"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/dto"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// toHTTPError maps a service error kind to its status code.
func toHTTPError(err error) error {
	var code int
	switch service.KindOf(err) {
	case service.ErrNotFound:
		code = http.StatusNotFound
	case service.ErrInvalidState, service.ErrConflict:
		code = http.StatusConflict
	case service.ErrValidation:
		code = http.StatusBadRequest
	default:
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return echo.NewHTTPError(code, dto.ErrorMessage{Message: err.Error(), Errors: service.DetailsOf(err)})
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// uuidParam reads a uuid path parameter.
func uuidParam(c echo.Context, name, what string) (string, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid "+what+" id")
	}
	return id.String(), nil
}
