package service

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every *Error unwraps to exactly one of these.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation error")
)

type Error struct {
	Kind    error
	Message string
	Details []string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string, details ...string) *Error {
	return &Error{Kind: kind, Message: msg, Details: details}
}

func notFound(format string, args ...any) *Error {
	return newError(ErrNotFound, fmt.Sprintf(format, args...))
}

func invalidState(format string, args ...any) *Error {
	return newError(ErrInvalidState, fmt.Sprintf(format, args...))
}

func validation(format string, args ...any) *Error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}

func seatConflict(prefix string, seats []string) *Error {
	return newError(ErrConflict, prefix+": "+strings.Join(seats, ", "), seats...)
}

var (
	ErrTripNotFound         = notFound("trip not found")
	ErrBookingNotFound      = notFound("booking not found")
	ErrHoldNotFound         = notFound("hold not found or expired")
	ErrCancellationNotFound = notFound("cancellation not found")
	ErrPaymentNotFound      = notFound("payment not found")

	ErrTripNotBookable     = invalidState("trip is not open for booking")
	ErrAlreadyCancelled    = invalidState("booking is already cancelled")
	ErrCancelAfterDepart   = invalidState("cannot cancel after departure")
	ErrModifyAfterDepart   = invalidState("cannot modify booking after departure")
	ErrBookingCompleted    = invalidState("booking is already completed")
	ErrNotCancelled        = invalidState("booking must be cancelled before requesting a refund")
	ErrNoRefundablePayment = invalidState("no refunded payment found for this booking")
	ErrRefundRejected      = invalidState("refund was rejected")

	ErrDuplicateCancellation = newError(ErrConflict, "booking is already cancelled")
	ErrRefundProcessed       = newError(ErrConflict, "refund already processed")
	ErrPaymentExists         = newError(ErrConflict, "payment already completed for this booking")
	ErrNotEnoughSeats        = newError(ErrConflict, "not enough seats available")

	ErrSeatPassengerMismatch = validation("number of seats must match number of passengers")
	ErrInvalidStops          = validation("invalid boarding or dropping point")
	ErrNoSeats               = validation("at least one seat is required")
)

// KindOf returns the kind sentinel carried by err, or nil for unclassified errors.
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrInvalidState, ErrConflict, ErrValidation} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// DetailsOf returns structured details (e.g. offending seats) when err carries any.
func DetailsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
