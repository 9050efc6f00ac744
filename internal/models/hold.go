package models

import "time"

// SeatHold is a short-lived claim on seats. It is never persisted to Postgres.
type SeatHold struct {
	ID        string    `json:"hold_id"`
	TripID    string    `json:"trip_id"`
	UserID    string    `json:"user_id,omitempty"`
	Seats     []string  `json:"seats"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *SeatHold) Expired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}
