package models

import "time"

type TripStatus string

const (
	TripScheduled TripStatus = "scheduled"
	TripInTransit TripStatus = "in_transit"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

func (s TripStatus) Valid() bool {
	switch s {
	case TripScheduled, TripInTransit, TripCompleted, TripCancelled:
		return true
	}
	return false
}

// CanTransitionTo follows Scheduled -> InTransit -> Completed, or Scheduled -> Cancelled.
func (s TripStatus) CanTransitionTo(next TripStatus) bool {
	switch s {
	case TripScheduled:
		return next == TripInTransit || next == TripCancelled
	case TripInTransit:
		return next == TripCompleted
	case TripCompleted, TripCancelled:
		return false
	}
	return false
}

type Trip struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleID     string     `gorm:"type:uuid;not null;index" json:"schedule_id"`
	TripDate       time.Time  `gorm:"type:date;not null" json:"trip_date"`
	DepartureAt    time.Time  `gorm:"not null" json:"departure_at"`
	ArrivalAt      time.Time  `gorm:"not null" json:"arrival_at"`
	TotalSeats     int        `gorm:"not null" json:"total_seats"`
	AvailableSeats int        `gorm:"not null" json:"available_seats"`
	Status         TripStatus `gorm:"type:varchar(20);not null;default:'scheduled'" json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type Schedule struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	BusID     string    `gorm:"type:uuid;not null" json:"bus_id"`
	RouteID   string    `gorm:"type:uuid;not null;index" json:"route_id"`
	BaseFare  float64   `gorm:"type:numeric(10,2);not null" json:"base_fare"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Stop struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	RouteID   string    `gorm:"type:uuid;not null;index" json:"route_id"`
	Name      string    `gorm:"column:stop_name;type:varchar(120);not null" json:"name"`
	StopOrder int       `gorm:"not null" json:"stop_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
