package repository

import (
	"context"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"gorm.io/gorm"
)

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error)
	FindByReference(ctx context.Context, ref string) (*models.Booking, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]models.Booking, int64, error)
	ListConfirmedByTrip(ctx context.Context, tx *gorm.DB, tripID string) ([]models.Booking, error)
	ConfirmedSeatNumbers(ctx context.Context, tx *gorm.DB, tripID string) ([]string, error)
	ReferenceExists(ctx context.Context, tx *gorm.DB, ref string) (bool, error)
	TransitionStatus(ctx context.Context, tx *gorm.DB, id string, from, to models.BookingStatus) (bool, error)
	ReleaseSeats(ctx context.Context, tx *gorm.DB, bookingID string) error
	UpdateStops(ctx context.Context, tx *gorm.DB, bookingID string, boardingStopID, droppingStopID *string) error
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

// Create inserts the booking and its seat rows.
func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error) {
	var booking models.Booking
	err := conn(r.db, tx).WithContext(ctx).
		Preload("Seats", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Payment").
		Preload("Cancellation").
		Where("id = ?", id).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByReference(ctx context.Context, ref string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Seats", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Payment").
		Preload("Cancellation").
		Where("booking_reference = ?", ref).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]models.Booking, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&models.Booking{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Preload("Seats", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", userID).
		Order("booked_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (r *bookingRepository) ListConfirmedByTrip(ctx context.Context, tx *gorm.DB, tripID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := conn(r.db, tx).WithContext(ctx).
		Where("trip_id = ? AND status = ?", tripID, models.BookingConfirmed).
		Order("booked_at ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// ConfirmedSeatNumbers lists every seat held by a confirmed booking on the trip.
func (r *bookingRepository) ConfirmedSeatNumbers(ctx context.Context, tx *gorm.DB, tripID string) ([]string, error) {
	var seats []string
	err := conn(r.db, tx).WithContext(ctx).
		Model(&models.BookedSeat{}).
		Joins("JOIN bookings ON bookings.id = booked_seats.booking_id").
		Where("bookings.trip_id = ? AND bookings.status = ?", tripID, models.BookingConfirmed).
		Pluck("booked_seats.seat_number", &seats).Error
	if err != nil {
		return nil, err
	}
	return seats, nil
}

func (r *bookingRepository) ReferenceExists(ctx context.Context, tx *gorm.DB, ref string) (bool, error) {
	var count int64
	err := conn(r.db, tx).WithContext(ctx).
		Model(&models.Booking{}).
		Where("booking_reference = ?", ref).
		Count(&count).Error
	return count > 0, err
}

// TransitionStatus moves a booking from one status to another and reports
// whether the row was still in the expected status.
func (r *bookingRepository) TransitionStatus(ctx context.Context, tx *gorm.DB, id string, from, to models.BookingStatus) (bool, error) {
	res := conn(r.db, tx).WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (r *bookingRepository) ReleaseSeats(ctx context.Context, tx *gorm.DB, bookingID string) error {
	return conn(r.db, tx).WithContext(ctx).
		Model(&models.BookedSeat{}).
		Where("booking_id = ?", bookingID).
		UpdateColumn("released", true).Error
}

func (r *bookingRepository) UpdateStops(ctx context.Context, tx *gorm.DB, bookingID string, boardingStopID, droppingStopID *string) error {
	updates := map[string]any{}
	if boardingStopID != nil {
		updates["boarding_stop_id"] = *boardingStopID
	}
	if droppingStopID != nil {
		updates["dropping_stop_id"] = *droppingStopID
	}
	if len(updates) == 0 {
		return nil
	}
	return conn(r.db, tx).WithContext(ctx).
		Model(&models.BookedSeat{}).
		Where("booking_id = ?", bookingID).
		UpdateColumns(updates).Error
}
