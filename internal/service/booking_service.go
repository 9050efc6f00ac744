package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/events"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/lock"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50

	referenceAttempts = 5
)

type CreateBookingInput struct {
	UserID         string
	TripID         string
	Seats          []string
	Passengers     []models.Passenger
	BoardingStopID string
	DroppingStopID string
	OfferCode      string
	HoldID         string
}

type ModifyBookingInput struct {
	BoardingStopID *string
	DroppingStopID *string
}

type BookingPage struct {
	Items      []models.Booking `json:"items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	Total      int64            `json:"total"`
	TotalPages int              `json:"total_pages"`
}

type BookingService interface {
	CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error)
	GetBooking(ctx context.Context, userID, id string) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, userID, ref string) (*models.Booking, error)
	ListBookings(ctx context.Context, userID string, page, pageSize int) (*BookingPage, error)
	ModifyBooking(ctx context.Context, userID, id string, in ModifyBookingInput) (*models.Booking, error)
	CancelBooking(ctx context.Context, userID, id string) (*models.Cancellation, error)
	RenderTicket(ctx context.Context, userID, id string) (string, error)
}

type bookingService struct {
	stores        Stores
	locker        lock.Locker
	holds         HoldManager
	cancellations CancellationService
	emitter       *events.Emitter
	log           *zap.Logger
	now           func() time.Time
}

func NewBookingService(
	stores Stores,
	locker lock.Locker,
	holds HoldManager,
	cancellations CancellationService,
	emitter *events.Emitter,
	log *zap.Logger,
	opts ...Option,
) BookingService {
	o := buildOptions(opts)
	return &bookingService{
		stores:        stores,
		locker:        locker,
		holds:         holds,
		cancellations: cancellations,
		emitter:       emitter,
		log:           log.Named("bookings"),
		now:           o.now,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	booking, err := s.createLocked(ctx, in)
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, events.BookingCreated, bookingEvent(booking, s.now()))
	if in.HoldID != "" {
		s.consumeHold(ctx, in.HoldID, booking)
	}
	return booking, nil
}

// createLocked runs the availability check and every write under the trip
// lock and inside one transaction that also holds the trip row lock.
func (s *bookingService) createLocked(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	unlock, err := s.locker.Lock(ctx, in.TripID)
	if err != nil {
		return nil, fmt.Errorf("lock trip %s: %w", in.TripID, err)
	}
	defer unlock()

	var result *models.Booking
	err = s.stores.Tx.Transaction(ctx, func(tx *gorm.DB) error {
		// 1. Lock the trip row
		trip, err := s.stores.Trips.FindByIDForUpdate(ctx, tx, in.TripID)
		if err != nil {
			return lookupErr(err, ErrTripNotFound, "load trip")
		}

		// 2. Only scheduled trips take bookings
		if trip.Status != models.TripScheduled {
			return ErrTripNotBookable
		}

		// 3. One passenger per seat
		seats, err := matchPassengers(in.Seats, in.Passengers)
		if err != nil {
			return err
		}

		// 4. Seats must not be on a confirmed booking
		confirmed, err := s.stores.Bookings.ConfirmedSeatNumbers(ctx, tx, trip.ID)
		if err != nil {
			return fmt.Errorf("load confirmed seats: %w", err)
		}
		if taken := intersect(seats, confirmed); len(taken) > 0 {
			return seatConflict("seats already booked", taken)
		}
		if len(seats) > trip.AvailableSeats {
			return ErrNotEnoughSeats
		}

		// 5. Stops exist on the trip's route
		schedule, err := s.stores.Schedules.FindByID(ctx, trip.ScheduleID)
		if err != nil {
			return fmt.Errorf("load schedule %s for trip %s: %w", trip.ScheduleID, trip.ID, err)
		}
		if err := s.checkStops(ctx, schedule.RouteID, in.BoardingStopID, in.DroppingStopID); err != nil {
			return err
		}

		// 6. Price, then redeem the offer in the same unit of work
		now := s.now()
		fare := QuoteFare(schedule, len(seats))
		appliedCode, fare, err := s.applyOffer(ctx, tx, in.OfferCode, fare, now)
		if err != nil {
			return err
		}

		ref, err := s.uniqueReference(ctx, tx, now)
		if err != nil {
			return err
		}

		manifest, err := json.Marshal(in.Passengers)
		if err != nil {
			return fmt.Errorf("marshal passengers: %w", err)
		}

		booking := &models.Booking{
			ID:         uuid.NewString(),
			UserID:     in.UserID,
			TripID:     trip.ID,
			Reference:  ref,
			SeatCount:  len(seats),
			BaseFare:   fare.BaseFare,
			Tax:        fare.Tax,
			Service:    fare.ServiceCharge,
			Discount:   fare.Discount,
			OfferCode:  appliedCode,
			TotalFare:  fare.FinalAmount,
			Status:     models.BookingConfirmed,
			Passengers: string(manifest),
			BookedAt:   now,
		}
		for _, p := range in.Passengers {
			booking.Seats = append(booking.Seats, models.BookedSeat{
				BookingID:       booking.ID,
				TripID:          trip.ID,
				SeatNumber:      strings.TrimSpace(p.SeatNumber),
				PassengerName:   p.Name,
				PassengerAge:    p.Age,
				PassengerGender: p.Gender,
				BoardingStopID:  in.BoardingStopID,
				DroppingStopID:  in.DroppingStopID,
			})
		}

		// 7. Persist booking + seats and take the seats off the counter
		if err := s.stores.Bookings.Create(ctx, tx, booking); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newError(ErrConflict, "seats were taken by a concurrent booking, please retry")
			}
			return fmt.Errorf("create booking: %w", err)
		}
		if err := s.stores.Trips.AdjustAvailableSeats(ctx, tx, trip.ID, -len(seats)); err != nil {
			if errors.Is(err, repository.ErrSeatCounterOutOfRange) {
				return ErrNotEnoughSeats
			}
			return fmt.Errorf("decrement available seats: %w", err)
		}

		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking created",
		zap.String("booking_id", result.ID),
		zap.String("reference", result.Reference),
		zap.String("trip_id", result.TripID),
		zap.Int("seats", result.SeatCount),
		zap.Float64("total_fare", result.TotalFare),
	)
	return result, nil
}

// applyOffer is best-effort: an unknown, ineligible or concurrently exhausted
// offer leaves the fare undiscounted and the booking proceeds.
func (s *bookingService) applyOffer(ctx context.Context, tx *gorm.DB, code string, fare FareBreakdown, now time.Time) (*string, FareBreakdown, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fare, nil
	}

	offer, err := s.stores.Offers.FindByCode(ctx, tx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Info("offer ignored", zap.String("code", code), zap.String("reason", "invalid offer code"))
		return nil, fare, nil
	}
	if err != nil {
		return nil, fare, fmt.Errorf("load offer: %w", err)
	}

	res := EvaluateOffer(offer, fare.TotalBeforeDiscount, now)
	if !res.Valid {
		s.log.Info("offer ignored", zap.String("code", code), zap.String("reason", res.Reason))
		return nil, fare, nil
	}

	redeemed, err := s.stores.Offers.Redeem(ctx, tx, offer.ID)
	if err != nil {
		return nil, fare, fmt.Errorf("redeem offer: %w", err)
	}
	if !redeemed {
		s.log.Info("offer ignored", zap.String("code", code), zap.String("reason", "usage limit reached concurrently"))
		return nil, fare, nil
	}

	applied := offer.Code
	return &applied, fare.WithDiscount(res.Discount), nil
}

func (s *bookingService) checkStops(ctx context.Context, routeID, boardingID, droppingID string) error {
	if !isUUID(boardingID) || !isUUID(droppingID) {
		return ErrInvalidStops
	}
	stops, err := s.stores.Stops.FindByIDs(ctx, []string{boardingID, droppingID})
	if err != nil {
		return fmt.Errorf("load stops: %w", err)
	}
	found := make(map[string]bool, len(stops))
	for _, st := range stops {
		if st.RouteID == routeID {
			found[st.ID] = true
		}
	}
	if !found[boardingID] || !found[droppingID] {
		return ErrInvalidStops
	}
	return nil
}

func (s *bookingService) uniqueReference(ctx context.Context, tx *gorm.DB, now time.Time) (string, error) {
	for i := 0; i < referenceAttempts; i++ {
		ref := newBookingReference(now)
		exists, err := s.stores.Bookings.ReferenceExists(ctx, tx, ref)
		if err != nil {
			return "", fmt.Errorf("check booking reference: %w", err)
		}
		if !exists {
			return ref, nil
		}
	}
	return "", errors.New("could not generate a unique booking reference")
}

// consumeHold drops the caller's checkout hold once all of its seats are
// booked. Holds owned by someone else, or covering seats this booking did
// not take, are left alone.
func (s *bookingService) consumeHold(ctx context.Context, holdID string, booking *models.Booking) {
	hold, err := s.holds.GetHold(ctx, holdID)
	if err != nil || hold.TripID != booking.TripID || hold.UserID != booking.UserID {
		return
	}
	if len(intersect(hold.Seats, booking.SeatNumbers())) != len(hold.Seats) {
		s.log.Debug("hold kept, booking does not cover its seats", zap.String("hold_id", holdID))
		return
	}
	if err := s.holds.ReleaseHold(ctx, holdID); err != nil && !errors.Is(err, ErrNotFound) {
		s.log.Warn("failed to release hold after booking", zap.String("hold_id", holdID), zap.Error(err))
	}
}

func (s *bookingService) GetBooking(ctx context.Context, userID, id string) (*models.Booking, error) {
	booking, err := s.stores.Bookings.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupErr(err, ErrBookingNotFound, "load booking")
	}
	if booking.UserID != userID {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

func (s *bookingService) GetBookingByReference(ctx context.Context, userID, ref string) (*models.Booking, error) {
	booking, err := s.stores.Bookings.FindByReference(ctx, strings.ToUpper(strings.TrimSpace(ref)))
	if err != nil {
		return nil, lookupErr(err, ErrBookingNotFound, "load booking")
	}
	if booking.UserID != userID {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

func (s *bookingService) ListBookings(ctx context.Context, userID string, page, pageSize int) (*BookingPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	items, total, err := s.stores.Bookings.ListByUser(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return &BookingPage{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

func (s *bookingService) ModifyBooking(ctx context.Context, userID, id string, in ModifyBookingInput) (*models.Booking, error) {
	if in.BoardingStopID == nil && in.DroppingStopID == nil {
		return nil, validation("nothing to modify")
	}

	booking, err := s.GetBooking(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	err = withTripLock(ctx, s.locker, booking.TripID, func() error {
		return s.stores.Tx.Transaction(ctx, func(tx *gorm.DB) error {
			current, err := s.stores.Bookings.FindByID(ctx, tx, id)
			if err != nil {
				return lookupErr(err, ErrBookingNotFound, "load booking")
			}
			switch current.Status {
			case models.BookingCancelled:
				return invalidState("cannot modify a cancelled booking")
			case models.BookingCompleted:
				return invalidState("cannot modify a completed booking")
			}

			trip, err := s.stores.Trips.FindByID(ctx, current.TripID)
			if err != nil {
				return lookupErr(err, ErrTripNotFound, "load trip")
			}
			if !trip.DepartureAt.After(s.now()) {
				return ErrModifyAfterDepart
			}

			schedule, err := s.stores.Schedules.FindByID(ctx, trip.ScheduleID)
			if err != nil {
				return fmt.Errorf("load schedule %s: %w", trip.ScheduleID, err)
			}
			boarding, dropping := currentStops(current)
			if in.BoardingStopID != nil {
				boarding = *in.BoardingStopID
			}
			if in.DroppingStopID != nil {
				dropping = *in.DroppingStopID
			}
			if err := s.checkStops(ctx, schedule.RouteID, boarding, dropping); err != nil {
				return err
			}

			return s.stores.Bookings.UpdateStops(ctx, tx, id, in.BoardingStopID, in.DroppingStopID)
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.stores.Bookings.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupErr(err, ErrBookingNotFound, "reload booking")
	}
	s.log.Info("booking modified", zap.String("booking_id", id))
	s.emitter.Emit(ctx, events.BookingModified, bookingEvent(updated, s.now()))
	return updated, nil
}

// CancelBooking is the customer-facing cancel: it records the cancellation
// and refund exactly like an explicit cancellation request.
func (s *bookingService) CancelBooking(ctx context.Context, userID, id string) (*models.Cancellation, error) {
	return s.cancellations.RequestCancellation(ctx, userID, id, DefaultCancellationReason)
}

func (s *bookingService) RenderTicket(ctx context.Context, userID, id string) (string, error) {
	booking, err := s.GetBooking(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if booking.Status != models.BookingConfirmed {
		return "", invalidState("ticket is only available for confirmed bookings")
	}

	trip, err := s.stores.Trips.FindByID(ctx, booking.TripID)
	if err != nil {
		return "", lookupErr(err, ErrTripNotFound, "load trip")
	}

	var stopIDs []string
	for _, seat := range booking.Seats {
		stopIDs = append(stopIDs, seat.BoardingStopID, seat.DroppingStopID)
	}
	stops, err := s.stores.Stops.FindByIDs(ctx, stopIDs)
	if err != nil {
		return "", fmt.Errorf("load stops: %w", err)
	}
	names := make(map[string]string, len(stops))
	for _, st := range stops {
		names[st.ID] = st.Name
	}

	return renderTicket(booking, trip, names), nil
}

func renderTicket(b *models.Booking, trip *models.Trip, stopNames map[string]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "BUS E-TICKET\n")
	fmt.Fprintf(&sb, "Reference:  %s\n", b.Reference)
	fmt.Fprintf(&sb, "Status:     %s\n", b.Status)
	fmt.Fprintf(&sb, "Trip:       %s\n", trip.ID)
	fmt.Fprintf(&sb, "Departure:  %s\n", trip.DepartureAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "Arrival:    %s\n", trip.ArrivalAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "\nPassengers\n")
	for _, seat := range b.Seats {
		fmt.Fprintf(&sb, "  %-5s %s (%d, %s)  %s -> %s\n",
			seat.SeatNumber, seat.PassengerName, seat.PassengerAge, seat.PassengerGender,
			stopName(stopNames, seat.BoardingStopID), stopName(stopNames, seat.DroppingStopID))
	}
	fmt.Fprintf(&sb, "\nBase fare:      %10.2f\n", b.BaseFare)
	fmt.Fprintf(&sb, "Tax:            %10.2f\n", b.Tax)
	fmt.Fprintf(&sb, "Service charge: %10.2f\n", b.Service)
	if b.Discount > 0 {
		fmt.Fprintf(&sb, "Discount:       %10.2f\n", -b.Discount)
	}
	fmt.Fprintf(&sb, "Total:          %10.2f\n", b.TotalFare)
	return sb.String()
}

func stopName(names map[string]string, id string) string {
	if n, ok := names[id]; ok {
		return n
	}
	return id
}

// matchPassengers checks the seat list against the passenger manifest.
func matchPassengers(seats []string, passengers []models.Passenger) ([]string, error) {
	if len(seats) != len(passengers) {
		return nil, ErrSeatPassengerMismatch
	}
	seats, err := normalizeSeats(seats)
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(seats))
	for _, s := range seats {
		want[s] = true
	}
	for _, p := range passengers {
		seat := strings.TrimSpace(p.SeatNumber)
		if !want[seat] {
			return nil, validation("passenger seat %q does not match the requested seats", p.SeatNumber)
		}
		delete(want, seat)
	}
	return seats, nil
}

func intersect(requested, taken []string) []string {
	set := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range requested {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func currentStops(b *models.Booking) (boarding, dropping string) {
	if len(b.Seats) == 0 {
		return "", ""
	}
	return b.Seats[0].BoardingStopID, b.Seats[0].DroppingStopID
}

func bookingEvent(b *models.Booking, at time.Time) events.BookingEvent {
	return events.BookingEvent{
		BookingID:  b.ID,
		Reference:  b.Reference,
		UserID:     b.UserID,
		TripID:     b.TripID,
		Seats:      b.SeatNumbers(),
		TotalFare:  b.TotalFare,
		Status:     string(b.Status),
		OccurredAt: at,
	}
}
