package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/events"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/lock"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// memDB is an in-memory stand-in for Postgres. Every repository fake shares
// it, and every method copies on the way in and out so callers never alias
// stored rows. Transactions are not rolled back; tests only fail before
// the first write.
type memDB struct {
	mu            sync.Mutex
	trips         map[string]models.Trip
	schedules     map[string]models.Schedule
	stops         map[string]models.Stop
	bookings      map[string]models.Booking
	offers        map[string]models.Offer
	cancellations map[string]models.Cancellation
	payments      map[string]models.Payment
	nextSeatID    uint
}

func newMemDB() *memDB {
	return &memDB{
		trips:         map[string]models.Trip{},
		schedules:     map[string]models.Schedule{},
		stops:         map[string]models.Stop{},
		bookings:      map[string]models.Booking{},
		offers:        map[string]models.Offer{},
		cancellations: map[string]models.Cancellation{},
		payments:      map[string]models.Payment{},
	}
}

func (db *memDB) stores() Stores {
	return Stores{
		Tx:            memTx{},
		Trips:         memTrips{db},
		Schedules:     memSchedules{db},
		Stops:         memStops{db},
		Bookings:      memBookings{db},
		Offers:        memOffers{db},
		Cancellations: memCancellations{db},
		Payments:      memPayments{db},
	}
}

type memTx struct{}

func (memTx) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type memTrips struct{ db *memDB }

func (r memTrips) FindByID(_ context.Context, id string) (*models.Trip, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.trips[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r memTrips) FindByIDForUpdate(ctx context.Context, _ *gorm.DB, id string) (*models.Trip, error) {
	return r.FindByID(ctx, id)
}

func (r memTrips) AdjustAvailableSeats(_ context.Context, _ *gorm.DB, id string, delta int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.trips[id]
	if !ok || t.AvailableSeats+delta < 0 || t.AvailableSeats+delta > t.TotalSeats {
		return repository.ErrSeatCounterOutOfRange
	}
	t.AvailableSeats += delta
	r.db.trips[id] = t
	return nil
}

func (r memTrips) ResetAvailableSeats(_ context.Context, _ *gorm.DB, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t := r.db.trips[id]
	t.AvailableSeats = t.TotalSeats
	r.db.trips[id] = t
	return nil
}

func (r memTrips) UpdateStatus(_ context.Context, _ *gorm.DB, id string, status models.TripStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t := r.db.trips[id]
	t.Status = status
	r.db.trips[id] = t
	return nil
}

func (r memTrips) Upsert(_ context.Context, trip *models.Trip) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if existing, ok := r.db.trips[trip.ID]; ok {
		existing.ScheduleID = trip.ScheduleID
		existing.TripDate = trip.TripDate
		existing.DepartureAt = trip.DepartureAt
		existing.ArrivalAt = trip.ArrivalAt
		existing.TotalSeats = trip.TotalSeats
		r.db.trips[trip.ID] = existing
		return nil
	}
	r.db.trips[trip.ID] = *trip
	return nil
}

type memSchedules struct{ db *memDB }

func (r memSchedules) FindByID(_ context.Context, id string) (*models.Schedule, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.schedules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r memSchedules) Upsert(_ context.Context, s *models.Schedule) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.schedules[s.ID] = *s
	return nil
}

type memStops struct{ db *memDB }

func (r memStops) FindByIDs(_ context.Context, ids []string) ([]models.Stop, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.Stop
	seen := map[string]bool{}
	for _, id := range ids {
		if st, ok := r.db.stops[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, st)
		}
	}
	return out, nil
}

func (r memStops) Upsert(_ context.Context, s *models.Stop) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.stops[s.ID] = *s
	return nil
}

type memBookings struct{ db *memDB }

func copyBooking(b models.Booking) models.Booking {
	b.Seats = append([]models.BookedSeat(nil), b.Seats...)
	return b
}

// withRelations mirrors the Preload in the gorm repository. Callers hold mu.
func (r memBookings) withRelations(b models.Booking) *models.Booking {
	b = copyBooking(b)
	if p, ok := r.db.payments[b.ID]; ok {
		b.Payment = &p
	}
	for _, c := range r.db.cancellations {
		if c.BookingID == b.ID {
			c := c
			b.Cancellation = &c
		}
	}
	return &b
}

func (r memBookings) Create(_ context.Context, _ *gorm.DB, b *models.Booking) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, other := range r.db.bookings {
		for _, s := range other.Seats {
			if s.Released || s.TripID != b.TripID {
				continue
			}
			for _, mine := range b.Seats {
				if mine.SeatNumber == s.SeatNumber {
					return gorm.ErrDuplicatedKey
				}
			}
		}
	}
	for i := range b.Seats {
		r.db.nextSeatID++
		b.Seats[i].ID = r.db.nextSeatID
	}
	r.db.bookings[b.ID] = copyBooking(*b)
	return nil
}

func (r memBookings) FindByID(_ context.Context, _ *gorm.DB, id string) (*models.Booking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.withRelations(b), nil
}

func (r memBookings) FindByReference(_ context.Context, ref string) (*models.Booking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, b := range r.db.bookings {
		if b.Reference == ref {
			return r.withRelations(b), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memBookings) ListByUser(_ context.Context, userID string, offset, limit int) ([]models.Booking, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []models.Booking
	for _, b := range r.db.bookings {
		if b.UserID == userID {
			all = append(all, copyBooking(b))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].BookedAt.After(all[j].BookedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return []models.Booking{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r memBookings) ListConfirmedByTrip(_ context.Context, _ *gorm.DB, tripID string) ([]models.Booking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.Booking
	for _, b := range r.db.bookings {
		if b.TripID == tripID && b.Status == models.BookingConfirmed {
			out = append(out, copyBooking(b))
		}
	}
	return out, nil
}

func (r memBookings) ConfirmedSeatNumbers(_ context.Context, _ *gorm.DB, tripID string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []string
	for _, b := range r.db.bookings {
		if b.TripID != tripID || b.Status != models.BookingConfirmed {
			continue
		}
		for _, s := range b.Seats {
			if !s.Released {
				out = append(out, s.SeatNumber)
			}
		}
	}
	return out, nil
}

func (r memBookings) ReferenceExists(_ context.Context, _ *gorm.DB, ref string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, b := range r.db.bookings {
		if b.Reference == ref {
			return true, nil
		}
	}
	return false, nil
}

func (r memBookings) TransitionStatus(_ context.Context, _ *gorm.DB, id string, from, to models.BookingStatus) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	r.db.bookings[id] = b
	return true, nil
}

func (r memBookings) ReleaseSeats(_ context.Context, _ *gorm.DB, bookingID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b := copyBooking(r.db.bookings[bookingID])
	for i := range b.Seats {
		b.Seats[i].Released = true
	}
	r.db.bookings[bookingID] = b
	return nil
}

func (r memBookings) UpdateStops(_ context.Context, _ *gorm.DB, bookingID string, boarding, dropping *string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b := copyBooking(r.db.bookings[bookingID])
	for i := range b.Seats {
		if boarding != nil {
			b.Seats[i].BoardingStopID = *boarding
		}
		if dropping != nil {
			b.Seats[i].DroppingStopID = *dropping
		}
	}
	r.db.bookings[bookingID] = b
	return nil
}

type memOffers struct{ db *memDB }

func (r memOffers) FindByCode(_ context.Context, _ *gorm.DB, code string) (*models.Offer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, o := range r.db.offers {
		if o.Code == code {
			return &o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memOffers) ListActive(_ context.Context, now time.Time) ([]models.Offer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.Offer
	for _, o := range r.db.offers {
		if o.IsActive && !o.ValidFrom.After(now) && !o.ValidTo.Before(now) && o.TimesUsed < o.UsageLimit {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r memOffers) Redeem(_ context.Context, _ *gorm.DB, id string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.offers[id]
	if !ok || o.TimesUsed >= o.UsageLimit {
		return false, nil
	}
	o.TimesUsed++
	r.db.offers[id] = o
	return true, nil
}

func (r memOffers) Upsert(_ context.Context, offer *models.Offer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	offer.Code = strings.ToUpper(strings.TrimSpace(offer.Code))
	if existing, ok := r.db.offers[offer.ID]; ok {
		offer.TimesUsed = existing.TimesUsed
	}
	r.db.offers[offer.ID] = *offer
	return nil
}

type memCancellations struct{ db *memDB }

func (r memCancellations) Create(_ context.Context, _ *gorm.DB, c *models.Cancellation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, other := range r.db.cancellations {
		if other.BookingID == c.BookingID {
			return gorm.ErrDuplicatedKey
		}
	}
	r.db.cancellations[c.ID] = *c
	return nil
}

func (r memCancellations) FindByID(_ context.Context, id string) (*models.Cancellation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.cancellations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r memCancellations) FindByBookingID(_ context.Context, _ *gorm.DB, bookingID string) (*models.Cancellation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.cancellations {
		if c.BookingID == bookingID {
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memCancellations) MarkRefundRequested(_ context.Context, id string, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := r.db.cancellations[id]
	c.RefundRequestedAt = &at
	r.db.cancellations[id] = c
	return nil
}

func (r memCancellations) TransitionRefund(_ context.Context, id string, from, to models.RefundStatus, at time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.cancellations[id]
	if !ok || c.RefundStatus != from {
		return false, nil
	}
	c.RefundStatus = to
	c.RefundProcessedAt = &at
	r.db.cancellations[id] = c
	return true, nil
}

type memPayments struct{ db *memDB }

func (r memPayments) Create(_ context.Context, _ *gorm.DB, p *models.Payment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.payments[p.BookingID]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.db.payments[p.BookingID] = *p
	return nil
}

func (r memPayments) FindByBookingID(_ context.Context, _ *gorm.DB, bookingID string) (*models.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[bookingID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r memPayments) TransitionStatus(_ context.Context, _ *gorm.DB, id string, from, to models.PaymentStatus) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for k, p := range r.db.payments {
		if p.ID == id && p.Status == from {
			p.Status = to
			r.db.payments[k] = p
			return true, nil
		}
	}
	return false, nil
}

// testClock is a settable clock shared by every component of a fixture.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingPublisher captures emitted routing keys.
type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

// lockCheckingPublisher records events published while the trip lock was
// still taken.
type lockCheckingPublisher struct {
	locker lock.Locker
	tripID string

	mu      sync.Mutex
	keys    []string
	blocked []string
}

func (p *lockCheckingPublisher) Publish(ctx context.Context, key string, _ any) error {
	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	unlock, err := p.locker.Lock(ctx, p.tripID)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	if err != nil {
		p.blocked = append(p.blocked, key)
		return nil
	}
	unlock()
	return nil
}

var fixtureStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

const (
	alice = "user-alice"
	bob   = "user-bob"
)

type fixture struct {
	db    *memDB
	clock *testClock
	pub   *recordingPublisher

	holdStore     repository.HoldStore
	holds         HoldManager
	bookings      BookingService
	cancellations CancellationService
	payments      PaymentService
	trips         TripService
	offers        OfferValidator
	catalog       CatalogService

	tripID     string
	scheduleID string
	routeID    string
	boardingID string
	droppingID string
}

// newFixture seeds one scheduled 40-seat trip departing in 72 hours at
// 500 per seat, with two stops on its route.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		db:         newMemDB(),
		clock:      &testClock{now: fixtureStart},
		pub:        &recordingPublisher{},
		tripID:     uuid.NewString(),
		scheduleID: uuid.NewString(),
		routeID:    uuid.NewString(),
		boardingID: uuid.NewString(),
		droppingID: uuid.NewString(),
	}

	f.db.schedules[f.scheduleID] = models.Schedule{ID: f.scheduleID, BusID: uuid.NewString(), RouteID: f.routeID, BaseFare: 500}
	f.db.stops[f.boardingID] = models.Stop{ID: f.boardingID, RouteID: f.routeID, Name: "Central Station", StopOrder: 1}
	f.db.stops[f.droppingID] = models.Stop{ID: f.droppingID, RouteID: f.routeID, Name: "Harbour Terminal", StopOrder: 2}
	f.db.trips[f.tripID] = models.Trip{
		ID:             f.tripID,
		ScheduleID:     f.scheduleID,
		TripDate:       fixtureStart.Add(72 * time.Hour).Truncate(24 * time.Hour),
		DepartureAt:    fixtureStart.Add(72 * time.Hour),
		ArrivalAt:      fixtureStart.Add(80 * time.Hour),
		TotalSeats:     40,
		AvailableSeats: 40,
		Status:         models.TripScheduled,
	}

	log := zap.NewNop()
	stores := f.db.stores()
	locker := lock.NewLocalLocker()
	emitter := events.NewEmitter(f.pub, log)
	clock := WithClock(f.clock.Now)

	f.holdStore = repository.NewMemoryHoldStore()
	f.holds = NewHoldManager(f.holdStore, stores.Trips, stores.Bookings, locker, emitter, log, clock)
	f.cancellations = NewCancellationService(stores, locker, emitter, log, clock)
	f.bookings = NewBookingService(stores, locker, f.holds, f.cancellations, emitter, log, clock)
	f.payments = NewPaymentService(stores, locker, emitter, log, clock)
	f.trips = NewTripService(stores, f.holds, locker, emitter, log, clock)
	f.offers = NewOfferValidator(stores.Offers, clock)
	f.catalog = NewCatalogService(stores, log)
	return f
}

func (f *fixture) addOffer(code string, mutate func(o *models.Offer)) *models.Offer {
	o := models.Offer{
		ID:            uuid.NewString(),
		Code:          code,
		DiscountType:  models.DiscountPercentage,
		DiscountValue: 10,
		MaxDiscount:   100,
		ValidFrom:     fixtureStart.Add(-24 * time.Hour),
		ValidTo:       fixtureStart.Add(30 * 24 * time.Hour),
		UsageLimit:    100,
		IsActive:      true,
	}
	if mutate != nil {
		mutate(&o)
	}
	f.db.mu.Lock()
	f.db.offers[o.ID] = o
	f.db.mu.Unlock()
	return &o
}

func (f *fixture) bookingInput(userID string, seats ...string) CreateBookingInput {
	passengers := make([]models.Passenger, len(seats))
	for i, s := range seats {
		passengers[i] = models.Passenger{Name: "Passenger " + s, Age: 30, Gender: "female", SeatNumber: s}
	}
	return CreateBookingInput{
		UserID:         userID,
		TripID:         f.tripID,
		Seats:          seats,
		Passengers:     passengers,
		BoardingStopID: f.boardingID,
		DroppingStopID: f.droppingID,
	}
}

func (f *fixture) book(t *testing.T, userID string, seats ...string) *models.Booking {
	t.Helper()
	b, err := f.bookings.CreateBooking(context.Background(), f.bookingInput(userID, seats...))
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func (f *fixture) trip(t *testing.T) models.Trip {
	t.Helper()
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.trips[f.tripID]
}

func (f *fixture) offer(id string) models.Offer {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.offers[id]
}
