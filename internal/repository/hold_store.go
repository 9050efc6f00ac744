package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
)

var ErrHoldNotFound = errors.New("hold not found")

// HoldStore keeps seat holds outside the relational store. Implementations
// return holds regardless of expiry; callers filter on read.
type HoldStore interface {
	Put(ctx context.Context, hold *models.SeatHold) error
	Get(ctx context.Context, id string) (*models.SeatHold, error)
	Remove(ctx context.Context, id string) error
	ListByTrip(ctx context.Context, tripID string) ([]models.SeatHold, error)
}

// ExpiredHoldSweeper is implemented by stores that do not expire keys on their own.
type ExpiredHoldSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type memoryHoldStore struct {
	mu     sync.RWMutex
	holds  map[string]models.SeatHold
	byTrip map[string]map[string]struct{}
}

func NewMemoryHoldStore() HoldStore {
	return &memoryHoldStore{
		holds:  make(map[string]models.SeatHold),
		byTrip: make(map[string]map[string]struct{}),
	}
}

func (s *memoryHoldStore) Put(_ context.Context, hold *models.SeatHold) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := *hold
	h.Seats = append([]string(nil), hold.Seats...)
	s.holds[h.ID] = h
	ids, ok := s.byTrip[h.TripID]
	if !ok {
		ids = make(map[string]struct{})
		s.byTrip[h.TripID] = ids
	}
	ids[h.ID] = struct{}{}
	return nil
}

func (s *memoryHoldStore) Get(_ context.Context, id string) (*models.SeatHold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.holds[id]
	if !ok {
		return nil, ErrHoldNotFound
	}
	h.Seats = append([]string(nil), h.Seats...)
	return &h, nil
}

func (s *memoryHoldStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.holds[id]
	if !ok {
		return ErrHoldNotFound
	}
	s.removeLocked(h)
	return nil
}

func (s *memoryHoldStore) ListByTrip(_ context.Context, tripID string) ([]models.SeatHold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SeatHold, 0, len(s.byTrip[tripID]))
	for id := range s.byTrip[tripID] {
		h := s.holds[id]
		h.Seats = append([]string(nil), h.Seats...)
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (s *memoryHoldStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, h := range s.holds {
		if h.Expired(now) {
			s.removeLocked(h)
			n++
		}
	}
	return n, nil
}

func (s *memoryHoldStore) removeLocked(h models.SeatHold) {
	delete(s.holds, h.ID)
	if ids, ok := s.byTrip[h.TripID]; ok {
		delete(ids, h.ID)
		if len(ids) == 0 {
			delete(s.byTrip, h.TripID)
		}
	}
}
