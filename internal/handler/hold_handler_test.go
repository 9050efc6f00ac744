package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockHoldManager struct {
	createFn  func(ctx context.Context, userID, tripID string, seats []string) (*models.SeatHold, error)
	getFn     func(ctx context.Context, holdID string) (*models.SeatHold, error)
	releaseFn func(ctx context.Context, holdID string) error
}

func (m *mockHoldManager) CreateHold(ctx context.Context, userID, tripID string, seats []string) (*models.SeatHold, error) {
	return m.createFn(ctx, userID, tripID, seats)
}
func (m *mockHoldManager) GetHold(ctx context.Context, holdID string) (*models.SeatHold, error) {
	return m.getFn(ctx, holdID)
}
func (m *mockHoldManager) ReleaseHold(ctx context.Context, holdID string) error {
	return m.releaseFn(ctx, holdID)
}
func (m *mockHoldManager) HeldSeats(ctx context.Context, tripID string) ([]string, error) {
	return nil, nil
}

func heldBy(user string) *models.SeatHold {
	return &models.SeatHold{
		ID:        "A1B2C3D4E5F6",
		TripID:    testTripID,
		UserID:    user,
		Seats:     []string{"A1", "A2"},
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
}

func TestCreateHold_Handler_Success(t *testing.T) {
	svc := &mockHoldManager{
		createFn: func(ctx context.Context, userID, tripID string, seats []string) (*models.SeatHold, error) {
			assert.Equal(t, testUser, userID)
			assert.Equal(t, []string{"A1", "A2"}, seats)
			return heldBy(userID), nil
		},
	}
	c, rec := newContext(http.MethodPost, "/api/v1/holds", `{"trip_id":"`+testTripID+`","seats":["A1","A2"]}`)

	err := NewHoldHandler(svc).CreateHold(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hold_id":"A1B2C3D4E5F6"`)
}

func TestCreateHold_Handler_SeatsTaken(t *testing.T) {
	svc := &mockHoldManager{
		createFn: func(ctx context.Context, userID, tripID string, seats []string) (*models.SeatHold, error) {
			return nil, &service.Error{Kind: service.ErrConflict, Message: "seats already held: A1", Details: []string{"A1"}}
		},
	}
	c, _ := newContext(http.MethodPost, "/api/v1/holds", `{"trip_id":"`+testTripID+`","seats":["A1"]}`)

	err := NewHoldHandler(svc).CreateHold(c)

	assert.Equal(t, http.StatusConflict, httpCode(t, err))
}

func TestCreateHold_Handler_NoSeats(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/api/v1/holds", `{"trip_id":"`+testTripID+`","seats":[]}`)

	err := NewHoldHandler(&mockHoldManager{}).CreateHold(c)

	assert.Equal(t, http.StatusBadRequest, httpCode(t, err))
}

func TestGetHold_Handler_OtherUsersHoldIsHidden(t *testing.T) {
	svc := &mockHoldManager{
		getFn: func(ctx context.Context, holdID string) (*models.SeatHold, error) {
			return heldBy("someone-else"), nil
		},
	}
	c, _ := newContext(http.MethodGet, "/api/v1/holds/A1B2C3D4E5F6", "")
	c.SetParamNames("id")
	c.SetParamValues("A1B2C3D4E5F6")

	err := NewHoldHandler(svc).GetHold(c)

	assert.Equal(t, http.StatusNotFound, httpCode(t, err))
}

func TestGetHold_Handler_Expired(t *testing.T) {
	svc := &mockHoldManager{
		getFn: func(ctx context.Context, holdID string) (*models.SeatHold, error) {
			return nil, service.ErrHoldNotFound
		},
	}
	c, _ := newContext(http.MethodGet, "/api/v1/holds/A1B2C3D4E5F6", "")
	c.SetParamNames("id")
	c.SetParamValues("A1B2C3D4E5F6")

	err := NewHoldHandler(svc).GetHold(c)

	assert.Equal(t, http.StatusNotFound, httpCode(t, err))
}

func TestReleaseHold_Handler(t *testing.T) {
	var released string
	svc := &mockHoldManager{
		getFn: func(ctx context.Context, holdID string) (*models.SeatHold, error) {
			return heldBy(testUser), nil
		},
		releaseFn: func(ctx context.Context, holdID string) error {
			released = holdID
			return nil
		},
	}
	c, rec := newContext(http.MethodDelete, "/api/v1/holds/A1B2C3D4E5F6", "")
	c.SetParamNames("id")
	c.SetParamValues("A1B2C3D4E5F6")

	err := NewHoldHandler(svc).ReleaseHold(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A1B2C3D4E5F6", released)
}
