package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	holdKeyPrefix = "hold:"
	tripHoldsFmt  = "trip:%s:holds"
)

// redisHoldStore lets several service instances share holds. Each hold is a
// JSON value that redis expires at the hold's expiry; a per-trip set indexes
// hold ids and is pruned lazily when members have expired.
type redisHoldStore struct {
	client redis.UniversalClient
}

func NewRedisHoldStore(client redis.UniversalClient) HoldStore {
	return &redisHoldStore{client: client}
}

func holdKey(id string) string { return holdKeyPrefix + id }

func tripHoldsKey(tripID string) string { return fmt.Sprintf(tripHoldsFmt, tripID) }

func (s *redisHoldStore) Put(ctx context.Context, hold *models.SeatHold) error {
	body, err := json.Marshal(hold)
	if err != nil {
		return fmt.Errorf("marshal hold: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetArgs(ctx, holdKey(hold.ID), body, redis.SetArgs{ExpireAt: hold.ExpiresAt})
		pipe.SAdd(ctx, tripHoldsKey(hold.TripID), hold.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store hold %s: %w", hold.ID, err)
	}
	return nil
}

func (s *redisHoldStore) Get(ctx context.Context, id string) (*models.SeatHold, error) {
	body, err := s.client.Get(ctx, holdKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get hold %s: %w", id, err)
	}

	var hold models.SeatHold
	if err := json.Unmarshal(body, &hold); err != nil {
		return nil, fmt.Errorf("unmarshal hold %s: %w", id, err)
	}
	return &hold, nil
}

func (s *redisHoldStore) Remove(ctx context.Context, id string) error {
	hold, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	var del *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, holdKey(id))
		pipe.SRem(ctx, tripHoldsKey(hold.TripID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove hold %s: %w", id, err)
	}
	if del.Val() == 0 {
		return ErrHoldNotFound
	}
	return nil
}

func (s *redisHoldStore) ListByTrip(ctx context.Context, tripID string) ([]models.SeatHold, error) {
	setKey := tripHoldsKey(tripID)
	ids, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list holds for trip %s: %w", tripID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = holdKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load holds for trip %s: %w", tripID, err)
	}

	holds := make([]models.SeatHold, 0, len(values))
	var stale []any
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var hold models.SeatHold
		if err := json.Unmarshal([]byte(str), &hold); err != nil {
			return nil, fmt.Errorf("unmarshal hold %s: %w", ids[i], err)
		}
		holds = append(holds, hold)
	}
	if len(stale) > 0 {
		s.client.SRem(ctx, setKey, stale...)
	}
	return holds, nil
}
