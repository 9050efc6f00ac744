package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/service"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Routing keys published by the operator service.
const (
	KeyTripUpserted     = "trip.upserted"
	KeyTripCancelled    = "trip.cancelled"
	KeyScheduleUpserted = "schedule.upserted"
	KeyStopUpserted     = "stop.upserted"
	KeyOfferUpserted    = "offer.upserted"
)

var Bindings = []string{KeyTripUpserted, KeyTripCancelled, KeyScheduleUpserted, KeyStopUpserted, KeyOfferUpserted}

const handleTimeout = 10 * time.Second

type TripCanceller interface {
	CancelTrip(ctx context.Context, tripID string) (*models.Trip, error)
}

// errMalformed marks deliveries that will never succeed on redelivery.
var errMalformed = errors.New("malformed message")

type CatalogConsumer struct {
	catalog service.CatalogService
	trips   TripCanceller
	log     *zap.Logger
}

func NewCatalogConsumer(catalog service.CatalogService, trips TripCanceller, log *zap.Logger) *CatalogConsumer {
	return &CatalogConsumer{catalog: catalog, trips: trips, log: log.Named("catalog-sync")}
}

// Start applies deliveries until msgs is closed. done is closed afterwards.
func (cc *CatalogConsumer) Start(msgs <-chan amqp.Delivery) (done <-chan struct{}) {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		for msg := range msgs {
			cc.handleMessage(msg)
		}
		cc.log.Info("delivery channel closed, stopping consumer")
	}()
	return ch
}

func (cc *CatalogConsumer) handleMessage(msg amqp.Delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	log := cc.log.With(zap.String("routing_key", msg.RoutingKey), zap.String("message_id", msg.MessageId))

	err := cc.apply(ctx, msg.RoutingKey, msg.Body)
	switch {
	case err == nil:
		log.Debug("catalog change applied")
		_ = msg.Ack(false)
	case permanent(err):
		log.Warn("dropping catalog message", zap.Error(err))
		_ = msg.Nack(false, false)
	default:
		log.Error("catalog change failed, requeueing", zap.Error(err))
		_ = msg.Nack(false, true)
	}
}

func (cc *CatalogConsumer) apply(ctx context.Context, key string, body []byte) error {
	switch key {
	case KeyTripUpserted:
		var trip models.Trip
		if err := decode(body, &trip); err != nil {
			return err
		}
		return cc.catalog.UpsertTrip(ctx, &trip)

	case KeyTripCancelled:
		var ref struct {
			ID string `json:"id"`
		}
		if err := decode(body, &ref); err != nil {
			return err
		}
		_, err := cc.trips.CancelTrip(ctx, ref.ID)
		if errors.Is(err, service.ErrInvalidState) {
			// Already cancelled or finished; redelivery is a no-op.
			cc.log.Info("trip cancel ignored", zap.String("trip_id", ref.ID), zap.Error(err))
			return nil
		}
		return err

	case KeyScheduleUpserted:
		var schedule models.Schedule
		if err := decode(body, &schedule); err != nil {
			return err
		}
		return cc.catalog.UpsertSchedule(ctx, &schedule)

	case KeyStopUpserted:
		var stop models.Stop
		if err := decode(body, &stop); err != nil {
			return err
		}
		return cc.catalog.UpsertStop(ctx, &stop)

	case KeyOfferUpserted:
		var offer models.Offer
		if err := decode(body, &offer); err != nil {
			return err
		}
		return cc.catalog.UpsertOffer(ctx, &offer)
	}
	return fmt.Errorf("%w: unknown routing key %q", errMalformed, key)
}

// permanent reports failures that redelivery cannot fix.
func permanent(err error) bool {
	if errors.Is(err, errMalformed) {
		return true
	}
	switch service.KindOf(err) {
	case service.ErrValidation, service.ErrNotFound, service.ErrInvalidState:
		return true
	}
	return false
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}
