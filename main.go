package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/config"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/auth"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/consumer"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/events"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/handler"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/lock"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/middleware"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/repository"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/service"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/pkg/database"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/pkg/kafka"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/pkg/logger"
	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/pkg/rabbitmq"
	redispkg "github.com/Eursukkul/bus-ticketing/seat-reservation-service/pkg/redis"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	serviceName      = "seat-reservation-service"
	eventsExchange   = "bookings"
	catalogExchange  = "catalog"
	catalogQueue     = "seat-reservation.catalog"
	shutdownDeadline = 15 * time.Second
)

func main() {
	cfg := config.Load()

	log, err := logger.New(serviceName, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	db := database.NewPostgresDB(cfg.DSN(), log)

	var rdb goredis.UniversalClient
	if cfg.UsesRedis() {
		rdb, err = redispkg.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	// Repositories
	stores := service.Stores{
		Tx:            repository.NewTransactor(db),
		Trips:         repository.NewTripRepository(db),
		Schedules:     repository.NewScheduleRepository(db),
		Stops:         repository.NewStopRepository(db),
		Bookings:      repository.NewBookingRepository(db),
		Offers:        repository.NewOfferRepository(db),
		Cancellations: repository.NewCancellationRepository(db),
		Payments:      repository.NewPaymentRepository(db),
	}

	holdStore := repository.NewMemoryHoldStore()
	if cfg.HoldStore == "redis" {
		holdStore = repository.NewRedisHoldStore(rdb)
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.LockBackend == "redis" {
		locker = lock.NewRedisLocker(rdb, log)
	}

	var resolver auth.Resolver
	switch cfg.AuthMode {
	case "jwt":
		if cfg.JWTSecret == "" {
			log.Fatal("JWT_SECRET is required when AUTH_MODE=jwt")
		}
		resolver = auth.NewJWTResolver(cfg.JWTSecret)
	default:
		resolver = auth.NewCacheResolver(rdb)
	}

	// Event publishing
	var publisher events.Publisher
	switch cfg.EventBroker {
	case "rabbitmq":
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, eventsExchange, log)
		if err != nil {
			log.Fatal("failed to connect to RabbitMQ", zap.Error(err))
		}
		defer pub.Close()
		publisher = pub
	case "kafka":
		prod, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Fatal("failed to connect to Kafka", zap.Error(err))
		}
		defer prod.Close()
		publisher = prod
	default:
		log.Info("event publishing disabled")
	}
	emitter := events.NewEmitter(publisher, log)

	// Services
	opts := []service.Option{service.WithHoldTTL(cfg.HoldTTL)}
	holds := service.NewHoldManager(holdStore, stores.Trips, stores.Bookings, locker, emitter, log, opts...)
	cancellations := service.NewCancellationService(stores, locker, emitter, log)
	bookings := service.NewBookingService(stores, locker, holds, cancellations, emitter, log)
	trips := service.NewTripService(stores, holds, locker, emitter, log)
	payments := service.NewPaymentService(stores, locker, emitter, log)
	offers := service.NewOfferValidator(stores.Offers)
	catalog := service.NewCatalogService(stores, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Catalog sync from the operator service
	if cfg.CatalogSync {
		mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, catalogExchange, catalogQueue, consumer.Bindings, log)
		if err != nil {
			log.Fatal("failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqConsumer.Close()

		msgs, err := mqConsumer.Consume()
		if err != nil {
			log.Fatal("failed to start consuming", zap.Error(err))
		}
		consumer.NewCatalogConsumer(catalog, trips, log).Start(msgs)
	}

	go service.NewHoldSweeper(holdStore, log).Run(ctx, cfg.HoldSweepInterval)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.NewErrorHandler(log)
	e.Validator = handler.NewRequestValidator()
	e.Use(echoMw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echoMw.Recover())
	e.Use(echoMw.RateLimiter(echoMw.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimitRPS))))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
	})

	handler.NewOfferHandler(offers).RegisterRoutes(e.Group("/api/v1/offers"))

	api := e.Group("/api/v1", middleware.RequireCaller(resolver, log))
	handler.NewTripHandler(trips).RegisterRoutes(api)
	handler.NewHoldHandler(holds).RegisterRoutes(api)
	handler.NewBookingHandler(bookings, stores.Stops, log).RegisterRoutes(api)
	handler.NewCancellationHandler(cancellations).RegisterRoutes(api)
	handler.NewPaymentHandler(payments).RegisterRoutes(api)

	go func() {
		log.Info("seat reservation service starting", zap.String("port", cfg.ServerPort))
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
