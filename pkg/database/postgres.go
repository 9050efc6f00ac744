package database

import (
	"time"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string, log *zap.Logger) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// catalog rows arrive from the operator service in any order
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", zap.Error(err))
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Minute)

	if err := Migrate(db); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	return db
}

// Migrate creates the schema plus the partial unique index that keeps two
// live seat rows on the same trip from sharing a seat number.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Schedule{},
		&models.Stop{},
		&models.Trip{},
		&models.Offer{},
		&models.Booking{},
		&models.BookedSeat{},
		&models.Payment{},
		&models.Cancellation{},
	); err != nil {
		return err
	}

	return db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_booked_seat_live
		ON booked_seats (trip_id, seat_number)
		WHERE released = false
	`).Error
}
