package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrSeatCounterOutOfRange is returned when an adjustment would push a trip's
// available seat counter below zero or above its capacity.
var ErrSeatCounterOutOfRange = errors.New("available seat counter out of range")

// Transactor runs fn inside one database transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

// conn picks the transaction when one is in flight.
func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
