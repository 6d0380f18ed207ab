package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *Record) error
	Update(ctx context.Context, db *gorm.DB, record *Record) error
	FindByBoletoID(ctx context.Context, db *gorm.DB, boletoID snowflake.ID) (*Record, error)
	FindByClosingAndDocument(ctx context.Context, db *gorm.DB, closingID snowflake.ID, documentNumber string) (*Record, error)
	ListByClosing(ctx context.Context, db *gorm.DB, closingID snowflake.ID) ([]*Record, error)
	// ListDueForIssuance selects pending, auto-issue, not-yet-issued
	// records whose due date falls on or before the horizon.
	ListDueForIssuance(ctx context.Context, db *gorm.DB, horizon time.Time, limit int) ([]*Record, error)
	// ListPendingDueBefore selects records the overdue refresh must roll.
	ListPendingDueBefore(ctx context.Context, db *gorm.DB, day time.Time, limit int) ([]*Record, error)
}
