package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/saudecred/cobranca/internal/status"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, boleto *Boleto) error
	// UpdateIssued rewrites a persisted failure record with the
	// identifiers of a later successful attempt.
	UpdateIssued(ctx context.Context, db *gorm.DB, boleto *Boleto) error
	UpdateSituation(ctx context.Context, db *gorm.DB, id snowflake.ID, situation string, st status.Status) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Boleto, error)
	FindByClosingAndDocument(ctx context.Context, db *gorm.DB, closingID snowflake.ID, documentNumber string) (*Boleto, error)
	FindByDocument(ctx context.Context, db *gorm.DB, documentNumber string) (*Boleto, error)
	ListByClosing(ctx context.Context, db *gorm.DB, closingID snowflake.ID) ([]*Boleto, error)
}
