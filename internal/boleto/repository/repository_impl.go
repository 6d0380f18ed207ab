package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/saudecred/cobranca/internal/boleto/domain"
	"github.com/saudecred/cobranca/internal/status"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, boleto *domain.Boleto) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO boletos (id, closing_id, patient_id, company_id, document_number,
		        sequence, external_id, barcode, payment_line, document_url,
		        amount_cents, due_date, issued_at, situation, status,
		        issue_error, notes, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		boleto.ID,
		boleto.ClosingID,
		boleto.PatientID,
		boleto.CompanyID,
		boleto.DocumentNumber,
		boleto.Sequence,
		boleto.ExternalID,
		boleto.Barcode,
		boleto.PaymentLine,
		boleto.DocumentURL,
		boleto.AmountCents,
		boleto.DueDate,
		boleto.IssuedAt,
		boleto.Situation,
		boleto.Status,
		boleto.IssueError,
		boleto.Notes,
		boleto.Metadata,
		boleto.CreatedAt,
		boleto.UpdatedAt,
	).Error
}

func (r *repo) UpdateIssued(ctx context.Context, db *gorm.DB, boleto *domain.Boleto) error {
	return db.WithContext(ctx).Exec(
		`UPDATE boletos
		 SET external_id = ?, barcode = ?, payment_line = ?, document_url = ?,
		     issued_at = ?, situation = ?, status = ?, issue_error = ?,
		     notes = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		boleto.ExternalID,
		boleto.Barcode,
		boleto.PaymentLine,
		boleto.DocumentURL,
		boleto.IssuedAt,
		boleto.Situation,
		boleto.Status,
		boleto.IssueError,
		boleto.Notes,
		boleto.Metadata,
		boleto.UpdatedAt,
		boleto.ID,
	).Error
}

func (r *repo) UpdateSituation(ctx context.Context, db *gorm.DB, id snowflake.ID, situation string, st status.Status) error {
	return db.WithContext(ctx).Exec(
		`UPDATE boletos SET situation = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		situation,
		st,
		id,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Boleto, error) {
	return r.findOne(ctx, db, `id = ?`, id)
}

func (r *repo) FindByClosingAndDocument(ctx context.Context, db *gorm.DB, closingID snowflake.ID, documentNumber string) (*domain.Boleto, error) {
	return r.findOne(ctx, db, `closing_id = ? AND document_number = ?`, closingID, documentNumber)
}

func (r *repo) FindByDocument(ctx context.Context, db *gorm.DB, documentNumber string) (*domain.Boleto, error) {
	return r.findOne(ctx, db, `document_number = ?`, documentNumber)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, args ...any) (*domain.Boleto, error) {
	var boleto domain.Boleto
	err := db.WithContext(ctx).
		Model(&domain.Boleto{}).
		Where(where, args...).
		Limit(1).
		Find(&boleto).Error
	if err != nil {
		return nil, err
	}
	if boleto.ID == 0 {
		return nil, nil
	}
	return &boleto, nil
}

func (r *repo) ListByClosing(ctx context.Context, db *gorm.DB, closingID snowflake.ID) ([]*domain.Boleto, error) {
	var boletos []*domain.Boleto
	err := db.WithContext(ctx).
		Model(&domain.Boleto{}).
		Where("closing_id = ?", closingID).
		Order("sequence asc, id asc").
		Find(&boletos).Error
	if err != nil {
		return nil, err
	}
	return boletos, nil
}
