package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/saudecred/cobranca/internal/gestao/domain"
	"github.com/saudecred/cobranca/internal/status"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.Record) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO boletos_gestao (id, boleto_id, closing_id, document_number, sequence,
		        company_id, clinic_id, patient_id, external_id, barcode, payment_line,
		        document_url, amount_cents, due_date, status, auto_issue, already_issued,
		        lead_days, payment_date, payment_cents, notes, imported_by, updated_by,
		        created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.BoletoID,
		record.ClosingID,
		record.DocumentNumber,
		record.Sequence,
		record.CompanyID,
		record.ClinicID,
		record.PatientID,
		record.ExternalID,
		record.Barcode,
		record.PaymentLine,
		record.DocumentURL,
		record.AmountCents,
		record.DueDate,
		record.Status,
		record.AutoIssue,
		record.AlreadyIssued,
		record.LeadDays,
		record.PaymentDate,
		record.PaymentCents,
		record.Notes,
		record.ImportedBy,
		record.UpdatedBy,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, record *domain.Record) error {
	return db.WithContext(ctx).Exec(
		`UPDATE boletos_gestao
		 SET boleto_id = ?, external_id = ?, barcode = ?, payment_line = ?,
		     document_url = ?, amount_cents = ?, due_date = ?, status = ?,
		     auto_issue = ?, already_issued = ?, lead_days = ?, payment_date = ?,
		     payment_cents = ?, notes = ?, updated_by = ?, updated_at = ?
		 WHERE id = ?`,
		record.BoletoID,
		record.ExternalID,
		record.Barcode,
		record.PaymentLine,
		record.DocumentURL,
		record.AmountCents,
		record.DueDate,
		record.Status,
		record.AutoIssue,
		record.AlreadyIssued,
		record.LeadDays,
		record.PaymentDate,
		record.PaymentCents,
		record.Notes,
		record.UpdatedBy,
		record.UpdatedAt,
		record.ID,
	).Error
}

func (r *repo) FindByBoletoID(ctx context.Context, db *gorm.DB, boletoID snowflake.ID) (*domain.Record, error) {
	return r.findOne(ctx, db, `boleto_id = ?`, boletoID)
}

func (r *repo) FindByClosingAndDocument(ctx context.Context, db *gorm.DB, closingID snowflake.ID, documentNumber string) (*domain.Record, error) {
	return r.findOne(ctx, db, `closing_id = ? AND document_number = ?`, closingID, documentNumber)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, args ...any) (*domain.Record, error) {
	var record domain.Record
	err := db.WithContext(ctx).
		Model(&domain.Record{}).
		Where(where, args...).
		Limit(1).
		Find(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) ListByClosing(ctx context.Context, db *gorm.DB, closingID snowflake.ID) ([]*domain.Record, error) {
	var records []*domain.Record
	err := db.WithContext(ctx).
		Model(&domain.Record{}).
		Where("closing_id = ?", closingID).
		Order("sequence asc, id asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) ListDueForIssuance(ctx context.Context, db *gorm.DB, horizon time.Time, limit int) ([]*domain.Record, error) {
	var records []*domain.Record
	err := db.WithContext(ctx).
		Model(&domain.Record{}).
		Where("auto_issue = ? AND already_issued = ? AND status = ? AND due_date <= ?",
			true, false, status.StatusPending, horizon).
		Order("due_date asc, id asc").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) ListPendingDueBefore(ctx context.Context, db *gorm.DB, day time.Time, limit int) ([]*domain.Record, error) {
	var records []*domain.Record
	err := db.WithContext(ctx).
		Model(&domain.Record{}).
		Where("status = ? AND due_date < ?", status.StatusPending, day).
		Order("due_date asc, id asc").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
