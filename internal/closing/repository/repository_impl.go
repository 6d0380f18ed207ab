package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/saudecred/cobranca/internal/closing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Closing, error) {
	var closing domain.Closing
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_id, clinic_id, patient_id, total_amount_cents,
		        installment_count, installment_amount_cents, first_due_date,
		        approved, closed_at, created_at, updated_at
		 FROM closings WHERE id = ?`,
		id,
	).Scan(&closing).Error
	if err != nil {
		return nil, err
	}
	if closing.ID == 0 {
		return nil, nil
	}
	return &closing, nil
}
