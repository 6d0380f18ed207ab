package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	boletodomain "github.com/saudecred/cobranca/internal/boleto/domain"
	"github.com/saudecred/cobranca/internal/clock"
	closingdomain "github.com/saudecred/cobranca/internal/closing/domain"
	"github.com/saudecred/cobranca/internal/config"
	"github.com/saudecred/cobranca/internal/gestao/domain"
	"github.com/saudecred/cobranca/internal/installment"
	obsmetrics "github.com/saudecred/cobranca/internal/observability/metrics"
	"github.com/saudecred/cobranca/internal/status"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fetchWindowDays bounds the due-date window scanned for auto-issuance;
// per-record lead times are applied in memory after the fetch.
const fetchWindowDays = 60

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Config   config.Config
	Tokens   *config.StatusTokensHolder
	Repo     domain.Repository
	Closings closingdomain.Repository
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	cfg      config.Config
	tokens   *config.StatusTokensHolder
	repo     domain.Repository
	closings closingdomain.Repository
	metrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("gestao.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		cfg:      p.Config,
		tokens:   p.Tokens,
		repo:     p.Repo,
		closings: p.Closings,
		metrics:  p.Metrics,
	}
}

func (s *Service) Reconcile(ctx context.Context, boleto *boletodomain.Boleto) (*domain.Record, error) {
	if boleto == nil || boleto.ID == 0 {
		return nil, fmt.Errorf("reconcile: boleto is required")
	}

	existing, err := s.repo.FindByBoletoID(ctx, s.db, boleto.ID)
	if err != nil {
		return nil, fmt.Errorf("reconcile lookup: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	now := s.clock.Now()
	st := status.Classify(s.tokens.Tokens(), boleto.Situation, boleto.DueDate, nil, now)

	// A record imported before issuance is linked rather than duplicated.
	imported, err := s.repo.FindByClosingAndDocument(ctx, s.db, boleto.ClosingID, boleto.DocumentNumber)
	if err != nil {
		return nil, fmt.Errorf("reconcile lookup by document: %w", err)
	}
	if imported != nil {
		boletoID := boleto.ID
		imported.BoletoID = &boletoID
		imported.ExternalID = boleto.ExternalID
		imported.Barcode = boleto.Barcode
		imported.PaymentLine = boleto.PaymentLine
		imported.DocumentURL = boleto.DocumentURL
		imported.AmountCents = boleto.AmountCents
		imported.DueDate = boleto.DueDate
		imported.Status = st
		imported.AlreadyIssued = true
		imported.AutoIssue = false
		imported.UpdatedBy = "reconciler"
		imported.UpdatedAt = now
		if err := s.repo.Update(ctx, s.db, imported); err != nil {
			return nil, fmt.Errorf("reconcile link: %w", err)
		}
		return imported, nil
	}

	closing, err := s.closings.FindByID(ctx, s.db, boleto.ClosingID)
	if err != nil {
		return nil, fmt.Errorf("reconcile closing lookup: %w", err)
	}
	if closing == nil {
		// the boleto stays authoritative either way; the next run heals
		s.log.Warn("skipping reconciliation, owning closing not found",
			zap.Int64("boleto_id", int64(boleto.ID)),
			zap.Int64("closing_id", int64(boleto.ClosingID)),
		)
		return nil, nil
	}

	boletoID := boleto.ID
	record := &domain.Record{
		ID:             s.genID.Generate(),
		BoletoID:       &boletoID,
		ClosingID:      boleto.ClosingID,
		DocumentNumber: boleto.DocumentNumber,
		Sequence:       boleto.Sequence,
		CompanyID:      closing.CompanyID,
		ClinicID:       closing.ClinicID,
		PatientID:      boleto.PatientID,
		ExternalID:     boleto.ExternalID,
		Barcode:        boleto.Barcode,
		PaymentLine:    boleto.PaymentLine,
		DocumentURL:    boleto.DocumentURL,
		AmountCents:    boleto.AmountCents,
		DueDate:        boleto.DueDate,
		Status:         st,
		AutoIssue:      false,
		AlreadyIssued:  true,
		LeadDays:       s.cfg.Sweep.LeadDays,
		ImportedBy:     "reconciler",
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		// a concurrent reconciliation may have won the insert
		if again, lookupErr := s.repo.FindByBoletoID(ctx, s.db, boleto.ID); lookupErr == nil && again != nil {
			return again, nil
		}
		return nil, fmt.Errorf("reconcile insert: %w", err)
	}
	s.metrics.IncReconciled()
	return record, nil
}

func (s *Service) ImportPlan(ctx context.Context, req domain.ImportPlanRequest) ([]*domain.Record, error) {
	closing, err := s.closings.FindByID(ctx, s.db, req.ClosingID)
	if err != nil {
		return nil, fmt.Errorf("import plan: %w", err)
	}
	if closing == nil {
		return nil, closingdomain.ErrNotFound
	}
	if !closing.Approved {
		return nil, closingdomain.ErrNotApproved
	}

	descriptors, err := installment.Plan(*closing)
	if err != nil {
		return nil, err
	}

	leadDays := req.LeadDays
	if leadDays <= 0 {
		leadDays = s.cfg.Sweep.LeadDays
	}

	now := s.clock.Now()
	records := make([]*domain.Record, 0, len(descriptors))
	for _, d := range descriptors {
		existing, err := s.repo.FindByClosingAndDocument(ctx, s.db, closing.ID, d.DocumentNumber)
		if err != nil {
			return records, fmt.Errorf("import plan lookup: %w", err)
		}
		if existing != nil {
			records = append(records, existing)
			continue
		}

		record := &domain.Record{
			ID:             s.genID.Generate(),
			ClosingID:      closing.ID,
			DocumentNumber: d.DocumentNumber,
			Sequence:       d.Sequence,
			CompanyID:      closing.CompanyID,
			ClinicID:       closing.ClinicID,
			PatientID:      closing.PatientID,
			AmountCents:    d.AmountCents,
			DueDate:        d.DueDate,
			Status:         status.Classify(s.tokens.Tokens(), "", d.DueDate, nil, now),
			AutoIssue:      req.AutoIssue,
			AlreadyIssued:  false,
			LeadDays:       leadDays,
			ImportedBy:     req.ImportedBy,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.repo.Insert(ctx, s.db, record); err != nil {
			return records, fmt.Errorf("import plan insert %s: %w", d.DocumentNumber, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *Service) ApplyStatus(ctx context.Context, boletoID snowflake.ID, st status.Status, paymentDate *time.Time, paymentCents *int64) error {
	record, err := s.repo.FindByBoletoID(ctx, s.db, boletoID)
	if err != nil {
		return fmt.Errorf("apply status lookup: %w", err)
	}
	if record == nil {
		s.log.Warn("no management record for boleto, status not mirrored",
			zap.Int64("boleto_id", int64(boletoID)),
			zap.String("status", st.String()),
		)
		return nil
	}

	record.Status = st
	if paymentDate != nil {
		record.PaymentDate = paymentDate
	}
	if paymentCents != nil {
		record.PaymentCents = paymentCents
	}
	record.UpdatedBy = "sync"
	record.UpdatedAt = s.clock.Now()
	return s.repo.Update(ctx, s.db, record)
}

func (s *Service) RollOverdue(ctx context.Context, limit int) (int, error) {
	now := s.clock.Now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	records, err := s.repo.ListPendingDueBefore(ctx, s.db, day, limit)
	if err != nil {
		return 0, fmt.Errorf("roll overdue: %w", err)
	}

	rolled := 0
	for _, record := range records {
		record.Status = status.StatusOverdue
		record.UpdatedBy = "sync"
		record.UpdatedAt = now
		if err := s.repo.Update(ctx, s.db, record); err != nil {
			return rolled, fmt.Errorf("roll overdue update: %w", err)
		}
		rolled++
	}
	return rolled, nil
}

func (s *Service) ListByClosing(ctx context.Context, closingID snowflake.ID) ([]*domain.Record, error) {
	return s.repo.ListByClosing(ctx, s.db, closingID)
}

func (s *Service) DueForIssuance(ctx context.Context, limit int) ([]*domain.Record, error) {
	now := s.clock.Now()
	horizon := now.AddDate(0, 0, fetchWindowDays)

	candidates, err := s.repo.ListDueForIssuance(ctx, s.db, horizon, limit)
	if err != nil {
		return nil, fmt.Errorf("due for issuance: %w", err)
	}

	due := make([]*domain.Record, 0, len(candidates))
	for _, record := range candidates {
		lead := record.LeadDays
		if lead <= 0 {
			lead = s.cfg.Sweep.LeadDays
		}
		if !now.Before(record.DueDate.AddDate(0, 0, -lead)) {
			due = append(due, record)
		}
	}
	return due, nil
}
