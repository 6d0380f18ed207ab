package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/saudecred/cobranca/internal/boleto/domain"
	"github.com/saudecred/cobranca/internal/clock"
	closingdomain "github.com/saudecred/cobranca/internal/closing/domain"
	"github.com/saudecred/cobranca/internal/config"
	gestaodomain "github.com/saudecred/cobranca/internal/gestao/domain"
	"github.com/saudecred/cobranca/internal/installment"
	issuerdomain "github.com/saudecred/cobranca/internal/issuer/domain"
	obsmetrics "github.com/saudecred/cobranca/internal/observability/metrics"
	patientdomain "github.com/saudecred/cobranca/internal/patient/domain"
	"github.com/saudecred/cobranca/internal/payer"
	"github.com/saudecred/cobranca/internal/ratelimit"
	"github.com/saudecred/cobranca/internal/status"
	pkgdb "github.com/saudecred/cobranca/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const issuerRateKey = "ratelimit:issuer:boletos"

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
	Patients patientdomain.Repository
	Issuer   issuerdomain.Client
	Gestao   gestaodomain.Service
	Bucket   *ratelimit.TokenBucket `optional:"true"`
	Metrics  *obsmetrics.Metrics    `optional:"true"`
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
	patients patientdomain.Repository
	issuer   issuerdomain.Client
	gestao   gestaodomain.Service
	bucket   *ratelimit.TokenBucket
	metrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("boleto.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		cfg:      p.Config,
		tokens:   p.Tokens,
		repo:     p.Repo,
		closings: p.Closings,
		patients: p.Patients,
		issuer:   p.Issuer,
		gestao:   p.Gestao,
		bucket:   p.Bucket,
		metrics:  p.Metrics,
	}
}

func (s *Service) IssueClosing(ctx context.Context, closingID snowflake.ID) (*domain.IssueResult, error) {
	closing, err := s.closings.FindByID(ctx, s.db, closingID)
	if err != nil {
		return nil, fmt.Errorf("issue closing: %w", err)
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
	if !installment.AmountsReconcile(*closing) {
		s.log.Warn("installment plan does not add up to closing total, issuing per plan",
			zap.Int64("closing_id", int64(closing.ID)),
			zap.Int64("total_cents", closing.TotalAmountCents),
		)
	}

	patient, err := s.patients.FindByID(ctx, s.db, closing.PatientID)
	if err != nil {
		return nil, fmt.Errorf("issue closing: %w", err)
	}
	if patient == nil {
		return nil, patientdomain.ErrNotFound
	}
	// an incomplete payer profile fails each installment individually so
	// the caller still gets the partial-success report
	profile, profileErr := payer.FromPatient(*patient)
	if profileErr != nil {
		s.log.Warn("payer profile incomplete, recording installment failures",
			zap.Int64("closing_id", int64(closing.ID)),
			zap.Int64("patient_id", int64(patient.ID)),
			zap.Error(profileErr),
		)
	}

	result := &domain.IssueResult{
		ClosingID: closing.ID,
		Requested: len(descriptors),
	}

	calledIssuer := false
	for _, d := range descriptors {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if calledIssuer {
			if err := s.pace(ctx); err != nil {
				return result, err
			}
		}

		var (
			outcome *domain.IssueOutcome
			called  bool
			err     error
		)
		if profileErr != nil {
			outcome, err = s.recordUnissuable(ctx, closing, d, profileErr)
		} else {
			outcome, called, err = s.issueOne(ctx, closing, profile, d)
		}
		calledIssuer = called
		if err != nil {
			// only configuration and cancellation abort the whole run
			return result, err
		}
		result.Outcomes = append(result.Outcomes, *outcome)
		if outcome.BoletoID != 0 && !outcome.AlreadyIssued && outcome.Error == "" {
			result.Persisted++
		}
	}

	boletos, err := s.repo.ListByClosing(ctx, s.db, closing.ID)
	if err != nil {
		return result, fmt.Errorf("issue closing list: %w", err)
	}
	result.Boletos = boletos
	return result, nil
}

// issueOne runs the state machine for a single installment. The returned
// bool reports whether the issuer API was actually called, which drives
// inter-call pacing. A non-nil error aborts the batch.
func (s *Service) issueOne(ctx context.Context, closing *closingdomain.Closing, profile payer.Profile, d installment.Descriptor) (*domain.IssueOutcome, bool, error) {
	outcome := &domain.IssueOutcome{
		Sequence:       d.Sequence,
		DocumentNumber: d.DocumentNumber,
	}

	existing, err := s.repo.FindByClosingAndDocument(ctx, s.db, closing.ID, d.DocumentNumber)
	if err != nil {
		return nil, false, fmt.Errorf("issuance lookup %s: %w", d.DocumentNumber, err)
	}
	if existing != nil && existing.Issued() {
		outcome.BoletoID = existing.ID
		outcome.AlreadyIssued = true
		if existing.ExternalID != nil {
			outcome.ExternalID = *existing.ExternalID
		}
		// a rerun still ensures the management record exists, healing a
		// prior run where the boleto persisted but reconciliation failed
		s.reconcile(ctx, existing)
		return outcome, false, nil
	}

	if err := s.waitForSlot(ctx); err != nil {
		return nil, false, err
	}

	slip, issueErr := s.issuer.Issue(ctx, issuerdomain.IssueRequest{
		DocumentNumber: d.DocumentNumber,
		DueDate:        d.DueDate,
		AmountCents:    d.AmountCents,
		Description:    fmt.Sprintf("Fechamento %d - parcela %d", closing.ID, d.Sequence),
		Payer:          profile,
	})
	if issueErr != nil {
		if errors.Is(issueErr, issuerdomain.ErrNotConfigured) {
			return nil, true, issueErr
		}
		if ctx.Err() != nil {
			return nil, true, ctx.Err()
		}
		s.metrics.IncIssuanceError(issueReason(issueErr))
		s.log.Warn("issuance attempt failed",
			zap.String("document_number", d.DocumentNumber),
			zap.Error(issueErr),
		)
		if err := s.persistFailure(ctx, closing, d, existing, issueErr, outcome); err != nil {
			s.log.Error("failed to persist issuance failure",
				zap.String("document_number", d.DocumentNumber),
				zap.Error(err),
			)
		}
		outcome.Error = issueErr.Error()
		return outcome, true, nil
	}

	boleto, err := s.persistIssued(ctx, closing, d, existing, slip)
	if err != nil {
		s.metrics.IncIssuanceError("persist")
		outcome.Error = err.Error()
		return outcome, true, nil
	}

	s.metrics.IncIssued("issued")
	outcome.BoletoID = boleto.ID
	if boleto.ExternalID != nil {
		outcome.ExternalID = *boleto.ExternalID
	}

	s.reconcile(ctx, boleto)
	return outcome, true, nil
}

// reconcile is warn-only: the boleto row is authoritative, and a failed
// management record insert is retried by later runs and by the sweep.
func (s *Service) reconcile(ctx context.Context, boleto *domain.Boleto) {
	if _, err := s.gestao.Reconcile(ctx, boleto); err != nil {
		s.log.Warn("management record reconciliation failed",
			zap.Int64("boleto_id", int64(boleto.ID)),
			zap.Error(err),
		)
	}
}

// recordUnissuable handles an installment that cannot be sent to the bank
// at all, persisting the failure without touching the issuer. Installments
// already issued by a previous run are reported as such.
func (s *Service) recordUnissuable(ctx context.Context, closing *closingdomain.Closing, d installment.Descriptor, cause error) (*domain.IssueOutcome, error) {
	outcome := &domain.IssueOutcome{
		Sequence:       d.Sequence,
		DocumentNumber: d.DocumentNumber,
	}

	existing, err := s.repo.FindByClosingAndDocument(ctx, s.db, closing.ID, d.DocumentNumber)
	if err != nil {
		return nil, fmt.Errorf("issuance lookup %s: %w", d.DocumentNumber, err)
	}
	if existing != nil && existing.Issued() {
		outcome.BoletoID = existing.ID
		outcome.AlreadyIssued = true
		if existing.ExternalID != nil {
			outcome.ExternalID = *existing.ExternalID
		}
		s.reconcile(ctx, existing)
		return outcome, nil
	}

	s.metrics.IncIssuanceError("payer")
	if err := s.persistFailure(ctx, closing, d, existing, cause, outcome); err != nil {
		s.log.Error("failed to persist issuance failure",
			zap.String("document_number", d.DocumentNumber),
			zap.Error(err),
		)
	}
	outcome.Error = cause.Error()
	return outcome, nil
}

// persistIssued writes the successful issuance, absorbing external id
// collisions: the bank sandbox reuses "nosso número" values across
// unrelated slips, so a unique violation on that column downgrades the
// record to external-id-less with an explanatory note.
func (s *Service) persistIssued(ctx context.Context, closing *closingdomain.Closing, d installment.Descriptor, existing *domain.Boleto, slip *issuerdomain.IssuedSlip) (*domain.Boleto, error) {
	now := s.clock.Now()
	externalID := slip.ExternalID

	boleto := existing
	if boleto == nil {
		boleto = &domain.Boleto{
			ID:             s.genID.Generate(),
			ClosingID:      closing.ID,
			PatientID:      closing.PatientID,
			CompanyID:      closing.CompanyID,
			DocumentNumber: d.DocumentNumber,
			Sequence:       d.Sequence,
			CreatedAt:      now,
		}
	}
	boleto.ExternalID = &externalID
	boleto.Barcode = slip.Barcode
	boleto.PaymentLine = slip.PaymentLine
	boleto.DocumentURL = slip.DocumentURL
	boleto.AmountCents = d.AmountCents
	boleto.DueDate = d.DueDate
	boleto.IssuedAt = &now
	boleto.Situation = slip.Situation
	boleto.Status = status.Classify(s.tokens.Tokens(), slip.Situation, d.DueDate, nil, now)
	boleto.IssueError = ""
	boleto.UpdatedAt = now
	if len(slip.Raw) > 0 {
		boleto.Metadata = datatypes.JSONMap(slip.Raw)
	}

	persist := func() error {
		if existing != nil {
			return s.repo.UpdateIssued(ctx, s.db, boleto)
		}
		return s.repo.Insert(ctx, s.db, boleto)
	}

	if err := persist(); err != nil {
		if !pkgdb.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("persist issued %s: %w", d.DocumentNumber, err)
		}

		// a concurrent run may have won on (closing_id, document_number)
		winner, lookupErr := s.repo.FindByClosingAndDocument(ctx, s.db, closing.ID, d.DocumentNumber)
		if lookupErr != nil {
			return nil, fmt.Errorf("persist issued %s: %w", d.DocumentNumber, lookupErr)
		}
		if winner != nil && winner.Issued() && existing == nil {
			return winner, nil
		}

		s.metrics.IncCollision()
		s.log.Warn("external id collision, persisting without identifier",
			zap.String("document_number", d.DocumentNumber),
			zap.String("external_id", externalID),
		)
		boleto.ExternalID = nil
		boleto.Notes = fmt.Sprintf("identificador externo %s em conflito com outro boleto; registro mantido sem identificador", externalID)
		if err := persist(); err != nil {
			return nil, fmt.Errorf("persist issued %s after collision: %w", d.DocumentNumber, err)
		}
	}
	return boleto, nil
}

// persistFailure records a failed attempt so operators can see it and a
// later run can retry in place.
func (s *Service) persistFailure(ctx context.Context, closing *closingdomain.Closing, d installment.Descriptor, existing *domain.Boleto, issueErr error, outcome *domain.IssueOutcome) error {
	now := s.clock.Now()

	if existing != nil {
		existing.Situation = domain.SituationError
		existing.IssueError = issueErr.Error()
		existing.UpdatedAt = now
		if err := s.repo.UpdateIssued(ctx, s.db, existing); err != nil {
			return err
		}
		outcome.BoletoID = existing.ID
		return nil
	}

	boleto := &domain.Boleto{
		ID:             s.genID.Generate(),
		ClosingID:      closing.ID,
		PatientID:      closing.PatientID,
		CompanyID:      closing.CompanyID,
		DocumentNumber: d.DocumentNumber,
		Sequence:       d.Sequence,
		AmountCents:    d.AmountCents,
		DueDate:        d.DueDate,
		Situation:      domain.SituationError,
		Status:         status.StatusPending,
		IssueError:     issueErr.Error(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, boleto); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil
		}
		return err
	}
	outcome.BoletoID = boleto.ID
	return nil
}

func (s *Service) ApplySituation(ctx context.Context, req domain.ApplySituationRequest) (*domain.Boleto, error) {
	boleto, err := s.repo.FindByDocument(ctx, s.db, req.DocumentNumber)
	if err != nil {
		return nil, fmt.Errorf("apply situation: %w", err)
	}
	if boleto == nil {
		return nil, domain.ErrNotFound
	}

	st := status.Classify(s.tokens.Tokens(), req.Situation, boleto.DueDate, req.PaymentDate, s.clock.Now())
	if err := s.repo.UpdateSituation(ctx, s.db, boleto.ID, req.Situation, st); err != nil {
		return nil, fmt.Errorf("apply situation: %w", err)
	}
	boleto.Situation = req.Situation
	boleto.Status = st

	if err := s.gestao.ApplyStatus(ctx, boleto.ID, st, req.PaymentDate, req.PaymentCents); err != nil {
		s.log.Warn("status not mirrored to management record",
			zap.Int64("boleto_id", int64(boleto.ID)),
			zap.Error(err),
		)
	}
	return boleto, nil
}

func (s *Service) ListByClosing(ctx context.Context, closingID snowflake.ID) ([]*domain.Boleto, error) {
	boletos, err := s.repo.ListByClosing(ctx, s.db, closingID)
	if err != nil {
		return nil, err
	}

	// derive on read so an overdue slip reads as overdue even between
	// sweep runs
	now := s.clock.Now()
	table := s.tokens.Tokens()
	for _, b := range boletos {
		if b.Situation == domain.SituationError {
			continue
		}
		b.Status = status.Classify(table, b.Situation, b.DueDate, nil, now)
	}
	return boletos, nil
}

func (s *Service) waitForSlot(ctx context.Context) error {
	if s.bucket == nil {
		return nil
	}
	for {
		res, err := s.bucket.Allow(ctx, issuerRateKey, s.cfg.Issuer.Rate, s.cfg.Issuer.Burst)
		if err != nil {
			s.log.Warn("rate limiter unavailable, relying on call pacing", zap.Error(err))
			return nil
		}
		if res.Allowed {
			return nil
		}
		wait := res.RetryAfter
		if wait <= 0 {
			wait = 200 * time.Millisecond
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

func (s *Service) pace(ctx context.Context) error {
	return sleepCtx(ctx, s.cfg.Issuer.CallDelay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func issueReason(err error) string {
	switch {
	case errors.Is(err, issuerdomain.ErrRejected):
		return "rejected"
	case errors.Is(err, issuerdomain.ErrUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}
