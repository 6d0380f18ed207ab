package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	boletodomain "github.com/saudecred/cobranca/internal/boleto/domain"
	"github.com/saudecred/cobranca/internal/clock"
	"github.com/saudecred/cobranca/internal/config"
	gestaodomain "github.com/saudecred/cobranca/internal/gestao/domain"
	obsmetrics "github.com/saudecred/cobranca/internal/observability/metrics"
	"github.com/saudecred/cobranca/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const lockKey = "lock:sweep"

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Config  config.Config
	Gestao  gestaodomain.Service
	Boletos boletodomain.Service
	Locker  *ratelimit.Locker   `optional:"true"`
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// Sweeper periodically issues boletos whose lead window opened and rolls
// pending records past their due date to overdue. One run is active at a
// time across all instances: a redis lease guards the fleet, a local mutex
// guards the process when redis is absent.
type Sweeper struct {
	log     *zap.Logger
	clock   clock.Clock
	cfg     config.Config
	gestao  gestaodomain.Service
	boletos boletodomain.Service
	locker  *ratelimit.Locker
	metrics *obsmetrics.Metrics

	mu sync.Mutex
}

func New(p Params) *Sweeper {
	return &Sweeper{
		log:     p.Log.Named("sweep"),
		clock:   p.Clock,
		cfg:     p.Config,
		gestao:  p.Gestao,
		boletos: p.Boletos,
		locker:  p.Locker,
		metrics: p.Metrics,
	}
}

func (s *Sweeper) RunForever(ctx context.Context) {
	interval := s.cfg.Sweep.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Error("sweep run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce executes one sweep cycle. Returns nil when another holder has
// the lease; that run will cover the work.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if !s.mu.TryLock() {
		s.log.Debug("sweep already running in this process")
		return nil
	}
	defer s.mu.Unlock()

	release, acquired, err := s.acquireLease(ctx)
	if err != nil {
		s.log.Warn("sweep lease unavailable, proceeding with local guard only", zap.Error(err))
	} else if !acquired {
		s.log.Debug("sweep lease held elsewhere, skipping run")
		return nil
	}
	if release != nil {
		defer release()
	}

	var firstErr error
	jobs := []struct {
		name string
		run  func(context.Context) error
	}{
		{"issue_due", s.issueDueJob},
		{"refresh_overdue", s.refreshOverdueJob},
	}
	for _, job := range jobs {
		if err := s.runJob(ctx, job.name, s.cfg.Sweep.JobTimeout, job.run); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Sweeper) acquireLease(ctx context.Context) (func(), bool, error) {
	if !s.cfg.Sweep.LockEnabled || s.locker == nil {
		return nil, true, nil
	}
	token, ok, err := s.locker.TryLock(ctx, lockKey, s.cfg.Sweep.LockTTL)
	if err != nil {
		return nil, true, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.locker.Release(releaseCtx, lockKey, token); err != nil {
			s.log.Warn("sweep lease release failed, lease will expire", zap.Error(err))
		}
	}
	return release, true, nil
}

func (s *Sweeper) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	s.metrics.IncJobRun(name)
	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	// a deadline is a soft timeout: the next tick picks up where this one
	// stopped
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.IncJobError(name, "timeout")
		s.log.Warn("sweep job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
		)
		return nil
	}
	s.metrics.IncJobError(name, "error")
	return fmt.Errorf("%s: %w", name, err)
}

// issueDueJob feeds due auto-issue records to the orchestrator, one call
// per distinct closing. Issuance is idempotent, so a record picked up
// twice costs a lookup, not a duplicate slip.
func (s *Sweeper) issueDueJob(ctx context.Context) error {
	batch := s.cfg.Sweep.BatchSize
	if batch <= 0 {
		batch = 50
	}
	records, err := s.gestao.DueForIssuance(ctx, batch)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	seen := make(map[int64]bool, len(records))
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		closingID := int64(record.ClosingID)
		if seen[closingID] {
			continue
		}
		seen[closingID] = true

		result, err := s.boletos.IssueClosing(ctx, record.ClosingID)
		if err != nil {
			s.log.Warn("sweep issuance failed for closing",
				zap.Int64("closing_id", closingID),
				zap.Error(err),
			)
			continue
		}
		s.log.Info("sweep issued closing",
			zap.Int64("closing_id", closingID),
			zap.Int("requested", result.Requested),
			zap.Int("persisted", result.Persisted),
		)
	}
	return nil
}

func (s *Sweeper) refreshOverdueJob(ctx context.Context) error {
	batch := s.cfg.Sweep.BatchSize
	if batch <= 0 {
		batch = 50
	}
	rolled, err := s.gestao.RollOverdue(ctx, batch)
	if err != nil {
		return err
	}
	if rolled > 0 {
		s.log.Info("rolled pending records to overdue", zap.Int("count", rolled))
	}
	return nil
}
