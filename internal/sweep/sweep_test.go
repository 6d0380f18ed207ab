package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	boletodomain "github.com/saudecred/cobranca/internal/boleto/domain"
	"github.com/saudecred/cobranca/internal/clock"
	"github.com/saudecred/cobranca/internal/config"
	gestaodomain "github.com/saudecred/cobranca/internal/gestao/domain"
	"github.com/saudecred/cobranca/internal/status"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGestao struct {
	due       []*gestaodomain.Record
	dueErr    error
	rolled    int
	rollCalls int
}

func (f *fakeGestao) Reconcile(context.Context, *boletodomain.Boleto) (*gestaodomain.Record, error) {
	return nil, nil
}

func (f *fakeGestao) ImportPlan(context.Context, gestaodomain.ImportPlanRequest) ([]*gestaodomain.Record, error) {
	return nil, nil
}

func (f *fakeGestao) ApplyStatus(context.Context, snowflake.ID, status.Status, *time.Time, *int64) error {
	return nil
}

func (f *fakeGestao) RollOverdue(context.Context, int) (int, error) {
	f.rollCalls++
	return f.rolled, nil
}

func (f *fakeGestao) ListByClosing(context.Context, snowflake.ID) ([]*gestaodomain.Record, error) {
	return nil, nil
}

func (f *fakeGestao) DueForIssuance(context.Context, int) ([]*gestaodomain.Record, error) {
	return f.due, f.dueErr
}

type fakeBoletos struct {
	issued []snowflake.ID
	err    error
}

func (f *fakeBoletos) IssueClosing(_ context.Context, closingID snowflake.ID) (*boletodomain.IssueResult, error) {
	f.issued = append(f.issued, closingID)
	if f.err != nil {
		return nil, f.err
	}
	return &boletodomain.IssueResult{ClosingID: closingID, Requested: 1, Persisted: 1}, nil
}

func (f *fakeBoletos) ApplySituation(context.Context, boletodomain.ApplySituationRequest) (*boletodomain.Boleto, error) {
	return nil, nil
}

func (f *fakeBoletos) ListByClosing(context.Context, snowflake.ID) ([]*boletodomain.Boleto, error) {
	return nil, nil
}

func record(closingID snowflake.ID, document string) *gestaodomain.Record {
	return &gestaodomain.Record{
		ID:             snowflake.ID(1),
		ClosingID:      closingID,
		DocumentNumber: document,
		Status:         status.StatusPending,
		AutoIssue:      true,
	}
}

func newSweeper(gestao *fakeGestao, boletos *fakeBoletos) *Sweeper {
	return New(Params{
		Log:     zap.NewNop(),
		Clock:   clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)),
		Config:  config.Config{Sweep: config.SweepConfig{BatchSize: 10, JobTimeout: time.Minute}},
		Gestao:  gestao,
		Boletos: boletos,
	})
}

func TestRunOnceIssuesEachClosingOnce(t *testing.T) {
	gestao := &fakeGestao{due: []*gestaodomain.Record{
		record(snowflake.ID(100), "100-P1"),
		record(snowflake.ID(100), "100-P2"),
		record(snowflake.ID(200), "200"),
	}}
	boletos := &fakeBoletos{}

	err := newSweeper(gestao, boletos).RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, []snowflake.ID{100, 200}, boletos.issued)
	require.Equal(t, 1, gestao.rollCalls)
}

func TestRunOnceContinuesPastFailedClosing(t *testing.T) {
	gestao := &fakeGestao{due: []*gestaodomain.Record{
		record(snowflake.ID(100), "100-P1"),
		record(snowflake.ID(200), "200"),
	}}
	boletos := &fakeBoletos{err: errors.New("issuer down")}

	err := newSweeper(gestao, boletos).RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, []snowflake.ID{100, 200}, boletos.issued)
}

func TestRunOnceSurfacesJobErrors(t *testing.T) {
	gestao := &fakeGestao{dueErr: errors.New("db down")}
	boletos := &fakeBoletos{}

	err := newSweeper(gestao, boletos).RunOnce(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "issue_due")
	// the second job still ran
	require.Equal(t, 1, gestao.rollCalls)
}

func TestRunOnceTreatsCancellationAsSoftStop(t *testing.T) {
	gestao := &fakeGestao{due: []*gestaodomain.Record{record(snowflake.ID(100), "100-P1")}}
	boletos := &fakeBoletos{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newSweeper(gestao, boletos).RunOnce(ctx)
	require.NoError(t, err)
}
