package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	boletodomain "github.com/saudecred/cobranca/internal/boleto/domain"
	closingdomain "github.com/saudecred/cobranca/internal/closing/domain"
	"github.com/saudecred/cobranca/internal/config"
	gestaodomain "github.com/saudecred/cobranca/internal/gestao/domain"
	"github.com/saudecred/cobranca/internal/status"
	"github.com/stretchr/testify/require"
)

type stubBoletos struct {
	issueResult *boletodomain.IssueResult
	issueErr    error
	applied     []boletodomain.ApplySituationRequest
	applyErr    error
}

func (s *stubBoletos) IssueClosing(_ context.Context, closingID snowflake.ID) (*boletodomain.IssueResult, error) {
	if s.issueErr != nil {
		return nil, s.issueErr
	}
	if s.issueResult != nil {
		return s.issueResult, nil
	}
	return &boletodomain.IssueResult{ClosingID: closingID}, nil
}

func (s *stubBoletos) ApplySituation(_ context.Context, req boletodomain.ApplySituationRequest) (*boletodomain.Boleto, error) {
	if s.applyErr != nil {
		return nil, s.applyErr
	}
	s.applied = append(s.applied, req)
	return &boletodomain.Boleto{ID: snowflake.ID(77), Status: status.StatusPaid}, nil
}

func (s *stubBoletos) ListByClosing(_ context.Context, _ snowflake.ID) ([]*boletodomain.Boleto, error) {
	return []*boletodomain.Boleto{}, nil
}

type stubGestao struct {
	imported []gestaodomain.ImportPlanRequest
}

func (s *stubGestao) Reconcile(_ context.Context, _ *boletodomain.Boleto) (*gestaodomain.Record, error) {
	return nil, nil
}

func (s *stubGestao) ImportPlan(_ context.Context, req gestaodomain.ImportPlanRequest) ([]*gestaodomain.Record, error) {
	s.imported = append(s.imported, req)
	return []*gestaodomain.Record{}, nil
}

func (s *stubGestao) ApplyStatus(_ context.Context, _ snowflake.ID, _ status.Status, _ *time.Time, _ *int64) error {
	return nil
}

func (s *stubGestao) RollOverdue(_ context.Context, _ int) (int, error) { return 0, nil }

func (s *stubGestao) ListByClosing(_ context.Context, _ snowflake.ID) ([]*gestaodomain.Record, error) {
	return []*gestaodomain.Record{}, nil
}

func (s *stubGestao) DueForIssuance(_ context.Context, _ int) ([]*gestaodomain.Record, error) {
	return nil, nil
}

func newTestServer(boletos *stubBoletos, gestao *stubGestao) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	NewServer(ServerParams{
		Gin:       engine,
		Cfg:       config.Config{},
		BoletoSvc: boletos,
		GestaoSvc: gestao,
	})
	return engine
}

func TestIssueClosingReturnsCreatedOnNewSlips(t *testing.T) {
	boletos := &stubBoletos{issueResult: &boletodomain.IssueResult{
		ClosingID: snowflake.ID(1001),
		Requested: 3,
		Persisted: 3,
	}}
	engine := newTestServer(boletos, &stubGestao{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/closings/1001/boletos", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
}

func TestIssueClosingMapsNotFound(t *testing.T) {
	boletos := &stubBoletos{issueErr: closingdomain.ErrNotFound}
	engine := newTestServer(boletos, &stubGestao{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/closings/1001/boletos", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestIssueClosingRejectsBadID(t *testing.T) {
	engine := newTestServer(&stubBoletos{}, &stubGestao{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/closings/not-a-number/boletos", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBankWebhookAppliesSituation(t *testing.T) {
	boletos := &stubBoletos{}
	engine := newTestServer(boletos, &stubGestao{})

	body := `{"numeroDocumento":"1001-P1","situacao":"Liquidado","dataPagamento":"2026-04-02","valorPago":100.00}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/bank", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, boletos.applied, 1)
	applied := boletos.applied[0]
	require.Equal(t, "1001-P1", applied.DocumentNumber)
	require.Equal(t, "Liquidado", applied.Situation)
	require.NotNil(t, applied.PaymentDate)
	require.Equal(t, int64(10000), *applied.PaymentCents)

	var resp struct {
		Data struct {
			Status status.Status `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, status.StatusPaid, resp.Data.Status)
}

func TestBankWebhookRejectsBadDate(t *testing.T) {
	engine := newTestServer(&stubBoletos{}, &stubGestao{})

	body := `{"numeroDocumento":"1001-P1","situacao":"Liquidado","dataPagamento":"02/04/2026"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/bank", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBankWebhookUnknownDocument(t *testing.T) {
	engine := newTestServer(&stubBoletos{applyErr: boletodomain.ErrNotFound}, &stubGestao{})

	body := `{"numeroDocumento":"9999","situacao":"Liquidado"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/bank", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportPlanDefaultsImporter(t *testing.T) {
	gestao := &stubGestao{}
	engine := newTestServer(&stubBoletos{}, gestao)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/closings/1001/gestao/import", strings.NewReader(`{"auto_issue":true}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, gestao.imported, 1)
	require.True(t, gestao.imported[0].AutoIssue)
	require.Equal(t, "api", gestao.imported[0].ImportedBy)
}

func TestRunSweepWithoutSweeper(t *testing.T) {
	engine := newTestServer(&stubBoletos{}, &stubGestao{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/sweep/run", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
