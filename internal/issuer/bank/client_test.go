package bank

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/saudecred/cobranca/internal/config"
	issuerdomain "github.com/saudecred/cobranca/internal/issuer/domain"
	"github.com/saudecred/cobranca/internal/payer"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, baseURL string) issuerdomain.Client {
	t.Helper()
	c, err := New(config.Config{
		Issuer: config.IssuerConfig{
			BaseURL:      baseURL,
			Token:        "secret",
			Beneficiary:  "1234/567890",
			InternalHost: "internal.bank.local",
			PublicHost:   "boletos.bank.com.br",
		},
	}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func issueReq() issuerdomain.IssueRequest {
	return issuerdomain.IssueRequest{
		DocumentNumber: "42-P1",
		DueDate:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		AmountCents:    150_00,
		Description:    "Parcela 1",
		Payer: payer.Profile{
			DocumentNumber: "12345678900",
			Name:           "Jane Doe",
			City:           "Sao Paulo",
			State:          "SP",
			PostalCode:     "12345678",
		},
	}
}

func TestIssueBuildsRequestAndNormalizesResponse(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"nossoNumero":    "000123",
			"codigoBarras":   strings.Repeat("1", 44),
			"linhaDigitavel": strings.Repeat("2", 47),
			"url":            "https://internal.bank.local/boletos/000123.pdf",
			"situacao":       "EMITIDO",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	slip, err := client.Issue(context.Background(), issueReq())
	require.NoError(t, err)

	require.Equal(t, "/beneficiarios/567890/boletos", gotPath)
	require.Equal(t, "Bearer secret", gotAuth)
	require.Equal(t, "42-P1", gotBody["numeroDocumento"])
	require.Equal(t, "2024-03-10", gotBody["dataVencimento"])
	require.Equal(t, "150.00", gotBody["valor"])

	pagador, ok := gotBody["pagador"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "12345678900", pagador["numeroDocumento"])
	// address keys must be present even when empty
	require.Contains(t, pagador, "logradouro")
	require.Contains(t, pagador, "bairro")

	require.Equal(t, "000123", slip.ExternalID)
	require.Equal(t, "EMITIDO", slip.Situation)

	parsed, err := url.Parse(slip.DocumentURL)
	require.NoError(t, err)
	require.Equal(t, "boletos.bank.com.br", parsed.Host)
}

func TestIssueRejectedCarriesBankMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"mensagem": "CEP invalido", "codigo": "422"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Issue(context.Background(), issueReq())
	require.True(t, errors.Is(err, issuerdomain.ErrRejected))
	require.Contains(t, err.Error(), "CEP invalido")
}

func TestIssueServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Issue(context.Background(), issueReq())
	require.True(t, errors.Is(err, issuerdomain.ErrUnavailable))
}

func TestIssueMissingExternalIDIsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"situacao": "EMITIDO"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Issue(context.Background(), issueReq())
	require.True(t, errors.Is(err, issuerdomain.ErrRejected))
}

func TestIssueUnconfiguredClient(t *testing.T) {
	client, err := New(config.Config{}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Issue(context.Background(), issueReq())
	require.True(t, errors.Is(err, issuerdomain.ErrNotConfigured))
}

func TestFormatAmount(t *testing.T) {
	cases := map[int64]string{
		100000: "1000.00",
		1:      "0.01",
		150_05: "150.05",
		0:      "0.00",
	}
	for cents, want := range cases {
		require.Equal(t, want, FormatAmount(cents))
	}
}
