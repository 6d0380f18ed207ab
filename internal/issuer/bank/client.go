package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/saudecred/cobranca/internal/config"
	"github.com/saudecred/cobranca/internal/issuer/domain"
	"go.uber.org/zap"
)

const issueTimeout = 30 * time.Second

// Client talks to the bank's slip registration API.
type Client struct {
	http             *http.Client
	log              *zap.Logger
	baseURL          string
	token            string
	beneficiaryCode  string
	beneficiaryTaxID string
	internalHost     string
	publicHost       string
}

func New(cfg config.Config, log *zap.Logger) (domain.Client, error) {
	issuer := cfg.Issuer
	if issuer.BaseURL == "" {
		log.Warn("issuer base url not configured, issuance disabled")
		return &Client{log: log.Named("issuer.bank")}, nil
	}

	code, err := issuer.BeneficiaryCode()
	if err != nil {
		return nil, err
	}

	return &Client{
		http:             &http.Client{Timeout: issueTimeout},
		log:              log.Named("issuer.bank"),
		baseURL:          issuer.BaseURL,
		token:            issuer.Token,
		beneficiaryCode:  code,
		beneficiaryTaxID: issuer.BeneficiaryTaxID,
		internalHost:     issuer.InternalHost,
		publicHost:       issuer.PublicHost,
	}, nil
}

type issueRequest struct {
	DocumentNumber   string       `json:"numeroDocumento"`
	DueDate          string       `json:"dataVencimento"`
	Amount           string       `json:"valor"`
	BeneficiaryTaxID string       `json:"cnpjBeneficiario,omitempty"`
	Instructions     string       `json:"instrucoes,omitempty"`
	Payer            issuePayer   `json:"pagador"`
}

type issuePayer struct {
	DocumentNumber string `json:"numeroDocumento"`
	Name           string `json:"nome"`
	Street         string `json:"logradouro"`
	Number         string `json:"numero"`
	District       string `json:"bairro"`
	City           string `json:"cidade"`
	State          string `json:"uf"`
	PostalCode     string `json:"cep"`
}

type issueResponse struct {
	ExternalID  string `json:"nossoNumero"`
	Barcode     string `json:"codigoBarras"`
	PaymentLine string `json:"linhaDigitavel"`
	DocumentURL string `json:"url"`
	QRCode      string `json:"qrCode"`
	Situation   string `json:"situacao"`
}

type issueError struct {
	Message string `json:"mensagem"`
	Code    string `json:"codigo"`
}

func (c *Client) Issue(ctx context.Context, req domain.IssueRequest) (*domain.IssuedSlip, error) {
	if c.http == nil {
		return nil, domain.ErrNotConfigured
	}

	payload := issueRequest{
		DocumentNumber:   req.DocumentNumber,
		DueDate:          req.DueDate.Format("2006-01-02"),
		Amount:           FormatAmount(req.AmountCents),
		BeneficiaryTaxID: c.beneficiaryTaxID,
		Instructions:     req.Description,
		Payer: issuePayer{
			DocumentNumber: req.Payer.DocumentNumber,
			Name:           req.Payer.Name,
			Street:         req.Payer.Street,
			Number:         req.Payer.Number,
			District:       req.Payer.District,
			City:           req.Payer.City,
			State:          req.Payer.State,
			PostalCode:     req.Payer.PostalCode,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode issue request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/beneficiarios/%s/boletos", c.baseURL, c.beneficiaryCode)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build issue request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read issue response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var apiErr issueError
		_ = json.Unmarshal(raw, &apiErr)
		if apiErr.Message != "" {
			return nil, fmt.Errorf("%w: %s (%s)", domain.ErrRejected, apiErr.Message, apiErr.Code)
		}
		return nil, fmt.Errorf("%w: status %d", domain.ErrRejected, resp.StatusCode)
	}

	var decoded issueResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode issue response: %w", err)
	}
	if strings.TrimSpace(decoded.ExternalID) == "" {
		return nil, fmt.Errorf("%w: response carries no document identifier", domain.ErrRejected)
	}

	var rawMap map[string]any
	_ = json.Unmarshal(raw, &rawMap)

	return &domain.IssuedSlip{
		ExternalID:  strings.TrimSpace(decoded.ExternalID),
		Barcode:     strings.TrimSpace(decoded.Barcode),
		PaymentLine: strings.TrimSpace(decoded.PaymentLine),
		DocumentURL: c.normalizeDocumentURL(decoded.DocumentURL),
		QRCode:      strings.TrimSpace(decoded.QRCode),
		Situation:   strings.TrimSpace(decoded.Situation),
		Raw:         rawMap,
	}, nil
}

// normalizeDocumentURL rewrites the issuer's internal host to the public
// one. The sandbox hands back URLs on a non-routable host.
func (c *Client) normalizeDocumentURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || c.internalHost == "" || c.publicHost == "" {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if !strings.EqualFold(parsed.Host, c.internalHost) {
		return raw
	}
	parsed.Host = c.publicHost
	return parsed.String()
}

// FormatAmount renders cents as the decimal string the bank expects.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
