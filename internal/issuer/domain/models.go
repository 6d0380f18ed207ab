package domain

import (
	"context"
	"errors"
	"time"

	"github.com/saudecred/cobranca/internal/payer"
)

// IssueRequest carries everything the bank needs to register one slip.
type IssueRequest struct {
	DocumentNumber string
	DueDate        time.Time
	AmountCents    int64
	Description    string
	Payer          payer.Profile
}

// IssuedSlip is the normalized issuance response.
//
// ExternalID is the bank-assigned "nosso número". The sandbox has been
// observed returning the same ExternalID for distinct slips, so it must
// never be treated as a business key; only DocumentNumber is.
type IssuedSlip struct {
	ExternalID  string
	Barcode     string // 44 digits
	PaymentLine string // 47 digits, FEBRABAN layout
	DocumentURL string
	QRCode      string
	Situation   string
	Raw         map[string]any
}

// Client issues slips at the bank. Calls must be paced by the caller; an
// error return is not safe to retry blindly within the same batch.
type Client interface {
	Issue(ctx context.Context, req IssueRequest) (*IssuedSlip, error)
}

var (
	ErrNotConfigured = errors.New("issuer client is not configured")
	ErrRejected      = errors.New("issuer rejected the slip")
	ErrUnavailable   = errors.New("issuer unavailable")
)
