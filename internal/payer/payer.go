package payer

import (
	"errors"
	"strings"

	patientdomain "github.com/saudecred/cobranca/internal/patient/domain"
)

// ErrMissingIdentity is returned when the patient record lacks the fields
// the bank requires to register a payer. Issuance must not proceed.
var ErrMissingIdentity = errors.New("missing_payer_identity")

// Profile carries the sanitized payer fields the issuer payload needs.
// Optional address fields default to empty strings; the bank API requires
// the keys present even when blank.
type Profile struct {
	DocumentNumber string
	Name           string
	Street         string
	Number         string
	District       string
	City           string
	State          string
	PostalCode     string
}

// FromPatient derives a Profile from a raw patient record. Numeric-looking
// fields are stripped to digits only.
func FromPatient(p patientdomain.Patient) (Profile, error) {
	document := digitsOnly(p.DocumentNumber)
	name := strings.TrimSpace(p.Name)
	if document == "" || name == "" {
		return Profile{}, ErrMissingIdentity
	}

	return Profile{
		DocumentNumber: document,
		Name:           name,
		Street:         strings.TrimSpace(p.Street),
		Number:         strings.TrimSpace(p.Number),
		District:       strings.TrimSpace(p.District),
		City:           strings.TrimSpace(p.City),
		State:          strings.ToUpper(strings.TrimSpace(p.State)),
		PostalCode:     digitsOnly(p.PostalCode),
	}, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
