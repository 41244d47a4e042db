package renderer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

const ContentTypeJSON = "application/json"

// document is the extract delivered to a paying guardian.
type document struct {
	Reference      string                 `json:"reference"`
	RegistryNumber string                 `json:"registryNumber"`
	Year           int                    `json:"year"`
	ActNumber      int64                  `json:"actNumber"`
	Subject        domain.SubjectSnapshot `json:"subject"`
	SerialStamp    string                 `json:"serialStamp"`
	DigitalSeal    string                 `json:"digitalSeal"`
	IssuedAt       time.Time              `json:"issuedAt"`
	Copies         int                    `json:"copies"`
	Paid           decimal.Decimal        `json:"paid"`
	Currency       string                 `json:"currency"`
	Payment        string                 `json:"paymentReference"`
}

// JSONRenderer renders certificates as signed JSON extracts.
type JSONRenderer struct{}

var _ portssvc.CertificateRenderer = JSONRenderer{}

func (JSONRenderer) Render(_ context.Context, c *domain.Certificate, e *domain.DownloadEntry) ([]byte, string, error) {
	if c == nil || e == nil {
		return nil, "", fmt.Errorf("render needs a certificate and a ledger entry")
	}
	body, err := json.MarshalIndent(document{
		Reference:      c.Reference(),
		RegistryNumber: c.RegistryNumber,
		Year:           c.Year,
		ActNumber:      c.ActNumber,
		Subject:        c.Subject,
		SerialStamp:    c.SerialStamp,
		DigitalSeal:    c.DigitalSeal,
		IssuedAt:       c.IssuedAt,
		Copies:         e.Quantity,
		Paid:           e.Amount,
		Currency:       c.Currency,
		Payment:        e.PaymentReference,
	}, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encode certificate %s: %w", c.ID, err)
	}
	return body, ContentTypeJSON, nil
}
