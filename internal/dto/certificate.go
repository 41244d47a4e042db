package dto

import (
	"time"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CertificateResponse defines the data returned for an issued certificate.
type CertificateResponse struct {
	domain.Certificate
	Reference string `json:"reference"`
}

// ToCertificateResponse converts a domain.Certificate to CertificateResponse DTO.
func ToCertificateResponse(c *domain.Certificate) CertificateResponse {
	return CertificateResponse{Certificate: *c, Reference: c.Reference()}
}

// RequestDownloadRequest asks for paid copies of a certificate.
type RequestDownloadRequest struct {
	Quantity      int                  `json:"quantity" binding:"required,min=1,max=50"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod" binding:"required,payment_method"`
}

// DownloadRequestResponse is what the caller needs to hand over to the payment rail.
type DownloadRequestResponse struct {
	PaymentReference string               `json:"paymentReference"`
	Quantity         int                  `json:"quantity"`
	Amount           decimal.Decimal      `json:"amount"`
	Currency         string               `json:"currency"`
	PaymentMethod    domain.PaymentMethod `json:"paymentMethod"`
	PaymentURL       string               `json:"paymentURL"`
	Status           domain.PaymentStatus `json:"status"`
}

// ConfirmPaymentRequest is the payment rail callback payload. PaidAmount is
// what the rail collected and must equal the amount due.
type ConfirmPaymentRequest struct {
	PaymentReference string           `json:"paymentReference" binding:"required"`
	PaidAmount       *decimal.Decimal `json:"paidAmount" binding:"required"`
}

// PaymentConfirmationResponse returns the delivered file of a paid entry.
type PaymentConfirmationResponse struct {
	PaymentReference string          `json:"paymentReference"`
	CertificateID    string          `json:"certificateID"`
	FileRef          string          `json:"fileRef"`
	Quantity         int             `json:"quantity"`
	Amount           decimal.Decimal `json:"amount"`
	AlreadyConfirmed bool            `json:"alreadyConfirmed"`
	PaidAt           *time.Time      `json:"paidAt,omitempty"`
}

// LedgerAuditResponse compares the cached totals with a fresh fold of the ledger.
type LedgerAuditResponse struct {
	CertificateID string              `json:"certificateID"`
	Cached        domain.LedgerTotals `json:"cached"`
	Recomputed    domain.LedgerTotals `json:"recomputed"`
	Consistent    bool                `json:"consistent"`
	Entries       int                 `json:"entries"`
	SealValid     bool                `json:"sealValid"`
}

// ListDownloadsResponse wraps the ledger of a certificate.
type ListDownloadsResponse struct {
	Entries []domain.DownloadEntry `json:"entries"`
}

// DocumentUploadResponse returns the opaque reference of a stored attachment.
type DocumentUploadResponse struct {
	Ref string `json:"ref"`
}
