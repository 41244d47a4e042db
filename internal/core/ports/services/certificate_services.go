package services

import (
	"context"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CertificateReaderSvc defines read operations for certificates and their ledger
type CertificateReaderSvc interface {
	GetCertificate(ctx context.Context, actor domain.Actor, certificateID string) (*domain.Certificate, error)
	GetCertificateByDeclaration(ctx context.Context, actor domain.Actor, declarationID string) (*domain.Certificate, error)
	ListDownloads(ctx context.Context, actor domain.Actor, certificateID string) ([]domain.DownloadEntry, error)

	// AuditTotals recomputes the ledger fold and compares it with the cached totals.
	AuditTotals(ctx context.Context, actor domain.Actor, certificateID string) (*LedgerAudit, error)

	// FetchDocument returns the delivered file of a paid ledger entry.
	FetchDocument(ctx context.Context, actor domain.Actor, paymentReference string) ([]byte, error)
}

// CertificateIssuerSvc mints certificates for validated declarations
type CertificateIssuerSvc interface {
	// Issue returns the new certificate, or the existing one together with
	// apperrors.ErrAlreadyIssued.
	Issue(ctx context.Context, actor domain.Actor, declarationID string) (*domain.Certificate, error)
}

// DownloadLedgerSvc defines the paid download operations
type DownloadLedgerSvc interface {
	RequestDownload(ctx context.Context, actor domain.Actor, certificateID string, quantity int, method domain.PaymentMethod) (*DownloadRequest, error)

	// ConfirmPayment is called by the payment rail with the amount it
	// collected, which must equal the amount due. It is idempotent.
	ConfirmPayment(ctx context.Context, paymentReference string, paidAmount decimal.Decimal) (*PaymentConfirmation, error)

	CancelDownload(ctx context.Context, actor domain.Actor, paymentReference string) (*domain.DownloadEntry, error)
}

// CertificateSvcFacade combines all certificate-related service interfaces
type CertificateSvcFacade interface {
	CertificateReaderSvc
	CertificateIssuerSvc
	DownloadLedgerSvc
}

// DownloadRequest is returned to the requester of a paid download.
type DownloadRequest struct {
	Entry    domain.DownloadEntry
	Currency string
}

// PaymentConfirmation is the outcome of ConfirmPayment.
type PaymentConfirmation struct {
	Entry            domain.DownloadEntry
	AlreadyConfirmed bool
}

// LedgerAudit compares cached and recomputed totals of a certificate.
type LedgerAudit struct {
	CertificateID string
	Cached        domain.LedgerTotals
	Recomputed    domain.LedgerTotals
	Entries       int
	// SealValid reports whether the stored stamp and seal still match the certificate content.
	SealValid bool
}

// Consistent reports whether the cached totals equal the fold of the ledger.
func (a LedgerAudit) Consistent() bool {
	return a.Cached.Equal(a.Recomputed)
}
