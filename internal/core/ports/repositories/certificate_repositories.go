package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
)

// CertificateReader defines read operations for issued certificates
type CertificateReader interface {
	FindCertificateByID(ctx context.Context, certificateID string) (*domain.Certificate, error)
	FindCertificateByDeclarationID(ctx context.Context, declarationID string) (*domain.Certificate, error)
}

// CertificateWriter defines write operations for issued certificates
type CertificateWriter interface {
	// IssueCertificate inserts certificate and sets the declaration's back-reference
	// atomically. A certificate already present for the declaration fails with
	// apperrors.ErrAlreadyIssued; a taken act number fails with apperrors.ErrConflict.
	// A declaration that is no longer validated at write time fails with
	// apperrors.ErrPreconditionFailed.
	IssueCertificate(ctx context.Context, certificate *domain.Certificate) error
}

// DownloadLedger defines the append-only ledger operations of a certificate.
type DownloadLedger interface {
	// AppendDownloadEntry appends a pending entry; archived certificates fail with apperrors.ErrArchived.
	AppendDownloadEntry(ctx context.Context, entry *domain.DownloadEntry) error

	FindDownloadEntryByReference(ctx context.Context, paymentReference string) (*domain.DownloadEntry, error)
	ListDownloadEntries(ctx context.Context, certificateID string) ([]domain.DownloadEntry, error)

	// MarkDownloadPaid flips a pending entry to paid, attaches fileRef and
	// recomputes the certificate totals from the ledger, all in one unit.
	// An entry that is already paid is returned unchanged with Applied=false.
	// Cancelled entries fail with apperrors.ErrInvalidReference.
	MarkDownloadPaid(ctx context.Context, paymentReference string, fileRef string, paidAt time.Time) (*domain.PaymentSettlement, error)

	// CancelDownload flips a pending entry to cancelled. Any other status fails
	// with apperrors.ErrPreconditionFailed.
	CancelDownload(ctx context.Context, paymentReference string, cancelledAt time.Time) (*domain.DownloadEntry, error)
}

// CertificateRepositoryFacade combines all certificate-related repository interfaces
type CertificateRepositoryFacade interface {
	CertificateReader
	CertificateWriter
	DownloadLedger
}

// ActNumberAllocator owns the per-registry, per-year act number sequence.
// Next returns strictly increasing numbers for the same (registryNumber, year),
// starting at 1, and never hands the same number out twice.
type ActNumberAllocator interface {
	NextActNumber(ctx context.Context, registryNumber string, year int) (int64, error)
}
