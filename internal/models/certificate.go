package models

import (
	"time"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Certificate is the row of the certificates table.
type Certificate struct {
	CertificateID  string                 `db:"certificate_id"`
	DeclarationID  string                 `db:"declaration_id"`
	GuardianID     string                 `db:"guardian_id"`
	RegistryNumber string                 `db:"registry_number"`
	Year           int                    `db:"year"`
	ActNumber      int64                  `db:"act_number"`
	Subject        domain.SubjectSnapshot `db:"subject"`
	SerialStamp    string                 `db:"serial_stamp"`
	DigitalSeal    string                 `db:"digital_seal"`
	Nonce          string                 `db:"nonce"`
	UnitPrice      decimal.Decimal        `db:"unit_price"`
	Currency       string                 `db:"currency"`
	TotalDownloads int64                  `db:"total_downloads"`
	TotalCollected decimal.Decimal        `db:"total_collected"`
	Archived       bool                   `db:"archived"`
	ArchivedAt     *time.Time             `db:"archived_at"`
	IssuedBy       string                 `db:"issued_by"`
	IssuedAt       time.Time              `db:"issued_at"`
}

// DownloadEntry is the row of the download_entries ledger table.
type DownloadEntry struct {
	EntryID          string          `db:"entry_id"`
	CertificateID    string          `db:"certificate_id"`
	Quantity         int             `db:"quantity"`
	Amount           decimal.Decimal `db:"amount"`
	PaymentMethod    string          `db:"payment_method"`
	PaymentReference string          `db:"payment_reference"`
	PaymentURL       *string         `db:"payment_url"`
	Status           string          `db:"status"`
	FileRef          *string         `db:"file_ref"`
	RequestedBy      string          `db:"requested_by"`
	RequestedAt      time.Time       `db:"requested_at"`
	PaidAt           *time.Time      `db:"paid_at"`
	CancelledAt      *time.Time      `db:"cancelled_at"`
}

func ToDomainCertificate(m Certificate) domain.Certificate {
	return domain.Certificate{
		ID:             m.CertificateID,
		DeclarationID:  m.DeclarationID,
		GuardianID:     m.GuardianID,
		RegistryNumber: m.RegistryNumber,
		Year:           m.Year,
		ActNumber:      m.ActNumber,
		Subject:        m.Subject,
		SerialStamp:    m.SerialStamp,
		DigitalSeal:    m.DigitalSeal,
		Nonce:          m.Nonce,
		UnitPrice:      m.UnitPrice,
		Currency:       m.Currency,
		TotalDownloads: m.TotalDownloads,
		TotalCollected: m.TotalCollected,
		Archived:       m.Archived,
		ArchivedAt:     m.ArchivedAt,
		IssuedBy:       m.IssuedBy,
		IssuedAt:       m.IssuedAt,
	}
}

func FromDomainCertificate(c domain.Certificate) Certificate {
	return Certificate{
		CertificateID:  c.ID,
		DeclarationID:  c.DeclarationID,
		GuardianID:     c.GuardianID,
		RegistryNumber: c.RegistryNumber,
		Year:           c.Year,
		ActNumber:      c.ActNumber,
		Subject:        c.Subject,
		SerialStamp:    c.SerialStamp,
		DigitalSeal:    c.DigitalSeal,
		Nonce:          c.Nonce,
		UnitPrice:      c.UnitPrice,
		Currency:       c.Currency,
		TotalDownloads: c.TotalDownloads,
		TotalCollected: c.TotalCollected,
		Archived:       c.Archived,
		ArchivedAt:     c.ArchivedAt,
		IssuedBy:       c.IssuedBy,
		IssuedAt:       c.IssuedAt,
	}
}

func ToDomainDownloadEntry(m DownloadEntry) domain.DownloadEntry {
	return domain.DownloadEntry{
		ID:               m.EntryID,
		CertificateID:    m.CertificateID,
		Quantity:         m.Quantity,
		Amount:           m.Amount,
		PaymentMethod:    domain.PaymentMethod(m.PaymentMethod),
		PaymentReference: m.PaymentReference,
		PaymentURL:       deref(m.PaymentURL),
		Status:           domain.PaymentStatus(m.Status),
		FileRef:          deref(m.FileRef),
		RequestedBy:      m.RequestedBy,
		RequestedAt:      m.RequestedAt,
		PaidAt:           m.PaidAt,
		CancelledAt:      m.CancelledAt,
	}
}

func FromDomainDownloadEntry(e domain.DownloadEntry) DownloadEntry {
	return DownloadEntry{
		EntryID:          e.ID,
		CertificateID:    e.CertificateID,
		Quantity:         e.Quantity,
		Amount:           e.Amount,
		PaymentMethod:    string(e.PaymentMethod),
		PaymentReference: e.PaymentReference,
		PaymentURL:       nullable(e.PaymentURL),
		Status:           string(e.Status),
		FileRef:          nullable(e.FileRef),
		RequestedBy:      e.RequestedBy,
		RequestedAt:      e.RequestedAt,
		PaidAt:           e.PaidAt,
		CancelledAt:      e.CancelledAt,
	}
}

// ToDomainDownloadEntries converts a slice of ledger rows.
func ToDomainDownloadEntries(ms []DownloadEntry) []domain.DownloadEntry {
	entries := make([]domain.DownloadEntry, len(ms))
	for i, m := range ms {
		entries[i] = ToDomainDownloadEntry(m)
	}
	return entries
}
