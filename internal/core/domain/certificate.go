package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is a payment rail accepted for certificate downloads.
type PaymentMethod string

const (
	PaymentWave        PaymentMethod = "wave"
	PaymentOrangeMoney PaymentMethod = "orange_money"
	PaymentFreeMoney   PaymentMethod = "free_money"
	PaymentCard        PaymentMethod = "card"
)

// Valid reports whether m is an accepted payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentWave, PaymentOrangeMoney, PaymentFreeMoney, PaymentCard:
		return true
	}
	return false
}

// PaymentStatus is the state of one download ledger entry.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
)

// SubjectSnapshot freezes the declared facts at issuance time. Later edits to
// the declaration never reach an issued certificate.
type SubjectSnapshot struct {
	Child             Child  `json:"child"`
	Father            Parent `json:"father"`
	Mother            Parent `json:"mother"`
	HospitalName      string `json:"hospitalName"`
	RegionID          string `json:"regionID"`
	DepartmentID      string `json:"departmentID"`
	CommuneID         string `json:"communeID"`
	MunicipalOfficeID string `json:"municipalOfficeID"`
}

// Certificate is the official birth certificate (acte de naissance) issued
// once per validated declaration.
type Certificate struct {
	ID             string `json:"id"`
	DeclarationID  string `json:"declarationID"`
	GuardianID     string `json:"guardianID"`
	RegistryNumber string `json:"registryNumber"`
	Year           int    `json:"year"`
	ActNumber      int64  `json:"actNumber"`

	Subject SubjectSnapshot `json:"subject"`

	SerialStamp string `json:"serialStamp"`
	DigitalSeal string `json:"digitalSeal"`
	Nonce       string `json:"-"`

	UnitPrice decimal.Decimal `json:"unitPrice"`
	Currency  string          `json:"currency"`

	TotalDownloads int64           `json:"totalDownloads"`
	TotalCollected decimal.Decimal `json:"totalCollected"`

	Archived   bool       `json:"archived"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`

	IssuedBy string    `json:"issuedBy"`
	IssuedAt time.Time `json:"issuedAt"`
}

// Reference is the human readable registry identifier of the act.
func (c *Certificate) Reference() string {
	return fmt.Sprintf("%s/%d/%06d", c.RegistryNumber, c.Year, c.ActNumber)
}

// AmountFor prices a download of quantity copies at the tariff frozen at issuance.
func (c *Certificate) AmountFor(quantity int) decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// CachedTotals returns the running totals stored on the certificate.
func (c *Certificate) CachedTotals() LedgerTotals {
	return LedgerTotals{Downloads: c.TotalDownloads, Collected: c.TotalCollected}
}

// DownloadEntry is one append-only line of a certificate's download ledger.
type DownloadEntry struct {
	ID               string          `json:"id"`
	CertificateID    string          `json:"certificateID"`
	Quantity         int             `json:"quantity"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	PaymentReference string          `json:"paymentReference"`
	PaymentURL       string          `json:"paymentURL,omitempty"`
	Status           PaymentStatus   `json:"status"`
	FileRef          string          `json:"fileRef,omitempty"`
	RequestedBy      string          `json:"requestedBy"`
	RequestedAt      time.Time       `json:"requestedAt"`
	PaidAt           *time.Time      `json:"paidAt,omitempty"`
	CancelledAt      *time.Time      `json:"cancelledAt,omitempty"`
}

// ConsistentWith reports whether the entry's amount still matches quantity × unitPrice.
func (e *DownloadEntry) ConsistentWith(unitPrice decimal.Decimal) bool {
	if e.Quantity < 1 {
		return false
	}
	return e.Amount.Equal(unitPrice.Mul(decimal.NewFromInt(int64(e.Quantity))))
}

// LedgerTotals is the fold of the paid entries of a ledger.
type LedgerTotals struct {
	Downloads int64           `json:"downloads"`
	Collected decimal.Decimal `json:"collected"`
}

// Equal compares totals by value.
func (t LedgerTotals) Equal(o LedgerTotals) bool {
	return t.Downloads == o.Downloads && t.Collected.Equal(o.Collected)
}

// FoldTotals recomputes the totals from the ledger. Only paid entries count.
func FoldTotals(entries []DownloadEntry) LedgerTotals {
	totals := LedgerTotals{Collected: decimal.Zero}
	for _, e := range entries {
		if e.Status != PaymentPaid {
			continue
		}
		totals.Downloads += int64(e.Quantity)
		totals.Collected = totals.Collected.Add(e.Amount)
	}
	return totals
}

// PaymentSettlement is the outcome of marking a ledger entry paid.
// Applied is false when the entry had already been paid by an earlier call.
type PaymentSettlement struct {
	Entry       DownloadEntry
	Certificate Certificate
	Applied     bool
}
