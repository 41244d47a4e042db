package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/etat_civil_app/internal/apperrors"
	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portsrepo "github.com/SscSPs/etat_civil_app/internal/core/ports/repositories"
	"github.com/SscSPs/etat_civil_app/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxCertificateRepository struct {
	BaseRepository
}

// newPgxCertificateRepository creates a new repository for certificates and their ledgers.
func newPgxCertificateRepository(pool *pgxpool.Pool) *PgxCertificateRepository {
	return &PgxCertificateRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CertificateRepositoryFacade = (*PgxCertificateRepository)(nil)

const certificateSelect = `
SELECT certificate_id, declaration_id, guardian_id, registry_number, year, act_number,
	subject, serial_stamp, digital_seal, nonce, unit_price, currency,
	total_downloads, total_collected, archived, archived_at, issued_by, issued_at
FROM certificates
`

const entrySelect = `
SELECT entry_id, certificate_id, quantity, amount, payment_method, payment_reference,
	payment_url, status, file_ref, requested_by, requested_at, paid_at, cancelled_at
FROM download_entries
`

// Constraint names from the migrations.
const (
	constraintCertificateDeclaration = "certificates_declaration_id_key"
	constraintCertificateAct         = "certificates_registry_year_act_key"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PgxCertificateRepository) findCertificate(ctx context.Context, q querier, where string, arg any) (*domain.Certificate, error) {
	rows, err := q.Query(ctx, certificateSelect+where, arg)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query certificate", err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Certificate])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("certificate %v", arg))
		}
		return nil, apperrors.NewAppError(500, "failed to scan certificate", err)
	}
	c := models.ToDomainCertificate(row)
	return &c, nil
}

func (r *PgxCertificateRepository) FindCertificateByID(ctx context.Context, certificateID string) (*domain.Certificate, error) {
	return r.findCertificate(ctx, r.Pool, "WHERE certificate_id = $1;", certificateID)
}

func (r *PgxCertificateRepository) FindCertificateByDeclarationID(ctx context.Context, declarationID string) (*domain.Certificate, error) {
	return r.findCertificate(ctx, r.Pool, "WHERE declaration_id = $1;", declarationID)
}

// IssueCertificate inserts the certificate and sets the declaration back-reference in one transaction.
func (r *PgxCertificateRepository) IssueCertificate(ctx context.Context, certificate *domain.Certificate) error {
	m := models.FromDomainCertificate(*certificate)
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO certificates (
				certificate_id, declaration_id, guardian_id, registry_number, year, act_number,
				subject, serial_stamp, digital_seal, nonce, unit_price, currency,
				total_downloads, total_collected, archived, issued_by, issued_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, 0, FALSE, $13, $14);
		`,
			m.CertificateID, m.DeclarationID, m.GuardianID, m.RegistryNumber, m.Year, m.ActNumber,
			m.Subject, m.SerialStamp, m.DigitalSeal, m.Nonce, m.UnitPrice, m.Currency,
			m.IssuedBy, m.IssuedAt,
		)
		if err != nil {
			if constraint, ok := uniqueConstraint(err); ok {
				switch constraint {
				case constraintCertificateDeclaration:
					return fmt.Errorf("%w: declaration %s", apperrors.ErrAlreadyIssued, certificate.DeclarationID)
				case constraintCertificateAct:
					return apperrors.NewConflictError("act number " + certificate.Reference() + " is taken")
				}
				return apperrors.NewConflictError("certificate " + certificate.ID + " already exists")
			}
			return apperrors.NewAppError(500, "failed to insert certificate "+certificate.ID, err)
		}

		result, err := tx.Exec(ctx, `
			UPDATE declarations
			SET certificate_id = $1
			WHERE declaration_id = $2 AND certificate_id IS NULL AND status = $3;
		`, certificate.ID, certificate.DeclarationID, string(domain.StatusValidated))
		if err != nil {
			return apperrors.NewAppError(500, "failed to link certificate to declaration "+certificate.DeclarationID, err)
		}
		if result.RowsAffected() == 0 {
			return unlinkableDeclaration(ctx, tx, certificate.DeclarationID)
		}
		return nil
	})
}

// unlinkableDeclaration explains why the back-reference update matched no row.
func unlinkableDeclaration(ctx context.Context, tx pgx.Tx, declarationID string) error {
	var (
		status string
		linked bool
	)
	err := tx.QueryRow(ctx, `
		SELECT status, certificate_id IS NOT NULL FROM declarations WHERE declaration_id = $1;
	`, declarationID).Scan(&status, &linked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFoundError("declaration " + declarationID)
		}
		return apperrors.NewAppError(500, "failed to read declaration "+declarationID, err)
	}
	if linked {
		return fmt.Errorf("%w: declaration %s", apperrors.ErrAlreadyIssued, declarationID)
	}
	return apperrors.Precondition("declaration %s is %s, only validated declarations can be issued", declarationID, status)
}

// AppendDownloadEntry locks the certificate row so an archive in flight cannot
// slip between the archived check and the insert.
func (r *PgxCertificateRepository) AppendDownloadEntry(ctx context.Context, entry *domain.DownloadEntry) error {
	m := models.FromDomainDownloadEntry(*entry)
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		var archived bool
		err := tx.QueryRow(ctx, `SELECT archived FROM certificates WHERE certificate_id = $1 FOR UPDATE;`, entry.CertificateID).Scan(&archived)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFoundError("certificate " + entry.CertificateID)
			}
			return apperrors.NewAppError(500, "failed to lock certificate "+entry.CertificateID, err)
		}
		if archived {
			return fmt.Errorf("%w: certificate %s", apperrors.ErrArchived, entry.CertificateID)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO download_entries (
				entry_id, certificate_id, quantity, amount, payment_method, payment_reference,
				payment_url, status, requested_by, requested_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
		`,
			m.EntryID, m.CertificateID, m.Quantity, m.Amount, m.PaymentMethod, m.PaymentReference,
			m.PaymentURL, m.Status, m.RequestedBy, m.RequestedAt,
		)
		if err != nil {
			if _, ok := uniqueConstraint(err); ok {
				return apperrors.NewConflictError("payment reference " + entry.PaymentReference + " already used")
			}
			return apperrors.NewAppError(500, "failed to append download entry", err)
		}
		return nil
	})
}

func (r *PgxCertificateRepository) FindDownloadEntryByReference(ctx context.Context, paymentReference string) (*domain.DownloadEntry, error) {
	rows, err := r.Pool.Query(ctx, entrySelect+"WHERE payment_reference = $1;", paymentReference)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query download entry", err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.DownloadEntry])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("download entry " + paymentReference)
		}
		return nil, apperrors.NewAppError(500, "failed to scan download entry", err)
	}
	e := models.ToDomainDownloadEntry(row)
	return &e, nil
}

func (r *PgxCertificateRepository) ListDownloadEntries(ctx context.Context, certificateID string) ([]domain.DownloadEntry, error) {
	rows, err := r.Pool.Query(ctx, entrySelect+"WHERE certificate_id = $1 ORDER BY requested_at, entry_id;", certificateID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query download entries", err)
	}
	rowModels, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.DownloadEntry])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to collect download entries", err)
	}
	return models.ToDomainDownloadEntries(rowModels), nil
}

// lockEntry reads a ledger entry with a row lock. Unknown references map to ErrInvalidReference.
func lockEntry(ctx context.Context, tx pgx.Tx, paymentReference string) (*models.DownloadEntry, error) {
	rows, err := tx.Query(ctx, entrySelect+"WHERE payment_reference = $1 FOR UPDATE;", paymentReference)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to lock download entry", err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.DownloadEntry])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidReference, paymentReference)
		}
		return nil, apperrors.NewAppError(500, "failed to scan locked download entry", err)
	}
	return &row, nil
}

// lockCertificateOf takes the certificate row lock for the entry's certificate.
// Every ledger write locks the certificate before any entry row.
func lockCertificateOf(ctx context.Context, tx pgx.Tx, paymentReference string) error {
	var certificateID string
	err := tx.QueryRow(ctx, `SELECT certificate_id FROM download_entries WHERE payment_reference = $1;`, paymentReference).Scan(&certificateID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", apperrors.ErrInvalidReference, paymentReference)
		}
		return apperrors.NewAppError(500, "failed to resolve download entry "+paymentReference, err)
	}
	if _, err := tx.Exec(ctx, `SELECT 1 FROM certificates WHERE certificate_id = $1 FOR UPDATE;`, certificateID); err != nil {
		return apperrors.NewAppError(500, "failed to lock certificate "+certificateID, err)
	}
	return nil
}

// MarkDownloadPaid flips the entry and recomputes the certificate totals from
// the ledger in the same transaction. The certificate row is locked first, so
// the SUM runs after every earlier confirmation on that certificate committed.
func (r *PgxCertificateRepository) MarkDownloadPaid(ctx context.Context, paymentReference string, fileRef string, paidAt time.Time) (*domain.PaymentSettlement, error) {
	var settlement domain.PaymentSettlement
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		if err := lockCertificateOf(ctx, tx, paymentReference); err != nil {
			return err
		}
		row, err := lockEntry(ctx, tx, paymentReference)
		if err != nil {
			return err
		}

		switch domain.PaymentStatus(row.Status) {
		case domain.PaymentPaid:
			certificate, err := r.findCertificate(ctx, tx, "WHERE certificate_id = $1;", row.CertificateID)
			if err != nil {
				return err
			}
			settlement = domain.PaymentSettlement{Entry: models.ToDomainDownloadEntry(*row), Certificate: *certificate}
			return nil
		case domain.PaymentCancelled:
			return fmt.Errorf("%w: payment %s was cancelled", apperrors.ErrInvalidReference, paymentReference)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE download_entries
			SET status = $1, file_ref = $2, paid_at = $3
			WHERE entry_id = $4;
		`, string(domain.PaymentPaid), fileRef, paidAt, row.EntryID); err != nil {
			return apperrors.NewAppError(500, "failed to mark download entry paid", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE certificates c
			SET total_downloads = t.downloads, total_collected = t.collected
			FROM (
				SELECT COALESCE(SUM(quantity), 0) AS downloads, COALESCE(SUM(amount), 0) AS collected
				FROM download_entries
				WHERE certificate_id = $1 AND status = $2
			) t
			WHERE c.certificate_id = $1;
		`, row.CertificateID, string(domain.PaymentPaid)); err != nil {
			return apperrors.NewAppError(500, "failed to recompute certificate totals", err)
		}

		certificate, err := r.findCertificate(ctx, tx, "WHERE certificate_id = $1;", row.CertificateID)
		if err != nil {
			return err
		}

		row.Status = string(domain.PaymentPaid)
		row.FileRef = &fileRef
		row.PaidAt = &paidAt
		settlement = domain.PaymentSettlement{Entry: models.ToDomainDownloadEntry(*row), Certificate: *certificate, Applied: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &settlement, nil
}

func (r *PgxCertificateRepository) CancelDownload(ctx context.Context, paymentReference string, cancelledAt time.Time) (*domain.DownloadEntry, error) {
	var cancelled domain.DownloadEntry
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		row, err := lockEntry(ctx, tx, paymentReference)
		if err != nil {
			return err
		}
		if domain.PaymentStatus(row.Status) != domain.PaymentPending {
			return apperrors.Precondition("payment %s is %s, only pending payments can be cancelled", paymentReference, row.Status)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE download_entries
			SET status = $1, cancelled_at = $2
			WHERE entry_id = $3;
		`, string(domain.PaymentCancelled), cancelledAt, row.EntryID); err != nil {
			return apperrors.NewAppError(500, "failed to cancel download entry", err)
		}
		row.Status = string(domain.PaymentCancelled)
		row.CancelledAt = &cancelledAt
		cancelled = models.ToDomainDownloadEntry(*row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cancelled, nil
}
