package services_test

import (
	"context"

	"github.com/SscSPs/etat_civil_app/internal/adapters/renderer"
	"github.com/SscSPs/etat_civil_app/internal/apperrors"
	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portsrepo "github.com/SscSPs/etat_civil_app/internal/core/ports/repositories"
	"github.com/SscSPs/etat_civil_app/internal/core/services"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// frozenDeclarations answers reads of one declaration with a snapshot taken
// earlier, as a reader that lost a race would see it. Writes go to the store.
type frozenDeclarations struct {
	portsrepo.DeclarationRepositoryFacade
	snapshot domain.Declaration
}

func (f frozenDeclarations) FindDeclarationByID(ctx context.Context, declarationID string) (*domain.Declaration, error) {
	if declarationID != f.snapshot.ID {
		return f.DeclarationRepositoryFacade.FindDeclarationByID(ctx, declarationID)
	}
	d := f.snapshot
	return &d, nil
}

// An issuer that read the declaration before it was archived mints nothing.
func (s *WorkflowTestSuite) TestIssueAfterArchiveMintsNothing() {
	d := s.submitInline()
	validated, err := s.declaration.Validate(s.ctx, officer, d.ID)
	s.Require().NoError(err)

	late := services.NewCertificateService(services.CertificateDependencies{
		CertificateRepo:    s.store,
		DeclarationRepo:    frozenDeclarations{DeclarationRepositoryFacade: s.store, snapshot: *validated},
		HospitalRepo:       s.store,
		ActNumberAllocator: s.store,
		Sealer:             s.sealer,
		PaymentRail:        fakeRail{},
		Renderer:           renderer.JSONRenderer{},
		Documents:          s.documents,
		Tariff:             services.Tariff{UnitPrice: s.unitPrice, Currency: "XOF"},
	})

	_, err = s.declaration.Archive(s.ctx, officer, d.ID)
	s.Require().NoError(err)

	_, err = late.Issue(s.ctx, officer, d.ID)
	s.ErrorIs(err, apperrors.ErrPreconditionFailed)

	_, err = s.store.FindCertificateByDeclarationID(s.ctx, d.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
	stored, err := s.store.FindDeclarationByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusArchived, stored.Status)
	s.Empty(stored.CertificateID)

	_, err = s.certificate.Issue(s.ctx, officer, d.ID)
	s.ErrorIs(err, apperrors.ErrPreconditionFailed)
}

// An archive that loses the version race leaves the certificate accepting downloads.
func (s *WorkflowTestSuite) TestStaleArchiveLeavesCertificateLive() {
	d, c := s.issued()
	snapshot, err := s.store.FindDeclarationByID(s.ctx, d.ID)
	s.Require().NoError(err)

	// A concurrent writer moves the version on.
	moved := *snapshot
	s.Require().NoError(s.store.UpdateDeclaration(s.ctx, &moved))

	stale := services.NewDeclarationService(
		frozenDeclarations{DeclarationRepositoryFacade: s.store, snapshot: *snapshot},
		s.store,
		domain.WorkflowPolicy{},
	)
	_, err = stale.Archive(s.ctx, officer, d.ID)
	s.ErrorIs(err, apperrors.ErrConflict)

	live, err := s.certificate.GetCertificate(s.ctx, guardian, c.ID)
	s.Require().NoError(err)
	s.False(live.Archived)
	s.Nil(live.ArchivedAt)
	stored, err := s.store.FindDeclarationByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusValidated, stored.Status)

	_, err = s.certificate.RequestDownload(s.ctx, guardian, c.ID, 1, domain.PaymentWave)
	s.NoError(err)

	archived, err := s.declaration.Archive(s.ctx, officer, d.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusArchived, archived.Status)
	after, err := s.certificate.GetCertificate(s.ctx, guardian, c.ID)
	s.Require().NoError(err)
	s.True(after.Archived)
	s.Equal(archived.ArchivedAt, after.ArchivedAt)
}

// Cached totals equal the ledger fold after cancellations and concurrent
// confirmations of distinct references on one certificate.
func (s *WorkflowTestSuite) TestLedgerStaysConsistentAcrossEntries() {
	_, c := s.issued()

	methods := []domain.PaymentMethod{
		domain.PaymentWave, domain.PaymentOrangeMoney, domain.PaymentFreeMoney, domain.PaymentCard, domain.PaymentWave,
	}
	entries := make([]domain.DownloadEntry, 0, len(methods))
	for i, method := range methods {
		req, err := s.certificate.RequestDownload(s.ctx, guardian, c.ID, i+1, method)
		s.Require().NoError(err)
		entries = append(entries, req.Entry)
	}

	cancelled := entries[1]
	_, err := s.certificate.CancelDownload(s.ctx, guardian, cancelled.PaymentReference)
	s.Require().NoError(err)

	var g errgroup.Group
	for i, entry := range entries {
		if i == 1 {
			continue
		}
		// Each reference is confirmed by several rail retries at once.
		for range 3 {
			g.Go(func() error {
				_, err := s.certificate.ConfirmPayment(s.ctx, entry.PaymentReference, entry.Amount)
				return err
			})
		}
	}
	s.Require().NoError(g.Wait())

	_, err = s.certificate.ConfirmPayment(s.ctx, cancelled.PaymentReference, cancelled.Amount)
	s.ErrorIs(err, apperrors.ErrInvalidReference)

	const paidCopies = 1 + 3 + 4 + 5
	after, err := s.certificate.GetCertificate(s.ctx, guardian, c.ID)
	s.Require().NoError(err)
	s.Equal(int64(paidCopies), after.TotalDownloads)
	s.True(after.TotalCollected.Equal(s.unitPrice.Mul(decimal.NewFromInt(paidCopies))), after.TotalCollected.String())

	audit, err := s.certificate.AuditTotals(s.ctx, officer, c.ID)
	s.Require().NoError(err)
	s.True(audit.Consistent())
	s.True(audit.SealValid)
	s.Equal(len(entries), audit.Entries)
	s.Equal(int64(paidCopies), audit.Recomputed.Downloads)

	ledger, err := s.certificate.ListDownloads(s.ctx, guardian, c.ID)
	s.Require().NoError(err)
	statuses := map[domain.PaymentStatus]int{}
	for _, e := range ledger {
		statuses[e.Status]++
	}
	s.Equal(map[domain.PaymentStatus]int{domain.PaymentPaid: 4, domain.PaymentCancelled: 1}, statuses)
}
