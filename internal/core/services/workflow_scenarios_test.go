package services_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/SscSPs/etat_civil_app/internal/apperrors"
	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
)

type WorkflowTestSuite struct {
	workflowFixture
}

func TestWorkflow(t *testing.T) {
	suite.Run(t, new(WorkflowTestSuite))
}

func TestWorkflowWithCountersign(t *testing.T) {
	suite.Run(t, &CountersignTestSuite{workflowFixture{countersign: true}})
}

// A disputed birth certificate rejects the declaration and no certificate exists.
func (s *WorkflowTestSuite) TestHospitalDisputeRejects() {
	d := s.submitRegistered()
	s.Equal(domain.StatusSubmittedToMunicipal, d.Status)

	routed, err := s.declaration.RouteToHospital(s.ctx, officer, d.ID, "hosp-principal")
	s.Require().NoError(err)
	s.Equal(domain.StatusHospitalVerificationPending, routed.Status)

	rejected, err := s.declaration.Verify(s.ctx, verifier, d.ID, false, "illegible")
	s.Require().NoError(err)
	s.Equal(domain.StatusRejected, rejected.Status)
	s.Equal("illegible", rejected.HospitalRejectionReason)
	s.Equal(domain.AuthenticityFalse, rejected.BirthCertificate.Authenticity)

	_, err = s.certificate.GetCertificateByDeclaration(s.ctx, admin, d.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
	_, err = s.certificate.Issue(s.ctx, officer, d.ID)
	s.ErrorIs(err, apperrors.ErrPreconditionFailed)

	s.Equal([]domain.LifecycleEventKind{
		domain.EventSubmitted, domain.EventRouted, domain.EventVerified, domain.EventRejected,
	}, s.notifier.kindsFor(d.ID))
}

// Inline hospital, direct validation, idempotent issuance.
func (s *WorkflowTestSuite) TestIssueIsIdempotent() {
	d := s.submitInline()
	validated, err := s.declaration.Validate(s.ctx, officer, d.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusValidated, validated.Status)

	first, err := s.certificate.Issue(s.ctx, officer, d.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), first.ActNumber)
	s.Equal("office-dakar", first.RegistryNumber)
	s.Equal(2025, first.Year)
	s.Equal("Case de santé de Yoff", first.Subject.HospitalName)
	s.True(first.UnitPrice.Equal(s.unitPrice))
	s.True(s.sealer.Verify(first), "stamp and seal match the issued content")

	second, err := s.certificate.Issue(s.ctx, officer, d.ID)
	s.ErrorIs(err, apperrors.ErrAlreadyIssued)
	s.Require().NotNil(second)
	s.Equal(first.ID, second.ID)
	s.Equal(first.ActNumber, second.ActNumber)

	stored, err := s.declaration.GetDeclaration(s.ctx, guardian, d.ID)
	s.Require().NoError(err)
	s.Equal(first.ID, stored.CertificateID)

	s.Contains(s.notifier.kindsFor(d.ID), domain.EventCertificateIssued)
}

// A paid download updates the totals exactly once.
func (s *WorkflowTestSuite) TestPaidDownloadUpdatesTotalsOnce() {
	_, c := s.issued()

	req, err := s.certificate.RequestDownload(s.ctx, guardian, c.ID, 3, domain.PaymentWave)
	s.Require().NoError(err)
	ref := req.Entry.PaymentReference
	s.Regexp(`^PAY-[0-9A-F]{24}$`, ref)
	s.True(req.Entry.Amount.Equal(decimal.NewFromInt(1500)))
	s.Equal(domain.PaymentPending, req.Entry.Status)
	s.Contains(req.Entry.PaymentURL, ref)
	s.Equal("XOF", req.Currency)

	first, err := s.certificate.ConfirmPayment(s.ctx, ref, decimal.NewFromInt(1500))
	s.Require().NoError(err)
	s.False(first.AlreadyConfirmed)
	s.Equal(domain.PaymentPaid, first.Entry.Status)
	s.NotEmpty(first.Entry.FileRef)

	after, err := s.certificate.GetCertificate(s.ctx, guardian, c.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), after.TotalDownloads)
	s.True(after.TotalCollected.Equal(decimal.NewFromInt(1500)))

	again, err := s.certificate.ConfirmPayment(s.ctx, ref, req.Entry.Amount)
	s.Require().NoError(err)
	s.True(again.AlreadyConfirmed)
	s.Equal(first.Entry.FileRef, again.Entry.FileRef)

	unchanged, err := s.certificate.GetCertificate(s.ctx, guardian, c.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), unchanged.TotalDownloads)
	s.True(unchanged.TotalCollected.Equal(decimal.NewFromInt(1500)))
	s.Equal(1, s.documents.count(), "one document rendered")

	audit, err := s.certificate.AuditTotals(s.ctx, officer, c.ID)
	s.Require().NoError(err)
	s.True(audit.Consistent())
	s.Equal(1, audit.Entries)

	content, err := s.certificate.FetchDocument(s.ctx, guardian, ref)
	s.Require().NoError(err)
	s.Contains(string(content), c.SerialStamp)
}

// Archived certificates refuse downloads; paid entries stay readable.
func (s *WorkflowTestSuite) TestArchivedCertificateRefusesDownloads() {
	d, c := s.issued()
	req, err := s.certificate.RequestDownload(s.ctx, guardian, c.ID, 1, domain.PaymentOrangeMoney)
	s.Require().NoError(err)
	_, err = s.certificate.ConfirmPayment(s.ctx, req.Entry.PaymentReference, req.Entry.Amount)
	s.Require().NoError(err)

	_, err = s.declaration.Archive(s.ctx, officer, d.ID)
	s.Require().NoError(err)

	archived, err := s.certificate.GetCertificate(s.ctx, guardian, c.ID)
	s.Require().NoError(err)
	s.True(archived.Archived)

	_, err = s.certificate.RequestDownload(s.ctx, guardian, c.ID, 2, domain.PaymentWave)
	s.ErrorIs(err, apperrors.ErrArchived)

	entries, err := s.certificate.ListDownloads(s.ctx, guardian, c.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(domain.PaymentPaid, entries[0].Status)
}

func (s *WorkflowTestSuite) TestRejectedDeclarationIsTerminal() {
	d := s.submitInline()
	_, err := s.declaration.Reject(s.ctx, officer, d.ID, "missing parent identity")
	s.Require().NoError(err)

	type attempt struct {
		name string
		run  func() (*domain.Declaration, error)
	}
	for _, a := range []attempt{
		{"route", func() (*domain.Declaration, error) {
			return s.declaration.RouteToHospital(s.ctx, officer, d.ID, "hosp-principal")
		}},
		{"reject", func() (*domain.Declaration, error) { return s.declaration.Reject(s.ctx, officer, d.ID, "again") }},
		{"validate", func() (*domain.Declaration, error) { return s.declaration.Validate(s.ctx, officer, d.ID) }},
		{"verify", func() (*domain.Declaration, error) { return s.declaration.Verify(s.ctx, verifier, d.ID, true, "") }},
		{"archive", func() (*domain.Declaration, error) { return s.declaration.Archive(s.ctx, admin, d.ID) }},
	} {
		got, err := a.run()
		s.ErrorIs(err, apperrors.ErrPreconditionFailed, a.name)
		s.Nil(got, a.name)
	}

	stored, err := s.declaration.GetDeclaration(s.ctx, admin, d.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusRejected, stored.Status)
	s.Equal(int64(2), stored.Version)
}

func (s *WorkflowTestSuite) TestConcurrentTransitionsHaveOneWinner() {
	d := s.submitInline()

	var (
		g         errgroup.Group
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			var err error
			if i%2 == 0 {
				_, err = s.declaration.Validate(s.ctx, officer, d.ID)
			} else {
				_, err = s.declaration.Reject(s.ctx, officer, d.ID, "duplicate")
			}
			switch {
			case err == nil:
				mu.Lock()
				successes++
				mu.Unlock()
			case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrPreconditionFailed):
			default:
				return err
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	s.Equal(1, successes)

	stored, err := s.declaration.GetDeclaration(s.ctx, admin, d.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), stored.Version)
	s.True(stored.Status.IsTerminal() || stored.Status == domain.StatusValidated)
}

func (s *WorkflowTestSuite) TestConcurrentIssueMintsOneCertificate() {
	d := s.submitInline()
	_, err := s.declaration.Validate(s.ctx, officer, d.ID)
	s.Require().NoError(err)

	var (
		g   errgroup.Group
		mu  sync.Mutex
		ids = map[string]int{}
		won int
	)
	for i := 0; i < 12; i++ {
		g.Go(func() error {
			c, err := s.certificate.Issue(s.ctx, officer, d.ID)
			if err != nil && !errors.Is(err, apperrors.ErrAlreadyIssued) {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			ids[c.ID]++
			if err == nil {
				won++
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	s.Equal(1, won)
	s.Len(ids, 1, "every caller sees the same certificate")
}

func (s *WorkflowTestSuite) TestActNumbersIncreasePerRegistry() {
	var last int64
	for i := 0; i < 5; i++ {
		_, c := s.issued()
		s.Greater(c.ActNumber, last)
		last = c.ActNumber
	}
	s.Equal(int64(5), last)
}

func (s *WorkflowTestSuite) TestSubmitGuards() {
	_, err := s.declaration.Submit(s.ctx, officer, submission(domain.InlineHospital{Details: domain.HospitalDetails{Name: "x"}}))
	s.ErrorIs(err, apperrors.ErrForbidden)

	_, err = s.declaration.Submit(s.ctx, guardian, submission(domain.RegisteredHospital{HospitalID: "hosp-closed"}))
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.declaration.Submit(s.ctx, guardian, submission(domain.RegisteredHospital{HospitalID: "hosp-unknown"}))
	s.ErrorIs(err, apperrors.ErrValidation)

	incomplete := submission(domain.InlineHospital{Details: domain.HospitalDetails{Name: "x"}})
	incomplete.Mother.LastName = ""
	_, err = s.declaration.Submit(s.ctx, guardian, incomplete)
	s.ErrorIs(err, apperrors.ErrValidation)

	d := s.submitRegistered()
	s.Equal(guardian.ID, d.GuardianID)
	s.Equal(int64(1), d.Version)
	s.NotNil(d.SentToMunicipalAt)
	s.Equal(domain.AuthenticityUnset, d.BirthCertificate.Authenticity)
}

func (s *WorkflowTestSuite) TestRouteGuards() {
	d := s.submitRegistered()

	_, err := s.declaration.RouteToHospital(s.ctx, officer, d.ID, "hosp-unknown")
	s.ErrorIs(err, apperrors.ErrPreconditionFailed)
	_, err = s.declaration.RouteToHospital(s.ctx, officer, d.ID, "hosp-closed")
	s.ErrorIs(err, apperrors.ErrPreconditionFailed)
	_, err = s.declaration.RouteToHospital(s.ctx, outsider, d.ID, "hosp-principal")
	s.ErrorIs(err, apperrors.ErrPreconditionFailed)
	_, err = s.declaration.RouteToHospital(s.ctx, officer, "missing", "hosp-principal")
	s.ErrorIs(err, apperrors.ErrNotFound)

	stored, err := s.declaration.GetDeclaration(s.ctx, officer, d.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusSubmittedToMunicipal, stored.Status, "failed guards leave no trace")
	s.Equal(int64(1), stored.Version)
}

func (s *WorkflowTestSuite) TestVisibilityAndListing() {
	d := s.submitRegistered()
	s.submitInline()

	_, err := s.declaration.GetDeclaration(s.ctx, otherGuardian, d.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
	_, err = s.declaration.GetDeclaration(s.ctx, outsider, d.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
	_, err = s.declaration.GetDeclaration(s.ctx, verifier, d.ID)
	s.ErrorIs(err, apperrors.ErrNotFound, "hospitals see declarations once assigned")

	_, err = s.declaration.RouteToHospital(s.ctx, officer, d.ID, "hosp-principal")
	s.Require().NoError(err)
	_, err = s.declaration.GetDeclaration(s.ctx, verifier, d.ID)
	s.NoError(err)

	mine, next, err := s.declaration.ListDeclarations(s.ctx, guardian, domain.DeclarationFilter{}, 1, nil)
	s.Require().NoError(err)
	s.Len(mine, 1)
	s.Require().NotNil(next)
	rest, next, err := s.declaration.ListDeclarations(s.ctx, guardian, domain.DeclarationFilter{}, 1, next)
	s.Require().NoError(err)
	s.Len(rest, 1)
	s.Nil(next)

	none, _, err := s.declaration.ListDeclarations(s.ctx, otherGuardian, domain.DeclarationFilter{GuardianID: guardian.ID}, 10, nil)
	s.Require().NoError(err)
	s.Empty(none, "guardians are pinned to their own declarations")

	pending, _, err := s.declaration.ListDeclarations(s.ctx, officer, domain.DeclarationFilter{
		Statuses: []domain.DeclarationStatus{domain.StatusHospitalVerificationPending},
	}, 0, nil)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(d.ID, pending[0].ID)

	_, _, err = s.declaration.ListDeclarations(s.ctx, officer, domain.DeclarationFilter{MunicipalOfficeID: "office-thies"}, 10, nil)
	s.ErrorIs(err, apperrors.ErrForbidden)

	assigned, _, err := s.declaration.ListDeclarations(s.ctx, verifier, domain.DeclarationFilter{}, 10, nil)
	s.Require().NoError(err)
	s.Len(assigned, 1)
}

func (s *WorkflowTestSuite) TestIssueGuards() {
	d := s.submitInline()

	_, err := s.certificate.Issue(s.ctx, officer, d.ID)
	s.ErrorIs(err, apperrors.ErrPreconditionFailed, "not validated yet")

	_, err = s.declaration.Validate(s.ctx, officer, d.ID)
	s.Require().NoError(err)

	_, err = s.certificate.Issue(s.ctx, guardian, d.ID)
	s.ErrorIs(err, apperrors.ErrPreconditionFailed)
	_, err = s.certificate.Issue(s.ctx, outsider, d.ID)
	s.ErrorIs(err, apperrors.ErrPreconditionFailed)
	_, err = s.certificate.Issue(s.ctx, officer, "missing")
	s.ErrorIs(err, apperrors.ErrNotFound)

	c, err := s.certificate.Issue(s.ctx, admin, d.ID)
	s.Require().NoError(err)
	s.Equal(admin.ID, c.IssuedBy)

	_, err = s.certificate.GetCertificate(s.ctx, otherGuardian, c.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *WorkflowTestSuite) TestPaymentReferenceFailures() {
	_, c := s.issued()

	_, err := s.certificate.ConfirmPayment(s.ctx, "PAY-UNKNOWN", decimal.NewFromInt(500))
	s.ErrorIs(err, apperrors.ErrInvalidReference)

	_, err = s.certificate.RequestDownload(s.ctx, guardian, c.ID, 0, domain.PaymentCard)
	s.ErrorIs(err, apperrors.ErrValidation)
	_, err = s.certificate.RequestDownload(s.ctx, guardian, c.ID, 1, "cash")
	s.ErrorIs(err, apperrors.ErrValidation)

	req, err := s.certificate.RequestDownload(s.ctx, guardian, c.ID, 2, domain.PaymentFreeMoney)
	s.Require().NoError(err)
	ref := req.Entry.PaymentReference

	_, err = s.certificate.ConfirmPayment(s.ctx, ref, decimal.NewFromInt(500))
	s.ErrorIs(err, apperrors.ErrPreconditionFailed)

	_, err = s.certificate.FetchDocument(s.ctx, guardian, ref)
	s.ErrorIs(err, apperrors.ErrPreconditionFailed, "nothing to deliver before payment")

	_, err = s.certificate.CancelDownload(s.ctx, otherGuardian, ref)
	s.ErrorIs(err, apperrors.ErrInvalidReference)

	cancelled, err := s.certificate.CancelDownload(s.ctx, guardian, ref)
	s.Require().NoError(err)
	s.Equal(domain.PaymentCancelled, cancelled.Status)

	_, err = s.certificate.ConfirmPayment(s.ctx, ref, req.Entry.Amount)
	s.ErrorIs(err, apperrors.ErrInvalidReference)
	_, err = s.certificate.CancelDownload(s.ctx, guardian, ref)
	s.ErrorIs(err, apperrors.ErrPreconditionFailed)

	after, err := s.certificate.GetCertificate(s.ctx, guardian, c.ID)
	s.Require().NoError(err)
	s.Zero(after.TotalDownloads)
	s.True(after.TotalCollected.IsZero())
	s.Zero(s.documents.count())
}

func (s *WorkflowTestSuite) TestConcurrentConfirmationsCountOnce() {
	_, c := s.issued()
	req, err := s.certificate.RequestDownload(s.ctx, guardian, c.ID, 2, domain.PaymentWave)
	s.Require().NoError(err)

	var (
		g     errgroup.Group
		mu    sync.Mutex
		fresh int
		files = map[string]struct{}{}
	)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			res, err := s.certificate.ConfirmPayment(s.ctx, req.Entry.PaymentReference, req.Entry.Amount)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			files[res.Entry.FileRef] = struct{}{}
			if !res.AlreadyConfirmed {
				fresh++
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	s.Equal(1, fresh)
	s.Len(files, 1)

	after, err := s.certificate.GetCertificate(s.ctx, guardian, c.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), after.TotalDownloads)
}

func (s *WorkflowTestSuite) TestAuditIsRestricted() {
	_, c := s.issued()
	_, err := s.certificate.AuditTotals(s.ctx, guardian, c.ID)
	s.ErrorIs(err, apperrors.ErrForbidden)
	_, err = s.certificate.AuditTotals(s.ctx, outsider, c.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

// CountersignTestSuite parks hospital verdicts until a municipal officer confirms them.
type CountersignTestSuite struct {
	workflowFixture
}

func (s *CountersignTestSuite) TestVerifiedNeedsMunicipalValidation() {
	d := s.submitRegistered()
	_, err := s.declaration.RouteToHospital(s.ctx, officer, d.ID, "hosp-principal")
	s.Require().NoError(err)

	verified, err := s.declaration.Verify(s.ctx, verifier, d.ID, true, "")
	s.Require().NoError(err)
	s.Equal(domain.StatusHospitalVerified, verified.Status)

	_, err = s.certificate.Issue(s.ctx, officer, d.ID)
	s.ErrorIs(err, apperrors.ErrPreconditionFailed)

	validated, err := s.declaration.Validate(s.ctx, officer, d.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusValidated, validated.Status)
}

func (s *CountersignTestSuite) TestDisputeNeedsMunicipalRejection() {
	d := s.submitRegistered()
	_, err := s.declaration.RouteToHospital(s.ctx, officer, d.ID, "hosp-principal")
	s.Require().NoError(err)

	disputed, err := s.declaration.Verify(s.ctx, verifier, d.ID, false, "forged stamp")
	s.Require().NoError(err)
	s.Equal(domain.StatusHospitalRejected, disputed.Status)

	_, err = s.declaration.Validate(s.ctx, officer, d.ID)
	s.ErrorIs(err, apperrors.ErrPreconditionFailed)

	rejected, err := s.declaration.Reject(s.ctx, officer, d.ID, "forged stamp")
	s.Require().NoError(err)
	s.Equal(domain.StatusRejected, rejected.Status)
}
