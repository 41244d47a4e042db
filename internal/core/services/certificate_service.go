package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/etat_civil_app/internal/apperrors"
	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portsrepo "github.com/SscSPs/etat_civil_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/SscSPs/etat_civil_app/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tariff is the price of one certificate copy. It is frozen on each
// certificate at issuance.
type Tariff struct {
	UnitPrice decimal.Decimal
	Currency  string
}

// CertificateDependencies holds the collaborators of the certificate service.
type CertificateDependencies struct {
	CertificateRepo    portsrepo.CertificateRepositoryFacade
	DeclarationRepo    portsrepo.DeclarationReader
	HospitalRepo       portsrepo.HospitalReader
	ActNumberAllocator portsrepo.ActNumberAllocator
	Sealer             *Sealer
	PaymentRail        portssvc.PaymentRail
	Renderer           portssvc.CertificateRenderer
	Documents          portssvc.DocumentStore
	Tariff             Tariff
}

// certificateService implements the CertificateSvcFacade interface
type certificateService struct {
	BaseService
	CertificateDependencies
}

// NewCertificateService creates a new certificate issuance and ledger service.
func NewCertificateService(deps CertificateDependencies, options ...ServiceOption) portssvc.CertificateSvcFacade {
	return &certificateService{
		BaseService:             newBaseService(options),
		CertificateDependencies: deps,
	}
}

var _ portssvc.CertificateSvcFacade = (*certificateService)(nil)

func (s *certificateService) Issue(ctx context.Context, actor domain.Actor, declarationID string) (*domain.Certificate, error) {
	declaration, err := s.DeclarationRepo.FindDeclarationByID(ctx, declarationID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to load declaration for issuance",
				slog.String("declaration_id", declarationID))
		}
		return nil, err
	}
	if actor.Role != domain.RoleMunicipal && !actor.IsAdmin() {
		return nil, apperrors.Precondition("role %q cannot issue certificates", actor.Role)
	}
	if !actor.ActsForOffice(declaration.MunicipalOfficeID) {
		return nil, apperrors.Precondition("actor %s is not affiliated with municipal office %s", actor.ID, declaration.MunicipalOfficeID)
	}

	existing, err := s.CertificateRepo.FindCertificateByDeclarationID(ctx, declarationID)
	switch {
	case err == nil:
		return existing, fmt.Errorf("%w: declaration %s already has certificate %s", apperrors.ErrAlreadyIssued, declarationID, existing.ID)
	case !errors.Is(err, apperrors.ErrNotFound):
		s.LogError(ctx, err, "Failed to check existing certificate",
			slog.String("declaration_id", declarationID))
		return nil, err
	}

	if declaration.Status != domain.StatusValidated {
		return nil, apperrors.Precondition("declaration %s is %s, only validated declarations can be issued", declarationID, declaration.Status)
	}

	// Postgres keeps microseconds; the seal must survive a round trip.
	now := s.Now().Truncate(time.Microsecond)
	registryNumber := declaration.MunicipalOfficeID
	actNumber, err := s.ActNumberAllocator.NextActNumber(ctx, registryNumber, now.Year())
	if err != nil {
		s.LogError(ctx, err, "Failed to allocate act number",
			slog.String("registry_number", registryNumber))
		return nil, err
	}

	nonce, err := utils.GenerateSecureRandomString(16)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to generate certificate nonce", err)
	}

	certificate := domain.Certificate{
		ID:             uuid.NewString(),
		DeclarationID:  declaration.ID,
		GuardianID:     declaration.GuardianID,
		RegistryNumber: registryNumber,
		Year:           now.Year(),
		ActNumber:      actNumber,
		Subject:        s.snapshot(ctx, declaration),
		Nonce:          nonce,
		UnitPrice:      s.Tariff.UnitPrice,
		Currency:       s.Tariff.Currency,
		TotalCollected: decimal.Zero,
		IssuedBy:       actor.ID,
		IssuedAt:       now,
	}
	certificate.SerialStamp, certificate.DigitalSeal, err = s.Sealer.Seal(&certificate)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to seal certificate", err)
	}

	if err := s.CertificateRepo.IssueCertificate(ctx, &certificate); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyIssued) {
			// A concurrent issuer won; its act number is the canonical one.
			winner, findErr := s.CertificateRepo.FindCertificateByDeclarationID(ctx, declarationID)
			if findErr != nil {
				s.LogError(ctx, findErr, "Failed to read winning certificate",
					slog.String("declaration_id", declarationID))
				return nil, findErr
			}
			s.LogInfo(ctx, "Concurrent issuance lost the race",
				slog.String("declaration_id", declarationID),
				slog.Int64("discarded_act_number", actNumber))
			return winner, fmt.Errorf("%w: declaration %s already has certificate %s", apperrors.ErrAlreadyIssued, declarationID, winner.ID)
		}
		if errors.Is(err, apperrors.ErrPreconditionFailed) {
			s.LogInfo(ctx, "Declaration left the validated state before issuance",
				slog.String("declaration_id", declarationID),
				slog.Int64("discarded_act_number", actNumber))
			return nil, err
		}
		s.LogError(ctx, err, "Failed to store certificate",
			slog.String("declaration_id", declarationID))
		return nil, err
	}

	s.Metrics.CertificateIssued()
	s.LogInfo(ctx, "Certificate issued",
		slog.String("certificate_id", certificate.ID),
		slog.String("reference", certificate.Reference()))
	s.Publish(ctx, domain.CertificateIssuedEvent(&certificate))
	return &certificate, nil
}

// snapshot freezes the declared facts. A registry lookup failure falls back
// to the hospital ID so issuance does not depend on registry availability.
func (s *certificateService) snapshot(ctx context.Context, d *domain.Declaration) domain.SubjectSnapshot {
	snap := domain.SubjectSnapshot{
		Child:             d.Child,
		Father:            d.Father,
		Mother:            d.Mother,
		RegionID:          d.RegionID,
		DepartmentID:      d.DepartmentID,
		CommuneID:         d.CommuneID,
		MunicipalOfficeID: d.MunicipalOfficeID,
	}
	switch h := d.Hospital.(type) {
	case domain.InlineHospital:
		snap.HospitalName = h.Details.Name
	case domain.RegisteredHospital:
		snap.HospitalName = h.HospitalID
		if s.HospitalRepo == nil {
			break
		}
		hospital, err := s.HospitalRepo.FindHospitalByID(ctx, h.HospitalID)
		if err != nil {
			s.LogError(ctx, err, "Failed to resolve hospital name for certificate",
				slog.String("hospital_id", h.HospitalID))
			break
		}
		snap.HospitalName = hospital.Name
	}
	return snap
}

func (s *certificateService) GetCertificate(ctx context.Context, actor domain.Actor, certificateID string) (*domain.Certificate, error) {
	certificate, err := s.CertificateRepo.FindCertificateByID(ctx, certificateID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find certificate",
				slog.String("certificate_id", certificateID))
		}
		return nil, err
	}
	if !canViewCertificate(actor, certificate) {
		return nil, fmt.Errorf("%w: certificate %s", apperrors.ErrNotFound, certificateID)
	}
	return certificate, nil
}

func (s *certificateService) GetCertificateByDeclaration(ctx context.Context, actor domain.Actor, declarationID string) (*domain.Certificate, error) {
	certificate, err := s.CertificateRepo.FindCertificateByDeclarationID(ctx, declarationID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find certificate by declaration",
				slog.String("declaration_id", declarationID))
		}
		return nil, err
	}
	if !canViewCertificate(actor, certificate) {
		return nil, fmt.Errorf("%w: certificate for declaration %s", apperrors.ErrNotFound, declarationID)
	}
	return certificate, nil
}

func (s *certificateService) RequestDownload(ctx context.Context, actor domain.Actor, certificateID string, quantity int, method domain.PaymentMethod) (*portssvc.DownloadRequest, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", apperrors.ErrValidation)
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: unsupported payment method %q", apperrors.ErrValidation, method)
	}

	certificate, err := s.GetCertificate(ctx, actor, certificateID)
	if err != nil {
		return nil, err
	}
	if certificate.Archived {
		return nil, fmt.Errorf("%w: certificate %s", apperrors.ErrArchived, certificateID)
	}

	reference, err := utils.GeneratePaymentReference()
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to generate payment reference", err)
	}
	amount := certificate.AmountFor(quantity)

	paymentURL, err := s.PaymentRail.Initiate(ctx, portssvc.PaymentInitiation{
		Reference: reference,
		Amount:    amount,
		Currency:  certificate.Currency,
		Method:    method,
	})
	if err != nil {
		s.LogError(ctx, err, "Payment rail refused the checkout",
			slog.String("certificate_id", certificateID),
			slog.String("payment_method", string(method)))
		return nil, fmt.Errorf("failed to initiate payment: %w", err)
	}

	entry := domain.DownloadEntry{
		ID:               uuid.NewString(),
		CertificateID:    certificate.ID,
		Quantity:         quantity,
		Amount:           amount,
		PaymentMethod:    method,
		PaymentReference: reference,
		PaymentURL:       paymentURL,
		Status:           domain.PaymentPending,
		RequestedBy:      actor.ID,
		RequestedAt:      s.Now(),
	}
	if err := s.CertificateRepo.AppendDownloadEntry(ctx, &entry); err != nil {
		if !errors.Is(err, apperrors.ErrArchived) {
			s.LogError(ctx, err, "Failed to append download entry",
				slog.String("certificate_id", certificateID))
		}
		return nil, err
	}

	s.LogInfo(ctx, "Download requested",
		slog.String("certificate_id", certificateID),
		slog.String("payment_reference", reference),
		slog.Int("quantity", quantity),
		slog.String("amount", amount.String()))
	return &portssvc.DownloadRequest{Entry: entry, Currency: certificate.Currency}, nil
}

func (s *certificateService) ConfirmPayment(ctx context.Context, paymentReference string, paidAmount decimal.Decimal) (*portssvc.PaymentConfirmation, error) {
	entry, err := s.findEntry(ctx, paymentReference)
	if err != nil {
		return nil, err
	}
	switch entry.Status {
	case domain.PaymentPaid:
		return &portssvc.PaymentConfirmation{Entry: *entry, AlreadyConfirmed: true}, nil
	case domain.PaymentCancelled:
		return nil, fmt.Errorf("%w: payment %s was cancelled", apperrors.ErrInvalidReference, paymentReference)
	}

	certificate, err := s.CertificateRepo.FindCertificateByID(ctx, entry.CertificateID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load certificate for payment",
			slog.String("payment_reference", paymentReference))
		return nil, err
	}
	if !entry.ConsistentWith(certificate.UnitPrice) {
		return nil, apperrors.Precondition("entry %s amount %s does not match %d × %s", paymentReference, entry.Amount, entry.Quantity, certificate.UnitPrice)
	}
	if !paidAmount.Equal(entry.Amount) {
		return nil, apperrors.Precondition("paid amount %s does not match amount due %s", paidAmount, entry.Amount)
	}
	if !s.Sealer.Verify(certificate) {
		err := apperrors.NewAppError(500, "certificate "+certificate.ID+" fails its seal check", nil)
		s.LogError(ctx, err, "Refusing to deliver certificate with a broken seal",
			slog.String("certificate_id", certificate.ID),
			slog.String("payment_reference", paymentReference))
		return nil, err
	}

	content, contentType, err := s.Renderer.Render(ctx, certificate, entry)
	if err != nil {
		s.LogError(ctx, err, "Failed to render certificate",
			slog.String("certificate_id", certificate.ID))
		return nil, err
	}
	fileRef, err := s.Documents.Store(ctx, content, contentType)
	if err != nil {
		s.LogError(ctx, err, "Failed to store rendered certificate",
			slog.String("certificate_id", certificate.ID))
		return nil, err
	}

	settlement, err := s.CertificateRepo.MarkDownloadPaid(ctx, paymentReference, fileRef, s.Now())
	if err != nil {
		if !errors.Is(err, apperrors.ErrInvalidReference) {
			s.LogError(ctx, err, "Failed to mark download paid",
				slog.String("payment_reference", paymentReference))
		}
		return nil, err
	}
	if !settlement.Applied {
		// A concurrent confirmation got there first; its file is the delivered one.
		return &portssvc.PaymentConfirmation{Entry: settlement.Entry, AlreadyConfirmed: true}, nil
	}

	s.Metrics.PaymentConfirmed(string(settlement.Entry.PaymentMethod), settlement.Certificate.Currency,
		settlement.Entry.Quantity, settlement.Entry.Amount.InexactFloat64())
	s.LogInfo(ctx, "Payment confirmed",
		slog.String("payment_reference", paymentReference),
		slog.String("certificate_id", settlement.Certificate.ID),
		slog.Int64("total_downloads", settlement.Certificate.TotalDownloads),
		slog.String("total_collected", settlement.Certificate.TotalCollected.String()))
	s.Publish(ctx, domain.PaymentConfirmedEvent(&settlement.Certificate, &settlement.Entry))
	return &portssvc.PaymentConfirmation{Entry: settlement.Entry}, nil
}

func (s *certificateService) CancelDownload(ctx context.Context, actor domain.Actor, paymentReference string) (*domain.DownloadEntry, error) {
	entry, err := s.findEntry(ctx, paymentReference)
	if err != nil {
		return nil, err
	}
	if entry.RequestedBy != actor.ID {
		if _, err := s.GetCertificate(ctx, actor, entry.CertificateID); err != nil {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidReference, paymentReference)
		}
	}

	cancelled, err := s.CertificateRepo.CancelDownload(ctx, paymentReference, s.Now())
	if err != nil {
		if !errors.Is(err, apperrors.ErrPreconditionFailed) {
			s.LogError(ctx, err, "Failed to cancel download",
				slog.String("payment_reference", paymentReference))
		}
		return nil, err
	}
	s.LogInfo(ctx, "Download cancelled", slog.String("payment_reference", paymentReference))
	return cancelled, nil
}

func (s *certificateService) ListDownloads(ctx context.Context, actor domain.Actor, certificateID string) ([]domain.DownloadEntry, error) {
	if _, err := s.GetCertificate(ctx, actor, certificateID); err != nil {
		return nil, err
	}
	entries, err := s.CertificateRepo.ListDownloadEntries(ctx, certificateID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list download entries",
			slog.String("certificate_id", certificateID))
		return nil, err
	}
	return entries, nil
}

func (s *certificateService) AuditTotals(ctx context.Context, actor domain.Actor, certificateID string) (*portssvc.LedgerAudit, error) {
	if actor.Role != domain.RoleMunicipal && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only municipal officers can audit ledgers", apperrors.ErrForbidden)
	}
	certificate, err := s.GetCertificate(ctx, actor, certificateID)
	if err != nil {
		return nil, err
	}
	entries, err := s.CertificateRepo.ListDownloadEntries(ctx, certificateID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list download entries for audit",
			slog.String("certificate_id", certificateID))
		return nil, err
	}

	audit := &portssvc.LedgerAudit{
		CertificateID: certificateID,
		Cached:        certificate.CachedTotals(),
		Recomputed:    domain.FoldTotals(entries),
		Entries:       len(entries),
		SealValid:     s.Sealer.Verify(certificate),
	}
	if !audit.SealValid {
		s.GetLogger(ctx).Warn("Certificate seal does not match its content",
			slog.String("certificate_id", certificateID))
	}
	if !audit.Consistent() {
		s.GetLogger(ctx).Warn("Certificate totals drifted from ledger",
			slog.String("certificate_id", certificateID),
			slog.Int64("cached_downloads", audit.Cached.Downloads),
			slog.Int64("ledger_downloads", audit.Recomputed.Downloads))
	}
	return audit, nil
}

func (s *certificateService) FetchDocument(ctx context.Context, actor domain.Actor, paymentReference string) ([]byte, error) {
	entry, err := s.findEntry(ctx, paymentReference)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetCertificate(ctx, actor, entry.CertificateID); err != nil {
		return nil, err
	}
	if entry.Status != domain.PaymentPaid || entry.FileRef == "" {
		return nil, apperrors.Precondition("payment %s is %s, the document is delivered once paid", paymentReference, entry.Status)
	}
	content, err := s.Documents.Fetch(ctx, entry.FileRef)
	if err != nil {
		s.LogError(ctx, err, "Failed to fetch delivered document",
			slog.String("payment_reference", paymentReference))
		return nil, err
	}
	return content, nil
}

// findEntry maps an unknown reference to ErrInvalidReference.
func (s *certificateService) findEntry(ctx context.Context, paymentReference string) (*domain.DownloadEntry, error) {
	entry, err := s.CertificateRepo.FindDownloadEntryByReference(ctx, paymentReference)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown payment reference %s", apperrors.ErrInvalidReference, paymentReference)
		}
		s.LogError(ctx, err, "Failed to find download entry",
			slog.String("payment_reference", paymentReference))
		return nil, err
	}
	return entry, nil
}

func canViewCertificate(actor domain.Actor, c *domain.Certificate) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleGuardian:
		return c.GuardianID == actor.ID
	case domain.RoleMunicipal:
		return actor.ActsForOffice(c.Subject.MunicipalOfficeID)
	}
	return false
}
