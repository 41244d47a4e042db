package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/etat_civil_app/internal/apperrors"
	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portsrepo "github.com/SscSPs/etat_civil_app/internal/core/ports/repositories"
	"github.com/SscSPs/etat_civil_app/internal/utils/pagination"
)

// Store keeps every repository in process memory behind one lock. It backs
// STORAGE_DRIVER=memory and the service tests.
type Store struct {
	mu sync.RWMutex

	declarations  map[string]domain.Declaration
	hospitals     map[string]domain.Hospital
	certificates  map[string]domain.Certificate
	byDeclaration map[string]string // declaration ID -> certificate ID
	actNumbers    map[string]struct{}
	entries       map[string]domain.DownloadEntry // payment reference -> entry
	entryOrder    map[string][]string             // certificate ID -> references in append order
	counters      map[actCounterKey]int64
}

type actCounterKey struct {
	registry string
	year     int
}

func NewStore() *Store {
	return &Store{
		declarations:  make(map[string]domain.Declaration),
		hospitals:     make(map[string]domain.Hospital),
		certificates:  make(map[string]domain.Certificate),
		byDeclaration: make(map[string]string),
		actNumbers:    make(map[string]struct{}),
		entries:       make(map[string]domain.DownloadEntry),
		entryOrder:    make(map[string][]string),
		counters:      make(map[actCounterKey]int64),
	}
}

var (
	_ portsrepo.DeclarationRepositoryFacade = (*Store)(nil)
	_ portsrepo.HospitalReader              = (*Store)(nil)
	_ portsrepo.CertificateRepositoryFacade = (*Store)(nil)
	_ portsrepo.ActNumberAllocator          = (*Store)(nil)
)

// Provider exposes the store through every repository port.
func (s *Store) Provider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		DeclarationRepo:    s,
		HospitalRepo:       s,
		CertificateRepo:    s,
		ActNumberAllocator: s,
	}
}

// PutHospital adds or replaces a registry entry.
func (s *Store) PutHospital(h domain.Hospital) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hospitals[h.HospitalID] = h
}

func (s *Store) FindHospitalByID(_ context.Context, hospitalID string) (*domain.Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.hospitals[strings.TrimSpace(hospitalID)]
	if !ok {
		return nil, apperrors.NewNotFoundError("hospital " + hospitalID)
	}
	return &h, nil
}

func (s *Store) SaveDeclaration(_ context.Context, declaration *domain.Declaration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.declarations[declaration.ID]; exists {
		return apperrors.NewConflictError("declaration " + declaration.ID + " already exists")
	}
	declaration.Version = 1
	s.declarations[declaration.ID] = *declaration
	return nil
}

func (s *Store) UpdateDeclaration(_ context.Context, declaration *domain.Declaration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.declarations[declaration.ID]
	if !ok {
		return apperrors.NewNotFoundError("declaration " + declaration.ID)
	}
	if stored.Version != declaration.Version {
		return apperrors.NewConflictError(fmt.Sprintf("declaration %s changed since version %d", declaration.ID, declaration.Version))
	}
	declaration.Version++
	// The certificate back-reference is owned by IssueCertificate.
	declaration.CertificateID = stored.CertificateID
	s.declarations[declaration.ID] = *declaration
	return nil
}

func (s *Store) ArchiveDeclaration(_ context.Context, declaration *domain.Declaration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.declarations[declaration.ID]
	if !ok {
		return apperrors.NewNotFoundError("declaration " + declaration.ID)
	}
	if stored.Version != declaration.Version {
		return apperrors.NewConflictError(fmt.Sprintf("declaration %s changed since version %d", declaration.ID, declaration.Version))
	}
	archivedAt := declaration.LastUpdatedAt
	if declaration.ArchivedAt != nil {
		archivedAt = *declaration.ArchivedAt
	}
	if certificateID, issued := s.byDeclaration[declaration.ID]; issued {
		c := s.certificates[certificateID]
		if !c.Archived {
			c.Archived = true
			c.ArchivedAt = &archivedAt
			s.certificates[certificateID] = c
		}
	}
	declaration.Version++
	declaration.CertificateID = stored.CertificateID
	s.declarations[declaration.ID] = *declaration
	return nil
}

func (s *Store) FindDeclarationByID(_ context.Context, declarationID string) (*domain.Declaration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.declarations[declarationID]
	if !ok {
		return nil, apperrors.NewNotFoundError("declaration " + declarationID)
	}
	return &d, nil
}

func (s *Store) ListDeclarations(_ context.Context, filter domain.DeclarationFilter, limit int, nextToken *string) ([]domain.Declaration, *string, error) {
	var (
		cursorAt time.Time
		cursorID string
		err      error
	)
	if nextToken != nil && *nextToken != "" {
		cursorAt, cursorID, err = pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
	}

	s.mu.RLock()
	matched := make([]domain.Declaration, 0)
	for _, d := range s.declarations {
		if matches(filter, &d) && (cursorID == "" || pagination.After(d.CreatedAt, d.ID, cursorAt, cursorID)) {
			matched = append(matched, d)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if len(matched) <= limit {
		return matched, nil, nil
	}
	page := matched[:limit]
	last := page[len(page)-1]
	token := pagination.EncodeToken(last.CreatedAt, last.ID)
	return page, &token, nil
}

func matches(f domain.DeclarationFilter, d *domain.Declaration) bool {
	if f.GuardianID != "" && d.GuardianID != f.GuardianID {
		return false
	}
	if f.MunicipalOfficeID != "" && d.MunicipalOfficeID != f.MunicipalOfficeID {
		return false
	}
	if f.AssignedHospitalID != "" && d.AssignedHospitalID != f.AssignedHospitalID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, st := range f.Statuses {
		if d.Status == st {
			return true
		}
	}
	return false
}

func (s *Store) NextActNumber(_ context.Context, registryNumber string, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := actCounterKey{registry: registryNumber, year: year}
	s.counters[key]++
	return s.counters[key], nil
}

func actKey(c *domain.Certificate) string {
	return fmt.Sprintf("%s|%d|%d", c.RegistryNumber, c.Year, c.ActNumber)
}

func (s *Store) IssueCertificate(_ context.Context, certificate *domain.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.declarations[certificate.DeclarationID]
	if !ok {
		return apperrors.NewNotFoundError("declaration " + certificate.DeclarationID)
	}
	if _, exists := s.byDeclaration[certificate.DeclarationID]; exists {
		return fmt.Errorf("%w: declaration %s", apperrors.ErrAlreadyIssued, certificate.DeclarationID)
	}
	if d.Status != domain.StatusValidated {
		return apperrors.Precondition("declaration %s is %s, only validated declarations can be issued", d.ID, d.Status)
	}
	if _, taken := s.actNumbers[actKey(certificate)]; taken {
		return apperrors.NewConflictError("act number " + certificate.Reference() + " is taken")
	}

	s.certificates[certificate.ID] = *certificate
	s.byDeclaration[certificate.DeclarationID] = certificate.ID
	s.actNumbers[actKey(certificate)] = struct{}{}
	d.CertificateID = certificate.ID
	s.declarations[d.ID] = d
	return nil
}

func (s *Store) FindCertificateByID(_ context.Context, certificateID string) (*domain.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.certificates[certificateID]
	if !ok {
		return nil, apperrors.NewNotFoundError("certificate " + certificateID)
	}
	return &c, nil
}

func (s *Store) FindCertificateByDeclarationID(_ context.Context, declarationID string) (*domain.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byDeclaration[declarationID]
	if !ok {
		return nil, apperrors.NewNotFoundError("certificate for declaration " + declarationID)
	}
	c := s.certificates[id]
	return &c, nil
}

func (s *Store) AppendDownloadEntry(_ context.Context, entry *domain.DownloadEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.certificates[entry.CertificateID]
	if !ok {
		return apperrors.NewNotFoundError("certificate " + entry.CertificateID)
	}
	if c.Archived {
		return fmt.Errorf("%w: certificate %s", apperrors.ErrArchived, c.ID)
	}
	if _, exists := s.entries[entry.PaymentReference]; exists {
		return apperrors.NewConflictError("payment reference " + entry.PaymentReference + " already used")
	}
	s.entries[entry.PaymentReference] = *entry
	s.entryOrder[entry.CertificateID] = append(s.entryOrder[entry.CertificateID], entry.PaymentReference)
	return nil
}

func (s *Store) FindDownloadEntryByReference(_ context.Context, paymentReference string) (*domain.DownloadEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[paymentReference]
	if !ok {
		return nil, apperrors.NewNotFoundError("download entry " + paymentReference)
	}
	return &e, nil
}

func (s *Store) ListDownloadEntries(_ context.Context, certificateID string) ([]domain.DownloadEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ledgerLocked(certificateID), nil
}

func (s *Store) ledgerLocked(certificateID string) []domain.DownloadEntry {
	refs := s.entryOrder[certificateID]
	entries := make([]domain.DownloadEntry, 0, len(refs))
	for _, ref := range refs {
		entries = append(entries, s.entries[ref])
	}
	return entries
}

func (s *Store) MarkDownloadPaid(_ context.Context, paymentReference string, fileRef string, paidAt time.Time) (*domain.PaymentSettlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[paymentReference]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidReference, paymentReference)
	}
	c := s.certificates[e.CertificateID]

	switch e.Status {
	case domain.PaymentPaid:
		return &domain.PaymentSettlement{Entry: e, Certificate: c}, nil
	case domain.PaymentCancelled:
		return nil, fmt.Errorf("%w: payment %s was cancelled", apperrors.ErrInvalidReference, paymentReference)
	}

	e.Status = domain.PaymentPaid
	e.FileRef = fileRef
	e.PaidAt = &paidAt
	s.entries[paymentReference] = e

	totals := domain.FoldTotals(s.ledgerLocked(c.ID))
	c.TotalDownloads = totals.Downloads
	c.TotalCollected = totals.Collected
	s.certificates[c.ID] = c

	return &domain.PaymentSettlement{Entry: e, Certificate: c, Applied: true}, nil
}

func (s *Store) CancelDownload(_ context.Context, paymentReference string, cancelledAt time.Time) (*domain.DownloadEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[paymentReference]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidReference, paymentReference)
	}
	if e.Status != domain.PaymentPending {
		return nil, apperrors.Precondition("payment %s is %s, only pending payments can be cancelled", paymentReference, e.Status)
	}
	e.Status = domain.PaymentCancelled
	e.CancelledAt = &cancelledAt
	s.entries[paymentReference] = e
	return &e, nil
}
