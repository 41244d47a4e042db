package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/etat_civil_app/internal/apperrors"
	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func seedDeclaration(t *testing.T, s *Store, id string, createdAt time.Time) domain.Declaration {
	t.Helper()
	return seedDeclarationIn(t, s, id, domain.StatusSubmittedToMunicipal, createdAt)
}

func seedDeclarationIn(t *testing.T, s *Store, id string, status domain.DeclarationStatus, createdAt time.Time) domain.Declaration {
	t.Helper()
	d := domain.Declaration{
		ID:         id,
		GuardianID: "guardian-1",
		Geography:  domain.Geography{MunicipalOfficeID: "office-dakar"},
		Status:     status,
		AuditFields: domain.AuditFields{
			CreatedAt: createdAt,
		},
	}
	require.NoError(t, s.SaveDeclaration(context.Background(), &d))
	return d
}

func TestStore_UpdateDeclarationVersioning(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	d := seedDeclaration(t, s, "decl-1", time.Now())
	assert.Equal(t, int64(1), d.Version)

	first := d
	first.Status = domain.StatusRejected
	require.NoError(t, s.UpdateDeclaration(ctx, &first))
	assert.Equal(t, int64(2), first.Version)

	stale := d
	stale.Status = domain.StatusValidated
	assert.ErrorIs(t, s.UpdateDeclaration(ctx, &stale), apperrors.ErrConflict)

	stored, err := s.FindDeclarationByID(ctx, "decl-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, stored.Status)

	missing := domain.Declaration{ID: "nope", Version: 1}
	assert.ErrorIs(t, s.UpdateDeclaration(ctx, &missing), apperrors.ErrNotFound)
}

func TestStore_ListDeclarationsPaginates(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedDeclaration(t, s, fmt.Sprintf("decl-%d", i), base.Add(time.Duration(i)*time.Hour))
	}
	// Same timestamp as decl-4: ties are ordered by ID.
	seedDeclaration(t, s, "decl-9", base.Add(4*time.Hour))

	var seen []string
	var token *string
	for page := 0; page < 10; page++ {
		decls, next, err := s.ListDeclarations(ctx, domain.DeclarationFilter{MunicipalOfficeID: "office-dakar"}, 2, token)
		require.NoError(t, err)
		for _, d := range decls {
			seen = append(seen, d.ID)
		}
		if next == nil {
			break
		}
		token = next
	}
	assert.Equal(t, []string{"decl-9", "decl-4", "decl-3", "decl-2", "decl-1", "decl-0"}, seen)

	decls, _, err := s.ListDeclarations(ctx, domain.DeclarationFilter{GuardianID: "someone-else"}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, decls)

	bad := "not-a-token"
	_, _, err = s.ListDeclarations(ctx, domain.DeclarationFilter{}, 10, &bad)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestStore_NextActNumberIsSerialized(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		numbers []int64
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			n, err := s.NextActNumber(gctx, "office-dakar", 2025)
			if err != nil {
				return err
			}
			mu.Lock()
			numbers = append(numbers, n)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i, n := range numbers {
		assert.Equal(t, int64(i+1), n)
	}

	other, err := s.NextActNumber(ctx, "office-dakar", 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(1), other, "each year restarts at 1")
}

func TestStore_IssueCertificateOnce(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedDeclarationIn(t, s, "decl-1", domain.StatusValidated, time.Now())
	seedDeclarationIn(t, s, "decl-2", domain.StatusValidated, time.Now())

	c := domain.Certificate{ID: "cert-1", DeclarationID: "decl-1", RegistryNumber: "office-dakar", Year: 2025, ActNumber: 1}
	require.NoError(t, s.IssueCertificate(ctx, &c))

	d, err := s.FindDeclarationByID(ctx, "decl-1")
	require.NoError(t, err)
	assert.Equal(t, "cert-1", d.CertificateID)

	again := domain.Certificate{ID: "cert-2", DeclarationID: "decl-1", RegistryNumber: "office-dakar", Year: 2025, ActNumber: 2}
	assert.ErrorIs(t, s.IssueCertificate(ctx, &again), apperrors.ErrAlreadyIssued)

	clash := domain.Certificate{ID: "cert-3", DeclarationID: "decl-2", RegistryNumber: "office-dakar", Year: 2025, ActNumber: 1}
	assert.ErrorIs(t, s.IssueCertificate(ctx, &clash), apperrors.ErrConflict)

	// A workflow update after issuance keeps the back-reference.
	d.Status = domain.StatusArchived
	d.CertificateID = ""
	require.NoError(t, s.UpdateDeclaration(ctx, d))
	d, err = s.FindDeclarationByID(ctx, "decl-1")
	require.NoError(t, err)
	assert.Equal(t, "cert-1", d.CertificateID)
}

func TestStore_IssueCertificateRequiresValidated(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	d := seedDeclarationIn(t, s, "decl-1", domain.StatusValidated, time.Now())

	// The declaration is archived after the issuer read it as validated.
	archivedAt := time.Now()
	d.Status = domain.StatusArchived
	d.ArchivedAt = &archivedAt
	require.NoError(t, s.ArchiveDeclaration(ctx, &d))

	c := domain.Certificate{ID: "cert-1", DeclarationID: "decl-1", RegistryNumber: "office-dakar", Year: 2025, ActNumber: 1}
	assert.ErrorIs(t, s.IssueCertificate(ctx, &c), apperrors.ErrPreconditionFailed)

	_, err := s.FindCertificateByID(ctx, "cert-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	stored, err := s.FindDeclarationByID(ctx, "decl-1")
	require.NoError(t, err)
	assert.Empty(t, stored.CertificateID)

	// The act number stays free for the next issuance.
	seedDeclarationIn(t, s, "decl-2", domain.StatusValidated, time.Now())
	other := domain.Certificate{ID: "cert-2", DeclarationID: "decl-2", RegistryNumber: "office-dakar", Year: 2025, ActNumber: 1}
	assert.NoError(t, s.IssueCertificate(ctx, &other))
}

func TestStore_ArchiveDeclarationArchivesCertificate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	d := seedDeclarationIn(t, s, "decl-1", domain.StatusValidated, time.Now())
	c := domain.Certificate{ID: "cert-1", DeclarationID: "decl-1", RegistryNumber: "office-dakar", Year: 2025, ActNumber: 1}
	require.NoError(t, s.IssueCertificate(ctx, &c))

	archivedAt := time.Now()
	stale := d
	stale.Status = domain.StatusArchived
	stale.ArchivedAt = &archivedAt
	stale.Version = 0
	assert.ErrorIs(t, s.ArchiveDeclaration(ctx, &stale), apperrors.ErrConflict)
	got, err := s.FindCertificateByID(ctx, "cert-1")
	require.NoError(t, err)
	assert.False(t, got.Archived, "a stale archive writes nothing")

	d.Status = domain.StatusArchived
	d.ArchivedAt = &archivedAt
	require.NoError(t, s.ArchiveDeclaration(ctx, &d))
	assert.Equal(t, int64(2), d.Version)

	got, err = s.FindCertificateByID(ctx, "cert-1")
	require.NoError(t, err)
	assert.True(t, got.Archived)
	require.NotNil(t, got.ArchivedAt)
	assert.True(t, got.ArchivedAt.Equal(archivedAt))
	stored, err := s.FindDeclarationByID(ctx, "decl-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, stored.Status)
	assert.Equal(t, "cert-1", stored.CertificateID)

	without := seedDeclarationIn(t, s, "decl-2", domain.StatusValidated, time.Now())
	without.Status = domain.StatusArchived
	assert.NoError(t, s.ArchiveDeclaration(ctx, &without), "declarations without a certificate archive too")
}

func TestStore_Ledger(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	d := seedDeclarationIn(t, s, "decl-1", domain.StatusValidated, time.Now())
	c := domain.Certificate{ID: "cert-1", DeclarationID: "decl-1", RegistryNumber: "office-dakar", Year: 2025, ActNumber: 1,
		UnitPrice: decimal.NewFromInt(500), TotalCollected: decimal.Zero}
	require.NoError(t, s.IssueCertificate(ctx, &c))

	entry := func(ref string, qty int64) *domain.DownloadEntry {
		return &domain.DownloadEntry{ID: ref, CertificateID: "cert-1", Quantity: int(qty), Amount: decimal.NewFromInt(500 * qty),
			PaymentReference: ref, Status: domain.PaymentPending}
	}
	require.NoError(t, s.AppendDownloadEntry(ctx, entry("PAY-1", 3)))
	require.NoError(t, s.AppendDownloadEntry(ctx, entry("PAY-2", 1)))
	assert.ErrorIs(t, s.AppendDownloadEntry(ctx, entry("PAY-1", 1)), apperrors.ErrConflict)

	settlement, err := s.MarkDownloadPaid(ctx, "PAY-1", "file-1", time.Now())
	require.NoError(t, err)
	assert.True(t, settlement.Applied)
	assert.Equal(t, int64(3), settlement.Certificate.TotalDownloads)
	assert.True(t, settlement.Certificate.TotalCollected.Equal(decimal.NewFromInt(1500)))

	again, err := s.MarkDownloadPaid(ctx, "PAY-1", "file-other", time.Now())
	require.NoError(t, err)
	assert.False(t, again.Applied)
	assert.Equal(t, "file-1", again.Entry.FileRef)
	assert.Equal(t, int64(3), again.Certificate.TotalDownloads)

	_, err = s.CancelDownload(ctx, "PAY-1", time.Now())
	assert.ErrorIs(t, err, apperrors.ErrPreconditionFailed, "paid entries cannot be cancelled")

	cancelled, err := s.CancelDownload(ctx, "PAY-2", time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCancelled, cancelled.Status)
	_, err = s.MarkDownloadPaid(ctx, "PAY-2", "file-2", time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidReference)

	d.Status = domain.StatusArchived
	require.NoError(t, s.ArchiveDeclaration(ctx, &d))
	assert.ErrorIs(t, s.AppendDownloadEntry(ctx, entry("PAY-3", 1)), apperrors.ErrArchived)

	entries, err := s.ListDownloadEntries(ctx, "cert-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "PAY-1", entries[0].PaymentReference)
	assert.Equal(t, domain.PaymentPaid, entries[0].Status, "paid entries stay readable after archive")
}

func TestParseHospitalSeed(t *testing.T) {
	hospitals, err := ParseHospitalSeed("hosp-principal:Hôpital Principal:DK-1, hosp-fann:CHU Fann:DK-2,")
	require.NoError(t, err)
	require.Len(t, hospitals, 2)
	assert.Equal(t, domain.Hospital{HospitalID: "hosp-fann", Name: "CHU Fann", CommuneID: "DK-2", IsActive: true}, hospitals[1])

	_, err = ParseHospitalSeed("broken")
	assert.Error(t, err)

	hospitals, err = ParseHospitalSeed("")
	require.NoError(t, err)
	assert.Empty(t, hospitals)
}
