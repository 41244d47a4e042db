package services_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SscSPs/etat_civil_app/internal/adapters/database/memory"
	"github.com/SscSPs/etat_civil_app/internal/adapters/renderer"
	"github.com/SscSPs/etat_civil_app/internal/apperrors"
	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/SscSPs/etat_civil_app/internal/core/services"
	"github.com/SscSPs/etat_civil_app/internal/platform/config"
	"github.com/SscSPs/etat_civil_app/internal/platform/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

var (
	guardian      = domain.Actor{ID: "guardian-1", Role: domain.RoleGuardian}
	otherGuardian = domain.Actor{ID: "guardian-2", Role: domain.RoleGuardian}
	officer       = domain.Actor{ID: "officer-1", Role: domain.RoleMunicipal, Affiliation: "office-dakar"}
	outsider      = domain.Actor{ID: "officer-9", Role: domain.RoleMunicipal, Affiliation: "office-thies"}
	verifier      = domain.Actor{ID: "nurse-1", Role: domain.RoleHospital, Affiliation: "hosp-principal"}
	admin         = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
)

// recordingNotifier keeps every published event.
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.LifecycleEvent
}

func (n *recordingNotifier) Notify(_ context.Context, e domain.LifecycleEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) kindsFor(declarationID string) []domain.LifecycleEventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var kinds []domain.LifecycleEventKind
	for _, e := range n.events {
		if e.DeclarationID == declarationID {
			kinds = append(kinds, e.Kind)
		}
	}
	return kinds
}

// fakeRail echoes the payment into a checkout link.
type fakeRail struct{}

func (fakeRail) Initiate(_ context.Context, p portssvc.PaymentInitiation) (string, error) {
	return fmt.Sprintf("https://pay.test/%s/%s?amount=%s", p.Method, p.Reference, p.Amount), nil
}

// memoryDocuments is a DocumentStore backed by a map.
type memoryDocuments struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (d *memoryDocuments) Store(_ context.Context, content []byte, _ string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ref := uuid.NewString()
	d.files[ref] = content
	return ref, nil
}

func (d *memoryDocuments) Fetch(_ context.Context, ref string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	content, ok := d.files[ref]
	if !ok {
		return nil, apperrors.NewNotFoundError("document " + ref)
	}
	return content, nil
}

func (d *memoryDocuments) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.files)
}

// workflowFixture wires the services to the in-memory store.
type workflowFixture struct {
	suite.Suite
	ctx         context.Context
	store       *memory.Store
	notifier    *recordingNotifier
	documents   *memoryDocuments
	sealer      *services.Sealer
	declaration portssvc.DeclarationSvcFacade
	certificate portssvc.CertificateSvcFacade
	unitPrice   decimal.Decimal
	countersign bool
}

func (s *workflowFixture) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.store.PutHospital(domain.Hospital{HospitalID: "hosp-principal", Name: "Hôpital Principal", CommuneID: "DK-1-1", IsActive: true})
	s.store.PutHospital(domain.Hospital{HospitalID: "hosp-closed", Name: "Ancienne Clinique", CommuneID: "DK-1-1", IsActive: false})
	s.notifier = &recordingNotifier{}
	s.documents = &memoryDocuments{files: make(map[string][]byte)}
	s.unitPrice = decimal.NewFromInt(500)

	cfg := &config.Config{
		CertificateUnitPrice:        s.unitPrice,
		CertificateCurrency:         "XOF",
		CertificateSealKey:          "test-seal-key",
		RequireMunicipalCountersign: s.countersign,
	}

	var tick atomic.Int64
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return start.Add(time.Duration(tick.Add(1)) * time.Second) }

	container, err := services.NewServiceContainer(cfg, s.store.Provider(), services.Collaborators{
		PaymentRail: fakeRail{},
		Renderer:    renderer.JSONRenderer{},
		Documents:   s.documents,
	},
		services.WithNotifier(s.notifier),
		services.WithMetrics(metrics.New(prometheus.NewRegistry())),
		services.WithClock(clock),
	)
	s.Require().NoError(err)
	s.declaration = container.Declaration
	s.certificate = container.Certificate

	s.sealer, err = services.NewSealer(cfg.CertificateSealKey)
	s.Require().NoError(err)
}

func submission(hospital domain.HospitalLink) domain.Declaration {
	return domain.Declaration{
		Child: domain.Child{
			FirstName: "Awa", LastName: "Diop", Sex: domain.SexFemale,
			BirthDate: time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC), BirthTime: "06:45", BirthPlace: "Dakar",
		},
		Father:    domain.Parent{FirstName: "Moussa", LastName: "Diop", Profession: "pêcheur"},
		Mother:    domain.Parent{FirstName: "Fatou", LastName: "Sarr"},
		Geography: domain.Geography{RegionID: "DK", DepartmentID: "DK-1", CommuneID: "DK-1-1", MunicipalOfficeID: "office-dakar"},
		Hospital:  hospital,
		BirthCertificate: domain.BirthCertificate{
			DeliveryNumber: "CA-2025-0042",
			DeliveryDate:   time.Date(2025, 5, 21, 0, 0, 0, 0, time.UTC),
		},
	}
}

func (s *workflowFixture) submitInline() *domain.Declaration {
	d, err := s.declaration.Submit(s.ctx, guardian, submission(domain.InlineHospital{Details: domain.HospitalDetails{Name: "Case de santé de Yoff"}}))
	s.Require().NoError(err)
	return d
}

func (s *workflowFixture) submitRegistered() *domain.Declaration {
	d, err := s.declaration.Submit(s.ctx, guardian, submission(domain.RegisteredHospital{HospitalID: "hosp-principal"}))
	s.Require().NoError(err)
	return d
}

// issued runs an inline declaration to validation and issues its certificate.
func (s *workflowFixture) issued() (*domain.Declaration, *domain.Certificate) {
	d := s.submitInline()
	_, err := s.declaration.Validate(s.ctx, officer, d.ID)
	s.Require().NoError(err)
	c, err := s.certificate.Issue(s.ctx, officer, d.ID)
	s.Require().NoError(err)
	return d, c
}
