package services

import (
	"fmt"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portsrepo "github.com/SscSPs/etat_civil_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/SscSPs/etat_civil_app/internal/platform/config"
)

// Collaborators are the outbound adapters the services talk to.
type Collaborators struct {
	PaymentRail portssvc.PaymentRail
	Renderer    portssvc.CertificateRenderer
	Documents   portssvc.DocumentStore
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, collab Collaborators, options ...ServiceOption) (*portssvc.ServiceContainer, error) {
	sealer, err := NewSealer(cfg.CertificateSealKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build certificate sealer: %w", err)
	}

	container := &portssvc.ServiceContainer{Documents: collab.Documents}

	container.Certificate = NewCertificateService(CertificateDependencies{
		CertificateRepo:    repos.CertificateRepo,
		DeclarationRepo:    repos.DeclarationRepo,
		HospitalRepo:       repos.HospitalRepo,
		ActNumberAllocator: repos.ActNumberAllocator,
		Sealer:             sealer,
		PaymentRail:        collab.PaymentRail,
		Renderer:           collab.Renderer,
		Documents:          collab.Documents,
		Tariff: Tariff{
			UnitPrice: cfg.CertificateUnitPrice,
			Currency:  cfg.CertificateCurrency,
		},
	}, options...)

	container.Declaration = NewDeclarationService(
		repos.DeclarationRepo,
		repos.HospitalRepo,
		domain.WorkflowPolicy{RequireMunicipalCountersign: cfg.RequireMunicipalCountersign},
		options...,
	)

	return container, nil
}
