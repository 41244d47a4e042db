package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/etat_civil_app/internal/apperrors"
	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portsrepo "github.com/SscSPs/etat_civil_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// declarationService implements the DeclarationSvcFacade interface
type declarationService struct {
	BaseService
	declarationRepo portsrepo.DeclarationRepositoryFacade
	hospitalRepo    portsrepo.HospitalReader
	policy          domain.WorkflowPolicy
}

// NewDeclarationService creates a new declaration service.
func NewDeclarationService(
	declarationRepo portsrepo.DeclarationRepositoryFacade,
	hospitalRepo portsrepo.HospitalReader,
	policy domain.WorkflowPolicy,
	options ...ServiceOption,
) portssvc.DeclarationSvcFacade {
	return &declarationService{
		BaseService:     newBaseService(options),
		declarationRepo: declarationRepo,
		hospitalRepo:    hospitalRepo,
		policy:          policy,
	}
}

var _ portssvc.DeclarationSvcFacade = (*declarationService)(nil)

func (s *declarationService) Submit(ctx context.Context, actor domain.Actor, declaration domain.Declaration) (*domain.Declaration, error) {
	if actor.Role != domain.RoleGuardian {
		return nil, fmt.Errorf("%w: only guardians can declare a birth", apperrors.ErrForbidden)
	}

	declaration.GuardianID = actor.ID
	if err := declaration.Validate(); err != nil {
		s.LogDebug(ctx, "Declaration rejected at submission", slog.String("error", err.Error()))
		return nil, err
	}

	if hospitalID, ok := domain.RegisteredHospitalID(declaration.Hospital); ok {
		if _, err := s.registeredHospital(ctx, hospitalID); err != nil {
			if errors.Is(err, apperrors.ErrPreconditionFailed) {
				return nil, fmt.Errorf("%w: hospital %s is not in the registry", apperrors.ErrValidation, hospitalID)
			}
			return nil, err
		}
	}

	now := s.Now()
	declaration.ID = uuid.NewString()
	declaration.Status = domain.StatusSubmittedToMunicipal
	declaration.SentToMunicipalAt = &now
	declaration.AssignedHospitalID = ""
	declaration.MunicipalOfficerID = ""
	declaration.CertificateID = ""
	declaration.BirthCertificate.Authenticity = domain.AuthenticityUnset
	declaration.BirthCertificate.VerifiedBy = ""
	declaration.BirthCertificate.VerifiedAt = nil
	declaration.Version = 1
	declaration.AuditFields = domain.AuditFields{
		CreatedAt:     now,
		CreatedBy:     actor.ID,
		LastUpdatedAt: now,
		LastUpdatedBy: actor.ID,
	}

	if err := s.declarationRepo.SaveDeclaration(ctx, &declaration); err != nil {
		s.LogError(ctx, err, "Failed to save declaration",
			slog.String("guardian_id", actor.ID))
		return nil, err
	}

	s.LogInfo(ctx, "Declaration submitted",
		slog.String("declaration_id", declaration.ID),
		slog.String("municipal_office_id", declaration.MunicipalOfficeID))
	s.Publish(ctx, domain.SubmittedEvent(&declaration))
	return &declaration, nil
}

func (s *declarationService) GetDeclaration(ctx context.Context, actor domain.Actor, declarationID string) (*domain.Declaration, error) {
	declaration, err := s.declarationRepo.FindDeclarationByID(ctx, declarationID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find declaration",
				slog.String("declaration_id", declarationID))
		}
		return nil, err
	}
	if !canView(actor, declaration) {
		return nil, fmt.Errorf("%w: declaration %s", apperrors.ErrNotFound, declarationID) // Obscure existence
	}
	return declaration, nil
}

func (s *declarationService) ListDeclarations(ctx context.Context, actor domain.Actor, filter domain.DeclarationFilter, limit int, nextToken *string) ([]domain.Declaration, *string, error) {
	scoped, err := scopeFilter(actor, filter)
	if err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	declarations, next, err := s.declarationRepo.ListDeclarations(ctx, scoped, limit, nextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list declarations",
			slog.String("actor_id", actor.ID))
		return nil, nil, err
	}
	return declarations, next, nil
}

func (s *declarationService) RouteToHospital(ctx context.Context, actor domain.Actor, declarationID string, hospitalID string) (*domain.Declaration, error) {
	return s.transition(ctx, actor, declarationID, domain.Command{Kind: domain.CommandRouteToHospital, HospitalID: hospitalID})
}

func (s *declarationService) Reject(ctx context.Context, actor domain.Actor, declarationID string, reason string) (*domain.Declaration, error) {
	return s.transition(ctx, actor, declarationID, domain.Command{Kind: domain.CommandReject, Reason: reason})
}

func (s *declarationService) Validate(ctx context.Context, actor domain.Actor, declarationID string) (*domain.Declaration, error) {
	return s.transition(ctx, actor, declarationID, domain.Command{Kind: domain.CommandValidate})
}

func (s *declarationService) Verify(ctx context.Context, actor domain.Actor, declarationID string, authentic bool, comment string) (*domain.Declaration, error) {
	return s.transition(ctx, actor, declarationID, domain.Command{Kind: domain.CommandVerify, Authentic: authentic, Comment: comment})
}

func (s *declarationService) Archive(ctx context.Context, actor domain.Actor, declarationID string) (*domain.Declaration, error) {
	return s.transition(ctx, actor, declarationID, domain.Command{Kind: domain.CommandArchive})
}

// transition reads the declaration, applies cmd and writes the result guarded
// by the version read. Events are published only once the write succeeded.
// Archiving also archives the issued certificate within that single write.
func (s *declarationService) transition(ctx context.Context, actor domain.Actor, declarationID string, cmd domain.Command) (*domain.Declaration, error) {
	current, err := s.declarationRepo.FindDeclarationByID(ctx, declarationID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to load declaration for transition",
				slog.String("declaration_id", declarationID),
				slog.String("command", string(cmd.Kind)))
		}
		return nil, err
	}

	next, events, err := s.policy.Apply(*current, actor, cmd, s.Now())
	if err != nil {
		s.LogDebug(ctx, "Transition refused",
			slog.String("declaration_id", declarationID),
			slog.String("status", string(current.Status)),
			slog.String("command", string(cmd.Kind)),
			slog.String("error", err.Error()))
		return nil, err
	}

	write := s.declarationRepo.UpdateDeclaration
	switch cmd.Kind {
	case domain.CommandRouteToHospital:
		if _, err := s.registeredHospital(ctx, next.AssignedHospitalID); err != nil {
			return nil, err
		}
	case domain.CommandArchive:
		// The certificate is archived in the same write as the declaration.
		write = s.declarationRepo.ArchiveDeclaration
	}

	if err := write(ctx, &next); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			s.LogInfo(ctx, "Concurrent transition lost the race",
				slog.String("declaration_id", declarationID),
				slog.String("command", string(cmd.Kind)))
		} else {
			s.LogError(ctx, err, "Failed to store transition",
				slog.String("declaration_id", declarationID))
		}
		return nil, err
	}

	s.Metrics.Transition(string(cmd.Kind), string(next.Status))
	s.LogInfo(ctx, "Declaration transitioned",
		slog.String("declaration_id", declarationID),
		slog.String("from", string(current.Status)),
		slog.String("to", string(next.Status)),
		slog.String("command", string(cmd.Kind)))
	s.Publish(ctx, events...)
	return &next, nil
}

// registeredHospital resolves an active registry entry. Unknown or inactive
// hospitals fail the guard with ErrPreconditionFailed.
func (s *declarationService) registeredHospital(ctx context.Context, hospitalID string) (*domain.Hospital, error) {
	hospital, err := s.hospitalRepo.FindHospitalByID(ctx, hospitalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Precondition("hospital %s is not in the registry", hospitalID)
		}
		s.LogError(ctx, err, "Failed to look up hospital",
			slog.String("hospital_id", hospitalID))
		return nil, err
	}
	if !hospital.IsActive {
		return nil, apperrors.Precondition("hospital %s is not active", hospitalID)
	}
	return hospital, nil
}

func canView(actor domain.Actor, d *domain.Declaration) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleGuardian:
		return d.GuardianID == actor.ID
	case domain.RoleMunicipal:
		return actor.ActsForOffice(d.MunicipalOfficeID)
	case domain.RoleHospital:
		return d.AssignedHospitalID != "" && actor.ActsForHospital(d.AssignedHospitalID)
	}
	return false
}

// scopeFilter pins the filter to what the actor is allowed to see.
func scopeFilter(actor domain.Actor, filter domain.DeclarationFilter) (domain.DeclarationFilter, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		return filter, nil
	case domain.RoleGuardian:
		filter.GuardianID = actor.ID
		return filter, nil
	case domain.RoleMunicipal:
		if filter.MunicipalOfficeID != "" && filter.MunicipalOfficeID != actor.Affiliation {
			return filter, fmt.Errorf("%w: office %s is outside your affiliation", apperrors.ErrForbidden, filter.MunicipalOfficeID)
		}
		filter.MunicipalOfficeID = actor.Affiliation
	case domain.RoleHospital:
		if filter.AssignedHospitalID != "" && filter.AssignedHospitalID != actor.Affiliation {
			return filter, fmt.Errorf("%w: hospital %s is outside your affiliation", apperrors.ErrForbidden, filter.AssignedHospitalID)
		}
		filter.AssignedHospitalID = actor.Affiliation
	default:
		return filter, apperrors.ErrForbidden
	}
	if actor.Affiliation == "" {
		return filter, fmt.Errorf("%w: actor has no affiliation", apperrors.ErrForbidden)
	}
	return filter, nil
}
