package services

import (
	"context"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
)

// DeclarationReaderSvc defines read operations for declarations
type DeclarationReaderSvc interface {
	// GetDeclaration returns a declaration visible to actor.
	GetDeclaration(ctx context.Context, actor domain.Actor, declarationID string) (*domain.Declaration, error)

	// ListDeclarations returns a page of declarations visible to actor.
	// The filter is narrowed to the actor's own scope.
	ListDeclarations(ctx context.Context, actor domain.Actor, filter domain.DeclarationFilter, limit int, nextToken *string) ([]domain.Declaration, *string, error)
}

// DeclarationWriterSvc defines the workflow operations of a declaration
type DeclarationWriterSvc interface {
	// Submit stores a new declaration filed by a guardian.
	Submit(ctx context.Context, actor domain.Actor, declaration domain.Declaration) (*domain.Declaration, error)

	RouteToHospital(ctx context.Context, actor domain.Actor, declarationID string, hospitalID string) (*domain.Declaration, error)
	Reject(ctx context.Context, actor domain.Actor, declarationID string, reason string) (*domain.Declaration, error)
	Validate(ctx context.Context, actor domain.Actor, declarationID string) (*domain.Declaration, error)
	Verify(ctx context.Context, actor domain.Actor, declarationID string, authentic bool, comment string) (*domain.Declaration, error)

	// Archive closes a validated declaration and archives its certificate, if any.
	Archive(ctx context.Context, actor domain.Actor, declarationID string) (*domain.Declaration, error)
}

// DeclarationSvcFacade combines all declaration-related service interfaces
type DeclarationSvcFacade interface {
	DeclarationReaderSvc
	DeclarationWriterSvc
}
