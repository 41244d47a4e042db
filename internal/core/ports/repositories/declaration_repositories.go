package repositories

import (
	"context"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
)

// DeclarationReader defines read operations for declaration data
type DeclarationReader interface {
	// FindDeclarationByID retrieves a declaration with its current version.
	FindDeclarationByID(ctx context.Context, declarationID string) (*domain.Declaration, error)

	// ListDeclarations retrieves a page of declarations matching filter, newest first.
	// It returns the declarations, a token for the next page, and an error.
	ListDeclarations(ctx context.Context, filter domain.DeclarationFilter, limit int, nextToken *string) ([]domain.Declaration, *string, error)
}

// DeclarationWriter defines write operations for declaration data
type DeclarationWriter interface {
	// SaveDeclaration inserts a new declaration at version 1.
	SaveDeclaration(ctx context.Context, declaration *domain.Declaration) error

	// UpdateDeclaration stores declaration if the stored version still equals
	// declaration.Version, and bumps declaration.Version on success.
	// A stale version fails with apperrors.ErrConflict and writes nothing.
	UpdateDeclaration(ctx context.Context, declaration *domain.Declaration) error

	// ArchiveDeclaration is UpdateDeclaration for the archive transition. In
	// the same write it flags the declaration's certificate archived, if one
	// was issued. A stale version writes neither.
	ArchiveDeclaration(ctx context.Context, declaration *domain.Declaration) error
}

// DeclarationRepositoryFacade combines all declaration-related repository interfaces
type DeclarationRepositoryFacade interface {
	DeclarationReader
	DeclarationWriter
}

// HospitalReader answers questions about the hospital registry.
type HospitalReader interface {
	FindHospitalByID(ctx context.Context, hospitalID string) (*domain.Hospital, error)
}
