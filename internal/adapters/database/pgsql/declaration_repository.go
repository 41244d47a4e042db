package pgsql

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/SscSPs/etat_civil_app/internal/apperrors"
	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portsrepo "github.com/SscSPs/etat_civil_app/internal/core/ports/repositories"
	"github.com/SscSPs/etat_civil_app/internal/models"
	"github.com/SscSPs/etat_civil_app/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxDeclarationRepository struct {
	BaseRepository
	psql sq.StatementBuilderType
}

// newPgxDeclarationRepository creates a new repository for declaration data.
func newPgxDeclarationRepository(pool *pgxpool.Pool) *PgxDeclarationRepository {
	return &PgxDeclarationRepository{
		BaseRepository: BaseRepository{Pool: pool},
		psql:           sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var _ portsrepo.DeclarationRepositoryFacade = (*PgxDeclarationRepository)(nil)

var declarationColumns = []string{
	"d.declaration_id", "d.guardian_id", "d.child", "d.father", "d.mother",
	"d.region_id", "d.department_id", "d.commune_id", "d.municipal_office_id",
	"d.hospital_id", "d.hospital_details", "d.assigned_hospital_id", "d.birth_certificate",
	"d.status", "d.municipal_officer_id", "d.municipal_rejection_reason", "d.hospital_rejection_reason",
	"d.sent_to_municipal_at", "d.sent_to_hospital_at", "d.validated_at", "d.rejected_at", "d.archived_at",
	"d.certificate_id", "d.version",
	"d.created_at", "d.created_by", "d.last_updated_at", "d.last_updated_by",
}

// getDeclarations runs a select built on declarationColumns and converts the rows.
func (r *PgxDeclarationRepository) getDeclarations(ctx context.Context, query string, args ...any) ([]domain.Declaration, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query declarations", err)
	}
	rowModels, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Declaration])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to collect declaration rows", err)
	}

	declarations := make([]domain.Declaration, 0, len(rowModels))
	for _, m := range rowModels {
		d, err := models.ToDomainDeclaration(m)
		if err != nil {
			return nil, apperrors.NewAppError(500, "corrupt declaration row "+m.DeclarationID, err)
		}
		declarations = append(declarations, d)
	}
	return declarations, nil
}

func (r *PgxDeclarationRepository) SaveDeclaration(ctx context.Context, declaration *domain.Declaration) error {
	m := models.FromDomainDeclaration(*declaration)
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO declarations (
			declaration_id, guardian_id, child, father, mother,
			region_id, department_id, commune_id, municipal_office_id,
			hospital_id, hospital_details, assigned_hospital_id, birth_certificate,
			status, sent_to_municipal_at, version,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1, $16, $17, $18, $19);
	`,
		m.DeclarationID, m.GuardianID, m.Child, m.Father, m.Mother,
		m.RegionID, m.DepartmentID, m.CommuneID, m.MunicipalOfficeID,
		m.HospitalID, m.HospitalDetails, m.AssignedHospital, m.BirthCertificate,
		m.Status, m.SentToMunicipalAt,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return apperrors.NewConflictError("declaration " + declaration.ID + " already exists")
		}
		return apperrors.NewAppError(500, "failed to save declaration "+declaration.ID, err)
	}
	declaration.Version = 1
	return nil
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// UpdateDeclaration writes every workflow column guarded by the version read.
// certificate_id is left alone; IssueCertificate owns it.
func (r *PgxDeclarationRepository) UpdateDeclaration(ctx context.Context, declaration *domain.Declaration) error {
	if err := r.updateDeclaration(ctx, r.Pool, declaration); err != nil {
		return err
	}
	declaration.Version++
	return nil
}

// ArchiveDeclaration writes the archived declaration and its certificate flag in one transaction.
func (r *PgxDeclarationRepository) ArchiveDeclaration(ctx context.Context, declaration *domain.Declaration) error {
	archivedAt := declaration.LastUpdatedAt
	if declaration.ArchivedAt != nil {
		archivedAt = *declaration.ArchivedAt
	}
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		if err := r.updateDeclaration(ctx, tx, declaration); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE certificates
			SET archived = TRUE, archived_at = COALESCE(archived_at, $1)
			WHERE declaration_id = $2;
		`, archivedAt, declaration.ID); err != nil {
			return apperrors.NewAppError(500, "failed to archive certificate of declaration "+declaration.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	declaration.Version++
	return nil
}

func (r *PgxDeclarationRepository) updateDeclaration(ctx context.Context, q execer, declaration *domain.Declaration) error {
	m := models.FromDomainDeclaration(*declaration)
	result, err := q.Exec(ctx, `
		UPDATE declarations
		SET assigned_hospital_id = $1, birth_certificate = $2, status = $3,
			municipal_officer_id = $4, municipal_rejection_reason = $5, hospital_rejection_reason = $6,
			sent_to_hospital_at = $7, validated_at = $8, rejected_at = $9, archived_at = $10,
			last_updated_at = $11, last_updated_by = $12, version = version + 1
		WHERE declaration_id = $13 AND version = $14;
	`,
		m.AssignedHospital, m.BirthCertificate, m.Status,
		m.MunicipalOfficerID, m.MunicipalRejectionReason, m.HospitalRejectionReason,
		m.SentToHospitalAt, m.ValidatedAt, m.RejectedAt, m.ArchivedAt,
		m.LastUpdatedAt, m.LastUpdatedBy,
		m.DeclarationID, m.Version,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update declaration "+declaration.ID, err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.FindDeclarationByID(ctx, declaration.ID); err != nil {
			return err
		}
		return apperrors.NewConflictError(fmt.Sprintf("optimistic locking failed: declaration %s changed since version %d", declaration.ID, declaration.Version))
	}
	return nil
}

func (r *PgxDeclarationRepository) FindDeclarationByID(ctx context.Context, declarationID string) (*domain.Declaration, error) {
	query, args, err := r.psql.Select(declarationColumns...).
		From("declarations d").
		Where(sq.Eq{"d.declaration_id": declarationID}).
		ToSql()
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to build declaration query", err)
	}
	declarations, err := r.getDeclarations(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(declarations) == 0 {
		return nil, apperrors.NewNotFoundError("declaration " + declarationID)
	}
	return &declarations[0], nil
}

func (r *PgxDeclarationRepository) ListDeclarations(ctx context.Context, filter domain.DeclarationFilter, limit int, nextToken *string) ([]domain.Declaration, *string, error) {
	builder := r.psql.Select(declarationColumns...).From("declarations d")

	if filter.GuardianID != "" {
		builder = builder.Where(sq.Eq{"d.guardian_id": filter.GuardianID})
	}
	if filter.MunicipalOfficeID != "" {
		builder = builder.Where(sq.Eq{"d.municipal_office_id": filter.MunicipalOfficeID})
	}
	if filter.AssignedHospitalID != "" {
		builder = builder.Where(sq.Eq{"d.assigned_hospital_id": filter.AssignedHospitalID})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		builder = builder.Where(sq.Eq{"d.status": statuses})
	}
	if nextToken != nil && *nextToken != "" {
		cursorAt, cursorID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		builder = builder.Where(sq.Expr("(d.created_at, d.declaration_id) < (?, ?)", cursorAt, cursorID))
	}

	// One extra row tells whether another page exists.
	query, args, err := builder.
		OrderBy("d.created_at DESC", "d.declaration_id DESC").
		Limit(uint64(limit + 1)).
		ToSql()
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to build declaration list query", err)
	}

	declarations, err := r.getDeclarations(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	if len(declarations) <= limit {
		return declarations, nil, nil
	}
	page := declarations[:limit]
	last := page[len(page)-1]
	token := pagination.EncodeToken(last.CreatedAt, last.ID)
	return page, &token, nil
}
