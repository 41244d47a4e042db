package pgsql

import (
	"context"
	"errors"

	"github.com/SscSPs/etat_civil_app/internal/apperrors"
	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portsrepo "github.com/SscSPs/etat_civil_app/internal/core/ports/repositories"
	"github.com/SscSPs/etat_civil_app/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxHospitalRepository struct {
	BaseRepository
}

func newPgxHospitalRepository(pool *pgxpool.Pool) *PgxHospitalRepository {
	return &PgxHospitalRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.HospitalReader = (*PgxHospitalRepository)(nil)

func (r *PgxHospitalRepository) FindHospitalByID(ctx context.Context, hospitalID string) (*domain.Hospital, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT hospital_id, name, commune_id, is_active
		FROM hospitals
		WHERE hospital_id = $1;
	`, hospitalID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query hospital "+hospitalID, err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Hospital])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("hospital " + hospitalID)
		}
		return nil, apperrors.NewAppError(500, "failed to scan hospital "+hospitalID, err)
	}
	hospital := models.ToDomainHospital(row)
	return &hospital, nil
}
