package pgsql

import (
	"context"
	"strconv"

	"github.com/SscSPs/etat_civil_app/internal/apperrors"
	portsrepo "github.com/SscSPs/etat_civil_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxActCounterRepository struct {
	BaseRepository
}

func newPgxActCounterRepository(pool *pgxpool.Pool) *PgxActCounterRepository {
	return &PgxActCounterRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ActNumberAllocator = (*PgxActCounterRepository)(nil)

// NextActNumber increments the (registry, year) counter in a single statement;
// the row lock taken by the upsert serializes concurrent issuers.
func (r *PgxActCounterRepository) NextActNumber(ctx context.Context, registryNumber string, year int) (int64, error) {
	var next int64
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO act_counters (registry_number, year, last_act_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (registry_number, year)
		DO UPDATE SET last_act_number = act_counters.last_act_number + 1
		RETURNING last_act_number;
	`, registryNumber, year).Scan(&next)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to allocate act number for "+registryNumber+"/"+strconv.Itoa(year), err)
	}
	return next, nil
}
