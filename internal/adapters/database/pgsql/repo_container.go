package pgsql

import (
	portsrepo "github.com/SscSPs/etat_civil_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		DeclarationRepo:    newPgxDeclarationRepository(dbPool),
		HospitalRepo:       newPgxHospitalRepository(dbPool),
		CertificateRepo:    newPgxCertificateRepository(dbPool),
		ActNumberAllocator: newPgxActCounterRepository(dbPool),
	}
}
