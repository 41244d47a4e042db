package models

import (
	"time"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
)

// Declaration is the row of the declarations table. Child, parents, inline
// hospital details and the birth certificate are JSONB documents.
// Exactly one of HospitalID and HospitalDetails is set.
type Declaration struct {
	DeclarationID     string                  `db:"declaration_id"`
	GuardianID        string                  `db:"guardian_id"`
	Child             domain.Child            `db:"child"`
	Father            domain.Parent           `db:"father"`
	Mother            domain.Parent           `db:"mother"`
	RegionID          string                  `db:"region_id"`
	DepartmentID      string                  `db:"department_id"`
	CommuneID         string                  `db:"commune_id"`
	MunicipalOfficeID string                  `db:"municipal_office_id"`
	HospitalID        *string                 `db:"hospital_id"`
	HospitalDetails   *domain.HospitalDetails `db:"hospital_details"`
	AssignedHospital  *string                 `db:"assigned_hospital_id"`
	BirthCertificate  domain.BirthCertificate `db:"birth_certificate"`

	Status                   string  `db:"status"`
	MunicipalOfficerID       *string `db:"municipal_officer_id"`
	MunicipalRejectionReason *string `db:"municipal_rejection_reason"`
	HospitalRejectionReason  *string `db:"hospital_rejection_reason"`

	SentToMunicipalAt *time.Time `db:"sent_to_municipal_at"`
	SentToHospitalAt  *time.Time `db:"sent_to_hospital_at"`
	ValidatedAt       *time.Time `db:"validated_at"`
	RejectedAt        *time.Time `db:"rejected_at"`
	ArchivedAt        *time.Time `db:"archived_at"`

	CertificateID *string `db:"certificate_id"`
	Version       int64   `db:"version"`
	AuditFields
}

// Hospital is the row of the hospitals registry table.
type Hospital struct {
	HospitalID string `db:"hospital_id"`
	Name       string `db:"name"`
	CommuneID  string `db:"commune_id"`
	IsActive   bool   `db:"is_active"`
}

// ToDomainDeclaration converts a row to the domain type.
func ToDomainDeclaration(m Declaration) (domain.Declaration, error) {
	status, err := domain.ParseDeclarationStatus(m.Status)
	if err != nil {
		return domain.Declaration{}, err
	}

	var hospital domain.HospitalLink
	switch {
	case m.HospitalID != nil:
		hospital = domain.RegisteredHospital{HospitalID: *m.HospitalID}
	case m.HospitalDetails != nil:
		hospital = domain.InlineHospital{Details: *m.HospitalDetails}
	}

	return domain.Declaration{
		ID:                       m.DeclarationID,
		GuardianID:               m.GuardianID,
		Child:                    m.Child,
		Father:                   m.Father,
		Mother:                   m.Mother,
		Geography:                domain.Geography{RegionID: m.RegionID, DepartmentID: m.DepartmentID, CommuneID: m.CommuneID, MunicipalOfficeID: m.MunicipalOfficeID},
		Hospital:                 hospital,
		AssignedHospitalID:       deref(m.AssignedHospital),
		BirthCertificate:         m.BirthCertificate,
		Status:                   status,
		MunicipalOfficerID:       deref(m.MunicipalOfficerID),
		MunicipalRejectionReason: deref(m.MunicipalRejectionReason),
		HospitalRejectionReason:  deref(m.HospitalRejectionReason),
		SentToMunicipalAt:        m.SentToMunicipalAt,
		SentToHospitalAt:         m.SentToHospitalAt,
		ValidatedAt:              m.ValidatedAt,
		RejectedAt:               m.RejectedAt,
		ArchivedAt:               m.ArchivedAt,
		CertificateID:            deref(m.CertificateID),
		Version:                  m.Version,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}, nil
}

// FromDomainDeclaration converts a domain declaration to a row.
func FromDomainDeclaration(d domain.Declaration) Declaration {
	m := Declaration{
		DeclarationID:            d.ID,
		GuardianID:               d.GuardianID,
		Child:                    d.Child,
		Father:                   d.Father,
		Mother:                   d.Mother,
		RegionID:                 d.RegionID,
		DepartmentID:             d.DepartmentID,
		CommuneID:                d.CommuneID,
		MunicipalOfficeID:        d.MunicipalOfficeID,
		AssignedHospital:         nullable(d.AssignedHospitalID),
		BirthCertificate:         d.BirthCertificate,
		Status:                   string(d.Status),
		MunicipalOfficerID:       nullable(d.MunicipalOfficerID),
		MunicipalRejectionReason: nullable(d.MunicipalRejectionReason),
		HospitalRejectionReason:  nullable(d.HospitalRejectionReason),
		SentToMunicipalAt:        d.SentToMunicipalAt,
		SentToHospitalAt:         d.SentToHospitalAt,
		ValidatedAt:              d.ValidatedAt,
		RejectedAt:               d.RejectedAt,
		ArchivedAt:               d.ArchivedAt,
		CertificateID:            nullable(d.CertificateID),
		Version:                  d.Version,
		AuditFields: AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}
	switch h := d.Hospital.(type) {
	case domain.RegisteredHospital:
		m.HospitalID = &h.HospitalID
	case domain.InlineHospital:
		details := h.Details
		m.HospitalDetails = &details
	}
	return m
}

// ToDomainHospital converts a registry row to the domain type.
func ToDomainHospital(m Hospital) domain.Hospital {
	return domain.Hospital(m)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
