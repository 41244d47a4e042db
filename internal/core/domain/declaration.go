package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/etat_civil_app/internal/apperrors"
)

// DeclarationStatus is the closed set of lifecycle states of a declaration.
type DeclarationStatus string

const (
	StatusSubmittedToMunicipal        DeclarationStatus = "submitted_to_municipal"
	StatusHospitalVerificationPending DeclarationStatus = "hospital_verification_pending"
	StatusHospitalVerified            DeclarationStatus = "hospital_verified"
	StatusHospitalRejected            DeclarationStatus = "hospital_rejected"
	StatusValidated                   DeclarationStatus = "validated"
	StatusRejected                    DeclarationStatus = "rejected"
	StatusArchived                    DeclarationStatus = "archived"
)

// AllDeclarationStatuses lists every status in workflow order.
var AllDeclarationStatuses = []DeclarationStatus{
	StatusSubmittedToMunicipal,
	StatusHospitalVerificationPending,
	StatusHospitalVerified,
	StatusHospitalRejected,
	StatusValidated,
	StatusRejected,
	StatusArchived,
}

// ParseDeclarationStatus converts a stored or requested value into a status.
func ParseDeclarationStatus(s string) (DeclarationStatus, error) {
	for _, st := range AllDeclarationStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown declaration status %q", apperrors.ErrValidation, s)
}

// IsTerminal reports whether no event is accepted in this state.
func (s DeclarationStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusArchived
}

// Sex of the declared child.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// Child holds the birth facts of the declared child.
type Child struct {
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Sex        Sex       `json:"sex"`
	BirthDate  time.Time `json:"birthDate"`
	BirthTime  string    `json:"birthTime"` // HH:MM, local time of the birth place
	BirthPlace string    `json:"birthPlace"`
}

// Parent holds the civil data of a parent as declared by the guardian.
type Parent struct {
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	BirthDate  *time.Time `json:"birthDate,omitempty"`
	Profession string     `json:"profession,omitempty"`
	NationalID string     `json:"nationalID,omitempty"`
	Address    string     `json:"address,omitempty"`
}

// Geography is the administrative assignment of a declaration.
// MunicipalOfficeID is the routing key of the workflow.
type Geography struct {
	RegionID          string `json:"regionID"`
	DepartmentID      string `json:"departmentID"`
	CommuneID         string `json:"communeID"`
	MunicipalOfficeID string `json:"municipalOfficeID"`
}

// HospitalDetails describes a birth hospital that is not in the registry.
type HospitalDetails struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
}

// HospitalLink is either a RegisteredHospital or an InlineHospital.
type HospitalLink interface {
	hospitalLink()
}

// RegisteredHospital points at a hospital known to the registry.
type RegisteredHospital struct {
	HospitalID string
}

// InlineHospital carries the details of an unregistered birth hospital.
type InlineHospital struct {
	Details HospitalDetails
}

func (RegisteredHospital) hospitalLink() {}
func (InlineHospital) hospitalLink()     {}

// RegisteredHospitalID returns the registry ID when link is a RegisteredHospital.
func RegisteredHospitalID(link HospitalLink) (string, bool) {
	r, ok := link.(RegisteredHospital)
	if !ok {
		return "", false
	}
	return r.HospitalID, true
}

// Authenticity is the tri-state verdict on the hospital birth certificate.
type Authenticity string

const (
	AuthenticityUnset Authenticity = "unset"
	AuthenticityTrue  Authenticity = "true"
	AuthenticityFalse Authenticity = "false"
)

// BirthCertificate is the hospital-issued proof of birth attached to a declaration.
type BirthCertificate struct {
	DeliveryNumber      string       `json:"deliveryNumber"`
	DeliveryDate        time.Time    `json:"deliveryDate"`
	FileRef             string       `json:"fileRef,omitempty"`
	Authenticity        Authenticity `json:"authenticity"`
	VerifiedBy          string       `json:"verifiedBy,omitempty"`
	VerifiedAt          *time.Time   `json:"verifiedAt,omitempty"`
	VerificationComment string       `json:"verificationComment,omitempty"`
}

// Declaration is one birth declaration submitted by a guardian.
// Its status and workflow fields change only through WorkflowPolicy.Apply.
type Declaration struct {
	ID         string `json:"id"`
	GuardianID string `json:"guardianID"`

	Child  Child  `json:"child"`
	Father Parent `json:"father"`
	Mother Parent `json:"mother"`

	Geography
	Hospital           HospitalLink     `json:"-"`
	AssignedHospitalID string           `json:"assignedHospitalID,omitempty"`
	BirthCertificate   BirthCertificate `json:"birthCertificate"`

	Status                   DeclarationStatus `json:"status"`
	MunicipalOfficerID       string            `json:"municipalOfficerID,omitempty"`
	MunicipalRejectionReason string            `json:"municipalRejectionReason,omitempty"`
	HospitalRejectionReason  string            `json:"hospitalRejectionReason,omitempty"`

	SentToMunicipalAt *time.Time `json:"sentToMunicipalAt,omitempty"`
	SentToHospitalAt  *time.Time `json:"sentToHospitalAt,omitempty"`
	ValidatedAt       *time.Time `json:"validatedAt,omitempty"`
	RejectedAt        *time.Time `json:"rejectedAt,omitempty"`
	ArchivedAt        *time.Time `json:"archivedAt,omitempty"`

	CertificateID string `json:"certificateID,omitempty"`
	Version       int64  `json:"version"`
	AuditFields
}

// InTriage reports whether the declaration waits for municipal triage and no
// municipal officer has acted on it yet.
func (d *Declaration) InTriage() bool {
	return d.Status == StatusSubmittedToMunicipal && d.MunicipalOfficerID == ""
}

// HasAuthenticBirthCertificate reports whether a hospital confirmed the proof of birth.
func (d *Declaration) HasAuthenticBirthCertificate() bool {
	return d.BirthCertificate.Authenticity == AuthenticityTrue && d.BirthCertificate.VerifiedAt != nil
}

// Validate checks the presence of the business data required at submission.
func (d *Declaration) Validate() error {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	require("guardianID", d.GuardianID)
	require("child.firstName", d.Child.FirstName)
	require("child.lastName", d.Child.LastName)
	require("child.birthPlace", d.Child.BirthPlace)
	if d.Child.BirthDate.IsZero() {
		missing = append(missing, "child.birthDate")
	}
	if d.Child.Sex != SexMale && d.Child.Sex != SexFemale {
		missing = append(missing, "child.sex")
	}
	require("father.firstName", d.Father.FirstName)
	require("father.lastName", d.Father.LastName)
	require("mother.firstName", d.Mother.FirstName)
	require("mother.lastName", d.Mother.LastName)
	require("regionID", d.RegionID)
	require("departmentID", d.DepartmentID)
	require("communeID", d.CommuneID)
	require("municipalOfficeID", d.MunicipalOfficeID)
	require("birthCertificate.deliveryNumber", d.BirthCertificate.DeliveryNumber)
	if d.BirthCertificate.DeliveryDate.IsZero() {
		missing = append(missing, "birthCertificate.deliveryDate")
	}

	switch h := d.Hospital.(type) {
	case RegisteredHospital:
		require("hospital.hospitalID", h.HospitalID)
	case InlineHospital:
		require("hospital.name", h.Details.Name)
	default:
		missing = append(missing, "hospital")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", apperrors.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// DeclarationFilter narrows declaration listings. Empty fields do not filter.
type DeclarationFilter struct {
	GuardianID         string
	MunicipalOfficeID  string
	AssignedHospitalID string
	Statuses           []DeclarationStatus
}

// Hospital is an entry of the hospital registry.
type Hospital struct {
	HospitalID string `json:"hospitalID"`
	Name       string `json:"name"`
	CommuneID  string `json:"communeID"`
	IsActive   bool   `json:"isActive"`
}
