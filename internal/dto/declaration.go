package dto

import (
	"time"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
)

// ChildInput holds the declared child's birth facts.
type ChildInput struct {
	FirstName  string     `json:"firstName" binding:"required"`
	LastName   string     `json:"lastName" binding:"required"`
	Sex        domain.Sex `json:"sex" binding:"required,sex"`
	BirthDate  time.Time  `json:"birthDate" binding:"required"`
	BirthTime  string     `json:"birthTime" binding:"omitempty,datetime=15:04"`
	BirthPlace string     `json:"birthPlace" binding:"required"`
}

// ParentInput holds a parent's civil data.
type ParentInput struct {
	FirstName  string     `json:"firstName" binding:"required"`
	LastName   string     `json:"lastName" binding:"required"`
	BirthDate  *time.Time `json:"birthDate"`
	Profession string     `json:"profession"`
	NationalID string     `json:"nationalID"`
	Address    string     `json:"address"`
}

// InlineHospitalInput describes a birth hospital missing from the registry.
type InlineHospitalInput struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	City    string `json:"city"`
}

// HospitalInput names either a registered hospital or an inline one, never both.
type HospitalInput struct {
	HospitalID *string              `json:"hospitalID" binding:"required_without=Other,excluded_with=Other"`
	Other      *InlineHospitalInput `json:"other" binding:"required_without=HospitalID,excluded_with=HospitalID"`
}

// BirthCertificateInput is the hospital proof of birth attached by the guardian.
type BirthCertificateInput struct {
	DeliveryNumber string    `json:"deliveryNumber" binding:"required"`
	DeliveryDate   time.Time `json:"deliveryDate" binding:"required"`
	FileRef        string    `json:"fileRef"` // Reference returned by the document upload endpoint
}

// SubmitDeclarationRequest defines the data a guardian sends to declare a birth.
type SubmitDeclarationRequest struct {
	Child             ChildInput            `json:"child" binding:"required"`
	Father            ParentInput           `json:"father" binding:"required"`
	Mother            ParentInput           `json:"mother" binding:"required"`
	RegionID          string                `json:"regionID" binding:"required"`
	DepartmentID      string                `json:"departmentID" binding:"required"`
	CommuneID         string                `json:"communeID" binding:"required"`
	MunicipalOfficeID string                `json:"municipalOfficeID" binding:"required"`
	Hospital          HospitalInput         `json:"hospital" binding:"required"`
	BirthCertificate  BirthCertificateInput `json:"birthCertificate" binding:"required"`
}

// ToDomain builds the declaration owned by guardianID. Workflow fields are left
// for the service to initialise.
func (r SubmitDeclarationRequest) ToDomain(guardianID string) domain.Declaration {
	var hospital domain.HospitalLink
	switch {
	case r.Hospital.HospitalID != nil:
		hospital = domain.RegisteredHospital{HospitalID: *r.Hospital.HospitalID}
	case r.Hospital.Other != nil:
		hospital = domain.InlineHospital{Details: domain.HospitalDetails{
			Name:    r.Hospital.Other.Name,
			Address: r.Hospital.Other.Address,
			City:    r.Hospital.Other.City,
		}}
	}

	return domain.Declaration{
		GuardianID: guardianID,
		Child: domain.Child{
			FirstName:  r.Child.FirstName,
			LastName:   r.Child.LastName,
			Sex:        r.Child.Sex,
			BirthDate:  r.Child.BirthDate,
			BirthTime:  r.Child.BirthTime,
			BirthPlace: r.Child.BirthPlace,
		},
		Father: toDomainParent(r.Father),
		Mother: toDomainParent(r.Mother),
		Geography: domain.Geography{
			RegionID:          r.RegionID,
			DepartmentID:      r.DepartmentID,
			CommuneID:         r.CommuneID,
			MunicipalOfficeID: r.MunicipalOfficeID,
		},
		Hospital: hospital,
		BirthCertificate: domain.BirthCertificate{
			DeliveryNumber: r.BirthCertificate.DeliveryNumber,
			DeliveryDate:   r.BirthCertificate.DeliveryDate,
			FileRef:        r.BirthCertificate.FileRef,
			Authenticity:   domain.AuthenticityUnset,
		},
	}
}

func toDomainParent(p ParentInput) domain.Parent {
	return domain.Parent{
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		BirthDate:  p.BirthDate,
		Profession: p.Profession,
		NationalID: p.NationalID,
		Address:    p.Address,
	}
}

// RouteToHospitalRequest assigns the verifying hospital.
type RouteToHospitalRequest struct {
	HospitalID string `json:"hospitalID" binding:"required"`
}

// RejectDeclarationRequest carries the municipal rejection reason.
type RejectDeclarationRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// VerifyDeclarationRequest carries the hospital verdict on the birth certificate.
type VerifyDeclarationRequest struct {
	Authentic *bool  `json:"authentic" binding:"required"`
	Comment   string `json:"comment"`
}

// ListDeclarationsParams defines the query parameters for listing declarations.
type ListDeclarationsParams struct {
	Status            string  `form:"status"`
	MunicipalOfficeID string  `form:"municipalOfficeID"`
	HospitalID        string  `form:"hospitalID"`
	Limit             int     `form:"limit" binding:"omitempty,min=1,max=100"`
	NextToken         *string `form:"nextToken"`
}

// HospitalResponse renders the hospital union of a declaration.
type HospitalResponse struct {
	Kind       string `json:"kind"` // registered or inline
	HospitalID string `json:"hospitalID,omitempty"`
	Name       string `json:"name,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
}

// DeclarationResponse defines the data returned for a declaration.
type DeclarationResponse struct {
	domain.Declaration
	Hospital         HospitalResponse `json:"hospital"`
	AvailableActions []string         `json:"availableActions"`
}

// ListDeclarationsResponse wraps a page of declarations.
type ListDeclarationsResponse struct {
	Declarations []DeclarationResponse `json:"declarations"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

var workflowCommands = []domain.CommandKind{
	domain.CommandRouteToHospital,
	domain.CommandReject,
	domain.CommandValidate,
	domain.CommandVerify,
	domain.CommandArchive,
}

// ToDeclarationResponse converts a domain.Declaration for a viewer with the given role.
func ToDeclarationResponse(d *domain.Declaration, viewer domain.Role) DeclarationResponse {
	resp := DeclarationResponse{Declaration: *d, AvailableActions: []string{}}
	switch h := d.Hospital.(type) {
	case domain.RegisteredHospital:
		resp.Hospital = HospitalResponse{Kind: "registered", HospitalID: h.HospitalID}
	case domain.InlineHospital:
		resp.Hospital = HospitalResponse{Kind: "inline", Name: h.Details.Name, Address: h.Details.Address, City: h.Details.City}
	}
	for _, cmd := range workflowCommands {
		if domain.Allowed(d, viewer, cmd) {
			resp.AvailableActions = append(resp.AvailableActions, string(cmd))
		}
	}
	return resp
}

// ToDeclarationResponses converts a slice of domain.Declaration.
func ToDeclarationResponses(decls []domain.Declaration, viewer domain.Role) []DeclarationResponse {
	responses := make([]DeclarationResponse, len(decls))
	for i := range decls {
		responses[i] = ToDeclarationResponse(&decls[i], viewer)
	}
	return responses
}
