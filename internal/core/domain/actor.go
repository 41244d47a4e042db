package domain

// Role is the part an authenticated actor plays in the declaration workflow.
type Role string

const (
	RoleGuardian  Role = "guardian"
	RoleMunicipal Role = "municipal"
	RoleHospital  Role = "hospital"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGuardian, RoleMunicipal, RoleHospital, RoleAdmin:
		return true
	}
	return false
}

// Actor is the identity resolved from a bearer token by the role directory.
// Affiliation holds the municipal office ID for municipal actors and the
// hospital ID for hospital actors; it is empty for guardians and admins.
type Actor struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	Affiliation string `json:"affiliation,omitempty"`
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// ActsForOffice reports whether the actor may act on behalf of a municipal office.
func (a Actor) ActsForOffice(municipalOfficeID string) bool {
	if a.IsAdmin() {
		return true
	}
	return a.Role == RoleMunicipal && a.Affiliation != "" && a.Affiliation == municipalOfficeID
}

// ActsForHospital reports whether the actor is a verifier of the given hospital.
func (a Actor) ActsForHospital(hospitalID string) bool {
	return a.Role == RoleHospital && a.Affiliation != "" && a.Affiliation == hospitalID
}
