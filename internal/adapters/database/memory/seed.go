package memory

import (
	"fmt"
	"strings"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
)

// ParseHospitalSeed reads "id:name:communeID" entries separated by commas.
// Seeded hospitals are active.
func ParseHospitalSeed(seed string) ([]domain.Hospital, error) {
	var hospitals []domain.Hospital
	for _, raw := range strings.Split(seed, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ":")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid hospital seed %q, want id:name:communeID", raw)
		}
		hospitals = append(hospitals, domain.Hospital{
			HospitalID: parts[0],
			Name:       parts[1],
			CommuneID:  parts[2],
			IsActive:   true,
		})
	}
	return hospitals, nil
}
