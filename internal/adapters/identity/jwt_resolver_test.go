package identity

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	"github.com/SscSPs/etat_civil_app/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testIssuer = "etat-civil-identity"
)

func TestJWTResolver_ResolveActor(t *testing.T) {
	resolver := NewJWTResolver(testSecret, testIssuer)

	token, err := utils.GenerateJWT("officer-7", "municipal", "office-thies", testSecret, time.Hour, testIssuer)
	require.NoError(t, err)

	actor, err := resolver.ResolveActor(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{ID: "officer-7", Role: domain.RoleMunicipal, Affiliation: "office-thies"}, actor)
}

func TestJWTResolver_Rejects(t *testing.T) {
	resolver := NewJWTResolver(testSecret, testIssuer)

	tests := []struct {
		name        string
		role        string
		affiliation string
		secret      string
		expiry      time.Duration
	}{
		{name: "unknown role", role: "mayor", secret: testSecret, expiry: time.Hour},
		{name: "hospital without affiliation", role: "hospital", secret: testSecret, expiry: time.Hour},
		{name: "wrong signature", role: "guardian", secret: "other", expiry: time.Hour},
		{name: "expired", role: "guardian", secret: testSecret, expiry: -time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := utils.GenerateJWT("actor-1", tt.role, tt.affiliation, tt.secret, tt.expiry, testIssuer)
			require.NoError(t, err)

			_, err = resolver.ResolveActor(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
