package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseJWT(t *testing.T) {
	token, err := GenerateJWT("officer-1", "municipal", "office-dakar-plateau", "secret", time.Hour, "etat-civil-identity")
	require.NoError(t, err)

	claims, err := ParseAndValidateJWT(token, "secret", "etat-civil-identity")
	require.NoError(t, err)
	assert.Equal(t, "officer-1", claims.Subject)
	assert.Equal(t, "municipal", claims.Role)
	assert.Equal(t, "office-dakar-plateau", claims.Affiliation)
}

func TestParseAndValidateJWT_Rejects(t *testing.T) {
	token, err := GenerateJWT("officer-1", "municipal", "", "secret", time.Hour, "etat-civil-identity")
	require.NoError(t, err)

	_, err = ParseAndValidateJWT(token, "other-secret", "etat-civil-identity")
	assert.Error(t, err, "wrong key")

	_, err = ParseAndValidateJWT(token, "secret", "someone-else")
	assert.Error(t, err, "wrong issuer")

	expired, err := GenerateJWT("officer-1", "municipal", "", "secret", -time.Minute, "etat-civil-identity")
	require.NoError(t, err)
	_, err = ParseAndValidateJWT(expired, "secret", "etat-civil-identity")
	assert.Error(t, err, "expired")
}

func TestGeneratePaymentReference(t *testing.T) {
	a, err := GeneratePaymentReference()
	require.NoError(t, err)
	b, err := GeneratePaymentReference()
	require.NoError(t, err)

	assert.Regexp(t, `^PAY-[0-9A-F]{24}$`, a)
	assert.NotEqual(t, a, b)
}
