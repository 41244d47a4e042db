package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeToken(t *testing.T) {
	createdAt := time.Date(2024, 5, 15, 14, 30, 45, 123456789, time.UTC)

	token := EncodeToken(createdAt, "2b1f0c3e-decl")
	assert.NotEmpty(t, token, "Token should not be empty")

	decodedAt, decodedID, err := DecodeToken(token)
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(decodedAt), "Created at should match after decode")
	assert.Equal(t, "2b1f0c3e-decl", decodedID)

	// IDs containing the separator survive the round trip
	decodedAt, decodedID, err = DecodeToken(EncodeToken(createdAt, "a|b"))
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(decodedAt))
	assert.Equal(t, "a|b", decodedID)
}

func TestDecodeTokenError(t *testing.T) {
	_, _, err := DecodeToken("this is not base64!")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "base64 decode")

	_, _, err = DecodeToken(base64.URLEncoding.EncodeToString([]byte("2024-05-15T00:00:00Z")))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "split")

	_, _, err = DecodeToken(base64.URLEncoding.EncodeToString([]byte("notadate|id-1")))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "created_at parse")
}

func TestAfter(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, After(at.Add(-time.Second), "z", at, "a"), "older rows come after the cursor")
	assert.False(t, After(at.Add(time.Second), "a", at, "z"), "newer rows come before the cursor")
	assert.True(t, After(at, "a", at, "b"), "ties are broken by descending id")
	assert.False(t, After(at, "b", at, "b"), "the cursor row itself is excluded")
}
