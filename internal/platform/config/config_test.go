package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "unit-test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.True(t, cfg.CertificateUnitPrice.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "XOF", cfg.CertificateCurrency)
	assert.Equal(t, "unit-test-secret", cfg.CertificateSealKey, "seal key falls back to the JWT secret outside production")
	assert.Equal(t, "unit-test-secret", cfg.PaymentCallbackSecret, "callback secret falls back to the JWT secret outside production")
	assert.False(t, cfg.RequireMunicipalCountersign)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("CERTIFICATE_UNIT_PRICE", "1000")
	t.Setenv("CERTIFICATE_CURRENCY", "xof")
	t.Setenv("CERTIFICATE_SEAL_KEY", "seal")
	t.Setenv("PAYMENT_CALLBACK_SECRET", "rail-secret")
	t.Setenv("WORKFLOW_REQUIRE_MUNICIPAL_COUNTERSIGN", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.sn, ,https://b.sn")
	t.Setenv("JWT_EXPIRY_DURATION", "soon")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.True(t, cfg.CertificateUnitPrice.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "XOF", cfg.CertificateCurrency)
	assert.Equal(t, "seal", cfg.CertificateSealKey)
	assert.Equal(t, "rail-secret", cfg.PaymentCallbackSecret)
	assert.True(t, cfg.RequireMunicipalCountersign)
	assert.Equal(t, []string{"https://a.sn", "https://b.sn"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "1h0m0s", cfg.JWTExpiryDuration.String())
}

func TestLoadConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "sqlite"}},
		{"price not a number", map[string]string{"STORAGE_DRIVER": "memory", "CERTIFICATE_UNIT_PRICE": "free"}},
		{"price not positive", map[string]string{"STORAGE_DRIVER": "memory", "CERTIFICATE_UNIT_PRICE": "0"}},
		{"production without seal key", map[string]string{"STORAGE_DRIVER": "memory", "IS_PRODUCTION": "true", "CERTIFICATE_SEAL_KEY": ""}},
		{"production without callback secret", map[string]string{"STORAGE_DRIVER": "memory", "IS_PRODUCTION": "true", "CERTIFICATE_SEAL_KEY": "seal", "PAYMENT_CALLBACK_SECRET": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
