package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	StorageDriver string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	LogLevel      string

	JWTSecret         string
	JWTIssuer         string
	JWTExpiryDuration time.Duration

	CertificateUnitPrice decimal.Decimal
	CertificateCurrency  string
	CertificateSealKey   string

	RequireMunicipalCountersign bool

	DocumentStoreDir       string
	PaymentCheckoutBaseURL string
	// PaymentCallbackSecret keys the signature the payment rail puts on /payments/confirm.
	PaymentCallbackSecret string

	RedisURL           string
	NotificationStream string

	RateLimit          string
	CORSAllowedOrigins []string

	// MemoryHospitals seeds the hospital registry of the memory driver.
	// Format: id:name:communeID entries separated by commas.
	MemoryHospitals string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("STORAGE_DRIVER", StorageDriverPostgres)
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "etat-civil-identity")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("CERTIFICATE_UNIT_PRICE", "500")
	viper.SetDefault("CERTIFICATE_CURRENCY", "XOF")
	viper.SetDefault("CERTIFICATE_SEAL_KEY", "")
	viper.SetDefault("WORKFLOW_REQUIRE_MUNICIPAL_COUNTERSIGN", false)
	viper.SetDefault("DOCUMENT_STORE_DIR", "./data/documents")
	viper.SetDefault("PAYMENT_CHECKOUT_BASE_URL", "https://pay.example.sn/checkout")
	viper.SetDefault("PAYMENT_CALLBACK_SECRET", "")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("NOTIFICATION_STREAM", "etatcivil:notifications")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("MEMORY_HOSPITALS", "")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	cfg.StorageDriver = strings.ToLower(viper.GetString("STORAGE_DRIVER"))
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DatabaseURL == "" {
			log.Println("Warning: PGSQL_URL environment variable not set.")
		}
	case StorageDriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.LogLevel = viper.GetString("LOG_LEVEL")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	jwtExpiryStr := viper.GetString("JWT_EXPIRY_DURATION")
	jwtExpiryDuration, err := time.ParseDuration(jwtExpiryStr)
	if err != nil {
		jwtExpiryDuration = time.Hour
		log.Printf("Warning: Invalid value for JWT_EXPIRY_DURATION ('%s'). Defaulting to %s.\n", jwtExpiryStr, jwtExpiryDuration.String())
	}
	cfg.JWTExpiryDuration = jwtExpiryDuration

	unitPrice, err := decimal.NewFromString(viper.GetString("CERTIFICATE_UNIT_PRICE"))
	if err != nil {
		return nil, fmt.Errorf("invalid CERTIFICATE_UNIT_PRICE: %w", err)
	}
	if !unitPrice.IsPositive() {
		return nil, fmt.Errorf("CERTIFICATE_UNIT_PRICE must be positive, got %s", unitPrice)
	}
	cfg.CertificateUnitPrice = unitPrice
	cfg.CertificateCurrency = strings.ToUpper(viper.GetString("CERTIFICATE_CURRENCY"))

	cfg.CertificateSealKey = viper.GetString("CERTIFICATE_SEAL_KEY")
	if cfg.CertificateSealKey == "" {
		if cfg.IsProduction {
			return nil, fmt.Errorf("CERTIFICATE_SEAL_KEY is required in production")
		}
		log.Println("Warning: CERTIFICATE_SEAL_KEY not set. Falling back to JWT_SECRET. THIS IS NOT FOR PRODUCTION.")
		cfg.CertificateSealKey = cfg.JWTSecret
	}

	cfg.RequireMunicipalCountersign = viper.GetBool("WORKFLOW_REQUIRE_MUNICIPAL_COUNTERSIGN")
	cfg.DocumentStoreDir = viper.GetString("DOCUMENT_STORE_DIR")
	cfg.PaymentCheckoutBaseURL = viper.GetString("PAYMENT_CHECKOUT_BASE_URL")
	cfg.PaymentCallbackSecret = viper.GetString("PAYMENT_CALLBACK_SECRET")
	if cfg.PaymentCallbackSecret == "" {
		if cfg.IsProduction {
			return nil, fmt.Errorf("PAYMENT_CALLBACK_SECRET is required in production")
		}
		log.Println("Warning: PAYMENT_CALLBACK_SECRET not set. Falling back to JWT_SECRET. THIS IS NOT FOR PRODUCTION.")
		cfg.PaymentCallbackSecret = cfg.JWTSecret
	}

	cfg.RedisURL = viper.GetString("REDIS_URL")
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set. Notifications will only be logged.")
	}
	cfg.NotificationStream = viper.GetString("NOTIFICATION_STREAM")

	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	for _, origin := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	cfg.MemoryHospitals = viper.GetString("MEMORY_HOSPITALS")

	return cfg, nil
}
