package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/SscSPs/etat_civil_app/internal/adapters/database/memory"
	"github.com/SscSPs/etat_civil_app/internal/adapters/database/pgsql"
	"github.com/SscSPs/etat_civil_app/internal/adapters/documents"
	"github.com/SscSPs/etat_civil_app/internal/adapters/identity"
	"github.com/SscSPs/etat_civil_app/internal/adapters/notify"
	"github.com/SscSPs/etat_civil_app/internal/adapters/payment"
	"github.com/SscSPs/etat_civil_app/internal/adapters/renderer"
	portsrepo "github.com/SscSPs/etat_civil_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/SscSPs/etat_civil_app/internal/core/services"
	"github.com/SscSPs/etat_civil_app/internal/handlers"
	"github.com/SscSPs/etat_civil_app/internal/middleware"
	"github.com/SscSPs/etat_civil_app/internal/platform/config"
	"github.com/SscSPs/etat_civil_app/internal/platform/metrics"
	"github.com/SscSPs/etat_civil_app/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// @title Etat Civil Backend API
// @version 1.0
// @description Birth declaration workflow and certificate ledger of the civil registry.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	repos, closeRepos, err := setupRepositories(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeRepos()

	notifier, closeNotifier, err := setupNotifier(cfg, appMetrics, logger)
	if err != nil {
		logger.Error("Failed to initialize notifications", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeNotifier()

	documentStore, err := documents.NewLocalStore(cfg.DocumentStoreDir)
	if err != nil {
		logger.Error("Failed to initialize document store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	rail, err := payment.NewCheckoutRail(cfg.PaymentCheckoutBaseURL)
	if err != nil {
		logger.Error("Failed to initialize payment rail", slog.String("error", err.Error()))
		os.Exit(1)
	}
	callbacks, err := payment.NewCallbackSigner(cfg.PaymentCallbackSecret)
	if err != nil {
		logger.Error("Failed to initialize payment callback verifier", slog.String("error", err.Error()))
		os.Exit(1)
	}

	serviceContainer, err := services.NewServiceContainer(cfg, repos, services.Collaborators{
		PaymentRail: rail,
		Renderer:    renderer.JSONRenderer{},
		Documents:   documentStore,
	}, services.WithNotifier(notifier), services.WithMetrics(appMetrics))
	if err != nil {
		logger.Error("Failed to initialize services", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := handlers.RegisterValidators(); err != nil {
		logger.Error("Failed to register validators", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid RATE_LIMIT", slog.String("value", cfg.RateLimit), slog.String("error", err.Error()))
		os.Exit(1)
	}
	rateLimiter := limiter.New(memorystore.NewStore(), rate)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(
		middleware.StructuredLoggingMiddleware(logger),
		gin.Recovery(),
		middleware.MetricsMiddleware(appMetrics),
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", handlers.PaymentSignatureHeader},
			ExposeHeaders:    []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.RateLimit(rateLimiter, "/health", "/metrics"),
	)

	err = r.SetTrustedProxies(nil)
	if err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	resolver := identity.NewJWTResolver(cfg.JWTSecret, cfg.JWTIssuer)
	handlers.RegisterRoutes(r, cfg, serviceContainer, resolver, callbacks, registry)

	logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("storage", cfg.StorageDriver))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func setupRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, func(), error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		store := memory.NewStore()
		hospitals, err := memory.ParseHospitalSeed(cfg.MemoryHospitals)
		if err != nil {
			return portsrepo.RepositoryProvider{}, nil, err
		}
		for _, h := range hospitals {
			store.PutHospital(h)
		}
		logger.Warn("Using in-memory storage; data is lost on restart", slog.Int("hospitals", len(hospitals)))
		return store.Provider(), func() {}, nil
	}

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return portsrepo.RepositoryProvider{}, nil, err
	}
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
		database.ClosePgxPool(dbPool)
		return portsrepo.RepositoryProvider{}, nil, err
	}
	return pgsql.NewRepositoryProvider(dbPool), func() { database.ClosePgxPool(dbPool) }, nil
}

// runMigrations applies migrations/ through a temporary database/sql handle
// opened with the pgx stdlib driver.
func runMigrations(databaseURL string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return upErr
	}
	if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
		return errors.Join(sourceErr, dbErr)
	}

	if errors.Is(upErr, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

func setupNotifier(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (portssvc.Notifier, func(), error) {
	sinks := notify.FanOut{notify.LogNotifier{}}
	if cfg.RedisURL == "" {
		return sinks, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// The notifier counts XADD failures.
		logger.Warn("Redis not reachable at startup", slog.String("error", err.Error()))
	}

	sinks = append(sinks, notify.NewRedisStreamNotifier(client, cfg.NotificationStream, m))
	return sinks, func() {
		if err := client.Close(); err != nil {
			logger.Error("Error closing redis client", slog.String("error", err.Error()))
		}
	}, nil
}
