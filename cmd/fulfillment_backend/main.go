package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/adapters/events"
	"github.com/SscSPs/fulfillment_coordinator/internal/adapters/scheduler"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/handlers"
	"github.com/SscSPs/fulfillment_coordinator/internal/middleware"
	"github.com/SscSPs/fulfillment_coordinator/internal/platform/clock"
	"github.com/SscSPs/fulfillment_coordinator/internal/platform/config"
	"github.com/SscSPs/fulfillment_coordinator/internal/platform/workflowseed"
	"github.com/SscSPs/fulfillment_coordinator/internal/repositories/database/pgsql"
	"github.com/SscSPs/fulfillment_coordinator/internal/repositories/memory"
	"github.com/SscSPs/fulfillment_coordinator/internal/utils"
	"github.com/SscSPs/fulfillment_coordinator/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// @title Fulfillment Coordinator API
// @version 1.0
// @description Ledger, escrow, workflow and dispatch coordination for marketplace orders.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	seedWorkflows := flag.Bool("seed-workflows", false, "load the workflow seed file into storage before serving")
	tokenFor := flag.String("token", "", "print a development token for this user id and exit")
	tokenRole := flag.String("role", string(domain.RoleBuyer), "role of the development token")
	flag.Parse()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *tokenFor != "" {
		tok, err := middleware.IssueToken(cfg.JWTSecret, cfg.JWTIssuer, *tokenFor, domain.ActorRole(*tokenRole), 24*time.Hour)
		if err != nil {
			logger.Error("Failed to issue token", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Println(tok)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = middleware.WithLogger(ctx, logger)

	tm, closeStorage, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStorage()

	// The memory store starts empty, so it always gets the seed.
	if *seedWorkflows || cfg.StorageDriver == config.StorageMemory {
		if err := seedFromFile(ctx, tm, cfg.WorkflowSeedPath, logger); err != nil {
			logger.Error("Failed to seed workflows", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	clk := clock.System{}
	publisher, notifier, closePublisher := setupPublisher(cfg, logger)
	defer closePublisher()

	sched, runScheduler, closeScheduler, err := setupScheduler(cfg, clk, logger)
	if err != nil {
		logger.Error("Failed to initialize scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeScheduler()

	container := services.NewServiceContainer(tm, services.Collaborators{
		Clock:     clk,
		Publisher: publisher,
		Notifier:  notifier,
		Scheduler: sched,
	}, settingsFrom(cfg))

	go runScheduler(ctx, container.Tasks)

	posthogClient := utils.InitializePosthogClient(cfg.PosthogAPIKey, "", logger)
	defer posthogClient.Close()

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := handlers.RegisterRoutes(r, cfg, container, posthogClient); err != nil {
		logger.Error("Failed to register routes", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", slog.String("error", err.Error()))
	}
}

func settingsFrom(cfg *config.Config) services.Settings {
	return services.Settings{
		CurrencyCode:       cfg.DefaultCurrency,
		PlatformUserID:     cfg.PlatformAccountUserID,
		PrivatePoolWindow:  cfg.PrivatePoolWindow,
		AutoReleaseAfter:   cfg.EscrowAutoReleaseAfter,
		RiderCancelPenalty: cfg.RiderCancelPenalty,
		DisputePenalty:     cfg.DisputePenalty,
		DeliveryOTPTTL:     cfg.DeliveryOTPTTL,
	}
}

// setupStorage returns the transaction manager for the configured driver.
func setupStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.TransactionManager, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("Using in-memory storage. State is lost on restart.")
		return memory.NewStore(), func() {}, nil
	}

	pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, database.PoolOptions{
		MaxConns:          20,
		MaxConnLifetime:   time.Hour,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    5 * time.Second,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
		database.ClosePgxPool(pool)
		return nil, nil, err
	}
	if cfg.EnableDBCheck {
		if err := checkSchema(ctx, pool); err != nil {
			database.ClosePgxPool(pool)
			return nil, nil, err
		}
	}
	return pgsql.NewTransactionManager(pool), func() { database.ClosePgxPool(pool) }, nil
}

// runMigrations applies every pending up migration from ./migrations.
func runMigrations(databaseURL string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")
	// Using pgx/v5/stdlib driver to be compatible with the main pool
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return fmt.Errorf("ping migration connection: %w", err)
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	if errors.Is(upErr, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

// checkSchema verifies that the tables the coordinator locks exist.
func checkSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, table := range []string{"accounts", "ledger_entries", "orders", "escrow_holds", "dispatch_jobs", "disputes"} {
		var exists bool
		if err := pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists); err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if !exists {
			return fmt.Errorf("table %s is missing", table)
		}
	}
	return nil
}

func seedFromFile(ctx context.Context, tm portsrepo.TransactionManager, path string, logger *slog.Logger) error {
	workflows, err := workflowseed.LoadFile(path)
	if err != nil {
		return err
	}
	if err := workflowseed.Seed(ctx, tm, workflows); err != nil {
		return err
	}
	logger.Info("Workflows seeded", slog.String("path", path), slog.Int("count", len(workflows)))
	return nil
}

// setupPublisher publishes to Kafka when brokers are configured and to the log otherwise.
func setupPublisher(cfg *config.Config, logger *slog.Logger) (portssvc.EventPublisher, portssvc.Notifier, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set. Events and notifications go to the log.")
		return events.LogPublisher{}, events.LogPublisher{}, func() {}
	}
	p := events.NewKafkaPublisher(
		events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaEventsTopic),
		events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaNotificationsTopic),
	)
	logger.Info("Kafka publisher initialized", slog.Any("brokers", cfg.KafkaBrokers))
	return p, p, func() {
		if err := p.Close(); err != nil {
			logger.Error("Failed to close Kafka writers", slog.String("error", err.Error()))
		}
	}
}

// setupScheduler uses a Redis sorted set when REDIS_ADDR is set and an
// in-process queue otherwise.
func setupScheduler(cfg *config.Config, clk clock.Clock, logger *slog.Logger) (
	portssvc.Scheduler,
	func(ctx context.Context, handler portssvc.TaskHandler),
	func(),
	error,
) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set. Scheduled tasks are kept in memory.")
		s := scheduler.NewMemoryScheduler()
		run := func(ctx context.Context, handler portssvc.TaskHandler) {
			s.Run(ctx, cfg.SchedulerPollInterval, clk.Now, handler)
		}
		return s, run, func() {}, nil
	}

	client, err := scheduler.Connect(cfg.RedisAddr)
	if err != nil {
		return nil, nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	s := scheduler.NewRedisScheduler(client, scheduler.DefaultKey, clk)
	run := func(ctx context.Context, handler portssvc.TaskHandler) {
		s.Run(ctx, cfg.SchedulerPollInterval, handler)
	}
	return s, run, func() {
		if err := client.Close(); err != nil {
			logger.Error("Failed to close Redis client", slog.String("error", err.Error()))
		}
	}, nil
}
