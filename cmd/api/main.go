package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	_ "github.com/redmonkez12/advising-auth/docs" // Swagger docs
	"github.com/redmonkez12/advising-auth/internal/account"
	"github.com/redmonkez12/advising-auth/internal/auth"
	"github.com/redmonkez12/advising-auth/internal/config"
	"github.com/redmonkez12/advising-auth/internal/database"
	"github.com/redmonkez12/advising-auth/internal/email"
	httpServer "github.com/redmonkez12/advising-auth/internal/http"
	"github.com/redmonkez12/advising-auth/internal/logging"
	"github.com/redmonkez12/advising-auth/internal/secret"
	"github.com/redmonkez12/advising-auth/internal/telemetry"
)

// @title           Course Advising Portal Auth API
// @version         1.0
// @description     Account lifecycle service: registration, email verification, password sign-in with emailed OTP, password recovery and profile upkeep.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

func main() {
	rootCmd := &cobra.Command{
		Use:          "advising-auth",
		Short:        "Account lifecycle and authentication API",
		SilenceUsage: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return run(migrate)
		},
	}
	serveCmd.Flags().Bool("migrate", false, "Apply pending database migrations before serving")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd)

	// Allow running without subcommand (default to serve)
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(migrate bool) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
	)

	ctx := context.Background()

	// Initialize tracing (no-op without an OTLP endpoint)
	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	// Initialize database connection
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if migrate {
		results, err := database.Migrate(ctx, db, cfg.Database.Driver)
		if err != nil {
			return err
		}
		logger.Info("database migrated", "applied", len(results))
	}

	// Redis is optional and only de-duplicates outgoing email
	var deduper email.Deduper
	if cfg.Redis.Enabled() {
		redisClient, err := initRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		defer redisClient.Close()
		deduper = email.NewRedisDeduper(redisClient)
	} else {
		logger.Info("redis not configured, email de-duplication disabled")
	}

	// Initialize secrets
	hasher, err := secret.NewArgon2(secret.Argon2Params{
		Time:    cfg.Auth.Argon2Time,
		Memory:  cfg.Auth.Argon2MemoryKB,
		Threads: cfg.Auth.Argon2Threads,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	linkTokens, err := secret.NewLinkTokens([]byte(cfg.Auth.PasetoKey))
	if err != nil {
		return fmt.Errorf("failed to initialize PASETO link tokens: %w", err)
	}

	// Initialize email service
	emailService := email.NewService(email.NewSMTPTransport(cfg.Email), email.Options{
		ProductName: cfg.Email.ProductName,
		SendTimeout: cfg.Email.SendTimeout,
		DedupWindow: cfg.Email.DedupWindow,
		Deduper:     deduper,
	})

	// Initialize auth service
	authService := auth.NewService(
		account.NewRepository(db),
		hasher,
		secret.Generator{},
		linkTokens,
		emailService,
		logger,
		auth.Config{
			PublicURL:       cfg.Server.PublicURL,
			ClientURL:       cfg.Server.ClientURL,
			OTPTTL:          cfg.Auth.OTPTTL,
			VerificationTTL: cfg.Auth.VerificationTTL,
		},
	)

	// Initialize router
	router := httpServer.NewRouter(cfg, auth.NewHandler(authService), logger)

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

func runMigrate(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	results, err := database.Migrate(ctx, db, cfg.Database.Driver)
	if err != nil {
		return err
	}

	for _, res := range results {
		logger.Info("applied migration", "version", res.Source.Version, "duration", res.Duration.String())
	}
	logger.Info("database is up to date", "applied", len(results))

	return nil
}

// initRedis connects to Redis and verifies the connection
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
