package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-contact-backend/config"
	_ "go-contact-backend/docs" // Important for Swagger
	v1 "go-contact-backend/internal/delivery/http/v1"
	"go-contact-backend/internal/usecase"
	"go-contact-backend/pkg/email"
	"go-contact-backend/pkg/logger"
	"go-contact-backend/pkg/metrics"
	"go-contact-backend/pkg/redis"
	"go-contact-backend/pkg/security"
	"go-contact-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	gin.SetMode(cfg.Mode)

	// 2. Setup Logger
	if err := logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Production: cfg.IsProduction()}); err != nil {
		return err
	}
	defer logger.Sync()
	logger.Log.Infow("Starting contact backend", "port", cfg.Port, "mode", cfg.Mode)

	for _, key := range cfg.Missing() {
		logger.Log.Warnw("Mail setting not configured, contact emails will fail", "key", key)
	}

	// 3. Setup Redis (optional)
	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.Connect(ctx, redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword})
		if err != nil {
			logger.Log.Warnw("Redis unavailable, rate limiting per instance", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			logger.Log.Infow("Redis connected, rate limit shared")
		}
	}

	// 4. Setup Mail Relay
	smtpMailer := email.NewSMTPMailer(cfg.SMTP())
	if err := checkRelay(ctx, smtpMailer, cfg.SMTPVerifyStrict); err != nil {
		return fmt.Errorf("smtp relay check failed: %w", err)
	}

	// 5. Setup Metrics
	var mailer email.Mailer = smtpMailer
	var registry *prometheus.Registry
	var recorder *metrics.Recorder
	if cfg.MetricsEnabled {
		registry = metrics.NewRegistry()
		recorder = metrics.NewRecorder(registry)
		mailer = email.Observe(smtpMailer, recorder)
	}

	// 6. Setup Security Logger
	secLog := security.NewSecurityLogger(logger.Log.Desugar(), "contact-backend", cfg.Mode)
	defer func() { _ = secLog.Sync() }()

	// 7. Setup UseCases
	contactUC := usecase.NewContactUsecase(mailer, validation.New(), cfg.Sender(), cfg.OwnerEmail)

	// 8. Setup Router
	router, err := v1.NewRouter(v1.RouterDeps{
		ContactUC:      contactUC,
		Config:         cfg,
		Redis:          redisClient,
		Registry:       registry,
		Metrics:        recorder,
		SecurityLogger: secLog,
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	// 9. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second, // two relay round trips
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Log.Infow("Listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen failed: %w", err)
		}
		return nil
	case <-quit:
	case <-ctx.Done():
	}
	logger.Log.Infow("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("Server forced to shutdown", "error", err)
	}

	logger.Log.Infow("Server exiting")
	return nil
}

// checkRelay verifies the relay at startup. Only a strict check blocks and
// returns the failure; otherwise the result is logged in the background.
func checkRelay(ctx context.Context, mailer *email.SMTPMailer, strict bool) error {
	if strict {
		return verifyRelay(ctx, mailer)
	}
	go func() {
		_ = verifyRelay(ctx, mailer)
	}()
	return nil
}

// verifyRelay logs the outcome of a single relay handshake.
func verifyRelay(ctx context.Context, mailer *email.SMTPMailer) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := mailer.Verify(ctx); err != nil {
		logger.Log.Errorw("SMTP error", "addr", mailer.Addr(), "error", err)
		return err
	}
	logger.Log.Infow("SMTP ready", "addr", mailer.Addr())
	return nil
}
