package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/authgate/authgate/internal/authn"
	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/password"
	"github.com/authgate/authgate/internal/ratelimit"
	"github.com/authgate/authgate/internal/server"
	"github.com/authgate/authgate/internal/userstore"
	"github.com/authgate/authgate/pkg/logger"
	"github.com/authgate/authgate/pkg/metrics"
	"github.com/authgate/authgate/pkg/validation"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	zapLogger, err := logger.NewLogger(logLevel, os.Getenv("LOG_FORMAT"))
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	cfg, err := config.Load(os.Getenv("AUTHGATE_CONFIG_PATH"))
	if err != nil {
		zapLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	users := userstore.New(zapLogger, db)
	if err := users.AutoMigrate(); err != nil {
		zapLogger.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	limiter := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{
		MaxAttempts:   cfg.RateLimit.MaxAttempts,
		Window:        cfg.RateLimit.Window,
		BlockDuration: cfg.RateLimit.BlockDuration,
	})
	hasher := password.NewHasher(zapLogger, cfg.Auth.BcryptCost)
	policy := password.NewPolicy(cfg.Auth.MinPasswordLength)
	validator := validation.NewValidator(zapLogger)

	authSvc := authn.NewService(zapLogger, users, hasher, limiter, policy, validator)
	srv := server.New(zapLogger, authSvc, cfg.Server.Mode)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}

	// Limiter cleanup runs on a ticker owned here, not started as a side
	// effect of importing the package. Stopped on shutdown below.
	cleanupDone := make(chan struct{})
	cleanupTicker := time.NewTicker(cfg.RateLimit.CleanupInterval)
	go func() {
		defer close(cleanupDone)
		for range cleanupTicker.C {
			evicted := limiter.Cleanup()
			if evicted > 0 {
				metrics.RateLimitEvictions.Add(float64(evicted))
				zapLogger.Debug("rate limiter cleanup",
					zap.Int("evicted", evicted),
					zap.Int("remaining", limiter.Size()))
			}
			metrics.RateLimitEntries.Set(float64(limiter.Size()))
		}
	}()

	// DB pool gauges every 30s
	poolTicker := time.NewTicker(30 * time.Second)
	go func() {
		for range poolTicker.C {
			if sqlDB, err := db.DB(); err == nil {
				stats := sqlDB.Stats()
				metrics.DBOpenConns.WithLabelValues(cfg.Database.Driver).Set(float64(stats.OpenConnections))
				metrics.DBIdleConns.WithLabelValues(cfg.Database.Driver).Set(float64(stats.Idle))
				metrics.DBInUseConns.WithLabelValues(cfg.Database.Driver).Set(float64(stats.InUse))
			}
		}
	}()

	go func() {
		zapLogger.Info("Starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	zapLogger.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	cleanupTicker.Stop()
	poolTicker.Stop()

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			zapLogger.Error("Failed to close database", zap.Error(err))
		}
	}

	zapLogger.Info("Shutdown complete")
}

// openDatabase opens the configured driver with the pool settings from
// config. TranslateError is on so duplicate-key violations surface as
// gorm.ErrDuplicatedKey regardless of driver.
func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}
