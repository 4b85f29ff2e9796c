// Package cli holds the startup steps shared by the finreport binaries.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finreport/internal/config"
	"finreport/internal/log"
	"finreport/internal/storage"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// BootstrapLogger is used until the configuration is known.
func BootstrapLogger() *log.Logger {
	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)
	return logger
}

// SetupLogger builds the logger described by cfg and makes it the default.
// The caller closes it before exit.
func SetupLogger(cfg *config.Config) (*log.Logger, error) {
	logger, err := log.Open(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentApp,
		Format:    cfg.LogFormat,
		File:      cfg.LogFile,
		Output:    os.Stderr,
	})
	if err != nil {
		return nil, err
	}
	log.SetDefault(logger)
	return logger, nil
}

// LoadAndValidateConfig loads configuration from the environment and exits
// the process when it is invalid.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Init runs the common startup sequence: .env, config, logger.
func Init() (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := LoadAndValidateConfig(BootstrapLogger())
	logger, err := SetupLogger(cfg)
	if err != nil {
		log.New(log.DefaultConfig()).Error("Failed to open log file", log.FieldError, err, log.FieldFile, cfg.LogFile)
		os.Exit(1)
	}
	return cfg, logger
}

// InitSQLite opens the SQLite repository or exits the process.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// GracefulShutdown waits for ctx to end, then runs cleanup bounded by
// timeout.
func GracefulShutdown(ctx context.Context, logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
	}()

	select {
	case <-done:
		logger.Info("Shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	}
}
