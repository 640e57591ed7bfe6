// Package cli provides common CLI initialization utilities shared by
// cmd/parchi, cmd/parchi-worker and cmd/parchictl.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"parchi/internal/config"
	"parchi/internal/log"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger. An unknown level falls back to info.
func SetupLogger(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	logger := log.NewText(w, lvl, log.ComponentApp)
	slog.SetDefault(logger.Logger)
	if err != nil {
		logger.Warn("Falling back to info logging", log.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile(filenames ...string) {
	_ = godotenv.Load(filenames...)
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoadConfig is LoadAndValidateConfig for long-running services: it
// exits the process on validation failure.
func MustLoadConfig(logger *log.Logger) *config.Config {
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
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

// RunCleanup runs cleanup with a deadline, logging when it overruns.
func RunCleanup(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		cleanup(ctx)
	}()

	select {
	case <-done:
		logger.Info("Shutdown complete")
	case <-ctx.Done():
		logger.Warn("Shutdown timeout reached")
	}
}
