package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"parchi/internal/assistant"
	"parchi/internal/backend"
	"parchi/internal/cache"
	"parchi/internal/cli"
	apphttp "parchi/internal/http"
	"parchi/internal/ledger"
	"parchi/internal/log"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stdout, os.Getenv("LOG_LEVEL"))
	cfg := cli.MustLoadConfig(logger)

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)

	res, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	opts := []ledger.Option{ledger.WithLogger(logger), ledger.WithKey(cfg.StorageKey)}
	if res.Notifier != nil {
		opts = append(opts, ledger.WithNotifier(res.Notifier))
	}
	store, err := ledger.Open(ctx, res.Blobs, opts...)
	if err != nil {
		logger.Error("Failed to load ledger", log.FieldError, err, log.FieldStorageKey, cfg.StorageKey)
		os.Exit(1)
	}

	parser, err := factory.CreateParser(ctx, backendCfg)
	if err != nil {
		// The ledger works without the assistant.
		logger.Warn("Assistant unavailable", log.FieldError, err)
		parser = nil
	}

	caches := cache.NewManager(func(removed int) {
		logger.WithComponent(log.ComponentCache).Debug("Cache cleanup completed", "removed", removed)
	})
	if cached, ok := parser.(*assistant.CachedParser); ok {
		caches.Register(cached.Cache())
	}
	caches.StartCleanup(10 * time.Minute)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, store, apphttp.Options{
		Parser:            parser,
		Pinger:            res,
		Logger:            logger,
		Currency:          cfg.Currency,
		RequestsPerMinute: cfg.RateLimitPerMinute,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting parchi server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"entries", len(store.Entries()),
			"assistant", parser != nil,
			"notifications", res.Notifier != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		cli.RunCleanup(logger, shutdownTimeout, func(ctx context.Context) {
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Server shutdown error", log.FieldError, err)
			}
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
