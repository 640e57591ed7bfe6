package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"parchi/internal/amqp"
	"parchi/internal/backend"
	"parchi/internal/cli"
	"parchi/internal/log"
	"parchi/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stdout, os.Getenv("LOG_LEVEL"))
	logger.Info("Starting parchi-worker")

	cfg := cli.MustLoadConfig(logger)
	if cfg.DataBackend == backend.MemoryBackend.String() {
		logger.Warn("Memory backend is private to this process, the worker will only ever export an empty ledger")
	}

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// The worker reads the ledger; it never publishes events of its own.
	storeCfg := backendCfg
	storeCfg.AMQPURL = ""

	factory := backend.NewFactory(logger)
	res, err := factory.CreateBackend(ctx, storeCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	exporter, err := factory.CreateExporter(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize exporter", log.FieldError, err)
		os.Exit(1)
	}
	syncWorker := worker.NewSyncWorker(res.Blobs, cfg.StorageKey, exporter, logger)

	var consumer *amqp.Client
	if cfg.AMQPEnabled() {
		consumer, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP))
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer consumer.Close()
	} else {
		logger.Info("AMQP_URL not set, exporting on the sync interval only", "interval", cfg.SyncInterval.String())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return syncWorker.Run(gctx, cfg.SyncInterval)
	})
	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeEvents(gctx, syncWorker.HandleEvent)
		})
	}

	err = g.Wait()
	cli.RunCleanup(logger, 10*time.Second, func(context.Context) {
		if at, last := syncWorker.LastExport(); !at.IsZero() {
			logger.Info("Last export", "at", at.Format(time.RFC3339), "rows", last.Rows, "range", last.Range)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}
}
