package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"parchi/internal/amqp"
	"parchi/internal/ledger"
	"parchi/internal/log"
	"parchi/internal/sheets"
	"parchi/internal/storage"
)

// SyncWorker mirrors the stored ledger into a spreadsheet. Every export
// writes the whole ledger, so a lost event is repaired by the next one or by
// the periodic tick.
type SyncWorker struct {
	blobs    storage.BlobStore
	key      string
	exporter sheets.LedgerExporter
	logger   *log.Logger
	now      func() time.Time

	mu         sync.Mutex
	lastExport time.Time
	lastResult sheets.ExportResult
}

func NewSyncWorker(blobs storage.BlobStore, key string, exporter sheets.LedgerExporter, logger *log.Logger) *SyncWorker {
	if key == "" {
		key = ledger.DefaultKey
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		blobs:    blobs,
		key:      key,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// HandleEvent processes a single ledger event from AMQP.
func (w *SyncWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		"type", msg.Type,
		log.FieldEntryID, msg.EntryID,
		"timestamp", msg.Timestamp)

	if _, err := w.Export(ctx); err != nil {
		return fmt.Errorf("export after %s: %w", msg.Type, err)
	}
	return nil
}

// Export reads the current ledger and writes it out. Concurrent calls are
// serialised so the sheet never sees interleaved writes.
func (w *SyncWorker) Export(ctx context.Context) (sheets.ExportResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries, err := ledger.Snapshot(ctx, w.blobs, w.key)
	if err != nil {
		return sheets.ExportResult{}, fmt.Errorf("read ledger: %w", err)
	}

	start := w.now()
	res, err := w.exporter.ExportLedger(ctx, entries, start)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to export ledger",
			log.FieldError, err, log.FieldEntries, len(entries))
		return sheets.ExportResult{}, fmt.Errorf("export ledger: %w", err)
	}

	w.lastExport = start
	w.lastResult = res
	w.logger.InfoContext(ctx, "Ledger exported",
		log.FieldEntries, len(entries),
		"rows", res.Rows,
		"range", res.Range,
		log.FieldDuration, w.now().Sub(start).Milliseconds())
	return res, nil
}

// LastExport reports when the last successful export ran and what it wrote.
func (w *SyncWorker) LastExport() (time.Time, sheets.ExportResult) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastExport, w.lastResult
}

// Run exports once at startup and then every interval until ctx ends. Export
// failures are logged and retried on the next tick.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	if _, err := w.Export(ctx); err != nil && ctx.Err() == nil {
		w.logger.WarnContext(ctx, "Startup export failed", log.FieldError, err)
	}
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Export(ctx); err != nil && ctx.Err() == nil {
				w.logger.WarnContext(ctx, "Periodic export failed", log.FieldError, err)
			}
		}
	}
}
