package backend

import (
	"context"
	"fmt"

	"parchi/internal/amqp"
	"parchi/internal/assistant"
	"parchi/internal/log"
	"parchi/internal/sheets"
	gsheet "parchi/internal/sheets/google"
	"parchi/internal/sheets/memory"
	"parchi/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case FileBackend:
		result, err = f.createFileBackend(config)
	case MemoryBackend:
		result = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachNotifier(ctx, result, config)
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Blobs:   store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	store, err := storage.NewFileStore(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	f.logger.Info("Initialized file backend", "data_directory", config.DataDirectory)

	return &BackendResult{Blobs: store}, nil
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	f.logger.Info("Initialized memory backend, the ledger will not survive a restart")
	return &BackendResult{Blobs: storage.NewMemoryStore()}
}

// attachNotifier connects to AMQP when configured. A broker that cannot be
// reached leaves the ledger working without notifications.
func (f *DefaultFactory) attachNotifier(ctx context.Context, result *BackendResult, config Config) {
	if config.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without notifications", log.FieldError, err)
		return
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	result.Notifier = client
	storeCleanup := result.Cleanup
	result.Cleanup = func() error {
		amqpErr := client.Close()
		if storeCleanup != nil {
			if err := storeCleanup(); err != nil {
				return err
			}
		}
		return amqpErr
	}
}

// CreateParser implements Factory.CreateParser. Results are cached when a
// cache size is configured.
func (f *DefaultFactory) CreateParser(ctx context.Context, config Config) (assistant.Parser, error) {
	if config.GeminiAPIKey == "" {
		f.logger.InfoContext(ctx, "GEMINI_API_KEY not set, free-text parsing disabled")
		return nil, nil
	}
	gemini, err := assistant.NewGemini(ctx, config.GeminiAPIKey, config.GeminiModel, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini parser: %w", err)
	}
	if config.ParseCacheSize <= 0 {
		return gemini, nil
	}
	return assistant.NewCachedParser(gemini, config.ParseCacheSize, config.ParseCacheTTL), nil
}

// CreateExporter implements Factory.CreateExporter. Without a spreadsheet
// the in-memory exporter is returned so the worker still runs.
func (f *DefaultFactory) CreateExporter(ctx context.Context, config Config) (sheets.LedgerExporter, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.WarnContext(ctx, "GOOGLE_SPREADSHEET_ID not set, exporting to memory only")
		return memory.New(), nil
	}
	exp, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetName:          config.GoogleSheetName,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets exporter: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets exporter",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName)
	return exp, nil
}
