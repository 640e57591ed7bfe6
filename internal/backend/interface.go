package backend

import (
	"context"
	"time"

	"parchi/internal/assistant"
	"parchi/internal/ledger"
	"parchi/internal/sheets"
	"parchi/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendResult contains the blob store, its optional collaborators and the
// cleanup that releases them.
type BackendResult struct {
	Blobs storage.BlobStore
	// Notifier is nil when AMQP is not configured or unreachable.
	Notifier ledger.Notifier
	Cleanup  CleanupFunc
}

// Ping checks the blob store if it supports health checks.
func (r *BackendResult) Ping(ctx context.Context) error {
	if p, ok := r.Blobs.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close runs the cleanup, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates the blob store and change notifier
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateParser returns the free-text parser, or nil when disabled
	CreateParser(ctx context.Context, config Config) (assistant.Parser, error)
	// CreateExporter returns the spreadsheet exporter
	CreateExporter(ctx context.Context, config Config) (sheets.LedgerExporter, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// File specific
	DataDirectory string

	// SQLite specific
	SQLiteDBPath string

	// AMQP, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Assistant, optional
	GeminiAPIKey   string
	GeminiModel    string
	ParseCacheSize int
	ParseCacheTTL  time.Duration

	// Google Sheets mirror, optional
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	FileBackend   BackendType = "file"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, FileBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
