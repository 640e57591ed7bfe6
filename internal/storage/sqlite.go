package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"parchi/internal/log"
)

// historyDepth is how many previous versions of a key are kept.
const historyDepth = 20

// SQLiteStore keeps blobs in the kv_blobs table and the previous versions of
// each key in kv_history.
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteStore(dbPath string, logger *log.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = log.Discard()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// One writer at a time; sqlite serialises anyway.
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_blobs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load blob %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kv_history (key, value, version)
		SELECT key, value, version FROM kv_blobs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("archive blob %s: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kv_blobs (key, value, version, updated_at)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			version = kv_blobs.version + 1,
			updated_at = CURRENT_TIMESTAMP`, key, data); err != nil {
		return fmt.Errorf("save blob %s: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM kv_history
		WHERE key = ? AND id NOT IN (
			SELECT id FROM kv_history WHERE key = ? ORDER BY id DESC LIMIT ?
		)`, key, key, historyDepth); err != nil {
		return fmt.Errorf("prune history %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit blob %s: %w", key, err)
	}

	s.logger.DebugContext(ctx, "Blob saved to SQLite", log.FieldStorageKey, key, "bytes", len(data))
	return nil
}

// Version returns the number of times key has been saved, 0 if never.
func (s *SQLiteStore) Version(ctx context.Context, key string) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT version FROM kv_blobs WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read version %s: %w", key, err)
	}
	return v, nil
}

// Previous returns the value key held before its latest save.
func (s *SQLiteStore) Previous(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_history WHERE key = ? ORDER BY id DESC LIMIT 1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load previous %s: %w", key, err)
	}
	return value, nil
}
