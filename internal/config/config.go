package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"

	"parchi/internal/ledger"
	"parchi/internal/log"
	"parchi/internal/storage"
)

// Data backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var validBackends = []string{BackendMemory, BackendFile, BackendSQLite}

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend  string
	DataDir      string
	SQLiteDBPath string
	StorageKey   string

	// AMQP, optional
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

	// Worker
	SyncInterval time.Duration

	// Presentation
	Currency string
	LogLevel string

	// HTTP limits
	RateLimitPerMinute int
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", BackendSQLite),
		DataDir:      getEnv("DATA_DIR", "./data"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/parchi.db"),
		StorageKey:   getEnv("STORAGE_KEY", ledger.DefaultKey),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "parchi"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		ParseCacheSize: getEnvInt("PARSE_CACHE_SIZE", 128),
		ParseCacheTTL:  getEnvDuration("PARSE_CACHE_TTL", time.Hour),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 5*time.Minute),

		Currency: strings.ToUpper(getEnv("CURRENCY", money.PKR)),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	return cfg
}

// AMQPEnabled reports whether change events should be published.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

// AssistantEnabled reports whether free-text parsing is available.
func (c *Config) AssistantEnabled() bool { return c.GeminiAPIKey != "" }

// SheetsEnabled reports whether the spreadsheet mirror is configured.
func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if err := ensureDir(filepath.Dir(c.SQLiteDBPath)); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", filepath.Dir(c.SQLiteDBPath), err))
		}
	case BackendFile:
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using file backend")
		} else if err := ensureDir(c.DataDir); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create data directory '%s': %v", c.DataDir, err))
		}
	}

	if err := storage.ValidateKey(c.StorageKey); err != nil {
		errors = append(errors, fmt.Sprintf("invalid storage key '%s': %v", c.StorageKey, err))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GeminiAPIKey != "" && strings.TrimSpace(c.GeminiModel) == "" {
		errors = append(errors, "Gemini model cannot be empty when GEMINI_API_KEY is provided")
	}
	if c.ParseCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid parse cache size %d: must not be negative", c.ParseCacheSize))
	}

	// Validate the spreadsheet mirror if configured
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if money.GetCurrency(c.Currency) == nil {
		errors = append(errors, fmt.Sprintf("unknown currency '%s'", c.Currency))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
