package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"parchi/internal/core"
	"parchi/internal/log"
	ports "parchi/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Ensure interface conformance
var _ ports.LedgerExporter = (*Exporter)(nil)

// Config selects the spreadsheet and the service account used to write it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// Exporter writes the ledger to one tab of a spreadsheet, replacing its contents.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// New creates an exporter authenticated with a service account. When neither
// credential is set GOOGLE_APPLICATION_CREDENTIALS is used.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newExporter(svc, cfg, logger), nil
}

func newExporter(svc *gsheet.Service, cfg Config, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Discard()
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = "Ledger"
	}
	return &Exporter{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     name,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

func credentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
}

// ExportLedger clears the tab and writes the header plus one row per entry.
func (e *Exporter) ExportLedger(ctx context.Context, entries []core.Entry, asOf time.Time) (ports.ExportResult, error) {
	if e.svc == nil {
		return ports.ExportResult{}, errors.New("sheets service not initialized")
	}
	rows := ports.BuildRows(entries, asOf)

	clearRange := quoteSheet(e.sheetName) + "!A:Z"
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return ports.ExportResult{}, fmt.Errorf("clear %s: %w", e.sheetName, err)
	}

	writeRange := fmt.Sprintf("%s!A1:%s%d", quoteSheet(e.sheetName), columnName(len(ports.Header)), len(rows))
	resp, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, writeRange, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return ports.ExportResult{}, fmt.Errorf("write %s: %w", e.sheetName, err)
	}

	result := ports.ExportResult{Rows: len(rows), Range: writeRange}
	if resp != nil && resp.UpdatedRange != "" {
		result.Range = resp.UpdatedRange
	}
	e.logger.InfoContext(ctx, "Ledger exported to Google Sheets",
		log.FieldEntries, len(entries), "range", result.Range)
	return result, nil
}

// quoteSheet wraps a tab name in single quotes as A1 notation requires for
// names with spaces or punctuation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// columnName converts a 1-based column number to its letters, 1 -> A, 27 -> AA.
func columnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
