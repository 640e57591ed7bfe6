// Package memory is an in-process LedgerExporter used when no spreadsheet
// is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"parchi/internal/core"
	"parchi/internal/sheets"
)

var _ sheets.LedgerExporter = (*Exporter)(nil)

type Exporter struct {
	mu      sync.Mutex
	rows    [][]any
	exports int
	asOf    time.Time
	fail    error
}

func New() *Exporter {
	return &Exporter{}
}

func (e *Exporter) ExportLedger(ctx context.Context, entries []core.Entry, asOf time.Time) (sheets.ExportResult, error) {
	if err := ctx.Err(); err != nil {
		return sheets.ExportResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		return sheets.ExportResult{}, e.fail
	}
	e.rows = sheets.BuildRows(entries, asOf)
	e.exports++
	e.asOf = asOf
	return sheets.ExportResult{Rows: len(e.rows), Range: fmt.Sprintf("mem!A1:P%d", len(e.rows))}, nil
}

// FailWith makes every following export return err; nil restores success.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = err
}

// Rows returns the last exported rows, header included.
func (e *Exporter) Rows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rows
}

func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exports
}

func (e *Exporter) LastExport() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.asOf
}
