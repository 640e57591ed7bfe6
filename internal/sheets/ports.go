// Package sheets mirrors the ledger into a spreadsheet for people who would
// rather read it there.
package sheets

import (
	"context"
	"strconv"
	"time"

	"parchi/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerExporter replaces the mirrored ledger with entries.
	LedgerExporter interface {
		ExportLedger(ctx context.Context, entries []core.Entry, asOf time.Time) (ExportResult, error)
	}

	ExportResult struct {
		Rows  int
		Range string
	}
)

// Header is the first row of the mirrored sheet.
var Header = []any{
	"ID", "Category", "Date", "Transaction Date", "Ref No", "Party", "Bank", "Account",
	"Description", "Total", "Paid", "Balance", "Due Date", "Status", "Confirmed By", "Payments",
}

// BuildRows renders the header and one row per entry, with status derived
// as of asOf. Amounts are plain decimals so the sheet parses them as numbers.
func BuildRows(entries []core.Entry, asOf time.Time) [][]any {
	rows := make([][]any, 0, len(entries)+1)
	rows = append(rows, Header)
	for _, e := range entries {
		rows = append(rows, []any{
			e.ID,
			string(e.Category),
			e.Date.String(),
			e.TransactionDate.String(),
			e.RefNo,
			e.PartyName,
			e.BankName,
			e.BankAccountNum,
			e.Desc,
			e.TotalAmount.String(),
			e.Paid().String(),
			core.Balance(e).String(),
			e.DueDate.String(),
			string(core.StatusOf(e, asOf)),
			e.ConfirmedBy,
			strconv.Itoa(len(e.Payments)),
		})
	}
	return rows
}
