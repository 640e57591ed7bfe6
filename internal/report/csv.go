package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"parchi/internal/core"
)

// csvRow is one entry flattened for spreadsheets. Amounts are plain
// decimals so they stay numeric when imported.
type csvRow struct {
	ID              string `csv:"id"`
	Category        string `csv:"category"`
	Date            string `csv:"date"`
	TransactionDate string `csv:"transactionDate"`
	RefNo           string `csv:"refNo"`
	PartyName       string `csv:"partyName"`
	BankName        string `csv:"bankName"`
	BankAccountNum  string `csv:"bankAccountNum"`
	Desc            string `csv:"desc"`
	TotalAmount     string `csv:"totalAmount"`
	Paid            string `csv:"paid"`
	Balance         string `csv:"balance"`
	DueDate         string `csv:"dueDate"`
	Status          string `csv:"status"`
	ConfirmedBy     string `csv:"confirmedBy"`
	Payments        int    `csv:"payments"`
}

// CSV writes entries with their derived balance and status, one row each.
func CSV(w io.Writer, entries []core.Entry, now time.Time) error {
	rows := make([]csvRow, len(entries))
	for i, e := range entries {
		rows[i] = csvRow{
			ID:              e.ID,
			Category:        string(e.Category),
			Date:            e.Date.String(),
			TransactionDate: e.TransactionDate.String(),
			RefNo:           e.RefNo,
			PartyName:       e.PartyName,
			BankName:        e.BankName,
			BankAccountNum:  e.BankAccountNum,
			Desc:            e.Desc,
			TotalAmount:     e.TotalAmount.Decimal().StringFixed(2),
			Paid:            e.Paid().Decimal().StringFixed(2),
			Balance:         core.Balance(e).Decimal().StringFixed(2),
			DueDate:         e.DueDate.String(),
			Status:          string(core.StatusOf(e, now)),
			ConfirmedBy:     e.ConfirmedBy,
			Payments:        len(e.Payments),
		}
	}
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csv.NewWriter(w))); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
