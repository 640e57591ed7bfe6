// Package report renders the ledger as Markdown for printing, for the
// /report endpoint and for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"parchi/internal/core"
)

var cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ", "\r", "")

// Markdown renders one view: a heading, the four stat cards and a table of
// entries with derived balance and status.
func Markdown(title string, entries []core.Entry, cards core.Cards, now time.Time, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "_As of %s_\n\n", core.DateOf(now))

	renderCards(&b, cards, currency)

	if len(entries) == 0 {
		b.WriteString("_No entries._\n")
		return b.String()
	}

	b.WriteString("| Date | Party | Ref No | Bank | Due | Total | Paid | Balance | Status |\n")
	b.WriteString("|---|---|---|---|---|--:|--:|--:|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			cell(e.Date.String()),
			cell(e.PartyName),
			cell(e.RefNo),
			cell(e.BankName),
			cell(e.DueDate.String()),
			e.TotalAmount.Format(currency),
			e.Paid().Format(currency),
			core.Balance(e).Format(currency),
			core.StatusOf(e, now))
	}
	return b.String()
}

// Dashboard renders the per-category summary table followed by the overall totals.
func Dashboard(s core.Summary, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", core.ViewDashboard.Title())
	fmt.Fprintf(&b, "_As of %s_\n\n", s.AsOf)

	b.WriteString("| Category | Entries | Total | Collected | Outstanding | Overdue |\n")
	b.WriteString("|---|--:|--:|--:|--:|--:|\n")
	for _, c := range s.Categories {
		summaryRow(&b, string(c.Category), c, currency)
	}
	summaryRow(&b, "**All**", s.Overall, currency)
	b.WriteString("\n")

	renderCards(&b, s.Overall.Cards, currency)
	return b.String()
}

// Entry renders a single entry with its payment history.
func Entry(e core.Entry, now time.Time, currency string) string {
	var b strings.Builder
	name := e.PartyName
	if name == "" {
		name = "-"
	}
	fmt.Fprintf(&b, "# %s\n\n", name)
	fmt.Fprintf(&b, "- **ID:** %s\n", e.ID)
	fmt.Fprintf(&b, "- **Category:** %s\n", e.Category)
	fmt.Fprintf(&b, "- **Date:** %s\n", e.Date)
	if e.TransactionDate.IsSet() {
		fmt.Fprintf(&b, "- **Transaction date:** %s\n", e.TransactionDate)
	}
	if e.RefNo != "" {
		fmt.Fprintf(&b, "- **Ref No:** %s\n", e.RefNo)
	}
	if e.BankName != "" || e.BankAccountNum != "" {
		fmt.Fprintf(&b, "- **Bank:** %s %s\n", e.BankName, e.BankAccountNum)
	}
	if e.DueDate.IsSet() {
		fmt.Fprintf(&b, "- **Due:** %s\n", e.DueDate)
	}
	fmt.Fprintf(&b, "- **Status:** %s\n", core.StatusOf(e, now))
	if e.ConfirmedBy != "" {
		fmt.Fprintf(&b, "- **Confirmed by:** %s\n", e.ConfirmedBy)
	}
	fmt.Fprintf(&b, "- **Total:** %s\n", e.TotalAmount.Format(currency))
	fmt.Fprintf(&b, "- **Balance:** %s\n", core.Balance(e).Format(currency))
	if e.Desc != "" {
		fmt.Fprintf(&b, "\n%s\n", e.Desc)
	}

	if len(e.Payments) == 0 {
		return b.String()
	}
	b.WriteString("\n## Payments\n\n")
	b.WriteString("| Date | Amount | Cheque No | Voucher No |\n")
	b.WriteString("|---|--:|---|---|\n")
	for _, p := range e.Payments {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			cell(p.Date.String()), p.Amount.Format(currency), cell(p.ChaqueNo), cell(p.VoucherNo))
	}
	return b.String()
}

// Terminal renders Markdown for a terminal of the given width. A width of
// zero leaves wrapping to glamour.
func Terminal(md string, width int, style string) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithEmoji()}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

func renderCards(w io.Writer, c core.Cards, currency string) {
	fmt.Fprintln(w, "| Total | Paid | Pending | Overdue |")
	fmt.Fprintln(w, "|--:|--:|--:|--:|")
	fmt.Fprintf(w, "| %d · %s | %d · %s | %d · %s | %d · %s |\n\n",
		c.Total.Count, c.Total.Amount.Format(currency),
		c.Paid.Count, c.Paid.Amount.Format(currency),
		c.Pending.Count, c.Pending.Amount.Format(currency),
		c.Overdue.Count, c.Overdue.Amount.Format(currency))
}

func summaryRow(w io.Writer, label string, c core.CategorySummary, currency string) {
	fmt.Fprintf(w, "| %s | %d | %s | %s | %s | %s |\n",
		label, c.Entries,
		c.Total.Format(currency),
		c.Collected.Format(currency),
		c.Outstanding.Format(currency),
		c.Cards.Overdue.Amount.Format(currency))
}

func cell(s string) string {
	s = cellEscaper.Replace(strings.TrimSpace(s))
	if s == "" {
		return "-"
	}
	return s
}
