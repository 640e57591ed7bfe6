package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"parchi/internal/core"
	"parchi/internal/ledger"
	"parchi/internal/report"
)

// entryFlags binds the editable fields of an entry to command flags.
type entryFlags struct {
	category, date, txnDate, due string
	party, ref, bank, account    string
	desc, amount                 string
}

func (f *entryFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.category, "category", "c", "", "Category: "+categoryList())
	fl.StringVar(&f.date, "date", "", "Entry date (YYYY-MM-DD), today when empty")
	fl.StringVar(&f.txnDate, "txn-date", "", "Transaction date (YYYY-MM-DD)")
	fl.StringVar(&f.due, "due", "", "Due date (YYYY-MM-DD)")
	fl.StringVarP(&f.party, "party", "p", "", "Party name")
	fl.StringVar(&f.ref, "ref", "", "Reference number")
	fl.StringVarP(&f.bank, "bank", "b", "", "Bank name")
	fl.StringVar(&f.account, "account", "", "Bank account number")
	fl.StringVarP(&f.desc, "desc", "d", "", "Description")
	fl.StringVarP(&f.amount, "amount", "a", "", "Total amount, e.g. 15000 or 15,000.50")
}

func (f *entryFlags) draft() (core.Draft, error) {
	d := core.Draft{
		Category:       f.category,
		RefNo:          f.ref,
		PartyName:      f.party,
		BankName:       f.bank,
		BankAccountNum: f.account,
		Desc:           f.desc,
	}
	var err error
	if d.Date, err = core.ParseDate(f.date); err != nil {
		return core.Draft{}, err
	}
	if d.TransactionDate, err = core.ParseDate(f.txnDate); err != nil {
		return core.Draft{}, err
	}
	if d.DueDate, err = core.ParseDate(f.due); err != nil {
		return core.Draft{}, err
	}
	if f.amount != "" {
		if d.TotalAmount, err = core.ParseAmount(f.amount); err != nil {
			return core.Draft{}, err
		}
	}
	return d, nil
}

// apply overwrites the fields of e whose flags were set on cmd.
func (f *entryFlags) apply(cmd *cobra.Command, e core.Entry) (core.Entry, error) {
	changed := cmd.Flags().Changed
	var err error
	if changed("category") {
		if e.Category, err = core.ParseCategory(f.category); err != nil {
			return e, err
		}
	}
	dates := []struct {
		flag  string
		value string
		dst   *core.Date
	}{{"date", f.date, &e.Date}, {"txn-date", f.txnDate, &e.TransactionDate}, {"due", f.due, &e.DueDate}}
	for _, d := range dates {
		if changed(d.flag) {
			if *d.dst, err = core.ParseDate(d.value); err != nil {
				return e, err
			}
		}
	}
	if changed("amount") {
		if e.TotalAmount, err = core.ParseAmount(f.amount); err != nil {
			return e, err
		}
	}
	texts := []struct {
		flag  string
		value string
		dst   *string
	}{
		{"party", f.party, &e.PartyName},
		{"ref", f.ref, &e.RefNo},
		{"bank", f.bank, &e.BankName},
		{"account", f.account, &e.BankAccountNum},
		{"desc", f.desc, &e.Desc},
	}
	for _, t := range texts {
		if changed(t.flag) {
			*t.dst = strings.TrimSpace(t.value)
		}
	}
	return e, nil
}

func newAddCmd(a *app) *cobra.Command {
	var f entryFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new entry",
		Example: `  parchictl add -c chaque-payables -p "Acme Traders" -a 15000 --due 2024-03-10 -b HBL
  parchictl add -c unknown-online -a 2500 -b "Meezan Bank"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := f.draft()
			if err != nil {
				return err
			}
			e, err := a.store.Add(cmd.Context(), d)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added %s entry %s\n", e.Category, e.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var view, month, stat string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the entries of a view",
		Example: `  parchictl list --view chaque-payables --month current --stat overdue
  parchictl list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := core.ParseQuery(view, month, stat)
			if err != nil {
				return err
			}
			res := a.store.Query(cmd.Context(), q)
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(res.Entries)
			}
			fmt.Fprintln(a.out, entryTable(res.Entries, a.store.Now(), a.currency))
			for _, w := range res.Warnings {
				fmt.Fprintf(a.out, "warning: %v\n", w)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "View: dashboard (all entries) or a category")
	cmd.Flags().StringVar(&month, "month", "all", "Month filter: all, current, last")
	cmd.Flags().StringVar(&stat, "stat", "", "Stat filter: total, paid, pending, overdue")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an entry with its payment history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.store.Get(args[0])
			if err != nil {
				return err
			}
			return a.print(report.Entry(e, a.store.Now(), a.currency))
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	var f entryFlags
	var confirmedBy string
	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Change fields of an entry; flags left out keep their value",
		Example: `  parchictl update 1718000000000 --due 2024-04-30 --desc "Rescheduled"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.store.Get(args[0])
			if err != nil {
				return err
			}
			if e, err = f.apply(cmd, e); err != nil {
				return err
			}
			if cmd.Flags().Changed("confirmed-by") {
				e.ConfirmedBy = strings.TrimSpace(confirmedBy)
			}
			if _, err := a.store.Update(cmd.Context(), e); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated entry %s\n", e.ID)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&confirmedBy, "confirmed-by", "", "Person who identified the payer")
	return cmd
}

func newPayCmd(a *app) *cobra.Command {
	var amount, date, cheque, voucher string
	cmd := &cobra.Command{
		Use:     "pay <id>",
		Short:   "Record a payment against an entry",
		Example: `  parchictl pay 1718000000000 -a 5000 --cheque CHQ-001`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := core.PaymentDraft{ChaqueNo: cheque, VoucherNo: voucher}
			var err error
			if p.Amount, err = core.ParseAmount(amount); err != nil {
				return err
			}
			if p.Date, err = core.ParseDate(date); err != nil {
				return err
			}
			e, err := a.store.AddPayment(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Recorded %s on %s, balance %s (%s)\n",
				p.Amount.Format(a.currency), e.ID,
				core.Balance(e).Format(a.currency), core.StatusOf(e, a.store.Now()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Payment amount")
	cmd.Flags().StringVar(&date, "date", "", "Payment date (YYYY-MM-DD), today when empty")
	cmd.Flags().StringVar(&cheque, "cheque", "", "Cheque number")
	cmd.Flags().StringVar(&voucher, "voucher", "", "Voucher number")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newConfirmCmd(a *app) *cobra.Command {
	var c core.Confirmation
	var date string
	cmd := &cobra.Command{
		Use:   "confirm <id>",
		Short: "Identify who sent an unknown online transfer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if c.Date, err = core.ParseDate(date); err != nil {
				return err
			}
			e, err := a.store.ConfirmUnknown(cmd.Context(), args[0], c)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Entry %s confirmed by %s\n", e.ID, e.ConfirmedBy)
			return nil
		},
	}
	cmd.Flags().StringVar(&c.ConfirmedBy, "by", "", "Person confirming the payer")
	cmd.Flags().StringVarP(&c.PartyName, "party", "p", "", "Payer, keeps the current party when empty")
	cmd.Flags().StringVar(&date, "date", "", "Confirmation date (YYYY-MM-DD), today when empty")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var c ledger.Confirmer = ledger.ConfirmFunc(a.confirm)
			if yes {
				c = ledger.AlwaysConfirm
			}
			err := a.store.Delete(cmd.Context(), args[0], c)
			if errors.Is(err, ledger.ErrDeleteDeclined) {
				fmt.Fprintln(a.out, "Cancelled.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted entry %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Print the executive summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.print(report.Dashboard(a.store.Summary(), a.currency))
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	var view, month, stat string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a view with its stat cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := core.ParseQuery(view, month, stat)
			if err != nil {
				return err
			}
			if q.View == core.ViewDashboard {
				return a.print(report.Dashboard(a.store.Summary(), a.currency))
			}
			md := viewReport(cmd.Context(), a, q)
			return a.print(md)
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "View: dashboard or a category")
	cmd.Flags().StringVar(&month, "month", "all", "Month filter: all, current, last")
	cmd.Flags().StringVar(&stat, "stat", "", "Stat filter: total, paid, pending, overdue")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var view, month, stat, output string
	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Write a view as CSV",
		Example: `  parchictl export --view chaque-payables -o payables.csv`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := core.ParseQuery(view, month, stat)
			if err != nil {
				return err
			}
			entries := a.store.Query(cmd.Context(), q).Entries
			if output == "" || output == "-" {
				return report.CSV(a.out, entries, a.store.Now())
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := report.CSV(f, entries, a.store.Now()); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Exported %d entries to %s\n", len(entries), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "View: dashboard (all entries) or a category")
	cmd.Flags().StringVar(&month, "month", "all", "Month filter: all, current, last")
	cmd.Flags().StringVar(&stat, "stat", "", "Stat filter: total, paid, pending, overdue")
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write, stdout when empty")
	return cmd
}

func newParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "parse <text>...",
		Short:   "Describe an entry in plain words and let the assistant record it",
		Example: `  parchictl parse "received cheque from Bilal 50,000 HBL due 15 March"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.parser == nil {
				return errors.New("assistant is not configured, set GEMINI_API_KEY")
			}
			e, err := a.store.AddParsed(cmd.Context(), a.parser, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added %s entry %s for %s (%s)\n",
				e.Category, e.ID, e.PartyName, e.TotalAmount.Format(a.currency))
			return nil
		},
	}
}

func newBanksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "banks",
		Short: "List suggested bank names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, b := range core.Banks {
				fmt.Fprintln(a.out, b)
			}
			return nil
		},
	}
}

// viewReport renders a category view. Cards describe the month-filtered
// view before the stat filter narrows the table.
func viewReport(ctx context.Context, a *app, q core.Query) string {
	now := a.store.Now()
	all := a.store.Query(ctx, core.Query{View: q.View, Month: q.Month})
	entries := a.store.Query(ctx, q).Entries
	return report.Markdown(q.View.Title(), entries, core.StatCards(all.Entries, now), now, a.currency)
}

// print writes md, rendered for the terminal unless --raw is set.
func (a *app) print(md string) error {
	if !a.raw {
		out, err := report.Terminal(md, a.width, a.style)
		if err != nil {
			return err
		}
		md = out
	}
	_, err := fmt.Fprint(a.out, md)
	return err
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	overdueStyle = cellStyle.Foreground(lipgloss.Color("#f38ba8"))
	paidStyle    = cellStyle.Foreground(lipgloss.Color("#a6e3a1"))
)

// entryTable lays entries out as a terminal table.
func entryTable(entries []core.Entry, now time.Time, currency string) string {
	if len(entries) == 0 {
		return "No entries."
	}
	statuses := make([]core.Status, len(entries))
	rows := make([][]string, len(entries))
	for i, e := range entries {
		statuses[i] = core.StatusOf(e, now)
		rows[i] = []string{
			e.ID,
			string(e.Category),
			e.Date.String(),
			e.PartyName,
			e.DueDate.String(),
			e.TotalAmount.Format(currency),
			core.Balance(e).Format(currency),
			string(statuses[i]),
		}
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Category", "Date", "Party", "Due", "Total", "Balance", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 7 && row >= 0 && row < len(statuses) {
				switch statuses[row] {
				case core.StatusOverdue:
					return overdueStyle
				case core.StatusPaid:
					return paidStyle
				}
			}
			return cellStyle
		}).
		String()
}

func categoryList() string {
	names := make([]string, len(core.Categories))
	for i, c := range core.Categories {
		names[i] = c.Slug()
	}
	return strings.Join(names, ", ")
}
