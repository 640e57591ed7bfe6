// Command parchictl manages the ledger from the terminal, reading and
// writing the same storage backend as the server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"parchi/internal/assistant"
	"parchi/internal/backend"
	"parchi/internal/cli"
	"parchi/internal/ledger"
	"parchi/internal/log"
)

var version = "dev"

// app holds what every subcommand needs. Tests fill store directly and
// skip the backend.
type app struct {
	store    *ledger.Store
	parser   assistant.Parser
	currency string
	logger   *log.Logger
	in       *bufio.Reader
	out      io.Writer
	cleanup  func() error

	raw   bool
	width int
	style string
}

func main() {
	cli.LoadEnvFile()
	a := &app{in: bufio.NewReader(os.Stdin), out: os.Stdout}
	err := newRootCmd(a).Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "parchictl",
		Short: "Manage cheques, payables and receivables",
		Long: `parchictl records cheques, long term payables and receivables and
unidentified online transfers, tracks partial payments against them and
prints the dashboard.

It uses the same configuration as the server (DATA_BACKEND, SQLITE_DB_PATH,
DATA_DIR, STORAGE_KEY, CURRENCY, GEMINI_API_KEY, ...), read from the
environment or a .env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().BoolVar(&a.raw, "raw", false, "Print Markdown instead of rendering it for the terminal")
	root.PersistentFlags().IntVar(&a.width, "width", 100, "Word wrap width for rendered output")
	root.PersistentFlags().StringVar(&a.style, "style", "", "Glamour style (dark, light, notty, ...); detected when empty")

	root.AddCommand(
		newAddCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newUpdateCmd(a),
		newPayCmd(a),
		newConfirmCmd(a),
		newDeleteCmd(a),
		newDashboardCmd(a),
		newReportCmd(a),
		newExportCmd(a),
		newParseCmd(a),
		newBanksCmd(a),
	)
	return root
}

// open connects to the configured backend and loads the ledger.
func (a *app) open(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	if a.logger == nil {
		// Diagnostics go to stderr so command output stays clean.
		a.logger = cli.SetupLogger(os.Stderr, "warn").WithComponent(log.ComponentCLI)
	}
	a.currency = cfg.Currency

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	factory := backend.NewFactory(a.logger)
	res, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	a.cleanup = res.Close

	opts := []ledger.Option{ledger.WithLogger(a.logger), ledger.WithKey(cfg.StorageKey)}
	if res.Notifier != nil {
		opts = append(opts, ledger.WithNotifier(res.Notifier))
	}
	if a.store, err = ledger.Open(ctx, res.Blobs, opts...); err != nil {
		_ = res.Close()
		return err
	}

	if a.parser, err = factory.CreateParser(ctx, backendCfg); err != nil {
		a.logger.Warn("Assistant unavailable", log.FieldError, err)
		a.parser = nil
	}
	return nil
}

func (a *app) close() error {
	if a.cleanup == nil {
		return nil
	}
	err := a.cleanup()
	a.cleanup = nil
	return err
}

// confirm asks a y/N question on the terminal.
func (a *app) confirm(_ context.Context, prompt string) (bool, error) {
	fmt.Fprintf(a.out, "%s [y/N]: ", prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
