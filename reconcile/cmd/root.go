// Package cmd holds the commands of the ledger-reconcile tool.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/plenert/reconcile"
	"github.com/plenert/reconcile/reconcile/config"
	"github.com/plenert/reconcile/reconcile/ledgercli"
)

// options are the persistent flags and what is derived from them before a
// command runs.
type options struct {
	ledgerFilePath string
	configPath     string
	logFile        string
	ledgerBin      string
	verbose        bool
	builtin        bool

	cfg *config.Config
	log zerolog.Logger
}

// NewRootCmd returns the command tree of the tool.
func NewRootCmd() *cobra.Command {
	o := &options{}
	var account, target string

	rootCmd := &cobra.Command{
		Use:   "ledger-reconcile",
		Short: "Reconcile ledger accounts against a statement",
		Long: `Reconcile a ledger account against a bank statement.

Without a command, pick an account and a target balance, then mark postings
pending and cleared on an interactive screen. The ledger file is only ever
changed on the status markers of the postings you touch.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInteractive(cmd, o, account, target)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&o.ledgerFilePath, "file", "f", "", "Ledger file (default $LEDGER_FILE).")
	pf.StringVar(&o.configPath, "config", "", "Configuration file (default "+config.DefaultPath()+").")
	pf.StringVar(&o.logFile, "log-file", "", "Write logs of the interactive screen to this file.")
	pf.StringVar(&o.ledgerBin, "ledger-bin", "", "Ledger executable used to query the file.")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "Log debug messages.")
	pf.BoolVar(&o.builtin, "builtin", false, "Read the file directly instead of running ledger.")

	rootCmd.Flags().StringVarP(&account, "account", "a", "", "Account to reconcile; asked for when empty.")
	rootCmd.Flags().StringVarP(&target, "target", "t", "", "Statement balance; asked for when empty.")

	rootCmd.AddCommand(
		newAccountsCmd(o),
		newPostingsCmd(o),
		newMarkCmd(o),
		newBalanceCmd(o),
	)
	return rootCmd
}

// Execute runs the tool and exits with status 1 on failure.
func Execute() {
	rootCmd := NewRootCmd()
	cc.Init(&cc.Config{
		RootCmd:  rootCmd,
		Headings: cc.HiCyan + cc.Bold + cc.Underline,
		Commands: cc.HiYellow + cc.Bold,
		Example:  cc.Italic,
		ExecName: cc.Bold,
		Flags:    cc.Bold,
	})
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func (o *options) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.ledgerFilePath != "" {
		cfg.LedgerFile = o.ledgerFilePath
	}
	if o.ledgerBin != "" {
		cfg.LedgerBin = o.ledgerBin
	}
	if o.logFile != "" {
		cfg.LogFile = o.logFile
	}
	o.cfg = cfg

	if cmd.Root() == cmd {
		// the screen owns the terminal
		o.log, err = fileLogger(cfg.LogFile, o.verbose)
		if err != nil {
			return err
		}
	} else {
		o.log = consoleLogger(cmd.ErrOrStderr(), o.verbose)
	}

	if cfg.LedgerFile == "" {
		return errors.New("no ledger file: use --file or set LEDGER_FILE")
	}
	if _, err := os.Stat(cfg.LedgerFile); err != nil {
		return fmt.Errorf("ledger file: %w", err)
	}
	return nil
}

func level(verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func consoleLogger(w io.Writer, verbose bool) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level(verbose)).
		With().Timestamp().Logger()
}

func fileLogger(path string, verbose bool) (zerolog.Logger, error) {
	if path == "" {
		return zerolog.Nop(), nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log file: %w", err)
	}
	return zerolog.New(f).Level(level(verbose)).With().Timestamp().Logger(), nil
}

// provider returns the ledger command wrapper, or the built-in scanner when
// asked to or when the command cannot be found.
func (o *options) provider() reconcile.Provider {
	file := o.cfg.LedgerFile
	if !o.builtin {
		c := ledgercli.New(o.cfg.LedgerBin, file,
			ledgercli.WithCacheTTL(o.cfg.AccountCacheTTL),
			ledgercli.WithLogger(o.log))
		if c.Available() {
			return c
		}
		o.log.Debug().Str("bin", o.cfg.LedgerBin).Msg("ledger not found, reading the file directly")
	}
	return reconcile.NewScanner(file)
}
