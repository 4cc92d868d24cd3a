package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"postings-ledger/internal/jobs"
	"postings-ledger/internal/security"
)

var errChainBroken = errors.New("hash chain is broken")

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Store.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func newVerifyChainCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-chain <ledger-id>",
		Short: "Recompute every posting hash of a ledger and check the chain links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledgerID, err := parseID("ledger", args[0])
			if err != nil {
				return err
			}
			a, _, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Postings.VerifyChain(cmd.Context(), ledgerID)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, report); err != nil {
				return err
			}
			if !report.Intact() {
				return fmt.Errorf("%w: %d of %d postings", errChainBroken, len(report.Broken), report.Checked)
			}
			return nil
		},
	}
}

func newStmtCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stmt",
		Short: "Read, create and close account statements",
	}

	var at string
	read := &cobra.Command{
		Use:   "read <account-id>",
		Short: "Compute an account statement without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStmt(cmd, opts, args[0], at, false)
		},
	}
	read.Flags().StringVar(&at, "at", "", "statement time, RFC3339 or YYYY-MM-DD (default now)")

	var createAt string
	create := &cobra.Command{
		Use:   "create <account-id>",
		Short: "Compute and store a simulated account statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStmt(cmd, opts, args[0], createAt, true)
		},
	}
	create.Flags().StringVar(&createAt, "at", "", "statement time, RFC3339 or YYYY-MM-DD (default now)")

	closeCmd := &cobra.Command{
		Use:   "close <stmt-id>",
		Short: "Close a stored statement with a balance statement posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stmtID, err := parseID("statement", args[0])
			if err != nil {
				return err
			}
			a, _, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			stmt, err := a.Statements.CloseStmt(cmd.Context(), stmtID)
			if err != nil {
				return err
			}
			return printJSON(cmd, stmt)
		},
	}

	cmd.AddCommand(read, create, closeCmd)
	return cmd
}

func runStmt(cmd *cobra.Command, opts *rootOptions, account, at string, store bool) error {
	accountID, err := parseID("account", account)
	if err != nil {
		return err
	}
	refTime, err := parseAt(at)
	if err != nil {
		return err
	}
	a, _, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	read := a.Statements.ReadStmt
	if store {
		read = a.Statements.CreateStmt
	}
	stmt, err := read(cmd.Context(), accountID, refTime)
	if err != nil {
		return err
	}
	return printJSON(cmd, stmt)
}

func newCloseStatementsCommand(opts *rootOptions) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "close-statements",
		Short: "Close every account's statement at the end of the previous period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			refTime, err := parseAt(at)
			if err != nil {
				return err
			}
			a, cfg, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			runner := jobs.NewJobRunner(a.Repos, &jobs.Services{Ledger: a.Ledgers, Statement: a.Statements}, cfg)
			res, err := runner.CloseStatementsAt(cmd.Context(), jobs.PeriodEnd(refTime, cfg.Scheduler.ClosePeriod))
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "any time inside the current period (default now)")
	return cmd
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var scope string
	var expiry time.Duration
	cmd := &cobra.Command{
		Use:   "token <user>",
		Short: "Issue an API access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if expiry == 0 {
				expiry = time.Duration(cfg.JWT.AccessTokenExpiry) * time.Minute
			}
			token, err := security.NewTokenManager(cfg.JWT.Secret, expiry).
				GenerateAccessToken(args[0], strings.Split(scope, ","))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", security.ScopeRead+","+security.ScopeWrite, "comma separated scopes")
	cmd.Flags().DurationVar(&expiry, "expiry", 0, "token lifetime (default from config)")
	return cmd
}
