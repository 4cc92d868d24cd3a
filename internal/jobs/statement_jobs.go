package jobs

import (
	"context"
	"time"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/logger"
)

// CloseStatementsResult counts what one run of CloseStatements did
type CloseStatementsResult struct {
	Closed  int
	Skipped int
	Failed  int
}

// PeriodEnd returns the start of the period containing t, in UTC.
func PeriodEnd(t time.Time, period string) time.Time {
	t = t.UTC()
	if period == "day" {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// CloseStatements closes every account's statement at the end of the
// previous period
func (jr *JobRunner) CloseStatements() {
	jr.runWithRecovery("CloseStatements", func() {
		res, err := jr.CloseStatementsAt(context.Background(), PeriodEnd(jr.now(), jr.config.Scheduler.ClosePeriod))
		if err != nil {
			logger.Error("Failed to close statements", "error", err)
			return
		}
		logger.Info("Closed account statements",
			"closed", res.Closed,
			"skipped", res.Skipped,
			"failed", res.Failed)
	})
}

// CloseStatementsAt creates and closes a statement at periodEnd for every
// account of every ledger. Accounts already closed at or after periodEnd
// are skipped; failures on one account do not stop the others.
func (jr *JobRunner) CloseStatementsAt(ctx context.Context, periodEnd time.Time) (*CloseStatementsResult, error) {
	ledgers, err := jr.services.Ledger.ListLedgers(ctx)
	if err != nil {
		return nil, err
	}

	res := &CloseStatementsResult{}
	for _, ledger := range ledgers {
		accounts, err := jr.services.Ledger.ListLedgerAccounts(ctx, ledger.ID)
		if err != nil {
			logger.Error("Failed to list ledger accounts",
				"ledger_id", ledger.ID,
				"ledger_name", ledger.Name,
				"error", err)
			res.Failed++
			continue
		}

		for i := range accounts {
			switch closed, err := jr.closeAccount(ctx, &accounts[i], periodEnd); {
			case err != nil:
				logger.Error("Failed to close statement for account",
					"account_id", accounts[i].ID,
					"account_name", accounts[i].Name,
					"period_end", periodEnd,
					"error", err)
				res.Failed++
			case closed:
				res.Closed++
			default:
				res.Skipped++
			}
		}
	}
	return res, nil
}

func (jr *JobRunner) closeAccount(ctx context.Context, account *domain.LedgerAccount, periodEnd time.Time) (bool, error) {
	existing, err := jr.repos.Statements.GetFirstClosedAtOrAfter(ctx, account.ID, periodEnd)
	if err != nil {
		return false, err
	}
	if existing != nil {
		logger.Debug("Statement already closed for period",
			"account_id", account.ID,
			"stmt_id", existing.ID,
			"stmt_time", existing.PostingTime)
		return false, nil
	}

	stmt, err := jr.services.Statement.CreateStmt(ctx, account.ID, periodEnd)
	if err != nil {
		return false, err
	}
	if stmt.Closed() {
		return false, nil
	}

	if _, err := jr.services.Statement.CloseStmt(ctx, stmt.ID); err != nil {
		return false, err
	}
	logger.Debug("Closed statement",
		"account_id", account.ID,
		"stmt_id", stmt.ID,
		"seq", stmt.SeqNbr)
	return true, nil
}
