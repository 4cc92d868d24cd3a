package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/hashing"
	"postings-ledger/internal/logger"
	"postings-ledger/internal/repository"
)

const stmtCloseOperation = "StatementClose"

type accountStmtService struct {
	repos repository.Repositories
	tx    repository.Transactor
}

func NewAccountStmtService(repos repository.Repositories, tx repository.Transactor) AccountStmtService {
	return &accountStmtService{repos: repos, tx: tx}
}

// ReadStmt replays the account's live posting lines since the last closed
// statement into a simulated statement. Each replayed line leaves a trace.
func (s *accountStmtService) ReadStmt(ctx context.Context, accountID uuid.UUID, refTime time.Time) (*domain.AccountStmt, error) {
	logger.EnterMethod("accountStmtService.ReadStmt", "accountID", accountID, "refTime", refTime)

	stmt, traces, err := s.replay(ctx, s.repos, accountID, refTime)
	if err == nil {
		err = saveTraces(ctx, s.repos, traces)
	}
	if err != nil {
		logger.ExitMethodWithError("accountStmtService.ReadStmt", err, "accountID", accountID)
		return nil, err
	}

	logger.ExitMethod("accountStmtService.ReadStmt", "stmtID", stmt.ID, "status", stmt.Status,
		"totalDebit", stmt.TotalDebit, "totalCredit", stmt.TotalCredit)
	return stmt, nil
}

// CreateStmt replays like ReadStmt and stores the simulated statement. An
// unchanged closed baseline is returned as is.
func (s *accountStmtService) CreateStmt(ctx context.Context, accountID uuid.UUID, refTime time.Time) (*domain.AccountStmt, error) {
	logger.EnterMethod("accountStmtService.CreateStmt", "accountID", accountID, "refTime", refTime)

	var stmt *domain.AccountStmt
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var traces []*domain.PostingTrace
		var err error
		if stmt, traces, err = s.replay(ctx, repos, accountID, refTime); err != nil {
			return err
		}
		if stmt.Closed() {
			return nil
		}
		if err := saveTraces(ctx, repos, traces); err != nil {
			return err
		}
		return repos.Statements.Create(ctx, stmt)
	})
	if err != nil {
		logger.ExitMethodWithError("accountStmtService.CreateStmt", err, "accountID", accountID)
		return nil, err
	}

	logger.ExitMethod("accountStmtService.CreateStmt", "stmtID", stmt.ID, "status", stmt.Status)
	return stmt, nil
}

// replay folds the live lines since the last closed statement into a
// simulated statement and returns the traces it left. Nothing is written.
func (s *accountStmtService) replay(ctx context.Context, repos repository.Repositories, accountID uuid.UUID, refTime time.Time) (*domain.AccountStmt, []*domain.PostingTrace, error) {
	if refTime.IsZero() {
		return nil, nil, domain.ErrPostingTimeMissing
	}
	refTime = domain.Timestamp(refTime)
	if _, err := repos.LedgerAccounts.GetByID(ctx, accountID); err != nil {
		return nil, nil, notFound(err, domain.ErrLedgerAccountNotFound)
	}

	baseline, err := repos.Statements.GetLatestClosedBefore(ctx, accountID, refTime)
	if err != nil {
		return nil, nil, err
	}

	stmt := &domain.AccountStmt{
		ID:          domain.NewID(),
		AccountID:   accountID,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
		PostingTime: refTime,
		Status:      domain.StmtStatusSimulated,
	}
	var lines []domain.PostingLine
	if baseline != nil {
		lines, err = repos.PostingLines.ListByAccountBetween(ctx, accountID, baseline.PostingTime, refTime, true)
		if err != nil {
			return nil, nil, err
		}
		if len(lines) == 0 {
			logger.Debug("Closed baseline unchanged", "stmtID", baseline.ID, "accountID", accountID)
			return baseline, nil, nil
		}
		baselineID := baseline.ID
		stmt.BaselineID = &baselineID
		stmt.SeqNbr = baseline.SeqNbr + 1
		stmt.TotalDebit = baseline.TotalDebit
		stmt.TotalCredit = baseline.TotalCredit
	} else {
		lines, err = repos.PostingLines.ListByAccountUpTo(ctx, accountID, refTime, true)
		if err != nil {
			return nil, nil, err
		}
	}

	// lines arrive oldest first, so the youngest trace is the earliest line
	traces := make([]*domain.PostingTrace, 0, len(lines))
	for i := range lines {
		l := &lines[i]
		trace := &domain.PostingTrace{
			ID:           domain.NewID(),
			TgtPstID:     stmt.ID,
			SrcPstTime:   l.PostingTime,
			SrcPstID:     l.ID,
			SrcOprID:     l.OperationID,
			AccountID:    accountID,
			DebitAmount:  l.DebitAmount,
			CreditAmount: l.CreditAmount,
			SrcPstHash:   l.Hash,
		}
		traces = append(traces, trace)
		if stmt.YoungestPst == nil {
			stmt.YoungestPst = trace
		}
		stmt.LatestPst = trace
		stmt.TotalDebit = stmt.TotalDebit.Add(l.DebitAmount)
		stmt.TotalCredit = stmt.TotalCredit.Add(l.CreditAmount)
	}
	logger.Debug("Replayed posting lines", "accountID", accountID, "lines", len(lines), "baseline", baseline != nil)
	return stmt, traces, nil
}

func saveTraces(ctx context.Context, repos repository.Repositories, traces []*domain.PostingTrace) error {
	for _, trace := range traces {
		if err := repos.PostingTraces.Create(ctx, trace); err != nil {
			return err
		}
	}
	return nil
}

// CloseStmt turns a stored simulated statement into a closed snapshot backed
// by a line-less balance statement posting. The posting and the status change
// commit together. Under the ledger lock the account is replayed again: the
// close fails when the period is already closed or when lines arrived or went
// away since the statement was created.
func (s *accountStmtService) CloseStmt(ctx context.Context, stmtID uuid.UUID) (*domain.AccountStmt, error) {
	logger.EnterMethod("accountStmtService.CloseStmt", "stmtID", stmtID)

	stmt, err := s.repos.Statements.GetByID(ctx, stmtID)
	if err != nil {
		err = notFound(err, domain.ErrStatementNotFound)
		logger.ExitMethodWithError("accountStmtService.CloseStmt", err, "stmtID", stmtID)
		return nil, err
	}
	if stmt.Closed() {
		logger.Warn("Statement already closed", "stmtID", stmtID, "postingID", stmt.PostingID)
		logger.ExitMethodWithError("accountStmtService.CloseStmt", domain.ErrStatementAlreadyClosed, "stmtID", stmtID)
		return nil, domain.ErrStatementAlreadyClosed
	}
	account, err := s.repos.LedgerAccounts.GetByID(ctx, stmt.AccountID)
	if err != nil {
		err = notFound(err, domain.ErrLedgerAccountNotFound)
		logger.ExitMethodWithError("accountStmtService.CloseStmt", err, "stmtID", stmtID)
		return nil, err
	}

	closing := closingPosting(stmt, account)
	err = s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := appendPosting(ctx, repos, closing); err != nil {
			return err
		}
		if err := s.checkCloseable(ctx, repos, stmt); err != nil {
			return err
		}
		return repos.Statements.Close(ctx, stmt.ID, closing.ID)
	})
	if err != nil {
		logger.ExitMethodWithError("accountStmtService.CloseStmt", err, "stmtID", stmtID)
		return nil, err
	}

	postingID := closing.ID
	stmt.Status = domain.StmtStatusClosed
	stmt.PostingID = &postingID
	stmt.Posting = closing

	logger.Info("Statement closed", "stmtID", stmt.ID, "accountID", account.ID, "postingID", closing.ID)
	logger.ExitMethod("accountStmtService.CloseStmt", "stmtID", stmt.ID, "postingID", closing.ID)
	return stmt, nil
}

// checkCloseable must run while the account's ledger is locked.
func (s *accountStmtService) checkCloseable(ctx context.Context, repos repository.Repositories, stmt *domain.AccountStmt) error {
	closed, err := repos.Statements.GetFirstClosedAtOrAfter(ctx, stmt.AccountID, stmt.PostingTime)
	if err != nil {
		return err
	}
	if closed != nil {
		logger.Warn("Period already closed", "stmtID", stmt.ID, "closedBy", closed.ID, "closedAt", closed.PostingTime)
		return fmt.Errorf("%w: account %s closed at %s by statement %s",
			domain.ErrPeriodClosed, stmt.AccountID, closed.PostingTime.Format(time.RFC3339), closed.ID)
	}

	fresh, _, err := s.replay(ctx, repos, stmt.AccountID, stmt.PostingTime)
	if err != nil {
		return err
	}
	if !sameReplay(stmt, fresh) {
		logger.Warn("Statement is stale", "stmtID", stmt.ID, "accountID", stmt.AccountID,
			"storedDebit", stmt.TotalDebit, "freshDebit", fresh.TotalDebit,
			"storedCredit", stmt.TotalCredit, "freshCredit", fresh.TotalCredit)
		return fmt.Errorf("%w: statement %s", domain.ErrStatementStale, stmt.ID)
	}
	return nil
}

// sameReplay reports whether a fresh replay reproduces the stored statement:
// same baseline, same totals and the same last line.
func sameReplay(stored, fresh *domain.AccountStmt) bool {
	if fresh.Closed() {
		return false
	}
	return sameID(stored.BaselineID, fresh.BaselineID) &&
		stored.TotalDebit.Equal(fresh.TotalDebit) &&
		stored.TotalCredit.Equal(fresh.TotalCredit) &&
		sameSource(stored.LatestPst, fresh.LatestPst)
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameSource(a, b *domain.PostingTrace) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.SrcPstID == b.SrcPstID
}

func closingPosting(stmt *domain.AccountStmt, account *domain.LedgerAccount) *domain.Posting {
	now := domain.Now()
	details := fmt.Sprintf("account=%s debit=%s credit=%s seq=%d",
		account.ID, stmt.TotalDebit.String(), stmt.TotalCredit.String(), stmt.SeqNbr)
	return &domain.Posting{
		RecordUser:       hashing.UserDetails(SystemUser),
		OperationID:      hashing.Text("stmt-close-" + stmt.ID.String()),
		OperationTime:    now,
		OperationType:    hashing.Text(stmtCloseOperation),
		OperationDetails: hashing.Text(details),
		OperationSource:  hashing.Text("AccountStmtService"),
		PostingTime:      stmt.PostingTime,
		Type:             domain.PostingTypeBalanceStmt,
		Status:           domain.PostingStatusPosted,
		LedgerID:         account.LedgerID,
		ValueTime:        &now,
		Lines:            []domain.PostingLine{},
	}
}

func (s *accountStmtService) FindStmtByID(ctx context.Context, id uuid.UUID) (*domain.AccountStmt, error) {
	stmt, err := s.repos.Statements.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrStatementNotFound)
	}
	return stmt, nil
}
