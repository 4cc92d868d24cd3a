package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/logger"
	"postings-ledger/internal/repository"
)

type accountStmtRepository struct {
	q        querier
	d        Dialect
	postings *postingRepository
	traces   *postingTraceRepository
}

const accountStmtColumns = `id, account_id, youngest_pst, latest_pst, total_debit, total_credit, posting_id,
	pst_time, stmt_status, stmt_seq_nbr, baseline_id`

func (r *accountStmtRepository) Create(ctx context.Context, s *domain.AccountStmt) error {
	logger.EnterMethod("accountStmtRepository.Create", "stmtID", s.ID, "accountID", s.AccountID, "status", s.Status)

	query := `INSERT INTO account_stmts (` + accountStmtColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.ExecContext(ctx, r.d.rebind(query),
		s.ID, s.AccountID, s.YoungestPstID(), s.LatestPstID(), s.TotalDebit, s.TotalCredit, s.PostingID,
		s.PostingTime, s.Status, s.SeqNbr, s.BaselineID,
	)
	if err != nil {
		err = domain.DbError("create account statement", err)
		exitWithError("accountStmtRepository.Create", err, "stmtID", s.ID)
		return err
	}

	logger.ExitMethod("accountStmtRepository.Create", "stmtID", s.ID)
	return nil
}

func (r *accountStmtRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AccountStmt, error) {
	logger.EnterMethod("accountStmtRepository.GetByID", "stmtID", id)

	query := `SELECT ` + accountStmtColumns + ` FROM account_stmts WHERE id = $1`
	s, err := r.load(ctx, r.q.QueryRowContext(ctx, r.d.rebind(query), id))
	if err != nil {
		exitWithError("accountStmtRepository.GetByID", err, "stmtID", id)
		return nil, err
	}

	logger.ExitMethod("accountStmtRepository.GetByID", "stmtID", id, "status", s.Status)
	return s, nil
}

func (r *accountStmtRepository) GetLatestClosedBefore(ctx context.Context, accountID uuid.UUID, refTime time.Time) (*domain.AccountStmt, error) {
	query := `SELECT ` + accountStmtColumns + ` FROM account_stmts
		WHERE account_id = $1 AND stmt_status = 'CLOSED' AND pst_time < $2
		ORDER BY pst_time DESC, stmt_seq_nbr DESC LIMIT 1`
	return r.optional(ctx, "accountStmtRepository.GetLatestClosedBefore", query, accountID, refTime)
}

func (r *accountStmtRepository) GetFirstClosedAtOrAfter(ctx context.Context, accountID uuid.UUID, refTime time.Time) (*domain.AccountStmt, error) {
	query := `SELECT ` + accountStmtColumns + ` FROM account_stmts
		WHERE account_id = $1 AND stmt_status = 'CLOSED' AND pst_time >= $2
		ORDER BY pst_time, stmt_seq_nbr LIMIT 1`
	return r.optional(ctx, "accountStmtRepository.GetFirstClosedAtOrAfter", query, accountID, refTime)
}

func (r *accountStmtRepository) Close(ctx context.Context, id, postingID uuid.UUID) error {
	logger.EnterMethod("accountStmtRepository.Close", "stmtID", id, "postingID", postingID)

	query := `UPDATE account_stmts SET stmt_status = 'CLOSED', posting_id = $2 WHERE id = $1 AND stmt_status = 'SIMULATED'`
	res, err := r.q.ExecContext(ctx, r.d.rebind(query), id, postingID)
	if err == nil {
		var n int64
		if n, err = res.RowsAffected(); err == nil && n == 0 {
			exitWithError("accountStmtRepository.Close", domain.ErrStatementAlreadyClosed, "stmtID", id)
			return domain.ErrStatementAlreadyClosed
		}
	}
	if err != nil {
		err = domain.DbError("close account statement", err)
		exitWithError("accountStmtRepository.Close", err, "stmtID", id)
		return err
	}

	logger.ExitMethod("accountStmtRepository.Close", "stmtID", id)
	return nil
}

func (r *accountStmtRepository) optional(ctx context.Context, method, query string, accountID uuid.UUID, refTime time.Time) (*domain.AccountStmt, error) {
	logger.EnterMethod(method, "accountID", accountID, "refTime", refTime)

	s, err := r.load(ctx, r.q.QueryRowContext(ctx, r.d.rebind(query), accountID, refTime))
	if errors.Is(err, repository.ErrNotFound) {
		logger.ExitMethod(method, "found", false)
		return nil, nil
	}
	if err != nil {
		exitWithError(method, err, "accountID", accountID)
		return nil, err
	}

	logger.ExitMethod(method, "found", true, "stmtID", s.ID)
	return s, nil
}

// load scans a statement row and resolves its traces and closing posting.
func (r *accountStmtRepository) load(ctx context.Context, row scanner) (*domain.AccountStmt, error) {
	s := &domain.AccountStmt{}
	var youngest, latest, postingID, baselineID uuid.NullUUID
	err := row.Scan(
		&s.ID, &s.AccountID, &youngest, &latest, &s.TotalDebit, &s.TotalCredit, &postingID,
		&s.PostingTime, &s.Status, &s.SeqNbr, &baselineID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, domain.DbError("scan account statement", err)
	}
	s.PostingTime = domain.Timestamp(s.PostingTime)
	s.PostingID = uuidPtr(postingID)
	s.BaselineID = uuidPtr(baselineID)

	if youngest.Valid {
		if s.YoungestPst, err = r.traces.GetByID(ctx, youngest.UUID); err != nil {
			return nil, domain.DbError("load youngest trace", err)
		}
	}
	if latest.Valid {
		if s.LatestPst, err = r.traces.GetByID(ctx, latest.UUID); err != nil {
			return nil, domain.DbError("load latest trace", err)
		}
	}
	if s.PostingID != nil {
		if s.Posting, err = r.postings.GetByID(ctx, *s.PostingID); err != nil {
			return nil, domain.DbError("load closing posting", err)
		}
	}
	return s, nil
}
