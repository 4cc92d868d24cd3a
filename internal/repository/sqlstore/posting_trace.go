package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/logger"
	"postings-ledger/internal/repository"
)

type postingTraceRepository struct {
	q querier
	d Dialect
}

const postingTraceColumns = `id, tgt_pst_id, src_pst_time, src_pst_id, src_opr_id, account_id, debit_amount, credit_amount, src_pst_hash`

func (r *postingTraceRepository) Create(ctx context.Context, t *domain.PostingTrace) error {
	logger.EnterMethod("postingTraceRepository.Create", "traceID", t.ID, "stmtID", t.TgtPstID)

	query := `INSERT INTO posting_traces (` + postingTraceColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.ExecContext(ctx, r.d.rebind(query),
		t.ID, t.TgtPstID, t.SrcPstTime, t.SrcPstID, t.SrcOprID, t.AccountID,
		t.DebitAmount, t.CreditAmount, t.SrcPstHash,
	)
	if err != nil {
		err = domain.DbError("create posting trace", err)
		exitWithError("postingTraceRepository.Create", err, "traceID", t.ID)
		return err
	}

	logger.ExitMethod("postingTraceRepository.Create", "traceID", t.ID)
	return nil
}

func (r *postingTraceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PostingTrace, error) {
	logger.EnterMethod("postingTraceRepository.GetByID", "traceID", id)

	query := `SELECT ` + postingTraceColumns + ` FROM posting_traces WHERE id = $1`
	t := &domain.PostingTrace{}
	err := r.q.QueryRowContext(ctx, r.d.rebind(query), id).Scan(
		&t.ID, &t.TgtPstID, &t.SrcPstTime, &t.SrcPstID, &t.SrcOprID, &t.AccountID,
		&t.DebitAmount, &t.CreditAmount, &t.SrcPstHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = repository.ErrNotFound
		} else {
			err = domain.DbError("get posting trace", err)
		}
		exitWithError("postingTraceRepository.GetByID", err, "traceID", id)
		return nil, err
	}
	t.SrcPstTime = domain.Timestamp(t.SrcPstTime)

	logger.ExitMethod("postingTraceRepository.GetByID", "traceID", id)
	return t, nil
}
