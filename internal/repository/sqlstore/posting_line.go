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

type postingLineRepository struct {
	q querier
	d Dialect
}

const replayOrder = ` ORDER BY pst_time, record_time, id`

func (r *postingLineRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PostingLine, error) {
	logger.EnterMethod("postingLineRepository.GetByID", "lineID", id)

	query := `SELECT ` + postingLineColumns + ` FROM posting_lines WHERE id = $1`
	l, err := scanPostingLine(r.q.QueryRowContext(ctx, r.d.rebind(query), id))
	if err != nil {
		exitWithError("postingLineRepository.GetByID", err, "lineID", id)
		return nil, err
	}

	logger.ExitMethod("postingLineRepository.GetByID", "lineID", id)
	return l, nil
}

func (r *postingLineRepository) GetByIDAndAccount(ctx context.Context, id, accountID uuid.UUID) (*domain.PostingLine, error) {
	logger.EnterMethod("postingLineRepository.GetByIDAndAccount", "lineID", id, "accountID", accountID)

	query := `SELECT ` + postingLineColumns + ` FROM posting_lines WHERE id = $1 AND account_id = $2`
	l, err := scanPostingLine(r.q.QueryRowContext(ctx, r.d.rebind(query), id, accountID))
	if err != nil {
		exitWithError("postingLineRepository.GetByIDAndAccount", err, "lineID", id)
		return nil, err
	}

	logger.ExitMethod("postingLineRepository.GetByIDAndAccount", "lineID", id)
	return l, nil
}

func (r *postingLineRepository) ListByAccountBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time, excludeDiscarded bool) ([]domain.PostingLine, error) {
	query := `SELECT ` + postingLineColumns + ` FROM posting_lines
		WHERE account_id = $1 AND pst_time > $2 AND pst_time <= $3`
	if excludeDiscarded {
		query += ` AND discarded_time IS NULL`
	}
	return r.list(ctx, "postingLineRepository.ListByAccountBetween", query+replayOrder, accountID, from, to)
}

func (r *postingLineRepository) ListByAccountUpTo(ctx context.Context, accountID uuid.UUID, refTime time.Time, excludeDiscarded bool) ([]domain.PostingLine, error) {
	query := `SELECT ` + postingLineColumns + ` FROM posting_lines
		WHERE account_id = $1 AND pst_time <= $2`
	if excludeDiscarded {
		query += ` AND discarded_time IS NULL`
	}
	return r.list(ctx, "postingLineRepository.ListByAccountUpTo", query+replayOrder, accountID, refTime)
}

func (r *postingLineRepository) ListLiveByAccountPage(ctx context.Context, accountID uuid.UUID, from, to time.Time, page domain.PageRequest) ([]domain.PostingLine, int64, error) {
	const where = ` FROM posting_lines
		WHERE account_id = $1 AND pst_time > $2 AND pst_time <= $3 AND discarded_time IS NULL`

	var total int64
	if err := r.q.QueryRowContext(ctx, r.d.rebind(`SELECT COUNT(*)`+where), accountID, from, to).Scan(&total); err != nil {
		err = domain.DbError("count posting lines", err)
		exitWithError("postingLineRepository.ListLiveByAccountPage", err, "accountID", accountID)
		return nil, 0, err
	}
	if total == 0 {
		return []domain.PostingLine{}, 0, nil
	}

	query := `SELECT ` + postingLineColumns + where + replayOrder + ` LIMIT $4 OFFSET $5`
	lines, err := r.list(ctx, "postingLineRepository.ListLiveByAccountPage", query, accountID, from, to, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	if lines == nil {
		lines = []domain.PostingLine{}
	}
	return lines, total, nil
}

func (r *postingLineRepository) list(ctx context.Context, method, query string, args ...any) ([]domain.PostingLine, error) {
	logger.EnterMethod(method, "args", args)

	rows, err := r.q.QueryContext(ctx, r.d.rebind(query), args...)
	if err != nil {
		err = domain.DbError("list posting lines", err)
		exitWithError(method, err)
		return nil, err
	}
	defer rows.Close()

	var lines []domain.PostingLine
	for rows.Next() {
		l, err := scanPostingLine(rows)
		if err != nil {
			exitWithError(method, err)
			return nil, err
		}
		lines = append(lines, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.DbError("list posting lines", err)
	}

	logger.ExitMethod(method, "count", len(lines))
	return lines, nil
}

func scanPostingLine(row scanner) (*domain.PostingLine, error) {
	l := &domain.PostingLine{}
	var (
		baseLine       uuid.NullUUID
		additionalInfo sql.NullString
		discardedTime  sql.NullTime
	)
	err := row.Scan(
		&l.ID, &l.PostingID, &l.AccountID, &l.DebitAmount, &l.CreditAmount, &l.Details, &l.SrcAccount,
		&baseLine, &l.SubOprSrcID, &l.RecordTime, &l.OperationID, &l.OperationSource, &l.PostingTime,
		&l.PostingType, &l.PostingStatus, &l.Hash, &additionalInfo, &discardedTime,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, domain.DbError("scan posting line", err)
	}
	l.BaseLine = uuidPtr(baseLine)
	l.AdditionalInfo = stringPtr(additionalInfo)
	l.DiscardedTime = timePtr(discardedTime)
	l.RecordTime = domain.Timestamp(l.RecordTime)
	l.PostingTime = domain.Timestamp(l.PostingTime)
	return l, nil
}
