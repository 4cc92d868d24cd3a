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

type postingRepository struct {
	q querier
	d Dialect
}

const postingColumns = `id, record_user, record_time, opr_id, opr_time, opr_type, opr_details, opr_src,
	pst_time, pst_type, pst_status, ledger_id, value_time, discarded_id, discarded_time, discarding_id,
	antecedent_id, antecedent_hash, hash`

const postingLineColumns = `id, posting_id, account_id, debit_amount, credit_amount, details, src_account,
	base_line, sub_opr_src_id, record_time, opr_id, opr_src, pst_time, pst_type, pst_status, hash,
	additional_information, discarded_time`

func (r *postingRepository) Create(ctx context.Context, p *domain.Posting) error {
	logger.EnterMethod("postingRepository.Create", "postingID", p.ID, "ledgerID", p.LedgerID, "lines", len(p.Lines))

	err := atomically(ctx, r.q, func(q querier) error {
		query := `INSERT INTO postings (` + postingColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
		_, err := q.ExecContext(ctx, r.d.rebind(query),
			p.ID, p.RecordUser, p.RecordTime, p.OperationID, p.OperationTime, p.OperationType,
			p.OperationDetails, p.OperationSource, p.PostingTime, p.Type, p.Status, p.LedgerID,
			p.ValueTime, p.DiscardedID, p.DiscardedTime, p.DiscardingID,
			p.AntecedentID, p.AntecedentHash, p.Hash,
		)
		if err != nil {
			return err
		}

		lineQuery := r.d.rebind(`INSERT INTO posting_lines (` + postingLineColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`)
		for i := range p.Lines {
			l := &p.Lines[i]
			_, err := q.ExecContext(ctx, lineQuery,
				l.ID, l.PostingID, l.AccountID, l.DebitAmount, l.CreditAmount, l.Details, l.SrcAccount,
				l.BaseLine, l.SubOprSrcID, l.RecordTime, l.OperationID, l.OperationSource, l.PostingTime,
				l.PostingType, l.PostingStatus, l.Hash, l.AdditionalInfo, l.DiscardedTime,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		err = domain.DbError("create posting", err)
		exitWithError("postingRepository.Create", err, "postingID", p.ID)
		return err
	}

	logger.ExitMethod("postingRepository.Create", "postingID", p.ID)
	return nil
}

func (r *postingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Posting, error) {
	logger.EnterMethod("postingRepository.GetByID", "postingID", id)

	query := `SELECT ` + postingColumns + ` FROM postings WHERE id = $1`
	p, err := scanPosting(r.q.QueryRowContext(ctx, r.d.rebind(query), id))
	if err == nil {
		err = r.loadLines(ctx, p)
	}
	if err != nil {
		exitWithError("postingRepository.GetByID", err, "postingID", id)
		return nil, err
	}

	logger.ExitMethod("postingRepository.GetByID", "postingID", id)
	return p, nil
}

func (r *postingRepository) ListByOperationID(ctx context.Context, oprID domain.Digest) ([]domain.Posting, error) {
	query := `SELECT ` + postingColumns + ` FROM postings WHERE opr_id = $1 ORDER BY record_time, id`
	return r.list(ctx, "postingRepository.ListByOperationID", query, oprID)
}

func (r *postingRepository) GetLiveByOperationID(ctx context.Context, oprID domain.Digest) (*domain.Posting, error) {
	query := `SELECT ` + postingColumns + ` FROM postings
		WHERE opr_id = $1 AND discarding_id IS NULL
		ORDER BY record_time DESC, id DESC LIMIT 1`
	return r.optional(ctx, "postingRepository.GetLiveByOperationID", query, oprID)
}

func (r *postingRepository) GetLatestByLedger(ctx context.Context, ledgerID uuid.UUID) (*domain.Posting, error) {
	query := `SELECT ` + postingColumns + ` FROM postings
		WHERE ledger_id = $1
		ORDER BY record_time DESC, id DESC LIMIT 1`
	return r.optional(ctx, "postingRepository.GetLatestByLedger", query, ledgerID)
}

func (r *postingRepository) ListByLedger(ctx context.Context, ledgerID uuid.UUID) ([]domain.Posting, error) {
	query := `SELECT ` + postingColumns + ` FROM postings WHERE ledger_id = $1 ORDER BY record_time, id`
	return r.list(ctx, "postingRepository.ListByLedger", query, ledgerID)
}

func (r *postingRepository) MarkDiscarded(ctx context.Context, id, discardingID uuid.UUID, at time.Time) error {
	logger.EnterMethod("postingRepository.MarkDiscarded", "postingID", id, "discardingID", discardingID)

	err := atomically(ctx, r.q, func(q querier) error {
		res, err := q.ExecContext(ctx,
			r.d.rebind(`UPDATE postings SET discarding_id = $2, discarded_time = $3 WHERE id = $1 AND discarding_id IS NULL`),
			id, discardingID, at)
		if err != nil {
			return domain.DbError("discard posting", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return domain.DbError("discard posting", err)
		}
		if n == 0 {
			return repository.ErrNotFound
		}
		_, err = q.ExecContext(ctx,
			r.d.rebind(`UPDATE posting_lines SET discarded_time = $2 WHERE posting_id = $1 AND discarded_time IS NULL`),
			id, at)
		if err != nil {
			return domain.DbError("discard posting lines", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			err = domain.DbError("discard posting", err)
		}
		exitWithError("postingRepository.MarkDiscarded", err, "postingID", id)
		return err
	}

	logger.ExitMethod("postingRepository.MarkDiscarded", "postingID", id)
	return nil
}

func (r *postingRepository) optional(ctx context.Context, method, query string, arg any) (*domain.Posting, error) {
	logger.EnterMethod(method, "arg", arg)

	p, err := scanPosting(r.q.QueryRowContext(ctx, r.d.rebind(query), arg))
	if errors.Is(err, repository.ErrNotFound) {
		logger.ExitMethod(method, "found", false)
		return nil, nil
	}
	if err == nil {
		err = r.loadLines(ctx, p)
	}
	if err != nil {
		exitWithError(method, err)
		return nil, err
	}

	logger.ExitMethod(method, "found", true, "postingID", p.ID)
	return p, nil
}

func (r *postingRepository) list(ctx context.Context, method, query string, arg any) ([]domain.Posting, error) {
	logger.EnterMethod(method, "arg", arg)

	rows, err := r.q.QueryContext(ctx, r.d.rebind(query), arg)
	if err != nil {
		err = domain.DbError("list postings", err)
		exitWithError(method, err)
		return nil, err
	}
	var postings []domain.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			rows.Close()
			exitWithError(method, err)
			return nil, err
		}
		postings = append(postings, *p)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, domain.DbError("list postings", err)
	}

	// Lines are loaded after the header cursor is closed; a transaction
	// cannot interleave two result sets on one connection.
	for i := range postings {
		if err := r.loadLines(ctx, &postings[i]); err != nil {
			exitWithError(method, err)
			return nil, err
		}
	}

	logger.ExitMethod(method, "count", len(postings))
	return postings, nil
}

func (r *postingRepository) loadLines(ctx context.Context, p *domain.Posting) error {
	query := `SELECT ` + postingLineColumns + ` FROM posting_lines WHERE posting_id = $1 ORDER BY id`
	rows, err := r.q.QueryContext(ctx, r.d.rebind(query), p.ID)
	if err != nil {
		return domain.DbError("load posting lines", err)
	}
	defer rows.Close()

	p.Lines = []domain.PostingLine{}
	for rows.Next() {
		l, err := scanPostingLine(rows)
		if err != nil {
			return err
		}
		p.Lines = append(p.Lines, *l)
	}
	if err := rows.Err(); err != nil {
		return domain.DbError("load posting lines", err)
	}
	return nil
}

func scanPosting(row scanner) (*domain.Posting, error) {
	p := &domain.Posting{}
	var (
		valueTime, discardedTime                sql.NullTime
		discardedID, discardingID, antecedentID uuid.NullUUID
	)
	err := row.Scan(
		&p.ID, &p.RecordUser, &p.RecordTime, &p.OperationID, &p.OperationTime, &p.OperationType,
		&p.OperationDetails, &p.OperationSource, &p.PostingTime, &p.Type, &p.Status, &p.LedgerID,
		&valueTime, &discardedID, &discardedTime, &discardingID,
		&antecedentID, &p.AntecedentHash, &p.Hash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, domain.DbError("scan posting", err)
	}
	p.RecordTime = domain.Timestamp(p.RecordTime)
	p.OperationTime = domain.Timestamp(p.OperationTime)
	p.PostingTime = domain.Timestamp(p.PostingTime)
	p.ValueTime = timePtr(valueTime)
	p.DiscardedTime = timePtr(discardedTime)
	p.DiscardedID = uuidPtr(discardedID)
	p.DiscardingID = uuidPtr(discardingID)
	p.AntecedentID = uuidPtr(antecedentID)
	return p, nil
}
