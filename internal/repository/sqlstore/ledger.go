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

type ledgerRepository struct {
	q querier
	d Dialect
}

const ledgerColumns = `id, name, coa_id, created, user_details`

func (r *ledgerRepository) Create(ctx context.Context, ledger *domain.Ledger) error {
	logger.EnterMethod("ledgerRepository.Create", "ledgerID", ledger.ID, "coaID", ledger.ChartOfAccountID)

	query := `INSERT INTO ledgers (id, name, coa_id, created, user_details) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.ExecContext(ctx, r.d.rebind(query),
		ledger.ID, ledger.Name, ledger.ChartOfAccountID, ledger.Created, ledger.UserDetails)
	if err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrDuplicateName
		} else {
			err = domain.DbError("create ledger", err)
		}
		exitWithError("ledgerRepository.Create", err, "ledgerID", ledger.ID)
		return err
	}

	logger.ExitMethod("ledgerRepository.Create", "ledgerID", ledger.ID)
	return nil
}

func (r *ledgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ledger, error) {
	logger.EnterMethod("ledgerRepository.GetByID", "ledgerID", id)

	query := `SELECT ` + ledgerColumns + ` FROM ledgers WHERE id = $1`
	ledger, err := scanLedger(r.q.QueryRowContext(ctx, r.d.rebind(query), id))
	if err != nil {
		exitWithError("ledgerRepository.GetByID", err, "ledgerID", id)
		return nil, err
	}

	logger.ExitMethod("ledgerRepository.GetByID", "ledgerID", id)
	return ledger, nil
}

func (r *ledgerRepository) GetByName(ctx context.Context, coaID uuid.UUID, name string) (*domain.Ledger, error) {
	logger.EnterMethod("ledgerRepository.GetByName", "coaID", coaID, "name", name)

	query := `SELECT ` + ledgerColumns + ` FROM ledgers WHERE coa_id = $1 AND name = $2`
	ledger, err := scanLedger(r.q.QueryRowContext(ctx, r.d.rebind(query), coaID, name))
	if err != nil {
		exitWithError("ledgerRepository.GetByName", err, "coaID", coaID, "name", name)
		return nil, err
	}

	logger.ExitMethod("ledgerRepository.GetByName", "ledgerID", ledger.ID)
	return ledger, nil
}

func (r *ledgerRepository) List(ctx context.Context) ([]domain.Ledger, error) {
	logger.EnterMethod("ledgerRepository.List")

	query := `SELECT ` + ledgerColumns + ` FROM ledgers ORDER BY created, id`
	rows, err := r.q.QueryContext(ctx, r.d.rebind(query))
	if err != nil {
		err = domain.DbError("list ledgers", err)
		exitWithError("ledgerRepository.List", err)
		return nil, err
	}
	defer rows.Close()

	var ledgers []domain.Ledger
	for rows.Next() {
		ledger, err := scanLedger(rows)
		if err != nil {
			exitWithError("ledgerRepository.List", err)
			return nil, err
		}
		ledgers = append(ledgers, *ledger)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.DbError("list ledgers", err)
	}

	logger.ExitMethod("ledgerRepository.List", "count", len(ledgers))
	return ledgers, nil
}

func (r *ledgerRepository) Lock(ctx context.Context, id uuid.UUID) error {
	logger.EnterMethod("ledgerRepository.Lock", "ledgerID", id)

	query := `SELECT id FROM ledgers WHERE id = $1 FOR UPDATE`
	var locked uuid.UUID
	err := r.q.QueryRowContext(ctx, r.d.rebind(query), id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = repository.ErrNotFound
		} else {
			err = domain.DbError("lock ledger", err)
		}
		exitWithError("ledgerRepository.Lock", err, "ledgerID", id)
		return err
	}

	logger.ExitMethod("ledgerRepository.Lock", "ledgerID", id)
	return nil
}

func scanLedger(row scanner) (*domain.Ledger, error) {
	ledger := &domain.Ledger{}
	if err := row.Scan(&ledger.ID, &ledger.Name, &ledger.ChartOfAccountID, &ledger.Created, &ledger.UserDetails); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, domain.DbError("scan ledger", err)
	}
	ledger.Created = domain.Timestamp(ledger.Created)
	return ledger, nil
}
