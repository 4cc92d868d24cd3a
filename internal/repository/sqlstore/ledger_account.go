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

type ledgerAccountRepository struct {
	q querier
	d Dialect
}

const ledgerAccountColumns = `id, name, ledger_id, coa_id, parent_id, balance_side, category, created, user_details`

func (r *ledgerAccountRepository) Create(ctx context.Context, account *domain.LedgerAccount) error {
	logger.EnterMethod("ledgerAccountRepository.Create", "accountID", account.ID, "ledgerID", account.LedgerID)

	var ledgerCoaID uuid.UUID
	err := r.q.QueryRowContext(ctx, r.d.rebind(`SELECT coa_id FROM ledgers WHERE id = $1`), account.LedgerID).Scan(&ledgerCoaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = repository.ErrNotFound
		} else {
			err = domain.DbError("create ledger account", err)
		}
		exitWithError("ledgerAccountRepository.Create", err, "accountID", account.ID)
		return err
	}
	if ledgerCoaID != account.ChartOfAccountID {
		exitWithError("ledgerAccountRepository.Create", domain.ErrChartOfAccountMismatch, "accountID", account.ID)
		return domain.ErrChartOfAccountMismatch
	}

	query := `INSERT INTO ledger_accounts (` + ledgerAccountColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = r.q.ExecContext(ctx, r.d.rebind(query),
		account.ID, account.Name, account.LedgerID, account.ChartOfAccountID, account.ParentID,
		account.BalanceSide, account.Category, account.Created, account.UserDetails,
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrDuplicateName
		} else {
			err = domain.DbError("create ledger account", err)
		}
		exitWithError("ledgerAccountRepository.Create", err, "accountID", account.ID)
		return err
	}

	logger.ExitMethod("ledgerAccountRepository.Create", "accountID", account.ID)
	return nil
}

func (r *ledgerAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerAccount, error) {
	logger.EnterMethod("ledgerAccountRepository.GetByID", "accountID", id)

	query := `SELECT ` + ledgerAccountColumns + ` FROM ledger_accounts WHERE id = $1`
	account, err := scanLedgerAccount(r.q.QueryRowContext(ctx, r.d.rebind(query), id))
	if err != nil {
		exitWithError("ledgerAccountRepository.GetByID", err, "accountID", id)
		return nil, err
	}

	logger.ExitMethod("ledgerAccountRepository.GetByID", "accountID", id)
	return account, nil
}

func (r *ledgerAccountRepository) GetByLedgerAndName(ctx context.Context, ledgerID uuid.UUID, name string) (*domain.LedgerAccount, error) {
	logger.EnterMethod("ledgerAccountRepository.GetByLedgerAndName", "ledgerID", ledgerID, "name", name)

	query := `SELECT ` + ledgerAccountColumns + ` FROM ledger_accounts WHERE ledger_id = $1 AND name = $2`
	account, err := scanLedgerAccount(r.q.QueryRowContext(ctx, r.d.rebind(query), ledgerID, name))
	if err != nil {
		exitWithError("ledgerAccountRepository.GetByLedgerAndName", err, "ledgerID", ledgerID)
		return nil, err
	}

	logger.ExitMethod("ledgerAccountRepository.GetByLedgerAndName", "accountID", account.ID)
	return account, nil
}

func (r *ledgerAccountRepository) ListByLedger(ctx context.Context, ledgerID uuid.UUID) ([]domain.LedgerAccount, error) {
	logger.EnterMethod("ledgerAccountRepository.ListByLedger", "ledgerID", ledgerID)

	query := `SELECT ` + ledgerAccountColumns + ` FROM ledger_accounts WHERE ledger_id = $1 ORDER BY created, id`
	rows, err := r.q.QueryContext(ctx, r.d.rebind(query), ledgerID)
	if err != nil {
		err = domain.DbError("list ledger accounts", err)
		exitWithError("ledgerAccountRepository.ListByLedger", err, "ledgerID", ledgerID)
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.LedgerAccount
	for rows.Next() {
		account, err := scanLedgerAccount(rows)
		if err != nil {
			exitWithError("ledgerAccountRepository.ListByLedger", err, "ledgerID", ledgerID)
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.DbError("list ledger accounts", err)
	}

	logger.ExitMethod("ledgerAccountRepository.ListByLedger", "ledgerID", ledgerID, "count", len(accounts))
	return accounts, nil
}

func scanLedgerAccount(row scanner) (*domain.LedgerAccount, error) {
	account := &domain.LedgerAccount{}
	var parentID uuid.NullUUID
	err := row.Scan(
		&account.ID, &account.Name, &account.LedgerID, &account.ChartOfAccountID, &parentID,
		&account.BalanceSide, &account.Category, &account.Created, &account.UserDetails,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, domain.DbError("scan ledger account", err)
	}
	account.ParentID = uuidPtr(parentID)
	account.Created = domain.Timestamp(account.Created)
	return account, nil
}
