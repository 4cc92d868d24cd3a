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

type chartOfAccountRepository struct {
	q querier
	d Dialect
}

const coaColumns = `id, name, created, user_details`

func (r *chartOfAccountRepository) Create(ctx context.Context, coa *domain.ChartOfAccount) error {
	logger.EnterMethod("chartOfAccountRepository.Create", "coaID", coa.ID, "name", coa.Name)

	query := `INSERT INTO chart_of_accounts (id, name, created, user_details) VALUES ($1, $2, $3, $4)`
	_, err := r.q.ExecContext(ctx, r.d.rebind(query), coa.ID, coa.Name, coa.Created, coa.UserDetails)
	if err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrDuplicateName
		} else {
			err = domain.DbError("create chart of account", err)
		}
		exitWithError("chartOfAccountRepository.Create", err, "coaID", coa.ID)
		return err
	}

	logger.ExitMethod("chartOfAccountRepository.Create", "coaID", coa.ID)
	return nil
}

func (r *chartOfAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ChartOfAccount, error) {
	logger.EnterMethod("chartOfAccountRepository.GetByID", "coaID", id)

	query := `SELECT ` + coaColumns + ` FROM chart_of_accounts WHERE id = $1`
	coa, err := scanChartOfAccount(r.q.QueryRowContext(ctx, r.d.rebind(query), id))
	if err != nil {
		exitWithError("chartOfAccountRepository.GetByID", err, "coaID", id)
		return nil, err
	}

	logger.ExitMethod("chartOfAccountRepository.GetByID", "coaID", id)
	return coa, nil
}

func (r *chartOfAccountRepository) GetByName(ctx context.Context, name string) (*domain.ChartOfAccount, error) {
	logger.EnterMethod("chartOfAccountRepository.GetByName", "name", name)

	query := `SELECT ` + coaColumns + ` FROM chart_of_accounts WHERE name = $1`
	coa, err := scanChartOfAccount(r.q.QueryRowContext(ctx, r.d.rebind(query), name))
	if err != nil {
		exitWithError("chartOfAccountRepository.GetByName", err, "name", name)
		return nil, err
	}

	logger.ExitMethod("chartOfAccountRepository.GetByName", "coaID", coa.ID)
	return coa, nil
}

func scanChartOfAccount(row scanner) (*domain.ChartOfAccount, error) {
	coa := &domain.ChartOfAccount{}
	if err := row.Scan(&coa.ID, &coa.Name, &coa.Created, &coa.UserDetails); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, domain.DbError("scan chart of account", err)
	}
	coa.Created = domain.Timestamp(coa.Created)
	return coa, nil
}
