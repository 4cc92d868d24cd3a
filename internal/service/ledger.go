package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/hashing"
	"postings-ledger/internal/logger"
	"postings-ledger/internal/repository"
)

type ledgerService struct {
	repos repository.Repositories
	tx    repository.Transactor
}

func NewLedgerService(repos repository.Repositories, tx repository.Transactor) LedgerService {
	return &ledgerService{repos: repos, tx: tx}
}

func (s *ledgerService) NewLedger(ctx context.Context, user string, in *domain.Ledger, names []domain.Named) (*domain.Ledger, error) {
	logger.EnterMethod("ledgerService.NewLedger", "name", in.Name, "coaID", in.ChartOfAccountID)

	if in.Name == "" || len(in.Name) > 255 {
		err := domain.ValidationError{Err: domain.ErrInvalidInput, Field: "name", Message: "must be 1 to 255 characters"}
		logger.ExitMethodWithError("ledgerService.NewLedger", err)
		return nil, err
	}
	if _, err := s.repos.ChartOfAccounts.GetByID(ctx, in.ChartOfAccountID); err != nil {
		err = notFound(err, domain.ErrChartOfAccountNotFound)
		logger.ExitMethodWithError("ledgerService.NewLedger", err, "coaID", in.ChartOfAccountID)
		return nil, err
	}

	ledger := &domain.Ledger{
		ID:               domain.NewID(),
		Name:             in.Name,
		ChartOfAccountID: in.ChartOfAccountID,
		Created:          domain.Now(),
		UserDetails:      hashing.UserDetails(user),
	}
	named, err := attachNames(names, ledger.Name, ledger.ID, ledger.ChartOfAccountID, domain.ContainerTypeLedger, ledger.UserDetails, ledger.Created)
	if err != nil {
		logger.ExitMethodWithError("ledgerService.NewLedger", err)
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Ledgers.Create(ctx, ledger); err != nil {
			return err
		}
		for i := range named {
			if err := repos.Named.Upsert(ctx, &named[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.NewLedger", err, "name", in.Name)
		return nil, err
	}

	logger.ExitMethod("ledgerService.NewLedger", "ledgerID", ledger.ID)
	return ledger, nil
}

func (s *ledgerService) FindLedgerByID(ctx context.Context, id uuid.UUID) (*domain.Ledger, error) {
	ledger, err := s.repos.Ledgers.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrLedgerNotFound)
	}
	return ledger, nil
}

func (s *ledgerService) FindLedgerByName(ctx context.Context, coaID uuid.UUID, name string) (*domain.Ledger, error) {
	ledger, err := s.repos.Ledgers.GetByName(ctx, coaID, name)
	if err != nil {
		return nil, notFound(err, domain.ErrLedgerNotFound)
	}
	return ledger, nil
}

func (s *ledgerService) ListLedgers(ctx context.Context) ([]domain.Ledger, error) {
	return s.repos.Ledgers.List(ctx)
}

// NewLedgerAccount resolves the account's category and balance side and
// stores it together with its named records.
func (s *ledgerService) NewLedgerAccount(ctx context.Context, user string, in *domain.NewLedgerAccount) (*domain.LedgerAccount, error) {
	logger.EnterMethod("ledgerService.NewLedgerAccount", "name", in.Name, "ledgerID", in.LedgerID)

	account, named, err := s.prepareAccount(ctx, user, in)
	if err != nil {
		if domain.IsValidation(err) || domain.IsConflict(err) {
			logger.Warn("Rejected ledger account", "name", in.Name, "ledgerID", in.LedgerID, "error", err)
		}
		logger.ExitMethodWithError("ledgerService.NewLedgerAccount", err, "name", in.Name)
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.LedgerAccounts.Create(ctx, account); err != nil {
			return notFound(err, domain.ErrLedgerNotFound)
		}
		for i := range named {
			if err := repos.Named.Upsert(ctx, &named[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.NewLedgerAccount", err, "accountID", account.ID)
		return nil, err
	}

	logger.ExitMethod("ledgerService.NewLedgerAccount", "accountID", account.ID,
		"category", account.Category, "balanceSide", account.BalanceSide)
	return account, nil
}

func (s *ledgerService) prepareAccount(ctx context.Context, user string, in *domain.NewLedgerAccount) (*domain.LedgerAccount, []domain.Named, error) {
	if in.Name == "" || len(in.Name) > 255 {
		return nil, nil, domain.ValidationError{Err: domain.ErrInvalidInput, Field: "name", Message: "must be 1 to 255 characters"}
	}
	ledger, err := s.repos.Ledgers.GetByID(ctx, in.LedgerID)
	if err != nil {
		return nil, nil, notFound(err, domain.ErrLedgerNotFound)
	}
	coaID := in.ChartOfAccountID
	if coaID == uuid.Nil {
		coaID = ledger.ChartOfAccountID
	}
	if coaID != ledger.ChartOfAccountID {
		return nil, nil, domain.ErrChartOfAccountMismatch
	}

	var parent *domain.LedgerAccount
	if in.ParentID != nil {
		if parent, err = s.repos.LedgerAccounts.GetByID(ctx, *in.ParentID); err != nil {
			return nil, nil, notFound(err, domain.ErrLedgerAccountNotFound)
		}
		if parent.LedgerID != ledger.ID {
			return nil, nil, domain.ErrLedgerMismatch
		}
	}
	category, side, err := resolveAccountClass(in.Category, in.BalanceSide, parent)
	if err != nil {
		return nil, nil, err
	}

	existing, err := optional(s.repos.LedgerAccounts.GetByLedgerAndName(ctx, ledger.ID, in.Name))
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, domain.ErrDuplicateName
	}

	account := &domain.LedgerAccount{
		ID:               domain.NewID(),
		Name:             in.Name,
		LedgerID:         ledger.ID,
		ChartOfAccountID: coaID,
		ParentID:         in.ParentID,
		BalanceSide:      side,
		Category:         category,
		Created:          domain.Now(),
		UserDetails:      hashing.UserDetails(user),
	}
	named, err := attachNames(in.Names, account.Name, account.ID, ledger.ID, domain.ContainerTypeLedgerAccount, account.UserDetails, account.Created)
	if err != nil {
		return nil, nil, err
	}
	return account, named, nil
}

// resolveAccountClass fills an unset category from the parent and an unset
// balance side from the parent or the category table. DR/CR mixed accounts
// are only allowed for the non-operating category.
func resolveAccountClass(category *domain.AccountCategory, side *domain.BalanceSide, parent *domain.LedgerAccount) (domain.AccountCategory, domain.BalanceSide, error) {
	var resolved domain.AccountCategory
	switch {
	case category != nil:
		if !category.Valid() {
			return "", "", domain.ValidationError{Err: domain.ErrInvalidInput, Field: "category", Message: "is unknown"}
		}
		resolved = *category
	case parent != nil:
		resolved = parent.Category
	default:
		return "", "", domain.ErrNoCategory
	}

	var balance domain.BalanceSide
	switch {
	case side != nil:
		if !side.Valid() {
			return "", "", domain.ValidationError{Err: domain.ErrInvalidInput, Field: "balance_side", Message: "is unknown"}
		}
		if *side == domain.BalanceSideDebitCredit && resolved != domain.AccountCategoryNonOperating {
			return "", "", domain.ValidationError{Err: domain.ErrInvalidInput, Field: "balance_side", Message: "DRCR requires the NON_OPERATING category"}
		}
		balance = *side
	case parent != nil:
		balance = parent.BalanceSide
		if balance == domain.BalanceSideDebitCredit && resolved != domain.AccountCategoryNonOperating {
			balance = resolved.DefaultBalanceSide()
		}
	default:
		balance = resolved.DefaultBalanceSide()
	}
	return resolved, balance, nil
}

func (s *ledgerService) FindLedgerAccountByID(ctx context.Context, id uuid.UUID) (*domain.LedgerAccount, error) {
	account, err := s.repos.LedgerAccounts.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrLedgerAccountNotFound)
	}
	return account, nil
}

func (s *ledgerService) FindLedgerAccount(ctx context.Context, ledgerID uuid.UUID, name string) (*domain.LedgerAccount, error) {
	account, err := s.repos.LedgerAccounts.GetByLedgerAndName(ctx, ledgerID, name)
	if err != nil {
		return nil, notFound(err, domain.ErrLedgerAccountNotFound)
	}
	return account, nil
}

func (s *ledgerService) LedgerAccountExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.repos.LedgerAccounts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *ledgerService) ListLedgerAccounts(ctx context.Context, ledgerID uuid.UUID) ([]domain.LedgerAccount, error) {
	if _, err := s.repos.Ledgers.GetByID(ctx, ledgerID); err != nil {
		return nil, notFound(err, domain.ErrLedgerNotFound)
	}
	return s.repos.LedgerAccounts.ListByLedger(ctx, ledgerID)
}

func (s *ledgerService) ResolveParent(ctx context.Context, account *domain.LedgerAccount) (*domain.LedgerAccount, error) {
	if account.ParentID == nil {
		return nil, nil
	}
	parent, err := s.repos.LedgerAccounts.GetByID(ctx, *account.ParentID)
	if err != nil {
		return nil, notFound(err, domain.ErrLedgerAccountNotFound)
	}
	return parent, nil
}
