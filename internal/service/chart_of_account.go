package service

import (
	"context"

	"github.com/google/uuid"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/hashing"
	"postings-ledger/internal/logger"
	"postings-ledger/internal/repository"
)

type invalidator interface {
	Invalidate(id uuid.UUID, name string)
}

type chartOfAccountService struct {
	repos repository.Repositories
	tx    repository.Transactor
}

func NewChartOfAccountService(repos repository.Repositories, tx repository.Transactor) ChartOfAccountService {
	return &chartOfAccountService{repos: repos, tx: tx}
}

func (s *chartOfAccountService) NewChartOfAccount(ctx context.Context, user string, in *domain.ChartOfAccount, names []domain.Named) (*domain.ChartOfAccount, error) {
	logger.EnterMethod("chartOfAccountService.NewChartOfAccount", "name", in.Name)

	if in.Name == "" || len(in.Name) > 255 {
		err := domain.ValidationError{Err: domain.ErrInvalidInput, Field: "name", Message: "must be 1 to 255 characters"}
		logger.ExitMethodWithError("chartOfAccountService.NewChartOfAccount", err)
		return nil, err
	}

	coa := &domain.ChartOfAccount{
		ID:          domain.NewID(),
		Name:        in.Name,
		Created:     domain.Now(),
		UserDetails: hashing.UserDetails(user),
	}
	named, err := attachNames(names, coa.Name, coa.ID, coa.ID, domain.ContainerTypeChartOfAccount, coa.UserDetails, coa.Created)
	if err != nil {
		logger.ExitMethodWithError("chartOfAccountService.NewChartOfAccount", err)
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.ChartOfAccounts.Create(ctx, coa); err != nil {
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
		logger.ExitMethodWithError("chartOfAccountService.NewChartOfAccount", err, "name", in.Name)
		return nil, err
	}
	// the committed row bypassed any cache in front of the pool repository
	if c, ok := s.repos.ChartOfAccounts.(invalidator); ok {
		c.Invalidate(coa.ID, coa.Name)
	}

	logger.ExitMethod("chartOfAccountService.NewChartOfAccount", "coaID", coa.ID)
	return coa, nil
}

func (s *chartOfAccountService) FindChartOfAccountByID(ctx context.Context, id uuid.UUID) (*domain.ChartOfAccount, error) {
	coa, err := s.repos.ChartOfAccounts.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrChartOfAccountNotFound)
	}
	return coa, nil
}

func (s *chartOfAccountService) FindChartOfAccountByName(ctx context.Context, name string) (*domain.ChartOfAccount, error) {
	coa, err := s.repos.ChartOfAccounts.GetByName(ctx, name)
	if err != nil {
		return nil, notFound(err, domain.ErrChartOfAccountNotFound)
	}
	return coa, nil
}
