package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/hashing"
	"postings-ledger/internal/logger"
	"postings-ledger/internal/repository"
)

const defaultLanguage = "en"

type namedService struct {
	repos repository.Repositories
}

func NewNamedService(repos repository.Repositories) NamedService {
	return &namedService{repos: repos}
}

func (s *namedService) FindByContainer(ctx context.Context, container uuid.UUID) ([]domain.Named, error) {
	return s.repos.Named.ListByContainer(ctx, container)
}

func (s *namedService) FindByNameAndType(ctx context.Context, name string, containerType domain.ContainerType) ([]domain.Named, error) {
	if !containerType.Valid() {
		return nil, domain.ValidationError{Err: domain.ErrInvalidInput, Field: "container_type", Message: "is unknown"}
	}
	return s.repos.Named.ListByNameAndType(ctx, name, containerType)
}

func (s *namedService) FindByNameTypeAndContext(ctx context.Context, name string, containerType domain.ContainerType, context uuid.UUID) ([]domain.Named, error) {
	if !containerType.Valid() {
		return nil, domain.ValidationError{Err: domain.ErrInvalidInput, Field: "container_type", Message: "is unknown"}
	}
	return s.repos.Named.ListByNameTypeAndContext(ctx, name, containerType, context)
}

// Upsert creates or updates a named record. The context is derived from the
// container so callers cannot move a name into another scope.
func (s *namedService) Upsert(ctx context.Context, user string, n *domain.Named) (*domain.Named, error) {
	logger.EnterMethod("namedService.Upsert", "namedID", n.ID, "container", n.Container, "type", n.ContainerType)

	if !n.ContainerType.Valid() {
		err := domain.ValidationError{Err: domain.ErrInvalidInput, Field: "container_type", Message: "is unknown"}
		logger.ExitMethodWithError("namedService.Upsert", err)
		return nil, err
	}
	scope, err := s.contextOf(ctx, n.ContainerType, n.Container)
	if err != nil {
		logger.ExitMethodWithError("namedService.Upsert", err, "container", n.Container)
		return nil, err
	}

	out := *n
	out.Context = scope
	out.UserDetails = hashing.UserDetails(user)
	if out.ID == uuid.Nil {
		out.ID = domain.NewID()
		out.Created = domain.Now()
	} else {
		existing, err := optional(s.repos.Named.GetByID(ctx, out.ID))
		if err != nil {
			logger.ExitMethodWithError("namedService.Upsert", err, "namedID", out.ID)
			return nil, err
		}
		switch {
		case existing == nil:
			out.Created = domain.Now()
		case existing.Container != out.Container || existing.ContainerType != out.ContainerType:
			err := domain.ValidationError{Err: domain.ErrInvalidInput, Field: "container", Message: "cannot be changed"}
			logger.ExitMethodWithError("namedService.Upsert", err, "namedID", out.ID)
			return nil, err
		default:
			out.Created = existing.Created
		}
	}
	if err := out.Validate(); err != nil {
		logger.Warn("Rejected named record", "namedID", out.ID, "error", err)
		return nil, err
	}

	if err := s.repos.Named.Upsert(ctx, &out); err != nil {
		logger.ExitMethodWithError("namedService.Upsert", err, "namedID", out.ID)
		return nil, err
	}

	logger.ExitMethod("namedService.Upsert", "namedID", out.ID)
	return &out, nil
}

// contextOf returns the uniqueness scope of a container: a chart of accounts
// scopes itself, a ledger its chart and a ledger account its ledger.
func (s *namedService) contextOf(ctx context.Context, containerType domain.ContainerType, container uuid.UUID) (uuid.UUID, error) {
	switch containerType {
	case domain.ContainerTypeChartOfAccount:
		coa, err := s.repos.ChartOfAccounts.GetByID(ctx, container)
		if err != nil {
			return uuid.Nil, notFound(err, domain.ErrChartOfAccountNotFound)
		}
		return coa.ID, nil
	case domain.ContainerTypeLedger:
		ledger, err := s.repos.Ledgers.GetByID(ctx, container)
		if err != nil {
			return uuid.Nil, notFound(err, domain.ErrLedgerNotFound)
		}
		return ledger.ChartOfAccountID, nil
	default:
		account, err := s.repos.LedgerAccounts.GetByID(ctx, container)
		if err != nil {
			return uuid.Nil, notFound(err, domain.ErrLedgerAccountNotFound)
		}
		return account.LedgerID, nil
	}
}

// attachNames prepares the named records created together with an entity.
// Without explicit names the entity name is recorded in the default language.
func attachNames(names []domain.Named, fallback string, container, scope uuid.UUID, containerType domain.ContainerType, user domain.Digest, created time.Time) ([]domain.Named, error) {
	if len(names) == 0 {
		names = []domain.Named{{Name: fallback, Language: defaultLanguage}}
	}
	out := make([]domain.Named, len(names))
	for i, n := range names {
		n.ID = domain.NewID()
		n.Container = container
		n.Context = scope
		n.ContainerType = containerType
		n.Created = created
		n.UserDetails = user
		if n.Language == "" {
			n.Language = defaultLanguage
		}
		if err := n.Validate(); err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
