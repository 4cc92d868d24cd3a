// Package cache wraps repositories with in-process read-through caches.
package cache

import (
	"context"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/logger"
	"postings-ledger/internal/repository"
)

const DefaultSize = 256

// ChartOfAccountRepository caches charts of accounts by id and by name.
// Entries are dropped after a successful write so the next read refetches.
type ChartOfAccountRepository struct {
	next   repository.ChartOfAccountRepository
	byID   *lru.Cache[uuid.UUID, domain.ChartOfAccount]
	byName *lru.Cache[string, uuid.UUID]
}

func NewChartOfAccountRepository(next repository.ChartOfAccountRepository, size int) (*ChartOfAccountRepository, error) {
	if size <= 0 {
		size = DefaultSize
	}
	byID, err := lru.New[uuid.UUID, domain.ChartOfAccount](size)
	if err != nil {
		return nil, err
	}
	byName, err := lru.New[string, uuid.UUID](size)
	if err != nil {
		return nil, err
	}
	return &ChartOfAccountRepository{next: next, byID: byID, byName: byName}, nil
}

func (c *ChartOfAccountRepository) Create(ctx context.Context, coa *domain.ChartOfAccount) error {
	if err := c.next.Create(ctx, coa); err != nil {
		return err
	}
	c.Invalidate(coa.ID, coa.Name)
	return nil
}

func (c *ChartOfAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ChartOfAccount, error) {
	if coa, ok := c.byID.Get(id); ok {
		logger.Debug("Chart of account cache hit", "coaID", id)
		return &coa, nil
	}
	coa, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(coa)
	return coa, nil
}

func (c *ChartOfAccountRepository) GetByName(ctx context.Context, name string) (*domain.ChartOfAccount, error) {
	if id, ok := c.byName.Get(name); ok {
		if coa, ok := c.byID.Get(id); ok {
			logger.Debug("Chart of account cache hit", "name", name)
			return &coa, nil
		}
	}
	coa, err := c.next.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.store(coa)
	return coa, nil
}

// Invalidate drops any entry for the id or name.
func (c *ChartOfAccountRepository) Invalidate(id uuid.UUID, name string) {
	c.byID.Remove(id)
	c.byName.Remove(name)
}

func (c *ChartOfAccountRepository) Len() int {
	return c.byID.Len()
}

func (c *ChartOfAccountRepository) store(coa *domain.ChartOfAccount) {
	c.byID.Add(coa.ID, *coa)
	c.byName.Add(coa.Name, coa.ID)
}
