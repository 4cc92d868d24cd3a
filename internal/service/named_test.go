package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/hashing"
	"postings-ledger/internal/repository"
)

func TestNamedService_Upsert(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()

	t.Run("New name for a ledger is scoped by its chart", func(t *testing.T) {
		m := newMockRepos()
		svc := NewNamedService(m.repositories())
		m.ledgers.On("GetByID", mock.Anything, f.ledger.ID).Return(f.ledger, nil)
		m.named.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.Named")).Return(nil)

		n, err := svc.Upsert(ctx, "Bob", &domain.Named{
			Container: f.ledger.ID, Context: domain.NewID(), Name: "Hauptbuch", Language: "de",
			ContainerType: domain.ContainerTypeLedger,
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, n.ID)
		assert.Equal(t, f.ledger.ChartOfAccountID, n.Context)
		assert.True(t, n.UserDetails.Equal(hashing.UserDetails("bob")))
		assert.False(t, n.Created.IsZero())
	})

	t.Run("Update keeps the creation time", func(t *testing.T) {
		m := newMockRepos()
		svc := NewNamedService(m.repositories())
		created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		existing := &domain.Named{ID: domain.NewID(), Container: f.cash.ID, Context: f.ledger.ID, Name: "cash",
			Language: "en", Created: created, ContainerType: domain.ContainerTypeLedgerAccount}
		m.accounts.On("GetByID", mock.Anything, f.cash.ID).Return(f.cash, nil)
		m.named.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
		m.named.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.Named")).Return(nil)

		update := *existing
		update.Name = "Cash on hand"
		update.Created = time.Time{}
		n, err := svc.Upsert(ctx, "alice", &update)
		require.NoError(t, err)
		assert.Equal(t, created, n.Created)
		assert.Equal(t, "Cash on hand", n.Name)
	})

	t.Run("Container cannot move", func(t *testing.T) {
		m := newMockRepos()
		svc := NewNamedService(m.repositories())
		existing := &domain.Named{ID: domain.NewID(), Container: f.loans.ID, Context: f.ledger.ID, Name: "loans",
			Language: "en", ContainerType: domain.ContainerTypeLedgerAccount}
		m.accounts.On("GetByID", mock.Anything, f.cash.ID).Return(f.cash, nil)
		m.named.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)

		moved := *existing
		moved.Container = f.cash.ID
		_, err := svc.Upsert(ctx, "alice", &moved)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		m.named.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("Unknown container", func(t *testing.T) {
		m := newMockRepos()
		svc := NewNamedService(m.repositories())
		id := domain.NewID()
		m.coas.On("GetByID", mock.Anything, id).Return(nil, repository.ErrNotFound)

		_, err := svc.Upsert(ctx, "alice", &domain.Named{Container: id, Name: "x", Language: "en",
			ContainerType: domain.ContainerTypeChartOfAccount})
		assert.ErrorIs(t, err, domain.ErrChartOfAccountNotFound)
	})
}

func TestNamedService_Find(t *testing.T) {
	ctx := context.Background()
	m := newMockRepos()
	svc := NewNamedService(m.repositories())
	scope := domain.NewID()
	found := []domain.Named{{ID: domain.NewID(), Name: "cash", Context: scope}}
	m.named.On("ListByNameTypeAndContext", mock.Anything, "cash", domain.ContainerTypeLedgerAccount, scope).Return(found, nil)

	res, err := svc.FindByNameTypeAndContext(ctx, "cash", domain.ContainerTypeLedgerAccount, scope)
	require.NoError(t, err)
	assert.Equal(t, found, res)

	_, err = svc.FindByNameAndType(ctx, "cash", "FOLDER")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

type invalidatingRepo struct {
	MockChartOfAccountRepo
	invalidated []string
}

func (r *invalidatingRepo) Invalidate(_ uuid.UUID, name string) {
	r.invalidated = append(r.invalidated, name)
}

func TestChartOfAccountService_NewChartOfAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates chart and default name", func(t *testing.T) {
		m := newMockRepos()
		svc := NewChartOfAccountService(m.repositories(), m)
		m.coas.On("Create", mock.Anything, mock.AnythingOfType("*domain.ChartOfAccount")).Return(nil)
		m.named.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.Named")).Return(nil)

		coa, err := svc.NewChartOfAccount(ctx, "alice", &domain.ChartOfAccount{Name: "ifrs"}, nil)
		require.NoError(t, err)
		n := m.named.Calls[0].Arguments.Get(1).(*domain.Named)
		assert.Equal(t, coa.ID, n.Container)
		assert.Equal(t, coa.ID, n.Context)
		assert.Equal(t, "ifrs", n.Name)
	})

	t.Run("Invalidates a caching repository after commit", func(t *testing.T) {
		m := newMockRepos()
		cached := &invalidatingRepo{}
		repos := m.repositories()
		repos.ChartOfAccounts = cached
		svc := NewChartOfAccountService(repos, m)
		m.coas.On("Create", mock.Anything, mock.Anything).Return(nil)
		m.named.On("Upsert", mock.Anything, mock.Anything).Return(nil)

		_, err := svc.NewChartOfAccount(ctx, "alice", &domain.ChartOfAccount{Name: "gaap"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"gaap"}, cached.invalidated)
		cached.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Duplicate name", func(t *testing.T) {
		m := newMockRepos()
		svc := NewChartOfAccountService(m.repositories(), m)
		m.coas.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicateName)

		_, err := svc.NewChartOfAccount(ctx, "alice", &domain.ChartOfAccount{Name: "ifrs"}, nil)
		assert.ErrorIs(t, err, domain.ErrDuplicateName)
	})

	t.Run("Empty name", func(t *testing.T) {
		m := newMockRepos()
		svc := NewChartOfAccountService(m.repositories(), m)

		_, err := svc.NewChartOfAccount(ctx, "alice", &domain.ChartOfAccount{}, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
