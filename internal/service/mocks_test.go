package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/repository"
)

// MockChartOfAccountRepo
type MockChartOfAccountRepo struct {
	mock.Mock
}

func (m *MockChartOfAccountRepo) Create(ctx context.Context, coa *domain.ChartOfAccount) error {
	args := m.Called(ctx, coa)
	return args.Error(0)
}
func (m *MockChartOfAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ChartOfAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChartOfAccount), args.Error(1)
}
func (m *MockChartOfAccountRepo) GetByName(ctx context.Context, name string) (*domain.ChartOfAccount, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChartOfAccount), args.Error(1)
}

// MockLedgerRepo
type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) Create(ctx context.Context, ledger *domain.Ledger) error {
	args := m.Called(ctx, ledger)
	return args.Error(0)
}
func (m *MockLedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ledger, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ledger), args.Error(1)
}
func (m *MockLedgerRepo) GetByName(ctx context.Context, coaID uuid.UUID, name string) (*domain.Ledger, error) {
	args := m.Called(ctx, coaID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ledger), args.Error(1)
}
func (m *MockLedgerRepo) List(ctx context.Context) ([]domain.Ledger, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Ledger), args.Error(1)
}
func (m *MockLedgerRepo) Lock(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockLedgerAccountRepo
type MockLedgerAccountRepo struct {
	mock.Mock
}

func (m *MockLedgerAccountRepo) Create(ctx context.Context, account *domain.LedgerAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}
func (m *MockLedgerAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerAccount), args.Error(1)
}
func (m *MockLedgerAccountRepo) GetByLedgerAndName(ctx context.Context, ledgerID uuid.UUID, name string) (*domain.LedgerAccount, error) {
	args := m.Called(ctx, ledgerID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerAccount), args.Error(1)
}
func (m *MockLedgerAccountRepo) ListByLedger(ctx context.Context, ledgerID uuid.UUID) ([]domain.LedgerAccount, error) {
	args := m.Called(ctx, ledgerID)
	return args.Get(0).([]domain.LedgerAccount), args.Error(1)
}

// MockNamedRepo
type MockNamedRepo struct {
	mock.Mock
}

func (m *MockNamedRepo) Upsert(ctx context.Context, named *domain.Named) error {
	args := m.Called(ctx, named)
	return args.Error(0)
}
func (m *MockNamedRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Named, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Named), args.Error(1)
}
func (m *MockNamedRepo) ListByContainer(ctx context.Context, container uuid.UUID) ([]domain.Named, error) {
	args := m.Called(ctx, container)
	return args.Get(0).([]domain.Named), args.Error(1)
}
func (m *MockNamedRepo) ListByNameAndType(ctx context.Context, name string, containerType domain.ContainerType) ([]domain.Named, error) {
	args := m.Called(ctx, name, containerType)
	return args.Get(0).([]domain.Named), args.Error(1)
}
func (m *MockNamedRepo) ListByNameTypeAndContext(ctx context.Context, name string, containerType domain.ContainerType, context uuid.UUID) ([]domain.Named, error) {
	args := m.Called(ctx, name, containerType, context)
	return args.Get(0).([]domain.Named), args.Error(1)
}

// MockPostingRepo
type MockPostingRepo struct {
	mock.Mock
}

func (m *MockPostingRepo) Create(ctx context.Context, posting *domain.Posting) error {
	args := m.Called(ctx, posting)
	return args.Error(0)
}
func (m *MockPostingRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Posting, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Posting), args.Error(1)
}
func (m *MockPostingRepo) ListByOperationID(ctx context.Context, oprID domain.Digest) ([]domain.Posting, error) {
	args := m.Called(ctx, oprID)
	return args.Get(0).([]domain.Posting), args.Error(1)
}
func (m *MockPostingRepo) GetLiveByOperationID(ctx context.Context, oprID domain.Digest) (*domain.Posting, error) {
	args := m.Called(ctx, oprID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Posting), args.Error(1)
}
func (m *MockPostingRepo) GetLatestByLedger(ctx context.Context, ledgerID uuid.UUID) (*domain.Posting, error) {
	args := m.Called(ctx, ledgerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Posting), args.Error(1)
}
func (m *MockPostingRepo) ListByLedger(ctx context.Context, ledgerID uuid.UUID) ([]domain.Posting, error) {
	args := m.Called(ctx, ledgerID)
	return args.Get(0).([]domain.Posting), args.Error(1)
}
func (m *MockPostingRepo) MarkDiscarded(ctx context.Context, id, discardingID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, discardingID, at)
	return args.Error(0)
}

// MockPostingLineRepo
type MockPostingLineRepo struct {
	mock.Mock
}

func (m *MockPostingLineRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PostingLine, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostingLine), args.Error(1)
}
func (m *MockPostingLineRepo) GetByIDAndAccount(ctx context.Context, id, accountID uuid.UUID) (*domain.PostingLine, error) {
	args := m.Called(ctx, id, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostingLine), args.Error(1)
}
func (m *MockPostingLineRepo) ListByAccountBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time, excludeDiscarded bool) ([]domain.PostingLine, error) {
	args := m.Called(ctx, accountID, from, to, excludeDiscarded)
	return args.Get(0).([]domain.PostingLine), args.Error(1)
}
func (m *MockPostingLineRepo) ListByAccountUpTo(ctx context.Context, accountID uuid.UUID, refTime time.Time, excludeDiscarded bool) ([]domain.PostingLine, error) {
	args := m.Called(ctx, accountID, refTime, excludeDiscarded)
	return args.Get(0).([]domain.PostingLine), args.Error(1)
}
func (m *MockPostingLineRepo) ListLiveByAccountPage(ctx context.Context, accountID uuid.UUID, from, to time.Time, page domain.PageRequest) ([]domain.PostingLine, int64, error) {
	args := m.Called(ctx, accountID, from, to, page)
	return args.Get(0).([]domain.PostingLine), args.Get(1).(int64), args.Error(2)
}

// MockPostingTraceRepo
type MockPostingTraceRepo struct {
	mock.Mock
}

func (m *MockPostingTraceRepo) Create(ctx context.Context, trace *domain.PostingTrace) error {
	args := m.Called(ctx, trace)
	return args.Error(0)
}
func (m *MockPostingTraceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PostingTrace, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostingTrace), args.Error(1)
}

// MockAccountStmtRepo
type MockAccountStmtRepo struct {
	mock.Mock
}

func (m *MockAccountStmtRepo) Create(ctx context.Context, stmt *domain.AccountStmt) error {
	args := m.Called(ctx, stmt)
	return args.Error(0)
}
func (m *MockAccountStmtRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AccountStmt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountStmt), args.Error(1)
}
func (m *MockAccountStmtRepo) GetLatestClosedBefore(ctx context.Context, accountID uuid.UUID, refTime time.Time) (*domain.AccountStmt, error) {
	args := m.Called(ctx, accountID, refTime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountStmt), args.Error(1)
}
func (m *MockAccountStmtRepo) GetFirstClosedAtOrAfter(ctx context.Context, accountID uuid.UUID, refTime time.Time) (*domain.AccountStmt, error) {
	args := m.Called(ctx, accountID, refTime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountStmt), args.Error(1)
}
func (m *MockAccountStmtRepo) Close(ctx context.Context, id, postingID uuid.UUID) error {
	args := m.Called(ctx, id, postingID)
	return args.Error(0)
}

// mockRepos bundles one mock per repository.
type mockRepos struct {
	coas       *MockChartOfAccountRepo
	ledgers    *MockLedgerRepo
	accounts   *MockLedgerAccountRepo
	named      *MockNamedRepo
	postings   *MockPostingRepo
	lines      *MockPostingLineRepo
	traces     *MockPostingTraceRepo
	statements *MockAccountStmtRepo
}

func newMockRepos() *mockRepos {
	return &mockRepos{
		coas:       new(MockChartOfAccountRepo),
		ledgers:    new(MockLedgerRepo),
		accounts:   new(MockLedgerAccountRepo),
		named:      new(MockNamedRepo),
		postings:   new(MockPostingRepo),
		lines:      new(MockPostingLineRepo),
		traces:     new(MockPostingTraceRepo),
		statements: new(MockAccountStmtRepo),
	}
}

func (m *mockRepos) repositories() repository.Repositories {
	return repository.Repositories{
		ChartOfAccounts: m.coas,
		Ledgers:         m.ledgers,
		LedgerAccounts:  m.accounts,
		Named:           m.named,
		Postings:        m.postings,
		PostingLines:    m.lines,
		PostingTraces:   m.traces,
		Statements:      m.statements,
	}
}

// WithinTx hands the same mocks to fn.
func (m *mockRepos) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	return fn(m.repositories())
}

func (m *mockRepos) assertExpectations(t mock.TestingT) {
	m.coas.AssertExpectations(t)
	m.ledgers.AssertExpectations(t)
	m.accounts.AssertExpectations(t)
	m.named.AssertExpectations(t)
	m.postings.AssertExpectations(t)
	m.lines.AssertExpectations(t)
	m.traces.AssertExpectations(t)
	m.statements.AssertExpectations(t)
}
