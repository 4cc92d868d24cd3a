package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"postings-ledger/internal/domain"
)

// ErrNotFound is returned by lookups by id that match no row.
var ErrNotFound = errors.New("record not found")

type ChartOfAccountRepository interface {
	Create(ctx context.Context, coa *domain.ChartOfAccount) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ChartOfAccount, error)
	GetByName(ctx context.Context, name string) (*domain.ChartOfAccount, error)
}

type LedgerRepository interface {
	Create(ctx context.Context, ledger *domain.Ledger) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Ledger, error)
	GetByName(ctx context.Context, coaID uuid.UUID, name string) (*domain.Ledger, error)
	List(ctx context.Context) ([]domain.Ledger, error)
	// Lock serializes writers appending to the ledger's posting chain for the
	// rest of the enclosing transaction.
	Lock(ctx context.Context, id uuid.UUID) error
}

type LedgerAccountRepository interface {
	// Create rejects an account whose chart of accounts differs from its ledger's.
	Create(ctx context.Context, account *domain.LedgerAccount) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerAccount, error)
	GetByLedgerAndName(ctx context.Context, ledgerID uuid.UUID, name string) (*domain.LedgerAccount, error)
	ListByLedger(ctx context.Context, ledgerID uuid.UUID) ([]domain.LedgerAccount, error)
}

type NamedRepository interface {
	Upsert(ctx context.Context, named *domain.Named) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Named, error)
	ListByContainer(ctx context.Context, container uuid.UUID) ([]domain.Named, error)
	ListByNameAndType(ctx context.Context, name string, containerType domain.ContainerType) ([]domain.Named, error)
	ListByNameTypeAndContext(ctx context.Context, name string, containerType domain.ContainerType, context uuid.UUID) ([]domain.Named, error)
}

type PostingRepository interface {
	// Create inserts the posting header and all of its lines.
	Create(ctx context.Context, posting *domain.Posting) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Posting, error)
	ListByOperationID(ctx context.Context, oprID domain.Digest) ([]domain.Posting, error)
	// GetLiveByOperationID returns the posting for the operation that has not
	// been discarded, or nil.
	GetLiveByOperationID(ctx context.Context, oprID domain.Digest) (*domain.Posting, error)
	// GetLatestByLedger returns the most recently recorded posting, or nil.
	// Call it after LedgerRepository.Lock inside a transaction.
	GetLatestByLedger(ctx context.Context, ledgerID uuid.UUID) (*domain.Posting, error)
	ListByLedger(ctx context.Context, ledgerID uuid.UUID) ([]domain.Posting, error)
	// MarkDiscarded records that discardingID superseded the posting and stamps
	// its lines as discarded.
	MarkDiscarded(ctx context.Context, id, discardingID uuid.UUID, at time.Time) error
}

type PostingLineRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PostingLine, error)
	GetByIDAndAccount(ctx context.Context, id, accountID uuid.UUID) (*domain.PostingLine, error)
	// ListByAccountBetween returns lines with from < posting time <= to,
	// oldest first.
	ListByAccountBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time, excludeDiscarded bool) ([]domain.PostingLine, error)
	// ListByAccountUpTo returns lines with posting time <= refTime, oldest first.
	ListByAccountUpTo(ctx context.Context, accountID uuid.UUID, refTime time.Time, excludeDiscarded bool) ([]domain.PostingLine, error)
	// ListLiveByAccountPage is one page of the live lines ListByAccountBetween
	// returns, together with the number of lines across all pages.
	ListLiveByAccountPage(ctx context.Context, accountID uuid.UUID, from, to time.Time, page domain.PageRequest) ([]domain.PostingLine, int64, error)
}

type PostingTraceRepository interface {
	Create(ctx context.Context, trace *domain.PostingTrace) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PostingTrace, error)
}

type AccountStmtRepository interface {
	Create(ctx context.Context, stmt *domain.AccountStmt) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AccountStmt, error)
	// GetLatestClosedBefore returns the closed statement with the greatest
	// posting time strictly before refTime (ties by sequence number), or nil.
	GetLatestClosedBefore(ctx context.Context, accountID uuid.UUID, refTime time.Time) (*domain.AccountStmt, error)
	// GetFirstClosedAtOrAfter returns a closed statement with posting time at or
	// after refTime, or nil.
	GetFirstClosedAtOrAfter(ctx context.Context, accountID uuid.UUID, refTime time.Time) (*domain.AccountStmt, error)
	// Close flips a simulated statement to closed and attaches the closing
	// posting. It returns domain.ErrStatementAlreadyClosed when no simulated
	// statement with that id exists.
	Close(ctx context.Context, id, postingID uuid.UUID) error
}

// Repositories bundles one implementation of every repository, either bound
// to the connection pool or to a single transaction.
type Repositories struct {
	ChartOfAccounts ChartOfAccountRepository
	Ledgers         LedgerRepository
	LedgerAccounts  LedgerAccountRepository
	Named           NamedRepository
	Postings        PostingRepository
	PostingLines    PostingLineRepository
	PostingTraces   PostingTraceRepository
	Statements      AccountStmtRepository
}

// Transactor runs fn with repositories bound to one transaction. It commits
// when fn returns nil and rolls back otherwise, so a failed or cancelled unit
// leaves no rows changed.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}
