package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"postings-ledger/internal/domain"
)

// SystemUser attributes records the ledger creates on its own behalf.
const SystemUser = "system"

type ChartOfAccountService interface {
	NewChartOfAccount(ctx context.Context, user string, coa *domain.ChartOfAccount, names []domain.Named) (*domain.ChartOfAccount, error)
	FindChartOfAccountByID(ctx context.Context, id uuid.UUID) (*domain.ChartOfAccount, error)
	FindChartOfAccountByName(ctx context.Context, name string) (*domain.ChartOfAccount, error)
}

type LedgerService interface {
	NewLedger(ctx context.Context, user string, ledger *domain.Ledger, names []domain.Named) (*domain.Ledger, error)
	FindLedgerByID(ctx context.Context, id uuid.UUID) (*domain.Ledger, error)
	FindLedgerByName(ctx context.Context, coaID uuid.UUID, name string) (*domain.Ledger, error)
	ListLedgers(ctx context.Context) ([]domain.Ledger, error)

	NewLedgerAccount(ctx context.Context, user string, in *domain.NewLedgerAccount) (*domain.LedgerAccount, error)
	FindLedgerAccountByID(ctx context.Context, id uuid.UUID) (*domain.LedgerAccount, error)
	FindLedgerAccount(ctx context.Context, ledgerID uuid.UUID, name string) (*domain.LedgerAccount, error)
	LedgerAccountExists(ctx context.Context, id uuid.UUID) (bool, error)
	ListLedgerAccounts(ctx context.Context, ledgerID uuid.UUID) ([]domain.LedgerAccount, error)
	// ResolveParent loads the parent of account, or returns nil for a root.
	ResolveParent(ctx context.Context, account *domain.LedgerAccount) (*domain.LedgerAccount, error)
}

type NamedService interface {
	FindByContainer(ctx context.Context, container uuid.UUID) ([]domain.Named, error)
	FindByNameAndType(ctx context.Context, name string, containerType domain.ContainerType) ([]domain.Named, error)
	FindByNameTypeAndContext(ctx context.Context, name string, containerType domain.ContainerType, context uuid.UUID) ([]domain.Named, error)
	Upsert(ctx context.Context, user string, named *domain.Named) (*domain.Named, error)
}

type PostingService interface {
	NewPosting(ctx context.Context, posting *domain.Posting) (*domain.Posting, error)
	FindPostingByID(ctx context.Context, id uuid.UUID) (*domain.Posting, error)
	FindPostingsByOperationID(ctx context.Context, oprID domain.Digest) ([]domain.Posting, error)
	FindPostingLines(ctx context.Context, accountID uuid.UUID, from, to time.Time, page domain.PageRequest) (*domain.PostingLinePage, error)
	FindPostingLineByID(ctx context.Context, accountID, lineID uuid.UUID) (*domain.PostingLine, error)
	VerifyChain(ctx context.Context, ledgerID uuid.UUID) (*domain.ChainReport, error)
}

type AccountStmtService interface {
	ReadStmt(ctx context.Context, accountID uuid.UUID, refTime time.Time) (*domain.AccountStmt, error)
	CreateStmt(ctx context.Context, accountID uuid.UUID, refTime time.Time) (*domain.AccountStmt, error)
	CloseStmt(ctx context.Context, stmtID uuid.UUID) (*domain.AccountStmt, error)
	FindStmtByID(ctx context.Context, id uuid.UUID) (*domain.AccountStmt, error)
}
