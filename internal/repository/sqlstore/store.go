// Package sqlstore implements the ledger repositories on database/sql for
// PostgreSQL and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/logger"
	"postings-ledger/internal/repository"
)

// Store bundles repositories bound to the connection pool and opens
// transactions whose repositories are bound to the transaction.
type Store struct {
	db      *sql.DB
	dialect Dialect
	repository.Repositories
}

func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:           db,
		dialect:      dialect,
		Repositories: newRepositories(db, dialect),
	}
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// WithinTx implements repository.Transactor.
func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		err = domain.DbError("begin transaction", err)
		logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return err
	}
	defer tx.Rollback()

	if err := fn(newRepositories(tx, s.dialect)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		err = domain.DbError("commit transaction", err)
		logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return err
	}
	return nil
}

func newRepositories(q querier, d Dialect) repository.Repositories {
	postings := &postingRepository{q: q, d: d}
	traces := &postingTraceRepository{q: q, d: d}
	return repository.Repositories{
		ChartOfAccounts: &chartOfAccountRepository{q: q, d: d},
		Ledgers:         &ledgerRepository{q: q, d: d},
		LedgerAccounts:  &ledgerAccountRepository{q: q, d: d},
		Named:           &namedRepository{q: q, d: d},
		Postings:        postings,
		PostingLines:    &postingLineRepository{q: q, d: d},
		PostingTraces:   traces,
		Statements:      &accountStmtRepository{q: q, d: d, postings: postings, traces: traces},
	}
}

// NewChartOfAccountRepository and the constructors below bind a single
// repository to a connection pool.
func NewChartOfAccountRepository(db *sql.DB, d Dialect) repository.ChartOfAccountRepository {
	return &chartOfAccountRepository{q: db, d: d}
}

func NewLedgerRepository(db *sql.DB, d Dialect) repository.LedgerRepository {
	return &ledgerRepository{q: db, d: d}
}

func NewLedgerAccountRepository(db *sql.DB, d Dialect) repository.LedgerAccountRepository {
	return &ledgerAccountRepository{q: db, d: d}
}

func NewNamedRepository(db *sql.DB, d Dialect) repository.NamedRepository {
	return &namedRepository{q: db, d: d}
}

func NewPostingRepository(db *sql.DB, d Dialect) repository.PostingRepository {
	return &postingRepository{q: db, d: d}
}

func NewPostingLineRepository(db *sql.DB, d Dialect) repository.PostingLineRepository {
	return &postingLineRepository{q: db, d: d}
}

func NewPostingTraceRepository(db *sql.DB, d Dialect) repository.PostingTraceRepository {
	return &postingTraceRepository{q: db, d: d}
}

func NewAccountStmtRepository(db *sql.DB, d Dialect) repository.AccountStmtRepository {
	postings := &postingRepository{q: db, d: d}
	traces := &postingTraceRepository{q: db, d: d}
	return &accountStmtRepository{q: db, d: d, postings: postings, traces: traces}
}

// exitWithError logs a failed repository call. Lookups that match no row are
// expected by callers probing for absence and are logged at debug level.
func exitWithError(method string, err error, args ...any) {
	if errors.Is(err, repository.ErrNotFound) {
		logger.ExitMethodNotFound(method, args...)
		return
	}
	logger.ExitMethodWithError(method, err, args...)
}
