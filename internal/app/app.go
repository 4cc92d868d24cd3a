// Package app wires configuration, storage and services for the binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"postings-ledger/internal/config"
	"postings-ledger/internal/logger"
	"postings-ledger/internal/repository"
	"postings-ledger/internal/repository/cache"
	"postings-ledger/internal/repository/sqlstore"
	"postings-ledger/internal/service"
)

// App holds the open database and the services built on it.
type App struct {
	DB    *sql.DB
	Store *sqlstore.Store
	Repos repository.Repositories

	ChartOfAccounts service.ChartOfAccountService
	Ledgers         service.LedgerService
	Named           service.NamedService
	Postings        service.PostingService
	Statements      service.AccountStmtService
}

// Open connects to the configured database and builds the services.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	dialect, err := sqlstore.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	logger.Info("Connecting to database...",
		"driver", dialect,
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Database,
		"path", cfg.Database.Path)
	db, err := sqlstore.Open(ctx, dialect, cfg.GetDatabaseConnectionString(), cfg.Database.MaxOpenConns)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		return nil, err
	}
	logger.Info("Database connection established")

	a, err := New(db, dialect, cfg.Cache.ChartOfAccountSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// New builds the services on an open database. Pool reads of charts of
// accounts go through an LRU cache.
func New(db *sql.DB, dialect sqlstore.Dialect, cacheSize int) (*App, error) {
	store := sqlstore.NewStore(db, dialect)

	coas, err := cache.NewChartOfAccountRepository(store.ChartOfAccounts, cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart of account cache: %w", err)
	}
	repos := store.Repositories
	repos.ChartOfAccounts = coas

	return &App{
		DB:              db,
		Store:           store,
		Repos:           repos,
		ChartOfAccounts: service.NewChartOfAccountService(repos, store),
		Ledgers:         service.NewLedgerService(repos, store),
		Named:           service.NewNamedService(repos),
		Postings:        service.NewPostingService(repos, store),
		Statements:      service.NewAccountStmtService(repos, store),
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}
