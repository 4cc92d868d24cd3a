package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/logger"
)

// schema is written for PostgreSQL; columnTypes maps its types for SQLite,
// which keeps amounts as TEXT so no precision is lost.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS chart_of_accounts (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		created TIMESTAMPTZ NOT NULL,
		user_details BYTEA NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ledgers (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		coa_id UUID NOT NULL REFERENCES chart_of_accounts(id),
		created TIMESTAMPTZ NOT NULL,
		user_details BYTEA NOT NULL,
		UNIQUE (coa_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_accounts (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		ledger_id UUID NOT NULL REFERENCES ledgers(id),
		coa_id UUID NOT NULL REFERENCES chart_of_accounts(id),
		parent_id UUID REFERENCES ledger_accounts(id),
		balance_side VARCHAR(8) NOT NULL,
		category VARCHAR(32) NOT NULL,
		created TIMESTAMPTZ NOT NULL,
		user_details BYTEA NOT NULL,
		UNIQUE (ledger_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS named (
		id UUID PRIMARY KEY,
		container UUID NOT NULL,
		context UUID NOT NULL,
		name VARCHAR(255) NOT NULL,
		language CHAR(2) NOT NULL,
		created TIMESTAMPTZ NOT NULL,
		user_details BYTEA NOT NULL,
		short_desc VARCHAR(1024),
		long_desc VARCHAR(2048),
		container_type VARCHAR(32) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_named_container ON named (container)`,
	`CREATE INDEX IF NOT EXISTS idx_named_lookup ON named (name, container_type, context)`,
	`CREATE TABLE IF NOT EXISTS postings (
		id UUID PRIMARY KEY,
		record_user BYTEA NOT NULL,
		record_time TIMESTAMPTZ NOT NULL,
		opr_id BYTEA NOT NULL,
		opr_time TIMESTAMPTZ NOT NULL,
		opr_type BYTEA NOT NULL,
		opr_details BYTEA,
		opr_src BYTEA,
		pst_time TIMESTAMPTZ NOT NULL,
		pst_type VARCHAR(32) NOT NULL,
		pst_status VARCHAR(32) NOT NULL,
		ledger_id UUID NOT NULL REFERENCES ledgers(id),
		value_time TIMESTAMPTZ,
		discarded_id UUID,
		discarded_time TIMESTAMPTZ,
		discarding_id UUID,
		antecedent_id UUID,
		antecedent_hash BYTEA,
		hash BYTEA NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_postings_ledger_record ON postings (ledger_id, record_time, id)`,
	`CREATE INDEX IF NOT EXISTS idx_postings_opr ON postings (opr_id)`,
	`CREATE TABLE IF NOT EXISTS posting_lines (
		id UUID PRIMARY KEY,
		posting_id UUID NOT NULL REFERENCES postings(id),
		account_id UUID NOT NULL REFERENCES ledger_accounts(id),
		debit_amount NUMERIC NOT NULL,
		credit_amount NUMERIC NOT NULL,
		details BYTEA,
		src_account BYTEA,
		base_line UUID,
		sub_opr_src_id BYTEA,
		record_time TIMESTAMPTZ NOT NULL,
		opr_id BYTEA NOT NULL,
		opr_src BYTEA,
		pst_time TIMESTAMPTZ NOT NULL,
		pst_type VARCHAR(32) NOT NULL,
		pst_status VARCHAR(32) NOT NULL,
		hash BYTEA NOT NULL,
		additional_information VARCHAR(1024),
		discarded_time TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posting_lines_posting ON posting_lines (posting_id)`,
	`CREATE INDEX IF NOT EXISTS idx_posting_lines_account ON posting_lines (account_id, pst_time)`,
	`CREATE TABLE IF NOT EXISTS posting_traces (
		id UUID PRIMARY KEY,
		tgt_pst_id UUID NOT NULL,
		src_pst_time TIMESTAMPTZ NOT NULL,
		src_pst_id UUID NOT NULL,
		src_opr_id BYTEA NOT NULL,
		account_id UUID NOT NULL,
		debit_amount NUMERIC NOT NULL,
		credit_amount NUMERIC NOT NULL,
		src_pst_hash BYTEA
	)`,
	`CREATE TABLE IF NOT EXISTS account_stmts (
		id UUID PRIMARY KEY,
		account_id UUID NOT NULL REFERENCES ledger_accounts(id),
		youngest_pst UUID REFERENCES posting_traces(id),
		latest_pst UUID REFERENCES posting_traces(id),
		total_debit NUMERIC NOT NULL,
		total_credit NUMERIC NOT NULL,
		posting_id UUID REFERENCES postings(id),
		pst_time TIMESTAMPTZ NOT NULL,
		stmt_status VARCHAR(16) NOT NULL,
		stmt_seq_nbr INTEGER NOT NULL,
		baseline_id UUID
	)`,
	`CREATE INDEX IF NOT EXISTS idx_account_stmts_closed ON account_stmts (account_id, stmt_status, pst_time)`,
}

var sqliteTypes = strings.NewReplacer(
	"UUID", "TEXT",
	"TIMESTAMPTZ", "TIMESTAMP",
	"BYTEA", "BLOB",
	"NUMERIC", "TEXT",
)

func (d Dialect) ddl(stmt string) string {
	if d == SQLite {
		return sqliteTypes.Replace(stmt)
	}
	return stmt
}

// Migrate creates any missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	logger.EnterMethod("Store.Migrate", "dialect", s.dialect)
	for i, stmt := range schema {
		stmt = s.dialect.ddl(stmt)
		logger.DatabaseCall("migrate", stmt, "step", i+1)
		res, err := s.db.ExecContext(ctx, stmt)
		if err != nil {
			logger.DatabaseResult("migrate", 0, err, "step", i+1)
			err = domain.DbError(fmt.Sprintf("migrate step %d", i+1), err)
			logger.ExitMethodWithError("Store.Migrate", err)
			return err
		}
		rows, _ := res.RowsAffected()
		logger.DatabaseResult("migrate", rows, nil, "step", i+1)
	}
	logger.ExitMethod("Store.Migrate", "statements", len(schema))
	return nil
}
