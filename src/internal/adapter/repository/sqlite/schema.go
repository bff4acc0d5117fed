package sqlite

import (
	"context"
	"fmt"
)

// Times are unix nanoseconds and amounts are decimal text.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		uid INTEGER PRIMARY KEY,
		address TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0' CHECK (CAST(balance AS REAL) >= 0),
		is_verified INTEGER NOT NULL DEFAULT 0,
		last_mining_time INTEGER,
		last_ip_address TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		from_address TEXT NOT NULL,
		to_address TEXT NOT NULL,
		amount TEXT NOT NULL,
		fee TEXT NOT NULL DEFAULT '0',
		block_number INTEGER NOT NULL UNIQUE,
		previous_block INTEGER NOT NULL,
		transaction_hash TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL,
		CHECK (previous_block = block_number - 1)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_sender ON ledger_entries (from_address, kind, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_recipient ON ledger_entries (to_address)`,
	`CREATE TRIGGER IF NOT EXISTS ledger_entries_dense BEFORE INSERT ON ledger_entries
	WHEN NEW.block_number <> COALESCE((SELECT MAX(block_number) FROM ledger_entries), 0) + 1
	BEGIN
		SELECT RAISE(ABORT, 'block number must extend the chain');
	END`,
	`CREATE TRIGGER IF NOT EXISTS ledger_entries_no_update BEFORE UPDATE ON ledger_entries
	BEGIN
		SELECT RAISE(ABORT, 'ledger entries are append-only');
	END`,
	`CREATE TRIGGER IF NOT EXISTS ledger_entries_no_delete BEFORE DELETE ON ledger_entries
	BEGIN
		SELECT RAISE(ABORT, 'ledger entries are append-only');
	END`,
	`CREATE TABLE IF NOT EXISTS address_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_uid INTEGER NOT NULL REFERENCES accounts (uid),
		ip_address TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stakes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_uid INTEGER NOT NULL REFERENCES accounts (uid),
		amount TEXT NOT NULL,
		months INTEGER NOT NULL,
		daily_interest_rate TEXT NOT NULL,
		start_date INTEGER NOT NULL,
		end_date INTEGER NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		last_accrued_at INTEGER,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stakes_active ON stakes (is_active)`,
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
