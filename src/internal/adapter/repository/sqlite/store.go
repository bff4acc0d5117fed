// Package sqlite provides the ledger store backed by an embedded SQLite file.
// Write transactions are serialised through a single connection.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codexac/coin-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/codexac/coin-ledger/src/internal/logger"
	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const maxBusyTimeoutMs = 5000

type Store struct {
	db   *sql.DB
	file string
}

func Open(ctx context.Context, filePath string) (*Store, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.Clean(absPath)))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	for _, pragma := range []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs),
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, file: absPath}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx repo_interfaces.LedgerTx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("sqlite store begin tx failed", err, nil)
		return fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(ctx, &ledgerTx{q: sqlTx}); err != nil {
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		logger.Error("sqlite store commit tx failed", err, nil)
		return fmt.Errorf("commit ledger transaction: %w", err)
	}
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, account domain.Account) (domain.Account, error) {
	logger.Info("sqlite store create account", logger.Fields{
		"uid":     account.UID,
		"address": account.Address,
	})

	if account.CreatedAt.IsZero() {
		account.CreatedAt = nowUTC()
	}

	const query = `
INSERT INTO accounts (uid, address, username, email, password_hash, balance, is_verified, last_ip_address, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, query,
		account.UID,
		account.Address,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.Balance.String(),
		account.IsVerified,
		account.LastIPAddress,
		toNanos(account.CreatedAt),
	); err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, domain.ErrDuplicateAccount
		}
		logger.Error("sqlite store create account failed", err, logger.Fields{"uid": account.UID})
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	return account, nil
}

func (s *Store) GetAccountByUID(ctx context.Context, uid int64) (domain.Account, error) {
	return accountByUID(ctx, s.db, uid)
}

func (s *Store) GetAccountByAddress(ctx context.Context, address string) (domain.Account, error) {
	return accountByAddress(ctx, s.db, address)
}

func (s *Store) AccountExists(ctx context.Context, username string, email string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE username = ? OR email = ?)`,
		username, email,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check account exists: %w", err)
	}
	return exists, nil
}

func (s *Store) MarkVerified(ctx context.Context, uid int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE accounts SET is_verified = 1 WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("mark account verified: %w", err)
	}
	return requireRows(result)
}

func (s *Store) GetEntryByHash(ctx context.Context, hash string) (domain.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx, selectEntry+` WHERE transaction_hash = ?`, hash)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LedgerEntry{}, domain.ErrRecordNotFound
		}
		return domain.LedgerEntry{}, fmt.Errorf("get entry by hash: %w", err)
	}
	return entry, nil
}

func (s *Store) ListEntriesByAddress(ctx context.Context, address string, limit int) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		selectEntry+` WHERE from_address = ? OR to_address = ? ORDER BY block_number DESC LIMIT ?`,
		address, address, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries by address: %w", err)
	}
	return collectEntries(rows)
}

func (s *Store) ListEntries(ctx context.Context, afterBlock int64, limit int) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		selectEntry+` WHERE block_number > ? ORDER BY block_number ASC LIMIT ?`,
		afterBlock, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return collectEntries(rows)
}

func (s *Store) ChainHead(ctx context.Context) (int64, error) {
	var head sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(block_number) FROM ledger_entries`).Scan(&head); err != nil {
		return 0, fmt.Errorf("chain head: %w", err)
	}
	return head.Int64, nil
}

// TopSenders aggregates in Go because amounts are stored as decimal text.
func (s *Store) TopSenders(ctx context.Context, limit int) ([]domain.SenderTotal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_address, amount FROM ledger_entries WHERE kind = ?`,
		string(domain.EntryKindTransfer),
	)
	if err != nil {
		return nil, fmt.Errorf("list transfer amounts: %w", err)
	}
	defer rows.Close()

	totals := map[string]*domain.SenderTotal{}
	for rows.Next() {
		var (
			address string
			amount  decimal.Decimal
		)
		if err := rows.Scan(&address, &amount); err != nil {
			return nil, fmt.Errorf("scan transfer amount: %w", err)
		}
		total, ok := totals[address]
		if !ok {
			total = &domain.SenderTotal{Address: address, TotalSent: decimal.Zero}
			totals[address] = total
		}
		total.TotalSent = total.TotalSent.Add(amount)
		total.TxCount++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.SenderTotal, 0, len(totals))
	for _, total := range totals {
		out = append(out, *total)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSent.Equal(out[j].TotalSent) {
			return out[i].Address < out[j].Address
		}
		return out[i].TotalSent.GreaterThan(out[j].TotalSent)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListActiveStakeIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM stakes WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active stakes: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stake id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ListStakesByOwner(ctx context.Context, ownerUID int64) ([]domain.Stake, error) {
	rows, err := s.db.QueryContext(ctx, selectStake+` WHERE owner_uid = ? ORDER BY id`, ownerUID)
	if err != nil {
		return nil, fmt.Errorf("list stakes by owner: %w", err)
	}
	defer rows.Close()

	var stakes []domain.Stake
	for rows.Next() {
		stake, err := scanStake(rows)
		if err != nil {
			return nil, err
		}
		stakes = append(stakes, stake)
	}
	return stakes, rows.Err()
}

func requireRows(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ repo_interfaces.LedgerStore = (*Store)(nil)
