package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/codexac/coin-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/codexac/coin-ledger/src/internal/logger"
	"github.com/lib/pq"
)

const (
	// chainLockKey guards block-number assignment across every writer.
	chainLockKey = int64(0x6c6564676572)

	maxTxAttempts = 3

	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) Close() error {
	return s.db.Close()
}

// WithinTransaction runs fn in one database transaction and retries the whole
// scope when PostgreSQL reports a serialization failure, a deadlock or a
// unique violation on the chain.
func (s *LedgerStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx repo_interfaces.LedgerTx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runOnce(ctx, fn)
		if err == nil || !isRetryable(err) || ctx.Err() != nil {
			return err
		}
		logger.Info("ledger store retrying transaction", logger.Fields{
			"attempt": attempt,
			"reason":  err.Error(),
		})
	}
	return err
}

func (s *LedgerStore) runOnce(ctx context.Context, fn func(ctx context.Context, tx repo_interfaces.LedgerTx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("ledger store begin tx failed", err, nil)
		return fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, &ledgerTx{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		logger.Error("ledger store commit tx failed", err, nil)
		return fmt.Errorf("commit ledger transaction: %w", err)
	}
	return nil
}

func (s *LedgerStore) CreateAccount(ctx context.Context, account domain.Account) (domain.Account, error) {
	logger.Info("ledger store create account", logger.Fields{
		"uid":     account.UID,
		"address": account.Address,
	})

	const query = `
INSERT INTO accounts (uid, address, username, email, password_hash, balance, is_verified, last_ip_address)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at`

	var createdAt time.Time
	if err := s.db.QueryRowContext(ctx, query,
		account.UID,
		account.Address,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.Balance,
		account.IsVerified,
		account.LastIPAddress,
	).Scan(&createdAt); err != nil {
		if hasSQLState(err, sqlStateUniqueViolation) {
			return domain.Account{}, domain.ErrDuplicateAccount
		}
		logger.Error("ledger store create account failed", err, logger.Fields{"uid": account.UID})
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	account.CreatedAt = createdAt
	logger.Info("ledger store create account success", logger.Fields{"uid": account.UID})
	return account, nil
}

func (s *LedgerStore) GetAccountByUID(ctx context.Context, uid int64) (domain.Account, error) {
	return queryAccount(ctx, s.db, selectAccount+` WHERE uid = $1`, uid)
}

func (s *LedgerStore) GetAccountByAddress(ctx context.Context, address string) (domain.Account, error) {
	return queryAccount(ctx, s.db, selectAccount+` WHERE address = $1`, address)
}

func (s *LedgerStore) AccountExists(ctx context.Context, username string, email string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1 OR email = $2)`,
		username, email,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check account exists: %w", err)
	}
	return exists, nil
}

func (s *LedgerStore) MarkVerified(ctx context.Context, uid int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE accounts SET is_verified = TRUE WHERE uid = $1`, uid)
	if err != nil {
		logger.Error("ledger store mark verified failed", err, logger.Fields{"uid": uid})
		return fmt.Errorf("mark account verified: %w", err)
	}
	return requireRows(result)
}

func (s *LedgerStore) GetEntryByHash(ctx context.Context, hash string) (domain.LedgerEntry, error) {
	entry, err := scanEntry(s.db.QueryRowContext(ctx, selectEntry+` WHERE transaction_hash = $1`, hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LedgerEntry{}, domain.ErrRecordNotFound
		}
		return domain.LedgerEntry{}, fmt.Errorf("get entry by hash: %w", err)
	}
	return entry, nil
}

func (s *LedgerStore) ListEntriesByAddress(ctx context.Context, address string, limit int) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		selectEntry+` WHERE from_address = $1 OR to_address = $1 ORDER BY block_number DESC LIMIT $2`,
		address, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries by address: %w", err)
	}
	return collectEntries(rows)
}

func (s *LedgerStore) ListEntries(ctx context.Context, afterBlock int64, limit int) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		selectEntry+` WHERE block_number > $1 ORDER BY block_number ASC LIMIT $2`,
		afterBlock, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return collectEntries(rows)
}

func (s *LedgerStore) ChainHead(ctx context.Context) (int64, error) {
	var head sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(block_number) FROM ledger_entries`).Scan(&head); err != nil {
		return 0, fmt.Errorf("chain head: %w", err)
	}
	return head.Int64, nil
}

func (s *LedgerStore) TopSenders(ctx context.Context, limit int) ([]domain.SenderTotal, error) {
	const query = `
SELECT from_address, SUM(amount) AS total_sent, COUNT(*) AS tx_count
FROM ledger_entries
WHERE kind = $1
GROUP BY from_address
ORDER BY total_sent DESC, from_address ASC
LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, string(domain.EntryKindTransfer), limit)
	if err != nil {
		return nil, fmt.Errorf("top senders: %w", err)
	}
	defer rows.Close()

	var out []domain.SenderTotal
	for rows.Next() {
		var total domain.SenderTotal
		if err := rows.Scan(&total.Address, &total.TotalSent, &total.TxCount); err != nil {
			return nil, fmt.Errorf("scan sender total: %w", err)
		}
		out = append(out, total)
	}
	return out, rows.Err()
}

func (s *LedgerStore) ListActiveStakeIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM stakes WHERE is_active ORDER BY id`)
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

func (s *LedgerStore) ListStakesByOwner(ctx context.Context, ownerUID int64) ([]domain.Stake, error) {
	rows, err := s.db.QueryContext(ctx, selectStake+` WHERE owner_uid = $1 ORDER BY id`, ownerUID)
	if err != nil {
		return nil, fmt.Errorf("list stakes by owner: %w", err)
	}
	defer rows.Close()

	var stakes []domain.Stake
	for rows.Next() {
		stake, err := scanStake(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stake: %w", err)
		}
		stakes = append(stakes, stake)
	}
	return stakes, rows.Err()
}

func isRetryable(err error) bool {
	return hasSQLState(err, sqlStateSerializationFailure) ||
		hasSQLState(err, sqlStateDeadlockDetected) ||
		hasSQLState(err, sqlStateUniqueViolation)
}

func hasSQLState(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
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

var _ repo_interfaces.LedgerStore = (*LedgerStore)(nil)
