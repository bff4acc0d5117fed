package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/codexac/coin-ledger/src/internal/domain"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

const selectAccount = `
SELECT uid, address, username, email, password_hash, balance, is_verified, last_mining_time, last_ip_address, created_at
FROM accounts`

const selectEntry = `
SELECT id, kind, from_address, to_address, amount, fee, block_number, previous_block, transaction_hash, created_at
FROM ledger_entries`

const selectStake = `
SELECT id, owner_uid, amount, months, daily_interest_rate, start_date, end_date, is_active, last_accrued_at, created_at
FROM stakes`

func nowUTC() time.Time {
	return time.Now().UTC()
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullableNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toNanos(*t), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		account   domain.Account
		lastMined sql.NullInt64
		createdAt int64
	)
	if err := row.Scan(
		&account.UID,
		&account.Address,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.Balance,
		&account.IsVerified,
		&lastMined,
		&account.LastIPAddress,
		&createdAt,
	); err != nil {
		return domain.Account{}, err
	}
	account.LastMiningTime = timePtr(lastMined)
	account.CreatedAt = fromNanos(createdAt)
	return account, nil
}

func scanEntry(row rowScanner) (domain.LedgerEntry, error) {
	var (
		entry     domain.LedgerEntry
		kind      string
		createdAt int64
	)
	if err := row.Scan(
		&entry.ID,
		&kind,
		&entry.From,
		&entry.To,
		&entry.Amount,
		&entry.Fee,
		&entry.BlockNumber,
		&entry.PreviousBlock,
		&entry.TransactionHash,
		&createdAt,
	); err != nil {
		return domain.LedgerEntry{}, err
	}
	entry.Kind = domain.EntryKind(kind)
	entry.CreatedAt = fromNanos(createdAt)
	return entry, nil
}

func scanStake(row rowScanner) (domain.Stake, error) {
	var (
		stake       domain.Stake
		start, end  int64
		lastAccrued sql.NullInt64
		createdAt   int64
	)
	if err := row.Scan(
		&stake.ID,
		&stake.OwnerUID,
		&stake.Amount,
		&stake.Months,
		&stake.DailyInterestRatePercent,
		&start,
		&end,
		&stake.IsActive,
		&lastAccrued,
		&createdAt,
	); err != nil {
		return domain.Stake{}, fmt.Errorf("scan stake: %w", err)
	}
	stake.StartDate = fromNanos(start)
	stake.EndDate = fromNanos(end)
	stake.LastAccruedAt = timePtr(lastAccrued)
	stake.CreatedAt = fromNanos(createdAt)
	return stake, nil
}

func collectEntries(rows *sql.Rows) ([]domain.LedgerEntry, error) {
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func accountByUID(ctx context.Context, q querier, uid int64) (domain.Account, error) {
	account, err := scanAccount(q.QueryRowContext(ctx, selectAccount+` WHERE uid = ?`, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrRecordNotFound
		}
		return domain.Account{}, fmt.Errorf("get account by uid: %w", err)
	}
	return account, nil
}

func accountByAddress(ctx context.Context, q querier, address string) (domain.Account, error) {
	account, err := scanAccount(q.QueryRowContext(ctx, selectAccount+` WHERE address = ?`, address))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrRecordNotFound
		}
		return domain.Account{}, fmt.Errorf("get account by address: %w", err)
	}
	return account, nil
}
