package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/codexac/coin-ledger/src/internal/domain"
)

type queryRower interface {
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

func queryAccount(ctx context.Context, q queryRower, query string, arg any) (domain.Account, error) {
	account, err := scanAccount(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrRecordNotFound
		}
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		account   domain.Account
		lastMined sql.NullTime
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
		&account.CreatedAt,
	); err != nil {
		return domain.Account{}, err
	}
	if lastMined.Valid {
		value := lastMined.Time
		account.LastMiningTime = &value
	}
	return account, nil
}

func scanEntry(row rowScanner) (domain.LedgerEntry, error) {
	var (
		entry domain.LedgerEntry
		kind  string
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
		&entry.CreatedAt,
	); err != nil {
		return domain.LedgerEntry{}, err
	}
	entry.Kind = domain.EntryKind(kind)
	return entry, nil
}

func scanStake(row rowScanner) (domain.Stake, error) {
	var (
		stake       domain.Stake
		lastAccrued sql.NullTime
	)
	if err := row.Scan(
		&stake.ID,
		&stake.OwnerUID,
		&stake.Amount,
		&stake.Months,
		&stake.DailyInterestRatePercent,
		&stake.StartDate,
		&stake.EndDate,
		&stake.IsActive,
		&lastAccrued,
		&stake.CreatedAt,
	); err != nil {
		return domain.Stake{}, err
	}
	if lastAccrued.Valid {
		value := lastAccrued.Time
		stake.LastAccruedAt = &value
	}
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
