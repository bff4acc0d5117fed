package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/codexac/coin-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

type ledgerTx struct {
	q querier
}

func (t *ledgerTx) AccountByUID(ctx context.Context, uid int64) (domain.Account, error) {
	return accountByUID(ctx, t.q, uid)
}

func (t *ledgerTx) AccountByAddress(ctx context.Context, address string) (domain.Account, error) {
	return accountByAddress(ctx, t.q, address)
}

func (t *ledgerTx) HashExists(ctx context.Context, hash string) (bool, error) {
	var exists bool
	if err := t.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE transaction_hash = ?)`, hash,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check hash exists: %w", err)
	}
	return exists, nil
}

func (t *ledgerTx) CountTransfersSince(ctx context.Context, address string, since time.Time) (int, error) {
	var count int
	if err := t.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE from_address = ? AND kind = ? AND created_at >= ?`,
		address, string(domain.EntryKindTransfer), toNanos(since),
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transfers: %w", err)
	}
	return count, nil
}

// LockAccounts reads the accounts in ascending UID order. The single
// connection already holds the write lock for the whole transaction.
func (t *ledgerTx) LockAccounts(ctx context.Context, uids ...int64) (map[int64]domain.Account, error) {
	ordered := uniqueSorted(uids)
	accounts := make(map[int64]domain.Account, len(ordered))
	for _, uid := range ordered {
		account, err := accountByUID(ctx, t.q, uid)
		if err != nil {
			return nil, err
		}
		accounts[uid] = account
	}
	return accounts, nil
}

func (t *ledgerTx) UpdateBalance(ctx context.Context, uid int64, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fmt.Errorf("update balance for %d: negative balance %s", uid, balance)
	}
	result, err := t.q.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE uid = ?`, balance.String(), uid)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return requireRows(result)
}

func (t *ledgerTx) SetMiningState(ctx context.Context, uid int64, minedAt time.Time, ipAddress string) error {
	result, err := t.q.ExecContext(ctx,
		`UPDATE accounts SET last_mining_time = ?, last_ip_address = ? WHERE uid = ?`,
		toNanos(minedAt), ipAddress, uid,
	)
	if err != nil {
		return fmt.Errorf("set mining state: %w", err)
	}
	return requireRows(result)
}

func (t *ledgerTx) InsertAddressHistory(ctx context.Context, record domain.AddressHistory) error {
	if _, err := t.q.ExecContext(ctx,
		`INSERT INTO address_history (account_uid, ip_address, created_at) VALUES (?, ?, ?)`,
		record.AccountUID, record.IPAddress, toNanos(record.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert address history: %w", err)
	}
	return nil
}

func (t *ledgerTx) LatestBlockNumber(ctx context.Context) (int64, error) {
	var latest sql.NullInt64
	if err := t.q.QueryRowContext(ctx, `SELECT MAX(block_number) FROM ledger_entries`).Scan(&latest); err != nil {
		return 0, fmt.Errorf("latest block number: %w", err)
	}
	return latest.Int64, nil
}

func (t *ledgerTx) AppendEntry(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	result, err := t.q.ExecContext(ctx, `
INSERT INTO ledger_entries (kind, from_address, to_address, amount, fee, block_number, previous_block, transaction_hash, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(entry.Kind),
		entry.From,
		entry.To,
		entry.Amount.String(),
		entry.Fee.String(),
		entry.BlockNumber,
		entry.PreviousBlock,
		entry.TransactionHash,
		toNanos(entry.CreatedAt),
	)
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("append entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("read entry id: %w", err)
	}
	entry.ID = id
	return entry, nil
}

func (t *ledgerTx) CreateStake(ctx context.Context, stake domain.Stake) (domain.Stake, error) {
	result, err := t.q.ExecContext(ctx, `
INSERT INTO stakes (owner_uid, amount, months, daily_interest_rate, start_date, end_date, is_active, last_accrued_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stake.OwnerUID,
		stake.Amount.String(),
		stake.Months,
		stake.DailyInterestRatePercent.String(),
		toNanos(stake.StartDate),
		toNanos(stake.EndDate),
		stake.IsActive,
		nullableNanos(stake.LastAccruedAt),
		toNanos(stake.CreatedAt),
	)
	if err != nil {
		return domain.Stake{}, fmt.Errorf("create stake: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return domain.Stake{}, fmt.Errorf("read stake id: %w", err)
	}
	stake.ID = id
	return stake, nil
}

func (t *ledgerTx) LockStake(ctx context.Context, id int64) (domain.Stake, error) {
	stake, err := scanStake(t.q.QueryRowContext(ctx, selectStake+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Stake{}, domain.ErrRecordNotFound
		}
		return domain.Stake{}, err
	}
	return stake, nil
}

func (t *ledgerTx) UpdateStakeAccrual(ctx context.Context, id int64, accruedAt time.Time, isActive bool) error {
	result, err := t.q.ExecContext(ctx,
		`UPDATE stakes SET last_accrued_at = ?, is_active = ? WHERE id = ?`,
		toNanos(accruedAt), isActive, id,
	)
	if err != nil {
		return fmt.Errorf("update stake accrual: %w", err)
	}
	return requireRows(result)
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var _ repo_interfaces.LedgerTx = (*ledgerTx)(nil)
