package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/codexac/coin-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type ledgerTx struct {
	tx *sql.Tx
}

func (t *ledgerTx) AccountByUID(ctx context.Context, uid int64) (domain.Account, error) {
	return queryAccount(ctx, t.tx, selectAccount+` WHERE uid = $1`, uid)
}

func (t *ledgerTx) AccountByAddress(ctx context.Context, address string) (domain.Account, error) {
	return queryAccount(ctx, t.tx, selectAccount+` WHERE address = $1`, address)
}

func (t *ledgerTx) HashExists(ctx context.Context, hash string) (bool, error) {
	var exists bool
	if err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE transaction_hash = $1)`, hash,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check hash exists: %w", err)
	}
	return exists, nil
}

func (t *ledgerTx) CountTransfersSince(ctx context.Context, address string, since time.Time) (int, error) {
	var count int
	if err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE from_address = $1 AND kind = $2 AND created_at >= $3`,
		address, string(domain.EntryKindTransfer), since,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transfers: %w", err)
	}
	return count, nil
}

func (t *ledgerTx) LockAccounts(ctx context.Context, uids ...int64) (map[int64]domain.Account, error) {
	ordered := uniqueSorted(uids)

	rows, err := t.tx.QueryContext(ctx,
		selectAccount+` WHERE uid = ANY($1) ORDER BY uid FOR UPDATE`,
		pq.Array(ordered),
	)
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	defer rows.Close()

	accounts := make(map[int64]domain.Account, len(ordered))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan locked account: %w", err)
		}
		accounts[account.UID] = account
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	if len(accounts) != len(ordered) {
		return nil, domain.ErrRecordNotFound
	}
	return accounts, nil
}

func (t *ledgerTx) UpdateBalance(ctx context.Context, uid int64, balance decimal.Decimal) error {
	return execRequiredRows(ctx, t.tx, `UPDATE accounts SET balance = $2 WHERE uid = $1`, uid, balance)
}

func (t *ledgerTx) SetMiningState(ctx context.Context, uid int64, minedAt time.Time, ipAddress string) error {
	return execRequiredRows(ctx, t.tx,
		`UPDATE accounts SET last_mining_time = $2, last_ip_address = $3 WHERE uid = $1`,
		uid, minedAt, ipAddress,
	)
}

func (t *ledgerTx) InsertAddressHistory(ctx context.Context, record domain.AddressHistory) error {
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO address_history (account_uid, ip_address, created_at) VALUES ($1, $2, $3)`,
		record.AccountUID, record.IPAddress, record.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert address history: %w", err)
	}
	return nil
}

// LatestBlockNumber takes the transaction-scoped chain lock before reading the
// tip, so the block it returns stays the tip until commit.
func (t *ledgerTx) LatestBlockNumber(ctx context.Context) (int64, error) {
	if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, chainLockKey); err != nil {
		return 0, fmt.Errorf("acquire chain lock: %w", err)
	}

	var latest sql.NullInt64
	if err := t.tx.QueryRowContext(ctx, `SELECT MAX(block_number) FROM ledger_entries`).Scan(&latest); err != nil {
		return 0, fmt.Errorf("latest block number: %w", err)
	}
	return latest.Int64, nil
}

func (t *ledgerTx) AppendEntry(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	const query = `
INSERT INTO ledger_entries (kind, from_address, to_address, amount, fee, block_number, previous_block, transaction_hash, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`

	if err := t.tx.QueryRowContext(ctx, query,
		string(entry.Kind),
		entry.From,
		entry.To,
		entry.Amount,
		entry.Fee,
		entry.BlockNumber,
		entry.PreviousBlock,
		entry.TransactionHash,
		entry.CreatedAt,
	).Scan(&entry.ID); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("append entry: %w", err)
	}
	return entry, nil
}

func (t *ledgerTx) CreateStake(ctx context.Context, stake domain.Stake) (domain.Stake, error) {
	const query = `
INSERT INTO stakes (owner_uid, amount, months, daily_interest_rate, start_date, end_date, is_active, last_accrued_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`

	if err := t.tx.QueryRowContext(ctx, query,
		stake.OwnerUID,
		stake.Amount,
		stake.Months,
		stake.DailyInterestRatePercent,
		stake.StartDate,
		stake.EndDate,
		stake.IsActive,
		stake.LastAccruedAt,
		stake.CreatedAt,
	).Scan(&stake.ID); err != nil {
		return domain.Stake{}, fmt.Errorf("create stake: %w", err)
	}
	return stake, nil
}

func (t *ledgerTx) LockStake(ctx context.Context, id int64) (domain.Stake, error) {
	stake, err := scanStake(t.tx.QueryRowContext(ctx, selectStake+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Stake{}, domain.ErrRecordNotFound
		}
		return domain.Stake{}, fmt.Errorf("lock stake: %w", err)
	}
	return stake, nil
}

func (t *ledgerTx) UpdateStakeAccrual(ctx context.Context, id int64, accruedAt time.Time, isActive bool) error {
	return execRequiredRows(ctx, t.tx,
		`UPDATE stakes SET last_accrued_at = $2, is_active = $3 WHERE id = $1`,
		id, accruedAt, isActive,
	)
}

func execRequiredRows(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("execute ledger statement: %w", err)
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
