package repo_interfaces

import (
	"context"
	"time"

	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

// LedgerStore owns accounts, the transaction chain and stakes. All balance
// mutation happens inside WithinTransaction.
type LedgerStore interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error

	CreateAccount(ctx context.Context, account domain.Account) (domain.Account, error)
	GetAccountByUID(ctx context.Context, uid int64) (domain.Account, error)
	GetAccountByAddress(ctx context.Context, address string) (domain.Account, error)
	AccountExists(ctx context.Context, username string, email string) (bool, error)
	MarkVerified(ctx context.Context, uid int64) error

	GetEntryByHash(ctx context.Context, hash string) (domain.LedgerEntry, error)
	ListEntriesByAddress(ctx context.Context, address string, limit int) ([]domain.LedgerEntry, error)
	ListEntries(ctx context.Context, afterBlock int64, limit int) ([]domain.LedgerEntry, error)
	// ChainHead returns the highest committed block number, 0 for an empty chain.
	ChainHead(ctx context.Context) (int64, error)
	TopSenders(ctx context.Context, limit int) ([]domain.SenderTotal, error)

	ListActiveStakeIDs(ctx context.Context) ([]int64, error)
	ListStakesByOwner(ctx context.Context, ownerUID int64) ([]domain.Stake, error)

	Close() error
}

// AccountLookup resolves accounts inside an atomic scope.
type AccountLookup interface {
	AccountByUID(ctx context.Context, uid int64) (domain.Account, error)
	AccountByAddress(ctx context.Context, address string) (domain.Account, error)
}

// HashIndex answers whether a transaction hash is already on the chain.
type HashIndex interface {
	HashExists(ctx context.Context, hash string) (bool, error)
}

// TransferCounter counts transfer entries sent by an address since a point in time.
type TransferCounter interface {
	CountTransfersSince(ctx context.Context, address string, since time.Time) (int, error)
}

// LedgerTx is the view of the store inside one atomic scope.
type LedgerTx interface {
	AccountLookup
	HashIndex
	TransferCounter

	// LockAccounts locks the given accounts in ascending UID order and returns their current state.
	LockAccounts(ctx context.Context, uids ...int64) (map[int64]domain.Account, error)
	UpdateBalance(ctx context.Context, uid int64, balance decimal.Decimal) error
	SetMiningState(ctx context.Context, uid int64, minedAt time.Time, ipAddress string) error
	InsertAddressHistory(ctx context.Context, record domain.AddressHistory) error

	LatestBlockNumber(ctx context.Context) (int64, error)
	AppendEntry(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error)

	CreateStake(ctx context.Context, stake domain.Stake) (domain.Stake, error)
	LockStake(ctx context.Context, id int64) (domain.Stake, error)
	UpdateStakeAccrual(ctx context.Context, id int64, accruedAt time.Time, isActive bool) error
}
