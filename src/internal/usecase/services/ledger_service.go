package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/codexac/coin-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/codexac/coin-ledger/src/internal/logger"
	"github.com/shopspring/decimal"
)

type operationState string

const (
	stateValidating operationState = "validating"
	stateResolving  operationState = "resolving"
	stateChecking   operationState = "checking"
	stateApplying   operationState = "applying"
	stateAppending  operationState = "appending"
	stateCommitted  operationState = "committed"
)

const unknownOrigin = "unknown"

type LedgerSettings struct {
	FallbackAddress    string
	MiningReward       decimal.Decimal
	MiningCooldown     time.Duration
	TransferFeeRate    decimal.Decimal
	DailyTransferQuota int
	// Location defines calendar days for the transfer quota and stake accrual.
	Location *time.Location
	Now      func() time.Time
}

// LedgerService is the transaction coordinator. Every balance change goes
// through one of its operations, each applied in a single store transaction
// together with the ledger entry it produces.
type LedgerService struct {
	store     repo_interfaces.LedgerStore
	publisher repo_interfaces.EventPublisher
	hashes    *HashGenerator
	limiter   *RateLimiter
	resolver  *AddressResolver
	settings  LedgerSettings
	now       func() time.Time
}

func NewLedgerService(
	store repo_interfaces.LedgerStore,
	publisher repo_interfaces.EventPublisher,
	settings LedgerSettings,
) *LedgerService {
	now := settings.Now
	if now == nil {
		now = time.Now
	}
	if settings.Location == nil {
		settings.Location = time.Local
	}

	return &LedgerService{
		store:     store,
		publisher: publisher,
		hashes:    NewHashGenerator(now),
		limiter:   NewRateLimiter(settings.DailyTransferQuota, settings.Location),
		resolver:  NewAddressResolver(settings.FallbackAddress),
		settings:  settings,
		now:       now,
	}
}

func (s *LedgerService) Transfer(ctx context.Context, cmd domain.TransferCommand) (domain.TransferResult, error) {
	fromAddress := strings.TrimSpace(cmd.FromAddress)
	toToken := strings.TrimSpace(cmd.ToToken)
	fields := logger.Fields{
		"fromAddress": fromAddress,
		"toToken":     toToken,
		"amount":      cmd.Amount,
	}
	logger.Info("ledger service transfer request", fields)

	state := stateValidating
	if err := validateTransfer(fromAddress, toToken, cmd.Amount); err != nil {
		return domain.TransferResult{}, s.abort("transfer", state, err, fields)
	}

	token := domain.ParseRecipientToken(toToken)
	fee := cmd.Amount.Mul(s.settings.TransferFeeRate)
	totalDebit := cmd.Amount.Add(fee)

	var result domain.TransferResult
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, tx repo_interfaces.LedgerTx) error {
		state = stateResolving
		sender, err := tx.AccountByAddress(ctx, fromAddress)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return domain.ErrSenderNotFound
			}
			return err
		}

		resolution, err := s.resolver.Resolve(ctx, tx, token, sender.UID)
		if err != nil {
			return err
		}

		state = stateChecking
		locked, err := tx.LockAccounts(ctx, sender.UID, resolution.Account.UID)
		if err != nil {
			return err
		}
		sender = locked[sender.UID]
		recipient := locked[resolution.Account.UID]

		if sender.Balance.LessThan(totalDebit) {
			return domain.ErrInsufficientBalance
		}
		if !sender.IsVerified {
			return domain.ErrNotVerified
		}

		now := s.now()
		allowed, count, err := s.limiter.Allow(ctx, tx, sender.Address, now)
		if err != nil {
			return err
		}
		if !allowed {
			logger.Warn("ledger service transfer quota reached", logger.Fields{
				"fromAddress": sender.Address,
				"count":       count,
				"quota":       s.limiter.Quota(),
			})
			return domain.ErrDailyLimitExceeded
		}

		state = stateApplying
		latest, err := tx.LatestBlockNumber(ctx)
		if err != nil {
			return err
		}

		senderBalance := sender.Balance.Sub(totalDebit)
		if err := tx.UpdateBalance(ctx, sender.UID, senderBalance); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, recipient.UID, recipient.Balance.Add(cmd.Amount)); err != nil {
			return err
		}

		state = stateAppending
		hash, err := s.hashes.Generate(ctx, tx, sender.Address, token.Raw, totalDebit)
		if err != nil {
			return err
		}

		entry, err := tx.AppendEntry(ctx, domain.LedgerEntry{
			Kind:            domain.EntryKindTransfer,
			From:            sender.Address,
			To:              token.Raw,
			Amount:          cmd.Amount,
			Fee:             fee,
			BlockNumber:     latest + 1,
			PreviousBlock:   latest,
			TransactionHash: hash,
			CreatedAt:       now,
		})
		if err != nil {
			return err
		}

		result = domain.TransferResult{
			Entry:         entry,
			WasRedirected: resolution.WasRedirected,
			DeliveredTo:   resolution.DeliveredTo,
			SenderBalance: senderBalance,
		}
		return nil
	})
	if err != nil {
		return domain.TransferResult{}, s.abort("transfer", state, err, fields)
	}

	state = stateCommitted
	s.publish(ctx, result.Entry)

	logger.Info("ledger service transfer committed", logger.Fields{
		"state":           state,
		"blockNumber":     result.Entry.BlockNumber,
		"transactionHash": result.Entry.TransactionHash,
		"wasRedirected":   result.WasRedirected,
		"deliveredTo":     result.DeliveredTo,
	})
	return result, nil
}

func (s *LedgerService) Mine(ctx context.Context, cmd domain.MineCommand) (domain.MineResult, error) {
	fields := logger.Fields{
		"accountUid": cmd.AccountUID,
		"originHint": cmd.OriginHint,
	}
	logger.Info("ledger service mine request", fields)

	state := stateValidating
	if cmd.AccountUID <= 0 {
		return domain.MineResult{}, s.abort("mine", state, domain.ValidationError("accountUid is required"), fields)
	}

	origin := strings.TrimSpace(cmd.OriginHint)
	if origin == "" {
		origin = unknownOrigin
	}
	reward := s.settings.MiningReward

	var result domain.MineResult
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, tx repo_interfaces.LedgerTx) error {
		state = stateResolving
		locked, err := tx.LockAccounts(ctx, cmd.AccountUID)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return domain.ErrAccountNotFound
			}
			return err
		}
		account := locked[cmd.AccountUID]

		state = stateChecking
		now := s.now()
		if account.LastMiningTime != nil {
			next := account.LastMiningTime.Add(s.settings.MiningCooldown)
			if now.Before(next) {
				return &domain.CooldownError{NextAvailableAt: next, Remaining: next.Sub(now)}
			}
		}

		state = stateApplying
		latest, err := tx.LatestBlockNumber(ctx)
		if err != nil {
			return err
		}

		balance := account.Balance.Add(reward)
		if err := tx.UpdateBalance(ctx, account.UID, balance); err != nil {
			return err
		}
		if err := tx.SetMiningState(ctx, account.UID, now, origin); err != nil {
			return err
		}
		if err := tx.InsertAddressHistory(ctx, domain.AddressHistory{
			AccountUID: account.UID,
			IPAddress:  origin,
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		state = stateAppending
		// Mining entries name the miner by UID.
		minerID := strconv.FormatInt(account.UID, 10)
		entry, err := s.appendSystemEntry(ctx, tx, domain.EntryKindMining, domain.SystemAddress, minerID, reward, latest, now)
		if err != nil {
			return err
		}

		result = domain.MineResult{
			Entry:                 entry,
			MinedCoins:            reward,
			Balance:               balance,
			LastMiningTime:        now,
			LastIPAddress:         origin,
			NextMiningAvailableAt: now.Add(s.settings.MiningCooldown),
		}
		return nil
	})
	if err != nil {
		return domain.MineResult{}, s.abort("mine", state, err, fields)
	}

	s.publish(ctx, result.Entry)
	logger.Info("ledger service mine committed", logger.Fields{
		"accountUid":  cmd.AccountUID,
		"blockNumber": result.Entry.BlockNumber,
		"balance":     result.Balance,
	})
	return result, nil
}

func (s *LedgerService) OpenStake(ctx context.Context, cmd domain.OpenStakeCommand) (domain.StakeResult, error) {
	fields := logger.Fields{
		"ownerUid":         cmd.OwnerUID,
		"amount":           cmd.Amount,
		"months":           cmd.Months,
		"dailyRatePercent": cmd.DailyRatePercent,
	}
	logger.Info("ledger service open stake request", fields)

	state := stateValidating
	if err := validateStake(cmd); err != nil {
		return domain.StakeResult{}, s.abort("open stake", state, err, fields)
	}

	var result domain.StakeResult
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, tx repo_interfaces.LedgerTx) error {
		state = stateResolving
		locked, err := tx.LockAccounts(ctx, cmd.OwnerUID)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return domain.ErrAccountNotFound
			}
			return err
		}
		owner := locked[cmd.OwnerUID]

		state = stateChecking
		if owner.Balance.LessThan(cmd.Amount) {
			return domain.ErrInsufficientBalance
		}

		state = stateApplying
		now := s.now()
		latest, err := tx.LatestBlockNumber(ctx)
		if err != nil {
			return err
		}

		balance := owner.Balance.Sub(cmd.Amount)
		if err := tx.UpdateBalance(ctx, owner.UID, balance); err != nil {
			return err
		}

		stake, err := tx.CreateStake(ctx, domain.Stake{
			OwnerUID:                 owner.UID,
			Amount:                   cmd.Amount,
			Months:                   cmd.Months,
			DailyInterestRatePercent: cmd.DailyRatePercent,
			StartDate:                now,
			EndDate:                  now.AddDate(0, cmd.Months, 0),
			IsActive:                 true,
			CreatedAt:                now,
		})
		if err != nil {
			return err
		}

		state = stateAppending
		entry, err := s.appendSystemEntry(ctx, tx, domain.EntryKindStakeOpen, owner.Address, domain.StakeAddress, cmd.Amount, latest, now)
		if err != nil {
			return err
		}

		result = domain.StakeResult{Stake: stake, Entry: entry, OwnerBalance: balance}
		return nil
	})
	if err != nil {
		return domain.StakeResult{}, s.abort("open stake", state, err, fields)
	}

	s.publish(ctx, result.Entry)
	logger.Info("ledger service open stake committed", logger.Fields{
		"stakeId":     result.Stake.ID,
		"ownerUid":    result.Stake.OwnerUID,
		"endDate":     result.Stake.EndDate,
		"blockNumber": result.Entry.BlockNumber,
	})
	return result, nil
}

// AccrueStake runs one accrual step for a stake: principal return once the
// stake has matured, otherwise one day of interest. A stake already closed or
// already accrued on the current day is skipped.
func (s *LedgerService) AccrueStake(ctx context.Context, stakeID int64) (domain.StakeOutcome, error) {
	fields := logger.Fields{"stakeId": stakeID}

	var (
		outcome domain.StakeOutcome
		entry   *domain.LedgerEntry
	)
	state := stateResolving
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, tx repo_interfaces.LedgerTx) error {
		state = stateResolving
		entry = nil

		stake, err := tx.LockStake(ctx, stakeID)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return domain.ErrStakeNotFound
			}
			return err
		}

		state = stateChecking
		now := s.now()
		if !stake.IsActive || (stake.LastAccruedAt != nil && s.sameDay(*stake.LastAccruedAt, now)) {
			outcome = domain.StakeOutcomeSkipped
			return nil
		}

		locked, err := tx.LockAccounts(ctx, stake.OwnerUID)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return domain.ErrAccountNotFound
			}
			return err
		}
		owner := locked[stake.OwnerUID]

		state = stateApplying
		latest, err := tx.LatestBlockNumber(ctx)
		if err != nil {
			return err
		}

		kind := domain.EntryKindStakeInterest
		from := domain.SystemAddress
		credit := stake.DailyInterest()
		stillActive := true
		outcome = domain.StakeOutcomeAccrued
		if stake.Matured(now) {
			kind = domain.EntryKindStakeReturn
			from = domain.StakeAddress
			credit = stake.Amount
			stillActive = false
			outcome = domain.StakeOutcomeClosed
		}

		if err := tx.UpdateBalance(ctx, owner.UID, owner.Balance.Add(credit)); err != nil {
			return err
		}
		if err := tx.UpdateStakeAccrual(ctx, stake.ID, now, stillActive); err != nil {
			return err
		}

		state = stateAppending
		appended, err := s.appendSystemEntry(ctx, tx, kind, from, owner.Address, credit, latest, now)
		if err != nil {
			return err
		}
		entry = &appended
		return nil
	})
	if err != nil {
		return "", s.abort("accrue stake", state, err, fields)
	}

	if entry != nil {
		s.publish(ctx, *entry)
	}
	logger.Info("ledger service accrue stake done", logger.Fields{
		"stakeId": stakeID,
		"outcome": outcome,
	})
	return outcome, nil
}

func (s *LedgerService) appendSystemEntry(
	ctx context.Context,
	tx repo_interfaces.LedgerTx,
	kind domain.EntryKind,
	from string,
	to string,
	amount decimal.Decimal,
	latest int64,
	now time.Time,
) (domain.LedgerEntry, error) {
	hash, err := s.hashes.Generate(ctx, tx, from, to, amount)
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	return tx.AppendEntry(ctx, domain.LedgerEntry{
		Kind:            kind,
		From:            from,
		To:              to,
		Amount:          amount,
		Fee:             decimal.Zero,
		BlockNumber:     latest + 1,
		PreviousBlock:   latest,
		TransactionHash: hash,
		CreatedAt:       now,
	})
}

func (s *LedgerService) publish(ctx context.Context, entry domain.LedgerEntry) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEntry(ctx, entry); err != nil {
		logger.Error("ledger service publish entry failed", err, logger.Fields{
			"blockNumber":     entry.BlockNumber,
			"transactionHash": entry.TransactionHash,
		})
	}
}

// abort logs the failed operation and translates anything that is not a
// ledger rule violation into ErrStoreUnavailable.
func (s *LedgerService) abort(operation string, state operationState, err error, fields logger.Fields) error {
	logFields := logger.Fields{
		"operation": operation,
		"state":     state,
	}
	for k, v := range fields {
		logFields[k] = v
	}

	if isLedgerRuleError(err) {
		logFields["reason"] = err.Error()
		logger.Warn("ledger service operation rejected", logFields)
		return err
	}

	logger.Error("ledger service operation aborted", err, logFields)
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, operation, err)
}

func (s *LedgerService) sameDay(a time.Time, b time.Time) bool {
	ay, am, ad := a.In(s.settings.Location).Date()
	by, bm, bd := b.In(s.settings.Location).Date()
	return ay == by && am == bm && ad == bd
}

var ledgerRuleErrors = []error{
	domain.ErrValidation,
	domain.ErrSenderNotFound,
	domain.ErrAccountNotFound,
	domain.ErrSameAccount,
	domain.ErrInsufficientBalance,
	domain.ErrNotVerified,
	domain.ErrDailyLimitExceeded,
	domain.ErrFallbackMissing,
	domain.ErrCooldownActive,
	domain.ErrStakeNotFound,
}

func isLedgerRuleError(err error) bool {
	for _, target := range ledgerRuleErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validateTransfer(fromAddress string, toToken string, amount decimal.Decimal) error {
	var errs []string

	if fromAddress == "" {
		errs = append(errs, "fromAddress is required")
	}
	if toToken == "" {
		errs = append(errs, "toAddress is required")
	}
	if fromAddress != "" && fromAddress == toToken {
		errs = append(errs, "fromAddress and toAddress must differ")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "amount must be greater than zero")
	} else if domain.ExceedsAmountScale(amount) {
		errs = append(errs, "amount must have at most 10 decimal places")
	}
	if len(errs) > 0 {
		return domain.ValidationError("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStake(cmd domain.OpenStakeCommand) error {
	var errs []string

	if cmd.OwnerUID <= 0 {
		errs = append(errs, "uid is required")
	}
	if cmd.Amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "amount must be greater than zero")
	} else if domain.ExceedsAmountScale(cmd.Amount) {
		errs = append(errs, "amount must have at most 10 decimal places")
	}
	if cmd.Months <= 0 {
		errs = append(errs, "months must be greater than zero")
	}
	if cmd.DailyRatePercent.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "interestRate must be greater than zero")
	}

	if len(errs) > 0 {
		return domain.ValidationError("%s", strings.Join(errs, "; "))
	}
	return nil
}
