package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/codexac/coin-ledger/src/internal/adapter/http/models"
	"github.com/codexac/coin-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/codexac/coin-ledger/src/internal/commons"
	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/codexac/coin-ledger/src/internal/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const maxUIDAttempts = 5

type AccountService struct {
	store repo_interfaces.LedgerStore
}

func NewAccountService(store repo_interfaces.LedgerStore) *AccountService {
	return &AccountService{store: store}
}

func (s *AccountService) Signup(ctx context.Context, req models.SignupRequest) (commons.Response[models.AccountResponse], error) {
	logger.Info("account service signup request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("account service signup validation failed", err, nil)
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), domain.ValidationError("%s", err.Error())
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.store.AccountExists(ctx, username, email)
	if err != nil {
		logger.Error("account service signup existing account check failed", err, logger.Fields{
			"username": username,
		})
		return commons.ErrorResponse[models.AccountResponse]("failed to create account", "Unable to create account right now"), err
	}
	if exists {
		err := domain.ValidationError("email or username already registered")
		return commons.ErrorResponse[models.AccountResponse]("validation failed", "Email or username already registered"), err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("account service signup hash password failed", err, nil)
		return commons.ErrorResponse[models.AccountResponse]("failed to create account", "failed to hash password"), err
	}

	var created domain.Account
	for attempt := 1; attempt <= maxUIDAttempts; attempt++ {
		uid, err := generateUID()
		if err != nil {
			return commons.ErrorResponse[models.AccountResponse]("failed to create account", "Unable to create account right now"), err
		}
		address, err := generateAddress()
		if err != nil {
			return commons.ErrorResponse[models.AccountResponse]("failed to create account", "Unable to create account right now"), err
		}

		created, err = s.store.CreateAccount(ctx, domain.Account{
			UID:          uid,
			Address:      address,
			Username:     username,
			Email:        email,
			PasswordHash: string(hashed),
			Balance:      decimal.Zero,
		})
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrDuplicateAccount) || attempt == maxUIDAttempts {
			logger.Error("account service signup create failed", err, logger.Fields{
				"username": username,
				"attempt":  attempt,
			})
			return commons.ErrorResponse[models.AccountResponse]("failed to create account", "Unable to create account right now"), err
		}
	}

	logger.Info("account service signup success", logger.Fields{
		"uid":     created.UID,
		"address": created.Address,
	})
	return commons.SuccessResponse("User registered successfully", models.NewAccountResponse(created)), nil
}

func (s *AccountService) GetAccount(ctx context.Context, uid string) (commons.Response[models.AccountResponse], error) {
	logger.Info("account service get account request", logger.Fields{
		"uid": uid,
	})

	parsed, err := strconv.ParseInt(strings.TrimSpace(uid), 10, 64)
	if err != nil || parsed <= 0 {
		err := domain.ValidationError("uid must be numeric")
		return commons.ErrorResponse[models.AccountResponse]("validation failed", "uid must be numeric"), err
	}

	account, err := s.store.GetAccountByUID(ctx, parsed)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.AccountResponse]("User not found"), domain.ErrAccountNotFound
		}
		logger.Error("account service get account failed", err, logger.Fields{"uid": parsed})
		return commons.ErrorResponse[models.AccountResponse]("failed to fetch account", "Unable to fetch account right now"), err
	}

	return commons.SuccessResponse("account fetched successfully", models.NewAccountResponse(account)), nil
}

func (s *AccountService) VerifyAccount(ctx context.Context, req models.VerifyAccountRequest) (commons.Response[models.AccountResponse], error) {
	logger.Info("account service verify account request", logger.Fields{
		"uid": req.UID,
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), domain.ValidationError("%s", err.Error())
	}

	if err := s.store.MarkVerified(ctx, req.UID); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.AccountResponse]("User not found"), domain.ErrAccountNotFound
		}
		logger.Error("account service verify account failed", err, logger.Fields{"uid": req.UID})
		return commons.ErrorResponse[models.AccountResponse]("failed to verify account", "Unable to verify account right now"), err
	}

	account, err := s.store.GetAccountByUID(ctx, req.UID)
	if err != nil {
		logger.Error("account service verify account reload failed", err, logger.Fields{"uid": req.UID})
		return commons.ErrorResponse[models.AccountResponse]("failed to verify account", "Unable to verify account right now"), err
	}

	logger.Info("account service verify account success", logger.Fields{"uid": req.UID})
	return commons.SuccessResponse("account verified successfully", models.NewAccountResponse(account)), nil
}

// generateUID returns a random six digit identifier.
func generateUID() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return 0, fmt.Errorf("generate uid: %w", err)
	}
	return 100000 + n.Int64(), nil
}

func generateAddress() (string, error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate address: %w", err)
	}
	return "0x" + hex.EncodeToString(raw), nil
}
