package models

import (
	"errors"
	"strings"

	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

type TransferRequest struct {
	FromAddress string          `json:"fromAddress"`
	ToAddress   string          `json:"toAddress"`
	Amount      decimal.Decimal `json:"amount"`
}

func (r TransferRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.FromAddress) == "" {
		errs = append(errs, "fromAddress is required")
	}
	if strings.TrimSpace(r.ToAddress) == "" {
		errs = append(errs, "toAddress is required")
	}
	if from := strings.TrimSpace(r.FromAddress); from != "" && from == strings.TrimSpace(r.ToAddress) {
		errs = append(errs, "fromAddress and toAddress must differ")
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "amount must be greater than zero")
	} else if domain.ExceedsAmountScale(r.Amount) {
		errs = append(errs, "amount must have at most 10 decimal places")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (r TransferRequest) Command() domain.TransferCommand {
	return domain.TransferCommand{
		FromAddress: r.FromAddress,
		ToToken:     r.ToAddress,
		Amount:      r.Amount,
	}
}

type TransferResponse struct {
	Transaction   TransactionResponse `json:"transaction"`
	WasRedirected bool                `json:"wasRedirected"`
	DeliveredTo   string              `json:"deliveredTo"`
	SenderBalance decimal.Decimal     `json:"senderBalance"`
}

func NewTransferResponse(result domain.TransferResult) TransferResponse {
	return TransferResponse{
		Transaction:   NewTransactionResponse(result.Entry),
		WasRedirected: result.WasRedirected,
		DeliveredTo:   result.DeliveredTo,
		SenderBalance: result.SenderBalance,
	}
}
