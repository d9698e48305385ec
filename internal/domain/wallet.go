// Package domain provides definitions of all entities.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidArgument is the root of every input validation failure.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidAmount indicates a non-positive or malformed amount.
	ErrInvalidAmount = fmt.Errorf("%w: amount must be a positive number", ErrInvalidArgument)
	// ErrInvalidAccount indicates an empty account identifier.
	ErrInvalidAccount = fmt.Errorf("%w: account id is required", ErrInvalidArgument)
	// ErrBalanceLimit indicates that the delta would push the balance past what the ledger holds.
	ErrBalanceLimit = fmt.Errorf("%w: balance limit exceeded", ErrInvalidArgument)

	// ErrWalletNotFound indicates that the wallet is not found.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrWalletAlreadyExists indicates that the wallet for the account already exists.
	ErrWalletAlreadyExists = errors.New("wallet already exists")
	// ErrInsufficientFunds indicates that the delta would drive the balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Wallet holds the balance of an account.
type Wallet struct {
	AccountID string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ApplyDeltaParams is the input data for an atomic balance change.
type ApplyDeltaParams struct {
	AccountID string
	Delta     decimal.Decimal // can be negative or positive
	// RequestToken makes the change idempotent when set; uuid.Nil disables the check.
	RequestToken uuid.UUID
}
