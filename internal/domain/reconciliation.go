package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrCompensationFailureNotFound indicates that the failure is not found or already resolved.
var ErrCompensationFailureNotFound = errors.New("compensation failure not found")

// CompensationFailure records a send whose debit could not be restored.
type CompensationFailure struct {
	ID                int64           `json:"id"`
	AccountID         string          `json:"user_id"`
	RecipientID       string          `json:"recipient_id"`
	Amount            decimal.Decimal `json:"amount"`
	RequestToken      uuid.UUID       `json:"request_token"`
	CreditError       string          `json:"credit_error"`
	CompensationError string          `json:"compensation_error"`
	CreatedAt         time.Time       `json:"created_at"`
	ResolvedAt        *time.Time      `json:"resolved_at,omitempty"`
}

// CreateCompensationFailureParams is the input data to persist a compensation failure.
type CreateCompensationFailureParams struct {
	AccountID         string
	RecipientID       string
	Amount            decimal.Decimal
	RequestToken      uuid.UUID
	CreditError       string
	CompensationError string
}
