package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrSelfTransfer indicates that the sender and the recipient are the same account.
	ErrSelfTransfer = fmt.Errorf("%w: cannot send to yourself", ErrInvalidArgument)
	// ErrInvalidRecipient indicates an empty recipient.
	ErrInvalidRecipient = fmt.Errorf("%w: recipient_id is required", ErrInvalidArgument)
	// ErrTransferFailed indicates that the credit failed and the debit was restored.
	ErrTransferFailed = errors.New("transfer failed")
	// ErrCompensationFailed indicates that the debit could not be restored after a failed credit.
	ErrCompensationFailed = errors.New("transfer failed and debit could not be restored")
	// ErrTransactionNotFound indicates that the transaction is not found.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrAccessDenied indicates that the caller may not see the resource.
	ErrAccessDenied = errors.New("access denied")
)

// TransactionKind is the type of money movement.
type TransactionKind string

// Transaction kinds.
const (
	KindSend     TransactionKind = "send"
	KindTopup    TransactionKind = "topup"
	KindWithdraw TransactionKind = "withdraw"
)

// TransactionStatus is the state of a recorded transaction.
type TransactionStatus string

// Transaction statuses.
const (
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Transaction is the immutable record of one completed money movement.
type Transaction struct {
	ID             int64             `json:"id"`
	AccountID      string            `json:"user_id"`
	Kind           TransactionKind   `json:"type"`
	Amount         decimal.Decimal   `json:"amount"` // always positive
	CounterpartyID *string           `json:"recipient_id,omitempty"`
	Status         TransactionStatus `json:"status"`
	ReferenceID    uuid.UUID         `json:"reference_id"`
	CreatedAt      time.Time         `json:"created_at"`
}

// VisibleTo reports whether the account took part in the transaction.
func (t Transaction) VisibleTo(accountID string) bool {
	return t.AccountID == accountID || (t.CounterpartyID != nil && *t.CounterpartyID == accountID)
}

// CreateTransactionParams is the input data to record a transaction.
type CreateTransactionParams struct {
	AccountID      string
	Kind           TransactionKind
	Amount         decimal.Decimal
	CounterpartyID *string
	Status         TransactionStatus
	ReferenceID    uuid.UUID
}

// ListTransactionsParams is the input data to page through transactions.
type ListTransactionsParams struct {
	AccountID string // empty lists every account
	Limit     int32
	Offset    int64
}

// TransferResult is the result of a coordinated money movement.
type TransferResult struct {
	Transaction Transaction     `json:"transaction"`
	Balance     decimal.Decimal `json:"balance"`
}
