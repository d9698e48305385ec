package domain

import "time"

// Notification is a best-effort message to an account holder.
type Notification struct {
	AccountID string          `json:"user_id"`
	Message   string          `json:"message"`
	Kind      TransactionKind `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}
