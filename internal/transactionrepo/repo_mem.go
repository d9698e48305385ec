package transactionrepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-petr/pet-wallet/internal/domain"
)

// RepoMem keeps transaction records in process memory.
type RepoMem struct {
	mu     sync.RWMutex
	nextID int64
	items  []domain.Transaction
}

// NewRepoMem returns an empty RepoMem.
func NewRepoMem() *RepoMem {
	return &RepoMem{}
}

// Create appends the transaction record and then returns it.
func (r *RepoMem) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	if !arg.Amount.IsPositive() {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	if (arg.Kind == domain.KindSend) != (arg.CounterpartyID != nil) {
		return domain.Transaction{}, domain.ErrInvalidRecipient
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++

	t := domain.Transaction{
		ID:             r.nextID,
		AccountID:      arg.AccountID,
		Kind:           arg.Kind,
		Amount:         arg.Amount,
		CounterpartyID: arg.CounterpartyID,
		Status:         arg.Status,
		ReferenceID:    arg.ReferenceID,
		CreatedAt:      time.Now().UTC(),
	}
	r.items = append(r.items, t)

	return t, nil
}

// Get returns the transaction with the given id.
func (r *RepoMem) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.items {
		if t.ID == id {
			return t, nil
		}
	}

	return domain.Transaction{}, domain.ErrTransactionNotFound
}

// List returns transactions newest first.
func (r *RepoMem) List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error) {
	if arg.Offset < 0 || arg.Limit < 0 {
		return nil, fmt.Errorf("%w: negative page bounds", domain.ErrInvalidArgument)
	}

	r.mu.RLock()

	matched := []domain.Transaction{}

	for _, t := range r.items {
		if arg.AccountID == "" || t.VisibleTo(arg.AccountID) {
			matched = append(matched, t)
		}
	}

	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}

		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if arg.Offset >= int64(len(matched)) {
		return []domain.Transaction{}, nil
	}

	offset := int(arg.Offset)
	end := len(matched)
	if arg.Limit > 0 && offset+int(arg.Limit) < end {
		end = offset + int(arg.Limit)
	}

	return matched[offset:end], nil
}
