package reconciliationrepo

import (
	"context"
	"sync"
	"time"

	"github.com/go-petr/pet-wallet/internal/domain"
)

// RepoMem keeps compensation failures in process memory.
type RepoMem struct {
	mu    sync.Mutex
	items []domain.CompensationFailure
}

// NewRepoMem returns an empty RepoMem.
func NewRepoMem() *RepoMem {
	return &RepoMem{}
}

// Create persists the compensation failure and then returns it.
func (r *RepoMem) Create(ctx context.Context, arg domain.CreateCompensationFailureParams) (domain.CompensationFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := domain.CompensationFailure{
		ID:                int64(len(r.items) + 1),
		AccountID:         arg.AccountID,
		RecipientID:       arg.RecipientID,
		Amount:            arg.Amount,
		RequestToken:      arg.RequestToken,
		CreditError:       arg.CreditError,
		CompensationError: arg.CompensationError,
		CreatedAt:         time.Now().UTC(),
	}
	r.items = append(r.items, f)

	return f, nil
}

// ListUnresolved returns failures awaiting reconciliation, oldest first.
func (r *RepoMem) ListUnresolved(ctx context.Context, limit int32, offset int64) ([]domain.CompensationFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := []domain.CompensationFailure{}

	skipped := int64(0)

	for _, f := range r.items {
		if f.ResolvedAt != nil {
			continue
		}

		if skipped < offset {
			skipped++
			continue
		}

		if limit > 0 && int32(len(items)) == limit {
			break
		}

		items = append(items, f)
	}

	return items, nil
}

// CountUnresolved returns the number of failures awaiting reconciliation.
func (r *RepoMem) CountUnresolved(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64

	for _, f := range r.items {
		if f.ResolvedAt == nil {
			n++
		}
	}

	return n, nil
}

// Resolve marks the failure as reconciled and then returns it.
func (r *RepoMem) Resolve(ctx context.Context, id int64) (domain.CompensationFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.items {
		if r.items[i].ID == id && r.items[i].ResolvedAt == nil {
			now := time.Now().UTC()
			r.items[i].ResolvedAt = &now

			return r.items[i], nil
		}
	}

	return domain.CompensationFailure{}, domain.ErrCompensationFailureNotFound
}
