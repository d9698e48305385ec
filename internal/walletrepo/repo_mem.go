package walletrepo

import (
	"context"
	"sync"
	"time"

	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/go-petr/pet-wallet/pkg/moneypkg"
	"github.com/google/uuid"
)

// RepoMem keeps wallets in process memory.
//
// Deltas to one wallet serialize on that wallet's mutex; the map lock is held only
// for lookup and creation, so deltas to different wallets never wait on each other.
type RepoMem struct {
	mu      sync.RWMutex
	wallets map[string]*memWallet
}

type memWallet struct {
	mu      sync.Mutex
	wallet  domain.Wallet
	applied map[uuid.UUID]struct{}
}

// NewRepoMem returns an empty RepoMem.
func NewRepoMem() *RepoMem {
	return &RepoMem{
		wallets: make(map[string]*memWallet),
	}
}

func (r *RepoMem) lookup(accountID string) (*memWallet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mw, ok := r.wallets[accountID]

	return mw, ok
}

// Create creates an empty wallet for the account and then returns it.
func (r *RepoMem) Create(ctx context.Context, accountID string) (domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.wallets[accountID]; ok {
		return domain.Wallet{}, domain.ErrWalletAlreadyExists
	}

	now := time.Now().UTC()
	mw := &memWallet{
		wallet: domain.Wallet{
			AccountID: accountID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		applied: make(map[uuid.UUID]struct{}),
	}
	r.wallets[accountID] = mw

	return mw.wallet, nil
}

// Get returns the wallet of the given account.
func (r *RepoMem) Get(ctx context.Context, accountID string) (domain.Wallet, error) {
	mw, ok := r.lookup(accountID)
	if !ok {
		return domain.Wallet{}, domain.ErrWalletNotFound
	}

	mw.mu.Lock()
	defer mw.mu.Unlock()

	return mw.wallet, nil
}

// ApplyDelta atomically adds the signed delta to the wallet balance and returns the changed wallet.
func (r *RepoMem) ApplyDelta(ctx context.Context, arg domain.ApplyDeltaParams) (domain.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return domain.Wallet{}, err
	}

	mw, ok := r.lookup(arg.AccountID)
	if !ok {
		return domain.Wallet{}, domain.ErrWalletNotFound
	}

	mw.mu.Lock()
	defer mw.mu.Unlock()

	if arg.RequestToken != uuid.Nil {
		if _, done := mw.applied[arg.RequestToken]; done {
			return mw.wallet, nil
		}
	}

	next := mw.wallet.Balance.Add(arg.Delta)
	if next.IsNegative() {
		return domain.Wallet{}, domain.ErrInsufficientFunds
	}

	if !moneypkg.Fits(next) {
		return domain.Wallet{}, domain.ErrBalanceLimit
	}

	mw.wallet.Balance = next
	mw.wallet.UpdatedAt = time.Now().UTC()

	if arg.RequestToken != uuid.Nil {
		mw.applied[arg.RequestToken] = struct{}{}
	}

	return mw.wallet, nil
}
