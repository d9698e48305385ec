// Package walletservice manages business logic layer of wallets.
//
// It is the only writer of wallet balances: every change goes through Credit or Debit,
// which reject non-positive amounts and delegate the funds check to the repository's
// atomic delta.
package walletservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/go-petr/pet-wallet/pkg/moneypkg"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repo provides data access layer interface needed by wallet service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package walletservice
type Repo interface {
	Create(ctx context.Context, accountID string) (domain.Wallet, error)
	Get(ctx context.Context, accountID string) (domain.Wallet, error)
	ApplyDelta(ctx context.Context, arg domain.ApplyDeltaParams) (domain.Wallet, error)
}

// Service facilitates wallet service layer logic.
type Service struct {
	repo Repo
}

// New returns wallet service struct to manage wallet business logic.
func New(wr Repo) *Service {
	return &Service{repo: wr}
}

// Create creates an empty wallet for the given account.
func (s *Service) Create(ctx context.Context, accountID string) (domain.Wallet, error) {
	if accountID == "" {
		return domain.Wallet{}, domain.ErrInvalidAccount
	}

	return s.repo.Create(ctx, accountID)
}

// Get returns the wallet of the given account.
func (s *Service) Get(ctx context.Context, accountID string) (domain.Wallet, error) {
	return s.repo.Get(ctx, accountID)
}

// Credit adds amount to the account, creating its wallet when absent.
func (s *Service) Credit(ctx context.Context, accountID string, amount decimal.Decimal, token uuid.UUID) (domain.Wallet, error) {
	if err := checkArgs(accountID, amount); err != nil {
		return domain.Wallet{}, err
	}

	arg := domain.ApplyDeltaParams{
		AccountID:    accountID,
		Delta:        amount,
		RequestToken: token,
	}

	w, err := s.repo.ApplyDelta(ctx, arg)
	if !errors.Is(err, domain.ErrWalletNotFound) {
		return w, err
	}

	zerolog.Ctx(ctx).Info().Str("account", accountID).Msg("creating wallet on first credit")

	if _, err := s.repo.Create(ctx, accountID); err != nil && !errors.Is(err, domain.ErrWalletAlreadyExists) {
		return domain.Wallet{}, err
	}

	return s.repo.ApplyDelta(ctx, arg)
}

// Debit subtracts amount from the account.
//
// It fails with ErrInsufficientFunds when the balance is lower than amount
// and with ErrWalletNotFound when the account has no wallet.
func (s *Service) Debit(ctx context.Context, accountID string, amount decimal.Decimal, token uuid.UUID) (domain.Wallet, error) {
	if err := checkArgs(accountID, amount); err != nil {
		return domain.Wallet{}, err
	}

	return s.repo.ApplyDelta(ctx, domain.ApplyDeltaParams{
		AccountID:    accountID,
		Delta:        amount.Neg(),
		RequestToken: token,
	})
}

func checkArgs(accountID string, amount decimal.Decimal) error {
	if accountID == "" {
		return domain.ErrInvalidAccount
	}

	if err := moneypkg.Check(amount); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
	}

	return nil
}
