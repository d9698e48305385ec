// Package walletrepo manages repository layer of wallets.
package walletrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/go-petr/pet-wallet/pkg/dbpkg"
	"github.com/go-petr/pet-wallet/pkg/errorspkg"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates wallet repository layer logic.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewTxRepoPGS returns wallet RepoPGS bound to an open transaction.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewRepoPGS returns wallet RepoPGS with connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db:   db,
		conn: db,
	}
}

const createQuery = `
INSERT INTO
    wallets (account_id, balance)
VALUES
    ($1, 0)
RETURNING account_id, balance, created_at, updated_at
`

// Create creates an empty wallet for the account and then returns it.
func (r *RepoPGS) Create(ctx context.Context, accountID string) (domain.Wallet, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, accountID)

	var w domain.Wallet

	err := row.Scan(
		&w.AccountID,
		&w.Balance,
		&w.CreatedAt,
		&w.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "wallets_pkey" {
			return w, domain.ErrWalletAlreadyExists
		}

		l.Error().Err(err).Send()

		return w, errorspkg.ErrInternal
	}

	return w, nil
}

const getQuery = `
SELECT
	account_id, balance, created_at, updated_at
FROM wallets
WHERE account_id = $1
`

// Get returns the wallet of the given account.
func (r *RepoPGS) Get(ctx context.Context, accountID string) (domain.Wallet, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, accountID)

	var w domain.Wallet

	err := row.Scan(
		&w.AccountID,
		&w.Balance,
		&w.CreatedAt,
		&w.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return w, domain.ErrWalletNotFound
		}

		l.Error().Err(err).Send()

		return w, errorspkg.ErrInternal
	}

	return w, nil
}

// ApplyDelta atomically adds the signed delta to the wallet balance and returns the changed wallet.
//
// The change is rejected with ErrInsufficientFunds if it would drive the balance negative.
// When the request token is set, a token that was already applied is not applied again
// and the current wallet is returned.
func (r *RepoPGS) ApplyDelta(ctx context.Context, arg domain.ApplyDeltaParams) (domain.Wallet, error) {
	if arg.RequestToken == uuid.Nil {
		return r.addBalance(ctx, arg)
	}

	if r.conn == nil {
		return r.applyOnce(ctx, arg)
	}

	l := zerolog.Ctx(ctx)

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Wallet{}, errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	w, err := NewTxRepoPGS(tx).applyOnce(ctx, arg)
	if err != nil {
		return w, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.Wallet{}, errorspkg.ErrInternal
	}

	return w, nil
}

const insertOperationQuery = `
INSERT INTO
    balance_operations (request_token, account_id, delta)
VALUES
    ($1, $2, $3)
ON CONFLICT (request_token) DO NOTHING
`

func (r *RepoPGS) applyOnce(ctx context.Context, arg domain.ApplyDeltaParams) (domain.Wallet, error) {
	l := zerolog.Ctx(ctx)

	res, err := r.db.ExecContext(ctx, insertOperationQuery, arg.RequestToken, arg.AccountID, arg.Delta)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "balance_operations_account_id_fkey" {
			return domain.Wallet{}, domain.ErrWalletNotFound
		}

		l.Error().Err(err).Send()

		return domain.Wallet{}, errorspkg.ErrInternal
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Wallet{}, errorspkg.ErrInternal
	}

	if n == 0 {
		l.Info().Str("request_token", arg.RequestToken.String()).Msg("balance operation already applied")
		return r.Get(ctx, arg.AccountID)
	}

	return r.addBalance(ctx, arg)
}

const addBalanceQuery = `
UPDATE wallets
SET balance = balance + $1, updated_at = now()
WHERE account_id = $2 AND balance + $1 >= 0
RETURNING account_id, balance, created_at, updated_at
`

// numeric_value_out_of_range
const numericOverflow = pq.ErrorCode("22003")

const existsQuery = `
SELECT EXISTS (SELECT 1 FROM wallets WHERE account_id = $1)
`

func (r *RepoPGS) addBalance(ctx context.Context, arg domain.ApplyDeltaParams) (domain.Wallet, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, addBalanceQuery, arg.Delta, arg.AccountID)

	var w domain.Wallet

	err := row.Scan(
		&w.AccountID,
		&w.Balance,
		&w.CreatedAt,
		&w.UpdatedAt,
	)

	if err == nil {
		return w, nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Constraint == "wallets_balance_check":
			return w, domain.ErrInsufficientFunds
		case pqErr.Code == numericOverflow:
			return w, domain.ErrBalanceLimit
		}
	}

	if !errors.Is(err, sql.ErrNoRows) {
		l.Error().Err(err).Send()
		return w, errorspkg.ErrInternal
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, existsQuery, arg.AccountID).Scan(&exists); err != nil {
		l.Error().Err(err).Send()
		return w, errorspkg.ErrInternal
	}

	if !exists {
		return w, domain.ErrWalletNotFound
	}

	return w, domain.ErrInsufficientFunds
}
