// Package transactionrepo manages repository layer of transaction records.
package transactionrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/go-petr/pet-wallet/pkg/dbpkg"
	"github.com/go-petr/pet-wallet/pkg/errorspkg"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates transaction repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns transaction RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    transactions (account_id, kind, amount, counterparty_id, status, reference_id)
VALUES
    ($1, $2, $3, $4, $5, $6)
RETURNING id, account_id, kind, amount, counterparty_id, status, reference_id, created_at
`

// Create appends the transaction record and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.AccountID,
		arg.Kind,
		arg.Amount,
		arg.CounterpartyID,
		arg.Status,
		arg.ReferenceID,
	)

	t, err := scanTransaction(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx context.Context, %+v)", arg)

		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Constraint {
			case "transactions_amount_check":
				return t, domain.ErrInvalidAmount
			case "transactions_counterparty_check":
				return t, domain.ErrInvalidRecipient
			}
		}

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const getQuery = `
SELECT
	id, account_id, kind, amount, counterparty_id, status, reference_id, created_at
FROM transactions
WHERE id = $1
`

// Get returns the transaction with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	t, err := scanTransaction(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, domain.ErrTransactionNotFound
		}

		l.Error().Err(err).Send()

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const listByAccountQuery = `
SELECT
	id, account_id, kind, amount, counterparty_id, status, reference_id, created_at
FROM transactions
WHERE
    account_id = $1 OR counterparty_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

const listAllQuery = `
SELECT
	id, account_id, kind, amount, counterparty_id, status, reference_id, created_at
FROM transactions
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2
`

// List returns transactions newest first.
//
// With an account set it returns the records where the account is the origin or the counterparty,
// otherwise it returns records of every account.
func (r *RepoPGS) List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	var (
		rows *sql.Rows
		err  error
	)

	if arg.AccountID != "" {
		rows, err = r.db.QueryContext(ctx, listByAccountQuery, arg.AccountID, arg.Limit, arg.Offset)
	} else {
		rows, err = r.db.QueryContext(ctx, listAllQuery, arg.Limit, arg.Offset)
	}

	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, t)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (domain.Transaction, error) {
	var t domain.Transaction

	err := s.Scan(
		&t.ID,
		&t.AccountID,
		&t.Kind,
		&t.Amount,
		&t.CounterpartyID,
		&t.Status,
		&t.ReferenceID,
		&t.CreatedAt,
	)

	return t, err
}
