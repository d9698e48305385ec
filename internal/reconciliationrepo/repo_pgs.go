// Package reconciliationrepo manages repository layer of compensation failures.
package reconciliationrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/go-petr/pet-wallet/pkg/dbpkg"
	"github.com/go-petr/pet-wallet/pkg/errorspkg"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates compensation failure repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns compensation failure RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    compensation_failures (account_id, recipient_id, amount, request_token, credit_error, compensation_error)
VALUES
    ($1, $2, $3, $4, $5, $6)
RETURNING id, account_id, recipient_id, amount, request_token, credit_error, compensation_error, created_at, resolved_at
`

// Create persists the compensation failure and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateCompensationFailureParams) (domain.CompensationFailure, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.AccountID,
		arg.RecipientID,
		arg.Amount,
		arg.RequestToken,
		arg.CreditError,
		arg.CompensationError,
	)

	f, err := scanFailure(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx context.Context, %+v)", arg)
		return f, errorspkg.ErrInternal
	}

	return f, nil
}

const listUnresolvedQuery = `
SELECT
	id, account_id, recipient_id, amount, request_token, credit_error, compensation_error, created_at, resolved_at
FROM compensation_failures
WHERE resolved_at IS NULL
ORDER BY created_at, id
LIMIT $1 OFFSET $2
`

// ListUnresolved returns failures awaiting reconciliation, oldest first.
func (r *RepoPGS) ListUnresolved(ctx context.Context, limit int32, offset int64) ([]domain.CompensationFailure, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listUnresolvedQuery, limit, offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.CompensationFailure{}

	for rows.Next() {
		f, err := scanFailure(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, f)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const countUnresolvedQuery = `
SELECT count(*) FROM compensation_failures WHERE resolved_at IS NULL
`

// CountUnresolved returns the number of failures awaiting reconciliation.
func (r *RepoPGS) CountUnresolved(ctx context.Context) (int64, error) {
	l := zerolog.Ctx(ctx)

	var n int64
	if err := r.db.QueryRowContext(ctx, countUnresolvedQuery).Scan(&n); err != nil {
		l.Error().Err(err).Send()
		return 0, errorspkg.ErrInternal
	}

	return n, nil
}

const resolveQuery = `
UPDATE compensation_failures
SET resolved_at = now()
WHERE id = $1 AND resolved_at IS NULL
RETURNING id, account_id, recipient_id, amount, request_token, credit_error, compensation_error, created_at, resolved_at
`

// Resolve marks the failure as reconciled and then returns it.
func (r *RepoPGS) Resolve(ctx context.Context, id int64) (domain.CompensationFailure, error) {
	l := zerolog.Ctx(ctx)

	f, err := scanFailure(r.db.QueryRowContext(ctx, resolveQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return f, domain.ErrCompensationFailureNotFound
		}

		l.Error().Err(err).Send()

		return f, errorspkg.ErrInternal
	}

	return f, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFailure(s scanner) (domain.CompensationFailure, error) {
	var (
		f          domain.CompensationFailure
		resolvedAt sql.NullTime
	)

	err := s.Scan(
		&f.ID,
		&f.AccountID,
		&f.RecipientID,
		&f.Amount,
		&f.RequestToken,
		&f.CreditError,
		&f.CompensationError,
		&f.CreatedAt,
		&resolvedAt,
	)

	if resolvedAt.Valid {
		f.ResolvedAt = &resolvedAt.Time
	}

	return f, err
}
