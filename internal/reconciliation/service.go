// Package reconciliation tracks sends whose debit could not be restored until an operator resolves them.
package reconciliation

import (
	"context"
	"errors"

	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/go-petr/pet-wallet/pkg/metricspkg"
	"github.com/rs/zerolog"
)

// Repo provides access to persisted compensation failures.
//
//go:generate mockgen -source service.go -destination service_mock.go -package reconciliation
type Repo interface {
	ListUnresolved(ctx context.Context, limit int32, offset int64) ([]domain.CompensationFailure, error)
	CountUnresolved(ctx context.Context) (int64, error)
	Resolve(ctx context.Context, id int64) (domain.CompensationFailure, error)
}

// Service facilitates reconciliation logic.
type Service struct {
	repo Repo
}

// New returns reconciliation service.
func New(repo Repo) *Service {
	return &Service{repo: repo}
}

// ListUnresolved returns a page of open failures, oldest first.
func (s *Service) ListUnresolved(ctx context.Context, pageSize, pageID int32) ([]domain.CompensationFailure, error) {
	return s.repo.ListUnresolved(ctx, pageSize, int64(pageID-1)*int64(pageSize))
}

// Resolve marks the failure as handled by an operator.
func (s *Service) Resolve(ctx context.Context, id int64) (domain.CompensationFailure, error) {
	f, err := s.repo.Resolve(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrCompensationFailureNotFound) {
			zerolog.Ctx(ctx).Error().Err(err).Int64("failure_id", id).Send()
		}

		return f, err
	}

	zerolog.Ctx(ctx).Info().
		Int64("failure_id", f.ID).
		Str("account", f.AccountID).
		Str("amount", f.Amount.String()).
		Msg("compensation failure resolved")

	return f, nil
}

// Scan counts open failures, exports the count and raises an alert while any remain.
func (s *Service) Scan(ctx context.Context) (int64, error) {
	l := zerolog.Ctx(ctx)

	n, err := s.repo.CountUnresolved(ctx)
	if err != nil {
		l.Error().Err(err).Msg("cannot count compensation failures")
		return 0, err
	}

	metricspkg.SetUnresolvedCompensationFailures(n)

	if n > 0 {
		l.Error().Int64("unresolved", n).Msg("unresolved compensation failures require manual reconciliation")
	}

	return n, nil
}
