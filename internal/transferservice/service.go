// Package transferservice coordinates money movements between wallets.
//
// A send debits the origin first and then credits the recipient under a request token.
// When the credit fails the debit is restored by a compensating credit that carries a
// single request token, so its retries are applied at most once. Once the debit is attempted every ledger
// step runs detached from the caller's cancellation with its own timeout.
package transferservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/go-petr/pet-wallet/pkg/backoffpkg"
	"github.com/go-petr/pet-wallet/pkg/errorspkg"
	"github.com/go-petr/pet-wallet/pkg/metricspkg"
	"github.com/go-petr/pet-wallet/pkg/moneypkg"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repo provides access to transaction records needed by transfer service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error)
	Get(ctx context.Context, id int64) (domain.Transaction, error)
	List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error)
}

// BalanceMutator applies balance changes.
type BalanceMutator interface {
	Credit(ctx context.Context, accountID string, amount decimal.Decimal, token uuid.UUID) (domain.Wallet, error)
	Debit(ctx context.Context, accountID string, amount decimal.Decimal, token uuid.UUID) (domain.Wallet, error)
}

// FailureRepo persists transfers whose debit could not be restored.
type FailureRepo interface {
	Create(ctx context.Context, arg domain.CreateCompensationFailureParams) (domain.CompensationFailure, error)
}

// Notifier delivers a notification at most once.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Config bounds the time and retries spent on each step.
type Config struct {
	LedgerTimeout        time.Duration
	NotifyTimeout        time.Duration
	CompensationAttempts int
	CompensationBackoff  time.Duration
}

// Default step bounds.
const (
	DefaultLedgerTimeout        = 3 * time.Second
	DefaultNotifyTimeout        = 3 * time.Second
	DefaultCompensationAttempts = 3
	DefaultCompensationBackoff  = 50 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.LedgerTimeout <= 0 {
		c.LedgerTimeout = DefaultLedgerTimeout
	}

	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = DefaultNotifyTimeout
	}

	if c.CompensationAttempts <= 0 {
		c.CompensationAttempts = DefaultCompensationAttempts
	}

	if c.CompensationBackoff < 0 {
		c.CompensationBackoff = 0
	}

	return c
}

// Service facilitates transfer service layer logic.
type Service struct {
	repo     Repo
	balances BalanceMutator
	failures FailureRepo
	notifier Notifier
	cfg      Config
}

// New returns transfer service struct to manage transfer business logic.
func New(tr Repo, bm BalanceMutator, fr FailureRepo, n Notifier, cfg Config) *Service {
	return &Service{
		repo:     tr,
		balances: bm,
		failures: fr,
		notifier: n,
		cfg:      cfg.withDefaults(),
	}
}

// Send moves amount from origin to recipient and returns the send record with the origin's new balance.
func (s *Service) Send(ctx context.Context, origin, recipient string, amount decimal.Decimal) (domain.TransferResult, error) {
	start := time.Now()

	res, err := s.send(ctx, origin, recipient, amount)
	metricspkg.ObserveTransfer(string(domain.KindSend), outcome(err), time.Since(start))

	return res, err
}

func (s *Service) send(ctx context.Context, origin, recipient string, amount decimal.Decimal) (domain.TransferResult, error) {
	if err := validate(origin, amount); err != nil {
		return domain.TransferResult{}, err
	}

	if recipient == "" {
		return domain.TransferResult{}, domain.ErrInvalidRecipient
	}

	if recipient == origin {
		return domain.TransferResult{}, domain.ErrSelfTransfer
	}

	if err := ctx.Err(); err != nil {
		return domain.TransferResult{}, err
	}

	l := zerolog.Ctx(ctx).With().
		Str("kind", string(domain.KindSend)).
		Str("account", origin).
		Str("recipient", recipient).
		Str("amount", amount.String()).
		Logger()
	ctx = l.WithContext(context.WithoutCancel(ctx))

	debited, err := s.debit(ctx, origin, amount, uuid.Nil)
	if err != nil {
		l.Info().Err(err).Msg("debit rejected")
		return domain.TransferResult{}, err
	}

	l.Debug().Str("state", "debited").Send()

	if err := s.creditRecipient(ctx, recipient, amount); err != nil {
		l.Warn().Err(err).Str("state", "credit_failed").Send()
		return domain.TransferResult{}, s.compensate(ctx, origin, recipient, amount, err)
	}

	t, err := s.record(ctx, domain.CreateTransactionParams{
		AccountID:      origin,
		Kind:           domain.KindSend,
		Amount:         amount,
		CounterpartyID: &recipient,
	})
	if err != nil {
		return domain.TransferResult{}, err
	}

	s.notify(ctx, origin, domain.KindSend, fmt.Sprintf("You sent $%s to user %s", amount, recipient))
	s.notify(ctx, recipient, domain.KindSend, fmt.Sprintf("You received $%s from user %s", amount, origin))

	l.Info().Str("state", "done").Int64("transaction_id", t.ID).Msg("transfer completed")

	return domain.TransferResult{Transaction: t, Balance: debited.Balance}, nil
}

// creditRecipient credits the recipient under its own request token. A failure that
// does not say whether the credit landed is followed by one more attempt with the
// same token, which either applies the credit or finds it already applied.
func (s *Service) creditRecipient(ctx context.Context, recipient string, amount decimal.Decimal) error {
	token := uuid.New()

	_, err := s.credit(ctx, recipient, amount, token)
	if err == nil || rejected(err) {
		return err
	}

	l := zerolog.Ctx(ctx)
	l.Warn().Err(err).Str("credit_token", token.String()).Msg("credit outcome unknown, confirming")

	if _, cerr := s.credit(ctx, recipient, amount, token); cerr != nil {
		l.Warn().Err(cerr).Str("credit_token", token.String()).Msg("credit not confirmed")
		return err
	}

	l.Info().Str("credit_token", token.String()).Msg("credit confirmed")

	return nil
}

// rejected reports whether the ledger refused the change without applying it.
func rejected(err error) bool {
	return errors.Is(err, domain.ErrInvalidArgument) ||
		errors.Is(err, domain.ErrWalletNotFound) ||
		errors.Is(err, domain.ErrInsufficientFunds)
}

// compensate restores the origin's debit after a failed credit.
func (s *Service) compensate(ctx context.Context, origin, recipient string, amount decimal.Decimal, creditErr error) error {
	l := zerolog.Ctx(ctx)
	token := uuid.New()

	var err error

	for attempt := 0; attempt < s.cfg.CompensationAttempts; attempt++ {
		if attempt > 0 {
			_ = backoffpkg.SleepWithContext(ctx, backoffpkg.ExponentialWithJitter(s.cfg.CompensationBackoff, attempt-1))
		}

		if _, err = s.credit(ctx, origin, amount, token); err == nil {
			l.Info().Str("state", "compensated").Int("attempts", attempt+1).Msg("debit restored")

			if errors.Is(creditErr, domain.ErrInvalidArgument) {
				return creditErr
			}

			return fmt.Errorf("%w: %v", domain.ErrTransferFailed, creditErr)
		}

		l.Warn().Err(err).Int("attempt", attempt+1).Msg("compensation attempt failed")
	}

	metricspkg.IncCompensationFailures()

	l.Error().
		Str("state", "compensation_failed").
		Str("request_token", token.String()).
		Str("credit_error", creditErr.Error()).
		Str("compensation_error", err.Error()).
		Msg("debit could not be restored, manual reconciliation required")

	fctx, cancel := context.WithTimeout(ctx, s.cfg.LedgerTimeout)
	defer cancel()

	_, ferr := s.failures.Create(fctx, domain.CreateCompensationFailureParams{
		AccountID:         origin,
		RecipientID:       recipient,
		Amount:            amount,
		RequestToken:      token,
		CreditError:       creditErr.Error(),
		CompensationError: err.Error(),
	})
	if ferr != nil {
		l.Error().Err(ferr).Msg("cannot persist compensation failure")
	}

	return fmt.Errorf("%w: credit: %v; compensation: %v", domain.ErrCompensationFailed, creditErr, err)
}

// Topup credits amount to origin, creating its wallet when absent.
func (s *Service) Topup(ctx context.Context, origin string, amount decimal.Decimal) (domain.TransferResult, error) {
	start := time.Now()

	res, err := s.topup(ctx, origin, amount)
	metricspkg.ObserveTransfer(string(domain.KindTopup), outcome(err), time.Since(start))

	return res, err
}

func (s *Service) topup(ctx context.Context, origin string, amount decimal.Decimal) (domain.TransferResult, error) {
	if err := validate(origin, amount); err != nil {
		return domain.TransferResult{}, err
	}

	if err := ctx.Err(); err != nil {
		return domain.TransferResult{}, err
	}

	l := zerolog.Ctx(ctx).With().
		Str("kind", string(domain.KindTopup)).
		Str("account", origin).
		Str("amount", amount.String()).
		Logger()
	ctx = l.WithContext(context.WithoutCancel(ctx))

	credited, err := s.credit(ctx, origin, amount, uuid.Nil)
	if err != nil {
		l.Warn().Err(err).Msg("credit failed")
		return domain.TransferResult{}, err
	}

	t, err := s.record(ctx, domain.CreateTransactionParams{
		AccountID: origin,
		Kind:      domain.KindTopup,
		Amount:    amount,
	})
	if err != nil {
		return domain.TransferResult{}, err
	}

	s.notify(ctx, origin, domain.KindTopup, fmt.Sprintf("Top-up of $%s completed successfully", amount))

	l.Info().Str("state", "done").Int64("transaction_id", t.ID).Msg("topup completed")

	return domain.TransferResult{Transaction: t, Balance: credited.Balance}, nil
}

// Withdraw debits amount from origin.
func (s *Service) Withdraw(ctx context.Context, origin string, amount decimal.Decimal) (domain.TransferResult, error) {
	start := time.Now()

	res, err := s.withdraw(ctx, origin, amount)
	metricspkg.ObserveTransfer(string(domain.KindWithdraw), outcome(err), time.Since(start))

	return res, err
}

func (s *Service) withdraw(ctx context.Context, origin string, amount decimal.Decimal) (domain.TransferResult, error) {
	if err := validate(origin, amount); err != nil {
		return domain.TransferResult{}, err
	}

	if err := ctx.Err(); err != nil {
		return domain.TransferResult{}, err
	}

	l := zerolog.Ctx(ctx).With().
		Str("kind", string(domain.KindWithdraw)).
		Str("account", origin).
		Str("amount", amount.String()).
		Logger()
	ctx = l.WithContext(context.WithoutCancel(ctx))

	debited, err := s.debit(ctx, origin, amount, uuid.Nil)
	if err != nil {
		l.Info().Err(err).Msg("debit rejected")
		return domain.TransferResult{}, err
	}

	t, err := s.record(ctx, domain.CreateTransactionParams{
		AccountID: origin,
		Kind:      domain.KindWithdraw,
		Amount:    amount,
	})
	if err != nil {
		return domain.TransferResult{}, err
	}

	s.notify(ctx, origin, domain.KindWithdraw, fmt.Sprintf("Withdrawal of $%s completed successfully", amount))

	l.Info().Str("state", "done").Int64("transaction_id", t.ID).Msg("withdrawal completed")

	return domain.TransferResult{Transaction: t, Balance: debited.Balance}, nil
}

// Get returns the transaction with the given id.
func (s *Service) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	return s.repo.Get(ctx, id)
}

// ListByAccount returns a page of transactions the account took part in, newest first.
func (s *Service) ListByAccount(ctx context.Context, accountID string, pageSize, pageID int32) ([]domain.Transaction, error) {
	if accountID == "" {
		return nil, domain.ErrInvalidAccount
	}

	return s.repo.List(ctx, domain.ListTransactionsParams{
		AccountID: accountID,
		Limit:     pageSize,
		Offset:    offset(pageSize, pageID),
	})
}

// ListAll returns a page of transactions of every account, newest first.
func (s *Service) ListAll(ctx context.Context, pageSize, pageID int32) ([]domain.Transaction, error) {
	return s.repo.List(ctx, domain.ListTransactionsParams{
		Limit:  pageSize,
		Offset: offset(pageSize, pageID),
	})
}

func offset(pageSize, pageID int32) int64 {
	return int64(pageID-1) * int64(pageSize)
}

func (s *Service) debit(ctx context.Context, accountID string, amount decimal.Decimal, token uuid.UUID) (domain.Wallet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LedgerTimeout)
	defer cancel()

	return s.balances.Debit(ctx, accountID, amount, token)
}

func (s *Service) credit(ctx context.Context, accountID string, amount decimal.Decimal, token uuid.UUID) (domain.Wallet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LedgerTimeout)
	defer cancel()

	return s.balances.Credit(ctx, accountID, amount, token)
}

// record writes the completed transaction. Balances are already committed at this point,
// so a failure is surfaced as an internal error without unwinding them.
func (s *Service) record(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	arg.Status = domain.StatusCompleted
	arg.ReferenceID = uuid.New()

	rctx, cancel := context.WithTimeout(ctx, s.cfg.LedgerTimeout)
	defer cancel()

	t, err := s.repo.Create(rctx, arg)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("state", "record_failed").
			Str("reference_id", arg.ReferenceID.String()).
			Msg("balances committed but transaction record was not written")

		return t, errorspkg.ErrInternal
	}

	zerolog.Ctx(ctx).Debug().Str("state", "recorded").Int64("transaction_id", t.ID).Send()

	return t, nil
}

// notify delivers one notification and swallows its failure.
func (s *Service) notify(ctx context.Context, accountID string, kind domain.TransactionKind, message string) {
	nctx, cancel := context.WithTimeout(ctx, s.cfg.NotifyTimeout)
	defer cancel()

	err := s.notifier.Notify(nctx, domain.Notification{
		AccountID: accountID,
		Message:   message,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		metricspkg.IncNotificationFailures()
		zerolog.Ctx(ctx).Warn().Err(err).Str("notify", accountID).Msg("notification failed")
	}
}

func validate(origin string, amount decimal.Decimal) error {
	if origin == "" {
		return domain.ErrInvalidAccount
	}

	if err := moneypkg.Check(amount); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
	}

	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metricspkg.OutcomeCompleted
	case errors.Is(err, domain.ErrCompensationFailed):
		return metricspkg.OutcomeCompensationFailed
	case errors.Is(err, domain.ErrTransferFailed):
		return metricspkg.OutcomeTransferFailed
	case errors.Is(err, domain.ErrInvalidArgument):
		return metricspkg.OutcomeInvalidArgument
	case errors.Is(err, domain.ErrInsufficientFunds):
		return metricspkg.OutcomeInsufficientFunds
	case errors.Is(err, domain.ErrWalletNotFound):
		return metricspkg.OutcomeNotFound
	default:
		return metricspkg.OutcomeError
	}
}
