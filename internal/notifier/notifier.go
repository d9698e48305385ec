// Package notifier delivers best-effort messages to account holders.
//
// Every sink attempts delivery at most once and reports failure to the caller;
// retrying or queueing is not a sink's job.
package notifier

import (
	"context"
	"errors"

	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/rs/zerolog"
)

// Supported sink names.
const (
	SinkLog   = "log"
	SinkHTTP  = "http"
	SinkRedis = "redis"
	SinkAll   = "all"
)

// Sink accepts a single notification.
type Sink interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Log writes notifications to the request logger.
type Log struct{}

// NewLog returns the log sink.
func NewLog() Log {
	return Log{}
}

// Notify logs the notification.
func (Log) Notify(ctx context.Context, n domain.Notification) error {
	zerolog.Ctx(ctx).Info().
		Str("account", n.AccountID).
		Str("type", string(n.Kind)).
		Str("message", n.Message).
		Msg("notification")

	return nil
}

// Multi fans a notification out to every sink.
type Multi []Sink

// NewMulti returns a sink that tries all of the given sinks.
func NewMulti(sinks ...Sink) Multi {
	return Multi(sinks)
}

// Notify tries every sink and joins their errors.
func (m Multi) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error

	for _, s := range m {
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
