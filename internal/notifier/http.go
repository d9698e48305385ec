package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/go-petr/pet-wallet/pkg/errorspkg"
	"github.com/go-petr/pet-wallet/pkg/web"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const sendPath = "/notifications/send"

const (
	breakerTimeout             = 30 * time.Second
	breakerConsecutiveFailures = 5
)

// HTTP posts notifications to the notification service behind a circuit breaker.
type HTTP struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

type sendRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// NewHTTP returns the HTTP sink for the notification service at baseURL.
func NewHTTP(baseURL string, timeout time.Duration, logger zerolog.Logger) *HTTP {
	h := &HTTP{
		url:    baseURL + sendPath,
		client: &http.Client{Timeout: timeout},
	}

	h.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "notification-service",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})

	return h
}

// Notify posts the notification once.
func (h *HTTP) Notify(ctx context.Context, n domain.Notification) error {
	_, err := h.breaker.Execute(func() (interface{}, error) {
		return nil, h.post(ctx, n)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", errorspkg.ErrUnavailable, err)
	}

	return err
}

func (h *HTTP) post(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(sendRequest{
		UserID:  n.AccountID,
		Message: n.Message,
		Type:    string(n.Kind),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	req.Header.Set(web.RequestIDHeader, web.RequestID(ctx))

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification service responded %d", resp.StatusCode)
	}

	return nil
}
