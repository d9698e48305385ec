package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "notifications:"
	// maxInbox bounds each account's list; older notifications are dropped.
	maxInbox = 100
)

// Redis pushes notifications onto a per-account list.
type Redis struct {
	client redis.Cmdable
}

// NewRedis returns the Redis sink.
func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client}
}

// Key returns the list key that holds the account's notifications.
func Key(accountID string) string {
	return keyPrefix + accountID
}

// Notify pushes the notification to the head of the account's list.
func (r *Redis) Notify(ctx context.Context, n domain.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, Key(n.AccountID), payload)
		pipe.LTrim(ctx, Key(n.AccountID), 0, maxInbox-1)

		return nil
	})

	return err
}
