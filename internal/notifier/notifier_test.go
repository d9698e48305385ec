package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/go-petr/pet-wallet/pkg/errorspkg"
	"github.com/go-petr/pet-wallet/pkg/randompkg"
	"github.com/go-petr/pet-wallet/pkg/web"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func randomNotification() domain.Notification {
	return domain.Notification{
		AccountID: randompkg.AccountID(),
		Message:   "Top-up of $50 completed successfully",
		Kind:      domain.KindTopup,
	}
}

func TestHTTP(t *testing.T) {
	t.Parallel()

	n := randomNotification()

	type received struct {
		path, method, requestID string
		body                    sendRequest
	}

	ch := make(chan received, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rcv := received{path: r.URL.Path, method: r.Method, requestID: r.Header.Get(web.RequestIDHeader)}
		_ = json.NewDecoder(r.Body).Decode(&rcv.body)
		ch <- rcv
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sink := NewHTTP(srv.URL, time.Second, zerolog.Nop())

	ctx := web.WithRequestID(context.Background(), "req-1")
	require.NoError(t, sink.Notify(ctx, n))

	got := <-ch
	require.Equal(t, sendPath, got.path)
	require.Equal(t, http.MethodPost, got.method)
	require.Equal(t, n.AccountID, got.body.UserID)
	require.Equal(t, n.Message, got.body.Message)
	require.Equal(t, string(domain.KindTopup), got.body.Type)
	require.Equal(t, "req-1", got.requestID)
}

func TestHTTPBreakerOpens(t *testing.T) {
	t.Parallel()

	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sink := NewHTTP(srv.URL, time.Second, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < breakerConsecutiveFailures; i++ {
		err := sink.Notify(ctx, randomNotification())
		require.Error(t, err)
		require.False(t, errors.Is(err, errorspkg.ErrUnavailable))
	}

	err := sink.Notify(ctx, randomNotification())
	require.ErrorIs(t, err, errorspkg.ErrUnavailable)
	require.Equal(t, int32(breakerConsecutiveFailures), atomic.LoadInt32(&calls))
}

func TestRedis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	defer client.Close()

	sink := NewRedis(client)
	ctx := context.Background()
	n := randomNotification()

	for i := 0; i < maxInbox+5; i++ {
		require.NoError(t, sink.Notify(ctx, n))
	}

	items, err := mr.List(Key(n.AccountID))
	require.NoError(t, err)
	require.Len(t, items, maxInbox)

	var stored domain.Notification
	require.NoError(t, json.Unmarshal([]byte(items[0]), &stored))
	require.Equal(t, n.AccountID, stored.AccountID)
	require.Equal(t, n.Message, stored.Message)
	require.False(t, stored.CreatedAt.IsZero())
}

func TestRedisUnavailable(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})

	defer client.Close()

	mr.Close()

	err = NewRedis(client).Notify(context.Background(), randomNotification())
	require.Error(t, err)
}

type failingSink struct{ err error }

func (f failingSink) Notify(context.Context, domain.Notification) error { return f.err }

func TestMulti(t *testing.T) {
	t.Parallel()

	errA := errors.New("a")
	errB := errors.New("b")

	err := NewMulti(NewLog(), failingSink{errA}, failingSink{errB}).Notify(context.Background(), randomNotification())
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)

	require.NoError(t, NewMulti(NewLog()).Notify(context.Background(), randomNotification()))
}
