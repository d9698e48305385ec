package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-wallet/cmd/httpserver"
	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/go-petr/pet-wallet/internal/middleware"
	"github.com/go-petr/pet-wallet/pkg/configpkg"
	"github.com/go-petr/pet-wallet/pkg/randompkg"
	"github.com/go-petr/pet-wallet/pkg/tokenpkg"
	"github.com/go-petr/pet-wallet/pkg/web"
)

func memoryConfig() configpkg.Config {
	return configpkg.Config{
		DBDriver:             configpkg.DriverMemory,
		TokenType:            tokenpkg.TypePaseto,
		TokenSymmetricKey:    randompkg.String(32),
		LedgerTimeout:        time.Second,
		NotifyTimeout:        time.Second,
		CompensationAttempts: 3,
		CompensationBackoff:  time.Millisecond,
		Notifier:             "log",
		RateLimitRPS:         1000,
		RateLimitBurst:       1000,
		ReconcileSchedule:    "@every 1m",
	}
}

type client struct {
	t          *testing.T
	server     *httpserver.Server
	tokenMaker tokenpkg.Maker
}

func newClient(t *testing.T) client {
	t.Helper()

	gin.SetMode(gin.ReleaseMode)

	config := memoryConfig()

	server, err := httpserver.New(nil, zerolog.Nop(), config)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, server.Close(context.Background()))
	})

	tokenMaker, err := tokenpkg.NewMaker(config.TokenType, config.TokenSymmetricKey)
	require.NoError(t, err)

	return client{t: t, server: server, tokenMaker: tokenMaker}
}

func (c client) do(method, path, accountID, role string, body any, data any) (int, string) {
	c.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if accountID != "" {
		require.NoError(c.t, middleware.AddAuthorization(req, c.tokenMaker, middleware.AuthTypeBearer, accountID, role, time.Minute))
	}

	recorder := httptest.NewRecorder()
	c.server.ServeHTTP(recorder, req)

	res := web.Response{Data: data}
	require.NoError(c.t, json.Unmarshal(recorder.Body.Bytes(), &res))

	return recorder.Code, res.Error
}

type resultData struct {
	Result domain.TransferResult `json:"result"`
}

type walletData struct {
	Wallet domain.Wallet `json:"wallet"`
}

type transactionsData struct {
	Transactions []domain.Transaction `json:"transactions"`
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "amount = %s, want %s", got, want)
}

func TestWalletScenario(t *testing.T) {
	c := newClient(t)
	a, b := randompkg.AccountID(), randompkg.AccountID()

	code, errMsg := c.do(http.MethodGet, "/wallets", a, tokenpkg.RoleUser, nil, nil)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, domain.ErrWalletNotFound.Error(), errMsg)

	code, _ = c.do(http.MethodPost, "/wallets", a, tokenpkg.RoleUser, nil, nil)
	require.Equal(t, http.StatusCreated, code)

	code, errMsg = c.do(http.MethodPost, "/wallets", a, tokenpkg.RoleUser, nil, nil)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, domain.ErrWalletAlreadyExists.Error(), errMsg)

	var res resultData

	code, _ = c.do(http.MethodPost, "/transactions/topup", a, tokenpkg.RoleUser, gin.H{"amount": 100}, &res)
	require.Equal(t, http.StatusOK, code)
	requireAmount(t, "100", res.Result.Balance)

	code, _ = c.do(http.MethodPost, "/transactions/topup", a, tokenpkg.RoleUser, gin.H{"amount": "50"}, &res)
	require.Equal(t, http.StatusOK, code)
	requireAmount(t, "150", res.Result.Balance)

	code, _ = c.do(http.MethodPost, "/transactions/send", a, tokenpkg.RoleUser, gin.H{"recipient_id": b, "amount": 30}, &res)
	require.Equal(t, http.StatusOK, code)
	requireAmount(t, "120", res.Result.Balance)
	require.Equal(t, domain.KindSend, res.Result.Transaction.Kind)
	require.NotNil(t, res.Result.Transaction.CounterpartyID)
	require.Equal(t, b, *res.Result.Transaction.CounterpartyID)

	sendID := res.Result.Transaction.ID

	var wallet walletData

	code, _ = c.do(http.MethodGet, "/wallets", b, tokenpkg.RoleUser, nil, &wallet)
	require.Equal(t, http.StatusOK, code)
	requireAmount(t, "30", wallet.Wallet.Balance)

	code, errMsg = c.do(http.MethodPost, "/transactions/withdraw", a, tokenpkg.RoleUser, gin.H{"amount": 200}, nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, domain.ErrInsufficientFunds.Error(), errMsg)

	code, _ = c.do(http.MethodGet, "/wallets", a, tokenpkg.RoleUser, nil, &wallet)
	require.Equal(t, http.StatusOK, code)
	requireAmount(t, "120", wallet.Wallet.Balance)

	code, errMsg = c.do(http.MethodPost, "/transactions/send", a, tokenpkg.RoleUser, gin.H{"recipient_id": a, "amount": 1}, nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, domain.ErrSelfTransfer.Error(), errMsg)

	var own transactionsData

	code, _ = c.do(http.MethodGet, "/transactions/user", a, tokenpkg.RoleUser, nil, &own)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, own.Transactions, 3)
	require.Equal(t, sendID, own.Transactions[0].ID)

	var received transactionsData

	code, _ = c.do(http.MethodGet, "/transactions/user", b, tokenpkg.RoleUser, nil, &received)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, received.Transactions, 1)

	code, _ = c.do(http.MethodGet, fmt.Sprintf("/transactions/%d", sendID), b, tokenpkg.RoleUser, nil, nil)
	require.Equal(t, http.StatusOK, code)

	code, errMsg = c.do(http.MethodGet, fmt.Sprintf("/transactions/%d", sendID), randompkg.AccountID(), tokenpkg.RoleUser, nil, nil)
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, domain.ErrAccessDenied.Error(), errMsg)

	code, errMsg = c.do(http.MethodGet, "/transactions", a, tokenpkg.RoleUser, nil, nil)
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, middleware.ErrForbidden.Error(), errMsg)

	var all transactionsData

	code, _ = c.do(http.MethodGet, "/transactions", randompkg.AccountID(), tokenpkg.RoleAdmin, nil, &all)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, all.Transactions, 3)

	code, _ = c.do(http.MethodGet, "/reconciliation/failures", randompkg.AccountID(), tokenpkg.RoleAdmin, nil, nil)
	require.Equal(t, http.StatusOK, code)

	code, errMsg = c.do(http.MethodGet, "/wallets", "", "", nil, nil)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, middleware.ErrAuthHeaderNotFound.Error(), errMsg)
}

func TestBoundaries(t *testing.T) {
	c := newClient(t)
	a, b := randompkg.AccountID(), randompkg.AccountID()
	largest := "99999999999999999999.9999"

	var res resultData

	code, _ := c.do(http.MethodPost, "/transactions/topup", a, tokenpkg.RoleUser, gin.H{"amount": "10"}, &res)
	require.Equal(t, http.StatusOK, code)

	code, errMsg := c.do(http.MethodPost, "/transactions/topup", a, tokenpkg.RoleUser, gin.H{"amount": "1e21"}, nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, errMsg, "below 1e20")

	code, _ = c.do(http.MethodPost, "/transactions/topup", b, tokenpkg.RoleUser, gin.H{"amount": largest}, &res)
	require.Equal(t, http.StatusOK, code)

	code, errMsg = c.do(http.MethodPost, "/transactions/topup", b, tokenpkg.RoleUser, gin.H{"amount": "1"}, nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, domain.ErrBalanceLimit.Error(), errMsg)

	code, errMsg = c.do(http.MethodPost, "/transactions/send", a, tokenpkg.RoleUser, gin.H{"recipient_id": b, "amount": "1"}, nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, domain.ErrBalanceLimit.Error(), errMsg)

	var wallet walletData

	code, _ = c.do(http.MethodGet, "/wallets", a, tokenpkg.RoleUser, nil, &wallet)
	require.Equal(t, http.StatusOK, code)
	requireAmount(t, "10", wallet.Wallet.Balance)

	for _, path := range []string{
		"/transactions/user?page_id=30000000&page_size=100",
		"/transactions/user?page_id=2147483647&page_size=100",
	} {
		var page transactionsData

		code, _ = c.do(http.MethodGet, path, a, tokenpkg.RoleUser, nil, &page)
		require.Equal(t, http.StatusOK, code, path)
		require.Empty(t, page.Transactions, path)
	}

	code, _ = c.do(http.MethodGet, "/transactions?page_id=30000000&page_size=100", randompkg.AccountID(), tokenpkg.RoleAdmin, nil, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = c.do(http.MethodGet, "/reconciliation/failures?page_id=30000000&page_size=100", randompkg.AccountID(), tokenpkg.RoleAdmin, nil, nil)
	require.Equal(t, http.StatusOK, code)
}

func TestHealthAndMetrics(t *testing.T) {
	c := newClient(t)

	recorder := httptest.NewRecorder()
	c.server.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var health map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &health))
	require.Equal(t, map[string]string{
		"status":   "healthy",
		"service":  "wallet",
		"database": "in_memory",
	}, health)

	recorder = httptest.NewRecorder()
	c.server.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.True(t, strings.Contains(recorder.Body.String(), "wallet_http_requests_total"))
}

func TestNewRejectsBadConfig(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(c *configpkg.Config)
	}{
		{
			name:   "UnknownDriver",
			modify: func(c *configpkg.Config) { c.DBDriver = "mysql" },
		},
		{
			name:   "PostgresWithoutConnection",
			modify: func(c *configpkg.Config) { c.DBDriver = configpkg.DriverPostgres },
		},
		{
			name:   "ShortKey",
			modify: func(c *configpkg.Config) { c.TokenSymmetricKey = "short" },
		},
		{
			name:   "UnknownNotifier",
			modify: func(c *configpkg.Config) { c.Notifier = "pigeon" },
		},
		{
			name:   "HTTPNotifierWithoutURL",
			modify: func(c *configpkg.Config) { c.Notifier = "http" },
		},
		{
			name:   "BadSchedule",
			modify: func(c *configpkg.Config) { c.ReconcileSchedule = "whenever" },
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			config := memoryConfig()
			tc.modify(&config)

			_, err := httpserver.New(nil, zerolog.Nop(), config)
			require.Error(t, err)
		})
	}
}
