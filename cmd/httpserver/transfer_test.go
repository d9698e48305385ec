//go:build integration

package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/go-petr/pet-wallet/internal/integrationtest"
	"github.com/go-petr/pet-wallet/internal/middleware"
	"github.com/go-petr/pet-wallet/internal/walletrepo"
	"github.com/go-petr/pet-wallet/pkg/tokenpkg"
	"github.com/go-petr/pet-wallet/pkg/web"
)

func TestSendAPI(t *testing.T) {
	server := integrationtest.SetupServer(t)

	origin := integrationtest.SeedWallet(t, server.DB, decimal.NewFromInt(150))
	recipient := integrationtest.SeedWallet(t, server.DB, decimal.Zero)

	tokenMaker, err := tokenpkg.NewMaker(server.Config.TokenType, server.Config.TokenSymmetricKey)
	require.NoError(t, err)

	send := func(from, to string, amount any) (int, web.Response) {
		body, err := json.Marshal(gin.H{"recipient_id": to, "amount": amount})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/transactions/send", bytes.NewReader(body))
		require.NoError(t, middleware.AddAuthorization(req, tokenMaker, middleware.AuthTypeBearer, from, tokenpkg.RoleUser, time.Minute))

		recorder := httptest.NewRecorder()
		server.ServeHTTP(recorder, req)

		res := web.Response{Data: &struct {
			Result domain.TransferResult `json:"result"`
		}{}}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &res))

		return recorder.Code, res
	}

	code, res := send(origin.AccountID, recipient.AccountID, "30")
	require.Equal(t, http.StatusOK, code, res.Error)

	ctx := context.Background()
	repo := walletrepo.NewRepoPGS(server.DB)

	gotOrigin, err := repo.Get(ctx, origin.AccountID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(120).Equal(gotOrigin.Balance))

	gotRecipient, err := repo.Get(ctx, recipient.AccountID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(30).Equal(gotRecipient.Balance))

	code, res = send(origin.AccountID, recipient.AccountID, "500")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, domain.ErrInsufficientFunds.Error(), res.Error)

	// Concurrent sends never overdraw and conserve the total.
	const workers = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)

		req := httptest.NewRequest(http.MethodPost, "/transactions/send",
			bytes.NewReader([]byte(`{"recipient_id":"`+recipient.AccountID+`","amount":"10"}`)))
		require.NoError(t, middleware.AddAuthorization(req, tokenMaker, middleware.AuthTypeBearer,
			origin.AccountID, tokenpkg.RoleUser, time.Minute))

		go func() {
			defer wg.Done()
			server.ServeHTTP(httptest.NewRecorder(), req)
		}()
	}

	wg.Wait()

	gotOrigin, err = repo.Get(ctx, origin.AccountID)
	require.NoError(t, err)
	require.True(t, gotOrigin.Balance.GreaterThanOrEqual(decimal.Zero))

	gotRecipient, err = repo.Get(ctx, recipient.AccountID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(150).Equal(gotOrigin.Balance.Add(gotRecipient.Balance)))
}
