package walletdelivery

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/go-petr/pet-wallet/internal/middleware"
	"github.com/go-petr/pet-wallet/pkg/errorspkg"
	"github.com/go-petr/pet-wallet/pkg/randompkg"
	"github.com/go-petr/pet-wallet/pkg/tokenpkg"
	"github.com/go-petr/pet-wallet/pkg/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func randomWallet(accountID string) domain.Wallet {
	now := time.Now().UTC()

	return domain.Wallet{
		AccountID: accountID,
		Balance:   randompkg.MoneyAmountBetween(1, 1000),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type testCase struct {
	name           string
	setupAuth      func(t *testing.T, r *http.Request) error
	buildStubs     func(walletService *MockService)
	wantStatusCode int
	wantError      string
	wantWallet     domain.Wallet
}

func runTestCases(t *testing.T, method string, tokenMaker tokenpkg.Maker, testCases []testCase) {
	t.Helper()

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Initialize mocks
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			walletService := NewMockService(ctrl)
			walletHandler := NewHandler(walletService)

			server := gin.New()
			server.Use(middleware.AuthMiddleware(tokenMaker))
			server.POST("/wallets", walletHandler.Create)
			server.GET("/wallets", walletHandler.Get)

			tc.buildStubs(walletService)

			// Send request
			req, err := http.NewRequest(method, "/wallets", nil)
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			if err = tc.setupAuth(t, req); err != nil {
				t.Fatalf("tc.setupAuth(t, %+v) returned error: %v", req, err)
			}

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			// Test response
			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			got := &struct {
				Wallet domain.Wallet `json:"wallet"`
			}{}
			res := web.Response{Data: got}

			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Errorf("Decoding response body error: %v", err)
			}

			if tc.wantError != "" || res.Error != "" {
				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}

				return
			}

			compareTime := cmpopts.EquateApproxTime(time.Second)
			if diff := cmp.Diff(tc.wantWallet, got.Wallet, compareTime, cmp.Comparer(decimal.Decimal.Equal)); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreate(t *testing.T) {
	accountID := randompkg.AccountID()
	wallet := randomWallet(accountID)
	wallet.Balance = decimal.Zero

	tokenMaker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	if err != nil {
		t.Fatalf("tokenpkg.NewPasetoMaker returned error: %v", err)
	}

	setupAuth := func(t *testing.T, r *http.Request) error {
		return middleware.AddAuthorization(r, tokenMaker, middleware.AuthTypeBearer, accountID, tokenpkg.RoleUser, time.Minute)
	}

	testCases := []testCase{
		{
			name:      "OK",
			setupAuth: setupAuth,
			buildStubs: func(walletService *MockService) {
				walletService.EXPECT().
					Create(gomock.Any(), gomock.Eq(accountID)).
					Times(1).
					Return(wallet, nil)
			},
			wantStatusCode: http.StatusCreated,
			wantWallet:     wallet,
		},
		{
			name: "NoAuthorization",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return nil
			},
			buildStubs: func(walletService *MockService) {
				walletService.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      middleware.ErrAuthHeaderNotFound.Error(),
		},
		{
			name:      "ErrWalletAlreadyExists",
			setupAuth: setupAuth,
			buildStubs: func(walletService *MockService) {
				walletService.EXPECT().
					Create(gomock.Any(), gomock.Eq(accountID)).
					Times(1).
					Return(domain.Wallet{}, domain.ErrWalletAlreadyExists)
			},
			wantStatusCode: http.StatusConflict,
			wantError:      domain.ErrWalletAlreadyExists.Error(),
		},
		{
			name:      "InternalServerError",
			setupAuth: setupAuth,
			buildStubs: func(walletService *MockService) {
				walletService.EXPECT().
					Create(gomock.Any(), gomock.Eq(accountID)).
					Times(1).
					Return(domain.Wallet{}, errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	runTestCases(t, http.MethodPost, tokenMaker, testCases)
}

func TestGet(t *testing.T) {
	accountID := randompkg.AccountID()
	wallet := randomWallet(accountID)

	tokenMaker, err := tokenpkg.NewJWTMaker(randompkg.String(32))
	if err != nil {
		t.Fatalf("tokenpkg.NewJWTMaker returned error: %v", err)
	}

	setupAuth := func(t *testing.T, r *http.Request) error {
		return middleware.AddAuthorization(r, tokenMaker, middleware.AuthTypeBearer, accountID, tokenpkg.RoleUser, time.Minute)
	}

	testCases := []testCase{
		{
			name:      "OK",
			setupAuth: setupAuth,
			buildStubs: func(walletService *MockService) {
				walletService.EXPECT().
					Get(gomock.Any(), gomock.Eq(accountID)).
					Times(1).
					Return(wallet, nil)
			},
			wantStatusCode: http.StatusOK,
			wantWallet:     wallet,
		},
		{
			name: "ExpiredToken",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, middleware.AuthTypeBearer, accountID, tokenpkg.RoleUser, -time.Minute)
			},
			buildStubs: func(walletService *MockService) {
				walletService.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      tokenpkg.ErrExpiredToken.Error(),
		},
		{
			name:      "ErrWalletNotFound",
			setupAuth: setupAuth,
			buildStubs: func(walletService *MockService) {
				walletService.EXPECT().
					Get(gomock.Any(), gomock.Eq(accountID)).
					Times(1).
					Return(domain.Wallet{}, domain.ErrWalletNotFound)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      domain.ErrWalletNotFound.Error(),
		},
		{
			name:      "InternalError",
			setupAuth: setupAuth,
			buildStubs: func(walletService *MockService) {
				walletService.EXPECT().
					Get(gomock.Any(), gomock.Eq(accountID)).
					Times(1).
					Return(domain.Wallet{}, sql.ErrConnDone)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	runTestCases(t, http.MethodGet, tokenMaker, testCases)
}
