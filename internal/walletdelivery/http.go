// Package walletdelivery manages delivery layer of wallets.
package walletdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/go-petr/pet-wallet/internal/middleware"
	"github.com/go-petr/pet-wallet/pkg/errorspkg"
	"github.com/go-petr/pet-wallet/pkg/web"
)

// Service provides service layer interface needed by wallet delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package walletdelivery
type Service interface {
	Create(ctx context.Context, accountID string) (domain.Wallet, error)
	Get(ctx context.Context, accountID string) (domain.Wallet, error)
}

// Handler facilitates wallet delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns wallet handler.
func NewHandler(ws Service) Handler {
	return Handler{service: ws}
}

type data struct {
	Wallet domain.Wallet `json:"wallet"`
}
type response struct {
	Data data `json:"data,omitempty"`
}

// Create handles http request to open the caller's wallet.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	authPayload := middleware.Payload(gctx)

	wallet, err := h.service.Create(ctx, authPayload.AccountID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrWalletAlreadyExists):
			gctx.JSON(http.StatusConflict, web.Error(domain.ErrWalletAlreadyExists))
			return
		case errors.Is(err, domain.ErrInvalidArgument):
			gctx.JSON(http.StatusBadRequest, web.Error(err))
			return
		}

		l.Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusCreated, response{Data: data{wallet}})
}

// Get handles http request to get the caller's wallet.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	authPayload := middleware.Payload(gctx)

	wallet, err := h.service.Get(ctx, authPayload.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			gctx.JSON(http.StatusNotFound, web.Error(domain.ErrWalletNotFound))
			return
		}

		l.Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{wallet}})
}
