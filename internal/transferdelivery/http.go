// Package transferdelivery manages delivery layer of money movements and their records.
package transferdelivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/go-petr/pet-wallet/internal/middleware"
	"github.com/go-petr/pet-wallet/pkg/errorspkg"
	"github.com/go-petr/pet-wallet/pkg/moneypkg"
	"github.com/go-petr/pet-wallet/pkg/web"
)

// Service provides service layer interface needed by transfer delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transferdelivery
type Service interface {
	Send(ctx context.Context, origin, recipient string, amount decimal.Decimal) (domain.TransferResult, error)
	Topup(ctx context.Context, origin string, amount decimal.Decimal) (domain.TransferResult, error)
	Withdraw(ctx context.Context, origin string, amount decimal.Decimal) (domain.TransferResult, error)
	Get(ctx context.Context, id int64) (domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID string, pageSize, pageID int32) ([]domain.Transaction, error)
	ListAll(ctx context.Context, pageSize, pageID int32) ([]domain.Transaction, error)
}

// Handler facilitates transfer delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transfer handler.
func NewHandler(ts Service) *Handler {
	return &Handler{
		service: ts,
	}
}

type sendRequest struct {
	RecipientID string      `json:"recipient_id" binding:"required"`
	Amount      json.Number `json:"amount" binding:"required,amount"`
}

type amountRequest struct {
	Amount json.Number `json:"amount" binding:"required,amount"`
}

type data struct {
	Result domain.TransferResult `json:"result"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

// writeError renders err with the status of its kind.
func writeError(gctx *gin.Context, err error) {
	l := zerolog.Ctx(gctx.Request.Context())

	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInsufficientFunds):
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(err))
	case errors.Is(err, domain.ErrWalletNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusNotFound, web.Error(err))
	case errors.Is(err, domain.ErrCompensationFailed):
		gctx.JSON(http.StatusInternalServerError, web.Error(domain.ErrCompensationFailed))
	case errors.Is(err, domain.ErrTransferFailed):
		l.Warn().Err(err).Send()
		gctx.JSON(http.StatusBadGateway, web.Error(domain.ErrTransferFailed))
	default:
		l.Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
	}
}

func bindAmount(gctx *gin.Context, raw json.Number) (decimal.Decimal, bool) {
	amount, err := moneypkg.Parse(raw.String())
	if err != nil {
		zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(err))

		return decimal.Zero, false
	}

	return amount, true
}

// Send handles http request to move money from the caller to another account.
func (h *Handler) Send(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req sendRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindErrorMsg(err)})

		return
	}

	amount, ok := bindAmount(gctx, req.Amount)
	if !ok {
		return
	}

	authPayload := middleware.Payload(gctx)

	result, err := h.service.Send(ctx, authPayload.AccountID, req.RecipientID, amount)
	if err != nil {
		writeError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{result}})
}

// Topup handles http request to add external money to the caller's wallet.
func (h *Handler) Topup(gctx *gin.Context) {
	h.move(gctx, h.service.Topup)
}

// Withdraw handles http request to take money out of the caller's wallet.
func (h *Handler) Withdraw(gctx *gin.Context) {
	h.move(gctx, h.service.Withdraw)
}

func (h *Handler) move(gctx *gin.Context, fn func(context.Context, string, decimal.Decimal) (domain.TransferResult, error)) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req amountRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindErrorMsg(err)})

		return
	}

	amount, ok := bindAmount(gctx, req.Amount)
	if !ok {
		return
	}

	authPayload := middleware.Payload(gctx)

	result, err := fn(ctx, authPayload.AccountID, amount)
	if err != nil {
		writeError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{result}})
}

type getRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

type dataTransaction struct {
	Transaction domain.Transaction `json:"transaction"`
}

type responseTransaction struct {
	Data dataTransaction `json:"data,omitempty"`
}

// Get handles http request to get one transaction visible to the caller.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindErrorMsg(err)})

		return
	}

	t, err := h.service.Get(ctx, req.ID)
	if err != nil {
		writeError(gctx, err)
		return
	}

	authPayload := middleware.Payload(gctx)
	if !authPayload.IsAdmin() && !t.VisibleTo(authPayload.AccountID) {
		l.Warn().Err(domain.ErrAccessDenied).Int64("transaction_id", t.ID).Send()
		gctx.JSON(http.StatusForbidden, web.Error(domain.ErrAccessDenied))

		return
	}

	gctx.JSON(http.StatusOK, responseTransaction{Data: dataTransaction{t}})
}

// Default page used when the query leaves it out.
const (
	defaultPageID   = 1
	defaultPageSize = 50
)

type listRequest struct {
	PageID   int32 `form:"page_id" binding:"omitempty,min=1"`
	PageSize int32 `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type dataTransactions struct {
	Transactions []domain.Transaction `json:"transactions"`
}

type responseTransactions struct {
	Data dataTransactions `json:"data,omitempty"`
}

func listResponse(transactions []domain.Transaction) responseTransactions {
	if transactions == nil {
		transactions = []domain.Transaction{}
	}

	return responseTransactions{Data: dataTransactions{transactions}}
}

func bindList(gctx *gin.Context) (listRequest, bool) {
	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindErrorMsg(err)})

		return req, false
	}

	if req.PageID == 0 {
		req.PageID = defaultPageID
	}

	if req.PageSize == 0 {
		req.PageSize = defaultPageSize
	}

	return req, true
}

// ListByAccount handles http request to list the caller's transactions.
func (h *Handler) ListByAccount(gctx *gin.Context) {
	req, ok := bindList(gctx)
	if !ok {
		return
	}

	authPayload := middleware.Payload(gctx)

	transactions, err := h.service.ListByAccount(gctx.Request.Context(), authPayload.AccountID, req.PageSize, req.PageID)
	if err != nil {
		writeError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, listResponse(transactions))
}

// ListAll handles http request to list transactions of every account.
func (h *Handler) ListAll(gctx *gin.Context) {
	req, ok := bindList(gctx)
	if !ok {
		return
	}

	transactions, err := h.service.ListAll(gctx.Request.Context(), req.PageSize, req.PageID)
	if err != nil {
		writeError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, listResponse(transactions))
}
