// Package reconciliationdelivery manages delivery layer of compensation failures.
package reconciliationdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-wallet/internal/domain"
	"github.com/go-petr/pet-wallet/pkg/errorspkg"
	"github.com/go-petr/pet-wallet/pkg/web"
)

// Service provides service layer interface needed by reconciliation delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package reconciliationdelivery
type Service interface {
	ListUnresolved(ctx context.Context, pageSize, pageID int32) ([]domain.CompensationFailure, error)
	Resolve(ctx context.Context, id int64) (domain.CompensationFailure, error)
}

// Handler facilitates reconciliation delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns reconciliation handler.
func NewHandler(rs Service) *Handler {
	return &Handler{service: rs}
}

type listRequest struct {
	PageID   int32 `form:"page_id" binding:"omitempty,min=1"`
	PageSize int32 `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type dataFailures struct {
	Failures []domain.CompensationFailure `json:"failures"`
}

type responseFailures struct {
	Data dataFailures `json:"data,omitempty"`
}

// List handles http request to list open compensation failures.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindErrorMsg(err)})

		return
	}

	if req.PageID == 0 {
		req.PageID = 1
	}

	if req.PageSize == 0 {
		req.PageSize = 50
	}

	failures, err := h.service.ListUnresolved(ctx, req.PageSize, req.PageID)
	if err != nil {
		l.Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	if failures == nil {
		failures = []domain.CompensationFailure{}
	}

	gctx.JSON(http.StatusOK, responseFailures{Data: dataFailures{failures}})
}

type resolveRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

type dataFailure struct {
	Failure domain.CompensationFailure `json:"failure"`
}

type responseFailure struct {
	Data dataFailure `json:"data,omitempty"`
}

// Resolve handles http request to mark a compensation failure as reconciled.
func (h *Handler) Resolve(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req resolveRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindErrorMsg(err)})

		return
	}

	failure, err := h.service.Resolve(ctx, req.ID)
	if err != nil {
		if errors.Is(err, domain.ErrCompensationFailureNotFound) {
			gctx.JSON(http.StatusNotFound, web.Error(domain.ErrCompensationFailureNotFound))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, responseFailure{Data: dataFailure{failure}})
}
