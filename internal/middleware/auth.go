package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/pet-wallet/pkg/errorspkg"
	"github.com/go-petr/pet-wallet/pkg/tokenpkg"
	"github.com/go-petr/pet-wallet/pkg/web"
	"github.com/rs/zerolog"
)

// Authorization header layout and the gin context key holding the verified payload.
const (
	AuthHeaderKey  = "authorization"
	AuthTypeBearer = "bearer"
	AuthPayloadKey = "authorization_payload"
)

var (
	// ErrAuthHeaderNotFound indicates a request without the authorization header.
	ErrAuthHeaderNotFound = errors.New("authorization header is not provided")
	// ErrBadAuthHeaderFormat indicates an authorization header that is not "<type> <token>".
	ErrBadAuthHeaderFormat = errors.New("invalid authorization header format")
	// ErrUnsupportedAuthType indicates an authorization type other than bearer.
	ErrUnsupportedAuthType = errors.New("unsupported authorization type")
	// ErrForbidden indicates a verified caller without the required role.
	ErrForbidden = errors.New("forbidden")

	errInternal = errorspkg.ErrInternal
)

// AddAuthorization creates a token for the account and sets it as the request's authorization header.
func AddAuthorization(
	request *http.Request,
	tokenMaker tokenpkg.Maker,
	authorizationType string,
	accountID string,
	role string,
	duration time.Duration,
) error {
	token, _, err := tokenMaker.CreateToken(accountID, role, duration)
	if err != nil {
		return err
	}

	authorizationHeader := fmt.Sprintf("%s %s", authorizationType, token)
	request.Header.Set(AuthHeaderKey, authorizationHeader)

	return nil
}

// AuthMiddleware verifies the bearer token and stores its payload in the gin context.
func AuthMiddleware(tokenMaker tokenpkg.Maker) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		l := zerolog.Ctx(gctx.Request.Context())

		authorizationHeader := gctx.GetHeader(AuthHeaderKey)
		if len(authorizationHeader) == 0 {
			l.Info().Err(ErrAuthHeaderNotFound).Send()
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrAuthHeaderNotFound))

			return
		}

		fields := strings.Fields(authorizationHeader)
		if len(fields) < 2 {
			l.Info().Err(ErrBadAuthHeaderFormat).Send()
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrBadAuthHeaderFormat))

			return
		}

		authorizationType := strings.ToLower(fields[0])
		if authorizationType != AuthTypeBearer {
			l.Info().Err(ErrUnsupportedAuthType).Str("type", authorizationType).Send()
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrUnsupportedAuthType))

			return
		}

		payload, err := tokenMaker.VerifyToken(fields[1])
		if err != nil {
			l.Info().Err(err).Send()
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(err))

			return
		}

		ctx := l.With().Str("account", payload.AccountID).Logger().WithContext(gctx.Request.Context())
		gctx.Request = gctx.Request.WithContext(ctx)

		gctx.Set(AuthPayloadKey, payload)
		gctx.Next()
	}
}

// Payload returns the verified token payload stored by AuthMiddleware.
func Payload(gctx *gin.Context) *tokenpkg.Payload {
	return gctx.MustGet(AuthPayloadKey).(*tokenpkg.Payload)
}

// RequireRole rejects callers whose token does not carry the role.
func RequireRole(role string) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		if Payload(gctx).Role != role {
			zerolog.Ctx(gctx.Request.Context()).Warn().Str("required_role", role).Msg("access denied")
			gctx.AbortWithStatusJSON(http.StatusForbidden, web.Error(ErrForbidden))

			return
		}

		gctx.Next()
	}
}
