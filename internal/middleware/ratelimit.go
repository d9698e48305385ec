package middleware

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/pet-wallet/pkg/tokenpkg"
	"github.com/go-petr/pet-wallet/pkg/web"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrTooManyRequests indicates that the caller exceeded its request rate.
var ErrTooManyRequests = errors.New("too many requests")

// RateLimiter hands out one token bucket per account.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter returns a limiter allowing rps requests per second with the given burst per account.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lim, ok := rl.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[key] = lim
	}

	return lim
}

// Allow reports whether the key may make a request now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.get(key).Allow()
}

// RateLimit rejects requests of an account over its rate with 429.
// It must run after AuthMiddleware; unauthenticated requests are keyed by client ip.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		key := gctx.ClientIP()
		if p, ok := gctx.Get(AuthPayloadKey); ok {
			key = p.(*tokenpkg.Payload).AccountID
		}

		if !rl.Allow(key) {
			zerolog.Ctx(gctx.Request.Context()).Warn().Str("key", key).Msg("rate limited")
			gctx.AbortWithStatusJSON(http.StatusTooManyRequests, web.Error(ErrTooManyRequests))

			return
		}

		gctx.Next()
	}
}
