// Package httpserver manages server creation and api routing.
package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-wallet/internal/middleware"
	"github.com/go-petr/pet-wallet/internal/notifier"
	"github.com/go-petr/pet-wallet/internal/reconciliation"
	"github.com/go-petr/pet-wallet/internal/reconciliationdelivery"
	"github.com/go-petr/pet-wallet/internal/reconciliationrepo"
	"github.com/go-petr/pet-wallet/internal/transactionrepo"
	"github.com/go-petr/pet-wallet/internal/transferdelivery"
	"github.com/go-petr/pet-wallet/internal/transferservice"
	"github.com/go-petr/pet-wallet/internal/walletdelivery"
	"github.com/go-petr/pet-wallet/internal/walletrepo"
	"github.com/go-petr/pet-wallet/internal/walletservice"
	"github.com/go-petr/pet-wallet/pkg/configpkg"
	"github.com/go-petr/pet-wallet/pkg/metricspkg"
	"github.com/go-petr/pet-wallet/pkg/moneypkg"
	"github.com/go-petr/pet-wallet/pkg/tokenpkg"
)

const healthTimeout = 2 * time.Second

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config
	Job    *reconciliation.Job

	redis *redis.Client
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// Close stops the reconciliation job and releases the notifier connections.
func (s *Server) Close(ctx context.Context) error {
	s.Job.Stop(ctx)

	if s.redis != nil {
		return s.redis.Close()
	}

	return nil
}

type failureRepo interface {
	transferservice.FailureRepo
	reconciliation.Repo
}

type repos struct {
	wallets      walletservice.Repo
	transactions transferservice.Repo
	failures     failureRepo
}

func newRepos(conn *sql.DB, driver string) (repos, error) {
	switch driver {
	case configpkg.DriverPostgres:
		if conn == nil {
			return repos{}, errors.New("postgres driver needs a db connection")
		}

		return repos{
			wallets:      walletrepo.NewRepoPGS(conn),
			transactions: transactionrepo.NewRepoPGS(conn),
			failures:     reconciliationrepo.NewRepoPGS(conn),
		}, nil
	case configpkg.DriverMemory:
		return repos{
			wallets:      walletrepo.NewRepoMem(),
			transactions: transactionrepo.NewRepoMem(),
			failures:     reconciliationrepo.NewRepoMem(),
		}, nil
	}

	return repos{}, fmt.Errorf("unsupported db driver %q", driver)
}

func newNotifier(config configpkg.Config, logger zerolog.Logger) (transferservice.Notifier, *redis.Client, error) {
	var client *redis.Client
	if config.RedisAddress != "" && (config.Notifier == notifier.SinkRedis || config.Notifier == notifier.SinkAll) {
		client = redis.NewClient(&redis.Options{Addr: config.RedisAddress})
	}

	switch config.Notifier {
	case notifier.SinkLog, "":
		return notifier.NewLog(), nil, nil
	case notifier.SinkHTTP:
		if config.NotificationURL == "" {
			return nil, nil, errors.New("http notifier needs NOTIFICATION_SERVICE_URL")
		}

		return notifier.NewHTTP(config.NotificationURL, config.NotifyTimeout, logger), nil, nil
	case notifier.SinkRedis:
		if client == nil {
			return nil, nil, errors.New("redis notifier needs REDIS_ADDRESS")
		}

		return notifier.NewRedis(client), client, nil
	case notifier.SinkAll:
		sinks := []notifier.Sink{notifier.NewLog()}
		if config.NotificationURL != "" {
			sinks = append(sinks, notifier.NewHTTP(config.NotificationURL, config.NotifyTimeout, logger))
		}

		if client != nil {
			sinks = append(sinks, notifier.NewRedis(client))
		}

		return notifier.NewMulti(sinks...), client, nil
	}

	return nil, nil, fmt.Errorf("unsupported notifier %q", config.Notifier)
}

// New creates Server type with instantiated domains and routes.
//
// conn may be nil when config.DBDriver is memory.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	r, err := newRepos(conn, config.DBDriver)
	if err != nil {
		return nil, err
	}

	tokenMaker, err := tokenpkg.NewMaker(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	sink, redisClient, err := newNotifier(config, logger)
	if err != nil {
		return nil, err
	}

	walletService := walletservice.New(r.wallets)
	transferService := transferservice.New(r.transactions, walletService, r.failures, sink, transferservice.Config{
		LedgerTimeout:        config.LedgerTimeout,
		NotifyTimeout:        config.NotifyTimeout,
		CompensationAttempts: config.CompensationAttempts,
		CompensationBackoff:  config.CompensationBackoff,
	})
	reconciliationService := reconciliation.New(r.failures)

	job, err := reconciliation.NewJob(reconciliationService, config.ReconcileSchedule, logger)
	if err != nil {
		return nil, fmt.Errorf("cannot schedule reconciliation: %w", err)
	}

	walletHandler := walletdelivery.NewHandler(walletService)
	transferHandler := transferdelivery.NewHandler(transferService)
	reconciliationHandler := reconciliationdelivery.NewHandler(reconciliationService)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		err := v.RegisterValidation("amount", moneypkg.ValidAmount)
		if err != nil {
			return nil, errors.New("cannot register amount validator")
		}
	}

	server := &Server{
		DB:     conn,
		Config: config,
		Job:    job,
		redis:  redisClient,
	}

	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())
	engine.Use(metricspkg.GinMiddleware())

	engine.GET("/health", server.health)
	engine.GET("/metrics", gin.WrapH(metricspkg.Handler()))

	limiter := middleware.NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst)

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker), middleware.RateLimit(limiter))

	authRoutes.POST("/wallets", walletHandler.Create)
	authRoutes.GET("/wallets", walletHandler.Get)

	authRoutes.POST("/transactions/send", transferHandler.Send)
	authRoutes.POST("/transactions/topup", transferHandler.Topup)
	authRoutes.POST("/transactions/withdraw", transferHandler.Withdraw)
	authRoutes.GET("/transactions/user", transferHandler.ListByAccount)
	authRoutes.GET("/transactions/:id", transferHandler.Get)

	adminRoutes := engine.Group("/").Use(
		middleware.AuthMiddleware(tokenMaker),
		middleware.RateLimit(limiter),
		middleware.RequireRole(tokenpkg.RoleAdmin),
	)

	adminRoutes.GET("/transactions", transferHandler.ListAll)
	adminRoutes.GET("/reconciliation/failures", reconciliationHandler.List)
	adminRoutes.POST("/reconciliation/failures/:id/resolve", reconciliationHandler.Resolve)

	server.Engine = engine

	return server, nil
}

// Database states reported by /health.
const (
	dbConnected    = "connected"
	dbDisconnected = "disconnected"
	dbInMemory     = "in_memory"
)

func (s *Server) health(gctx *gin.Context) {
	state := dbInMemory

	if s.DB != nil {
		ctx, cancel := context.WithTimeout(gctx.Request.Context(), healthTimeout)
		defer cancel()

		state = dbConnected
		if err := s.DB.PingContext(ctx); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("database ping failed")
			state = dbDisconnected
		}
	}

	gctx.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "wallet",
		"database": state,
	})
}
