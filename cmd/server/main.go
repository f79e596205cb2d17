package main // Entry point package

import (
	"context"       // shutdown deadline
	"errors"        // distinguishes a clean server close
	"net/http"      // http.ErrServerClosed
	"os"            // exit codes
	"os/signal"     // SIGINT/SIGTERM handling
	"syscall"       // signal numbers
	"time"          // shutdown timeout

	"github.com/labstack/echo/v4" // Echo web framework
	"go.uber.org/zap"             // structured logging

	"github.com/iliyamo/persons-api/internal/config"     // Internal config loader
	"github.com/iliyamo/persons-api/internal/database"   // MySQL pool and migrations
	"github.com/iliyamo/persons-api/internal/handler"    // HTTP handlers
	"github.com/iliyamo/persons-api/internal/logger"     // zap logger construction
	"github.com/iliyamo/persons-api/internal/metrics"    // Prometheus collectors
	"github.com/iliyamo/persons-api/internal/middleware" // JWT auth and rate limiting
	"github.com/iliyamo/persons-api/internal/queue"      // person event publisher
	"github.com/iliyamo/persons-api/internal/repository" // storage
	"github.com/iliyamo/persons-api/internal/router"     // Internal router setup
	"github.com/iliyamo/persons-api/internal/service"    // person upsert engine
	"github.com/iliyamo/persons-api/internal/session"    // auth cookies
	"github.com/iliyamo/persons-api/internal/utils"      // tokens and password hashing
)

const serviceName = "persons-api"

func main() {
	if err := run(); err != nil {
		zap.L().Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.Env, serviceName)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	db, err := database.Open(database.OptionsFrom(cfg))
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.MigrateUp(db); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	// Redis is optional: without it refresh tokens cannot be revoked and the
	// auth endpoints are not rate limited.
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	issuer := utils.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL())
	if rdb != nil {
		defer rdb.Close()
		issuer.WithDenylist(repository.NewTokenRepo(rdb))
	} else {
		log.Warn("redis unavailable; refresh revocation and rate limiting disabled")
	}

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		events = queue.NewPublisher(cfg.RabbitURL)
	}

	m := metrics.New(serviceName)
	cookies := session.NewCookieManager(cfg.IsProd(), cfg.AccessTTL(), cfg.RefreshTTL())
	hasher := utils.NewPasswordHasher(cfg.BcryptCost)
	users := repository.NewUserRepo(db)
	store := repository.NewSQLStore(db)
	auth := middleware.JWTAuth(issuer, cookies)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	router.Use(e, log, m, cfg.CORSOrigins)
	router.RegisterRoutes(e, db, m)
	router.RegisterAuth(e, handler.NewAuthHandler(users, issuer, cookies, hasher, m), limiter, auth)
	router.RegisterAPI(e, auth,
		handler.NewPersonHandler(service.NewPersonService(store, events, log)),
		handler.NewAddressHandler(repository.NewAddressRepo(db)),
		handler.NewUserHandler(users, hasher),
	)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}
