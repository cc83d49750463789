package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "authkit/docs" // swagger docs

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"authkit/internal/auth"
	"authkit/internal/cache"
	"authkit/internal/config"
	"authkit/internal/db"
	"authkit/internal/handler"
	"authkit/internal/middleware"
	"authkit/internal/queue"
	"authkit/internal/repository"
	"authkit/internal/router"
	"authkit/internal/service"
)

// @title Authkit API
// @version 1.0
// @description Account registration, cookie sessions, email verification and password recovery.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name token
// @description Session token set by /login and /register.
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := newLogger(cfg)

	gormDB, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database init")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate")
	}

	var cacheClient *cache.Client
	var notifier service.Notifier = queue.NewLogNotifier(cfg.ClientURL, log)
	var worker *queue.Worker
	if cfg.RedisAddr != "" {
		cacheClient = cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer cacheClient.Close()
		if err := cacheClient.Ping(context.Background()); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, cache and throttle fail open")
		}

		redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB}
		asynqNotifier := queue.NewAsynqNotifier(redisOpt, log)
		defer asynqNotifier.Close()
		notifier = asynqNotifier

		worker = queue.NewWorker(redisOpt, cfg.ClientURL, log)
		go func() {
			if err := worker.Run(); err != nil {
				log.Error().Err(err).Msg("notification worker stopped")
			}
		}()
	} else {
		log.Warn().Msg("REDIS_ADDR not set, action token links are logged instead of queued")
	}

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(gormDB)

	// Initialize auth components
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	tokenService := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	actionTokens := auth.NewActionTokens(cfg.ActionTokenSecret)
	throttle := auth.NewActionThrottle(cacheClient, cfg.ActionResendCooldown)
	cookie := auth.NewSessionCookie(cfg.SessionTTL, cfg.CookieSecure, cfg.CookieSameSite, cfg.CookieDomain)

	// Initialize services
	authService := service.NewAuthService(accountRepo, hasher, tokenService, cookie, log)
	accountService := service.NewAccountService(accountRepo, hasher, cacheClient)
	verificationService := service.NewVerificationService(
		accountRepo, hasher, actionTokens, throttle, notifier, cacheClient,
		service.TokenLifetimes{Verify: cfg.VerifyTokenTTL, Reset: cfg.ResetTokenTTL},
		log,
	)

	e := echo.New()
	e.HideBanner = true

	// Register routes
	if err := router.Register(
		e,
		cfg,
		log,
		middleware.NewAccess(authService, accountRepo),
		handler.NewAuthHandler(authService),
		handler.NewUserHandler(accountService),
		handler.NewVerificationHandler(verificationService),
		handler.NewSeedHandler(accountService),
	); err != nil {
		log.Fatal().Err(err).Msg("register routes")
	}

	go func() {
		addr := ":" + cfg.ServerPort
		log.Info().Str("addr", addr).Str("swagger", "http://localhost"+addr+"/swagger/index.html").Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if worker != nil {
		worker.Shutdown()
	}
	log.Info().Msg("server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.LogPretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}
