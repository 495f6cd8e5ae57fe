package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/library-lifecycle/internal/config"
	"github.com/iliyamo/library-lifecycle/internal/database"
	"github.com/iliyamo/library-lifecycle/internal/handler"
	"github.com/iliyamo/library-lifecycle/internal/lifecycle"
	"github.com/iliyamo/library-lifecycle/internal/middleware"
	"github.com/iliyamo/library-lifecycle/internal/policy"
	"github.com/iliyamo/library-lifecycle/internal/queue"
	"github.com/iliyamo/library-lifecycle/internal/repository"
	"github.com/iliyamo/library-lifecycle/internal/review"
	"github.com/iliyamo/library-lifecycle/internal/router"
	"github.com/iliyamo/library-lifecycle/internal/service"
)

func setupLogger(env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	if env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return log.Logger
}

func main() {
	cfg := config.Load()
	logger := setupLogger(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal().Err(err).Msg("database open failed")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("schema bootstrap failed")
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	}

	pol := policy.Default()
	opts := []lifecycle.Option{
		lifecycle.WithLogger(logger.With().Str("component", "lifecycle").Logger()),
		lifecycle.WithLoanPeriod(cfg.Library.LoanPeriod),
		lifecycle.WithDailyRate(cfg.Library.FineDailyRateCents),
	}
	if cfg.RabbitURL != "" {
		pub := service.NewEventPublisher(cfg.RabbitURL, logger)
		defer pub.Close()
		opts = append(opts, lifecycle.WithPublisher(pub))

		consumer := &queue.Consumer{URL: cfg.RabbitURL, LogDir: "logs", Log: logger.With().Str("component", "consumer").Logger()}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("lifecycle consumer stopped")
			}
		}()
	}
	engine := lifecycle.New(repository.NewStore(db), pol, opts...)
	logger.Info().
		Dur("loan_period", engine.LoanPeriod()).
		Int64("fine_daily_rate_cents", engine.DailyRateCents()).
		Msg("lifecycle engine ready")

	books := repository.NewBookRepo(db)
	users := repository.NewUserRepo(db, cfg.BcryptCost)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger))

	router.Register(e, router.Deps{
		JWTSecret: cfg.JWTSecret,
		Policy:    pol,
		Cache:     middleware.NewResponseCache(config.LoadCacheConfig(), rdb, logger),
		DB:        db,
		Auth:      handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db), logger),
		Books:     handler.NewBookHandler(books, logger),
		Authors:   handler.NewAuthorHandler(repository.NewAuthorRepo(db), logger),
		Reviews:   handler.NewReviewHandler(review.NewService(repository.NewReviewRepo(db), books), logger),
		Users:     handler.NewUserHandler(users, logger),
		Ledgers: handler.NewLedgerHandler(
			repository.NewBorrowRecordRepo(db),
			repository.NewReservationRepo(db),
			repository.NewFineRepo(db),
			logger,
		),
		Lifecycle: handler.NewLifecycleHandler(engine, logger),
	})

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", echo.HeaderXRequestID},
			ExposedHeaders:   []string{echo.HeaderXRequestID, "X-Cache", "Retry-After"},
			AllowCredentials: false,
		}).Handler(e),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}
