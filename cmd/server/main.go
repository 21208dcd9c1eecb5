package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/sportshub-ticketing/internal/booking"
	"github.com/iliyamo/sportshub-ticketing/internal/cache"
	"github.com/iliyamo/sportshub-ticketing/internal/config"
	"github.com/iliyamo/sportshub-ticketing/internal/database"
	"github.com/iliyamo/sportshub-ticketing/internal/events"
	"github.com/iliyamo/sportshub-ticketing/internal/handler"
	"github.com/iliyamo/sportshub-ticketing/internal/logging"
	"github.com/iliyamo/sportshub-ticketing/internal/metrics"
	"github.com/iliyamo/sportshub-ticketing/internal/middleware"
	"github.com/iliyamo/sportshub-ticketing/internal/model"
	"github.com/iliyamo/sportshub-ticketing/internal/payment"
	"github.com/iliyamo/sportshub-ticketing/internal/queue"
	"github.com/iliyamo/sportshub-ticketing/internal/repository"
	"github.com/iliyamo/sportshub-ticketing/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logging.Fatal().Err(err).Msg("migrate database")
		}
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		logging.Warn().Msg("redis unavailable; caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	qcfg := config.LoadQueueConfig()
	publisher := queue.NewPublisher(qcfg)
	defer publisher.Close()
	if qcfg.ConsumerEnabled {
		go func() {
			if err := queue.NewConsumer(qcfg).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("booking consumer stopped")
			}
		}()
	}

	tx := repository.NewTxManager(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	seatMaps := repository.NewSeatMapRepo(db)
	seats := repository.NewSeatRepo(db)
	bookings := repository.NewBookingRepo(db)

	if len(cfg.OwnerEmails) > 0 {
		n, err := users.SetRoleByEmail(ctx, model.RoleOwner, cfg.OwnerEmails)
		if err != nil {
			logging.Fatal().Err(err).Msg("promote owners")
		}
		logging.Info().Int64("promoted", n).Int("listed", len(cfg.OwnerEmails)).Msg("owner accounts applied")
	}

	layoutCache := cache.NewSeatMapCache(rdb, cfg.SeatMapCacheTTL, "seatmap")
	coord := booking.NewCoordinator(tx, seatMaps, seats, bookings,
		booking.WithCache(layoutCache),
		booking.WithListener(publisher),
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = router.JSONSerializer{}
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			ev := logging.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				ev = logging.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, middleware.AccessTokenHeader},
	}))
	e.Use(metrics.Middleware())

	router.RegisterRoutes(e, router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users, tokens, tx),
		Booking: handler.NewBookingHandler(coord),
		Stadium: &handler.StadiumHandler{
			Layouts:  coord,
			SeatMaps: seatMaps,
			Seats:    seats,
			Tx:       tx,
			Cache:    layoutCache,
		},
		Events: &handler.EventsHandler{Source: events.NewClient(config.LoadEventsConfig())},
		Payment: &handler.PaymentHandler{
			Processor: payment.NewProcessor(config.LoadPaymentConfig(), repository.NewPaymentRepo(db)),
			Bookings:  bookings,
		},
		Health:      handler.Health(db),
		JWTSecret:   cfg.JWTSecret,
		Users:       users,
		RateLimit:   middleware.RateLimit(config.LoadRateLimitConfig(), rdb),
		EventsCache: middleware.ResponseCache(config.LoadCacheConfig(), rdb),
	})

	addr := ":" + cfg.Port
	go func() {
		logging.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
}
