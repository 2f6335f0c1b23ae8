package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/bootstrap"
	"github.com/example/storefront/internal/command"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/domain/user"
	"github.com/example/storefront/internal/logging"
	"github.com/example/storefront/internal/query"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	logging.Setup(cfg.AppName, cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pub, closePub, err := bootstrap.Publisher(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot create event publisher")
	}
	defer closePub()

	backend, err := bootstrap.Backend(ctx, cfg, pub)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot open store")
	}
	defer backend.Close()

	gateway, err := bootstrap.Gateway(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot create payment gateway")
	}

	jwtService, err := auth.NewJWTService(cfg.JWTSecret, cfg.AppName, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot create token service")
	}

	repos := backend.Repositories()
	users := user.NewService(repos.Users)
	if err := bootstrap.SeedAdmin(ctx, cfg, users); err != nil {
		log.Fatal().Err(err).Msg("cannot seed admin")
	}

	cmdHandler := command.NewHandler(backend, gateway, cfg.Currency, command.WithPaymentTimeout(cfg.PaymentTimeout))
	queryHandler := query.NewHandler(repos)

	router := api.NewRouter(
		api.NewHandlers(cmdHandler, queryHandler),
		api.NewAuthHandlers(users, jwtService),
		jwtService,
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("store", cfg.StoreBackend).
			Str("event_sink", cfg.EventSink).
			Str("payment_provider", cfg.PaymentProvider).
			Msg("api server started")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
