package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/example/storefront/internal/bootstrap"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/infrastructure/kafka"
	"github.com/example/storefront/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	logging.Setup(cfg.AppName+"-notifier", cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The notifier only reads users; it never publishes.
	backend, err := bootstrap.Backend(ctx, cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot open store")
	}
	defer backend.Close()
	if cfg.StoreBackend == config.BackendMemory {
		log.Warn().Msg("memory store has no users shared with the api; emails will be skipped")
	}

	handler := bootstrap.Notifier(cfg, backend.Repositories().Users)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroup)
	defer consumer.Close()

	log.Info().
		Strs("brokers", cfg.KafkaBrokers).
		Str("topic", cfg.KafkaTopic).
		Str("group", cfg.KafkaGroup).
		Str("smtp_host", cfg.SMTPHost).
		Msg("notifier started")

	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("consumer stopped")
	}
	log.Info().Msg("notifier stopped")
}
