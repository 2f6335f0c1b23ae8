package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/storefront/internal/bootstrap"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/infrastructure/kinesis"
	"github.com/example/storefront/internal/logging"
	"github.com/example/storefront/internal/notification"
	"github.com/rs/zerolog/log"
)

var notifier *notification.Handler

func init() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	logging.Setup(cfg.AppName+"-lambda-notifier", cfg.LogLevel, "json")

	backend, err := bootstrap.Backend(context.Background(), cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot open store")
	}
	notifier = bootstrap.Notifier(cfg, backend.Repositories().Users)
	log.Info().Str("smtp_host", cfg.SMTPHost).Msg("lambda notifier initialized")
}

func handler(ctx context.Context, batch events.KinesisEvent) (events.KinesisEventResponse, error) {
	resp := kinesis.HandleBatch(ctx, batch, notifier.HandleEvent)
	log.Info().
		Int("records", len(batch.Records)).
		Int("failures", len(resp.BatchItemFailures)).
		Msg("batch processed")
	return resp, nil
}

func main() {
	lambda.Start(handler)
}
