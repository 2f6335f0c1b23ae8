// Package bootstrap turns a config.Config into the collaborators the
// binaries share.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/domain/user"
	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/infrastructure/kafka"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/notification"
	"github.com/example/storefront/internal/payment"
	"github.com/rs/zerolog/log"
)

func noop() error { return nil }

// Publisher builds the outbox publisher for cfg.EventSink. A nil Publisher
// means events stay in the outbox table only. The returned close func is
// never nil.
func Publisher(ctx context.Context, cfg config.Config) (store.Publisher, func() error, error) {
	switch cfg.EventSink {
	case config.SinkNone:
		return nil, noop, nil
	case config.SinkKafka:
		p := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		return p, p.Close, nil
	case config.SinkDynamo:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		return store.NewDynamoSink(dynamodb.NewFromConfig(awsCfg), cfg.DynamoEventsTable), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown event sink %q", cfg.EventSink)
	}
}

// Backend opens the configured store. Postgres is migrated on open.
func Backend(ctx context.Context, cfg config.Config, pub store.Publisher) (store.Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return store.NewMemory(pub), nil
	case config.BackendPostgres:
		db, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return store.NewPostgres(db, pub), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func Gateway(cfg config.Config) (payment.Gateway, error) {
	switch cfg.PaymentProvider {
	case config.ProviderMock:
		return payment.NewMockGateway(cfg.PaymentSecret), nil
	case config.ProviderRazorpay:
		return payment.NewRazorpayClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.PaymentTimeout), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
	}
}

// Notifier wires the order email handler to SMTP.
func Notifier(cfg config.Config, users notification.UserLookup) *notification.Handler {
	sender := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	return notification.NewHandler(email.NewService(sender, cfg.Currency), users)
}

// SeedAdmin creates the configured admin account on first start. An
// existing account is left alone.
func SeedAdmin(ctx context.Context, cfg config.Config, users *user.Service) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	u, err := users.RegisterAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, "Administrator")
	if errors.Is(err, user.ErrEmailTaken) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Info().Str("component", "bootstrap").Str("user_id", u.ID).Msg("admin account created")
	return nil
}
