package commence

import (
	"context"
	"log/slog"

	"github.com/ngduyd/ecommerce-payments/pkg/config"
	"github.com/ngduyd/ecommerce-payments/pkg/database"
	"github.com/ngduyd/ecommerce-payments/pkg/dispatcher"
	"github.com/ngduyd/ecommerce-payments/pkg/events"
	"github.com/ngduyd/ecommerce-payments/pkg/ledger"
	"github.com/ngduyd/ecommerce-payments/pkg/notify"
	"github.com/ngduyd/ecommerce-payments/pkg/orders"
	"github.com/ngduyd/ecommerce-payments/pkg/payments"
	"github.com/ngduyd/ecommerce-payments/pkg/payments/cod"
	stripepay "github.com/ngduyd/ecommerce-payments/pkg/payments/stripe"
	"github.com/ngduyd/ecommerce-payments/pkg/payments/vnpay"
	"github.com/ngduyd/ecommerce-payments/pkg/payments/zalopay"
	"github.com/ngduyd/ecommerce-payments/pkg/resolvers"
	"github.com/ngduyd/ecommerce-payments/pkg/storage"
	"github.com/ngduyd/ecommerce-payments/pkg/web"
)

// Start boots the payment service components in dependency order:
// config, storage, payment channels, event handler, then the HTTP
// surface. The returned server is ready to mount on a gin engine.
func Start(cfg *config.AppConfig) (*web.Server, error) {
	config.Config = cfg

	if err := database.Open(cfg.Database.DSN); err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(); err != nil {
		return nil, err
	}

	store := storage.NewGormStore(database.Database())
	lg := ledger.New(store)

	coordinator := orders.NewCoordinator()
	events.SetEventHandler(coordinator)

	err := payments.Register(
		&cod.COD{},
		zalopay.New(zalopay.Config{
			AppID:       cfg.ZaloPay.AppID,
			Key1:        cfg.ZaloPay.Key1,
			Key2:        cfg.ZaloPay.Key2,
			Endpoint:    cfg.ZaloPay.Endpoint,
			CallbackURL: cfg.ZaloPay.CallbackURL,
			ReturnURL:   cfg.ZaloPay.ReturnURL,
		}),
		vnpay.New(vnpay.Config{
			TmnCode:    cfg.VNPay.TmnCode,
			HashSecret: cfg.VNPay.HashSecret,
			PayURL:     cfg.VNPay.PayURL,
			ReturnURL:  cfg.VNPay.ReturnURL,
		}),
		stripepay.New(stripepay.Config{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			SuccessURL:    cfg.Stripe.SuccessURL,
			CancelURL:     cfg.Stripe.CancelURL,
		}),
	)
	if err != nil {
		return nil, err
	}

	var notifier dispatcher.Notifier
	if cfg.AWS.SQSQueueURL != "" {
		n, err := notify.NewSQS(context.Background(), notify.Config{
			Region:    cfg.AWS.Region,
			AccessKey: cfg.AWS.AccessKey,
			Secret:    cfg.AWS.Secret,
			QueueURL:  cfg.AWS.SQSQueueURL,
		})
		if err != nil {
			// The queue is a downstream convenience; reconciliation
			// works without it.
			slog.Warn("payment event queue unavailable", "error", err)
		} else {
			notifier = n
		}
	}

	d := dispatcher.New(store, lg, coordinator, notifier)
	r := resolvers.New(store, lg, d)
	return web.NewServer(r, d, store), nil
}
