package initializers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/papeleria-1x1/checkout-api/events"
	"github.com/papeleria-1x1/checkout-api/payments"
	"github.com/papeleria-1x1/checkout-api/services"
	"github.com/papeleria-1x1/checkout-api/shipping"
	"github.com/papeleria-1x1/checkout-api/store"
)

// ServiceContext carries every collaborator the handlers and jobs need.
// It is built once at startup; missing credentials degrade to null
// objects instead of failing the boot.
type ServiceContext struct {
	Config   *Config
	Log      *zap.Logger
	Store    store.OrderStore
	Payments payments.Provider
	Shipping *shipping.Quoter
	Events   events.Publisher
	Orders   *services.Orders
	Now      func() time.Time
}

func NewServiceContext(ctx context.Context, cfg *Config, log *zap.Logger) *ServiceContext {
	sc := &ServiceContext{
		Config:   cfg,
		Log:      log,
		Store:    openStore(ctx, cfg, log),
		Payments: openPayments(cfg, log),
		Events:   openEvents(cfg, log),
		Now:      time.Now,
	}

	var rates shipping.RateProvider = shipping.Disabled{}
	if cfg.SkydropxAPIKey != "" {
		rates = shipping.NewSkydropx(cfg.SkydropxAPIKey, cfg.SkydropxBaseURL, cfg.SkydropxSandboxURL, log.Named("skydropx"))
	} else {
		log.Warn("SKYDROPX_API_KEY not set, shipping quotes disabled")
	}
	sc.Shipping = shipping.NewQuoter(rates, log.Named("shipping"))

	sc.Orders = services.NewOrders(services.Options{
		Store:            sc.Store,
		Payments:         sc.Payments,
		Events:           sc.Events,
		Log:              log.Named("orders"),
		Now:              sc.Now,
		ClientURL:        cfg.ClientURL,
		ClientTimestamps: cfg.TimestampSource == TimestampClient,
	})
	return sc
}

func (sc *ServiceContext) Close() {
	sc.Events.Close()
	if err := sc.Store.Close(); err != nil {
		sc.Log.Warn("closing order store", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *Config, log *zap.Logger) store.OrderStore {
	var (
		s   store.OrderStore
		err error
	)
	switch cfg.StoreDriver {
	case StoreMemory:
		log.Warn("using in-memory order store, data is lost on restart")
		return store.NewMemory(nil)
	case StoreMySQL:
		s, err = openMySQL(cfg.MySQLDSN)
	case StoreMongo:
		s, err = store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDB, nil)
	default:
		s, err = store.NewFirebase(ctx, cfg.FirebaseDatabaseURL, cfg.FirebaseCredentials)
	}
	if err != nil {
		log.Error("order store unavailable, orders will not be persisted",
			zap.String("driver", cfg.StoreDriver), zap.Error(err))
		return store.Nop{}
	}
	log.Info("order store ready", zap.String("driver", cfg.StoreDriver))
	return s
}

func openMySQL(dsn string) (store.OrderStore, error) {
	db, err := ConnectToDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := SyncDatabase(db); err != nil {
		return nil, err
	}
	return store.NewGorm(db, nil), nil
}

func openPayments(cfg *Config, log *zap.Logger) payments.Provider {
	p, err := payments.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret, nil)
	if err != nil {
		log.Warn("STRIPE_SECRET_KEY missing or not a secret key, card payments disabled")
		return payments.Disabled{}
	}
	if cfg.StripeWebhookSecret == "" {
		log.Warn("STRIPE_WEBHOOK_SECRET not set, webhooks will be rejected")
	}
	return p.WithLogger(log.Named("stripe"))
}

func openEvents(cfg *Config, log *zap.Logger) events.Publisher {
	if cfg.NatsURL == "" {
		return events.Noop{}
	}
	p, err := events.NewNATS(cfg.NatsURL, log.Named("nats"))
	if err != nil {
		log.Warn("nats unavailable, order events disabled", zap.Error(err))
		return events.Noop{}
	}
	return p
}
