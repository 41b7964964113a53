package initializers

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/papeleria-1x1/checkout-api/services"
	"github.com/papeleria-1x1/checkout-api/shipping"
)

const (
	StoreFirebase = "firebase"
	StoreMySQL    = "mysql"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"

	TimestampServer = "server"
	TimestampClient = "client"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"3001"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	GinMode  string `env:"GIN_MODE"`

	ClientURL string `env:"CLIENT_URL" envDefault:"https://papeleria-1x1-y-mas.web.app"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	SkydropxAPIKey     string `env:"SKYDROPX_API_KEY"`
	SkydropxBaseURL    string `env:"SKYDROPX_BASE_URL" envDefault:"https://api.skydropx.com"`
	SkydropxSandboxURL string `env:"SKYDROPX_SANDBOX_URL" envDefault:"https://api-demo.skydropx.com"`

	StoreDriver         string `env:"STORE_DRIVER" envDefault:"firebase"`
	FirebaseCredentials string `env:"FIREBASE_CREDENTIALS"`
	FirebaseDatabaseURL string `env:"FIREBASE_DATABASE_URL" envDefault:"https://papeleria-1x1-y-mas-default-rtdb.firebaseio.com"`
	MySQLDSN            string `env:"MYSQL_DSN"`
	MongoURI            string `env:"MONGO_URI"`
	MongoDB             string `env:"MONGO_DB" envDefault:"papeleria"`

	NatsURL string `env:"NATS_URL"`

	CleanupInterval     time.Duration `env:"CLEANUP_INTERVAL" envDefault:"30m"`
	CleanupInitialDelay time.Duration `env:"CLEANUP_INITIAL_DELAY" envDefault:"10s"`
	TimestampSource     string        `env:"TIMESTAMP_SOURCE" envDefault:"server"`
}

// LoadEnv reads .env when present. A missing file is fine in production.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment.")
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ClientURL = strings.TrimRight(cfg.ClientURL, "/")
	if cfg.ClientURL == "" {
		cfg.ClientURL = services.DefaultClientURL
	}
	if cfg.SkydropxBaseURL == "" {
		cfg.SkydropxBaseURL = shipping.DefaultSkydropxURL
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case StoreFirebase, StoreMySQL, StoreMongo, StoreMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	switch cfg.TimestampSource {
	case TimestampServer, TimestampClient:
	default:
		return nil, fmt.Errorf("unknown TIMESTAMP_SOURCE %q", cfg.TimestampSource)
	}
	if cfg.CleanupInterval <= 0 {
		return nil, fmt.Errorf("CLEANUP_INTERVAL must be positive")
	}
	return cfg, nil
}
