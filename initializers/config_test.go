package initializers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/papeleria-1x1/checkout-api/events"
	"github.com/papeleria-1x1/checkout-api/payments"
	"github.com/papeleria-1x1/checkout-api/store"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CLIENT_URL", "https://shop.example/")
	t.Setenv("STORE_DRIVER", "Memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "https://shop.example", cfg.ClientURL)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 30*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, 10*time.Second, cfg.CleanupInitialDelay)
	assert.Equal(t, TimestampServer, cfg.TimestampSource)
	assert.Equal(t, "https://api.skydropx.com", cfg.SkydropxBaseURL)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestNewServiceContextDegradesWithoutCredentials(t *testing.T) {
	cfg := &Config{
		StoreDriver:     StoreFirebase,
		ClientURL:       "https://shop.example",
		StripeSecretKey: "pk_test_publishable",
		TimestampSource: TimestampServer,
	}

	sc := NewServiceContext(context.Background(), cfg, zap.NewNop())
	defer sc.Close()

	assert.IsType(t, store.Nop{}, sc.Store)
	assert.IsType(t, payments.Disabled{}, sc.Payments)
	assert.IsType(t, events.Noop{}, sc.Events)
	assert.False(t, sc.Shipping.Enabled())
	assert.False(t, sc.Orders.CardPaymentsEnabled())
}

func TestNewServiceContextWithStripeAndMemory(t *testing.T) {
	cfg := &Config{
		StoreDriver:         StoreMemory,
		StripeSecretKey:     "sk_test_123",
		StripeWebhookSecret: "whsec_1",
		SkydropxAPIKey:      "key",
		TimestampSource:     TimestampServer,
	}

	sc := NewServiceContext(context.Background(), cfg, zap.NewNop())
	defer sc.Close()

	assert.IsType(t, &store.Memory{}, sc.Store)
	assert.True(t, sc.Payments.Enabled())
	assert.True(t, sc.Shipping.Enabled())
}
