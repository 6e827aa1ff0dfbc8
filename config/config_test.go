package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, FeedPostgres, cfg.Feed.Driver)
	assert.EqualValues(t, 500, cfg.App.DefaultWallet)
	assert.Equal(t, 3*time.Second, cfg.App.ToastDuration)
	assert.Equal(t, ":5000", cfg.HTTP.Addr)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campus.yaml")
	yml := `
db:
  host: db.internal
  database: eats
feed:
  driver: rabbitmq
  rabbitmq:
    host: mq.internal
payment:
  paypal_delay: 1500ms
app:
  default_wallet: 750
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_HOST", "override.internal")
	t.Setenv("TOAST_DURATION", "2000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "override.internal", cfg.DB.Host)
	assert.Equal(t, "eats", cfg.DB.Database)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, FeedRabbitMQ, cfg.Feed.Driver)
	assert.Equal(t, "mq.internal", cfg.Feed.RabbitMQ.Host)
	assert.Equal(t, 5672, cfg.Feed.RabbitMQ.Port)
	assert.Equal(t, 1500*time.Millisecond, cfg.Payment.PayPalDelay)
	assert.EqualValues(t, 750, cfg.App.DefaultWallet)
	assert.Equal(t, 2*time.Second, cfg.App.ToastDuration)
	assert.Equal(t, "postgres://postgres:@override.internal:5432/eats", cfg.DB.URL())
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown feed", "FEED_DRIVER", "kafka"},
		{"negative wallet", "DEFAULT_WALLET", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", "")
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		val  string
		want time.Duration
	}{
		{"", time.Second},
		{"250", 250 * time.Millisecond},
		{"2s", 2 * time.Second},
		{"soon", time.Second},
	}
	for _, tt := range tests {
		t.Setenv("X_DURATION", tt.val)
		if got := getEnvDuration("X_DURATION", time.Second); got != tt.want {
			t.Errorf("getEnvDuration(%q) = %v, want %v", tt.val, got, tt.want)
		}
	}
}
