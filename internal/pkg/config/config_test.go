package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "store-service", cfg.Service.Name)
	assert.Equal(t, 8080, cfg.Service.Port)
	assert.Equal(t, "orders", cfg.Kafka.OrdersTopic)
	assert.Equal(t, int64(30000), cfg.Order.ShippingFee)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service:
  port: 9090
  log_level: debug
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
order:
  shipping_fee: 25000
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Service.Port)
	assert.Equal(t, "debug", cfg.Service.LogLevel)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, int64(25000), cfg.Order.ShippingFee)
	// Untouched sections keep their defaults.
	assert.Equal(t, "notifications", cfg.Kafka.NotificationsTopic)
}

func TestEnvOverridesWinLast(t *testing.T) {
	t.Setenv("SHOPCORE_PORT", "7070")
	t.Setenv("SHOPCORE_KAFKA_BROKERS", "broker-a:9092,broker-b:9092")
	t.Setenv("SHOPCORE_SHIPPING_FEE", "15000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Service.Port)
	assert.Equal(t, []string{"broker-a:9092", "broker-b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, int64(15000), cfg.Order.ShippingFee)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service: [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
