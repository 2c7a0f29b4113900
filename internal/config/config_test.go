package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, AutostartSimulate, cfg.Source.Autostart)
	assert.Equal(t, "http://localhost:5000/api/metrics", cfg.Source.Endpoint)
	assert.Equal(t, 2*time.Second, cfg.Source.Timeout())
	assert.Equal(t, 500*time.Millisecond, cfg.Source.PollInterval())
	assert.Equal(t, time.Second, cfg.Simulator.Interval())
	assert.Equal(t, int64(0), cfg.Simulator.Seed)

	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "drowsy:telemetry:stream", cfg.Redis.Stream)
	assert.Equal(t, int64(1000), cfg.Redis.StreamMaxLen)
	assert.Equal(t, 10*time.Second, cfg.Redis.SnapshotTTL())

	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "drowsy/alert", cfg.Alert.Topic)

	assert.Equal(t, 15*time.Second, cfg.Presenter.SSEHeartbeat())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SOURCE_AUTOSTART", "backend")
	t.Setenv("BACKEND_ENDPOINT", "http://10.0.0.5:5000/api/metrics")
	t.Setenv("POLL_INTERVAL_MS", "250")
	t.Setenv("SIM_SEED", "42")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("MQTT_ENABLED", "1")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("ALERT_TOPIC", "car/7/alert")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, AutostartBackend, cfg.Source.Autostart)
	assert.Equal(t, "http://10.0.0.5:5000/api/metrics", cfg.Source.Endpoint)
	assert.Equal(t, 250*time.Millisecond, cfg.Source.PollInterval())
	assert.Equal(t, int64(42), cfg.Simulator.Seed)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "car/7/alert", cfg.Alert.Topic)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidNumbersKeepDefaults(t *testing.T) {
	os.Clearenv()
	t.Setenv("SIM_INTERVAL_MS", "fast")
	t.Setenv("REDIS_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Simulator.Interval())
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_ConfigFileThenEnv(t *testing.T) {
	os.Clearenv()
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":7000"
source:
  autostart: none
  poll_interval_ms: 800
redis:
  enabled: true
  addr: "cache:6379"
  stream: "car:telemetry"
mqtt:
  broker: "tcp://file-broker:1883"
  qos: 2
log:
  format: console
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_ADDR", ":7001")

	cfg, err := Load()
	require.NoError(t, err)

	// 环境变量优先
	assert.Equal(t, ":7001", cfg.HTTP.Addr)
	assert.Equal(t, AutostartNone, cfg.Source.Autostart)
	assert.Equal(t, 800*time.Millisecond, cfg.Source.PollInterval())
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, "car:telemetry", cfg.Redis.Stream)
	assert.Equal(t, "tcp://file-broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, byte(2), cfg.MQTT.QoS)
	assert.Equal(t, "console", cfg.Log.Format)
	// 文件未设置的键保留默认值
	assert.Equal(t, time.Second, cfg.Simulator.Interval())
	assert.Equal(t, "drowsy/alert", cfg.Alert.Topic)
}

func TestLoad_Errors(t *testing.T) {
	os.Clearenv()
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)

	os.Clearenv()
	t.Setenv("SOURCE_AUTOSTART", "webcam")
	_, err = Load()
	assert.Error(t, err)

	os.Clearenv()
	t.Setenv("POLL_INTERVAL_MS", "0")
	_, err = Load()
	assert.Error(t, err)
}

func TestGetEnv(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, "default-value", getEnv("TEST_KEY", "default-value"))

	t.Setenv("TEST_KEY", "test-value")
	assert.Equal(t, "test-value", getEnv("TEST_KEY", "default-value"))
}
