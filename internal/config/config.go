package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	commoncfg "github.com/suvro-04/Driving-alert-system/common/config"
	"gopkg.in/yaml.v2"
)

// 启动时自动选择的数据源
const (
	AutostartSimulate = "simulate"
	AutostartBackend  = "backend"
	AutostartNone     = "none"
)

// Config drowsy-dashboard 配置
// 加载顺序：默认值 -> CONFIG_FILE (yaml) -> 环境变量（环境变量优先）
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Source    SourceConfig    `yaml:"source"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Presenter PresenterConfig `yaml:"presenter"`
	Redis     RedisConfig     `yaml:"redis"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Alert     AlertConfig     `yaml:"alert"`
	Log       struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// SourceConfig 数据源复用器配置
type SourceConfig struct {
	Autostart      string `yaml:"autostart"`        // simulate | backend | none
	Endpoint       string `yaml:"endpoint"`         // 检测后端 /api/metrics 地址
	TimeoutMS      int    `yaml:"timeout_ms"`       // 单次拉取超时
	PollIntervalMS int    `yaml:"poll_interval_ms"` // 轮询周期
}

// SimulatorConfig 模拟器配置
type SimulatorConfig struct {
	IntervalMS int   `yaml:"interval_ms"`
	Seed       int64 `yaml:"seed"` // 0 = 按时间取种子
}

// PresenterConfig 展示层配置
type PresenterConfig struct {
	QueueSize         int `yaml:"queue_size"`
	SSEBuffer         int `yaml:"sse_buffer"`
	SSEHeartbeatSec   int `yaml:"sse_heartbeat_sec"`
	ReportTransitions int `yaml:"report_transitions"`
}

// RedisConfig Redis 配置（Streams 扇出 + 最新快照缓存）
type RedisConfig struct {
	commoncfg.RedisConfig `yaml:",inline"`

	Enabled        bool   `yaml:"enabled"`
	Stream         string `yaml:"stream"`
	StreamMaxLen   int64  `yaml:"stream_maxlen"`
	SnapshotTTLSec int    `yaml:"snapshot_ttl_sec"`
}

// MQTTConfig MQTT 配置（告警信号下发）
type MQTTConfig struct {
	commoncfg.MQTTConfig `yaml:",inline"`

	Enabled bool `yaml:"enabled"`
}

// AlertConfig 告警配置
type AlertConfig struct {
	Topic string `yaml:"topic"`
}

// Defaults 返回默认配置
func Defaults() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":8080"

	cfg.Source.Autostart = AutostartSimulate
	cfg.Source.Endpoint = "http://localhost:5000/api/metrics"
	cfg.Source.TimeoutMS = 2000
	cfg.Source.PollIntervalMS = 500

	cfg.Simulator.IntervalMS = 1000

	cfg.Presenter.QueueSize = 256
	cfg.Presenter.SSEBuffer = 64
	cfg.Presenter.SSEHeartbeatSec = 15
	cfg.Presenter.ReportTransitions = 200

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.Stream = "drowsy:telemetry:stream"
	cfg.Redis.StreamMaxLen = 1000
	cfg.Redis.SnapshotTTLSec = 10

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "drowsy-dashboard"
	cfg.MQTT.QoS = 1
	cfg.Alert.Topic = "drowsy/alert"

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)

	cfg.Source.Autostart = getEnv("SOURCE_AUTOSTART", cfg.Source.Autostart)
	cfg.Source.Endpoint = getEnv("BACKEND_ENDPOINT", cfg.Source.Endpoint)
	cfg.Source.TimeoutMS = parseInt(getEnv("BACKEND_TIMEOUT_MS", ""), cfg.Source.TimeoutMS)
	cfg.Source.PollIntervalMS = parseInt(getEnv("POLL_INTERVAL_MS", ""), cfg.Source.PollIntervalMS)

	cfg.Simulator.IntervalMS = parseInt(getEnv("SIM_INTERVAL_MS", ""), cfg.Simulator.IntervalMS)
	cfg.Simulator.Seed = parseInt64(getEnv("SIM_SEED", ""), cfg.Simulator.Seed)

	cfg.Presenter.QueueSize = parseInt(getEnv("PRESENTER_QUEUE_SIZE", ""), cfg.Presenter.QueueSize)
	cfg.Presenter.SSEBuffer = parseInt(getEnv("SSE_BUFFER", ""), cfg.Presenter.SSEBuffer)
	cfg.Presenter.SSEHeartbeatSec = parseInt(getEnv("SSE_HEARTBEAT_SEC", ""), cfg.Presenter.SSEHeartbeatSec)
	cfg.Presenter.ReportTransitions = parseInt(getEnv("REPORT_TRANSITIONS", ""), cfg.Presenter.ReportTransitions)

	cfg.Redis.Enabled = parseBool(getEnv("REDIS_ENABLED", ""), cfg.Redis.Enabled)
	cfg.Redis.RedisConfig.LoadFromEnv("REDIS")
	cfg.Redis.Stream = getEnv("TELEMETRY_STREAM", cfg.Redis.Stream)
	cfg.Redis.StreamMaxLen = parseInt64(getEnv("TELEMETRY_STREAM_MAXLEN", ""), cfg.Redis.StreamMaxLen)
	cfg.Redis.SnapshotTTLSec = parseInt(getEnv("SNAPSHOT_TTL_SEC", ""), cfg.Redis.SnapshotTTLSec)

	cfg.MQTT.Enabled = parseBool(getEnv("MQTT_ENABLED", ""), cfg.MQTT.Enabled)
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")
	cfg.Alert.Topic = getEnv("ALERT_TOPIC", cfg.Alert.Topic)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Source.Autostart {
	case AutostartSimulate, AutostartBackend, AutostartNone:
	default:
		return fmt.Errorf("invalid SOURCE_AUTOSTART %q (want simulate, backend or none)", c.Source.Autostart)
	}
	if c.Source.PollIntervalMS <= 0 || c.Simulator.IntervalMS <= 0 {
		return fmt.Errorf("poll and simulation intervals must be positive")
	}
	if c.Source.TimeoutMS <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT_MS must be positive")
	}
	return nil
}

func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

func (s SourceConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMS) * time.Millisecond
}

func (s SimulatorConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMS) * time.Millisecond
}

func (p PresenterConfig) SSEHeartbeat() time.Duration {
	return time.Duration(p.SSEHeartbeatSec) * time.Second
}

func (r RedisConfig) SnapshotTTL() time.Duration {
	return time.Duration(r.SnapshotTTLSec) * time.Second
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseInt64(s string, def int64) int64 {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
