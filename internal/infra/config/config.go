package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Cache     CacheSettings     `mapstructure:"cache"`
	Stream    StreamSettings    `mapstructure:"stream"`
	Session   SessionSettings   `mapstructure:"session"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// RedisSettings configures the Redis connection and TLS
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// KafkaSettings configures the cross-process event bus. An empty broker list
// keeps the bus local-only.
type KafkaSettings struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// RateLimitSettings configures sliding-window budgets per write endpoint
type RateLimitSettings struct {
	WindowDuration time.Duration `mapstructure:"window_duration"`
	CreateMax      int           `mapstructure:"create_max"`
	LikeMax        int           `mapstructure:"like_max"`
	DeleteMax      int           `mapstructure:"delete_max"`
}

// CacheSettings configures the latest-questions view cache
type CacheSettings struct {
	LatestTTL   time.Duration `mapstructure:"latest_ttl"`
	LatestLimit int64         `mapstructure:"latest_limit"`
}

// StreamSettings configures per-connection stream sessions
type StreamSettings struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	SubscriberBuffer  int           `mapstructure:"subscriber_buffer"`
}

// SessionSettings configures cookie-backed login sessions
type SessionSettings struct {
	TTL        time.Duration `mapstructure:"ttl"`
	CookieName string        `mapstructure:"cookie_name"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("LIVEQA")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"kafka.brokers",
		"kafka.topic",
		"rate_limit.window_duration",
		"rate_limit.create_max",
		"rate_limit.like_max",
		"rate_limit.delete_max",
		"cache.latest_ttl",
		"cache.latest_limit",
		"stream.heartbeat_interval",
		"stream.reconcile_interval",
		"stream.subscriber_buffer",
		"session.ttl",
		"session.cookie_name",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "liveqa-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "liveqa.questions")

	// Budgets match the original product decision: posting is scarce,
	// liking is cheap, deleting sits in between.
	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.create_max", 5)
	v.SetDefault("rate_limit.like_max", 30)
	v.SetDefault("rate_limit.delete_max", 10)

	v.SetDefault("cache.latest_ttl", "30s")
	v.SetDefault("cache.latest_limit", 20)

	v.SetDefault("stream.heartbeat_interval", "5s")
	v.SetDefault("stream.reconcile_interval", "1500ms")
	v.SetDefault("stream.subscriber_buffer", 64)

	v.SetDefault("session.ttl", "168h")
	v.SetDefault("session.cookie_name", "sid")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "liveqa-service")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "LIVEQA_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
