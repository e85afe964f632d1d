package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/forecaster")
	}

	// Environment variable settings
	v.SetEnvPrefix("FORECASTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "network-forecaster")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "netforecast")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.ssl_mode", "disable")

	// API defaults
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.jwt_secret", "change-me-in-production")
	v.SetDefault("api.jwt_duration", "24h")
	v.SetDefault("api.default_limit", 100)
	v.SetDefault("api.max_limit", 1000)

	// WebSocket defaults
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.feed_interval", "30s")
	v.SetDefault("websocket.feed_window", 10)
	v.SetDefault("websocket.broadcast_buffer", 256)

	// Collector defaults
	v.SetDefault("collector.enabled", false)
	v.SetDefault("collector.interval", "30s")
	v.SetDefault("collector.error_backoff", "5s")
	v.SetDefault("collector.simulated.enabled", true)
	v.SetDefault("collector.simulated.devices", []string{"router-001", "switch-001"})
	v.SetDefault("collector.simulated.variance", 10.0)
	v.SetDefault("collector.ping.enabled", false)
	v.SetDefault("collector.ping.targets", []string{"8.8.8.8", "1.1.1.1"})
	v.SetDefault("collector.ping.timeout", "2s")

	// Forecast defaults
	v.SetDefault("forecast.endpoint", "http://localhost:9100")
	v.SetDefault("forecast.timeout", "30s")
	v.SetDefault("forecast.retry_attempts", 3)
	v.SetDefault("forecast.default_horizon_hours", 4)
	v.SetDefault("forecast.circuit_breaker.max_failures", 5)
	v.SetDefault("forecast.circuit_breaker.timeout", "30s")

	// Retention defaults
	v.SetDefault("retention.enabled", true)
	v.SetDefault("retention.interval", "1h")
	v.SetDefault("retention.sample_days", 30)
	v.SetDefault("retention.prediction_days", 7)

	// Redis defaults (empty addr disables caching)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "10s")

	// MQTT defaults
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "network-forecaster")
	v.SetDefault("mqtt.topic", "metrics/+/+")

	// Events defaults
	v.SetDefault("events.buffer_size", 100)

	// Ops metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
}
