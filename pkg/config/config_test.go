package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg, _ := Load("")
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "network-forecaster", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Mode)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.App.ShutdownTimeout)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxConnections)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 100, cfg.API.DefaultLimit)
	assert.Equal(t, 1000, cfg.API.MaxLimit)

	assert.Equal(t, 30*time.Second, cfg.WebSocket.FeedInterval)
	assert.Equal(t, 10, cfg.WebSocket.FeedWindow)

	assert.Equal(t, 4, cfg.Forecast.DefaultHorizon)
	assert.Equal(t, 5, cfg.Forecast.CircuitBreaker.MaxFailures)

	assert.True(t, cfg.Retention.Enabled)
	assert.Equal(t, 30, cfg.Retention.SampleDays)
	assert.Equal(t, 7, cfg.Retention.PredictionDays)

	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "metrics/+/+", cfg.MQTT.Topic)

	// Empty addr means caching is disabled.
	assert.Equal(t, "", cfg.Redis.Addr)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
app:
  name: test-forecaster
  mode: test
api:
  port: 9999
forecast:
  default_horizon_hours: 12
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-forecaster", cfg.App.Name)
	assert.Equal(t, "test", cfg.App.Mode)
	assert.Equal(t, 9999, cfg.API.Port)
	assert.Equal(t, 12, cfg.Forecast.DefaultHorizon)

	// Untouched keys keep their defaults.
	assert.Equal(t, "localhost", cfg.Database.Host)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "missing app name",
			mutate:  func(cfg *Config) { cfg.App.Name = "" },
			wantErr: "app.name",
		},
		{
			name:    "bad mode",
			mutate:  func(cfg *Config) { cfg.App.Mode = "staging" },
			wantErr: "app.mode",
		},
		{
			name:    "bad log level",
			mutate:  func(cfg *Config) { cfg.App.LogLevel = "trace" },
			wantErr: "app.log_level",
		},
		{
			name:    "bad database port",
			mutate:  func(cfg *Config) { cfg.Database.Port = 70000 },
			wantErr: "database.port",
		},
		{
			name:    "max limit below default limit",
			mutate:  func(cfg *Config) { cfg.API.MaxLimit = 10 },
			wantErr: "max_limit",
		},
		{
			name:    "default jwt secret in production",
			mutate:  func(cfg *Config) { cfg.App.Mode = "production" },
			wantErr: "jwt_secret",
		},
		{
			name:    "missing forecast endpoint",
			mutate:  func(cfg *Config) { cfg.Forecast.Endpoint = "" },
			wantErr: "forecast.endpoint",
		},
		{
			name: "retention days",
			mutate: func(cfg *Config) {
				cfg.Retention.Enabled = true
				cfg.Retention.SampleDays = 0
			},
			wantErr: "retention.sample_days",
		},
		{
			name: "mqtt broker required when enabled",
			mutate: func(cfg *Config) {
				cfg.MQTT.Enabled = true
				cfg.MQTT.Broker = ""
			},
			wantErr: "mqtt.broker",
		},
		{
			name: "ping timeout must fit the cycle",
			mutate: func(cfg *Config) {
				cfg.Collector.Ping.Enabled = true
				cfg.Collector.Interval = time.Second
				cfg.Collector.Ping.Timeout = 2 * time.Second
			},
			wantErr: "ping.timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			require.NotNil(t, cfg)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		Name:     "netforecast",
		User:     "svc",
		Password: "secret",
	}

	dsn := cfg.DSN()

	assert.Contains(t, dsn, "host=db.internal")
	assert.Contains(t, dsn, "port=5433")
	assert.Contains(t, dsn, "dbname=netforecast")
	assert.Contains(t, dsn, "sslmode=disable")
}
