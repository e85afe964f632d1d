package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	// Database validation
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, errors.New("database.port must be between 1 and 65535"))
	}
	if c.Database.Name == "" {
		errs = append(errs, errors.New("database.name is required"))
	}
	if c.Database.MaxConnections <= 0 {
		errs = append(errs, errors.New("database.max_connections must be positive"))
	}

	// API validation
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.API.DefaultLimit <= 0 {
		errs = append(errs, errors.New("api.default_limit must be positive"))
	}
	if c.API.MaxLimit < c.API.DefaultLimit {
		errs = append(errs, errors.New("api.max_limit must be >= default_limit"))
	}
	if c.App.Mode == "production" && c.API.JWTSecret == "change-me-in-production" {
		errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
	}

	// Collector validation
	if c.Collector.Enabled && c.Collector.Interval <= 0 {
		errs = append(errs, errors.New("collector.interval must be positive"))
	}
	if c.Collector.Ping.Enabled && c.Collector.Ping.Timeout >= c.Collector.Interval {
		errs = append(errs, errors.New("collector.ping.timeout must be less than collector.interval"))
	}

	// Forecast validation
	if c.Forecast.Endpoint == "" {
		errs = append(errs, errors.New("forecast.endpoint is required"))
	}
	if c.Forecast.DefaultHorizon <= 0 {
		errs = append(errs, errors.New("forecast.default_horizon_hours must be positive"))
	}

	// Retention validation
	if c.Retention.Enabled {
		if c.Retention.SampleDays <= 0 {
			errs = append(errs, errors.New("retention.sample_days must be positive"))
		}
		if c.Retention.PredictionDays <= 0 {
			errs = append(errs, errors.New("retention.prediction_days must be positive"))
		}
		if c.Retention.Interval <= 0 {
			errs = append(errs, errors.New("retention.interval must be positive"))
		}
	}

	// MQTT validation
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
