package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/OldStager01/network-forecaster/internal/logger"
	"github.com/OldStager01/network-forecaster/pkg/config"
	"github.com/OldStager01/network-forecaster/pkg/models"
)

const (
	devicesKey      = "forecaster:devices"
	latestKeyPrefix = "forecaster:latest:"
)

// Cache is a redis read-through layer for the hot read paths. A nil
// *Cache is valid and means caching is disabled; every method then
// reports a miss or does nothing.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to redis, or returns nil (cache disabled) when no
// address is configured.
func New(cfg config.RedisConfig) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}

	logger.Infof("Redis cache connected at %s (ttl %s)", cfg.Addr, ttl)

	return &Cache{client: client, ttl: ttl}, nil
}

// GetDevices returns the cached device list, or ok=false on a miss.
func (c *Cache) GetDevices(ctx context.Context) ([]models.DeviceStatus, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, devicesKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warnf("Redis get %s: %v", devicesKey, err)
		}
		return nil, false
	}

	var devices []models.DeviceStatus
	if err := json.Unmarshal(data, &devices); err != nil {
		logger.Warnf("Redis cached devices corrupt, dropping: %v", err)
		c.client.Del(ctx, devicesKey)
		return nil, false
	}
	return devices, true
}

func (c *Cache) SetDevices(ctx context.Context, devices []models.DeviceStatus) {
	if c == nil {
		return
	}

	data, err := json.Marshal(devices)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, devicesKey, data, c.ttl).Err(); err != nil {
		logger.Warnf("Redis set %s: %v", devicesKey, err)
	}
}

// GetLatest returns the cached latest samples for a device.
func (c *Cache) GetLatest(ctx context.Context, deviceID string) ([]models.MetricSample, bool) {
	if c == nil {
		return nil, false
	}

	key := latestKeyPrefix + deviceID
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warnf("Redis get %s: %v", key, err)
		}
		return nil, false
	}

	var samples []models.MetricSample
	if err := json.Unmarshal(data, &samples); err != nil {
		c.client.Del(ctx, key)
		return nil, false
	}
	return samples, true
}

func (c *Cache) SetLatest(ctx context.Context, deviceID string, samples []models.MetricSample) {
	if c == nil {
		return
	}

	data, err := json.Marshal(samples)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, latestKeyPrefix+deviceID, data, c.ttl).Err(); err != nil {
		logger.Warnf("Redis set latest for %s: %v", deviceID, err)
	}
}

// InvalidateDevices drops cached read results that a new sample makes
// stale. Called on every ingest, so errors are logged and swallowed.
func (c *Cache) InvalidateDevices(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, devicesKey).Err(); err != nil {
		logger.Warnf("Redis invalidate devices: %v", err)
	}
}

// InvalidateLatest drops the cached latest samples for one device.
func (c *Cache) InvalidateLatest(ctx context.Context, deviceID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, latestKeyPrefix+deviceID).Err(); err != nil {
		logger.Warnf("Redis invalidate latest for %s: %v", deviceID, err)
	}
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
