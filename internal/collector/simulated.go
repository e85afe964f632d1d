package collector

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OldStager01/network-forecaster/pkg/models"
)

// metric name -> (base value, unit)
var simMetrics = []struct {
	name string
	base float64
	unit string
}{
	{"bandwidth", 80.0, "Mbps"},
	{"latency", 12.0, "ms"},
	{"cpu_usage", 45.0, "%"},
	{"memory_usage", 60.0, "%"},
	{"packet_loss", 0.5, "%"},
}

// SimulatedCollector emits random-walk readings for a fixed set of
// devices. Used in development and for load testing the ingest path.
type SimulatedCollector struct {
	devices  []string
	variance float64
	levels   map[string]float64
	mu       sync.Mutex
}

type SimulatedConfig struct {
	Devices  []string
	Variance float64
}

func NewSimulatedCollector(cfg SimulatedConfig) *SimulatedCollector {
	devices := cfg.Devices
	if len(devices) == 0 {
		devices = []string{"router-001"}
	}
	variance := cfg.Variance
	if variance == 0 {
		variance = 10.0
	}

	return &SimulatedCollector{
		devices:  devices,
		variance: variance,
		levels:   make(map[string]float64),
	}
}

func (c *SimulatedCollector) Name() string {
	return "simulated"
}

func (c *SimulatedCollector) Collect(ctx context.Context) ([]models.MetricSample, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC().Truncate(time.Second)
	samples := make([]models.MetricSample, 0, len(c.devices)*len(simMetrics))

	for _, device := range c.devices {
		for _, m := range simMetrics {
			key := device + "/" + m.name
			level, ok := c.levels[key]
			if !ok {
				level = m.base
			}
			level += (rand.Float64()*2 - 1) * c.variance * 0.2
			if level < 0 {
				level = 0
			}
			c.levels[key] = level

			samples = append(samples, models.MetricSample{
				Timestamp:  now,
				DeviceID:   device,
				MetricName: m.name,
				Value:      decimal.NewFromFloat(level).Round(3),
				Unit:       m.unit,
			})
		}
	}

	return samples, nil
}

func (c *SimulatedCollector) Close() error {
	return nil
}
