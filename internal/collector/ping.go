package collector

import (
	"context"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OldStager01/network-forecaster/internal/logger"
	"github.com/OldStager01/network-forecaster/pkg/models"
)

var pingLatencyRegex = regexp.MustCompile(`time=(\d+(?:\.\d+)?)\s*ms`)

// PingCollector measures round-trip latency to a set of targets and
// reports it as a latency metric for the local host.
type PingCollector struct {
	deviceID string
	targets  []string
	timeout  time.Duration
}

type PingConfig struct {
	Targets []string
	Timeout time.Duration
}

func NewPingCollector(cfg PingConfig) *PingCollector {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	targets := cfg.Targets
	if len(targets) == 0 {
		targets = []string{"8.8.8.8", "1.1.1.1"}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &PingCollector{
		deviceID: hostname,
		targets:  targets,
		timeout:  timeout,
	}
}

func (c *PingCollector) Name() string {
	return "ping"
}

func (c *PingCollector) Collect(ctx context.Context) ([]models.MetricSample, error) {
	now := time.Now().UTC().Truncate(time.Second)
	var samples []models.MetricSample

	for _, target := range c.targets {
		latency, err := c.pingTarget(ctx, target)
		if err != nil {
			logger.WithDevice(c.deviceID).Warnf("Ping to %s failed: %v", target, err)
			continue
		}

		samples = append(samples, models.MetricSample{
			Timestamp:  now,
			DeviceID:   c.deviceID,
			MetricName: "latency",
			Value:      decimal.NewFromFloat(latency),
			Unit:       "ms",
		})
	}

	if len(samples) == 0 {
		return nil, ErrCollectionFailed
	}
	return samples, nil
}

func (c *PingCollector) pingTarget(ctx context.Context, target string) (float64, error) {
	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(pingCtx, "ping", "-c", "1", "-W", "1", target)
	output, err := cmd.Output()
	if err != nil {
		return 0, err
	}

	return ParsePingLatency(string(output))
}

// ParsePingLatency extracts the round-trip time in milliseconds from a
// "time=1.234 ms" fragment of ping output.
func ParsePingLatency(output string) (float64, error) {
	match := pingLatencyRegex.FindStringSubmatch(output)
	if match == nil {
		return 0, ErrCollectionFailed
	}
	return strconv.ParseFloat(match[1], 64)
}

func (c *PingCollector) Close() error {
	return nil
}
