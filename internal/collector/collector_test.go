package collector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/network-forecaster/pkg/models"
)

func TestSimulatedCollector_Collect(t *testing.T) {
	c := NewSimulatedCollector(SimulatedConfig{
		Devices:  []string{"router-001", "switch-001"},
		Variance: 5.0,
	})
	defer c.Close()

	samples, err := c.Collect(context.Background())

	require.NoError(t, err)
	// One sample per device per simulated metric.
	assert.Len(t, samples, 2*5)

	for _, s := range samples {
		assert.NoError(t, s.Validate())
		assert.True(t, s.Value.GreaterThanOrEqual(decimal.Zero), "values never go negative")
	}
}

func TestSimulatedCollector_WalksBetweenCycles(t *testing.T) {
	c := NewSimulatedCollector(SimulatedConfig{Devices: []string{"router-001"}})
	defer c.Close()

	first, err := c.Collect(context.Background())
	require.NoError(t, err)
	second, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, len(first), len(second))
	// Same devices and metrics each cycle.
	for i := range first {
		assert.Equal(t, first[i].DeviceID, second[i].DeviceID)
		assert.Equal(t, first[i].MetricName, second[i].MetricName)
	}
}

func TestParsePingLatency(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected float64
		wantErr  bool
	}{
		{
			name:     "linux ping output",
			output:   "64 bytes from 8.8.8.8: icmp_seq=1 ttl=117 time=12.4 ms",
			expected: 12.4,
		},
		{
			name:     "integer latency",
			output:   "64 bytes from 1.1.1.1: icmp_seq=1 ttl=58 time=3 ms",
			expected: 3,
		},
		{
			name:    "no latency in output",
			output:  "Request timeout for icmp_seq 0",
			wantErr: true,
		},
		{
			name:    "empty output",
			output:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			latency, err := ParsePingLatency(tt.output)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, latency)
		})
	}
}

type recordingSink struct {
	mu      sync.Mutex
	batches [][]models.MetricSample
}

func (s *recordingSink) IngestBatch(ctx context.Context, samples []models.MetricSample) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, samples)
	return len(samples), nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func TestManager_RunsCollectorsOnInterval(t *testing.T) {
	sink := &recordingSink{}
	manager := NewManager(ManagerConfig{
		Interval:     50 * time.Millisecond,
		ErrorBackoff: 10 * time.Millisecond,
	}, sink)
	manager.Register(NewSimulatedCollector(SimulatedConfig{Devices: []string{"router-001"}}))

	require.NoError(t, manager.Start())
	defer manager.Stop()

	assert.Eventually(t, func() bool {
		return sink.count() >= 2
	}, 2*time.Second, 10*time.Millisecond, "expected at least the immediate cycle plus one tick")
}

func TestManager_StopIsIdempotent(t *testing.T) {
	manager := NewManager(ManagerConfig{Interval: time.Hour}, &recordingSink{})
	manager.Register(NewSimulatedCollector(SimulatedConfig{}))

	require.NoError(t, manager.Start())
	manager.Stop()
	manager.Stop()
}
