package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMetricSample_Validate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		sample      MetricSample
		expectedErr error
	}{
		{
			name: "valid sample",
			sample: MetricSample{
				Timestamp:  now,
				DeviceID:   "router-001",
				MetricName: "bandwidth",
				Value:      decimal.NewFromFloat(80.5),
			},
			expectedErr: nil,
		},
		{
			name: "missing device_id",
			sample: MetricSample{
				Timestamp:  now,
				MetricName: "bandwidth",
			},
			expectedErr: ErrMissingDeviceID,
		},
		{
			name: "missing metric_name",
			sample: MetricSample{
				Timestamp: now,
				DeviceID:  "router-001",
			},
			expectedErr: ErrMissingMetricName,
		},
		{
			name: "missing timestamp",
			sample: MetricSample{
				DeviceID:   "router-001",
				MetricName: "bandwidth",
			},
			expectedErr: ErrMissingTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sample.Validate()
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMetricSample_ToUpdate(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sample := MetricSample{
		Timestamp:  ts,
		DeviceID:   "router-001",
		MetricName: "latency",
		Value:      decimal.NewFromFloat(12.5),
		Unit:       "ms",
	}

	update := sample.ToUpdate()

	assert.Equal(t, "metric_update", update.Type)
	assert.Equal(t, "router-001", update.DeviceID)
	assert.Equal(t, "latency", update.MetricName)
	assert.Equal(t, 12.5, update.Value)
	assert.Equal(t, ts, update.Timestamp)
}

func TestGroupByMetric(t *testing.T) {
	now := time.Now()
	samples := []MetricSample{
		{Timestamp: now, DeviceID: "r1", MetricName: "bandwidth", Value: decimal.NewFromInt(85)},
		{Timestamp: now.Add(-time.Minute), DeviceID: "r1", MetricName: "bandwidth", Value: decimal.NewFromInt(80)},
		{Timestamp: now, DeviceID: "r1", MetricName: "latency", Value: decimal.NewFromInt(12)},
	}

	grouped := GroupByMetric(samples)

	assert.Len(t, grouped, 2)
	assert.Len(t, grouped["bandwidth"], 2)
	assert.Len(t, grouped["latency"], 1)
	// Order within a metric follows input order.
	assert.True(t, grouped["bandwidth"][0].Value.Equal(decimal.NewFromInt(85)))
	assert.True(t, grouped["bandwidth"][1].Value.Equal(decimal.NewFromInt(80)))
}

func TestPrediction_Validate(t *testing.T) {
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name        string
		prediction  *Prediction
		expectedErr error
	}{
		{
			name:        "valid without bounds",
			prediction:  NewPrediction("router-001", "bandwidth", future, decimal.NewFromInt(90)),
			expectedErr: nil,
		},
		{
			name: "valid with bounds",
			prediction: NewPrediction("router-001", "bandwidth", future, decimal.NewFromInt(90)).
				WithBounds(decimal.NewFromInt(85), decimal.NewFromInt(95)),
			expectedErr: nil,
		},
		{
			name: "lower bound above value",
			prediction: NewPrediction("router-001", "bandwidth", future, decimal.NewFromInt(90)).
				WithBounds(decimal.NewFromInt(91), decimal.NewFromInt(95)),
			expectedErr: ErrInvalidConfidenceBounds,
		},
		{
			name: "upper bound below value",
			prediction: NewPrediction("router-001", "bandwidth", future, decimal.NewFromInt(90)).
				WithBounds(decimal.NewFromInt(85), decimal.NewFromInt(89)),
			expectedErr: ErrInvalidConfidenceBounds,
		},
		{
			name:        "missing device_id",
			prediction:  NewPrediction("", "bandwidth", future, decimal.NewFromInt(90)),
			expectedErr: ErrMissingDeviceID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.prediction.Validate()
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPrediction_HasBounds(t *testing.T) {
	p := NewPrediction("r1", "bandwidth", time.Now().Add(time.Hour), decimal.NewFromInt(90))
	assert.False(t, p.HasBounds())

	p.WithBounds(decimal.NewFromInt(85), decimal.NewFromInt(95))
	assert.True(t, p.HasBounds())
}

func TestStateForLastSeen(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		lastSeen time.Time
		expected DeviceState
	}{
		{"recent sample is online", now.Add(-time.Minute), DeviceOnline},
		{"stale sample is warning", now.Add(-10 * time.Minute), DeviceWarning},
		{"old sample is offline", now.Add(-time.Hour), DeviceOffline},
		{"zero time is unknown", time.Time{}, DeviceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StateForLastSeen(tt.lastSeen, now))
		})
	}
}
