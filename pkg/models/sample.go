package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingDeviceID   = errors.New("device_id is required")
	ErrMissingMetricName = errors.New("metric_name is required")
	ErrMissingTimestamp  = errors.New("timestamp is required")
)

// MetricSample is one timestamped metric reading for a device.
// The triple (timestamp, device_id, metric_name) is unique in storage.
type MetricSample struct {
	ID         int64           `json:"id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	DeviceID   string          `json:"device_id"`
	MetricName string          `json:"metric_name"`
	Value      decimal.Decimal `json:"value"`
	Unit       string          `json:"unit,omitempty"`
}

func (s *MetricSample) Validate() error {
	if s.DeviceID == "" {
		return ErrMissingDeviceID
	}
	if s.MetricName == "" {
		return ErrMissingMetricName
	}
	if s.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}
	return nil
}

// MetricUpdate is the wire form pushed to live-view subscribers.
type MetricUpdate struct {
	Type       string    `json:"type"`
	DeviceID   string    `json:"device_id"`
	MetricName string    `json:"metric_name"`
	Value      float64   `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
}

func (s *MetricSample) ToUpdate() MetricUpdate {
	v, _ := s.Value.Float64()
	return MetricUpdate{
		Type:       "metric_update",
		DeviceID:   s.DeviceID,
		MetricName: s.MetricName,
		Value:      v,
		Timestamp:  s.Timestamp,
	}
}

// GroupByMetric splits a sample window into per-metric series, preserving
// the order samples arrive in (timestamp descending from the store).
func GroupByMetric(samples []MetricSample) map[string][]MetricSample {
	grouped := make(map[string][]MetricSample)
	for _, s := range samples {
		grouped[s.MetricName] = append(grouped[s.MetricName], s)
	}
	return grouped
}
