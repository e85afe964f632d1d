package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMQTTBridge_ParseMessage(t *testing.T) {
	b := &MQTTBridge{topic: "metrics/+/+"}

	t.Run("full payload", func(t *testing.T) {
		ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		payload := []byte(`{"value": 82.5, "unit": "Mbps", "timestamp": "2026-03-01T12:00:00Z"}`)

		sample, err := b.parseMessage("metrics/router-001/bandwidth", payload)

		require.NoError(t, err)
		assert.Equal(t, "router-001", sample.DeviceID)
		assert.Equal(t, "bandwidth", sample.MetricName)
		assert.Equal(t, "82.5", sample.Value.String())
		assert.Equal(t, "Mbps", sample.Unit)
		assert.Equal(t, ts, sample.Timestamp)
	})

	t.Run("timestamp defaults to now", func(t *testing.T) {
		before := time.Now().UTC()
		sample, err := b.parseMessage("metrics/router-001/latency", []byte(`{"value": 12}`))
		after := time.Now().UTC()

		require.NoError(t, err)
		assert.False(t, sample.Timestamp.Before(before))
		assert.False(t, sample.Timestamp.After(after))
	})

	t.Run("wrong topic depth", func(t *testing.T) {
		_, err := b.parseMessage("metrics/router-001", []byte(`{"value": 12}`))
		assert.Error(t, err)

		_, err = b.parseMessage("metrics/router-001/bandwidth/extra", []byte(`{"value": 12}`))
		assert.Error(t, err)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := b.parseMessage("metrics/router-001/bandwidth", []byte(`not json`))
		assert.Error(t, err)
	})
}
