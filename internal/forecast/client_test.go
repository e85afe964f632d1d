package forecast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/network-forecaster/pkg/config"
	"github.com/OldStager01/network-forecaster/pkg/models"
)

func testClient(endpoint string) *Client {
	return NewClient(config.ForecastConfig{
		Endpoint:      endpoint,
		Timeout:       2 * time.Second,
		RetryAttempts: 1,
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxFailures: 3,
			Timeout:     time.Minute,
		},
	})
}

func sampleHistory() []models.MetricSample {
	now := time.Now().UTC()
	return []models.MetricSample{
		{Timestamp: now, DeviceID: "router-001", MetricName: "bandwidth", Value: decimal.NewFromInt(85)},
		{Timestamp: now.Add(-time.Minute), DeviceID: "router-001", MetricName: "bandwidth", Value: decimal.NewFromInt(80)},
	}
}

func TestClient_Forecast(t *testing.T) {
	var received forecastRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/forecast", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"model_version": "v3",
			"points": []map[string]interface{}{
				{
					"timestamp":        time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
					"value":            88.2,
					"confidence_lower": 84.0,
					"confidence_upper": 92.0,
				},
			},
		})
	}))
	defer server.Close()

	client := testClient(server.URL)

	predictions, modelVersion, err := client.Forecast(context.Background(), "router-001", "bandwidth", 4, sampleHistory())

	require.NoError(t, err)
	assert.Equal(t, "v3", modelVersion)
	require.Len(t, predictions, 1)
	assert.Equal(t, "router-001", predictions[0].DeviceID)
	assert.Equal(t, "v3", predictions[0].ModelVersion)
	assert.True(t, predictions[0].HasBounds())

	// Request carried the series, the horizon, and history oldest first.
	assert.Equal(t, "router-001", received.DeviceID)
	assert.Equal(t, 4, received.HorizonHours)
	require.Len(t, received.Samples, 2)
	assert.True(t, received.Samples[0].Timestamp.Before(received.Samples[1].Timestamp))
}

func TestClient_Forecast_DropsInvalidBounds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"model_version": "v3",
			"points": []map[string]interface{}{
				{
					// Bounds that don't bracket the value: must not be stored.
					"timestamp":        time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
					"value":            50.0,
					"confidence_lower": 80.0,
					"confidence_upper": 40.0,
				},
				{
					"timestamp": time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339),
					"value":     88.0,
				},
			},
		})
	}))
	defer server.Close()

	client := testClient(server.URL)

	predictions, _, err := client.Forecast(context.Background(), "router-001", "bandwidth", 4, sampleHistory())

	require.NoError(t, err)
	require.Len(t, predictions, 1)
	assert.True(t, predictions[0].PredictedValue.Equal(decimal.NewFromInt(88)))
	assert.NoError(t, predictions[0].Validate())
}

func TestClient_Forecast_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad series", http.StatusBadRequest)
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, _, err := client.Forecast(context.Background(), "router-001", "bandwidth", 4, sampleHistory())

	assert.ErrorIs(t, err, ErrRejected)
}

func TestClient_Forecast_CircuitOpens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(server.URL)

	for i := 0; i < 3; i++ {
		_, _, err := client.Forecast(context.Background(), "router-001", "bandwidth", 4, sampleHistory())
		require.Error(t, err)
	}

	// Circuit is open now; the failure is reported without a call.
	_, _, err := client.Forecast(context.Background(), "router-001", "bandwidth", 4, sampleHistory())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_Train(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/train", r.URL.Path)

		var req trainRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "router-001", req.DeviceID)

		// No Content-Type header: the external forecaster does not
		// always set one, and the result must decode regardless.
		json.NewEncoder(w).Encode(TrainResult{
			ModelVersion:  "v4",
			SeriesTrained: 1,
			Score:         0.92,
		})
	}))
	defer server.Close()

	client := testClient(server.URL)

	result, err := client.Train(context.Background(), "router-001", "bandwidth")

	require.NoError(t, err)
	assert.Equal(t, "v4", result.ModelVersion)
	assert.Equal(t, 1, result.SeriesTrained)
}
