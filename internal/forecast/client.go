package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/OldStager01/network-forecaster/internal/logger"
	"github.com/OldStager01/network-forecaster/internal/metrics"
	"github.com/OldStager01/network-forecaster/internal/resilience"
	"github.com/OldStager01/network-forecaster/pkg/config"
	"github.com/OldStager01/network-forecaster/pkg/models"
)

var (
	// ErrUnavailable means the forecaster service could not be reached
	// or its circuit is open.
	ErrUnavailable = errors.New("forecaster service unavailable")

	// ErrRejected means the forecaster refused the request.
	ErrRejected = errors.New("forecaster rejected request")
)

type forecastRequest struct {
	DeviceID     string          `json:"device_id"`
	MetricName   string          `json:"metric_name"`
	HorizonHours int             `json:"horizon_hours"`
	Samples      []forecastPoint `json:"samples"`
}

type forecastPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}

type forecastResponse struct {
	ModelVersion string `json:"model_version"`
	Points       []struct {
		Timestamp       time.Time        `json:"timestamp"`
		Value           decimal.Decimal  `json:"value"`
		ConfidenceLower *decimal.Decimal `json:"confidence_lower"`
		ConfidenceUpper *decimal.Decimal `json:"confidence_upper"`
	} `json:"points"`
}

type trainRequest struct {
	DeviceID   string `json:"device_id,omitempty"`
	MetricName string `json:"metric_name,omitempty"`
}

// TrainResult is what the forecaster reports after a training run.
type TrainResult struct {
	ModelVersion  string  `json:"model_version"`
	SeriesTrained int     `json:"series_trained"`
	Score         float64 `json:"score"`
}

// Client talks to the external forecaster service. Calls go through a
// circuit breaker so a dead forecaster fails fast instead of piling up
// request timeouts.
type Client struct {
	http    *resty.Client
	breaker *resilience.CircuitBreaker
}

func NewClient(cfg config.ForecastConfig) *Client {
	retries := cfg.RetryAttempts
	if retries <= 0 {
		retries = 2
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second)

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "forecaster",
		MaxFailures: cfg.CircuitBreaker.MaxFailures,
		Timeout:     cfg.CircuitBreaker.Timeout,
		OnStateChange: func(name string, from, to resilience.State) {
			metrics.Get().SetCircuitBreakerState(name, int(to))
		},
	})

	return &Client{
		http:    httpClient,
		breaker: breaker,
	}
}

// Forecast requests predictions for one series based on its recent
// samples. Samples are sent oldest first.
func (c *Client) Forecast(ctx context.Context, deviceID, metricName string, horizonHours int, samples []models.MetricSample) ([]models.Prediction, string, error) {
	req := forecastRequest{
		DeviceID:     deviceID,
		MetricName:   metricName,
		HorizonHours: horizonHours,
		Samples:      make([]forecastPoint, 0, len(samples)),
	}
	for i := len(samples) - 1; i >= 0; i-- {
		req.Samples = append(req.Samples, forecastPoint{
			Timestamp: samples[i].Timestamp,
			Value:     samples[i].Value,
		})
	}

	var body forecastResponse
	err := c.breaker.Execute(func() error {
		start := time.Now()
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&body).
			ForceContentType("application/json").
			Post("/forecast")
		metrics.Get().SetForecastLatency(time.Since(start))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if resp.IsError() {
			return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		metrics.Get().IncForecastCalls("error")
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, "", err
	}
	metrics.Get().IncForecastCalls("success")

	predictions := make([]models.Prediction, 0, len(body.Points))
	for _, pt := range body.Points {
		p := models.NewPrediction(deviceID, metricName, pt.Timestamp, pt.Value)
		p.ModelVersion = body.ModelVersion
		if pt.ConfidenceLower != nil && pt.ConfidenceUpper != nil {
			p.WithBounds(*pt.ConfidenceLower, *pt.ConfidenceUpper)
		}
		// The forecaster is external; points violating
		// lower <= value <= upper must not reach the store.
		if err := p.Validate(); err != nil {
			logger.WithSeries(deviceID, metricName).Warnf(
				"Dropping invalid forecast point at %s: %v", pt.Timestamp.Format(time.RFC3339), err)
			continue
		}
		predictions = append(predictions, *p)
	}
	return predictions, body.ModelVersion, nil
}

// Train asks the forecaster to retrain. Empty deviceID/metricName means
// retrain every known series.
func (c *Client) Train(ctx context.Context, deviceID, metricName string) (*TrainResult, error) {
	var result TrainResult
	err := c.breaker.Execute(func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(trainRequest{DeviceID: deviceID, MetricName: metricName}).
			SetResult(&result).
			ForceContentType("application/json").
			Post("/train")
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if resp.IsError() {
			return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		metrics.Get().IncForecastCalls("error")
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	metrics.Get().IncForecastCalls("success")
	return &result, nil
}
