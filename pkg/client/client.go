// Package client is the Go client for the forecaster API: a thin REST
// wrapper, a receive-only feed subscription, and a View state holder
// that merges pushed updates into a bounded display window.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/OldStager01/network-forecaster/pkg/models"
)

var (
	// ErrNotFound means the device or series is unknown to the server.
	ErrNotFound = errors.New("not found")

	// ErrConflict means the sample was already recorded.
	ErrConflict = errors.New("already recorded")

	// ErrTransient covers network failures and 5xx responses; safe to
	// retry.
	ErrTransient = errors.New("transient fetch error")

	// ErrValidation means the server rejected the request parameters.
	ErrValidation = errors.New("invalid request")

	// ErrUnauthorized means the token is missing, invalid or expired.
	ErrUnauthorized = errors.New("unauthorized")
)

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Retries int
}

// Client wraps the forecaster REST API.
type Client struct {
	http *resty.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond)

	if cfg.Token != "" {
		httpClient.SetAuthToken(cfg.Token)
	}

	return &Client{http: httpClient}
}

// SetToken replaces the bearer token, e.g. after Login.
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	Username  string `json:"username"`
}

// Login authenticates and installs the returned token on the client.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var body loginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&body).
		Post("/auth/login")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if resp.IsError() {
		return statusError(resp.StatusCode())
	}

	c.SetToken(body.Token)
	return nil
}

type devicesResponse struct {
	Devices []models.DeviceStatus `json:"devices"`
	Count   int                   `json:"count"`
}

// Devices lists every device the store has seen.
func (c *Client) Devices(ctx context.Context) ([]models.DeviceStatus, error) {
	var body devicesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/api/v1/devices")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if resp.IsError() {
		return nil, statusError(resp.StatusCode())
	}
	return body.Devices, nil
}

// Sample is a stored reading as the API returns it.
type Sample struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	DeviceID   string    `json:"device_id"`
	MetricName string    `json:"metric_name"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit,omitempty"`
}

type samplesResponse struct {
	Metrics []Sample `json:"metrics"`
	Count   int      `json:"count"`
}

// SampleQuery narrows a Samples call. Zero values mean "no filter".
type SampleQuery struct {
	DeviceID   string
	MetricName string
	Start      *time.Time
	End        *time.Time
	Limit      int
}

// Samples fetches stored readings, newest first.
func (c *Client) Samples(ctx context.Context, q SampleQuery) ([]Sample, error) {
	req := c.http.R().SetContext(ctx)
	if q.DeviceID != "" {
		req.SetQueryParam("device_id", q.DeviceID)
	}
	if q.MetricName != "" {
		req.SetQueryParam("metric_name", q.MetricName)
	}
	if q.Start != nil {
		req.SetQueryParam("start_time", q.Start.UTC().Format(time.RFC3339))
	}
	if q.End != nil {
		req.SetQueryParam("end_time", q.End.UTC().Format(time.RFC3339))
	}
	if q.Limit > 0 {
		req.SetQueryParam("limit", fmt.Sprintf("%d", q.Limit))
	}

	var body samplesResponse
	resp, err := req.SetResult(&body).Get("/api/v1/metrics")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if resp.IsError() {
		return nil, statusError(resp.StatusCode())
	}
	return body.Metrics, nil
}

// Prediction is one forecast point as the API returns it.
type Prediction struct {
	PredictedTimestamp      time.Time `json:"predicted_timestamp"`
	PredictedValue          float64   `json:"predicted_value"`
	ConfidenceIntervalLower *float64  `json:"confidence_interval_lower,omitempty"`
	ConfidenceIntervalUpper *float64  `json:"confidence_interval_upper,omitempty"`
	ModelVersion            string    `json:"model_version,omitempty"`
}

type predictionsResponse struct {
	DeviceID    string       `json:"device_id"`
	MetricName  string       `json:"metric_name"`
	Predictions []Prediction `json:"predictions"`
	Count       int          `json:"count"`
}

// Predictions fetches the stored forecast for one series, oldest first.
func (c *Client) Predictions(ctx context.Context, deviceID, metricName string, hoursAhead int) ([]Prediction, error) {
	req := c.http.R().SetContext(ctx)
	if hoursAhead > 0 {
		req.SetQueryParam("hours_ahead", fmt.Sprintf("%d", hoursAhead))
	}

	var body predictionsResponse
	resp, err := req.SetResult(&body).
		SetPathParams(map[string]string{"device_id": deviceID, "metric_name": metricName}).
		Get("/api/v1/predictions/{device_id}/{metric_name}")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if resp.IsError() {
		return nil, statusError(resp.StatusCode())
	}
	return body.Predictions, nil
}

// GeneratePredictions asks the server for a fresh forecast and returns
// the stored points.
func (c *Client) GeneratePredictions(ctx context.Context, deviceID, metricName string, hoursAhead int) ([]Prediction, error) {
	req := c.http.R().SetContext(ctx)
	if hoursAhead > 0 {
		req.SetQueryParam("hours_ahead", fmt.Sprintf("%d", hoursAhead))
	}

	var body predictionsResponse
	resp, err := req.SetResult(&body).
		SetPathParams(map[string]string{"device_id": deviceID, "metric_name": metricName}).
		Post("/api/v1/predictions/{device_id}/{metric_name}/generate")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if resp.IsError() {
		return nil, statusError(resp.StatusCode())
	}
	return body.Predictions, nil
}

// TrainModels requests retraining. Fire-and-forget on the server side.
func (c *Client) TrainModels(ctx context.Context, deviceID, metricName string) error {
	body := map[string]string{}
	if deviceID != "" {
		body["device_id"] = deviceID
	}
	if metricName != "" {
		body["metric_name"] = metricName
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/api/v1/models/train")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if resp.IsError() {
		return statusError(resp.StatusCode())
	}
	return nil
}

// PushSample submits one reading. The server answers 409 when the
// triple is already recorded; that surfaces as ErrConflict.
func (c *Client) PushSample(ctx context.Context, s *models.MetricSample) error {
	value, _ := s.Value.Float64()
	body := map[string]interface{}{
		"timestamp":   s.Timestamp.UTC().Format(time.RFC3339),
		"device_id":   s.DeviceID,
		"metric_name": s.MetricName,
		"value":       value,
	}
	if s.Unit != "" {
		body["unit"] = s.Unit
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/api/v1/metrics")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if resp.IsError() {
		return statusError(resp.StatusCode())
	}
	return nil
}

func statusError(code int) error {
	switch {
	case code == 401 || code == 403:
		return ErrUnauthorized
	case code == 404:
		return ErrNotFound
	case code == 409:
		return ErrConflict
	case code == 400 || code == 422:
		return ErrValidation
	case code >= 500:
		return fmt.Errorf("%w: server returned %d", ErrTransient, code)
	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}
