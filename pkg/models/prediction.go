package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidConfidenceBounds = errors.New("confidence bounds must satisfy lower <= predicted_value <= upper")

// Prediction represents a model-produced forecast value for a future
// timestamp. Predictions correlate to samples only by (device_id,
// metric_name); there is no row-level link.
type Prediction struct {
	ID              int64               `json:"id,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	DeviceID        string              `json:"device_id"`
	MetricName      string              `json:"metric_name"`
	PredictedAt     time.Time           `json:"predicted_timestamp"`
	PredictedValue  decimal.Decimal     `json:"predicted_value"`
	ConfidenceLower decimal.NullDecimal `json:"confidence_interval_lower"`
	ConfidenceUpper decimal.NullDecimal `json:"confidence_interval_upper"`
	ModelVersion    string              `json:"model_version,omitempty"`
}

func NewPrediction(deviceID, metricName string, predictedAt time.Time, value decimal.Decimal) *Prediction {
	return &Prediction{
		CreatedAt:      time.Now().UTC(),
		DeviceID:       deviceID,
		MetricName:     metricName,
		PredictedAt:    predictedAt,
		PredictedValue: value,
	}
}

func (p *Prediction) WithBounds(lower, upper decimal.Decimal) *Prediction {
	p.ConfidenceLower = decimal.NullDecimal{Decimal: lower, Valid: true}
	p.ConfidenceUpper = decimal.NullDecimal{Decimal: upper, Valid: true}
	return p
}

func (p *Prediction) Validate() error {
	if p.DeviceID == "" {
		return ErrMissingDeviceID
	}
	if p.MetricName == "" {
		return ErrMissingMetricName
	}
	if p.ConfidenceLower.Valid && p.ConfidenceLower.Decimal.GreaterThan(p.PredictedValue) {
		return ErrInvalidConfidenceBounds
	}
	if p.ConfidenceUpper.Valid && p.ConfidenceUpper.Decimal.LessThan(p.PredictedValue) {
		return ErrInvalidConfidenceBounds
	}
	return nil
}

// HasBounds reports whether both confidence bounds are present.
func (p *Prediction) HasBounds() bool {
	return p.ConfidenceLower.Valid && p.ConfidenceUpper.Valid
}

// IsForecast reports whether the prediction targets a future instant
// relative to when it was produced. Not enforced structurally.
func (p *Prediction) IsForecast() bool {
	return !p.PredictedAt.Before(p.CreatedAt)
}
