package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OldStager01/network-forecaster/internal/events"
	"github.com/OldStager01/network-forecaster/internal/logger"
	"github.com/OldStager01/network-forecaster/pkg/database/queries"
	"github.com/OldStager01/network-forecaster/pkg/models"
	"github.com/OldStager01/network-forecaster/pkg/validation"
)

// ErrNoSamples means there is no history to forecast from.
var ErrNoSamples = errors.New("no samples for series")

// historyLimit caps how much history is shipped to the forecaster per
// generate call.
const historyLimit = 500

type ServiceConfig struct {
	DefaultHorizon int
}

// Service owns the predict/train workflows: fetch history, call the
// forecaster, persist the returned points as the current forecast for
// the series.
type Service struct {
	config      ServiceConfig
	client      *Client
	samples     *queries.SampleRepository
	predictions *queries.PredictionRepository
	publisher   *events.Publisher
}

func NewService(cfg ServiceConfig, client *Client, samples *queries.SampleRepository, predictions *queries.PredictionRepository, publisher *events.Publisher) *Service {
	if cfg.DefaultHorizon <= 0 {
		cfg.DefaultHorizon = 4
	}
	return &Service{
		config:      cfg,
		client:      client,
		samples:     samples,
		predictions: predictions,
		publisher:   publisher,
	}
}

func (s *Service) DefaultHorizon() int {
	return s.config.DefaultHorizon
}

// Generate produces a fresh forecast for one series and stores it,
// replacing any previous forecast for that series.
func (s *Service) Generate(ctx context.Context, deviceID, metricName string, horizonHours int) ([]models.Prediction, error) {
	if err := validation.CheckSeries(deviceID, metricName); err != nil {
		return nil, err
	}
	if horizonHours <= 0 {
		horizonHours = s.config.DefaultHorizon
	}

	filter := queries.SampleFilter{
		DeviceID:   deviceID,
		MetricName: metricName,
		Limit:      historyLimit,
	}
	history, err := s.samples.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if len(history) == 0 {
		return nil, ErrNoSamples
	}

	predictions, modelVersion, err := s.client.Forecast(ctx, deviceID, metricName, horizonHours, history)
	if err != nil {
		s.publisher.Error(deviceID, "Forecast generation failed", err)
		return nil, err
	}

	if err := s.predictions.ReplaceForSeries(ctx, deviceID, metricName, predictions); err != nil {
		return nil, fmt.Errorf("failed to store predictions: %w", err)
	}

	s.publisher.PredictionStored(deviceID, metricName, len(predictions), modelVersion)
	logger.WithSeries(deviceID, metricName).Infof("Stored %d predictions (model %s)", len(predictions), modelVersion)

	return predictions, nil
}

// Train kicks off a retraining run on the forecaster. Runs in the
// background; outcome is logged and published, not returned.
func (s *Service) Train(deviceID, metricName string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		result, err := s.client.Train(ctx, deviceID, metricName)
		if err != nil {
			logger.Errorf("Model training failed: %v", err)
			s.publisher.Error(deviceID, "Model training failed", err)
			return
		}

		logger.Infof("Model training finished: version=%s series=%d score=%.4f",
			result.ModelVersion, result.SeriesTrained, result.Score)
		s.publisher.ModelTrained(deviceID, metricName, result)
	}()
}
