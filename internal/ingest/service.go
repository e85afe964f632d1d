package ingest

import (
	"context"
	"errors"

	"github.com/OldStager01/network-forecaster/internal/events"
	"github.com/OldStager01/network-forecaster/internal/logger"
	"github.com/OldStager01/network-forecaster/internal/metrics"
	"github.com/OldStager01/network-forecaster/pkg/database/queries"
	"github.com/OldStager01/network-forecaster/pkg/models"
	"github.com/OldStager01/network-forecaster/pkg/validation"
)

// Service is the single write path for samples: validate, persist,
// refresh the device registry, publish the live-update event.
type Service struct {
	samples   *queries.SampleRepository
	devices   *queries.DeviceRepository
	publisher *events.Publisher
	cache     Invalidator
}

// Invalidator drops cached reads that an ingest makes stale.
type Invalidator interface {
	InvalidateDevices(ctx context.Context)
	InvalidateLatest(ctx context.Context, deviceID string)
}

func NewService(samples *queries.SampleRepository, devices *queries.DeviceRepository, publisher *events.Publisher, cache Invalidator) *Service {
	return &Service{
		samples:   samples,
		devices:   devices,
		publisher: publisher,
		cache:     cache,
	}
}

// Ingest stores one sample. A duplicate triple is surfaced as
// queries.ErrDuplicateSample; the stored value is never altered.
func (s *Service) Ingest(ctx context.Context, sample *models.MetricSample) error {
	if err := sample.Validate(); err != nil {
		return err
	}
	if err := validation.CheckSeries(sample.DeviceID, sample.MetricName); err != nil {
		return err
	}

	if err := s.samples.Insert(ctx, sample); err != nil {
		if errors.Is(err, queries.ErrDuplicateSample) {
			metrics.Get().IncSampleConflicts(sample.DeviceID)
			s.publisher.SampleConflict(sample)
		}
		return err
	}

	metrics.Get().IncSamplesIngested(sample.DeviceID)
	metrics.Get().SetLastValue(sample.DeviceID, sample.MetricName, sample.Value.InexactFloat64())

	if err := s.devices.Touch(ctx, sample.DeviceID, sample.Timestamp); err != nil {
		logger.WithDevice(sample.DeviceID).Warnf("Failed to refresh device registry: %v", err)
	}
	if s.cache != nil {
		s.cache.InvalidateDevices(ctx)
		s.cache.InvalidateLatest(ctx, sample.DeviceID)
	}

	s.publisher.SampleIngested(sample)
	return nil
}

// IngestBatch stores a collection cycle's worth of samples. Duplicates
// are skipped so at-least-once agents can replay safely.
func (s *Service) IngestBatch(ctx context.Context, samples []models.MetricSample) (stored int, err error) {
	for i := range samples {
		insErr := s.Ingest(ctx, &samples[i])
		if insErr == nil {
			stored++
			continue
		}
		if errors.Is(insErr, queries.ErrDuplicateSample) {
			continue
		}
		return stored, insErr
	}
	return stored, nil
}
