package collector

import (
	"context"
	"errors"

	"github.com/OldStager01/network-forecaster/pkg/models"
)

var (
	ErrCollectionFailed = errors.New("metric collection failed")
	ErrTimeout          = errors.New("collection timeout")
)

// Collector produces a batch of samples per collection cycle.
type Collector interface {
	// Name identifies the collector in logs and events
	Name() string

	// Collect gathers the current readings
	Collect(ctx context.Context) ([]models.MetricSample, error)

	// Close releases any resources held by the collector
	Close() error
}
