package collector

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/network-forecaster/internal/logger"
	"github.com/OldStager01/network-forecaster/internal/metrics"
	"github.com/OldStager01/network-forecaster/pkg/models"
)

// Sink receives everything a collection cycle produced.
type Sink interface {
	IngestBatch(ctx context.Context, samples []models.MetricSample) (int, error)
}

type ManagerConfig struct {
	Interval     time.Duration
	ErrorBackoff time.Duration
}

// Manager runs each registered collector on its own goroutine, pushing
// results into the sink on a fixed interval. A failed cycle backs off
// before the next attempt instead of hammering a broken source.
type Manager struct {
	config     ManagerConfig
	sink       Sink
	collectors []Collector
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	running    bool
	mu         sync.Mutex
}

func NewManager(cfg ManagerConfig, sink Sink) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config: cfg,
		sink:   sink,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (m *Manager) Register(c Collector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collectors = append(m.collectors, c)
}

func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}
	m.running = true

	for _, c := range m.collectors {
		m.wg.Add(1)
		go m.run(c)
	}

	logger.Infof("Collector manager started with %d collectors", len(m.collectors))
	return nil
}

func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	for _, c := range m.collectors {
		if err := c.Close(); err != nil {
			logger.Warnf("Collector %s close: %v", c.Name(), err)
		}
	}
	m.mu.Unlock()

	logger.Info("Collector manager stopped")
}

func (m *Manager) run(c Collector) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	// Run immediately on start
	m.runCycle(c)

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.runCycle(c)
		}
	}
}

func (m *Manager) runCycle(c Collector) {
	ctx, cancel := context.WithTimeout(m.ctx, m.config.Interval)
	defer cancel()

	start := time.Now()

	samples, err := c.Collect(ctx)
	if err != nil {
		metrics.Get().IncCollectionErrors(c.Name())
		logger.Errorf("Collector %s failed: %v", c.Name(), err)
		m.backoff()
		return
	}

	metrics.Get().IncCollections(c.Name())
	metrics.Get().SetCollectionLatency(c.Name(), time.Since(start))

	if len(samples) == 0 {
		return
	}

	stored, err := m.sink.IngestBatch(ctx, samples)
	if err != nil {
		logger.Errorf("Collector %s ingest failed after %d samples: %v", c.Name(), stored, err)
		m.backoff()
		return
	}

	logger.Debugf("Collector %s stored %d/%d samples", c.Name(), stored, len(samples))
}

func (m *Manager) backoff() {
	select {
	case <-m.ctx.Done():
	case <-time.After(m.config.ErrorBackoff):
	}
}
