package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/OldStager01/network-forecaster/internal/logger"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	samplesIngested  map[string]int64
	sampleConflicts  map[string]int64
	collectionsTotal map[string]int64
	collectionErrors map[string]int64
	forecastCalls    map[string]int64 // outcome -> count
	retentionPurges  map[string]int64 // table -> rows removed

	// Gauges
	wsClients           int
	deviceLastValue     map[string]map[string]float64 // device -> metric -> value
	circuitBreakerState map[string]int                // 0=closed, 1=open, 2=half-open

	// Histograms (simplified - just track last values)
	collectionLatency map[string]time.Duration
	forecastLatency   time.Duration
}

var (
	instance *Metrics
	once     sync.Once
)

func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			samplesIngested:     make(map[string]int64),
			sampleConflicts:     make(map[string]int64),
			collectionsTotal:    make(map[string]int64),
			collectionErrors:    make(map[string]int64),
			forecastCalls:       make(map[string]int64),
			retentionPurges:     make(map[string]int64),
			deviceLastValue:     make(map[string]map[string]float64),
			circuitBreakerState: make(map[string]int),
			collectionLatency:   make(map[string]time.Duration),
		}
	})
	return instance
}

func (m *Metrics) IncSamplesIngested(deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samplesIngested[deviceID]++
}

func (m *Metrics) IncSampleConflicts(deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sampleConflicts[deviceID]++
}

func (m *Metrics) IncCollections(collector string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collectionsTotal[collector]++
}

func (m *Metrics) IncCollectionErrors(collector string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collectionErrors[collector]++
}

func (m *Metrics) IncForecastCalls(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forecastCalls[outcome]++
}

func (m *Metrics) AddRetentionPurged(table string, rows int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retentionPurges[table] += rows
}

func (m *Metrics) SetWSClients(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wsClients = count
}

func (m *Metrics) SetLastValue(deviceID, metricName string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deviceLastValue[deviceID] == nil {
		m.deviceLastValue[deviceID] = make(map[string]float64)
	}
	m.deviceLastValue[deviceID][metricName] = value
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.circuitBreakerState[name] = state
}

func (m *Metrics) SetCollectionLatency(collector string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collectionLatency[collector] = d
}

func (m *Metrics) SetForecastLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forecastLatency = d
}

func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		for device, count := range m.samplesIngested {
			writeMetric(w, "forecaster_samples_ingested_total", map[string]string{"device_id": device}, float64(count))
		}

		for device, count := range m.sampleConflicts {
			writeMetric(w, "forecaster_sample_conflicts_total", map[string]string{"device_id": device}, float64(count))
		}

		for collector, count := range m.collectionsTotal {
			writeMetric(w, "forecaster_collections_total", map[string]string{"collector": collector}, float64(count))
		}

		for collector, count := range m.collectionErrors {
			writeMetric(w, "forecaster_collection_errors_total", map[string]string{"collector": collector}, float64(count))
		}

		for outcome, count := range m.forecastCalls {
			writeMetric(w, "forecaster_forecast_calls_total", map[string]string{"outcome": outcome}, float64(count))
		}

		for table, rows := range m.retentionPurges {
			writeMetric(w, "forecaster_retention_purged_rows_total", map[string]string{"table": table}, float64(rows))
		}

		writeMetric(w, "forecaster_ws_clients", nil, float64(m.wsClients))

		for device, values := range m.deviceLastValue {
			for metric, value := range values {
				writeMetric(w, "forecaster_last_sample_value", map[string]string{"device_id": device, "metric_name": metric}, value)
			}
		}

		for name, state := range m.circuitBreakerState {
			writeMetric(w, "forecaster_circuit_breaker_state", map[string]string{"name": name}, float64(state))
		}

		for collector, latency := range m.collectionLatency {
			writeMetric(w, "forecaster_collection_latency_ms", map[string]string{"collector": collector}, float64(latency.Milliseconds()))
		}

		writeMetric(w, "forecaster_forecast_latency_ms", nil, float64(m.forecastLatency.Milliseconds()))
	})
}

func writeMetric(w http.ResponseWriter, name string, labels map[string]string, value float64) {
	labelStr := ""
	if len(labels) > 0 {
		labelStr = "{"
		first := true
		for k, v := range labels {
			if !first {
				labelStr += ","
			}
			labelStr += k + `="` + v + `"`
			first = false
		}
		labelStr += "}"
	}
	w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(value, 'f', -1, 64) + "\n"))
}

func StartServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Get().Handler())

	addr := ":" + strconv.Itoa(port)
	logger.Infof("Prometheus metrics server listening on %s", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Errorf("Prometheus server error: %v", err)
		}
	}()
}
