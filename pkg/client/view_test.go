package client

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/network-forecaster/pkg/models"
)

// fakeAPI serves canned windows per device and can hold a Samples call
// open until released, to simulate a slow response.
type fakeAPI struct {
	mu            sync.Mutex
	samples       map[string][]Sample
	blockDevice   string
	release       chan struct{}
	samplesCalls  int64
	trainedSeries []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		samples: make(map[string][]Sample),
		release: make(chan struct{}),
	}
}

func (f *fakeAPI) Devices(ctx context.Context) ([]models.DeviceStatus, error) {
	return []models.DeviceStatus{{DeviceID: "router-001"}, {DeviceID: "switch-002"}}, nil
}

func (f *fakeAPI) Samples(ctx context.Context, q SampleQuery) ([]Sample, error) {
	atomic.AddInt64(&f.samplesCalls, 1)

	f.mu.Lock()
	blocked := f.blockDevice != "" && q.DeviceID == f.blockDevice
	f.mu.Unlock()

	if blocked {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Sample, len(f.samples[q.DeviceID]))
	copy(out, f.samples[q.DeviceID])
	return out, nil
}

func (f *fakeAPI) Predictions(ctx context.Context, deviceID, metricName string, hoursAhead int) ([]Prediction, error) {
	return nil, nil
}

func (f *fakeAPI) GeneratePredictions(ctx context.Context, deviceID, metricName string, hoursAhead int) ([]Prediction, error) {
	return []Prediction{{PredictedValue: 90, ModelVersion: "v1"}}, nil
}

func (f *fakeAPI) TrainModels(ctx context.Context, deviceID, metricName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trainedSeries = append(f.trainedSeries, deviceID+"/"+metricName)
	return nil
}

func (f *fakeAPI) callCount() int64 {
	return atomic.LoadInt64(&f.samplesCalls)
}

func deviceSamples(deviceID, metric string, n int) []Sample {
	now := time.Now().UTC()
	out := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Sample{
			Timestamp:  now.Add(-time.Duration(i) * time.Minute),
			DeviceID:   deviceID,
			MetricName: metric,
			Value:      float64(80 + i),
		})
	}
	return out
}

func windowFor(v *View, metric string) func() []Sample {
	return func() []Sample { return v.Window()[metric] }
}

func TestView_SelectDevice_LoadsWindow(t *testing.T) {
	api := newFakeAPI()
	api.samples["router-001"] = deviceSamples("router-001", "bandwidth", 3)

	v := NewView(api, nil, ViewConfig{FetchTimeout: 2 * time.Second})

	v.SelectDevice("router-001")

	assert.Eventually(t, func() bool {
		return len(windowFor(v, "bandwidth")()) == 3
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "router-001", v.SelectedDevice())
	metric, _ := v.Predictions()
	assert.Equal(t, "bandwidth", metric)
}

// A slow response for a previous selection must not overwrite the
// window of the current one.
func TestView_StaleResponseDiscarded(t *testing.T) {
	api := newFakeAPI()
	api.samples["router-001"] = deviceSamples("router-001", "bandwidth", 5)
	api.samples["switch-002"] = deviceSamples("switch-002", "latency", 2)
	api.blockDevice = "router-001"

	v := NewView(api, nil, ViewConfig{FetchTimeout: 5 * time.Second})

	// First selection hangs server-side.
	v.SelectDevice("router-001")

	assert.Eventually(t, func() bool {
		return api.callCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Switch away while the first fetch is still in flight.
	v.SelectDevice("switch-002")

	assert.Eventually(t, func() bool {
		return len(windowFor(v, "latency")()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// Now the slow response lands. It must be dropped.
	close(api.release)

	time.Sleep(100 * time.Millisecond)
	window := v.Window()
	assert.Empty(t, window["bandwidth"], "stale response overwrote the current window")
	assert.Len(t, window["latency"], 2)
	assert.Equal(t, "switch-002", v.SelectedDevice())
}

// A burst of push events costs one re-fetch, not one per event.
func TestView_UpdateBurstDebounced(t *testing.T) {
	api := newFakeAPI()
	api.samples["router-001"] = deviceSamples("router-001", "bandwidth", 2)

	v := NewView(api, nil, ViewConfig{
		Debounce:     50 * time.Millisecond,
		FetchTimeout: 2 * time.Second,
	})

	v.SelectDevice("router-001")

	assert.Eventually(t, func() bool {
		return api.callCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	for i := 0; i < 10; i++ {
		v.HandleUpdate(models.MetricUpdate{
			Type:       "metric_update",
			DeviceID:   "router-001",
			MetricName: "bandwidth",
			Value:      float64(85 + i),
			Timestamp:  time.Now().UTC(),
		})
	}

	// One debounced re-fetch for the whole burst.
	assert.Eventually(t, func() bool {
		return api.callCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int64(2), api.callCount())
}

func TestView_UpdateForOtherDeviceIgnored(t *testing.T) {
	api := newFakeAPI()
	api.samples["router-001"] = deviceSamples("router-001", "bandwidth", 2)

	v := NewView(api, nil, ViewConfig{
		Debounce:     20 * time.Millisecond,
		FetchTimeout: 2 * time.Second,
	})

	v.SelectDevice("router-001")

	assert.Eventually(t, func() bool {
		return api.callCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	v.HandleUpdate(models.MetricUpdate{
		Type:     "metric_update",
		DeviceID: "switch-002",
	})

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(1), api.callCount())
}

func TestView_SelectionCancelsPendingRefetch(t *testing.T) {
	api := newFakeAPI()
	api.samples["router-001"] = deviceSamples("router-001", "bandwidth", 2)
	api.samples["switch-002"] = deviceSamples("switch-002", "latency", 1)

	v := NewView(api, nil, ViewConfig{
		Debounce:     100 * time.Millisecond,
		FetchTimeout: 2 * time.Second,
	})

	v.SelectDevice("router-001")

	assert.Eventually(t, func() bool {
		return api.callCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Arm the debounce, then switch devices before it fires.
	v.HandleUpdate(models.MetricUpdate{Type: "metric_update", DeviceID: "router-001"})
	v.SelectDevice("switch-002")

	assert.Eventually(t, func() bool {
		return len(windowFor(v, "latency")()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The armed re-fetch for router-001 must not fire.
	calls := api.callCount()
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, calls, api.callCount())
}

func TestView_EmptySelectionClearsWindow(t *testing.T) {
	api := newFakeAPI()
	api.samples["router-001"] = deviceSamples("router-001", "bandwidth", 2)

	v := NewView(api, nil, ViewConfig{FetchTimeout: 2 * time.Second})

	v.SelectDevice("router-001")
	assert.Eventually(t, func() bool {
		return len(windowFor(v, "bandwidth")()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	v.SelectDevice("")

	assert.Empty(t, v.Window())
	assert.Equal(t, "", v.SelectedDevice())
}

func TestView_StartStopWithoutFeed(t *testing.T) {
	api := newFakeAPI()
	v := NewView(api, nil, ViewConfig{FetchTimeout: 2 * time.Second})

	v.Start()

	devices := v.Devices()
	require.Len(t, devices, 2)
	assert.Equal(t, "router-001", devices[0].DeviceID)

	v.Stop()
	assert.Equal(t, Disconnected, v.State())
}

func TestViewState_String(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connected-idle", ConnectedIdle.String())
	assert.Equal(t, "connected-streaming", ConnectedStreaming.String())
}

func TestView_TrainModels_Notifies(t *testing.T) {
	api := newFakeAPI()
	v := NewView(api, nil, ViewConfig{FetchTimeout: 2 * time.Second})

	v.TrainModels("router-001", "bandwidth")

	select {
	case n := <-v.Notifications():
		require.NoError(t, n.Err)
		assert.Equal(t, "training started", n.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, []string{"router-001/bandwidth"}, api.trainedSeries)
}
