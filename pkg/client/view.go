package client

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/network-forecaster/internal/logger"
	"github.com/OldStager01/network-forecaster/pkg/models"
)

// ViewState is the connection lifecycle of a live view.
type ViewState int

const (
	// Disconnected: no live-update channel; data may be stale.
	Disconnected ViewState = iota
	// ConnectedIdle: channel open, no device selected.
	ConnectedIdle
	// ConnectedStreaming: channel open and updates for the selected
	// device are being merged.
	ConnectedStreaming
)

func (s ViewState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case ConnectedIdle:
		return "connected-idle"
	case ConnectedStreaming:
		return "connected-streaming"
	default:
		return "unknown"
	}
}

// API is the server surface the view needs. *Client satisfies it.
type API interface {
	Devices(ctx context.Context) ([]models.DeviceStatus, error)
	Samples(ctx context.Context, q SampleQuery) ([]Sample, error)
	Predictions(ctx context.Context, deviceID, metricName string, hoursAhead int) ([]Prediction, error)
	GeneratePredictions(ctx context.Context, deviceID, metricName string, hoursAhead int) ([]Prediction, error)
	TrainModels(ctx context.Context, deviceID, metricName string) error
}

type ViewConfig struct {
	// WindowSize bounds how many samples a selection fetches.
	WindowSize int
	// HorizonHours is the forecast window shown alongside samples.
	HorizonHours int
	// Debounce collapses bursts of push events into one re-fetch.
	Debounce time.Duration
	// FetchTimeout bounds each request the view issues.
	FetchTimeout time.Duration
}

// Notification reports the outcome of a user-triggered action.
type Notification struct {
	Message string
	Err     error
}

// View holds the displayable state for one dashboard session: the
// device list, a bounded sample window for the selected device grouped
// by metric, and the forecast for its lead metric. All mutation goes
// through its methods.
//
// Two ordering hazards are handled explicitly. Every selection bumps a
// token, and a fetch only applies its results while its token is still
// current, so a slow response for a previously selected device can
// never overwrite the current one. Push events do not each trigger a
// re-fetch; they arm a debounce timer, so a burst costs one request.
type View struct {
	api    API
	feed   *Feed
	config ViewConfig

	mu          sync.Mutex
	state       ViewState
	devices     []models.DeviceStatus
	selected    string
	token       uint64
	window      map[string][]Sample
	leadMetric  string
	predictions []Prediction
	refetch     *time.Timer

	notifications chan Notification
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

func NewView(api API, feed *Feed, cfg ViewConfig) *View {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 100
	}
	if cfg.HorizonHours <= 0 {
		cfg.HorizonHours = 4
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &View{
		api:           api,
		feed:          feed,
		config:        cfg,
		state:         Disconnected,
		window:        make(map[string][]Sample),
		notifications: make(chan Notification, 16),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start fetches the device list and opens the live-update channel.
// Callers driving their own feed loop may construct the view with a
// nil feed and deliver updates through HandleUpdate.
func (v *View) Start() {
	v.refreshDevices()

	if v.feed == nil {
		return
	}
	v.feed.Start()
	v.wg.Add(1)
	go v.consume()
}

// Stop closes the channel and stops merging.
func (v *View) Stop() {
	v.cancel()
	if v.feed != nil {
		v.feed.Stop()
	}
	v.wg.Wait()

	v.mu.Lock()
	if v.refetch != nil {
		v.refetch.Stop()
		v.refetch = nil
	}
	v.state = Disconnected
	v.mu.Unlock()
}

// State returns the current lifecycle state.
func (v *View) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Devices returns the last fetched device list.
func (v *View) Devices() []models.DeviceStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.DeviceStatus, len(v.devices))
	copy(out, v.devices)
	return out
}

// SelectedDevice returns the device the view is following, if any.
func (v *View) SelectedDevice() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

// Window returns the sample window grouped by metric name.
func (v *View) Window() map[string][]Sample {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string][]Sample, len(v.window))
	for metric, samples := range v.window {
		s := make([]Sample, len(samples))
		copy(s, samples)
		out[metric] = s
	}
	return out
}

// Predictions returns the forecast for the lead metric of the selected
// device.
func (v *View) Predictions() (metric string, points []Prediction) {
	v.mu.Lock()
	defer v.mu.Unlock()
	points = make([]Prediction, len(v.predictions))
	copy(points, v.predictions)
	return v.leadMetric, points
}

// Notifications reports outcomes of generate/train actions.
func (v *View) Notifications() <-chan Notification {
	return v.notifications
}

// SelectDevice switches the view to a device and loads its window. A
// later SelectDevice invalidates any responses still in flight for the
// previous selection.
func (v *View) SelectDevice(deviceID string) {
	v.mu.Lock()
	v.token++
	token := v.token
	v.selected = deviceID
	v.window = make(map[string][]Sample)
	v.leadMetric = ""
	v.predictions = nil
	if v.refetch != nil {
		v.refetch.Stop()
		v.refetch = nil
	}
	if v.state != Disconnected {
		if deviceID == "" {
			v.state = ConnectedIdle
		} else {
			v.state = ConnectedStreaming
		}
	}
	v.mu.Unlock()

	if deviceID == "" {
		return
	}

	go v.loadWindow(deviceID, token)
}

// RefreshDevices re-fetches the device list.
func (v *View) RefreshDevices() {
	go v.refreshDevices()
}

// GeneratePredictions asks the server for a fresh forecast and merges
// it when it arrives. Non-blocking.
func (v *View) GeneratePredictions(deviceID, metricName string) {
	go func() {
		ctx, cancel := context.WithTimeout(v.ctx, time.Minute)
		defer cancel()

		v.mu.Lock()
		token := v.token
		v.mu.Unlock()

		points, err := v.api.GeneratePredictions(ctx, deviceID, metricName, v.config.HorizonHours)
		if err != nil {
			logger.WithSeries(deviceID, metricName).Warnf("Generate predictions failed: %v", err)
			v.notify(Notification{Message: "prediction generation failed", Err: err})
			return
		}

		v.mu.Lock()
		if v.token == token && v.selected == deviceID {
			v.leadMetric = metricName
			v.predictions = points
		}
		v.mu.Unlock()

		v.notify(Notification{Message: "predictions updated"})
	}()
}

// TrainModels requests retraining. The result only surfaces as a
// notification.
func (v *View) TrainModels(deviceID, metricName string) {
	go func() {
		ctx, cancel := context.WithTimeout(v.ctx, v.config.FetchTimeout)
		defer cancel()

		if err := v.api.TrainModels(ctx, deviceID, metricName); err != nil {
			logger.Warnf("Train models failed: %v", err)
			v.notify(Notification{Message: "training request failed", Err: err})
			return
		}
		v.notify(Notification{Message: "training started"})
	}()
}

// HandleUpdate merges one pushed metric event. Exported so callers
// driving their own feed loop can reuse the merge policy.
func (v *View) HandleUpdate(update models.MetricUpdate) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.selected == "" || update.DeviceID != v.selected {
		return
	}

	// Coalesce bursts: one re-fetch per debounce window.
	if v.refetch != nil {
		return
	}

	deviceID := v.selected
	token := v.token
	v.refetch = time.AfterFunc(v.config.Debounce, func() {
		v.mu.Lock()
		v.refetch = nil
		current := v.token == token && v.selected == deviceID
		v.mu.Unlock()

		if current && v.ctx.Err() == nil {
			v.loadWindow(deviceID, token)
		}
	})
}

func (v *View) consume() {
	defer v.wg.Done()

	for {
		select {
		case <-v.ctx.Done():
			return

		case connected, ok := <-v.feed.Connected():
			if !ok {
				return
			}
			v.setConnected(connected)

		case update, ok := <-v.feed.Updates():
			if !ok {
				return
			}
			v.HandleUpdate(update)
		}
	}
}

func (v *View) setConnected(connected bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !connected {
		v.state = Disconnected
		return
	}
	if v.selected != "" {
		v.state = ConnectedStreaming
	} else {
		v.state = ConnectedIdle
	}
}

func (v *View) refreshDevices() {
	ctx, cancel := context.WithTimeout(v.ctx, v.config.FetchTimeout)
	defer cancel()

	devices, err := v.api.Devices(ctx)
	if err != nil {
		// Degrade to an empty list; never substitute fabricated data.
		logger.Warnf("Device list fetch failed: %v", err)
		return
	}

	v.mu.Lock()
	v.devices = devices
	v.mu.Unlock()
}

// loadWindow fetches the sample window and lead-metric forecast for a
// selection. Results are dropped if the selection changed while the
// fetch was in flight.
func (v *View) loadWindow(deviceID string, token uint64) {
	ctx, cancel := context.WithTimeout(v.ctx, v.config.FetchTimeout)
	defer cancel()

	samples, err := v.api.Samples(ctx, SampleQuery{
		DeviceID: deviceID,
		Limit:    v.config.WindowSize,
	})
	if err != nil {
		logger.WithDevice(deviceID).Warnf("Metrics fetch failed: %v", err)
		v.applyWindow(token, deviceID, make(map[string][]Sample), "")
		return
	}

	grouped := make(map[string][]Sample)
	leadMetric := ""
	for _, s := range samples {
		if leadMetric == "" {
			leadMetric = s.MetricName
		}
		grouped[s.MetricName] = append(grouped[s.MetricName], s)
	}

	if !v.applyWindow(token, deviceID, grouped, leadMetric) {
		return
	}

	if leadMetric == "" {
		return
	}

	points, err := v.api.Predictions(ctx, deviceID, leadMetric, v.config.HorizonHours)
	if err != nil {
		logger.WithSeries(deviceID, leadMetric).Warnf("Predictions fetch failed: %v", err)
		return
	}

	v.mu.Lock()
	if v.token == token {
		v.predictions = points
	}
	v.mu.Unlock()
}

// applyWindow installs fetched samples if the selection token is still
// current. Reports whether the result was applied.
func (v *View) applyWindow(token uint64, deviceID string, grouped map[string][]Sample, leadMetric string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.token != token || v.selected != deviceID {
		return false
	}

	v.window = grouped
	v.leadMetric = leadMetric
	v.predictions = nil
	return true
}

func (v *View) notify(n Notification) {
	select {
	case v.notifications <- n:
	default:
	}
}
