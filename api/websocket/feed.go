package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/network-forecaster/internal/logger"
	"github.com/OldStager01/network-forecaster/pkg/database/queries"
)

// Feed periodically pushes the newest samples to connected clients.
// Connected clients that never send a subscribe message receive the
// whole stream; subscribed clients only their device's share.
type Feed struct {
	hub      *Hub
	samples  *queries.SampleRepository
	interval time.Duration
	window   int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewFeed(hub *Hub, samples *queries.SampleRepository, interval time.Duration, window int) *Feed {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if window <= 0 {
		window = 10
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Feed{
		hub:      hub,
		samples:  samples,
		interval: interval,
		window:   window,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (f *Feed) Start() {
	f.wg.Add(1)
	go f.run()
	logger.Infof("WebSocket feed started (every %s, window %d)", f.interval, f.window)
}

func (f *Feed) Stop() {
	f.cancel()
	f.wg.Wait()
	logger.Info("WebSocket feed stopped")
}

func (f *Feed) run() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			f.push()
		}
	}
}

func (f *Feed) push() {
	if f.hub.ClientCount() == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(f.ctx, 5*time.Second)
	defer cancel()

	samples, err := f.samples.Query(ctx, queries.SampleFilter{Limit: f.window})
	if err != nil {
		logger.Errorf("WebSocket feed query failed: %v", err)
		return
	}

	// Oldest first so clients apply updates in order.
	for i := len(samples) - 1; i >= 0; i-- {
		BroadcastSample(f.hub, &samples[i])
	}
}
