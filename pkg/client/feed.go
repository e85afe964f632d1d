package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/OldStager01/network-forecaster/internal/logger"
	"github.com/OldStager01/network-forecaster/pkg/models"
)

const (
	feedPongWait        = 60 * time.Second
	feedReconnectMin    = time.Second
	feedReconnectMax    = 30 * time.Second
	feedUpdateBuffer    = 64
	feedHandshakeWindow = 10 * time.Second
)

// Feed is the receive-only live-update subscription. It reconnects
// with exponential backoff and delivers metric updates on Updates().
type Feed struct {
	url       string
	updates   chan models.MetricUpdate
	connected chan bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	once      sync.Once
}

// NewFeed builds a feed for the given API base URL, e.g.
// "http://localhost:8080".
func NewFeed(baseURL string) *Feed {
	ctx, cancel := context.WithCancel(context.Background())

	return &Feed{
		url:       wsURL(baseURL),
		updates:   make(chan models.MetricUpdate, feedUpdateBuffer),
		connected: make(chan bool, 8),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func wsURL(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + "/ws"
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}

// Updates is the stream of pushed metric events.
func (f *Feed) Updates() <-chan models.MetricUpdate {
	return f.updates
}

// Connected signals channel open/close transitions.
func (f *Feed) Connected() <-chan bool {
	return f.connected
}

func (f *Feed) Start() {
	f.once.Do(func() {
		f.wg.Add(1)
		go f.run()
	})
}

func (f *Feed) Stop() {
	f.cancel()
	f.wg.Wait()
}

func (f *Feed) run() {
	defer f.wg.Done()
	defer close(f.updates)

	backoff := feedReconnectMin

	for {
		if f.ctx.Err() != nil {
			return
		}

		conn, err := f.dial()
		if err != nil {
			logger.Warnf("Feed connect to %s failed: %v", f.url, err)
			if !f.sleep(backoff) {
				return
			}
			backoff *= 2
			if backoff > feedReconnectMax {
				backoff = feedReconnectMax
			}
			continue
		}

		backoff = feedReconnectMin
		f.notify(true)
		f.readLoop(conn)
		f.notify(false)
	}
}

func (f *Feed) dial() (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(f.ctx, feedHandshakeWindow)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	return conn, err
}

func (f *Feed) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	// Unblock ReadMessage when the feed is stopped.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-f.ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(feedPongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.ctx.Err() == nil {
				logger.Warnf("Feed read failed, reconnecting: %v", err)
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(feedPongWait))

		// Frames may carry several newline-separated messages.
		for _, raw := range strings.Split(string(message), "\n") {
			if raw == "" {
				continue
			}
			f.deliver([]byte(raw))
		}
	}
}

func (f *Feed) deliver(raw []byte) {
	var update models.MetricUpdate
	if err := json.Unmarshal(raw, &update); err != nil {
		return
	}
	if update.Type != "metric_update" {
		return
	}

	select {
	case f.updates <- update:
	default:
		// Drop when the consumer lags; the view re-fetches anyway.
	}
}

func (f *Feed) notify(connected bool) {
	select {
	case f.connected <- connected:
	default:
	}
}

func (f *Feed) sleep(d time.Duration) bool {
	select {
	case <-f.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
