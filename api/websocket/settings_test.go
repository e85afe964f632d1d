package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/OldStager01/network-forecaster/pkg/config"
)

func TestNewSettings_Defaults(t *testing.T) {
	s := NewSettings(nil)

	assert.Equal(t, 10*time.Second, s.WriteWait)
	assert.Equal(t, 60*time.Second, s.PongWait)
	assert.Equal(t, 54*time.Second, s.PingPeriod)
	assert.Equal(t, int64(512), s.MaxMessageSize)
	assert.Equal(t, 256, s.ClientBuffer)
}

func TestNewSettings_FromConfig(t *testing.T) {
	s := NewSettings(&config.WebSocketConfig{
		WriteTimeout:   5 * time.Second,
		PongTimeout:    30 * time.Second,
		PingInterval:   20 * time.Second,
		MaxMessageSize: 2048,
	})

	assert.Equal(t, 5*time.Second, s.WriteWait)
	assert.Equal(t, 30*time.Second, s.PongWait)
	assert.Equal(t, 20*time.Second, s.PingPeriod)
	assert.Equal(t, int64(2048), s.MaxMessageSize)
	// Unset fields keep defaults.
	assert.Equal(t, 1024, s.ReadBufferSize)
}

func TestNewSettings_PingMustBeatPong(t *testing.T) {
	// A ping interval longer than the pong window would drop every
	// connection; it is ignored.
	s := NewSettings(&config.WebSocketConfig{
		PongTimeout:  30 * time.Second,
		PingInterval: time.Minute,
	})

	assert.Equal(t, 27*time.Second, s.PingPeriod)
}
