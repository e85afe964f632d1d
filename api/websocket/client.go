package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/OldStager01/network-forecaster/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the dashboard is served from another origin
	},
}

// Client is one dashboard connection. The feed is push-only: the only
// inbound messages are subscribe/unsubscribe.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	deviceID string
	mu       sync.RWMutex
}

type IncomingMessage struct {
	Type     string `json:"type"`
	DeviceID string `json:"device_id,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn, deviceID string) *Client {
	buffer := 256
	if hub.settings != nil && hub.settings.ClientBuffer > 0 {
		buffer = hub.settings.ClientBuffer
	}
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, buffer),
		deviceID: deviceID,
	}
}

// WantsDevice reports whether this client should receive updates for
// deviceID. No subscription means all devices.
func (c *Client) WantsDevice(deviceID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deviceID == "" || c.deviceID == deviceID
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	settings := c.hub.settings
	c.conn.SetReadLimit(settings.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(settings.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(settings.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.handleMessage(&msg)
		}
	}
}

func (c *Client) WritePump() {
	settings := c.hub.settings
	ticker := time.NewTicker(settings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to current websocket frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case "subscribe":
		if msg.DeviceID != "" {
			c.mu.Lock()
			c.deviceID = msg.DeviceID
			c.mu.Unlock()
			logger.Infof("Client subscribed to device: %s", msg.DeviceID)
			c.sendConfirmation("subscribed", msg.DeviceID)
		}
	case "unsubscribe":
		c.mu.Lock()
		oldDeviceID := c.deviceID
		c.deviceID = ""
		c.mu.Unlock()
		logger.Info("Client unsubscribed from device")
		c.sendConfirmation("unsubscribed", oldDeviceID)
	}
}

func (c *Client) sendConfirmation(action, deviceID string) {
	confirmation := map[string]interface{}{
		"type":      "subscription_update",
		"action":    action,
		"device_id": deviceID,
		"timestamp": time.Now(),
	}
	data, err := json.Marshal(confirmation)
	if err != nil {
		logger.Errorf("Failed to marshal confirmation: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		logger.Warn("Client send channel full, dropping confirmation")
	}
}

func ServeWebSocket(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed: %v", err)
			return
		}

		deviceID := c.Query("device_id")
		client := NewClient(hub, conn, deviceID)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
