package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/OldStager01/network-forecaster/internal/logger"
	"github.com/OldStager01/network-forecaster/pkg/models"
)

// EventBridge forwards internal events to WebSocket clients.
type EventBridge struct {
	hub        *Hub
	eventsChan <-chan *models.Event
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewEventBridge(hub *Hub, eventsChan <-chan *models.Event) *EventBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBridge{
		hub:        hub,
		eventsChan: eventsChan,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (b *EventBridge) Start() {
	go b.run()
	logger.Info("WebSocket event bridge started")
}

func (b *EventBridge) Stop() {
	b.cancel()
	logger.Info("WebSocket event bridge stopped")
}

func (b *EventBridge) run() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.eventsChan:
			if !ok {
				logger.Info("Event channel closed, stopping bridge")
				return
			}
			b.forwardEvent(event)
		}
	}
}

func (b *EventBridge) forwardEvent(event *models.Event) {
	// Ingested samples go out immediately in the flat metric_update
	// shape live viewers consume; the periodic feed only backfills.
	if event.Type == models.EventTypeSampleIngested {
		if data, ok := sampleUpdatePayload(event); ok {
			b.hub.BroadcastToDevice(event.DeviceID, data)
		}
		return
	}

	wsMessage := b.convertToWSMessage(event)
	if wsMessage == nil {
		return
	}

	data, err := json.Marshal(wsMessage)
	if err != nil {
		logger.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	b.hub.BroadcastToDevice(event.DeviceID, data)
}

// sampleUpdatePayload extracts the flat update a sample_ingested event
// carries. Unlike other events it is not wrapped in the envelope,
// matching what the feed pushes.
func sampleUpdatePayload(event *models.Event) ([]byte, bool) {
	update, ok := event.Data.(models.MetricUpdate)
	if !ok {
		return nil, false
	}
	data, err := json.Marshal(update)
	if err != nil {
		return nil, false
	}
	return data, true
}

// WebSocketEvent is the message format sent to WebSocket clients
type WebSocketEvent struct {
	Type       string      `json:"type"`
	DeviceID   string      `json:"device_id"`
	MetricName string      `json:"metric_name,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Severity   string      `json:"severity,omitempty"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
}

func (b *EventBridge) convertToWSMessage(event *models.Event) *WebSocketEvent {
	wsType := mapEventType(event.Type)
	if wsType == "" {
		return nil // internal-only event
	}

	return &WebSocketEvent{
		Type:       wsType,
		DeviceID:   event.DeviceID,
		MetricName: event.MetricName,
		Timestamp:  event.Timestamp,
		Severity:   string(event.Severity),
		Message:    event.Message,
		Data:       event.Data,
	}
}

func mapEventType(eventType models.EventType) string {
	switch eventType {
	case models.EventTypePredictionStored:
		return string(MessageTypePredictionUpdate)
	case models.EventTypeModelTrained:
		return string(MessageTypeModelTrained)
	case models.EventTypeAlert:
		return "alert"
	case models.EventTypeError:
		return "error"
	default:
		// device_seen and sample_conflict stay internal;
		// sample_ingested is handled separately in forwardEvent
		return ""
	}
}
