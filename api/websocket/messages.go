package websocket

import (
	"encoding/json"
	"time"

	"github.com/OldStager01/network-forecaster/pkg/models"
)

type MessageType string

const (
	MessageTypeMetricUpdate     MessageType = "metric_update"
	MessageTypePredictionUpdate MessageType = "prediction_update"
	MessageTypeAlert            MessageType = "alert"
	MessageTypeModelTrained     MessageType = "model_trained"
)

// OutgoingMessage is the envelope for non-sample pushes. Sample pushes
// use the flat models.MetricUpdate shape directly.
type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	DeviceID  string      `json:"device_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewMessage(msgType MessageType, deviceID string, data interface{}) *OutgoingMessage {
	return &OutgoingMessage{
		Type:      msgType,
		DeviceID:  deviceID,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func (m *OutgoingMessage) JSON() []byte {
	data, _ := json.Marshal(m)
	return data
}

type AlertData struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type PredictionUpdateData struct {
	MetricName   string `json:"metric_name"`
	Count        int    `json:"count"`
	ModelVersion string `json:"model_version"`
}

// BroadcastSample pushes one sample to subscribers of its device.
func BroadcastSample(hub *Hub, sample *models.MetricSample) {
	data, err := json.Marshal(sample.ToUpdate())
	if err != nil {
		return
	}
	hub.BroadcastToDevice(sample.DeviceID, data)
}

func BroadcastAlert(hub *Hub, deviceID, severity, message string) {
	msg := NewMessage(MessageTypeAlert, deviceID, AlertData{
		Severity: severity,
		Message:  message,
	})
	hub.BroadcastToDevice(deviceID, msg.JSON())
}
