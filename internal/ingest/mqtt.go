package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/shopspring/decimal"

	"github.com/OldStager01/network-forecaster/internal/logger"
	"github.com/OldStager01/network-forecaster/pkg/config"
	"github.com/OldStager01/network-forecaster/pkg/database/queries"
	"github.com/OldStager01/network-forecaster/pkg/models"
)

// MQTTPayload is the message body remote agents publish. Device and
// metric come from the topic path, not the payload.
type MQTTPayload struct {
	Value     decimal.Decimal `json:"value"`
	Unit      string          `json:"unit,omitempty"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
}

// MQTTBridge subscribes to metrics/{device_id}/{metric_name} and feeds
// every message through the ingest service.
type MQTTBridge struct {
	client  mqtt.Client
	topic   string
	service *Service
}

func NewMQTTBridge(cfg config.MQTTConfig, service *Service) (*MQTTBridge, error) {
	b := &MQTTBridge{
		topic:   cfg.Topic,
		service: service,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Infof("MQTT connected to %s", cfg.Broker)
		// (Re)subscribe on every connect so reconnects restore the flow.
		if token := client.Subscribe(b.topic, 1, b.handleMessage); token.Wait() && token.Error() != nil {
			logger.Errorf("MQTT subscribe to %s failed: %v", b.topic, token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warnf("MQTT connection lost: %v", err)
	})

	b.client = mqtt.NewClient(opts)

	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return b, nil
}

func (b *MQTTBridge) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	sample, err := b.parseMessage(msg.Topic(), msg.Payload())
	if err != nil {
		logger.Warnf("MQTT message on %s rejected: %v", msg.Topic(), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.service.Ingest(ctx, sample); err != nil {
		if errors.Is(err, queries.ErrDuplicateSample) {
			logger.WithSeries(sample.DeviceID, sample.MetricName).Debug("MQTT sample already recorded")
			return
		}
		logger.WithSeries(sample.DeviceID, sample.MetricName).Errorf("MQTT ingest failed: %v", err)
	}
}

func (b *MQTTBridge) parseMessage(topic string, payload []byte) (*models.MetricSample, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 {
		return nil, fmt.Errorf("topic %q does not match metrics/{device_id}/{metric_name}", topic)
	}

	var body MQTTPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}

	ts := time.Now().UTC()
	if body.Timestamp != nil {
		ts = body.Timestamp.UTC()
	}

	return &models.MetricSample{
		Timestamp:  ts,
		DeviceID:   parts[1],
		MetricName: parts[2],
		Value:      body.Value,
		Unit:       body.Unit,
	}, nil
}

func (b *MQTTBridge) Close() {
	b.client.Disconnect(250)
	logger.Info("MQTT bridge disconnected")
}
