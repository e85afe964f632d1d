package events

import (
	"github.com/OldStager01/network-forecaster/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) SampleIngested(sample *models.MetricSample) {
	event := models.NewEvent(models.EventTypeSampleIngested, sample.DeviceID, "Sample ingested").
		WithMetric(sample.MetricName).
		WithData(sample.ToUpdate())
	p.publish(event)
}

func (p *Publisher) SampleConflict(sample *models.MetricSample) {
	event := models.NewEvent(models.EventTypeSampleConflict, sample.DeviceID, "Duplicate sample rejected").
		WithMetric(sample.MetricName).
		WithSeverity(models.SeverityWarning)
	p.publish(event)
}

func (p *Publisher) DeviceSeen(device *models.Device) {
	event := models.NewEvent(models.EventTypeDeviceSeen, device.DeviceID, "Device seen").
		WithData(device)
	p.publish(event)
}

func (p *Publisher) PredictionStored(deviceID, metricName string, count int, modelVersion string) {
	event := models.NewEvent(models.EventTypePredictionStored, deviceID, "Predictions stored").
		WithMetric(metricName).
		WithData(map[string]interface{}{
			"count":         count,
			"model_version": modelVersion,
		})
	p.publish(event)
}

func (p *Publisher) ModelTrained(deviceID, metricName string, result interface{}) {
	event := models.NewEvent(models.EventTypeModelTrained, deviceID, "Model trained").
		WithMetric(metricName).
		WithData(result)
	p.publish(event)
}

func (p *Publisher) Alert(deviceID string, severity models.EventSeverity, message string, data interface{}) {
	event := models.NewEvent(models.EventTypeAlert, deviceID, message).
		WithSeverity(severity).
		WithData(data)
	p.publish(event)
}

func (p *Publisher) Error(deviceID string, message string, err error) {
	event := models.NewEvent(models.EventTypeError, deviceID, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}
