package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/OldStager01/network-forecaster/internal/forecast"
	"github.com/OldStager01/network-forecaster/pkg/database/queries"
	"github.com/OldStager01/network-forecaster/pkg/models"
	"github.com/OldStager01/network-forecaster/pkg/validation"
	"github.com/gin-gonic/gin"
)

type PredictionHandler struct {
	predictionRepo *queries.PredictionRepository
	forecastSvc    *forecast.Service
}

func NewPredictionHandler(predictionRepo *queries.PredictionRepository, forecastSvc *forecast.Service) *PredictionHandler {
	return &PredictionHandler{
		predictionRepo: predictionRepo,
		forecastSvc:    forecastSvc,
	}
}

type PredictionResponse struct {
	PredictedTimestamp      time.Time `json:"predicted_timestamp"`
	PredictedValue          float64   `json:"predicted_value"`
	ConfidenceIntervalLower *float64  `json:"confidence_interval_lower,omitempty"`
	ConfidenceIntervalUpper *float64  `json:"confidence_interval_upper,omitempty"`
	ModelVersion            string    `json:"model_version,omitempty"`
}

func toPredictionResponse(p *models.Prediction) PredictionResponse {
	value, _ := p.PredictedValue.Float64()
	resp := PredictionResponse{
		PredictedTimestamp: p.PredictedAt,
		PredictedValue:     value,
		ModelVersion:       p.ModelVersion,
	}
	if p.ConfidenceLower.Valid {
		lower, _ := p.ConfidenceLower.Decimal.Float64()
		resp.ConfidenceIntervalLower = &lower
	}
	if p.ConfidenceUpper.Valid {
		upper, _ := p.ConfidenceUpper.Decimal.Float64()
		resp.ConfidenceIntervalUpper = &upper
	}
	return resp
}

// Get returns the stored forecast for one series, future points only,
// oldest first.
func (h *PredictionHandler) Get(c *gin.Context) {
	deviceID := c.Param("device_id")
	metricName := c.Param("metric_name")

	if err := validation.CheckSeries(deviceID, metricName); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	horizon, ok := h.parseHorizon(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	predictions, err := h.predictionRepo.QueryByHorizon(ctx, deviceID, metricName, horizon)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch predictions"})
		return
	}

	response := make([]PredictionResponse, len(predictions))
	for i, p := range predictions {
		response[i] = toPredictionResponse(&p)
	}

	c.JSON(http.StatusOK, gin.H{
		"device_id":   deviceID,
		"metric_name": metricName,
		"predictions": response,
		"count":       len(response),
	})
}

// Generate requests a fresh forecast for the series and stores it,
// replacing any previous forecast.
func (h *PredictionHandler) Generate(c *gin.Context) {
	deviceID := c.Param("device_id")
	metricName := c.Param("metric_name")

	if err := validation.CheckSeries(deviceID, metricName); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	horizon, ok := h.parseHorizon(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	predictions, err := h.forecastSvc.Generate(ctx, deviceID, metricName, horizon)
	if err != nil {
		switch {
		case errors.Is(err, forecast.ErrNoSamples):
			c.JSON(http.StatusNotFound, gin.H{"error": "no samples recorded for series"})
		case errors.Is(err, forecast.ErrUnavailable), errors.Is(err, forecast.ErrRejected):
			c.JSON(http.StatusBadGateway, gin.H{"error": "forecaster service unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate predictions"})
		}
		return
	}

	response := make([]PredictionResponse, len(predictions))
	for i, p := range predictions {
		response[i] = toPredictionResponse(&p)
	}

	c.JSON(http.StatusCreated, gin.H{
		"device_id":   deviceID,
		"metric_name": metricName,
		"predictions": response,
		"count":       len(response),
	})
}

type TrainRequest struct {
	DeviceID   string `json:"device_id"`
	MetricName string `json:"metric_name"`
}

// Train kicks off model retraining in the background.
func (h *PredictionHandler) Train(c *gin.Context) {
	var req TrainRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	if req.DeviceID != "" && req.MetricName != "" {
		if err := validation.CheckSeries(req.DeviceID, req.MetricName); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
	}

	h.forecastSvc.Train(req.DeviceID, req.MetricName)

	c.JSON(http.StatusAccepted, gin.H{"status": "training started"})
}

func (h *PredictionHandler) parseHorizon(c *gin.Context) (int, bool) {
	raw := c.Query("hours_ahead")
	if raw == "" {
		return h.forecastSvc.DefaultHorizon(), true
	}

	horizon, err := strconv.Atoi(raw)
	if err != nil || horizon <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hours_ahead must be a positive integer"})
		return 0, false
	}
	return horizon, true
}
