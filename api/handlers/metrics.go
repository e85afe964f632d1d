package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OldStager01/network-forecaster/internal/export"
	"github.com/OldStager01/network-forecaster/internal/ingest"
	"github.com/OldStager01/network-forecaster/pkg/database/queries"
	"github.com/OldStager01/network-forecaster/pkg/models"
	"github.com/OldStager01/network-forecaster/pkg/validation"
	"github.com/gin-gonic/gin"
)

type MetricHandler struct {
	sampleRepo   *queries.SampleRepository
	ingest       *ingest.Service
	defaultLimit int
	maxLimit     int
}

func NewMetricHandler(sampleRepo *queries.SampleRepository, ingestSvc *ingest.Service, defaultLimit, maxLimit int) *MetricHandler {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	if maxLimit <= 0 {
		maxLimit = 1000
	}
	return &MetricHandler{
		sampleRepo:   sampleRepo,
		ingest:       ingestSvc,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

type SampleResponse struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	DeviceID   string    `json:"device_id"`
	MetricName string    `json:"metric_name"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit,omitempty"`
}

func toSampleResponse(s *models.MetricSample) SampleResponse {
	value, _ := s.Value.Float64()
	return SampleResponse{
		ID:         s.ID,
		Timestamp:  s.Timestamp,
		DeviceID:   s.DeviceID,
		MetricName: s.MetricName,
		Value:      value,
		Unit:       s.Unit,
	}
}

// Query returns stored samples, newest first, narrowed by any
// combination of device_id, metric_name, start_time and end_time.
func (h *MetricHandler) Query(c *gin.Context) {
	filter, ok := h.buildFilter(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	samples, err := h.sampleRepo.Query(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch metrics"})
		return
	}

	response := make([]SampleResponse, len(samples))
	for i, s := range samples {
		response[i] = toSampleResponse(&s)
	}

	c.JSON(http.StatusOK, gin.H{"metrics": response, "count": len(response)})
}

type CreateSampleRequest struct {
	Timestamp  *time.Time `json:"timestamp"`
	DeviceID   string     `json:"device_id" binding:"required"`
	MetricName string     `json:"metric_name" binding:"required"`
	// Pointer so a missing value is rejected while an explicit 0 is kept.
	Value *float64 `json:"value" binding:"required"`
	Unit  string   `json:"unit"`
}

// Create stores one sample. A sample already recorded for the same
// timestamp, device and metric is rejected with 409 and the stored
// value is left untouched.
func (h *MetricHandler) Create(c *gin.Context) {
	var req CreateSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}

	sample := &models.MetricSample{
		Timestamp:  ts,
		DeviceID:   req.DeviceID,
		MetricName: req.MetricName,
		Value:      decimal.NewFromFloat(*req.Value),
		Unit:       req.Unit,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.ingest.Ingest(ctx, sample); err != nil {
		switch {
		case errors.Is(err, queries.ErrDuplicateSample):
			c.JSON(http.StatusConflict, gin.H{
				"error": fmt.Sprintf("sample already recorded for %s/%s at %s",
					sample.DeviceID, sample.MetricName, sample.Timestamp.Format(time.RFC3339)),
			})
		case isValidationError(err):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store sample"})
		}
		return
	}

	c.JSON(http.StatusCreated, toSampleResponse(sample))
}

// Export streams the filtered sample window as an xlsx workbook.
func (h *MetricHandler) Export(c *gin.Context) {
	filter, ok := h.buildFilter(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	samples, err := h.sampleRepo.Query(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch metrics"})
		return
	}

	filename := fmt.Sprintf("metrics-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := export.WriteSamplesXLSX(c.Writer, samples); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
}

func (h *MetricHandler) buildFilter(c *gin.Context) (queries.SampleFilter, bool) {
	start, ok := parseTime(c, "start_time")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_time must be RFC3339"})
		return queries.SampleFilter{}, false
	}
	end, ok := parseTime(c, "end_time")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_time must be RFC3339"})
		return queries.SampleFilter{}, false
	}

	return queries.SampleFilter{
		DeviceID:   c.Query("device_id"),
		MetricName: c.Query("metric_name"),
		Start:      start,
		End:        end,
		Limit:      parseLimit(c, h.defaultLimit, h.maxLimit),
	}, true
}

func isValidationError(err error) bool {
	return errors.Is(err, models.ErrMissingDeviceID) ||
		errors.Is(err, models.ErrMissingMetricName) ||
		errors.Is(err, models.ErrMissingTimestamp) ||
		errors.Is(err, validation.ErrInvalidInput)
}
