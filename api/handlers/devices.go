package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/OldStager01/network-forecaster/internal/cache"
	"github.com/OldStager01/network-forecaster/pkg/database/queries"
	"github.com/OldStager01/network-forecaster/pkg/models"
	"github.com/gin-gonic/gin"
)

// latestSampleCount is how many recent samples the device detail view
// shows.
const latestSampleCount = 20

type DeviceHandler struct {
	sampleRepo *queries.SampleRepository
	deviceRepo *queries.DeviceRepository
	cache      *cache.Cache
}

func NewDeviceHandler(sampleRepo *queries.SampleRepository, deviceRepo *queries.DeviceRepository, c *cache.Cache) *DeviceHandler {
	return &DeviceHandler{
		sampleRepo: sampleRepo,
		deviceRepo: deviceRepo,
		cache:      c,
	}
}

// List returns every device that has ever reported a sample, with its
// derived status.
func (h *DeviceHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if devices, ok := h.cache.GetDevices(ctx); ok {
		c.JSON(http.StatusOK, gin.H{"devices": devices, "count": len(devices)})
		return
	}

	devices, err := h.sampleRepo.ListDevices(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch devices"})
		return
	}
	if devices == nil {
		devices = []models.DeviceStatus{}
	}

	h.cache.SetDevices(ctx, devices)

	c.JSON(http.StatusOK, gin.H{"devices": devices, "count": len(devices)})
}

type DeviceDetailResponse struct {
	Device *models.Device   `json:"device"`
	Latest []SampleResponse `json:"latest_samples"`
}

// Get returns one registered device with its most recent samples.
func (h *DeviceHandler) Get(c *gin.Context) {
	deviceID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	device, err := h.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, queries.ErrDeviceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch device"})
		return
	}

	var latest []models.MetricSample
	if cached, ok := h.cache.GetLatest(ctx, deviceID); ok {
		latest = cached
	} else {
		latest, err = h.sampleRepo.Latest(ctx, deviceID, latestSampleCount)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch samples"})
			return
		}
		h.cache.SetLatest(ctx, deviceID, latest)
	}

	response := DeviceDetailResponse{
		Device: device,
		Latest: make([]SampleResponse, len(latest)),
	}
	for i, s := range latest {
		response.Latest[i] = toSampleResponse(&s)
	}

	c.JSON(http.StatusOK, response)
}
