package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/network-forecaster/pkg/models"
	"github.com/OldStager01/network-forecaster/pkg/validation"
)

func contextWithQuery(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/?"+rawQuery, nil)
	return c
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		def      int
		max      int
		expected int
	}{
		{name: "absent uses default", query: "", def: 100, max: 1000, expected: 100},
		{name: "explicit value", query: "limit=50", def: 100, max: 1000, expected: 50},
		{name: "clamped to max", query: "limit=5000", def: 100, max: 1000, expected: 1000},
		{name: "zero uses default", query: "limit=0", def: 100, max: 1000, expected: 100},
		{name: "negative uses default", query: "limit=-5", def: 100, max: 1000, expected: 100},
		{name: "garbage uses default", query: "limit=abc", def: 100, max: 1000, expected: 100},
		{name: "no max means no clamp", query: "limit=5000", def: 100, max: 0, expected: 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := contextWithQuery(t, tt.query)
			assert.Equal(t, tt.expected, parseLimit(c, tt.def, tt.max))
		})
	}
}

func TestParseTime(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		c := contextWithQuery(t, "")
		ts, ok := parseTime(c, "start_time")
		assert.True(t, ok)
		assert.Nil(t, ts)
	})

	t.Run("valid RFC3339", func(t *testing.T) {
		c := contextWithQuery(t, "start_time=2026-03-15T10%3A30%3A00Z")
		ts, ok := parseTime(c, "start_time")
		require.True(t, ok)
		require.NotNil(t, ts)
		assert.Equal(t, time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC), *ts)
	})

	t.Run("malformed", func(t *testing.T) {
		c := contextWithQuery(t, "start_time=yesterday")
		ts, ok := parseTime(c, "start_time")
		assert.False(t, ok)
		assert.Nil(t, ts)
	})
}

func TestCreateSampleRequest_Binding(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		body    string
		wantErr bool
		value   float64
	}{
		{
			name:  "complete body",
			body:  `{"device_id":"router-001","metric_name":"bandwidth","value":85.5}`,
			value: 85.5,
		},
		{
			name:  "explicit zero value is kept",
			body:  `{"device_id":"router-001","metric_name":"bandwidth","value":0}`,
			value: 0,
		},
		{
			name:    "missing value",
			body:    `{"device_id":"router-001","metric_name":"bandwidth"}`,
			wantErr: true,
		},
		{
			name:    "missing device_id",
			body:    `{"metric_name":"bandwidth","value":85.5}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req CreateSampleRequest
			err := c.ShouldBindJSON(&req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, req.Value)
			assert.Equal(t, tt.value, *req.Value)
		})
	}
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, isValidationError(models.ErrMissingDeviceID))
	assert.True(t, isValidationError(models.ErrMissingMetricName))
	assert.True(t, isValidationError(validation.CheckSeries("bad id with spaces", "bandwidth")))
	assert.False(t, isValidationError(assert.AnError))
}
