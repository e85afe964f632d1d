package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/OldStager01/network-forecaster/pkg/models"
)

func TestWriteSamplesXLSX(t *testing.T) {
	ts := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	samples := []models.MetricSample{
		{Timestamp: ts, DeviceID: "router-001", MetricName: "bandwidth", Value: decimal.NewFromFloat(85.5), Unit: "mbps"},
		{Timestamp: ts.Add(-time.Minute), DeviceID: "switch-002", MetricName: "latency", Value: decimal.NewFromFloat(12.3), Unit: "ms"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSamplesXLSX(&buf, samples))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, headers, rows[0])

	assert.Equal(t, "2026-03-15T10:30:00Z", rows[1][0])
	assert.Equal(t, "router-001", rows[1][1])
	assert.Equal(t, "bandwidth", rows[1][2])
	assert.Equal(t, "85.5", rows[1][3])
	assert.Equal(t, "mbps", rows[1][4])

	assert.Equal(t, "switch-002", rows[2][1])
}

func TestWriteSamplesXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSamplesXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, headers, rows[0])
}
