package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidDeviceID(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{"hostname style", "router-001", true},
		{"dotted name", "core.sw1.lab", true},
		{"single char", "r", true},
		{"empty", "", false},
		{"leading hyphen", "-router", false},
		{"whitespace", "router 001", false},
		{"too long", strings.Repeat("a", 101), false},
		{"max length", strings.Repeat("a", 100), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidDeviceID(tt.id))
		})
	}
}

func TestValidMetricName(t *testing.T) {
	tests := []struct {
		name   string
		metric string
		valid  bool
	}{
		{"snake case", "packet_loss", true},
		{"with digits", "latency_p99", true},
		{"empty", "", false},
		{"uppercase", "Bandwidth", false},
		{"leading digit", "5xx_rate", false},
		{"hyphen", "packet-loss", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidMetricName(tt.metric))
		})
	}
}

func TestCheckSeries(t *testing.T) {
	assert.NoError(t, CheckSeries("router-001", "bandwidth"))

	err := CheckSeries("", "bandwidth")
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = CheckSeries("router-001", "Bandwidth")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
