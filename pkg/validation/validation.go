package validation

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")

	// Device IDs are hostname-like: alphanumeric with dots/hyphens/underscores, 1-100 chars
	deviceIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,99}$`)

	// Metric names are snake_case identifiers, 1-100 chars
	metricNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{0,99}$`)
)

func ValidDeviceID(id string) bool {
	return deviceIDRegex.MatchString(id)
}

func ValidMetricName(name string) bool {
	return metricNameRegex.MatchString(name)
}

func CheckSeries(deviceID, metricName string) error {
	if !ValidDeviceID(deviceID) {
		return fmt.Errorf("%w: invalid device_id", ErrInvalidInput)
	}
	if !ValidMetricName(metricName) {
		return fmt.Errorf("%w: invalid metric_name", ErrInvalidInput)
	}
	return nil
}
