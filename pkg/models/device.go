package models

import "time"

type DeviceState string

const (
	DeviceOnline  DeviceState = "online"
	DeviceWarning DeviceState = "warning"
	DeviceOffline DeviceState = "offline"
	DeviceUnknown DeviceState = "unknown"
)

const (
	// OnlineWindow is how recently a device must have reported to count as online.
	OnlineWindow = 5 * time.Minute
	// WarningWindow is the grace period before a silent device counts as offline.
	WarningWindow = 15 * time.Minute
)

// DeviceStatus is derived per device from its samples, optionally enriched
// from the device registry. It is never persisted as-is.
type DeviceStatus struct {
	DeviceID     string      `json:"device_id"`
	Status       DeviceState `json:"status"`
	IPAddress    string      `json:"ip_address,omitempty"`
	Location     string      `json:"location,omitempty"`
	LastSeen     time.Time   `json:"last_seen"`
	MetricsCount int64       `json:"metrics_count"`
}

// StateForLastSeen derives the status enum from the most recent sample time.
func StateForLastSeen(lastSeen, now time.Time) DeviceState {
	if lastSeen.IsZero() {
		return DeviceUnknown
	}
	age := now.Sub(lastSeen)
	switch {
	case age < OnlineWindow:
		return DeviceOnline
	case age < WarningWindow:
		return DeviceWarning
	default:
		return DeviceOffline
	}
}

// Device is a registry row, updated when samples arrive or discovery runs.
type Device struct {
	DeviceID   string    `json:"device_id"`
	DeviceType string    `json:"device_type,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	Location   string    `json:"location,omitempty"`
	LastSeen   time.Time `json:"last_seen"`
}
