package queries

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/OldStager01/network-forecaster/pkg/models"
)

var ErrDeviceNotFound = errors.New("device not found")

type DeviceRepository struct {
	db *sql.DB
}

func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) GetByID(ctx context.Context, deviceID string) (*models.Device, error) {
	query := `
		SELECT device_id, device_type, COALESCE(ip_address, ''), COALESCE(location, ''), COALESCE(last_seen, 'epoch'::timestamptz)
		FROM devices
		WHERE device_id = $1`

	var d models.Device
	err := r.db.QueryRowContext(ctx, query, deviceID).Scan(
		&d.DeviceID, &d.DeviceType, &d.IPAddress, &d.Location, &d.LastSeen,
	)
	if err == sql.ErrNoRows {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Touch upserts a registry row, refreshing last_seen. Called on ingest so
// the registry tracks every device that reports.
func (r *DeviceRepository) Touch(ctx context.Context, deviceID string, seenAt time.Time) error {
	query := `
		INSERT INTO devices (device_id, last_seen)
		VALUES ($1, $2)
		ON CONFLICT (device_id)
		DO UPDATE SET last_seen = GREATEST(devices.last_seen, EXCLUDED.last_seen)`

	_, err := r.db.ExecContext(ctx, query, deviceID, seenAt)
	return err
}

// Register records or updates full device details from discovery.
func (r *DeviceRepository) Register(ctx context.Context, d *models.Device) error {
	query := `
		INSERT INTO devices (device_id, device_type, ip_address, location, last_seen)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
		ON CONFLICT (device_id)
		DO UPDATE SET
			device_type = EXCLUDED.device_type,
			ip_address = COALESCE(EXCLUDED.ip_address, devices.ip_address),
			location = COALESCE(EXCLUDED.location, devices.location),
			last_seen = GREATEST(devices.last_seen, EXCLUDED.last_seen)`

	_, err := r.db.ExecContext(ctx, query,
		d.DeviceID, d.DeviceType, d.IPAddress, d.Location, d.LastSeen)
	return err
}
