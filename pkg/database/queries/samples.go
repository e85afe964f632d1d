package queries

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/OldStager01/network-forecaster/pkg/models"
)

var (
	// ErrDuplicateSample means the (timestamp, device_id, metric_name)
	// triple already exists. Callers treat it as "already recorded".
	ErrDuplicateSample = errors.New("sample already recorded for this timestamp, device and metric")
)

const uniqueViolation = "23505"

type SampleRepository struct {
	db *sql.DB
}

func NewSampleRepository(db *sql.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

// SampleFilter narrows a sample query. All fields are optional and
// combine conjunctively.
type SampleFilter struct {
	DeviceID   string
	MetricName string
	Start      *time.Time
	End        *time.Time
	Limit      int
}

func (r *SampleRepository) Insert(ctx context.Context, s *models.MetricSample) error {
	query := `
		INSERT INTO network_metrics (timestamp, device_id, metric_name, value, unit)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		s.Timestamp, s.DeviceID, s.MetricName, s.Value, s.Unit,
	).Scan(&s.ID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateSample
		}
		return err
	}
	return nil
}

func (r *SampleRepository) InsertBatch(ctx context.Context, samples []models.MetricSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO network_metrics (timestamp, device_id, metric_name, value, unit)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err := stmt.ExecContext(ctx, s.Timestamp, s.DeviceID, s.MetricName, s.Value, s.Unit); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return ErrDuplicateSample
			}
			return err
		}
	}

	return tx.Commit()
}

// Query returns samples matching the filter, ordered by timestamp
// descending and bounded by the limit.
func (r *SampleRepository) Query(ctx context.Context, f SampleFilter) ([]models.MetricSample, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, timestamp, device_id, metric_name, value, COALESCE(unit, '')
		FROM network_metrics
		WHERE ($1 = '' OR device_id = $1)
		  AND ($2 = '' OR metric_name = $2)
		  AND ($3::timestamptz IS NULL OR timestamp >= $3)
		  AND ($4::timestamptz IS NULL OR timestamp <= $4)
		ORDER BY timestamp DESC
		LIMIT $5`

	rows, err := r.db.QueryContext(ctx, query, f.DeviceID, f.MetricName, f.Start, f.End, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []models.MetricSample
	for rows.Next() {
		var s models.MetricSample
		err := rows.Scan(&s.ID, &s.Timestamp, &s.DeviceID, &s.MetricName, &s.Value, &s.Unit)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}

	return samples, rows.Err()
}

// Latest returns the most recent samples for a device across all metrics.
func (r *SampleRepository) Latest(ctx context.Context, deviceID string, limit int) ([]models.MetricSample, error) {
	return r.Query(ctx, SampleFilter{DeviceID: deviceID, Limit: limit})
}

// ListDevices derives one DeviceStatus per device seen in samples, joined
// against the registry for address and location.
func (r *SampleRepository) ListDevices(ctx context.Context) ([]models.DeviceStatus, error) {
	query := `
		SELECT m.device_id,
			   MAX(m.timestamp) AS last_seen,
			   COUNT(m.id) AS metrics_count,
			   COALESCE(d.ip_address, ''),
			   COALESCE(d.location, '')
		FROM network_metrics m
		LEFT JOIN devices d ON d.device_id = m.device_id
		GROUP BY m.device_id, d.ip_address, d.location
		ORDER BY m.device_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now()
	var devices []models.DeviceStatus
	for rows.Next() {
		var d models.DeviceStatus
		err := rows.Scan(&d.DeviceID, &d.LastSeen, &d.MetricsCount, &d.IPAddress, &d.Location)
		if err != nil {
			return nil, err
		}
		d.Status = models.StateForLastSeen(d.LastSeen, now)
		devices = append(devices, d)
	}

	return devices, rows.Err()
}

func (r *SampleRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM network_metrics WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
