package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/OldStager01/network-forecaster/pkg/models"
)

type PredictionRepository struct {
	db *sql.DB
}

func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) Insert(ctx context.Context, p *models.Prediction) error {
	query := `
		INSERT INTO predictions
			(created_at, device_id, metric_name, predicted_timestamp, predicted_value,
			 confidence_interval_lower, confidence_interval_upper, model_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	return r.db.QueryRowContext(ctx, query,
		p.CreatedAt, p.DeviceID, p.MetricName, p.PredictedAt, p.PredictedValue,
		p.ConfidenceLower, p.ConfidenceUpper, p.ModelVersion,
	).Scan(&p.ID)
}

// ReplaceForSeries atomically supersedes the stored forecast for a
// (device, metric) series with a fresh one.
func (r *PredictionRepository) ReplaceForSeries(ctx context.Context, deviceID, metricName string, predictions []models.Prediction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM predictions WHERE device_id = $1 AND metric_name = $2`,
		deviceID, metricName)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO predictions
			(created_at, device_id, metric_name, predicted_timestamp, predicted_value,
			 confidence_interval_lower, confidence_interval_upper, model_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range predictions {
		_, err := stmt.ExecContext(ctx,
			p.CreatedAt, deviceID, metricName, p.PredictedAt, p.PredictedValue,
			p.ConfidenceLower, p.ConfidenceUpper, p.ModelVersion)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// QueryByHorizon returns future predictions for a series ordered by
// predicted_timestamp ascending. A positive horizon restricts results to
// predictions within that many hours of now.
func (r *PredictionRepository) QueryByHorizon(ctx context.Context, deviceID, metricName string, horizonHours int) ([]models.Prediction, error) {
	now := time.Now()
	var end *time.Time
	if horizonHours > 0 {
		e := now.Add(time.Duration(horizonHours) * time.Hour)
		end = &e
	}

	query := `
		SELECT id, created_at, device_id, metric_name, predicted_timestamp, predicted_value,
			   confidence_interval_lower, confidence_interval_upper, COALESCE(model_version, '')
		FROM predictions
		WHERE device_id = $1
		  AND metric_name = $2
		  AND predicted_timestamp > $3
		  AND ($4::timestamptz IS NULL OR predicted_timestamp <= $4)
		ORDER BY predicted_timestamp ASC`

	rows, err := r.db.QueryContext(ctx, query, deviceID, metricName, now, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var predictions []models.Prediction
	for rows.Next() {
		var p models.Prediction
		err := rows.Scan(
			&p.ID, &p.CreatedAt, &p.DeviceID, &p.MetricName, &p.PredictedAt,
			&p.PredictedValue, &p.ConfidenceLower, &p.ConfidenceUpper, &p.ModelVersion,
		)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}

	return predictions, rows.Err()
}

func (r *PredictionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM predictions WHERE predicted_timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
