package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	telemetry "sensegrid-cloud/internal/telemetry/domain"
)

// SeriesQuery is a Postgres query implementation for measurement series.
type SeriesQuery struct {
	db    *sql.DB
	table string
}

// NewSeriesQuery constructs a query with default table name.
func NewSeriesQuery(db *sql.DB, opts ...QueryOption) *SeriesQuery {
	query := &SeriesQuery{db: db, table: defaultMeasurementsTable}
	for _, opt := range opts {
		opt(query)
	}
	return query
}

// QueryOption configures the series query.
type QueryOption func(*SeriesQuery)

// WithQueryTable overrides the default table name for queries.
func WithQueryTable(table string) QueryOption {
	return func(query *SeriesQuery) {
		if query != nil && table != "" {
			query.table = table
		}
	}
}

// Range returns one metric's points within [from, to), oldest first.
func (q *SeriesQuery) Range(ctx context.Context, tenantID, deviceID, metricType string, from, to time.Time) ([]telemetry.SeriesPoint, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("series query: nil db")
	}
	if tenantID == "" || deviceID == "" || metricType == "" {
		return nil, errors.New("series query: invalid arguments")
	}
	if from.IsZero() || to.IsZero() {
		return nil, errors.New("series query: invalid range")
	}

	query := fmt.Sprintf(`
SELECT time, value
FROM %s
WHERE tenant_id = $1
	AND device_id = $2
	AND type = $3
	AND time >= $4
	AND time < $5
ORDER BY time ASC`, q.table)

	rows, err := q.db.QueryContext(ctx, query, tenantID, deviceID, metricType, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]telemetry.SeriesPoint, 0)
	for rows.Next() {
		var point telemetry.SeriesPoint
		if err := rows.Scan(&point.Time, &point.Value); err != nil {
			return nil, err
		}
		point.Time = point.Time.UTC()
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

// RangeAll returns every metric's points within [from, to), grouped by type.
func (q *SeriesQuery) RangeAll(ctx context.Context, tenantID, deviceID string, from, to time.Time) (map[string][]telemetry.SeriesPoint, error) {
	measurements, err := q.Measurements(ctx, tenantID, deviceID, from, to)
	if err != nil {
		return nil, err
	}

	series := make(map[string][]telemetry.SeriesPoint)
	for _, m := range measurements {
		series[m.Type] = append(series[m.Type], telemetry.SeriesPoint{Time: m.Time, Value: m.Value})
	}
	return series, nil
}

// Measurements returns raw rows within [from, to), oldest first.
func (q *SeriesQuery) Measurements(ctx context.Context, tenantID, deviceID string, from, to time.Time) ([]telemetry.Measurement, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("series query: nil db")
	}
	if tenantID == "" || deviceID == "" {
		return nil, errors.New("series query: invalid arguments")
	}
	if from.IsZero() || to.IsZero() {
		return nil, errors.New("series query: invalid range")
	}

	query := fmt.Sprintf(`
SELECT time, tenant_id, device_id, type, value, unit
FROM %s
WHERE tenant_id = $1
	AND device_id = $2
	AND time >= $3
	AND time < $4
ORDER BY time ASC`, q.table)

	rows, err := q.db.QueryContext(ctx, query, tenantID, deviceID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	measurements := make([]telemetry.Measurement, 0)
	for rows.Next() {
		var m telemetry.Measurement
		var unit sql.NullString
		if err := rows.Scan(&m.Time, &m.TenantID, &m.DeviceID, &m.Type, &m.Value, &unit); err != nil {
			return nil, err
		}
		m.Time = m.Time.UTC()
		m.Unit = unit.String
		measurements = append(measurements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return measurements, nil
}
