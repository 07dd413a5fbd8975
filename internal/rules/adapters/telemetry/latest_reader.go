package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"time"

	rules "sensegrid-cloud/internal/rules/domain"
)

// LatestReader reads the latest measurement for a rule scope straight from
// the ingest store. It implements the engine's sample source.
type LatestReader struct {
	db *sql.DB
}

// NewLatestReader constructs a LatestReader.
func NewLatestReader(db *sql.DB) *LatestReader {
	return &LatestReader{db: db}
}

// Latest returns the newest sample for (tenant, device, type). With an empty
// deviceID it resolves across all devices of the tenant/type pair and the
// returned sample carries the concrete device id. A nil sample means no data
// yet for the scope.
func (r *LatestReader) Latest(ctx context.Context, tenantID, deviceID, metricType string) (*rules.Sample, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("telemetry latest: nil db")
	}
	if tenantID == "" || metricType == "" {
		return nil, errors.New("telemetry latest: invalid arguments")
	}

	var row *sql.Row
	if deviceID == "" {
		row = r.db.QueryRowContext(ctx, `
SELECT device_id, value, time
FROM measurements
WHERE tenant_id = $1 AND type = $2
ORDER BY time DESC
LIMIT 1`, tenantID, metricType)
	} else {
		row = r.db.QueryRowContext(ctx, `
SELECT device_id, value, time
FROM measurements
WHERE tenant_id = $1 AND device_id = $2 AND type = $3
ORDER BY time DESC
LIMIT 1`, tenantID, deviceID, metricType)
	}

	var (
		resolvedDevice string
		value          float64
		ts             time.Time
	)
	if err := row.Scan(&resolvedDevice, &value, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rules.Sample{
		TenantID: tenantID,
		DeviceID: resolvedDevice,
		Type:     metricType,
		Value:    value,
		Time:     ts.UTC(),
	}, nil
}
