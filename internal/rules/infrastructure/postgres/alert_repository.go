package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	rules "sensegrid-cloud/internal/rules/domain"
)

// AlertRepository is a Postgres repository for alerts. It implements the
// engine's alert store: the durable write plus the cooldown history query.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository constructs a repository.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Record inserts an alert, assigning id and timestamp when unset.
func (r *AlertRepository) Record(ctx context.Context, alert *rules.Alert) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	if alert == nil {
		return errors.New("alert repo: nil alert")
	}
	if alert.RuleID == "" || alert.TenantID == "" || alert.DeviceID == "" {
		return errors.New("alert repo: missing fields")
	}
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.Time.IsZero() {
		alert.Time = time.Now().UTC()
	}
	if alert.Severity == "" {
		alert.Severity = rules.SeverityWarning
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO alerts (
	id, rule_id, tenant_id, device_id, type, value, time, severity, message
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9
)`, alert.ID, alert.RuleID, alert.TenantID, alert.DeviceID, alert.Type,
		alert.Value, alert.Time, alert.Severity, alert.Message)
	return err
}

// HasRecent reports whether any alert exists for the (rule, device) pair at
// or after the cutoff.
func (r *AlertRepository) HasRecent(ctx context.Context, ruleID, deviceID string, sinceExclusive time.Time) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("alert repo: nil db")
	}
	if ruleID == "" || deviceID == "" {
		return false, errors.New("alert repo: invalid query")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM alerts
	WHERE rule_id = $1 AND device_id = $2 AND time >= $3
)`, ruleID, deviceID, sinceExclusive)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// List returns alerts matching the filter, newest first, bounded by the
// filter's limit.
func (r *AlertRepository) List(ctx context.Context, filter rules.AlertFilter) ([]rules.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	if filter.TenantID == "" {
		return nil, errors.New("alert repo: tenant id required")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}

	query := `
SELECT id, rule_id, tenant_id, device_id, type, value, time, severity, message
FROM alerts
WHERE tenant_id = $1`
	args := []any{filter.TenantID}
	if filter.DeviceID != "" {
		args = append(args, filter.DeviceID)
		query += fmt.Sprintf(" AND device_id = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND time >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND time <= $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY time DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []rules.Alert
	for rows.Next() {
		var alert rules.Alert
		if err := rows.Scan(
			&alert.ID,
			&alert.RuleID,
			&alert.TenantID,
			&alert.DeviceID,
			&alert.Type,
			&alert.Value,
			&alert.Time,
			&alert.Severity,
			&alert.Message,
		); err != nil {
			return nil, err
		}
		alert.Time = alert.Time.UTC()
		result = append(result, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
