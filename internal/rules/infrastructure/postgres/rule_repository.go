package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	rules "sensegrid-cloud/internal/rules/domain"
)

// RuleRepository is a Postgres repository for alerting rules.
type RuleRepository struct {
	db *sql.DB
}

// NewRuleRepository constructs a repository.
func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// Create inserts a rule.
func (r *RuleRepository) Create(ctx context.Context, rule *rules.Rule) error {
	if r == nil || r.db == nil {
		return errors.New("rule repo: nil db")
	}
	if rule == nil {
		return errors.New("rule repo: nil rule")
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	if rule.ID == "" {
		return errors.New("rule repo: empty id")
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO rules (
	id, tenant_id, device_id, type, op, threshold, cooldown_seconds, enabled, created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9
)`, rule.ID, rule.TenantID, nullableString(rule.DeviceID), rule.Type, string(rule.Operator),
		rule.Threshold, rule.CooldownSeconds, rule.Enabled, rule.CreatedAt)
	return err
}

// GetByID loads a rule by id within a tenant.
func (r *RuleRepository) GetByID(ctx context.Context, tenantID, ruleID string) (*rules.Rule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("rule repo: nil db")
	}
	if tenantID == "" || ruleID == "" {
		return nil, errors.New("rule repo: invalid query")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, tenant_id, device_id, type, op, threshold, cooldown_seconds, enabled, created_at
FROM rules
WHERE tenant_id = $1 AND id = $2
LIMIT 1`, tenantID, ruleID)
	rule, err := scanRule(row)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ListByTenant returns a tenant's rules, newest first.
func (r *RuleRepository) ListByTenant(ctx context.Context, tenantID string) ([]rules.Rule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("rule repo: nil db")
	}
	if tenantID == "" {
		return nil, errors.New("rule repo: invalid query")
	}
	return r.list(ctx, `
SELECT id, tenant_id, device_id, type, op, threshold, cooldown_seconds, enabled, created_at
FROM rules
WHERE tenant_id = $1
ORDER BY created_at DESC`, tenantID)
}

// ListEnabled returns all enabled rules across tenants. It implements the
// engine's rule catalog.
func (r *RuleRepository) ListEnabled(ctx context.Context) ([]rules.Rule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("rule repo: nil db")
	}
	return r.list(ctx, `
SELECT id, tenant_id, device_id, type, op, threshold, cooldown_seconds, enabled, created_at
FROM rules
WHERE enabled = TRUE
ORDER BY created_at ASC`)
}

func (r *RuleRepository) list(ctx context.Context, query string, args ...any) ([]rules.Rule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []rules.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		if rule == nil {
			continue
		}
		result = append(result, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*rules.Rule, error) {
	var rule rules.Rule
	var deviceID sql.NullString
	var op string
	if err := row.Scan(
		&rule.ID,
		&rule.TenantID,
		&deviceID,
		&rule.Type,
		&op,
		&rule.Threshold,
		&rule.CooldownSeconds,
		&rule.Enabled,
		&rule.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rule.Operator = rules.Operator(op)
	if deviceID.Valid {
		rule.DeviceID = deviceID.String
	}
	rule.CreatedAt = rule.CreatedAt.UTC()
	return &rule, nil
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
