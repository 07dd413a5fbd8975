package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	telemetry "sensegrid-cloud/internal/telemetry/domain"
)

const defaultMeasurementsTable = "measurements"

// MeasurementRepository is a Postgres implementation for measurements.
type MeasurementRepository struct {
	db    *sql.DB
	table string
}

// NewMeasurementRepository constructs a repository with default table name.
func NewMeasurementRepository(db *sql.DB, opts ...RepositoryOption) *MeasurementRepository {
	repo := &MeasurementRepository{db: db, table: defaultMeasurementsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*MeasurementRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *MeasurementRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// InsertMeasurements writes a batch of measurements in one transaction.
func (r *MeasurementRepository) InsertMeasurements(ctx context.Context, measurements []telemetry.Measurement) error {
	if r == nil || r.db == nil {
		return errors.New("measurement repo: nil db")
	}
	if len(measurements) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	time,
	tenant_id,
	device_id,
	type,
	value,
	unit
) VALUES (
	$1, $2, $3, $4, $5, $6
)`, r.table)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, m := range measurements {
		if err := m.Validate(); err != nil {
			_ = tx.Rollback()
			return err
		}

		unit := sql.NullString{}
		if m.Unit != "" {
			unit = sql.NullString{String: m.Unit, Valid: true}
		}

		if _, err := stmt.ExecContext(
			ctx,
			m.Time.UTC(),
			m.TenantID,
			m.DeviceID,
			m.Type,
			m.Value,
			unit,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
