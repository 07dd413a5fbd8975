package postgres

import (
	"context"
	"database/sql"
	"errors"

	registry "sensegrid-cloud/internal/registry/domain"
)

// DeviceRepository is a Postgres implementation for devices.
type DeviceRepository struct {
	db *sql.DB
}

// NewDeviceRepository constructs a repository.
func NewDeviceRepository(db *sql.DB) (*DeviceRepository, error) {
	if db == nil {
		return nil, errors.New("device repo: nil db")
	}
	return &DeviceRepository{db: db}, nil
}

// Create inserts a device.
func (r *DeviceRepository) Create(ctx context.Context, device registry.Device) error {
	if r == nil || r.db == nil {
		return errors.New("device repo: nil db")
	}
	if err := device.Validate(); err != nil {
		return err
	}

	query := `
INSERT INTO devices (
	id,
	tenant_id,
	room_id,
	model,
	serial,
	status,
	created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7
)`

	roomID := sql.NullString{}
	if device.RoomID != "" {
		roomID = sql.NullString{String: device.RoomID, Valid: true}
	}
	model := sql.NullString{}
	if device.Model != "" {
		model = sql.NullString{String: device.Model, Valid: true}
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		device.ID,
		device.TenantID,
		roomID,
		model,
		device.Serial,
		device.Status,
		device.CreatedAt.UTC(),
	)
	return err
}

// Get loads a device by id.
func (r *DeviceRepository) Get(ctx context.Context, id string) (*registry.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if id == "" {
		return nil, errors.New("device repo: empty id")
	}

	query := `
SELECT id, tenant_id, room_id, model, serial, status, created_at
FROM devices
WHERE id = $1
LIMIT 1`

	return scanDevice(r.db.QueryRowContext(ctx, query, id))
}

// GetBySerial loads a tenant's device by serial.
func (r *DeviceRepository) GetBySerial(ctx context.Context, tenantID, serial string) (*registry.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if tenantID == "" || serial == "" {
		return nil, errors.New("device repo: empty tenant id or serial")
	}

	query := `
SELECT id, tenant_id, room_id, model, serial, status, created_at
FROM devices
WHERE tenant_id = $1
	AND serial = $2
LIMIT 1`

	return scanDevice(r.db.QueryRowContext(ctx, query, tenantID, serial))
}

// ListByTenant returns all devices of a tenant, newest first.
func (r *DeviceRepository) ListByTenant(ctx context.Context, tenantID string) ([]registry.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if tenantID == "" {
		return nil, errors.New("device repo: empty tenant id")
	}

	query := `
SELECT id, tenant_id, room_id, model, serial, status, created_at
FROM devices
WHERE tenant_id = $1
ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]registry.Device, 0)
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return devices, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*registry.Device, error) {
	var device registry.Device
	var roomID sql.NullString
	var model sql.NullString
	if err := row.Scan(
		&device.ID,
		&device.TenantID,
		&roomID,
		&model,
		&device.Serial,
		&device.Status,
		&device.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, registry.ErrNotFound
		}
		return nil, err
	}
	device.RoomID = roomID.String
	device.Model = model.String
	device.CreatedAt = device.CreatedAt.UTC()
	return &device, nil
}
