package registry

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a tenant or device does not exist.
var ErrNotFound = errors.New("registry: not found")

// TenantRepository manages tenant persistence.
type TenantRepository interface {
	Create(ctx context.Context, tenant Tenant) error
	Get(ctx context.Context, id string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
}

// DeviceRepository manages device persistence.
type DeviceRepository interface {
	Create(ctx context.Context, device Device) error
	Get(ctx context.Context, id string) (*Device, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Device, error)
	GetBySerial(ctx context.Context, tenantID, serial string) (*Device, error)
}
