package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	registry "sensegrid-cloud/internal/registry/domain"
)

// Service provides tenant and device registration.
type Service struct {
	tenants registry.TenantRepository
	devices registry.DeviceRepository
	now     func() time.Time
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithNow overrides the time source.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a registry service.
func NewService(tenants registry.TenantRepository, devices registry.DeviceRepository, opts ...ServiceOption) (*Service, error) {
	if tenants == nil {
		return nil, errors.New("registry service: nil tenant repository")
	}
	if devices == nil {
		return nil, errors.New("registry service: nil device repository")
	}
	svc := &Service{tenants: tenants, devices: devices, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateTenant assigns an id and persists the tenant.
func (s *Service) CreateTenant(ctx context.Context, tenant registry.Tenant) (*registry.Tenant, error) {
	tenant.ID = uuid.NewString()
	tenant.CreatedAt = s.now().UTC()
	if tenant.Slug == "" {
		tenant.Slug = tenant.Name
	}
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetTenant loads a tenant by id.
func (s *Service) GetTenant(ctx context.Context, id string) (*registry.Tenant, error) {
	if id == "" {
		return nil, errors.New("registry service: empty tenant id")
	}
	return s.tenants.Get(ctx, id)
}

// GetTenantBySlug loads a tenant by its slug.
func (s *Service) GetTenantBySlug(ctx context.Context, slug string) (*registry.Tenant, error) {
	if slug == "" {
		return nil, errors.New("registry service: empty slug")
	}
	return s.tenants.GetBySlug(ctx, slug)
}

// RegisterDevice assigns an id, defaults the status and persists the device.
func (s *Service) RegisterDevice(ctx context.Context, device registry.Device) (*registry.Device, error) {
	device.ID = uuid.NewString()
	device.CreatedAt = s.now().UTC()
	if device.Status == "" {
		device.Status = registry.StatusActive
	}
	if err := device.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.tenants.Get(ctx, device.TenantID); err != nil {
		return nil, err
	}
	if err := s.devices.Create(ctx, device); err != nil {
		return nil, err
	}
	return &device, nil
}

// GetDevice loads a device by id.
func (s *Service) GetDevice(ctx context.Context, id string) (*registry.Device, error) {
	if id == "" {
		return nil, errors.New("registry service: empty device id")
	}
	return s.devices.Get(ctx, id)
}

// ListDevices returns all devices of a tenant.
func (s *Service) ListDevices(ctx context.Context, tenantID string) ([]registry.Device, error) {
	if tenantID == "" {
		return nil, errors.New("registry service: empty tenant id")
	}
	return s.devices.ListByTenant(ctx, tenantID)
}

// GetDeviceBySerial loads a tenant's device by serial.
func (s *Service) GetDeviceBySerial(ctx context.Context, tenantID, serial string) (*registry.Device, error) {
	if tenantID == "" || serial == "" {
		return nil, errors.New("registry service: empty tenant id or serial")
	}
	return s.devices.GetBySerial(ctx, tenantID, serial)
}
