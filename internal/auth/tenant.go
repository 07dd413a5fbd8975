package auth

import (
	"context"
	"errors"

	registry "sensegrid-cloud/internal/registry/domain"
)

var (
	// ErrDeviceNotFound indicates the referenced device does not exist.
	ErrDeviceNotFound = errors.New("auth: device not found")
	// ErrTenantMismatch indicates the device belongs to a different tenant.
	ErrTenantMismatch = errors.New("auth: tenant mismatch")
)

// DeviceTenantChecker answers whether a device belongs to a tenant. Handlers
// that accept device ids from callers use it to keep references inside the
// caller's tenant.
type DeviceTenantChecker interface {
	EnsureDeviceTenant(ctx context.Context, tenantID, deviceID string) error
}

// DeviceChecker checks ownership against the device registry.
type DeviceChecker struct {
	devices registry.DeviceRepository
}

// NewDeviceChecker constructs a checker. A nil repository yields a nil
// checker, which enforces nothing.
func NewDeviceChecker(devices registry.DeviceRepository) *DeviceChecker {
	if devices == nil {
		return nil
	}
	return &DeviceChecker{devices: devices}
}

// EnsureDeviceTenant verifies the device exists and belongs to the tenant.
func (c *DeviceChecker) EnsureDeviceTenant(ctx context.Context, tenantID, deviceID string) error {
	if c == nil || tenantID == "" || deviceID == "" {
		return nil
	}
	device, err := c.devices.Get(ctx, deviceID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return ErrDeviceNotFound
		}
		return err
	}
	if device.TenantID != tenantID {
		return ErrTenantMismatch
	}
	return nil
}
