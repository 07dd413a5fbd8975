package registry

import (
	"errors"
	"time"
)

// Device statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Device is a registered telemetry emitter.
type Device struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	RoomID    string    `json:"room_id,omitempty"`
	Model     string    `json:"model,omitempty"`
	Serial    string    `json:"serial"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks device invariants.
func (d Device) Validate() error {
	if d.ID == "" {
		return errors.New("device: empty id")
	}
	if d.TenantID == "" {
		return errors.New("device: empty tenant id")
	}
	if d.Serial == "" {
		return errors.New("device: empty serial")
	}
	if d.Status != StatusActive && d.Status != StatusInactive {
		return errors.New("device: unknown status")
	}
	return nil
}
