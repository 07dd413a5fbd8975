package registry

import (
	"errors"
	"time"
)

// Tenant is an organization owning devices and rules.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks tenant invariants.
func (t Tenant) Validate() error {
	if t.ID == "" {
		return errors.New("tenant: empty id")
	}
	if t.Name == "" {
		return errors.New("tenant: empty name")
	}
	if t.Slug == "" {
		return errors.New("tenant: empty slug")
	}
	return nil
}
