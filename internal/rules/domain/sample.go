package rules

import "time"

// Sample is the latest known measurement for a (tenant, device, type) scope.
// Samples are read-only snapshots sourced from the ingest store.
type Sample struct {
	TenantID string
	DeviceID string
	Type     string
	Value    float64
	Time     time.Time
}
