package rules

import (
	"context"
	"time"
)

// RuleCatalog reads alerting rules. The engine only ever reads.
type RuleCatalog interface {
	ListEnabled(ctx context.Context) ([]Rule, error)
}

// SampleSource reads the latest measurement for a rule scope. A nil sample
// with a nil error means no data yet for that scope, which is not a fault.
// With an empty deviceID the source resolves the newest sample across all
// devices of the tenant/type pair.
type SampleSource interface {
	Latest(ctx context.Context, tenantID, deviceID, metricType string) (*Sample, error)
}

// AlertStore persists alerts and answers the cooldown history query.
type AlertStore interface {
	// Record durably stores the alert, assigning id and time when unset.
	Record(ctx context.Context, alert *Alert) error
	// HasRecent reports whether any alert exists for the (rule, device)
	// pair with a timestamp at or after sinceExclusive.
	HasRecent(ctx context.Context, ruleID, deviceID string, sinceExclusive time.Time) (bool, error)
}

// AlertPublisher pushes a newly raised alert to realtime subscribers.
// Publishing is best-effort: a failure never rolls back the stored alert.
type AlertPublisher interface {
	Publish(ctx context.Context, alert Alert) error
}
