package rules

import (
	"fmt"
	"time"
)

// SeverityWarning is the only severity raised today.
const SeverityWarning = "warning"

// Alert is an immutable record created when a rule matched and was not
// suppressed by its cooldown window. DeviceID is always concrete, even when
// the source rule was device-wildcard.
type Alert struct {
	ID       string    `json:"id"`
	RuleID   string    `json:"rule_id"`
	TenantID string    `json:"tenant_id"`
	DeviceID string    `json:"device_id"`
	Type     string    `json:"type"`
	Value    float64   `json:"value"`
	Time     time.Time `json:"time"`
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
}

// AlertMessage renders the human-readable alert text for a matched rule.
func AlertMessage(rule Rule, value float64) string {
	return fmt.Sprintf("Rule %s %v hit for %s (value=%v)", rule.Operator, rule.Threshold, rule.Type, value)
}

// AlertFilter narrows alert listing.
type AlertFilter struct {
	TenantID string
	DeviceID string
	Type     string
	From     time.Time
	To       time.Time
	Limit    int
}
