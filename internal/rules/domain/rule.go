package rules

import (
	"errors"
	"time"
)

// Operator is a threshold comparison operator.
type Operator string

const (
	OperatorGreater        Operator = ">"
	OperatorGreaterOrEqual Operator = ">="
	OperatorLess           Operator = "<"
	OperatorLessOrEqual    Operator = "<="
	OperatorEqual          Operator = "=="
	OperatorNotEqual       Operator = "!="
)

// DefaultCooldownSeconds applies when a rule is created without a cooldown
// of its own. An explicit zero is kept: it disables suppression.
const DefaultCooldownSeconds = 300

// Valid returns true when the operator is one of the six recognized symbols.
func (o Operator) Valid() bool {
	switch o {
	case OperatorGreater, OperatorGreaterOrEqual, OperatorLess, OperatorLessOrEqual,
		OperatorEqual, OperatorNotEqual:
		return true
	default:
		return false
	}
}

// Rule defines a threshold alerting rule. An empty DeviceID scopes the rule
// to every device of the tenant/type pair.
type Rule struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	DeviceID        string    `json:"device_id,omitempty"`
	Type            string    `json:"type"`
	Operator        Operator  `json:"op"`
	Threshold       float64   `json:"threshold"`
	CooldownSeconds int       `json:"cooldown_seconds"`
	Enabled         bool      `json:"enabled"`
	CreatedAt       time.Time `json:"created_at"`
}

// Validate checks rule invariants for creation. Evaluation itself never
// validates: an unrecognized operator simply never matches.
func (r Rule) Validate() error {
	if r.TenantID == "" {
		return errors.New("rule: empty tenant id")
	}
	if r.Type == "" {
		return errors.New("rule: empty metric type")
	}
	if !r.Operator.Valid() {
		return errors.New("rule: invalid operator")
	}
	if r.CooldownSeconds < 0 {
		return errors.New("rule: negative cooldown")
	}
	return nil
}

// Cooldown returns the rule's suppression window. Zero means no suppression.
func (r Rule) Cooldown() time.Duration {
	if r.CooldownSeconds < 0 {
		return DefaultCooldownSeconds * time.Second
	}
	return time.Duration(r.CooldownSeconds) * time.Second
}
