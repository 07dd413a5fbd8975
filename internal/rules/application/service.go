package application

import (
	"context"
	"errors"

	"github.com/google/uuid"

	rules "sensegrid-cloud/internal/rules/domain"
)

// RuleStore persists rules for the management surface.
type RuleStore interface {
	Create(ctx context.Context, rule *rules.Rule) error
	ListByTenant(ctx context.Context, tenantID string) ([]rules.Rule, error)
}

// AlertReader lists stored alerts.
type AlertReader interface {
	List(ctx context.Context, filter rules.AlertFilter) ([]rules.Alert, error)
}

const maxAlertPageSize = 200

// Service exposes the pass-through management operations: create and list
// rules, list alerts. It carries no evaluation logic.
type Service struct {
	rules     RuleStore
	alerts    AlertReader
	clock     Clock
	pageLimit int
}

// ServiceOption customizes the management service.
type ServiceOption func(*Service)

// WithServiceClock overrides the default clock.
func WithServiceClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithAlertPageLimit caps the alert listing page size.
func WithAlertPageLimit(limit int) ServiceOption {
	return func(s *Service) {
		if limit > 0 && limit <= maxAlertPageSize {
			s.pageLimit = limit
		}
	}
}

// NewService constructs a management service.
func NewService(ruleStore RuleStore, alerts AlertReader, opts ...ServiceOption) (*Service, error) {
	if ruleStore == nil {
		return nil, errors.New("rules service: nil rule store")
	}
	if alerts == nil {
		return nil, errors.New("rules service: nil alert reader")
	}
	service := &Service{
		rules:     ruleStore,
		alerts:    alerts,
		clock:     systemClock{},
		pageLimit: maxAlertPageSize,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// CreateRule validates and stores a new rule, assigning id and creation
// time. Cooldown defaulting happens at the transport boundary so an explicit
// zero survives to disable suppression.
func (s *Service) CreateRule(ctx context.Context, rule *rules.Rule) error {
	if s == nil {
		return errors.New("rules service: nil service")
	}
	if rule == nil {
		return errors.New("rules service: nil rule")
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = s.clock.Now().UTC()
	}
	return s.rules.Create(ctx, rule)
}

// ListRules returns a tenant's rules.
func (s *Service) ListRules(ctx context.Context, tenantID string) ([]rules.Rule, error) {
	if s == nil {
		return nil, errors.New("rules service: nil service")
	}
	if tenantID == "" {
		return nil, errors.New("rules service: tenant id required")
	}
	return s.rules.ListByTenant(ctx, tenantID)
}

// ListAlerts returns alerts newest-first with a bounded page size.
func (s *Service) ListAlerts(ctx context.Context, filter rules.AlertFilter) ([]rules.Alert, error) {
	if s == nil {
		return nil, errors.New("rules service: nil service")
	}
	if filter.TenantID == "" {
		return nil, errors.New("rules service: tenant id required")
	}
	if filter.Limit <= 0 || filter.Limit > s.pageLimit {
		filter.Limit = s.pageLimit
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.To.After(filter.From) {
		return nil, errors.New("rules service: to must be after from")
	}
	return s.alerts.List(ctx, filter)
}
