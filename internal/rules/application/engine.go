package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sensegrid-cloud/internal/observability/metrics"
	rules "sensegrid-cloud/internal/rules/domain"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Engine runs one evaluation cycle over all enabled rules: fetch the latest
// sample per rule scope, evaluate the threshold, gate on the cooldown window
// and record plus publish the alert. Faults are isolated at rule granularity,
// so one misbehaving rule never starves alerting for the rest of the cycle.
type Engine struct {
	catalog         rules.RuleCatalog
	samples         rules.SampleSource
	store           rules.AlertStore
	publisher       rules.AlertPublisher
	clock           Clock
	logger          zerolog.Logger
	defaultCooldown time.Duration
}

// EngineOption customizes the engine.
type EngineOption func(*Engine)

// WithPublisher assigns the best-effort realtime publisher.
func WithPublisher(publisher rules.AlertPublisher) EngineOption {
	return func(e *Engine) {
		e.publisher = publisher
	}
}

// WithClock overrides the default clock.
func WithClock(clock Clock) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithDefaultCooldown overrides the suppression window applied to rules
// whose stored cooldown is malformed.
func WithDefaultCooldown(cooldown time.Duration) EngineOption {
	return func(e *Engine) {
		if cooldown > 0 {
			e.defaultCooldown = cooldown
		}
	}
}

// WithLogger assigns the engine logger.
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine constructs an evaluation engine.
func NewEngine(catalog rules.RuleCatalog, samples rules.SampleSource, store rules.AlertStore, opts ...EngineOption) (*Engine, error) {
	if catalog == nil {
		return nil, errors.New("rules engine: nil catalog")
	}
	if samples == nil {
		return nil, errors.New("rules engine: nil sample source")
	}
	if store == nil {
		return nil, errors.New("rules engine: nil alert store")
	}
	engine := &Engine{
		catalog:         catalog,
		samples:         samples,
		store:           store,
		clock:           systemClock{},
		logger:          zerolog.Nop(),
		defaultCooldown: rules.DefaultCooldownSeconds * time.Second,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// RunCycle evaluates every enabled rule once. A catalog read failure aborts
// the cycle; any per-rule fault is logged and the remaining rules still run.
// Cancellation is honored between rules.
func (e *Engine) RunCycle(ctx context.Context) error {
	if e == nil {
		return errors.New("rules engine: nil engine")
	}

	ruleList, err := e.catalog.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("rules engine: list enabled rules: %w", err)
	}

	evaluated := 0
	for _, rule := range ruleList {
		select {
		case <-ctx.Done():
			metrics.AddRulesEvaluated(evaluated)
			return ctx.Err()
		default:
		}
		if err := e.evaluateRule(ctx, rule); err != nil {
			if ctx.Err() != nil {
				metrics.AddRulesEvaluated(evaluated)
				return ctx.Err()
			}
			metrics.IncRuleFault()
			e.logger.Warn().
				Err(err).
				Str("rule_id", rule.ID).
				Str("tenant_id", rule.TenantID).
				Str("type", rule.Type).
				Msg("rule evaluation fault, continuing cycle")
			continue
		}
		evaluated++
	}
	metrics.AddRulesEvaluated(evaluated)
	return nil
}

func (e *Engine) evaluateRule(ctx context.Context, rule rules.Rule) error {
	sample, err := e.samples.Latest(ctx, rule.TenantID, rule.DeviceID, rule.Type)
	if err != nil {
		return fmt.Errorf("latest sample: %w", err)
	}
	if sample == nil {
		// No data yet for this scope: not a fault, the rule just skips
		// this cycle.
		return nil
	}

	if !rules.Matches(rule.Operator, sample.Value, rule.Threshold) {
		return nil
	}

	now := e.clock.Now().UTC()
	cutoff := now.Add(-e.cooldownFor(rule))
	recent, err := e.store.HasRecent(ctx, rule.ID, sample.DeviceID, cutoff)
	if err != nil {
		return fmt.Errorf("cooldown check: %w", err)
	}
	if recent {
		metrics.IncAlertSuppressed()
		e.logger.Debug().
			Str("rule_id", rule.ID).
			Str("device_id", sample.DeviceID).
			Msg("alert suppressed by cooldown")
		return nil
	}

	alert := &rules.Alert{
		ID:       uuid.NewString(),
		RuleID:   rule.ID,
		TenantID: rule.TenantID,
		DeviceID: sample.DeviceID,
		Type:     rule.Type,
		Value:    sample.Value,
		Time:     now,
		Severity: rules.SeverityWarning,
		Message:  rules.AlertMessage(rule, sample.Value),
	}

	// The store write runs to completion even when shutdown begins mid-rule,
	// so cancellation never leaves a partial record behind.
	writeCtx := context.WithoutCancel(ctx)
	if err := e.store.Record(writeCtx, alert); err != nil {
		return fmt.Errorf("record alert: %w", err)
	}
	metrics.IncAlertRaised(rule.Type)
	e.logger.Info().
		Str("alert_id", alert.ID).
		Str("rule_id", rule.ID).
		Str("device_id", alert.DeviceID).
		Str("type", alert.Type).
		Float64("value", alert.Value).
		Msg("alert raised")

	if e.publisher != nil {
		if err := e.publisher.Publish(writeCtx, *alert); err != nil {
			e.logger.Warn().
				Err(err).
				Str("alert_id", alert.ID).
				Msg("alert publish failed, alert remains stored")
		}
	}
	return nil
}

// cooldownFor honors the stored cooldown, including an explicit zero that
// disables suppression. Only a malformed negative value falls back to the
// configured default.
func (e *Engine) cooldownFor(rule rules.Rule) time.Duration {
	if rule.CooldownSeconds < 0 {
		return e.defaultCooldown
	}
	return time.Duration(rule.CooldownSeconds) * time.Second
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
