package application

import (
	"context"
	"errors"
	"testing"
	"time"

	rules "sensegrid-cloud/internal/rules/domain"
)

type stubCatalog struct {
	rules []rules.Rule
	err   error
	calls int
}

func (s *stubCatalog) ListEnabled(_ context.Context) ([]rules.Rule, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.rules, nil
}

type stubSource struct {
	latest func(tenantID, deviceID, metricType string) (*rules.Sample, error)
}

func (s *stubSource) Latest(_ context.Context, tenantID, deviceID, metricType string) (*rules.Sample, error) {
	return s.latest(tenantID, deviceID, metricType)
}

func fixedSample(sample *rules.Sample) *stubSource {
	return &stubSource{latest: func(_, _, _ string) (*rules.Sample, error) {
		return sample, nil
	}}
}

type memoryStore struct {
	recorded  []rules.Alert
	recordErr error
	recentErr error
}

func (s *memoryStore) Record(_ context.Context, alert *rules.Alert) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.recorded = append(s.recorded, *alert)
	return nil
}

func (s *memoryStore) HasRecent(_ context.Context, ruleID, deviceID string, since time.Time) (bool, error) {
	if s.recentErr != nil {
		return false, s.recentErr
	}
	for _, alert := range s.recorded {
		if alert.RuleID == ruleID && alert.DeviceID == deviceID && !alert.Time.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

type stubPublisher struct {
	published []rules.Alert
	err       error
}

func (s *stubPublisher) Publish(_ context.Context, alert rules.Alert) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, alert)
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func testRule() rules.Rule {
	return rules.Rule{
		ID:              "rule-1",
		TenantID:        "tenant-a",
		DeviceID:        "device-1",
		Type:            "temperature",
		Operator:        rules.OperatorGreater,
		Threshold:       28.0,
		CooldownSeconds: rules.DefaultCooldownSeconds,
		Enabled:         true,
	}
}

func newTestEngine(t *testing.T, catalog *stubCatalog, source *stubSource, store *memoryStore, opts ...EngineOption) *Engine {
	t.Helper()
	engine, err := NewEngine(catalog, source, store, opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestRunCycle_RaisesAlertOnMatch(t *testing.T) {
	catalog := &stubCatalog{rules: []rules.Rule{testRule()}}
	source := fixedSample(&rules.Sample{TenantID: "tenant-a", DeviceID: "device-1", Type: "temperature", Value: 29.1})
	store := &memoryStore{}
	publisher := &stubPublisher{}
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, catalog, source, store, WithPublisher(publisher), WithClock(clock))

	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if len(store.recorded) != 1 {
		t.Fatalf("recorded %d alerts, want 1", len(store.recorded))
	}
	if len(publisher.published) != 1 {
		t.Fatalf("published %d alerts, want 1", len(publisher.published))
	}

	alert := store.recorded[0]
	if alert.ID == "" {
		t.Fatal("alert id not assigned")
	}
	if alert.RuleID != "rule-1" || alert.DeviceID != "device-1" || alert.TenantID != "tenant-a" {
		t.Fatalf("unexpected alert identity: %+v", alert)
	}
	if alert.Severity != rules.SeverityWarning {
		t.Fatalf("severity = %q, want warning", alert.Severity)
	}
	if alert.Value != 29.1 {
		t.Fatalf("value = %v, want 29.1", alert.Value)
	}
	if !alert.Time.Equal(clock.now) {
		t.Fatalf("alert time = %s, want engine clock %s", alert.Time, clock.now)
	}
	if alert.Message != "Rule > 28 hit for temperature (value=29.1)" {
		t.Fatalf("unexpected message %q", alert.Message)
	}
}

func TestRunCycle_NoMatchNoAlert(t *testing.T) {
	catalog := &stubCatalog{rules: []rules.Rule{testRule()}}
	source := fixedSample(&rules.Sample{TenantID: "tenant-a", DeviceID: "device-1", Type: "temperature", Value: 27.9})
	store := &memoryStore{}
	publisher := &stubPublisher{}
	engine := newTestEngine(t, catalog, source, store, WithPublisher(publisher))

	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if len(store.recorded) != 0 || len(publisher.published) != 0 {
		t.Fatalf("expected no alerts, recorded=%d published=%d", len(store.recorded), len(publisher.published))
	}
}

func TestRunCycle_AbsentSampleSkips(t *testing.T) {
	catalog := &stubCatalog{rules: []rules.Rule{testRule()}}
	source := fixedSample(nil)
	store := &memoryStore{}
	engine := newTestEngine(t, catalog, source, store)

	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if len(store.recorded) != 0 {
		t.Fatalf("expected no alerts for absent sample, got %d", len(store.recorded))
	}
}

func TestRunCycle_CooldownSuppressesThenExpires(t *testing.T) {
	catalog := &stubCatalog{rules: []rules.Rule{testRule()}}
	source := fixedSample(&rules.Sample{TenantID: "tenant-a", DeviceID: "device-1", Type: "temperature", Value: 30.0})
	store := &memoryStore{}
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, catalog, source, store, WithClock(clock))

	// Cooldown is 300s. A second match 10s later is suppressed,
	// a third at +400s raises again.
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	clock.advance(10 * time.Second)
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if len(store.recorded) != 1 {
		t.Fatalf("after suppressed cycle recorded=%d, want 1", len(store.recorded))
	}
	clock.advance(390 * time.Second)
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("third cycle: %v", err)
	}
	if len(store.recorded) != 2 {
		t.Fatalf("after cooldown expiry recorded=%d, want 2", len(store.recorded))
	}
}

func TestRunCycle_ZeroCooldownDisablesSuppression(t *testing.T) {
	rule := testRule()
	rule.CooldownSeconds = 0
	catalog := &stubCatalog{rules: []rules.Rule{rule}}
	source := fixedSample(&rules.Sample{TenantID: "tenant-a", DeviceID: "device-1", Type: "temperature", Value: 30.0})
	store := &memoryStore{}
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, catalog, source, store, WithClock(clock))

	for i := 0; i < 3; i++ {
		if err := engine.RunCycle(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		clock.advance(10 * time.Second)
	}
	if len(store.recorded) != 3 {
		t.Fatalf("recorded %d alerts, want one per cycle", len(store.recorded))
	}
}

func TestRunCycle_WildcardResolvesConcreteDevice(t *testing.T) {
	rule := testRule()
	rule.DeviceID = ""
	catalog := &stubCatalog{rules: []rules.Rule{rule}}
	device := "device-a"
	source := &stubSource{latest: func(_, deviceID, _ string) (*rules.Sample, error) {
		if deviceID != "" {
			t.Fatalf("wildcard rule queried with device %q", deviceID)
		}
		return &rules.Sample{TenantID: "tenant-a", DeviceID: device, Type: "temperature", Value: 31.0}, nil
	}}
	store := &memoryStore{}
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, catalog, source, store, WithClock(clock))

	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if len(store.recorded) != 1 || store.recorded[0].DeviceID != "device-a" {
		t.Fatalf("expected alert for device-a, got %+v", store.recorded)
	}

	// Cooldown is tracked per (rule, device): another device alerts
	// immediately even though device-a is still cooling down.
	device = "device-b"
	clock.advance(10 * time.Second)
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if len(store.recorded) != 2 || store.recorded[1].DeviceID != "device-b" {
		t.Fatalf("expected second alert for device-b, got %+v", store.recorded)
	}

	device = "device-a"
	clock.advance(10 * time.Second)
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("third cycle: %v", err)
	}
	if len(store.recorded) != 2 {
		t.Fatalf("device-a should still be suppressed, recorded=%d", len(store.recorded))
	}
}

func TestRunCycle_FaultIsolation(t *testing.T) {
	faulty := testRule()
	faulty.ID = "rule-bad"
	healthy := testRule()
	healthy.ID = "rule-good"
	catalog := &stubCatalog{rules: []rules.Rule{faulty, healthy}}

	// The first rule faults on its sample read, the second still runs.
	calls := 0
	source := &stubSource{latest: func(_, _, _ string) (*rules.Sample, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("source unavailable")
		}
		return &rules.Sample{TenantID: "tenant-a", DeviceID: "device-1", Type: "temperature", Value: 30.0}, nil
	}}
	store := &memoryStore{}
	engine := newTestEngine(t, catalog, source, store)

	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("run cycle should isolate rule faults: %v", err)
	}
	if len(store.recorded) != 1 || store.recorded[0].RuleID != "rule-good" {
		t.Fatalf("expected alert for rule-good only, got %+v", store.recorded)
	}
}

func TestRunCycle_CatalogErrorAbortsCycle(t *testing.T) {
	catalog := &stubCatalog{err: errors.New("db down")}
	store := &memoryStore{}
	engine := newTestEngine(t, catalog, fixedSample(nil), store)

	if err := engine.RunCycle(context.Background()); err == nil {
		t.Fatal("expected error when catalog read fails")
	}
}

func TestRunCycle_PublishFailureKeepsStoredAlert(t *testing.T) {
	catalog := &stubCatalog{rules: []rules.Rule{testRule()}}
	source := fixedSample(&rules.Sample{TenantID: "tenant-a", DeviceID: "device-1", Type: "temperature", Value: 30.0})
	store := &memoryStore{}
	publisher := &stubPublisher{err: errors.New("webhook down")}
	engine := newTestEngine(t, catalog, source, store, WithPublisher(publisher))

	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("publish failure must not fail the cycle: %v", err)
	}
	if len(store.recorded) != 1 {
		t.Fatalf("recorded %d alerts, want exactly 1", len(store.recorded))
	}
}

func TestRunCycle_CancellationStopsBetweenRules(t *testing.T) {
	var ruleList []rules.Rule
	for i := 0; i < 5; i++ {
		rule := testRule()
		rule.ID = "rule-" + string(rune('a'+i))
		ruleList = append(ruleList, rule)
	}
	catalog := &stubCatalog{rules: ruleList}
	ctx, cancel := context.WithCancel(context.Background())
	evaluations := 0
	source := &stubSource{latest: func(_, _, _ string) (*rules.Sample, error) {
		evaluations++
		if evaluations == 2 {
			cancel()
		}
		return nil, nil
	}}
	store := &memoryStore{}
	engine := newTestEngine(t, catalog, source, store)

	err := engine.RunCycle(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if evaluations >= 5 {
		t.Fatalf("expected cancellation to stop the cycle early, evaluated %d", evaluations)
	}
}

func TestRunCycle_PerRuleCooldownOverride(t *testing.T) {
	rule := testRule()
	rule.CooldownSeconds = 60
	catalog := &stubCatalog{rules: []rules.Rule{rule}}
	source := fixedSample(&rules.Sample{TenantID: "tenant-a", DeviceID: "device-1", Type: "temperature", Value: 30.0})
	store := &memoryStore{}
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, catalog, source, store, WithClock(clock))

	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	clock.advance(61 * time.Second)
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if len(store.recorded) != 2 {
		t.Fatalf("expected rule cooldown override to expire after 60s, recorded=%d", len(store.recorded))
	}
}
