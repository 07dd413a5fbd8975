package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sensegrid-cloud/internal/auth"
	"sensegrid-cloud/internal/rules/application"
	rules "sensegrid-cloud/internal/rules/domain"
)

type memoryRuleStore struct {
	created []rules.Rule
}

func (s *memoryRuleStore) Create(_ context.Context, rule *rules.Rule) error {
	s.created = append(s.created, *rule)
	return nil
}

func (s *memoryRuleStore) ListByTenant(_ context.Context, tenantID string) ([]rules.Rule, error) {
	var out []rules.Rule
	for _, rule := range s.created {
		if rule.TenantID == tenantID {
			out = append(out, rule)
		}
	}
	return out, nil
}

type memoryAlertReader struct {
	alerts     []rules.Alert
	lastFilter rules.AlertFilter
}

func (r *memoryAlertReader) List(_ context.Context, filter rules.AlertFilter) ([]rules.Alert, error) {
	r.lastFilter = filter
	return r.alerts, nil
}

func newTestHandler(t *testing.T) (*Handler, *memoryRuleStore, *memoryAlertReader) {
	t.Helper()
	store := &memoryRuleStore{}
	reader := &memoryAlertReader{}
	service, err := application.NewService(store, reader)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewHandler(service)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler, store, reader
}

func TestCreateRuleEndpoint(t *testing.T) {
	handler, store, _ := newTestHandler(t)

	body := `{"tenantId":"tenant-a","type":"temperature","op":">","threshold":28.0}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rules", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", resp.Code, resp.Body.String())
	}
	var rule rules.Rule
	if err := json.Unmarshal(resp.Body.Bytes(), &rule); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rule.ID == "" {
		t.Fatal("response rule has no id")
	}
	if rule.CooldownSeconds != rules.DefaultCooldownSeconds {
		t.Fatalf("cooldown = %d, want default", rule.CooldownSeconds)
	}
	if !rule.Enabled {
		t.Fatal("rule should default to enabled")
	}
	if len(store.created) != 1 {
		t.Fatalf("stored %d rules, want 1", len(store.created))
	}
}

func TestCreateRuleEndpoint_ExplicitZeroCooldown(t *testing.T) {
	handler, store, _ := newTestHandler(t)

	body := `{"tenantId":"tenant-a","type":"temperature","op":">","threshold":28.0,"cooldownSeconds":0}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rules", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", resp.Code, resp.Body.String())
	}
	if store.created[0].CooldownSeconds != 0 {
		t.Fatalf("cooldown = %d, want explicit 0 kept", store.created[0].CooldownSeconds)
	}
}

type stubDeviceChecker struct {
	err   error
	calls int
}

func (c *stubDeviceChecker) EnsureDeviceTenant(_ context.Context, _, _ string) error {
	c.calls++
	return c.err
}

func TestCreateRuleEndpoint_DeviceOwnership(t *testing.T) {
	store := &memoryRuleStore{}
	reader := &memoryAlertReader{}
	service, err := application.NewService(store, reader)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	checker := &stubDeviceChecker{}
	handler, err := NewHandler(service, WithDeviceChecker(checker))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	body := `{"tenantId":"tenant-a","deviceId":"device-1","type":"temperature","op":">","threshold":28.0}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rules", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", resp.Code, resp.Body.String())
	}
	if checker.calls != 1 {
		t.Fatalf("checker called %d times, want 1", checker.calls)
	}

	checker.err = auth.ErrTenantMismatch
	req = httptest.NewRequest(http.MethodPost, "/api/v1/rules", strings.NewReader(body))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("cross-tenant device status = %d, want 400", resp.Code)
	}
	if len(store.created) != 1 {
		t.Fatalf("stored %d rules, want only the owned one", len(store.created))
	}

	// Wildcard rules have no device to verify.
	wildcard := `{"tenantId":"tenant-a","type":"temperature","op":">","threshold":28.0}`
	req = httptest.NewRequest(http.MethodPost, "/api/v1/rules", strings.NewReader(wildcard))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("wildcard status = %d, want 201", resp.Code)
	}
	if checker.calls != 2 {
		t.Fatalf("checker called %d times, want 2 (wildcard skipped)", checker.calls)
	}
}

func TestCreateRuleEndpoint_InvalidOperator(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	body := `{"tenantId":"tenant-a","type":"temperature","op":"contains","threshold":28.0}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rules", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestListRulesEndpoint(t *testing.T) {
	handler, store, _ := newTestHandler(t)
	store.created = []rules.Rule{
		{ID: "r1", TenantID: "tenant-a", Type: "temperature", Operator: rules.OperatorGreater},
		{ID: "r2", TenantID: "tenant-b", Type: "humidity", Operator: rules.OperatorLess},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules?tenant_id=tenant-a", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	var list []rules.Rule
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != 1 || list[0].ID != "r1" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestListRulesEndpoint_MissingTenant(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestListAlertsEndpoint(t *testing.T) {
	handler, _, reader := newTestHandler(t)
	reader.alerts = []rules.Alert{{
		ID:       "a1",
		RuleID:   "r1",
		TenantID: "tenant-a",
		DeviceID: "device-1",
		Type:     "temperature",
		Value:    29.1,
		Time:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Severity: rules.SeverityWarning,
	}}

	target := "/api/v1/alerts?tenant_id=tenant-a&device_id=device-1&type=temperature&from=2026-08-01T00:00:00Z&to=2026-08-02T00:00:00Z&limit=50"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if reader.lastFilter.DeviceID != "device-1" || reader.lastFilter.Type != "temperature" {
		t.Fatalf("filter not passed through: %+v", reader.lastFilter)
	}
	if reader.lastFilter.Limit != 50 {
		t.Fatalf("limit = %d, want 50", reader.lastFilter.Limit)
	}
	var list []rules.Alert
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != 1 || list[0].ID != "a1" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestListAlertsEndpoint_BadTimeFormat(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?tenant_id=tenant-a&from=yesterday", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestUnknownPath(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.Code)
	}
}
