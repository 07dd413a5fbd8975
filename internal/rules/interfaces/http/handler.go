package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sensegrid-cloud/internal/auth"
	"sensegrid-cloud/internal/rules/application"
	rules "sensegrid-cloud/internal/rules/domain"
)

const timeLayout = time.RFC3339

// Handler provides rule and alert HTTP endpoints.
type Handler struct {
	service *application.Service
	devices auth.DeviceTenantChecker
}

// HandlerOption customizes the handler.
type HandlerOption func(*Handler)

// WithDeviceChecker makes rule creation verify that a concrete device target
// belongs to the rule's tenant. Without it, device ids pass unchecked.
func WithDeviceChecker(checker auth.DeviceTenantChecker) HandlerOption {
	return func(h *Handler) {
		h.devices = checker
	}
}

// NewHandler constructs a handler.
func NewHandler(service *application.Service, opts ...HandlerOption) (*Handler, error) {
	if service == nil {
		return nil, errors.New("rules handler: nil service")
	}
	handler := &Handler{service: service}
	for _, opt := range opts {
		opt(handler)
	}
	return handler, nil
}

// ServeHTTP handles /api/v1/rules and /api/v1/alerts.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/rules":
		switch r.Method {
		case http.MethodPost:
			h.handleCreateRule(w, r)
		case http.MethodGet:
			h.handleListRules(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "/api/v1/alerts":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleListAlerts(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type createRuleRequest struct {
	TenantID        string  `json:"tenantId"`
	DeviceID        string  `json:"deviceId"`
	Type            string  `json:"type"`
	Op              string  `json:"op"`
	Threshold       float64 `json:"threshold"`
	CooldownSeconds *int    `json:"cooldownSeconds"`
	Enabled         *bool   `json:"enabled"`
}

func (h *Handler) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	tenantID := resolveTenant(r, req.TenantID)
	if tenantID == "" {
		http.Error(w, "tenantId is required", http.StatusBadRequest)
		return
	}

	rule := rules.Rule{
		TenantID:        tenantID,
		DeviceID:        req.DeviceID,
		Type:            req.Type,
		Operator:        rules.Operator(req.Op),
		Threshold:       req.Threshold,
		CooldownSeconds: rules.DefaultCooldownSeconds,
		Enabled:         true,
	}
	// An explicit zero is kept: it turns cooldown suppression off.
	if req.CooldownSeconds != nil {
		rule.CooldownSeconds = *req.CooldownSeconds
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if rule.DeviceID != "" && h.devices != nil {
		if err := h.devices.EnsureDeviceTenant(r.Context(), tenantID, rule.DeviceID); err != nil {
			if errors.Is(err, auth.ErrDeviceNotFound) || errors.Is(err, auth.ErrTenantMismatch) {
				http.Error(w, "unknown device for tenant", http.StatusBadRequest)
				return
			}
			http.Error(w, "device lookup failed", http.StatusInternalServerError)
			return
		}
	}

	if err := h.service.CreateRule(r.Context(), &rule); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(rule)
}

func (h *Handler) handleListRules(w http.ResponseWriter, r *http.Request) {
	tenantID := resolveTenant(r, r.URL.Query().Get("tenant_id"))
	if tenantID == "" {
		http.Error(w, "tenant_id is required", http.StatusBadRequest)
		return
	}
	list, err := h.service.ListRules(r.Context(), tenantID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []rules.Rule{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	filter, err := alertFilterFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.service.ListAlerts(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if list == nil {
		list = []rules.Alert{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func alertFilterFromRequest(r *http.Request) (rules.AlertFilter, error) {
	query := r.URL.Query()
	filter := rules.AlertFilter{
		TenantID: resolveTenant(r, query.Get("tenant_id")),
		DeviceID: query.Get("device_id"),
		Type:     query.Get("type"),
	}
	if filter.TenantID == "" {
		return filter, errors.New("tenant_id is required")
	}
	var err error
	if filter.From, err = parseTimeQuery(query.Get("from")); err != nil {
		return filter, errors.New("from must be RFC3339")
	}
	if filter.To, err = parseTimeQuery(query.Get("to")); err != nil {
		return filter, errors.New("to must be RFC3339")
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, errors.New("limit must be a positive integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}

func resolveTenant(r *http.Request, fallback string) string {
	if tenantID := auth.TenantIDFromContext(r.Context()); tenantID != "" {
		return tenantID
	}
	return fallback
}

func parseTimeQuery(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}
