package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"sensegrid-cloud/internal/registry/application"
	registry "sensegrid-cloud/internal/registry/domain"
)

// Handler provides tenant and device registry endpoints under /api/v1/tenants.
type Handler struct {
	service *application.Service
}

// NewHandler constructs a handler.
func NewHandler(service *application.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("registry handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP routes registry requests.
//
// POST /api/v1/tenants
// GET  /api/v1/tenants/by-slug/{slug}
// POST /api/v1/tenants/{id}/devices
// GET  /api/v1/tenants/{id}/devices
// GET  /api/v1/tenants/{id}/devices/{deviceId}
// GET  /api/v1/tenants/{id}/devices/by-serial/{serial}
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/tenants")
	rest = strings.Trim(rest, "/")

	if rest == "" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleCreateTenant(w, r)
		return
	}

	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 2 && parts[0] == "by-slug":
		h.requireGet(w, r, func() { h.handleGetTenantBySlug(w, r, parts[1]) })
	case len(parts) == 1:
		h.requireGet(w, r, func() { h.handleGetTenant(w, r, parts[0]) })
	case len(parts) == 2 && parts[1] == "devices":
		switch r.Method {
		case http.MethodPost:
			h.handleRegisterDevice(w, r, parts[0])
		case http.MethodGet:
			h.handleListDevices(w, r, parts[0])
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 4 && parts[1] == "devices" && parts[2] == "by-serial":
		h.requireGet(w, r, func() { h.handleGetDeviceBySerial(w, r, parts[0], parts[3]) })
	case len(parts) == 3 && parts[1] == "devices":
		h.requireGet(w, r, func() { h.handleGetDevice(w, r, parts[0], parts[2]) })
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) requireGet(w http.ResponseWriter, r *http.Request, next func()) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	next()
}

type createTenantRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (h *Handler) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	tenant, err := h.service.CreateTenant(r.Context(), registry.Tenant{Name: req.Name, Slug: req.Slug})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, tenant)
}

func (h *Handler) handleGetTenant(w http.ResponseWriter, r *http.Request, id string) {
	tenant, err := h.service.GetTenant(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

func (h *Handler) handleGetTenantBySlug(w http.ResponseWriter, r *http.Request, slug string) {
	tenant, err := h.service.GetTenantBySlug(r.Context(), slug)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

type registerDeviceRequest struct {
	RoomID string `json:"roomId"`
	Model  string `json:"model"`
	Serial string `json:"serial"`
	Status string `json:"status"`
}

func (h *Handler) handleRegisterDevice(w http.ResponseWriter, r *http.Request, tenantID string) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	device, err := h.service.RegisterDevice(r.Context(), registry.Device{
		TenantID: tenantID,
		RoomID:   req.RoomID,
		Model:    req.Model,
		Serial:   req.Serial,
		Status:   req.Status,
	})
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			http.Error(w, "tenant not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, device)
}

func (h *Handler) handleListDevices(w http.ResponseWriter, r *http.Request, tenantID string) {
	devices, err := h.service.ListDevices(r.Context(), tenantID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if devices == nil {
		devices = []registry.Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

func (h *Handler) handleGetDevice(w http.ResponseWriter, r *http.Request, tenantID, deviceID string) {
	device, err := h.service.GetDevice(r.Context(), deviceID)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	if device.TenantID != tenantID {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (h *Handler) handleGetDeviceBySerial(w http.ResponseWriter, r *http.Request, tenantID, serial string) {
	device, err := h.service.GetDeviceBySerial(r.Context(), tenantID, serial)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, registry.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
