package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	registry "sensegrid-cloud/internal/registry/domain"
	telemetry "sensegrid-cloud/internal/telemetry/domain"
)

const timeLayout = time.RFC3339

// PortalHandler serves read-only measurement queries for the portal under
// /portal/{tenant}/devices/{deviceId}/...
// The tenant segment is the tenant slug.
type PortalHandler struct {
	tenants registry.TenantRepository
	devices registry.DeviceRepository
	series  telemetry.SeriesQuery
}

// NewPortalHandler constructs a PortalHandler.
func NewPortalHandler(tenants registry.TenantRepository, devices registry.DeviceRepository, series telemetry.SeriesQuery) (*PortalHandler, error) {
	if tenants == nil || devices == nil {
		return nil, errors.New("portal handler: nil registry")
	}
	if series == nil {
		return nil, errors.New("portal handler: nil series query")
	}
	return &PortalHandler{tenants: tenants, devices: devices, series: series}, nil
}

// ServeHTTP routes portal requests.
//
// GET /portal/{tenant}/devices/{deviceId}/series?type=&from=&to=
// GET /portal/{tenant}/devices/{deviceId}/series/all?from=&to=
// GET /portal/{tenant}/devices/{deviceId}/measurements?from=&to=
func (h *PortalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/portal/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) < 4 || parts[1] != "devices" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	slug, deviceID := parts[0], parts[2]

	device, status, err := h.resolveDevice(r, slug, deviceID)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	from, err := parseTimeQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 4 && parts[3] == "series":
		h.handleSeries(w, r, device, from, to)
	case len(parts) == 5 && parts[3] == "series" && parts[4] == "all":
		h.handleSeriesAll(w, r, device, from, to)
	case len(parts) == 4 && parts[3] == "measurements":
		h.handleMeasurements(w, r, device, from, to)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *PortalHandler) resolveDevice(r *http.Request, slug, deviceID string) (*registry.Device, int, error) {
	tenant, err := h.tenants.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, http.StatusNotFound, errors.New("unknown tenant")
		}
		return nil, http.StatusInternalServerError, errors.New("tenant lookup error")
	}
	device, err := h.devices.Get(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, http.StatusNotFound, errors.New("unknown device")
		}
		return nil, http.StatusInternalServerError, errors.New("device lookup error")
	}
	if device.TenantID != tenant.ID {
		return nil, http.StatusNotFound, errors.New("unknown device")
	}
	return device, http.StatusOK, nil
}

func (h *PortalHandler) handleSeries(w http.ResponseWriter, r *http.Request, device *registry.Device, from, to time.Time) {
	metricType := r.URL.Query().Get("type")
	if metricType == "" {
		http.Error(w, "type is required", http.StatusBadRequest)
		return
	}
	points, err := h.series.Range(r.Context(), device.TenantID, device.ID, metricType, from, to)
	if err != nil {
		http.Error(w, "query series error", http.StatusInternalServerError)
		return
	}
	if points == nil {
		points = []telemetry.SeriesPoint{}
	}
	writeJSON(w, points)
}

func (h *PortalHandler) handleSeriesAll(w http.ResponseWriter, r *http.Request, device *registry.Device, from, to time.Time) {
	series, err := h.series.RangeAll(r.Context(), device.TenantID, device.ID, from, to)
	if err != nil {
		http.Error(w, "query series error", http.StatusInternalServerError)
		return
	}
	if series == nil {
		series = map[string][]telemetry.SeriesPoint{}
	}
	writeJSON(w, series)
}

func (h *PortalHandler) handleMeasurements(w http.ResponseWriter, r *http.Request, device *registry.Device, from, to time.Time) {
	measurements, err := h.series.Measurements(r.Context(), device.TenantID, device.ID, from, to)
	if err != nil {
		http.Error(w, "query measurements error", http.StatusInternalServerError)
		return
	}
	if measurements == nil {
		measurements = []telemetry.Measurement{}
	}
	writeJSON(w, measurements)
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}
