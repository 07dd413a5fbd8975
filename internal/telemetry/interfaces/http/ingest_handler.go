package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sensegrid-cloud/internal/observability/metrics"
	registry "sensegrid-cloud/internal/registry/domain"
	telemetry "sensegrid-cloud/internal/telemetry/domain"
)

// IngestHandler accepts measurement batches on /ingest/http/{tenant}.
// The path segment is the tenant slug and deviceId in the payload is
// the device serial; both resolve to registry ids before the write.
type IngestHandler struct {
	repo    telemetry.MeasurementRepository
	tenants registry.TenantRepository
	devices registry.DeviceRepository
	logger  zerolog.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(
	repo telemetry.MeasurementRepository,
	tenants registry.TenantRepository,
	devices registry.DeviceRepository,
	logger zerolog.Logger,
) (*IngestHandler, error) {
	if repo == nil {
		return nil, errors.New("ingest handler: nil repository")
	}
	if tenants == nil || devices == nil {
		return nil, errors.New("ingest handler: nil registry")
	}
	return &IngestHandler{repo: repo, tenants: tenants, devices: devices, logger: logger}, nil
}

type ingestRequest struct {
	DeviceID  string         `json:"deviceId"`
	APIKey    string         `json:"apiKey"`
	Timestamp int64          `json:"timestamp"`
	Metrics   []ingestMetric `json:"metrics"`
}

type ingestMetric struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// ServeHTTP ingests one measurement batch.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	slug := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ingest/http/"), "/")
	if slug == "" || strings.Contains(slug, "/") {
		metrics.IncIngestError("bad_path")
		http.Error(w, "tenant slug is required", http.StatusBadRequest)
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.IncIngestError("bad_json")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.DeviceID == "" || req.APIKey == "" || len(req.Metrics) == 0 {
		metrics.IncIngestError("bad_payload")
		http.Error(w, "deviceId, apiKey and metrics are required", http.StatusBadRequest)
		return
	}

	tenant, err := h.tenants.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			metrics.IncIngestError("unknown_tenant")
			http.Error(w, "unknown tenant", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("tenant_slug", slug).Msg("ingest tenant lookup failed")
		metrics.IncIngestError("tenant_lookup")
		http.Error(w, "tenant lookup error", http.StatusInternalServerError)
		return
	}

	device, err := h.devices.GetBySerial(r.Context(), tenant.ID, req.DeviceID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			metrics.IncIngestError("unknown_device")
			http.Error(w, "unknown device", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("device_serial", req.DeviceID).Msg("ingest device lookup failed")
		metrics.IncIngestError("device_lookup")
		http.Error(w, "device lookup error", http.StatusInternalServerError)
		return
	}
	if device.Status != registry.StatusActive {
		metrics.IncIngestError("inactive_device")
		http.Error(w, "device is not active", http.StatusForbidden)
		return
	}

	at := time.Now().UTC()
	if req.Timestamp > 0 {
		at = parseTimestamp(req.Timestamp)
	}

	measurements := make([]telemetry.Measurement, 0, len(req.Metrics))
	for _, m := range req.Metrics {
		if m.Type == "" {
			metrics.IncIngestError("bad_metric")
			http.Error(w, "metric type is required", http.StatusBadRequest)
			return
		}
		measurements = append(measurements, telemetry.Measurement{
			Time:     at,
			TenantID: tenant.ID,
			DeviceID: device.ID,
			Type:     m.Type,
			Value:    m.Value,
			Unit:     m.Unit,
		})
	}

	if err := h.repo.InsertMeasurements(r.Context(), measurements); err != nil {
		h.logger.Error().Err(err).
			Str("tenant_id", tenant.ID).
			Str("device_id", device.ID).
			Msg("ingest insert failed")
		metrics.IncIngestError("insert")
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		http.Error(w, "insert error", http.StatusInternalServerError)
		return
	}

	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{"inserted": len(measurements)})
}

// parseTimestamp accepts unix seconds or milliseconds.
func parseTimestamp(value int64) time.Time {
	if value > 1_000_000_000_000 {
		return time.UnixMilli(value).UTC()
	}
	return time.Unix(value, 0).UTC()
}
