package telemetry

import (
	"context"
	"errors"
	"time"
)

// Measurement is one sensor reading written to storage.
type Measurement struct {
	Time     time.Time `json:"time"`
	TenantID string    `json:"tenant_id"`
	DeviceID string    `json:"device_id"`
	Type     string    `json:"type"`
	Value    float64   `json:"value"`
	Unit     string    `json:"unit,omitempty"`
}

// Validate checks measurement invariants before a write.
func (m Measurement) Validate() error {
	if m.TenantID == "" {
		return errors.New("measurement: empty tenant id")
	}
	if m.DeviceID == "" {
		return errors.New("measurement: empty device id")
	}
	if m.Type == "" {
		return errors.New("measurement: empty type")
	}
	if m.Time.IsZero() {
		return errors.New("measurement: zero time")
	}
	return nil
}

// SeriesPoint is one (time, value) pair of a series query.
type SeriesPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// MeasurementRepository persists measurements.
type MeasurementRepository interface {
	InsertMeasurements(ctx context.Context, measurements []Measurement) error
}

// SeriesQuery loads ordered measurement series for the portal.
type SeriesQuery interface {
	Range(ctx context.Context, tenantID, deviceID, metricType string, from, to time.Time) ([]SeriesPoint, error)
	RangeAll(ctx context.Context, tenantID, deviceID string, from, to time.Time) (map[string][]SeriesPoint, error)
	Measurements(ctx context.Context, tenantID, deviceID string, from, to time.Time) ([]Measurement, error)
}
