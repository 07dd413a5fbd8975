package notify

import (
	"context"
	"errors"

	rules "sensegrid-cloud/internal/rules/domain"
)

// MultiPublisher fans an alert out to every configured channel. All
// channels are attempted even when one fails.
type MultiPublisher struct {
	channels []rules.AlertPublisher
}

// NewMultiPublisher combines the given channels. Nil entries are dropped.
func NewMultiPublisher(channels ...rules.AlertPublisher) *MultiPublisher {
	kept := make([]rules.AlertPublisher, 0, len(channels))
	for _, ch := range channels {
		if ch != nil {
			kept = append(kept, ch)
		}
	}
	return &MultiPublisher{channels: kept}
}

// Publish delivers the alert to every channel and joins their errors.
func (m *MultiPublisher) Publish(ctx context.Context, alert rules.Alert) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, ch := range m.channels {
		if err := ch.Publish(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
