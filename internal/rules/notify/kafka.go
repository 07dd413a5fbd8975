package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"sensegrid-cloud/internal/observability/metrics"
	rules "sensegrid-cloud/internal/rules/domain"
)

// KafkaPublisher writes raised alerts to a Kafka topic so downstream
// consumers can react without polling the alert store.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher constructs a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka publisher: no brokers")
	}
	if topic == "" {
		return nil, errors.New("kafka publisher: empty topic")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return &KafkaPublisher{writer: writer}, nil
}

// Publish writes the alert keyed by device so per-device ordering holds.
func (p *KafkaPublisher) Publish(ctx context.Context, alert rules.Alert) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka publisher: not initialized")
	}
	value, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(alert.TenantID + "/" + alert.DeviceID),
		Value: value,
		Time:  alert.Time,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.IncPublish("kafka", metrics.ResultError)
		return err
	}
	metrics.IncPublish("kafka", metrics.ResultSuccess)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
