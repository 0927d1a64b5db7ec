package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer publishes payroll events to Kafka
type Producer struct {
	client *kgo.Client
	logger *logrus.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, clientID string, logger *logrus.Logger) (*Producer, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProducerLinger(10 * time.Millisecond),
		kgo.ProducerBatchMaxBytes(1000000),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &Producer{
		client: client,
		logger: logger,
	}, nil
}

func (p *Producer) Close() error {
	p.client.Close()
	return nil
}

// ProduceMessage publishes a raw message to the given topic
func (p *Producer) ProduceMessage(topic string, key []byte, value []byte, headers map[string]string) error {
	record := &kgo.Record{
		Topic: topic,
		Key:   key,
		Value: value,
	}

	// Add headers if any
	if len(headers) > 0 {
		for k, v := range headers {
			record.Headers = append(record.Headers, kgo.RecordHeader{
				Key:   k,
				Value: []byte(v),
			})
		}
	}

	// Produce with context for timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := p.client.ProduceSync(ctx, record)
	if err := result.FirstErr(); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	return nil
}

func (p *Producer) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("kafka health check failed: %w", err)
	}
	return nil
}

// GetClient returns the underlying kgo.Client for health checks
func (p *Producer) GetClient() *kgo.Client {
	return p.client
}

// PublishPayrollEvent publishes a single typed PayrollEvent
func (p *Producer) PublishPayrollEvent(event *PayrollEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	// Marshal event to JSON
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Create headers
	headers := map[string]string{
		"source":     event.Source,
		"event_type": event.EventType,
	}

	// Publish to Kafka
	return p.ProduceMessage(TopicPayrollEvents, []byte(event.EventID), value, headers)
}
