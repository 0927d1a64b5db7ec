// Package events adapts the escrow audit stream onto the Kafka producer.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"paywallet/internal/escrow"
	"paywallet/pkg/kafka"
	"paywallet/pkg/logging"
)

// KafkaSink publishes escrow events to the payroll_events topic. Publish
// failures are logged and dropped; the escrow operation has already
// committed by the time the event is emitted.
type KafkaSink struct {
	producer *kafka.Producer
	logger   logging.Logger
}

// NewKafkaSink creates a sink over an existing producer.
func NewKafkaSink(producer *kafka.Producer, logger logging.Logger) *KafkaSink {
	return &KafkaSink{producer: producer, logger: logger}
}

// Emit implements escrow.Sink.
func (s *KafkaSink) Emit(ctx context.Context, event escrow.Event) {
	payrollEvent := &kafka.PayrollEvent{
		EventID:       uuid.New().String(),
		EventType:     event.Name,
		Timestamp:     time.Unix(event.Timestamp, 0).UTC(),
		Source:        "paymaster",
		Data:          event.Data,
		SchemaVersion: "1.0",
	}

	if err := s.producer.PublishPayrollEvent(payrollEvent); err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{
			"event_type": event.Name,
		}).Error("Failed to publish payroll event")
	}
}

// LogSink writes escrow events to the structured log. Used when no Kafka
// brokers are configured.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink creates a sink that logs events.
func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit implements escrow.Sink.
func (s *LogSink) Emit(_ context.Context, event escrow.Event) {
	s.logger.WithFields(logging.Fields{
		"event_type": event.Name,
		"timestamp":  event.Timestamp,
		"data":       event.Data,
	}).Info("Payroll event")
}
