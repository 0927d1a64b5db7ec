package kafka

import (
	"time"
)

// TopicPayrollEvents is the topic carrying the payroll audit trail
const TopicPayrollEvents = "payroll_events"

// PayrollEvent represents a single payroll audit event
type PayrollEvent struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	Timestamp     time.Time              `json:"timestamp"`
	Source        string                 `json:"source"`
	Data          map[string]interface{} `json:"data,omitempty"`
	SchemaVersion string                 `json:"schema_version"`
}
