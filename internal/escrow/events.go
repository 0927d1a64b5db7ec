package escrow

import "context"

// Event names. Exactly one event is emitted per state-changing operation,
// except release, which also emits one payment_released per recipient.
const (
	EventPayrollCreated        = "payroll_created"
	EventPayrollDeposited      = "payroll_deposited"
	EventPaymentReleased       = "payment_released"
	EventPayrollCompleted      = "payroll_completed"
	EventPayrollCancelled      = "payroll_cancelled"
	EventStreamStarted         = "stream_started"
	EventStreamWithdrawn       = "stream_withdrawn"
	EventEmployeeAdded         = "employee_added"
	EventEmployeeUpdated       = "employee_updated"
	EventEmployeeRemoved       = "employee_removed"
	EventCircuitBreakerToggled = "circuit_breaker_toggled"
)

// Event is the audit payload produced by a state-changing operation. Events
// are for external audit and indexing only; the engines never read them
// back.
type Event struct {
	Name      string                 `json:"name"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Sink receives audit events. Delivery is fire-and-forget: a Sink must not
// block the calling operation and its failures are its own to log.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NopSink drops all events.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(context.Context, Event) {}
