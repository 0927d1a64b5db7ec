package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PayrollStatus is the lifecycle state of a payroll escrow.
type PayrollStatus string

const (
	PayrollCreated   PayrollStatus = "created"
	PayrollFunded    PayrollStatus = "funded"
	PayrollReleasing PayrollStatus = "releasing"
	PayrollCompleted PayrollStatus = "completed"
	PayrollCancelled PayrollStatus = "cancelled"
	// PayrollPaused is a declared state no operation currently reaches.
	// Kept as a valid variant so stored rows using it remain readable.
	PayrollPaused PayrollStatus = "paused"
)

// Valid reports whether s is a known payroll status.
func (s PayrollStatus) Valid() bool {
	switch s {
	case PayrollCreated, PayrollFunded, PayrollReleasing,
		PayrollCompleted, PayrollCancelled, PayrollPaused:
		return true
	}
	return false
}

// ScheduleType controls when a payroll's funds become releasable.
type ScheduleType string

const (
	ScheduleImmediate ScheduleType = "immediate"
	ScheduleScheduled ScheduleType = "scheduled"
	ScheduleRecurring ScheduleType = "recurring"
	ScheduleStreaming ScheduleType = "streaming"
)

// Valid reports whether s is a known schedule type.
func (s ScheduleType) Valid() bool {
	switch s {
	case ScheduleImmediate, ScheduleScheduled, ScheduleRecurring, ScheduleStreaming:
		return true
	}
	return false
}

// Recipient is a single payee inside a payroll escrow. Amounts are token
// base units.
type Recipient struct {
	Address  string `json:"address"`
	Amount   int64  `json:"amount"`
	Paid     bool   `json:"paid"`
	StreamID *int64 `json:"stream_id,omitempty"`
}

// RecipientList is stored as a JSONB column; order is preserved because
// payment events are emitted in recipient order.
type RecipientList []Recipient

// Value implements the driver.Valuer interface for RecipientList
func (r RecipientList) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan implements the sql.Scanner interface for RecipientList
func (r *RecipientList) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into RecipientList", value)
	}

	return json.Unmarshal(bytes, r)
}

// Payroll is the root escrow entity. TotalAmount is fixed at creation;
// DepositedAmount only grows and never exceeds it.
type Payroll struct {
	ID              int64         `json:"id" db:"id"`
	Employer        string        `json:"employer" db:"employer"`
	Recipients      RecipientList `json:"recipients" db:"recipients"`
	TotalAmount     int64         `json:"total_amount" db:"total_amount"`
	DepositedAmount int64         `json:"deposited_amount" db:"deposited_amount"`
	Asset           string        `json:"asset" db:"asset"`
	Status          PayrollStatus `json:"status" db:"status"`
	ScheduleType    ScheduleType  `json:"schedule_type" db:"schedule_type"`
	ReleaseTime     int64         `json:"release_time" db:"release_time"`
	CreatedAt       int64         `json:"created_at" db:"created_at"`
	StreamRate      *int64        `json:"stream_rate,omitempty" db:"stream_rate"`
}

// Remaining returns the unfunded balance of the escrow.
func (p *Payroll) Remaining() int64 {
	if p.DepositedAmount >= p.TotalAmount {
		return 0
	}
	return p.TotalAmount - p.DepositedAmount
}

// Stream is a continuously accruing payment from one wallet to another.
// Active goes false exactly once, on full withdrawal.
type Stream struct {
	ID             int64  `json:"id" db:"id"`
	From           string `json:"from" db:"from_addr"`
	To             string `json:"to" db:"to_addr"`
	RatePerSec     int64  `json:"rate_per_sec" db:"rate_per_sec"`
	StartTime      int64  `json:"start_time" db:"start_time"`
	EndTime        int64  `json:"end_time" db:"end_time"`
	LastWithdrawal int64  `json:"last_withdrawal" db:"last_withdrawal"`
	TotalDeposited int64  `json:"total_deposited" db:"total_deposited"`
	TotalWithdrawn int64  `json:"total_withdrawn" db:"total_withdrawn"`
	Active         bool   `json:"active" db:"active"`
}

// RemainingCap returns the amount still withdrawable before the deposit is
// exhausted.
func (s *Stream) RemainingCap() int64 {
	if s.TotalWithdrawn >= s.TotalDeposited {
		return 0
	}
	return s.TotalDeposited - s.TotalWithdrawn
}
