package escrow

import "errors"

// Typed failures returned by the escrow, stream, and registry engines.
// Every failure is synchronous and non-retryable; no operation performs a
// partial write on failure.
var (
	ErrNotAuthorized        = errors.New("caller not authorized")
	ErrPayrollNotFound      = errors.New("payroll not found")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrPayrollAlreadyFunded = errors.New("payroll already fully funded")
	ErrPayrollNotFunded     = errors.New("payroll not funded")
	ErrInvalidRecipients    = errors.New("recipient list is empty or invalid")
	ErrPayrollCompleted     = errors.New("payroll already completed")
	ErrCircuitBreakerActive = errors.New("circuit breaker is active")
	ErrStreamNotFound       = errors.New("stream not found")
	ErrStreamInactive       = errors.New("stream is inactive")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrTooEarly             = errors.New("release time not reached")
	ErrEmployeeNotFound     = errors.New("employee not found")
	ErrAlreadyInitialized   = errors.New("admin already initialized")
)
