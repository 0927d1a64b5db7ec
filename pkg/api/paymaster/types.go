package paymaster

import (
	"paywallet/pkg/api/common"
	"paywallet/pkg/models"
)

// ErrorResponse is a type alias to the common error response
type ErrorResponse = common.ErrorResponse

// WalletLoginRequest represents a wallet signature login attempt
type WalletLoginRequest struct {
	Address   string `json:"address" binding:"required"`
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// WalletChallengeResponse carries a freshly issued message for the wallet
// to sign
type WalletChallengeResponse struct {
	Message string `json:"message"`
	Nonce   string `json:"nonce"`
}

// WalletLoginResponse carries the session token for an authenticated wallet
type WalletLoginResponse struct {
	Token         string `json:"token"`
	WalletAddress string `json:"wallet_address"`
	ExpiresIn     int64  `json:"expires_in"`
}

// RecipientInput is a payee entry in a payroll creation request
type RecipientInput struct {
	Address string `json:"address" binding:"required"`
	Amount  int64  `json:"amount"`
}

// CreatePayrollRequest represents a request to create a payroll escrow
type CreatePayrollRequest struct {
	Recipients   []RecipientInput `json:"recipients" binding:"required"`
	Asset        string           `json:"asset" binding:"required"`
	ScheduleType string           `json:"schedule_type" binding:"required"`
	ReleaseTime  int64            `json:"release_time"`
	StreamRate   *int64           `json:"stream_rate,omitempty"`
}

// CreatePayrollResponse returns the new payroll's id
type CreatePayrollResponse struct {
	PayrollID int64 `json:"payroll_id"`
}

// DepositRequest represents an escrow deposit
type DepositRequest struct {
	Amount int64 `json:"amount"`
}

// PayrollResponse wraps a payroll entity
type PayrollResponse struct {
	Payroll *models.Payroll `json:"payroll"`
}

// StartStreamRequest represents a request to open a payment stream
type StartStreamRequest struct {
	To          string `json:"to" binding:"required"`
	RatePerSec  int64  `json:"rate_per_sec"`
	Duration    int64  `json:"duration"`
	TotalAmount int64  `json:"total_amount"`
}

// StartStreamResponse returns the new stream's id
type StartStreamResponse struct {
	StreamID int64 `json:"stream_id"`
}

// WithdrawResponse reports the amount paid out by a stream withdrawal
type WithdrawResponse struct {
	Amount int64 `json:"amount"`
}

// StreamResponse wraps a stream entity
type StreamResponse struct {
	Stream *models.Stream `json:"stream"`
}

// AddEmployeeRequest represents a request to add a roster entry
type AddEmployeeRequest struct {
	Wallet          string `json:"wallet" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email"`
	Position        string `json:"position"`
	Salary          int64  `json:"salary"`
	Currency        string `json:"currency"`
	PaymentSchedule string `json:"payment_schedule"`
}

// AddEmployeeResponse returns the new employee's id
type AddEmployeeResponse struct {
	EmployeeID int64 `json:"employee_id"`
}

// UpdateEmployeeRequest represents a partial roster update. Omitted fields
// are left unchanged.
type UpdateEmployeeRequest struct {
	Position        *string `json:"position,omitempty"`
	Salary          *int64  `json:"salary,omitempty"`
	PaymentSchedule *string `json:"payment_schedule,omitempty"`
	Status          *string `json:"status,omitempty"`
}

// EmployeeResponse wraps an employee entity
type EmployeeResponse struct {
	Employee *models.Employee `json:"employee"`
}

// EmployeeListResponse wraps an employer's roster
type EmployeeListResponse struct {
	Employees []*models.Employee `json:"employees"`
	Count     int                `json:"count"`
}

// EmployeeCountResponse reports the number of active employees
type EmployeeCountResponse struct {
	Count int `json:"count"`
}

// CircuitBreakerRequest toggles the admin circuit breaker
type CircuitBreakerRequest struct{}

// CircuitBreakerResponse reports the breaker state after a toggle or query
type CircuitBreakerResponse struct {
	Active bool `json:"active"`
}
