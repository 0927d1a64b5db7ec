package models

// EmployeeStatus is the employment state of a roster entry. Entries are
// never deleted, only status-flipped.
type EmployeeStatus string

const (
	EmployeeActive     EmployeeStatus = "active"
	EmployeeInactive   EmployeeStatus = "inactive"
	EmployeeTerminated EmployeeStatus = "terminated"
)

// Valid reports whether s is a known employee status.
func (s EmployeeStatus) Valid() bool {
	switch s {
	case EmployeeActive, EmployeeInactive, EmployeeTerminated:
		return true
	}
	return false
}

// Employee is a per-employer roster entry. Salary is token base units;
// PaymentSchedule is a free-form label (weekly, biweekly, monthly, ...).
type Employee struct {
	ID              int64          `json:"id" db:"id"`
	Employer        string         `json:"employer" db:"employer"`
	Wallet          string         `json:"wallet" db:"wallet"`
	Name            string         `json:"name" db:"name"`
	Email           string         `json:"email,omitempty" db:"email"`
	Position        string         `json:"position,omitempty" db:"position"`
	Salary          int64          `json:"salary" db:"salary"`
	Currency        string         `json:"currency" db:"currency"`
	PaymentSchedule string         `json:"payment_schedule" db:"payment_schedule"`
	Status          EmployeeStatus `json:"status" db:"status"`
	CreatedAt       int64          `json:"created_at" db:"created_at"`
	UpdatedAt       int64          `json:"updated_at" db:"updated_at"`
}
