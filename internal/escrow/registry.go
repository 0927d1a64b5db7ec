package escrow

import (
	"context"
	"fmt"

	"paywallet/pkg/logging"
	"paywallet/pkg/models"
)

// NewEmployee carries the caller-supplied fields for AddEmployee.
type NewEmployee struct {
	Wallet          string
	Name            string
	Email           string
	Position        string
	Salary          int64
	Currency        string
	PaymentSchedule string
}

// EmployeeUpdate is a partial update; nil fields are left unchanged.
type EmployeeUpdate struct {
	Position        *string
	Salary          *int64
	PaymentSchedule *string
	Status          *models.EmployeeStatus
}

// AddEmployee appends a new active roster entry for the employer. Like
// payroll creation, adding is blocked while the circuit breaker is active;
// updates and termination are not.
func (e *Engine) AddEmployee(ctx context.Context, employer string, emp NewEmployee) (int64, error) {
	active, err := e.store.CircuitBreaker(ctx)
	if err != nil {
		return 0, fmt.Errorf("load circuit breaker: %w", err)
	}
	if active {
		return 0, ErrCircuitBreakerActive
	}
	if emp.Salary < 0 {
		return 0, ErrInvalidAmount
	}

	id, err := e.store.NextID(ctx, CounterEmployees)
	if err != nil {
		return 0, fmt.Errorf("allocate employee id: %w", err)
	}

	now := e.clock()
	record := &models.Employee{
		ID:              id,
		Employer:        employer,
		Wallet:          emp.Wallet,
		Name:            emp.Name,
		Email:           emp.Email,
		Position:        emp.Position,
		Salary:          emp.Salary,
		Currency:        emp.Currency,
		PaymentSchedule: emp.PaymentSchedule,
		Status:          models.EmployeeActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.store.PutEmployee(ctx, record); err != nil {
		return 0, fmt.Errorf("store employee: %w", err)
	}
	if err := e.store.AppendEmployerEmployee(ctx, employer, id); err != nil {
		return 0, fmt.Errorf("append employer roster: %w", err)
	}

	e.emit(ctx, EventEmployeeAdded, map[string]interface{}{
		"employee_id": id,
		"employer":    employer,
		"wallet":      emp.Wallet,
	})
	e.log.WithFields(logging.Fields{
		"employee_id": id,
		"employer":    employer,
	}).Info("Employee added")

	return id, nil
}

// GetEmployee returns the roster entry by id.
func (e *Engine) GetEmployee(ctx context.Context, employeeID int64) (*models.Employee, error) {
	return e.store.GetEmployee(ctx, employeeID)
}

// EmployerEmployees returns every roster entry ever added by the employer,
// in insertion order, regardless of status.
func (e *Engine) EmployerEmployees(ctx context.Context, employer string) ([]models.Employee, error) {
	ids, err := e.store.EmployerEmployeeIDs(ctx, employer)
	if err != nil {
		return nil, fmt.Errorf("load employer roster: %w", err)
	}

	employees := make([]models.Employee, 0, len(ids))
	for _, id := range ids {
		emp, err := e.store.GetEmployee(ctx, id)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *emp)
	}
	return employees, nil
}

// UpdateEmployee applies a partial update. Only the owning employer may
// update its entries.
func (e *Engine) UpdateEmployee(ctx context.Context, employeeID int64, caller string, update EmployeeUpdate) error {
	e.locks.lock("employee", employeeID)
	defer e.locks.unlock("employee", employeeID)

	emp, err := e.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	if emp.Employer != caller {
		return ErrNotAuthorized
	}

	if update.Position != nil {
		emp.Position = *update.Position
	}
	if update.Salary != nil {
		if *update.Salary < 0 {
			return ErrInvalidAmount
		}
		emp.Salary = *update.Salary
	}
	if update.PaymentSchedule != nil {
		emp.PaymentSchedule = *update.PaymentSchedule
	}
	if update.Status != nil {
		emp.Status = *update.Status
	}
	emp.UpdatedAt = e.clock()

	if err := e.store.PutEmployee(ctx, emp); err != nil {
		return fmt.Errorf("store employee: %w", err)
	}

	e.emit(ctx, EventEmployeeUpdated, map[string]interface{}{
		"employee_id": employeeID,
		"employer":    caller,
	})
	return nil
}

// RemoveEmployee terminates a roster entry. Nothing is deleted: the entry
// keeps its id and slot in the employer's list with status terminated.
func (e *Engine) RemoveEmployee(ctx context.Context, employeeID int64, caller string) error {
	e.locks.lock("employee", employeeID)
	defer e.locks.unlock("employee", employeeID)

	emp, err := e.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	if emp.Employer != caller {
		return ErrNotAuthorized
	}

	emp.Status = models.EmployeeTerminated
	emp.UpdatedAt = e.clock()
	if err := e.store.PutEmployee(ctx, emp); err != nil {
		return fmt.Errorf("store employee: %w", err)
	}

	e.emit(ctx, EventEmployeeRemoved, map[string]interface{}{
		"employee_id": employeeID,
		"employer":    caller,
	})
	return nil
}

// CountActiveEmployees tallies the employer's active entries. Cost is
// linear in every employee ever added by the employer, not the active
// count, because the roster list is append-only.
func (e *Engine) CountActiveEmployees(ctx context.Context, employer string) (int, error) {
	ids, err := e.store.EmployerEmployeeIDs(ctx, employer)
	if err != nil {
		return 0, fmt.Errorf("load employer roster: %w", err)
	}

	count := 0
	for _, id := range ids {
		emp, err := e.store.GetEmployee(ctx, id)
		if err != nil {
			return 0, err
		}
		if emp.Status == models.EmployeeActive {
			count++
		}
	}
	return count, nil
}
