package escrow

import (
	"context"
	"fmt"
	"math"

	"paywallet/pkg/logging"
	"paywallet/pkg/models"
)

// CreatePayroll opens a new escrow for the employer in the created state.
// The caller must already be authenticated as employer. Creation is blocked
// while the circuit breaker is active.
func (e *Engine) CreatePayroll(
	ctx context.Context,
	employer string,
	recipients []models.Recipient,
	asset string,
	scheduleType models.ScheduleType,
	releaseTime int64,
	streamRate *int64,
) (int64, error) {
	active, err := e.store.CircuitBreaker(ctx)
	if err != nil {
		return 0, fmt.Errorf("load circuit breaker: %w", err)
	}
	if active {
		return 0, ErrCircuitBreakerActive
	}

	if len(recipients) == 0 {
		return 0, ErrInvalidRecipients
	}

	var total int64
	normalized := make(models.RecipientList, len(recipients))
	for i, r := range recipients {
		if r.Amount < 0 || r.Amount > math.MaxInt64-total {
			return 0, ErrInvalidAmount
		}
		total += r.Amount
		// Paid flags and stream links are owned by the engine, not callers.
		normalized[i] = models.Recipient{Address: r.Address, Amount: r.Amount}
	}
	if total == 0 {
		return 0, ErrInvalidAmount
	}

	id, err := e.store.NextID(ctx, CounterPayrolls)
	if err != nil {
		return 0, fmt.Errorf("allocate payroll id: %w", err)
	}

	payroll := &models.Payroll{
		ID:              id,
		Employer:        employer,
		Recipients:      normalized,
		TotalAmount:     total,
		DepositedAmount: 0,
		Asset:           asset,
		Status:          models.PayrollCreated,
		ScheduleType:    scheduleType,
		ReleaseTime:     releaseTime,
		CreatedAt:       e.clock(),
		StreamRate:      streamRate,
	}
	if err := e.store.PutPayroll(ctx, payroll); err != nil {
		return 0, fmt.Errorf("store payroll: %w", err)
	}

	e.emit(ctx, EventPayrollCreated, map[string]interface{}{
		"payroll_id":   id,
		"employer":     employer,
		"total_amount": total,
	})
	e.log.WithFields(logging.Fields{
		"payroll_id":   id,
		"employer":     employer,
		"total_amount": total,
		"recipients":   len(normalized),
	}).Info("Payroll created")

	return id, nil
}

// Deposit adds funds to the escrow. Only the employer may fund. Partial
// deposits below the remaining balance accumulate; a deposit exceeding the
// remainder is rejected whole, leaving the payroll unchanged.
func (e *Engine) Deposit(ctx context.Context, payrollID int64, from string, amount int64) error {
	e.locks.lock("payroll", payrollID)
	defer e.locks.unlock("payroll", payrollID)

	payroll, err := e.store.GetPayroll(ctx, payrollID)
	if err != nil {
		return err
	}

	if from != payroll.Employer {
		return ErrNotAuthorized
	}
	if payroll.DepositedAmount >= payroll.TotalAmount {
		return ErrPayrollAlreadyFunded
	}
	if amount < 0 || amount > payroll.Remaining() {
		return ErrInvalidAmount
	}

	payroll.DepositedAmount += amount
	if payroll.DepositedAmount >= payroll.TotalAmount {
		payroll.Status = models.PayrollFunded
	}

	if err := e.store.PutPayroll(ctx, payroll); err != nil {
		return fmt.Errorf("store payroll: %w", err)
	}

	e.emit(ctx, EventPayrollDeposited, map[string]interface{}{
		"payroll_id":       payrollID,
		"from":             from,
		"amount":           amount,
		"deposited_amount": payroll.DepositedAmount,
	})
	return nil
}

// Release pays every unpaid recipient and completes the payroll. Only valid
// from the funded state; scheduled payrolls additionally require the
// release time to have passed. The releasing status is written durably
// before any recipient is processed, so a transfer failure leaves the
// payroll in releasing with the recipients paid so far marked.
func (e *Engine) Release(ctx context.Context, payrollID int64, caller string) error {
	e.locks.lock("payroll", payrollID)
	defer e.locks.unlock("payroll", payrollID)

	payroll, err := e.store.GetPayroll(ctx, payrollID)
	if err != nil {
		return err
	}

	if caller != payroll.Employer {
		return ErrNotAuthorized
	}
	if payroll.Status != models.PayrollFunded {
		return ErrPayrollNotFunded
	}
	if payroll.ScheduleType == models.ScheduleScheduled && e.clock() < payroll.ReleaseTime {
		return ErrTooEarly
	}

	payroll.Status = models.PayrollReleasing
	if err := e.store.PutPayroll(ctx, payroll); err != nil {
		return fmt.Errorf("store payroll: %w", err)
	}

	for i := range payroll.Recipients {
		r := &payroll.Recipients[i]
		if r.Paid {
			continue
		}
		if err := e.exec.Transfer(ctx, payrollID, r.Address, r.Amount, payroll.Asset); err != nil {
			if storeErr := e.store.PutPayroll(ctx, payroll); storeErr != nil {
				e.log.WithError(storeErr).WithField("payroll_id", payrollID).
					Error("Failed to persist partial release state")
			}
			return fmt.Errorf("transfer to %s: %w", r.Address, err)
		}
		r.Paid = true
		e.emit(ctx, EventPaymentReleased, map[string]interface{}{
			"payroll_id": payrollID,
			"recipient":  r.Address,
			"amount":     r.Amount,
		})
	}

	payroll.Status = models.PayrollCompleted
	if err := e.store.PutPayroll(ctx, payroll); err != nil {
		return fmt.Errorf("store payroll: %w", err)
	}

	e.emit(ctx, EventPayrollCompleted, map[string]interface{}{
		"payroll_id":   payrollID,
		"total_amount": payroll.TotalAmount,
	})
	e.log.WithFields(logging.Fields{
		"payroll_id": payrollID,
		"recipients": len(payroll.Recipients),
	}).Info("Payroll released")

	return nil
}

// Cancel forces a payroll into the cancelled state. Valid from any state
// except completed, including mid-release; recipients already paid are not
// rolled back. No refund is issued here; the event carries the deposited
// amount at cancellation time for external reconciliation.
func (e *Engine) Cancel(ctx context.Context, payrollID int64, caller string) error {
	e.locks.lock("payroll", payrollID)
	defer e.locks.unlock("payroll", payrollID)

	payroll, err := e.store.GetPayroll(ctx, payrollID)
	if err != nil {
		return err
	}

	if caller != payroll.Employer {
		return ErrNotAuthorized
	}
	if payroll.Status == models.PayrollCompleted {
		return ErrPayrollCompleted
	}

	payroll.Status = models.PayrollCancelled
	if err := e.store.PutPayroll(ctx, payroll); err != nil {
		return fmt.Errorf("store payroll: %w", err)
	}

	e.emit(ctx, EventPayrollCancelled, map[string]interface{}{
		"payroll_id":       payrollID,
		"employer":         caller,
		"deposited_amount": payroll.DepositedAmount,
	})
	return nil
}

// GetPayroll returns the payroll by id.
func (e *Engine) GetPayroll(ctx context.Context, payrollID int64) (*models.Payroll, error) {
	return e.store.GetPayroll(ctx, payrollID)
}
