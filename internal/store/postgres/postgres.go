// Package postgres backs the escrow store with PostgreSQL. Each entity maps
// to one row in the paymaster schema; recipients ride along as JSONB.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"paywallet/internal/escrow"
	"paywallet/pkg/models"
)

//go:embed schema.sql
var schemaSQL string

// Store implements escrow.Store on top of a PostgreSQL connection.
type Store struct {
	db *sql.DB
}

// New creates a Store over an existing connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate applies the schema. Statements are idempotent, so running it on
// every startup is safe.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *Store) GetPayroll(ctx context.Context, id int64) (*models.Payroll, error) {
	var p models.Payroll
	err := s.db.QueryRowContext(ctx, `
		SELECT id, employer, recipients, total_amount, deposited_amount,
		       asset, status, schedule_type, release_time, created_at, stream_rate
		FROM paymaster.payrolls
		WHERE id = $1`, id).Scan(
		&p.ID, &p.Employer, &p.Recipients, &p.TotalAmount, &p.DepositedAmount,
		&p.Asset, &p.Status, &p.ScheduleType, &p.ReleaseTime, &p.CreatedAt, &p.StreamRate,
	)
	if err == sql.ErrNoRows {
		return nil, escrow.ErrPayrollNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payroll %d: %w", id, err)
	}
	return &p, nil
}

func (s *Store) PutPayroll(ctx context.Context, p *models.Payroll) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO paymaster.payrolls (
			id, employer, recipients, total_amount, deposited_amount,
			asset, status, schedule_type, release_time, created_at, stream_rate
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			recipients       = EXCLUDED.recipients,
			deposited_amount = EXCLUDED.deposited_amount,
			status           = EXCLUDED.status,
			release_time     = EXCLUDED.release_time,
			stream_rate      = EXCLUDED.stream_rate`,
		p.ID, p.Employer, p.Recipients, p.TotalAmount, p.DepositedAmount,
		p.Asset, p.Status, p.ScheduleType, p.ReleaseTime, p.CreatedAt, p.StreamRate,
	)
	if err != nil {
		return fmt.Errorf("failed to put payroll %d: %w", p.ID, err)
	}
	return nil
}

func (s *Store) GetStream(ctx context.Context, id int64) (*models.Stream, error) {
	var st models.Stream
	err := s.db.QueryRowContext(ctx, `
		SELECT id, from_addr, to_addr, rate_per_sec, start_time, end_time,
		       last_withdrawal, total_deposited, total_withdrawn, active
		FROM paymaster.streams
		WHERE id = $1`, id).Scan(
		&st.ID, &st.From, &st.To, &st.RatePerSec, &st.StartTime, &st.EndTime,
		&st.LastWithdrawal, &st.TotalDeposited, &st.TotalWithdrawn, &st.Active,
	)
	if err == sql.ErrNoRows {
		return nil, escrow.ErrStreamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stream %d: %w", id, err)
	}
	return &st, nil
}

func (s *Store) PutStream(ctx context.Context, st *models.Stream) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO paymaster.streams (
			id, from_addr, to_addr, rate_per_sec, start_time, end_time,
			last_withdrawal, total_deposited, total_withdrawn, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			last_withdrawal = EXCLUDED.last_withdrawal,
			total_withdrawn = EXCLUDED.total_withdrawn,
			active          = EXCLUDED.active`,
		st.ID, st.From, st.To, st.RatePerSec, st.StartTime, st.EndTime,
		st.LastWithdrawal, st.TotalDeposited, st.TotalWithdrawn, st.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to put stream %d: %w", st.ID, err)
	}
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, id int64) (*models.Employee, error) {
	var e models.Employee
	err := s.db.QueryRowContext(ctx, `
		SELECT id, employer, wallet, name, email, position, salary,
		       currency, payment_schedule, status, created_at, updated_at
		FROM paymaster.employees
		WHERE id = $1`, id).Scan(
		&e.ID, &e.Employer, &e.Wallet, &e.Name, &e.Email, &e.Position, &e.Salary,
		&e.Currency, &e.PaymentSchedule, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, escrow.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee %d: %w", id, err)
	}
	return &e, nil
}

func (s *Store) PutEmployee(ctx context.Context, e *models.Employee) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO paymaster.employees (
			id, employer, wallet, name, email, position, salary,
			currency, payment_schedule, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			wallet           = EXCLUDED.wallet,
			name             = EXCLUDED.name,
			email            = EXCLUDED.email,
			position         = EXCLUDED.position,
			salary           = EXCLUDED.salary,
			currency         = EXCLUDED.currency,
			payment_schedule = EXCLUDED.payment_schedule,
			status           = EXCLUDED.status,
			updated_at       = EXCLUDED.updated_at`,
		e.ID, e.Employer, e.Wallet, e.Name, e.Email, e.Position, e.Salary,
		e.Currency, e.PaymentSchedule, e.Status, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put employee %d: %w", e.ID, err)
	}
	return nil
}

func (s *Store) EmployerEmployeeIDs(ctx context.Context, employer string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id
		FROM paymaster.employer_employees
		WHERE employer = $1
		ORDER BY seq`, employer)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees for %s: %w", employer, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan employee id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) AppendEmployerEmployee(ctx context.Context, employer string, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO paymaster.employer_employees (employer, employee_id)
		VALUES ($1, $2)
		ON CONFLICT (employer, employee_id) DO NOTHING`, employer, id)
	if err != nil {
		return fmt.Errorf("failed to append employee %d for %s: %w", id, employer, err)
	}
	return nil
}

// NextID allocates ids with a single upsert so concurrent callers never
// observe the same value.
func (s *Store) NextID(ctx context.Context, namespace string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO paymaster.counters (namespace, value)
		VALUES ($1, 1)
		ON CONFLICT (namespace) DO UPDATE SET value = paymaster.counters.value + 1
		RETURNING value`, namespace).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate id in %s: %w", namespace, err)
	}
	return id, nil
}

func (s *Store) CircuitBreaker(ctx context.Context) (bool, error) {
	var active bool
	err := s.db.QueryRowContext(ctx,
		`SELECT circuit_breaker FROM paymaster.config WHERE id = 1`).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("failed to read circuit breaker: %w", err)
	}
	return active, nil
}

func (s *Store) SetCircuitBreaker(ctx context.Context, active bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE paymaster.config SET circuit_breaker = $1 WHERE id = 1`, active)
	if err != nil {
		return fmt.Errorf("failed to set circuit breaker: %w", err)
	}
	return nil
}

func (s *Store) Admin(ctx context.Context) (string, error) {
	var admin string
	err := s.db.QueryRowContext(ctx,
		`SELECT admin_wallet FROM paymaster.config WHERE id = 1`).Scan(&admin)
	if err != nil {
		return "", fmt.Errorf("failed to read admin: %w", err)
	}
	return admin, nil
}

func (s *Store) SetAdmin(ctx context.Context, admin string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE paymaster.config SET admin_wallet = $1 WHERE id = 1`, admin)
	if err != nil {
		return fmt.Errorf("failed to set admin: %w", err)
	}
	return nil
}
