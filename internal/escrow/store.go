package escrow

import (
	"context"

	"paywallet/pkg/models"
)

// Counter namespaces. Each allocates ids independently, starting at 1.
const (
	CounterPayrolls  = "payrolls"
	CounterStreams   = "streams"
	CounterEmployees = "employees"
)

// Store is the durable substrate the engines read and write. Implementations
// must return ErrPayrollNotFound, ErrStreamNotFound, or ErrEmployeeNotFound
// for missing entities; any other error is treated as a storage failure.
//
// The engines serialize operations per entity id, so a Store only needs
// single-key atomicity: each Get/Put must be individually consistent, and
// NextID must never hand out the same id twice.
type Store interface {
	GetPayroll(ctx context.Context, id int64) (*models.Payroll, error)
	PutPayroll(ctx context.Context, p *models.Payroll) error

	GetStream(ctx context.Context, id int64) (*models.Stream, error)
	PutStream(ctx context.Context, s *models.Stream) error

	GetEmployee(ctx context.Context, id int64) (*models.Employee, error)
	PutEmployee(ctx context.Context, e *models.Employee) error

	// EmployerEmployeeIDs returns the append-only, insertion-ordered list
	// of employee ids ever added by the employer. Termination never removes
	// an id from this list.
	EmployerEmployeeIDs(ctx context.Context, employer string) ([]int64, error)
	AppendEmployerEmployee(ctx context.Context, employer string, id int64) error

	// NextID atomically increments and returns the counter for the given
	// namespace. The first allocated id is 1.
	NextID(ctx context.Context, namespace string) (int64, error)

	CircuitBreaker(ctx context.Context) (bool, error)
	SetCircuitBreaker(ctx context.Context, active bool) error

	// Admin returns the stored admin identity, or "" when unset.
	Admin(ctx context.Context) (string, error)
	SetAdmin(ctx context.Context, admin string) error
}
