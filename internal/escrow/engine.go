package escrow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"paywallet/pkg/logging"
)

// Clock supplies the current ledger time in unix seconds. All time-dependent
// effects (schedule maturity, stream accrual) are computed lazily from it;
// there is no background scheduler.
type Clock func() int64

// SystemClock reads the host wall clock.
func SystemClock() int64 {
	return time.Now().Unix()
}

// TransferExecutor moves real value to a recipient during release. The
// engine calls it exactly once per unpaid recipient, before the recipient
// is marked paid. An error aborts the release with the payroll left in the
// releasing state; recipients already transferred stay marked paid.
type TransferExecutor interface {
	Transfer(ctx context.Context, payrollID int64, recipient string, amount int64, asset string) error
}

// NopTransfer performs no value movement. This matches the reference
// escrow behavior, where release is pure bookkeeping.
type NopTransfer struct{}

// Transfer implements TransferExecutor.
func (NopTransfer) Transfer(context.Context, int64, string, int64, string) error {
	return nil
}

// Config assembles an Engine's collaborators.
type Config struct {
	Store     Store
	Clock     Clock
	Events    Sink
	Transfers TransferExecutor
	Logger    logging.Logger
}

// Engine owns the payroll escrow and stream accrual state machines plus the
// employee registry. Every public operation is an atomic read-modify-write:
// the engine serializes calls per entity id, so two operations on the same
// payroll or stream observe a total order consistent with arrival order.
type Engine struct {
	store Store
	clock Clock
	sink  Sink
	exec  TransferExecutor
	log   logging.Logger

	locks keyedMutex
}

// New creates an Engine. Clock, Events, and Transfers default to the system
// clock, a no-op sink, and no-op transfers when unset.
func New(cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Events == nil {
		cfg.Events = NopSink{}
	}
	if cfg.Transfers == nil {
		cfg.Transfers = NopTransfer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewLogger()
	}
	return &Engine{
		store: cfg.Store,
		clock: cfg.Clock,
		sink:  cfg.Events,
		exec:  cfg.Transfers,
		log:   cfg.Logger,
	}
}

// Initialize stores the admin identity. It may be called once; a second
// call with the same admin is a no-op and any other admin fails
// ErrAlreadyInitialized.
func (e *Engine) Initialize(ctx context.Context, admin string) error {
	e.locks.lock("config", 0)
	defer e.locks.unlock("config", 0)

	current, err := e.store.Admin(ctx)
	if err != nil {
		return fmt.Errorf("load admin: %w", err)
	}
	if current != "" {
		if current == admin {
			return nil
		}
		return ErrAlreadyInitialized
	}
	if err := e.store.SetAdmin(ctx, admin); err != nil {
		return fmt.Errorf("store admin: %w", err)
	}
	return nil
}

// ToggleCircuitBreaker flips the global breaker. Only the stored admin
// identity may toggle it. Returns the new state.
func (e *Engine) ToggleCircuitBreaker(ctx context.Context, caller string) (bool, error) {
	e.locks.lock("config", 0)
	defer e.locks.unlock("config", 0)

	admin, err := e.store.Admin(ctx)
	if err != nil {
		return false, fmt.Errorf("load admin: %w", err)
	}
	if admin == "" || caller != admin {
		return false, ErrNotAuthorized
	}

	active, err := e.store.CircuitBreaker(ctx)
	if err != nil {
		return false, fmt.Errorf("load circuit breaker: %w", err)
	}
	newState := !active
	if err := e.store.SetCircuitBreaker(ctx, newState); err != nil {
		return false, fmt.Errorf("store circuit breaker: %w", err)
	}

	e.emit(ctx, EventCircuitBreakerToggled, map[string]interface{}{
		"admin":  caller,
		"active": newState,
	})
	return newState, nil
}

// CircuitBreakerActive reports the current breaker state.
func (e *Engine) CircuitBreakerActive(ctx context.Context) (bool, error) {
	return e.store.CircuitBreaker(ctx)
}

func (e *Engine) emit(ctx context.Context, name string, data map[string]interface{}) {
	e.sink.Emit(ctx, Event{
		Name:      name,
		Timestamp: e.clock(),
		Data:      data,
	})
}

// keyedMutex serializes operations per entity. The store only needs
// single-key atomicity because every read-modify-write on an entity runs
// under its key's lock.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (k *keyedMutex) lock(kind string, id int64) {
	key := fmt.Sprintf("%s/%d", kind, id)
	k.mu.Lock()
	if k.m == nil {
		k.m = make(map[string]*sync.Mutex)
	}
	l, ok := k.m[key]
	if !ok {
		l = &sync.Mutex{}
		k.m[key] = l
	}
	k.mu.Unlock()
	l.Lock()
}

func (k *keyedMutex) unlock(kind string, id int64) {
	key := fmt.Sprintf("%s/%d", kind, id)
	k.mu.Lock()
	l := k.m[key]
	k.mu.Unlock()
	l.Unlock()
}
