package escrow_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"paywallet/internal/escrow"
	"paywallet/internal/store/memory"
	"paywallet/pkg/models"
)

// fakeClock is a manually advanced unix-seconds clock
type fakeClock struct {
	now int64
}

func (f *fakeClock) read() int64     { return f.now }
func (f *fakeClock) advance(s int64) { f.now += s }

// captureSink records every emitted event in order
type captureSink struct {
	mu     sync.Mutex
	events []escrow.Event
}

func (s *captureSink) Emit(_ context.Context, e escrow.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *captureSink) byName(name string) []escrow.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []escrow.Event
	for _, e := range s.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// failingTransfer fails every transfer after the first n succeed
type failingTransfer struct {
	succeed int
	calls   int
}

func (f *failingTransfer) Transfer(context.Context, int64, string, int64, string) error {
	f.calls++
	if f.calls > f.succeed {
		return fmt.Errorf("ledger unavailable")
	}
	return nil
}

func newTestEngine(t *testing.T) (*escrow.Engine, *fakeClock, *captureSink) {
	t.Helper()
	clock := &fakeClock{now: 1_700_000_000}
	sink := &captureSink{}
	engine := escrow.New(escrow.Config{
		Store:  memory.New(),
		Clock:  clock.read,
		Events: sink,
	})
	return engine, clock, sink
}

func twoRecipients() []models.Recipient {
	return []models.Recipient{
		{Address: "0xalice", Amount: 1000},
		{Address: "0xbob", Amount: 2000},
	}
}

func TestCreatePayrollValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	t.Run("empty recipients", func(t *testing.T) {
		_, err := engine.CreatePayroll(ctx, "0xemployer", nil, "USDC", models.ScheduleImmediate, 0, nil)
		if !errors.Is(err, escrow.ErrInvalidRecipients) {
			t.Fatalf("expected ErrInvalidRecipients, got %v", err)
		}
	})

	t.Run("negative recipient amount", func(t *testing.T) {
		_, err := engine.CreatePayroll(ctx, "0xemployer",
			[]models.Recipient{{Address: "0xalice", Amount: -5}},
			"USDC", models.ScheduleImmediate, 0, nil)
		if !errors.Is(err, escrow.ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("total overflowing int64", func(t *testing.T) {
		// Individually valid amounts whose sum wraps must be rejected, not
		// persisted as a negative total.
		huge := []models.Recipient{
			{Address: "0xalice", Amount: 1 << 62},
			{Address: "0xbob", Amount: 1 << 62},
			{Address: "0xcarol", Amount: 1 << 62},
		}
		_, err := engine.CreatePayroll(ctx, "0xemployer", huge, "USDC", models.ScheduleImmediate, 0, nil)
		if !errors.Is(err, escrow.ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("zero total", func(t *testing.T) {
		_, err := engine.CreatePayroll(ctx, "0xemployer",
			[]models.Recipient{{Address: "0xalice", Amount: 0}},
			"USDC", models.ScheduleImmediate, 0, nil)
		if !errors.Is(err, escrow.ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("total is sum of recipients", func(t *testing.T) {
		id, err := engine.CreatePayroll(ctx, "0xemployer", twoRecipients(), "USDC", models.ScheduleImmediate, 0, nil)
		if err != nil {
			t.Fatalf("CreatePayroll failed: %v", err)
		}
		p, err := engine.GetPayroll(ctx, id)
		if err != nil {
			t.Fatalf("GetPayroll failed: %v", err)
		}
		if p.TotalAmount != 3000 {
			t.Errorf("expected total 3000, got %d", p.TotalAmount)
		}
		if p.Status != models.PayrollCreated {
			t.Errorf("expected created status, got %s", p.Status)
		}
	})

	t.Run("caller paid flags are ignored", func(t *testing.T) {
		id, err := engine.CreatePayroll(ctx, "0xemployer",
			[]models.Recipient{{Address: "0xalice", Amount: 100, Paid: true}},
			"USDC", models.ScheduleImmediate, 0, nil)
		if err != nil {
			t.Fatalf("CreatePayroll failed: %v", err)
		}
		p, _ := engine.GetPayroll(ctx, id)
		if p.Recipients[0].Paid {
			t.Error("paid flag must be reset at creation")
		}
	})
}

func TestPayrollIDsAreSequential(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.CreatePayroll(ctx, "0xemployer", twoRecipients(), "USDC", models.ScheduleImmediate, 0, nil)
	if err != nil {
		t.Fatalf("CreatePayroll failed: %v", err)
	}
	second, err := engine.CreatePayroll(ctx, "0xemployer", twoRecipients(), "USDC", models.ScheduleImmediate, 0, nil)
	if err != nil {
		t.Fatalf("CreatePayroll failed: %v", err)
	}
	if first != 1 || second != 2 {
		t.Errorf("expected ids 1,2 got %d,%d", first, second)
	}
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*escrow.Engine, int64, *captureSink) {
		engine, _, sink := newTestEngine(t)
		id, err := engine.CreatePayroll(ctx, "0xemployer", twoRecipients(), "USDC", models.ScheduleImmediate, 0, nil)
		if err != nil {
			t.Fatalf("CreatePayroll failed: %v", err)
		}
		return engine, id, sink
	}

	t.Run("partial deposits accumulate", func(t *testing.T) {
		engine, id, _ := setup(t)
		if err := engine.Deposit(ctx, id, "0xemployer", 1000); err != nil {
			t.Fatalf("Deposit failed: %v", err)
		}
		if err := engine.Deposit(ctx, id, "0xemployer", 500); err != nil {
			t.Fatalf("Deposit failed: %v", err)
		}
		p, _ := engine.GetPayroll(ctx, id)
		if p.DepositedAmount != 1500 {
			t.Errorf("expected 1500 deposited, got %d", p.DepositedAmount)
		}
		if p.Status != models.PayrollCreated {
			t.Errorf("partial funding must not change status, got %s", p.Status)
		}
	})

	t.Run("full funding flips status", func(t *testing.T) {
		engine, id, _ := setup(t)
		if err := engine.Deposit(ctx, id, "0xemployer", 3000); err != nil {
			t.Fatalf("Deposit failed: %v", err)
		}
		p, _ := engine.GetPayroll(ctx, id)
		if p.Status != models.PayrollFunded {
			t.Errorf("expected funded status, got %s", p.Status)
		}
	})

	t.Run("overpayment rejected whole", func(t *testing.T) {
		engine, id, _ := setup(t)
		if err := engine.Deposit(ctx, id, "0xemployer", 2999); err != nil {
			t.Fatalf("Deposit failed: %v", err)
		}
		err := engine.Deposit(ctx, id, "0xemployer", 2)
		if !errors.Is(err, escrow.ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
		p, _ := engine.GetPayroll(ctx, id)
		if p.DepositedAmount != 2999 {
			t.Errorf("rejected deposit must leave state unchanged, got %d", p.DepositedAmount)
		}
	})

	t.Run("zero deposit is a valid no-op", func(t *testing.T) {
		engine, id, _ := setup(t)
		if err := engine.Deposit(ctx, id, "0xemployer", 0); err != nil {
			t.Fatalf("zero deposit should succeed: %v", err)
		}
	})

	t.Run("non-employer rejected", func(t *testing.T) {
		engine, id, _ := setup(t)
		err := engine.Deposit(ctx, id, "0xintruder", 100)
		if !errors.Is(err, escrow.ErrNotAuthorized) {
			t.Fatalf("expected ErrNotAuthorized, got %v", err)
		}
		p, _ := engine.GetPayroll(ctx, id)
		if p.DepositedAmount != 0 {
			t.Errorf("rejected deposit must leave state unchanged, got %d", p.DepositedAmount)
		}
	})

	t.Run("funded payroll rejects further deposits", func(t *testing.T) {
		engine, id, _ := setup(t)
		if err := engine.Deposit(ctx, id, "0xemployer", 3000); err != nil {
			t.Fatalf("Deposit failed: %v", err)
		}
		err := engine.Deposit(ctx, id, "0xemployer", 1)
		if !errors.Is(err, escrow.ErrPayrollAlreadyFunded) {
			t.Fatalf("expected ErrPayrollAlreadyFunded, got %v", err)
		}
	})

	t.Run("unknown payroll", func(t *testing.T) {
		engine, _, _ := setup(t)
		err := engine.Deposit(ctx, 999, "0xemployer", 100)
		if !errors.Is(err, escrow.ErrPayrollNotFound) {
			t.Fatalf("expected ErrPayrollNotFound, got %v", err)
		}
	})

	t.Run("deposit event carries running total", func(t *testing.T) {
		engine, id, sink := setup(t)
		_ = engine.Deposit(ctx, id, "0xemployer", 1000)
		_ = engine.Deposit(ctx, id, "0xemployer", 2000)
		events := sink.byName(escrow.EventPayrollDeposited)
		if len(events) != 2 {
			t.Fatalf("expected 2 deposit events, got %d", len(events))
		}
		if events[1].Data["deposited_amount"].(int64) != 3000 {
			t.Errorf("unexpected running total: %v", events[1].Data["deposited_amount"])
		}
	})
}

func TestRelease(t *testing.T) {
	ctx := context.Background()

	fund := func(t *testing.T, engine *escrow.Engine) int64 {
		t.Helper()
		id, err := engine.CreatePayroll(ctx, "0xemployer", twoRecipients(), "USDC", models.ScheduleImmediate, 0, nil)
		if err != nil {
			t.Fatalf("CreatePayroll failed: %v", err)
		}
		if err := engine.Deposit(ctx, id, "0xemployer", 3000); err != nil {
			t.Fatalf("Deposit failed: %v", err)
		}
		return id
	}

	t.Run("full flow pays every recipient", func(t *testing.T) {
		engine, _, sink := newTestEngine(t)
		id := fund(t, engine)

		if err := engine.Release(ctx, id, "0xemployer"); err != nil {
			t.Fatalf("Release failed: %v", err)
		}

		p, _ := engine.GetPayroll(ctx, id)
		if p.Status != models.PayrollCompleted {
			t.Errorf("expected completed, got %s", p.Status)
		}
		for _, r := range p.Recipients {
			if !r.Paid {
				t.Errorf("recipient %s not marked paid", r.Address)
			}
		}

		if got := len(sink.byName(escrow.EventPaymentReleased)); got != 2 {
			t.Errorf("expected 2 payment events, got %d", got)
		}
		if got := len(sink.byName(escrow.EventPayrollCompleted)); got != 1 {
			t.Errorf("expected 1 completed event, got %d", got)
		}
	})

	t.Run("unfunded payroll cannot release", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		id, _ := engine.CreatePayroll(ctx, "0xemployer", twoRecipients(), "USDC", models.ScheduleImmediate, 0, nil)
		err := engine.Release(ctx, id, "0xemployer")
		if !errors.Is(err, escrow.ErrPayrollNotFunded) {
			t.Fatalf("expected ErrPayrollNotFunded, got %v", err)
		}
	})

	t.Run("non-employer cannot release", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		id := fund(t, engine)
		err := engine.Release(ctx, id, "0xintruder")
		if !errors.Is(err, escrow.ErrNotAuthorized) {
			t.Fatalf("expected ErrNotAuthorized, got %v", err)
		}
		p, _ := engine.GetPayroll(ctx, id)
		if p.Status != models.PayrollFunded {
			t.Errorf("failed auth must leave state unchanged, got %s", p.Status)
		}
	})

	t.Run("scheduled release honors release time", func(t *testing.T) {
		engine, clock, _ := newTestEngine(t)
		releaseAt := clock.now + 3600
		id, _ := engine.CreatePayroll(ctx, "0xemployer", twoRecipients(), "USDC", models.ScheduleScheduled, releaseAt, nil)
		_ = engine.Deposit(ctx, id, "0xemployer", 3000)

		err := engine.Release(ctx, id, "0xemployer")
		if !errors.Is(err, escrow.ErrTooEarly) {
			t.Fatalf("expected ErrTooEarly, got %v", err)
		}

		clock.advance(3600)
		if err := engine.Release(ctx, id, "0xemployer"); err != nil {
			t.Fatalf("Release after maturity failed: %v", err)
		}
	})

	t.Run("transfer failure leaves payroll releasing with progress kept", func(t *testing.T) {
		clock := &fakeClock{now: 1_700_000_000}
		exec := &failingTransfer{succeed: 1}
		engine := escrow.New(escrow.Config{
			Store:     memory.New(),
			Clock:     clock.read,
			Transfers: exec,
		})
		id := fund(t, engine)

		err := engine.Release(ctx, id, "0xemployer")
		if err == nil {
			t.Fatal("expected release to fail")
		}

		p, _ := engine.GetPayroll(ctx, id)
		if p.Status != models.PayrollReleasing {
			t.Errorf("expected releasing, got %s", p.Status)
		}
		if !p.Recipients[0].Paid || p.Recipients[1].Paid {
			t.Errorf("expected exactly first recipient paid: %+v", p.Recipients)
		}
	})

	t.Run("release is not re-runnable after completion", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		id := fund(t, engine)
		if err := engine.Release(ctx, id, "0xemployer"); err != nil {
			t.Fatalf("Release failed: %v", err)
		}
		err := engine.Release(ctx, id, "0xemployer")
		if !errors.Is(err, escrow.ErrPayrollNotFunded) {
			t.Fatalf("expected ErrPayrollNotFunded, got %v", err)
		}
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel before funding", func(t *testing.T) {
		engine, _, sink := newTestEngine(t)
		id, _ := engine.CreatePayroll(ctx, "0xemployer", twoRecipients(), "USDC", models.ScheduleImmediate, 0, nil)
		if err := engine.Cancel(ctx, id, "0xemployer"); err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}
		p, _ := engine.GetPayroll(ctx, id)
		if p.Status != models.PayrollCancelled {
			t.Errorf("expected cancelled, got %s", p.Status)
		}
		events := sink.byName(escrow.EventPayrollCancelled)
		if len(events) != 1 || events[0].Data["deposited_amount"].(int64) != 0 {
			t.Errorf("unexpected cancel events: %+v", events)
		}
	})

	t.Run("cancel after partial funding keeps deposited amount in event", func(t *testing.T) {
		engine, _, sink := newTestEngine(t)
		id, _ := engine.CreatePayroll(ctx, "0xemployer", twoRecipients(), "USDC", models.ScheduleImmediate, 0, nil)
		_ = engine.Deposit(ctx, id, "0xemployer", 1200)
		if err := engine.Cancel(ctx, id, "0xemployer"); err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}
		events := sink.byName(escrow.EventPayrollCancelled)
		if events[0].Data["deposited_amount"].(int64) != 1200 {
			t.Errorf("expected deposited 1200 in event, got %v", events[0].Data["deposited_amount"])
		}
	})

	t.Run("completed payroll cannot cancel", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		id, _ := engine.CreatePayroll(ctx, "0xemployer", twoRecipients(), "USDC", models.ScheduleImmediate, 0, nil)
		_ = engine.Deposit(ctx, id, "0xemployer", 3000)
		_ = engine.Release(ctx, id, "0xemployer")
		err := engine.Cancel(ctx, id, "0xemployer")
		if !errors.Is(err, escrow.ErrPayrollCompleted) {
			t.Fatalf("expected ErrPayrollCompleted, got %v", err)
		}
	})

	t.Run("non-employer cannot cancel", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		id, _ := engine.CreatePayroll(ctx, "0xemployer", twoRecipients(), "USDC", models.ScheduleImmediate, 0, nil)
		err := engine.Cancel(ctx, id, "0xintruder")
		if !errors.Is(err, escrow.ErrNotAuthorized) {
			t.Fatalf("expected ErrNotAuthorized, got %v", err)
		}
	})
}

func TestCircuitBreaker(t *testing.T) {
	ctx := context.Background()

	t.Run("toggle requires admin", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		if err := engine.Initialize(ctx, "0xadmin"); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}
		_, err := engine.ToggleCircuitBreaker(ctx, "0xintruder")
		if !errors.Is(err, escrow.ErrNotAuthorized) {
			t.Fatalf("expected ErrNotAuthorized, got %v", err)
		}
	})

	t.Run("breaker gates creation but not funding or release", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		_ = engine.Initialize(ctx, "0xadmin")

		id, err := engine.CreatePayroll(ctx, "0xemployer", twoRecipients(), "USDC", models.ScheduleImmediate, 0, nil)
		if err != nil {
			t.Fatalf("CreatePayroll failed: %v", err)
		}

		active, err := engine.ToggleCircuitBreaker(ctx, "0xadmin")
		if err != nil || !active {
			t.Fatalf("toggle on failed: active=%v err=%v", active, err)
		}

		if _, err := engine.CreatePayroll(ctx, "0xemployer", twoRecipients(), "USDC", models.ScheduleImmediate, 0, nil); !errors.Is(err, escrow.ErrCircuitBreakerActive) {
			t.Fatalf("expected ErrCircuitBreakerActive, got %v", err)
		}
		if _, err := engine.AddEmployee(ctx, "0xemployer", escrow.NewEmployee{Wallet: "0xw", Name: "n"}); !errors.Is(err, escrow.ErrCircuitBreakerActive) {
			t.Fatalf("expected ErrCircuitBreakerActive for AddEmployee, got %v", err)
		}

		// Existing payrolls keep working while the breaker is up
		if err := engine.Deposit(ctx, id, "0xemployer", 3000); err != nil {
			t.Fatalf("Deposit under breaker failed: %v", err)
		}
		if err := engine.Release(ctx, id, "0xemployer"); err != nil {
			t.Fatalf("Release under breaker failed: %v", err)
		}

		active, err = engine.ToggleCircuitBreaker(ctx, "0xadmin")
		if err != nil || active {
			t.Fatalf("toggle off failed: active=%v err=%v", active, err)
		}
		if _, err := engine.CreatePayroll(ctx, "0xemployer", twoRecipients(), "USDC", models.ScheduleImmediate, 0, nil); err != nil {
			t.Fatalf("CreatePayroll after breaker off failed: %v", err)
		}
	})

	t.Run("initialize is set-once", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		if err := engine.Initialize(ctx, "0xadmin"); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}
		if err := engine.Initialize(ctx, "0xadmin"); err != nil {
			t.Fatalf("re-initialize with same admin must be a no-op: %v", err)
		}
		if err := engine.Initialize(ctx, "0xother"); !errors.Is(err, escrow.ErrAlreadyInitialized) {
			t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
		}
	})
}

func TestFundConservation(t *testing.T) {
	engine, _, sink := newTestEngine(t)
	ctx := context.Background()

	id, err := engine.CreatePayroll(ctx, "0xemployer", twoRecipients(), "USDC", models.ScheduleImmediate, 0, nil)
	if err != nil {
		t.Fatalf("CreatePayroll failed: %v", err)
	}
	if err := engine.Deposit(ctx, id, "0xemployer", 3000); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if err := engine.Release(ctx, id, "0xemployer"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	var paidOut int64
	for _, e := range sink.byName(escrow.EventPaymentReleased) {
		paidOut += e.Data["amount"].(int64)
	}
	p, _ := engine.GetPayroll(ctx, id)
	if paidOut != p.DepositedAmount {
		t.Errorf("released %d but deposited %d", paidOut, p.DepositedAmount)
	}
	if paidOut != p.TotalAmount {
		t.Errorf("released %d but total %d", paidOut, p.TotalAmount)
	}
}
