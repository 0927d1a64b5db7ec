// Package memory provides an in-memory escrow.Store used by tests and
// local development. Entities are copied on the way in and out so callers
// never share state with the store.
package memory

import (
	"context"
	"sync"

	"paywallet/internal/escrow"
	"paywallet/pkg/models"
)

// Store is an in-memory implementation of escrow.Store.
type Store struct {
	mu sync.Mutex

	payrolls  map[int64]models.Payroll
	streams   map[int64]models.Stream
	employees map[int64]models.Employee
	rosters   map[string][]int64
	counters  map[string]int64

	admin   string
	breaker bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		payrolls:  make(map[int64]models.Payroll),
		streams:   make(map[int64]models.Stream),
		employees: make(map[int64]models.Employee),
		rosters:   make(map[string][]int64),
		counters:  make(map[string]int64),
	}
}

func (s *Store) GetPayroll(_ context.Context, id int64) (*models.Payroll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payrolls[id]
	if !ok {
		return nil, escrow.ErrPayrollNotFound
	}
	p.Recipients = append(models.RecipientList(nil), p.Recipients...)
	return &p, nil
}

func (s *Store) PutPayroll(_ context.Context, p *models.Payroll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *p
	stored.Recipients = append(models.RecipientList(nil), p.Recipients...)
	s.payrolls[p.ID] = stored
	return nil
}

func (s *Store) GetStream(_ context.Context, id int64) (*models.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[id]
	if !ok {
		return nil, escrow.ErrStreamNotFound
	}
	return &st, nil
}

func (s *Store) PutStream(_ context.Context, st *models.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[st.ID] = *st
	return nil
}

func (s *Store) GetEmployee(_ context.Context, id int64) (*models.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok {
		return nil, escrow.ErrEmployeeNotFound
	}
	return &e, nil
}

func (s *Store) PutEmployee(_ context.Context, e *models.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = *e
	return nil
}

func (s *Store) EmployerEmployeeIDs(_ context.Context, employer string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.rosters[employer]...), nil
}

func (s *Store) AppendEmployerEmployee(_ context.Context, employer string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rosters[employer] = append(s.rosters[employer], id)
	return nil
}

func (s *Store) NextID(_ context.Context, namespace string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[namespace]++
	return s.counters[namespace], nil
}

func (s *Store) CircuitBreaker(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breaker, nil
}

func (s *Store) SetCircuitBreaker(_ context.Context, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.breaker = active
	return nil
}

func (s *Store) Admin(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admin, nil
}

func (s *Store) SetAdmin(_ context.Context, admin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admin = admin
	return nil
}
