/*
Package directory holds the employee and policy repositories.

PURPOSE:
  Ambient "who works here and under which policies" state, reframed as
  injected repository interfaces with in-memory implementations. Tests and
  the demo server seed the in-memory versions; a persistent deployment
  swaps in database-backed ones without touching the engine.
*/
package directory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/meridian/timeoff-engine/engine"
	"github.com/meridian/timeoff-engine/policy"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

type Employee struct {
	ID       engine.EmployeeID
	Name     string
	Email    string
	Role     Role
	HireDate engine.Date

	// ManagerID is empty for employees without a reporting line.
	ManagerID engine.EmployeeID
}

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrPolicyNotFound   = errors.New("policy not found")
)

// =============================================================================
// REPOSITORY INTERFACES
// =============================================================================

type EmployeeRepository interface {
	Employee(ctx context.Context, id engine.EmployeeID) (Employee, error)
	Employees(ctx context.Context) ([]Employee, error)
	SaveEmployee(ctx context.Context, e Employee) error
}

type PolicyRepository interface {
	Policy(ctx context.Context, id engine.PolicyID) (policy.Policy, error)
	Policies(ctx context.Context) ([]policy.Policy, error)
	SavePolicy(ctx context.Context, p policy.Policy) error
}

// =============================================================================
// IN-MEMORY IMPLEMENTATION
// =============================================================================

type InMemory struct {
	mu        sync.RWMutex
	employees map[engine.EmployeeID]Employee
	policies  map[engine.PolicyID]policy.Policy
}

func NewInMemory() *InMemory {
	return &InMemory{
		employees: make(map[engine.EmployeeID]Employee),
		policies:  make(map[engine.PolicyID]policy.Policy),
	}
}

func (m *InMemory) Employee(_ context.Context, id engine.EmployeeID) (Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return Employee{}, ErrEmployeeNotFound
	}
	return e, nil
}

func (m *InMemory) Employees(_ context.Context) ([]Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *InMemory) SaveEmployee(_ context.Context, e Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
	return nil
}

func (m *InMemory) Policy(_ context.Context, id engine.PolicyID) (policy.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[id]
	if !ok {
		return policy.Policy{}, ErrPolicyNotFound
	}
	return p, nil
}

func (m *InMemory) Policies(_ context.Context) ([]policy.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]policy.Policy, 0, len(m.policies))
	for _, p := range m.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *InMemory) SavePolicy(_ context.Context, p policy.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[p.ID] = p
	return nil
}

// HireDate satisfies the workflow's employee lookup with just the field it
// needs.
func (m *InMemory) HireDate(ctx context.Context, id engine.EmployeeID) (engine.Date, error) {
	e, err := m.Employee(ctx, id)
	if err != nil {
		return engine.Date{}, err
	}
	return e.HireDate, nil
}
