// Package memory provides the in-memory store used by tests and the demo
// server. It implements ledger.Store and workflow.RequestStore.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/meridian/timeoff-engine/engine"
	"github.com/meridian/timeoff-engine/ledger"
	"github.com/meridian/timeoff-engine/workflow"
)

type Store struct {
	mu       sync.RWMutex
	balances map[key]engine.Balance
	entries  map[key][]ledger.Entry
	requests map[workflow.RequestID]workflow.Request
	order    []workflow.RequestID // submission order for stable listings
}

type key struct {
	EmployeeID engine.EmployeeID
	PolicyID   engine.PolicyID
}

func New() *Store {
	return &Store{
		balances: make(map[key]engine.Balance),
		entries:  make(map[key][]ledger.Entry),
		requests: make(map[workflow.RequestID]workflow.Request),
	}
}

// =============================================================================
// LEDGER STORE
// =============================================================================

func (s *Store) Balance(_ context.Context, employeeID engine.EmployeeID, policyID engine.PolicyID) (engine.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.balances[key{employeeID, policyID}]
	if !ok {
		return engine.Balance{}, ledger.ErrBalanceNotFound
	}
	return b, nil
}

func (s *Store) SaveBalance(_ context.Context, balance engine.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[key{balance.EmployeeID, balance.PolicyID}] = balance
	return nil
}

// AppendEntry is append-only: entries are stored in insertion order and
// never touched again.
func (s *Store) AppendEntry(_ context.Context, entry ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{entry.EmployeeID, entry.PolicyID}
	s.entries[k] = append(s.entries[k], entry)
	return nil
}

// Entries returns a copy of the ledger, newest first.
func (s *Store) Entries(_ context.Context, employeeID engine.EmployeeID, policyID engine.PolicyID) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.entries[key{employeeID, policyID}]
	out := make([]ledger.Entry, len(stored))
	for i, e := range stored {
		out[len(stored)-1-i] = e
	}
	return out, nil
}

// Balances lists every balance held by one employee.
func (s *Store) Balances(_ context.Context, employeeID engine.EmployeeID) ([]engine.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []engine.Balance
	for k, b := range s.balances {
		if k.EmployeeID == employeeID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PolicyID < out[j].PolicyID })
	return out, nil
}

// =============================================================================
// REQUEST STORE
// =============================================================================

func (s *Store) SaveRequest(_ context.Context, req workflow.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.ID]; !exists {
		s.order = append(s.order, req.ID)
	}
	s.requests[req.ID] = req
	return nil
}

func (s *Store) Request(_ context.Context, id workflow.RequestID) (workflow.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return workflow.Request{}, workflow.ErrRequestNotFound
	}
	return req, nil
}

// Requests returns matching requests, newest submission first.
func (s *Store) Requests(_ context.Context, filter workflow.Filter) ([]workflow.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []workflow.Request
	for i := len(s.order) - 1; i >= 0; i-- {
		req := s.requests[s.order[i]]
		if filter.EmployeeID != nil && req.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}
