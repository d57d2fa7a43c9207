/*
Package ledger records every balance movement as an immutable entry.

PURPOSE:
  The ledger is the source of truth for how a balance got to its current
  value. Manual adjustments, approval debits, accrual grants, and
  carryover all flow through the same append path, so each entry carries
  the delta AND the resulting balance and the entries form a consistent
  running total.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: entries are never updated or deleted. Corrections are
     new entries with the opposite sign.
  2. SERIALIZED PER BALANCE: the read-validate-append-save sequence holds
     a per-balance lock, so concurrent adjustments to the same balance
     cannot lose updates.
  3. REASON REQUIRED: manual adjustments without a non-blank reason are
     rejected before anything is written.

DISPLAY ORDER:
  Entries are insertion-ordered in the store; listings return newest
  first, which is how adjustment history is rendered.

SEE ALSO:
  - store/memory, store/sqlite: Store implementations
  - workflow: approval debits recorded through this package
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridian/timeoff-engine/engine"
)

// =============================================================================
// ENTRY - One immutable balance movement
// =============================================================================

type EntryID string

// Kind classifies what caused a movement.
type Kind string

const (
	KindManualAdjustment Kind = "manual_adjustment"
	KindDebit            Kind = "debit"   // approved request consumption
	KindAccrual          Kind = "accrual" // schedule-driven grant
	KindCarryover        Kind = "carryover"
	KindExpiry           Kind = "expiry"
)

type Entry struct {
	ID         EntryID
	EmployeeID engine.EmployeeID
	PolicyID   engine.PolicyID

	// EffectiveAt is the business date of the movement; CreatedAt is when
	// it was recorded.
	EffectiveAt engine.Date
	CreatedAt   time.Time

	Delta engine.Amount

	// Resulting is the balance immediately after this entry was applied.
	Resulting engine.Amount

	Kind   Kind
	Actor  string
	Reason string

	// ReferenceID links debits back to the request that caused them.
	ReferenceID string

	// IdempotencyKey deduplicates schedule-driven writes within one
	// balance. Empty for movements that may legitimately repeat.
	IdempotencyKey string
}

// =============================================================================
// STORE - Persistence interface
// =============================================================================

var (
	// ErrBalanceNotFound is returned when no balance exists for the
	// employee+policy pair.
	ErrBalanceNotFound = errors.New("balance not found")

	// ErrUnlimitedBalance is returned when a numeric movement is applied
	// to the unlimited sentinel.
	ErrUnlimitedBalance = errors.New("balance is unlimited; no numeric movements apply")

	// ErrDuplicateEntry is returned when a movement's idempotency key has
	// already been written to the balance's ledger.
	ErrDuplicateEntry = errors.New("duplicate ledger entry")
)

// Store persists balances and their ledger entries. AppendEntry is the only
// entry write; there is no update or delete.
type Store interface {
	Balance(ctx context.Context, employeeID engine.EmployeeID, policyID engine.PolicyID) (engine.Balance, error)
	SaveBalance(ctx context.Context, balance engine.Balance) error
	AppendEntry(ctx context.Context, entry Entry) error

	// Entries returns the ledger for one balance, newest first.
	Entries(ctx context.Context, employeeID engine.EmployeeID, policyID engine.PolicyID) ([]Entry, error)
}

// =============================================================================
// SERVICE - Validated, serialized balance movements
// =============================================================================

type Service struct {
	store Store

	mu    sync.Mutex
	locks map[balanceKey]*sync.Mutex
}

type balanceKey struct {
	EmployeeID engine.EmployeeID
	PolicyID   engine.PolicyID
}

func NewService(store Store) *Service {
	return &Service{store: store, locks: make(map[balanceKey]*sync.Mutex)}
}

// lockFor returns the mutex serializing movements on one balance.
func (s *Service) lockFor(employeeID engine.EmployeeID, policyID engine.PolicyID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := balanceKey{EmployeeID: employeeID, PolicyID: policyID}
	if s.locks[k] == nil {
		s.locks[k] = &sync.Mutex{}
	}
	return s.locks[k]
}

// Adjustment is the input to a manual add/remove-days operation.
type Adjustment struct {
	EmployeeID    engine.EmployeeID
	PolicyID      engine.PolicyID
	Delta         engine.Amount // signed days
	Reason        string
	Actor         string
	EffectiveDate engine.Date

	// Floor is the lowest balance the removal may leave (zero, or the
	// policy's negative limit).
	Floor engine.Amount
}

// ApplyAdjustment applies a manual adjustment and appends its ledger entry.
//
// A blank reason is rejected unconditionally, for additions and removals
// alike. Removals that would land below the floor are rejected with a
// *engine.BalanceFloorError naming the floor.
func (s *Service) ApplyAdjustment(ctx context.Context, adj Adjustment) (engine.Balance, Entry, error) {
	if strings.TrimSpace(adj.Reason) == "" {
		return engine.Balance{}, Entry{}, engine.ErrReasonRequired
	}

	return s.apply(ctx, movement{
		employeeID:  adj.EmployeeID,
		policyID:    adj.PolicyID,
		delta:       adj.Delta,
		kind:        KindManualAdjustment,
		actor:       adj.Actor,
		reason:      adj.Reason,
		effectiveAt: adj.EffectiveDate,
		floor:       &adj.Floor,
	})
}

// Debit records the consumption committed by an approval. Submission
// already validated the balance floor, so the debit itself may take the
// balance negative.
func (s *Service) Debit(ctx context.Context, employeeID engine.EmployeeID, policyID engine.PolicyID, days engine.Amount, requestID, approver, reason string, effectiveAt engine.Date) (engine.Balance, Entry, error) {
	return s.apply(ctx, movement{
		employeeID:  employeeID,
		policyID:    policyID,
		delta:       days.Neg(),
		kind:        KindDebit,
		actor:       approver,
		reason:      reason,
		reference:   requestID,
		effectiveAt: effectiveAt,
	})
}

// Grant records a positive schedule-driven movement (accrual or carryover).
// A non-empty idempotencyKey makes the grant safe to replay: a second grant
// with the same key on the same balance is rejected with ErrDuplicateEntry
// and writes nothing.
func (s *Service) Grant(ctx context.Context, employeeID engine.EmployeeID, policyID engine.PolicyID, days engine.Amount, kind Kind, reason string, effectiveAt engine.Date, idempotencyKey string) (engine.Balance, Entry, error) {
	return s.apply(ctx, movement{
		employeeID:     employeeID,
		policyID:       policyID,
		delta:          days,
		kind:           kind,
		actor:          "system",
		reason:         reason,
		effectiveAt:    effectiveAt,
		idempotencyKey: idempotencyKey,
	})
}

// Expire records a period-end forfeiture as a negative movement.
func (s *Service) Expire(ctx context.Context, employeeID engine.EmployeeID, policyID engine.PolicyID, days engine.Amount, reason string, effectiveAt engine.Date) (engine.Balance, Entry, error) {
	return s.apply(ctx, movement{
		employeeID:  employeeID,
		policyID:    policyID,
		delta:       days.Neg(),
		kind:        KindExpiry,
		actor:       "system",
		reason:      reason,
		effectiveAt: effectiveAt,
	})
}

// Entries lists the ledger for one balance, newest first.
func (s *Service) Entries(ctx context.Context, employeeID engine.EmployeeID, policyID engine.PolicyID) ([]Entry, error) {
	return s.store.Entries(ctx, employeeID, policyID)
}

type movement struct {
	employeeID     engine.EmployeeID
	policyID       engine.PolicyID
	delta          engine.Amount
	kind           Kind
	actor          string
	reason         string
	reference      string
	effectiveAt    engine.Date
	idempotencyKey string
	floor          *engine.Amount // nil skips the floor check
}

func (s *Service) apply(ctx context.Context, m movement) (engine.Balance, Entry, error) {
	lock := s.lockFor(m.employeeID, m.policyID)
	lock.Lock()
	defer lock.Unlock()

	balance, err := s.store.Balance(ctx, m.employeeID, m.policyID)
	if err != nil {
		return engine.Balance{}, Entry{}, err
	}
	if balance.Unlimited {
		return engine.Balance{}, Entry{}, ErrUnlimitedBalance
	}

	// The duplicate scan happens under the same per-balance lock as the
	// append, so two replays of the same key cannot interleave.
	if m.idempotencyKey != "" {
		existing, err := s.store.Entries(ctx, m.employeeID, m.policyID)
		if err != nil {
			return engine.Balance{}, Entry{}, err
		}
		for _, e := range existing {
			if e.IdempotencyKey == m.idempotencyKey {
				return engine.Balance{}, Entry{}, fmt.Errorf("%w: %s", ErrDuplicateEntry, m.idempotencyKey)
			}
		}
	}

	resulting := balance.Available.Add(m.delta)
	if m.floor != nil && resulting.LessThan(*m.floor) {
		return engine.Balance{}, Entry{}, &engine.BalanceFloorError{
			EmployeeID: m.employeeID,
			PolicyID:   m.policyID,
			Floor:      *m.floor,
			Projected:  resulting,
		}
	}

	effective := m.effectiveAt
	if effective.IsZero() {
		effective = engine.TodayDate()
	}

	entry := Entry{
		ID:             EntryID(uuid.NewString()),
		EmployeeID:     m.employeeID,
		PolicyID:       m.policyID,
		EffectiveAt:    effective,
		CreatedAt:      time.Now().UTC(),
		Delta:          m.delta,
		Resulting:      resulting,
		Kind:           m.kind,
		Actor:          m.actor,
		Reason:         m.reason,
		ReferenceID:    m.reference,
		IdempotencyKey: m.idempotencyKey,
	}

	// Entry first, then the balance: a crash between the two leaves the
	// ledger explaining more than the balance shows, never less.
	if err := s.store.AppendEntry(ctx, entry); err != nil {
		return engine.Balance{}, Entry{}, err
	}

	balance.Available = resulting
	balance.Version++
	if err := s.store.SaveBalance(ctx, balance); err != nil {
		return engine.Balance{}, Entry{}, err
	}

	return balance, entry, nil
}
