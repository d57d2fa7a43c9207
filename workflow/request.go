/*
Package workflow owns the time-off request lifecycle.

PURPOSE:
  A request is created Pending by the composer at submit time and moves to
  Approved or Denied exactly once, via this package. Terminal states are
  final: there is no transition out of Approved or Denied.

REQUEST FLOW:
  submit -> Pending -> approve -> Approved (debit committed to the ledger)
                    -> deny    -> Denied  (reason required)

  Approval stamps the approver identity and timestamp and commits the
  projected consumption as a real ledger debit. Denial stamps the denier,
  timestamp, and reason.

SEE ALSO:
  - service.go: the submit/approve/deny operations
  - ledger: where approval debits are recorded
*/
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/meridian/timeoff-engine/engine"
)

// =============================================================================
// REQUEST
// =============================================================================

type RequestID string

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool { return s == StatusApproved || s == StatusDenied }

// Request is a submitted time-off request. The duration fields are derived
// by the engine at submit time, never user-supplied.
type Request struct {
	ID         RequestID
	EmployeeID engine.EmployeeID
	PolicyID   engine.PolicyID
	Category   engine.Category

	StartDate engine.Date
	EndDate   engine.Date
	Mode      engine.PartialDayMode
	Params    engine.PartialDayParams
	Note      string

	// Derived at submit time.
	WorkingDays engine.Amount
	TotalHours  engine.Amount
	Notice      engine.NoticeResult

	Status      Status
	SubmittedAt time.Time

	// Decision stamp. DecidedBy/DecidedAt are set exactly once.
	DecidedBy    string
	DecidedAt    *time.Time
	DenialReason string
}

// =============================================================================
// STORE
// =============================================================================

var (
	// ErrRequestNotFound is returned for an unknown request ID.
	ErrRequestNotFound = errors.New("request not found")

	// ErrNotPending is returned when approving or denying a request that
	// already reached a terminal state.
	ErrNotPending = errors.New("request is not pending")

	// ErrNotEligible is returned when the employee does not yet meet the
	// policy's eligibility rule.
	ErrNotEligible = errors.New("employee is not eligible for this policy")
)

// Filter narrows request listings. Nil fields match everything.
type Filter struct {
	EmployeeID *engine.EmployeeID
	Status     *Status
}

// RequestStore persists requests. Save overwrites by ID; status history
// beyond the decision stamp is not kept.
type RequestStore interface {
	SaveRequest(ctx context.Context, req Request) error
	Request(ctx context.Context, id RequestID) (Request, error)
	Requests(ctx context.Context, filter Filter) ([]Request, error)
}
