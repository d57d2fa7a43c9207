package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridian/timeoff-engine/engine"
	"github.com/meridian/timeoff-engine/ledger"
	"github.com/meridian/timeoff-engine/policy"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// PolicySource resolves policies for validation.
type PolicySource interface {
	Policy(ctx context.Context, id engine.PolicyID) (policy.Policy, error)
}

// EmployeeSource resolves the hire date for eligibility checks.
type EmployeeSource interface {
	HireDate(ctx context.Context, id engine.EmployeeID) (engine.Date, error)
}

// BalanceSource reads the current balance at submit time. The ledger's
// store satisfies this.
type BalanceSource interface {
	Balance(ctx context.Context, employeeID engine.EmployeeID, policyID engine.PolicyID) (engine.Balance, error)
}

// SettingsSource provides the current company settings. Settings are
// admin-editable at runtime, so they are resolved per call.
type SettingsSource interface {
	Current() engine.CompanySettings
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Requests  RequestStore
	Ledger    *ledger.Service
	Balances  BalanceSource
	Policies  PolicySource
	Employees EmployeeSource
	Settings  SettingsSource

	// Now is injectable for tests. Defaults to time.Now.
	Now func() time.Time

	// decideMu serializes the read-check-write of Approve and Deny, so two
	// concurrent decisions on one request cannot both observe Pending and
	// commit two debits.
	decideMu sync.Mutex
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SubmitInput is what the composer sends at submit time. Duration fields
// are deliberately absent: the service recomputes them.
type SubmitInput struct {
	EmployeeID engine.EmployeeID
	PolicyID   engine.PolicyID
	Form       engine.FormState
}

// Submit validates the request end to end and creates it Pending.
//
// Hard failures: unknown policy/employee, eligibility not met, zero
// working days, balance floor breach. Notice non-compliance is NOT a
// failure; the result is recorded on the request as a warning.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Request, error) {
	pol, err := s.Policies.Policy(ctx, in.PolicyID)
	if err != nil {
		return Request{}, err
	}

	hireDate, err := s.Employees.HireDate(ctx, in.EmployeeID)
	if err != nil {
		return Request{}, err
	}
	today := engine.DateOf(s.now())
	if !pol.Eligibility.EligibleOn(hireDate, today) {
		return Request{}, fmt.Errorf("policy %s: %w", pol.ID, ErrNotEligible)
	}

	balance, err := s.Balances.Balance(ctx, in.EmployeeID, in.PolicyID)
	if err != nil {
		return Request{}, err
	}

	form := in.Form
	form.Category = pol.Category

	composerCtx := engine.ComposerContext{
		Settings:             s.Settings.Current(),
		Balance:              balance,
		NegativeBalanceLimit: pol.NegativeBalanceLimit,
		Today:                today,
	}
	if err := engine.ValidateSubmission(form, composerCtx); err != nil {
		return Request{}, err
	}
	derived := engine.Derive(form, composerCtx)

	req := Request{
		ID:          RequestID(uuid.NewString()),
		EmployeeID:  in.EmployeeID,
		PolicyID:    in.PolicyID,
		Category:    pol.Category,
		StartDate:   form.StartDate,
		EndDate:     form.EndDate,
		Mode:        form.Mode,
		Params:      form.Params,
		Note:        form.Note,
		WorkingDays: derived.Duration.WorkingDays,
		TotalHours:  derived.Duration.TotalHours,
		Notice:      derived.Notice,
		Status:      StatusPending,
		SubmittedAt: s.now(),
	}
	if err := s.Requests.SaveRequest(ctx, req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Approve moves a pending request to Approved, stamps the approver, and
// commits the debit through the ledger. Unlimited balances take no debit.
func (s *Service) Approve(ctx context.Context, id RequestID, approver string) (Request, error) {
	s.decideMu.Lock()
	defer s.decideMu.Unlock()

	req, err := s.Requests.Request(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		return Request{}, fmt.Errorf("%w: status is %s", ErrNotPending, req.Status)
	}

	balance, err := s.Balances.Balance(ctx, req.EmployeeID, req.PolicyID)
	if err != nil {
		return Request{}, err
	}
	if !balance.Unlimited {
		reason := req.Note
		if strings.TrimSpace(reason) == "" {
			reason = fmt.Sprintf("%s request %s to %s", req.Category, req.StartDate, req.EndDate)
		}
		_, _, err = s.Ledger.Debit(ctx, req.EmployeeID, req.PolicyID, req.WorkingDays,
			string(req.ID), approver, reason, req.StartDate)
		if err != nil {
			return Request{}, err
		}
	}

	at := s.now()
	req.Status = StatusApproved
	req.DecidedBy = approver
	req.DecidedAt = &at
	if err := s.Requests.SaveRequest(ctx, req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Deny moves a pending request to Denied. A non-blank reason is required.
func (s *Service) Deny(ctx context.Context, id RequestID, denier, reason string) (Request, error) {
	if strings.TrimSpace(reason) == "" {
		return Request{}, engine.ErrReasonRequired
	}

	s.decideMu.Lock()
	defer s.decideMu.Unlock()

	req, err := s.Requests.Request(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		return Request{}, fmt.Errorf("%w: status is %s", ErrNotPending, req.Status)
	}

	at := s.now()
	req.Status = StatusDenied
	req.DecidedBy = denier
	req.DecidedAt = &at
	req.DenialReason = reason
	if err := s.Requests.SaveRequest(ctx, req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// List returns requests matching the filter, newest submission first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Request, error) {
	return s.Requests.Requests(ctx, filter)
}
