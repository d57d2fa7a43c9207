/*
errors.go - Centralized error types for the engine

PURPOSE:
  All engine error types in one place. The taxonomy has two families:

  1. ValidationError - user-correctable input problems (empty reason,
     zero working days, balance floor violations). Surfaced inline to the
     caller; never fatal.
  2. PolicyConfigurationError - misconfigured advance-notice buckets
     (gaps/overlaps), detected at configuration time rather than at
     request time.

  There are no unrecoverable errors in this core: it is pure computation
  over caller-supplied inputs.

USAGE:
  Callers branch with errors.Is / errors.As:

    if errors.Is(err, engine.ErrReasonRequired) { ... }

    var floor *engine.BalanceFloorError
    if errors.As(err, &floor) { ... floor.Floor ... }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrReasonRequired is returned when a manual adjustment or denial is
	// submitted with an empty or whitespace-only reason.
	ErrReasonRequired = errors.New("reason is required")

	// ErrZeroWorkingDays is returned on submission of a request whose range
	// contains no working days (e.g., a single Saturday).
	ErrZeroWorkingDays = errors.New("request contains no working days")

	// ErrBalanceFloor is returned when an operation would push a balance
	// below its configured floor.
	ErrBalanceFloor = errors.New("balance floor violation")

	// ErrInvalidCategory is returned for an unknown time-off category.
	ErrInvalidCategory = errors.New("invalid time-off category")

	// ErrNoticeRulesMisconfigured is returned when advance-notice buckets
	// have gaps or overlaps.
	ErrNoticeRulesMisconfigured = errors.New("advance notice rules misconfigured")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// BalanceFloorError reports a removal or submission that would breach the
// balance floor (zero, or the policy's negative limit). It names the floor so
// the caller can render it.
type BalanceFloorError struct {
	EmployeeID EmployeeID
	PolicyID   PolicyID
	Floor      Amount
	Projected  Amount
}

func (e *BalanceFloorError) Error() string {
	return fmt.Sprintf("balance floor violation: projected %s is below floor %s",
		e.Projected.Value, e.Floor.Value)
}

func (e *BalanceFloorError) Unwrap() error { return ErrBalanceFloor }

// PolicyConfigurationError reports misconfigured advance-notice buckets.
// A hardened deployment rejects the configuration instead of silently
// falling back to "no rule applies" at request time.
type PolicyConfigurationError struct {
	// Problems holds one human-readable description per gap or overlap.
	Problems []string
}

func (e *PolicyConfigurationError) Error() string {
	return fmt.Sprintf("advance notice rules misconfigured: %d problem(s): %v",
		len(e.Problems), e.Problems)
}

func (e *PolicyConfigurationError) Unwrap() error { return ErrNoticeRulesMisconfigured }

// IsValidation reports whether the error is a user-correctable input problem.
func IsValidation(err error) bool {
	return errors.Is(err, ErrReasonRequired) ||
		errors.Is(err, ErrZeroWorkingDays) ||
		errors.Is(err, ErrBalanceFloor) ||
		errors.Is(err, ErrInvalidCategory)
}
