/*
Package policy defines the time-off policy model: accrual behavior,
eligibility, carryover, and balance constraints.

PURPOSE:
  A Policy is the contract between the company and an employee about one
  category of time off. It is read-only configuration from the engine's
  point of view: calculations consume it, administration owns it.

ACCRUAL TYPES:
  TimeBased:   a fixed rate per period (e.g., 1.25 days/month)
  HoursWorked: earned proportionally to hours actually worked
  Manual:      no automatic accrual; balance moves only by adjustment
  Unlimited:   no balance tracking at all

CARRYOVER:
  At period end, unused balance either expires or rolls into the next
  period, optionally capped. The ledger records both movements so the
  running total stays explainable.

SEE ALSO:
  - accrual.go: schedule generation
  - carryover.go: period-end reconciliation
*/
package policy

import (
	"fmt"
	"time"

	"github.com/meridian/timeoff-engine/engine"
)

// =============================================================================
// ACCRUAL TYPE
// =============================================================================

type AccrualType string

const (
	AccrualTimeBased   AccrualType = "accrual"
	AccrualHoursWorked AccrualType = "hours_worked"
	AccrualManual      AccrualType = "manual"
	AccrualUnlimited   AccrualType = "unlimited"
)

// AccrualPeriod is the denominator of a time-based rate.
type AccrualPeriod string

const (
	PerMonth AccrualPeriod = "month"
	PerYear  AccrualPeriod = "year"
)

// AccrualRate is "Amount per Period", e.g. 1.25 days per month.
type AccrualRate struct {
	Amount engine.Amount
	Per    AccrualPeriod
}

// =============================================================================
// ELIGIBILITY
// =============================================================================

type EligibilityKind string

const (
	// EligibleFromHireDate opens the policy immediately. Default for
	// unpaid categories.
	EligibleFromHireDate EligibilityKind = "from_hire_date"

	// EligibleAfterProbation opens the policy after the standard probation
	// window. Default for paid categories.
	EligibleAfterProbation EligibilityKind = "after_probation"

	// EligibleAfterCustomDays opens the policy a configured number of days
	// after hire.
	EligibleAfterCustomDays EligibilityKind = "custom"
)

// probationDays is the standard probation window.
const probationDays = 90

type EligibilityRule struct {
	Kind       EligibilityKind
	CustomDays int
}

// EligibleOn reports whether an employee hired on hireDate may use the
// policy on asOf.
func (e EligibilityRule) EligibleOn(hireDate, asOf engine.Date) bool {
	switch e.Kind {
	case EligibleAfterProbation:
		return asOf.AfterOrEqual(hireDate.AddDays(probationDays))
	case EligibleAfterCustomDays:
		return asOf.AfterOrEqual(hireDate.AddDays(e.CustomDays))
	default:
		return asOf.AfterOrEqual(hireDate)
	}
}

// =============================================================================
// CARRYOVER
// =============================================================================

// CarryoverRule governs how unused balance rolls into a new period.
// Allowed=false expires everything; MaxDays=nil carries everything.
type CarryoverRule struct {
	Allowed bool
	MaxDays *engine.Amount
}

// =============================================================================
// POLICY
// =============================================================================

type Policy struct {
	ID       engine.PolicyID
	Name     string
	Category engine.Category

	AccrualType AccrualType
	AccrualRate AccrualRate

	Eligibility EligibilityRule
	Carryover   CarryoverRule

	// NegativeBalanceLimit allows the balance to go this many days below
	// zero before submissions are blocked. Nil means no hard floor.
	NegativeBalanceLimit *engine.Amount
}

// Unlimited reports whether the policy tracks no balance at all.
func (p Policy) Unlimited() bool { return p.AccrualType == AccrualUnlimited }

// Floor returns the lowest balance the policy permits: zero, or the
// configured negative limit.
func (p Policy) Floor() engine.Amount {
	if p.NegativeBalanceLimit != nil {
		return p.NegativeBalanceLimit.Neg()
	}
	return engine.Days(0)
}

// Validate checks internal consistency of the configuration.
func (p Policy) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("policy: id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("policy %s: name is required", p.ID)
	}
	if !p.Category.Valid() {
		return fmt.Errorf("policy %s: %w: %q", p.ID, engine.ErrInvalidCategory, p.Category)
	}
	switch p.AccrualType {
	case AccrualTimeBased:
		if !p.AccrualRate.Amount.IsPositive() {
			return fmt.Errorf("policy %s: time-based accrual needs a positive rate", p.ID)
		}
		if p.AccrualRate.Per != PerMonth && p.AccrualRate.Per != PerYear {
			return fmt.Errorf("policy %s: unknown accrual period %q", p.ID, p.AccrualRate.Per)
		}
	case AccrualHoursWorked:
		if !p.AccrualRate.Amount.IsPositive() {
			return fmt.Errorf("policy %s: hours-worked accrual needs a positive rate", p.ID)
		}
	case AccrualManual, AccrualUnlimited:
		// No rate to check.
	default:
		return fmt.Errorf("policy %s: unknown accrual type %q", p.ID, p.AccrualType)
	}
	if p.NegativeBalanceLimit != nil && p.NegativeBalanceLimit.IsNegative() {
		return fmt.Errorf("policy %s: negative balance limit must be non-negative", p.ID)
	}
	return nil
}

// NewBalance creates the opening balance an employee holds under this
// policy. Unlimited policies get the sentinel; everything else starts at
// the given opening amount.
func (p Policy) NewBalance(employeeID engine.EmployeeID, opening engine.Amount) engine.Balance {
	if p.Unlimited() {
		return engine.UnlimitedBalance(employeeID, p.ID, p.Category)
	}
	return engine.Balance{
		EmployeeID: employeeID,
		PolicyID:   p.ID,
		Category:   p.Category,
		Available:  opening,
	}
}

// =============================================================================
// PERIODS
// =============================================================================

// Period is the balance boundary. Policies here use calendar years.
type Period struct {
	Start engine.Date
	End   engine.Date
}

func CalendarYear(year int) Period {
	return Period{
		Start: engine.NewDate(year, time.January, 1),
		End:   engine.NewDate(year, time.December, 31),
	}
}

func (p Period) Contains(d engine.Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

func (p Period) Next() Period { return CalendarYear(p.Start.Year() + 1) }
