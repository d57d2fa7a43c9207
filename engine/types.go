/*
Package engine implements the time-off duration and balance engine.

PURPOSE:
  This package contains the pure computation core of the system: given a
  request's category, date range, per-day hour overrides, and the employee's
  balance/company-settings context it produces total working days, total
  hours, a projected balance, and advance-notice compliance.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 3 days, 4.5 hours)
  - Category: The kind of time off being requested (vacation, sick, ...)
  - Balance: An employee's remaining allowance under one policy

DESIGN PRINCIPLES:
  1. Purity: every computation is a function of its inputs; the engine
     never mutates a Balance, it only projects hypothetical values
  2. Precision: uses decimal.Decimal to avoid floating-point errors in
     partial-day accounting (a 4h day on an 8h schedule is exactly 0.5 days)
  3. Type Safety: strong typing for employee/policy identifiers

USAGE:
  d := engine.ComputeDuration(start, end, settings, engine.PartialFull, engine.PartialDayParams{})
  p := engine.ProjectBalance(balance, d.WorkingDays)

SEE ALSO:
  - duration.go: working-day/hour calculator
  - notice.go: advance-notice rule evaluator
  - projection.go: balance projection
  - composer.go: form-state reducer tying the three together
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays  Unit = "days"
	UnitHours Unit = "hours"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

func Days(n float64) Amount  { return NewAmount(n, UnitDays) }
func Hours(n float64) Amount { return NewAmount(n, UnitHours) }

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Div(s decimal.Decimal) Amount { return Amount{Value: a.Value.Div(s), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) String() string               { return a.Value.String() + " " + string(a.Unit) }

// Clamp limits a into [lo, hi].
func (a Amount) Clamp(lo, hi Amount) Amount {
	if a.LessThan(lo) {
		return lo
	}
	if a.GreaterThan(hi) {
		return hi
	}
	return a
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type PolicyID string

// =============================================================================
// CATEGORY - Kind of time off requested
// =============================================================================

// Category determines which Balance and which notice-exemption rule applies.
type Category string

const (
	CategoryVacation  Category = "vacation"
	CategorySickLeave Category = "sick_leave"
	CategoryPersonal  Category = "personal" // unpaid personal time
	CategoryOther     Category = "other"
)

// KnownCategories lists every valid category, in display order.
var KnownCategories = []Category{
	CategoryVacation,
	CategorySickLeave,
	CategoryPersonal,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, k := range KnownCategories {
		if c == k {
			return true
		}
	}
	return false
}

// =============================================================================
// BALANCE - Remaining allowance under one policy
// =============================================================================

// Balance belongs to one employee and one policy. Available is never mutated
// by the engine; only the approval workflow and manual adjustments change it,
// through the ledger.
type Balance struct {
	EmployeeID EmployeeID
	PolicyID   PolicyID
	Category   Category

	// Remaining days. Meaningless when Unlimited is set.
	Available Amount

	// Unlimited is the "no numeric cap" sentinel: projections against an
	// unlimited balance are always non-blocking.
	Unlimited bool

	// Version supports optimistic concurrency in persistent stores.
	Version int64
}

// UnlimitedBalance constructs the unlimited sentinel for an employee+policy.
func UnlimitedBalance(employeeID EmployeeID, policyID PolicyID, category Category) Balance {
	return Balance{
		EmployeeID: employeeID,
		PolicyID:   policyID,
		Category:   category,
		Available:  Days(0),
		Unlimited:  true,
	}
}
