/*
carryover.go - Period-end carryover reconciliation

PURPOSE:
  At period end the remaining balance either rolls into the next period
  (up to an optional cap) or expires. The result is expressed as two
  amounts, both non-negative, so the caller can record them as ledger
  entries: a carryover grant dated the first day of the next period and
  an expiry dated the last day of the ending one.
*/
package policy

import "github.com/meridian/timeoff-engine/engine"

// CarryoverResult summarizes a period-end reconciliation.
type CarryoverResult struct {
	Carried engine.Amount
	Expired engine.Amount
}

// ApplyCarryover splits a period-end balance into carried and expired
// portions per the rule. Negative or zero balances carry nothing and
// expire nothing: debt is not erased by the new year.
func ApplyCarryover(remaining engine.Amount, rule CarryoverRule) CarryoverResult {
	zero := engine.Days(0)
	if !remaining.IsPositive() {
		return CarryoverResult{Carried: zero, Expired: zero}
	}

	if !rule.Allowed {
		return CarryoverResult{Carried: zero, Expired: remaining}
	}

	carried := remaining
	if rule.MaxDays != nil && carried.GreaterThan(*rule.MaxDays) {
		carried = *rule.MaxDays
	}
	return CarryoverResult{
		Carried: carried,
		Expired: remaining.Sub(carried),
	}
}
