/*
projection.go - Balance projection

PURPOSE:
  Projects the hypothetical post-request balance without touching the real
  one. The projector is linear in the requested amount; the only policy
  input is an optional negative-balance limit, which turns a negative
  projection from a warning into a hard validation failure.
*/
package engine

// Projection is the hypothetical balance after a request is approved.
type Projection struct {
	// Unlimited mirrors the balance sentinel: no numeric projection applies
	// and nothing blocks.
	Unlimited bool

	// Projected is Available - workingDays. Meaningless when Unlimited.
	Projected Amount

	// Negative flags a below-zero projection. Advisory on its own.
	Negative bool
}

// ProjectBalance computes the prospective balance after consuming
// workingDays. It never mutates the balance.
func ProjectBalance(balance Balance, workingDays Amount) Projection {
	if balance.Unlimited {
		return Projection{Unlimited: true}
	}
	projected := balance.Available.Sub(workingDays)
	return Projection{
		Projected: projected,
		Negative:  projected.IsNegative(),
	}
}

// CheckFloor validates a projection against a policy's negative-balance
// limit. A nil limit means negative projections are allowed (warning only).
// With a limit configured, projections below -limit return a
// *BalanceFloorError, which blocks submission.
func (p Projection) CheckFloor(balance Balance, negativeLimit *Amount) error {
	if p.Unlimited || negativeLimit == nil {
		return nil
	}
	floor := negativeLimit.Neg()
	if p.Projected.LessThan(floor) {
		return &BalanceFloorError{
			EmployeeID: balance.EmployeeID,
			PolicyID:   balance.PolicyID,
			Floor:      floor,
			Projected:  p.Projected,
		}
	}
	return nil
}
