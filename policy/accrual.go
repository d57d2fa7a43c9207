package policy

// =============================================================================
// ACCRUAL SCHEDULE - How balance accumulates over time
// =============================================================================

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meridian/timeoff-engine/engine"
)

// AccrualEvent is one accrual occurrence, ready to be granted through the
// ledger.
type AccrualEvent struct {
	At     engine.Date
	Amount engine.Amount
	Reason string
}

// Schedule generates accrual events for a date range.
//
// Deterministic schedules (time-based) can predict future accruals;
// non-deterministic ones (hours-worked) only produce events for work that
// has already been reported.
type Schedule interface {
	GenerateAccruals(from, to engine.Date) []AccrualEvent
	IsDeterministic() bool
}

// ScheduleFor builds the schedule implied by a policy's accrual type.
// Manual and unlimited policies return nil: nothing accrues on its own.
func ScheduleFor(p Policy) Schedule {
	switch p.AccrualType {
	case AccrualTimeBased:
		return &TimeBasedSchedule{Rate: p.AccrualRate}
	case AccrualHoursWorked:
		return &HoursWorkedSchedule{DaysPerHourWorked: p.AccrualRate.Amount}
	default:
		return nil
	}
}

// =============================================================================
// TIME-BASED SCHEDULE - Fixed rate per month or year
// =============================================================================

// TimeBasedSchedule accrues on the first of each month. Yearly rates are
// spread evenly across twelve monthly events.
type TimeBasedSchedule struct {
	Rate AccrualRate
}

func (s *TimeBasedSchedule) IsDeterministic() bool { return true }

func (s *TimeBasedSchedule) GenerateAccruals(from, to engine.Date) []AccrualEvent {
	monthly := s.Rate.Amount
	if s.Rate.Per == PerYear {
		monthly = s.Rate.Amount.Div(decimal.NewFromInt(12))
	}

	var events []AccrualEvent
	current := engine.NewDate(from.Year(), from.Month(), 1)
	if current.Before(from) {
		current = current.AddMonths(1)
	}
	for current.BeforeOrEqual(to) {
		events = append(events, AccrualEvent{
			At:     current,
			Amount: engine.Amount{Value: monthly.Value, Unit: engine.UnitDays},
			Reason: fmt.Sprintf("monthly accrual %s", current),
		})
		current = current.AddMonths(1)
	}
	return events
}

// =============================================================================
// HOURS-WORKED SCHEDULE - Earned per hour actually worked
// =============================================================================

// HoursWorkedSchedule is non-deterministic: accruals exist only once hours
// are reported, so generating over a range yields nothing.
type HoursWorkedSchedule struct {
	// DaysPerHourWorked converts reported hours into accrued days,
	// e.g. 0.005 days per hour (~1 day per 200h).
	DaysPerHourWorked engine.Amount
}

func (s *HoursWorkedSchedule) IsDeterministic() bool { return false }

func (s *HoursWorkedSchedule) GenerateAccruals(from, to engine.Date) []AccrualEvent {
	return nil
}

// AccrueForHours converts a reported block of worked hours into the accrual
// it earns.
func (s *HoursWorkedSchedule) AccrueForHours(at engine.Date, hoursWorked engine.Amount) AccrualEvent {
	earned := s.DaysPerHourWorked.Mul(hoursWorked.Value)
	return AccrualEvent{
		At:     at,
		Amount: engine.Amount{Value: earned.Value, Unit: engine.UnitDays},
		Reason: fmt.Sprintf("accrual for %s hours worked", hoursWorked.Value),
	}
}
