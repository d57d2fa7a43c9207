/*
duration.go - Working-day / hour calculator

PURPOSE:
  Computes the duration of a requested date range: which days count as
  working days, how many hours each carries under the active partial-day
  mode, and the fractional working-day total.

ALGORITHM:
  1. start > end yields a zero duration with an empty breakdown. This is
     not an error: the form treats it as "nothing entered yet".
  2. Every calendar day in [start, end] gets a breakdown entry. Days whose
     weekday is outside the work week (or that are holidays) are flagged
     non-working and carry zero hours.
  3. Working days get hours from the partial-day mode:
       full:    every working day = hoursPerWorkDay
       edges:   first/last working day carry independent overrides,
                interior days = hoursPerWorkDay
       uniform: every working day = one override value
     Overrides are clamped into (0, hoursPerWorkDay] at the point of entry;
     zero and negative values clamp up to the minimum granularity.
  4. workingDays = totalHours / hoursPerWorkDay, so a single 4-hour day on
     an 8-hour schedule is exactly 0.5 days.

EDGE CASES:
  A range of only non-working days (one Saturday) yields workingDays = 0.
  Blocking submission on that is the composer's job, not the calculator's.
*/
package engine

// =============================================================================
// PARTIAL-DAY MODES
// =============================================================================

// PartialDayMode selects how hours are assigned to working days.
// The three modes are mutually exclusive.
type PartialDayMode string

const (
	// PartialFull gives every working day the full scheduled hours.
	PartialFull PartialDayMode = "full"

	// PartialEdges lets the first and last working day carry independent
	// hour overrides; interior days stay full.
	PartialEdges PartialDayMode = "edges"

	// PartialUniform applies one override value to every working day.
	PartialUniform PartialDayMode = "uniform"
)

// PartialDayParams carries the override values for the active mode.
// Only the fields for that mode are read.
type PartialDayParams struct {
	FirstDayHours   Amount // edges
	LastDayHours    Amount // edges
	SameHoursPerDay Amount // uniform
}

// =============================================================================
// DURATION RESULT
// =============================================================================

// DayEntry is one calendar day of the breakdown, in calendar order.
// Non-working days are included for display but carry zero hours.
type DayEntry struct {
	Date          Date
	Hours         Amount
	NonWorkingDay bool
}

// Duration is the calculator's output.
type Duration struct {
	WorkingDays Amount // fractional days
	TotalHours  Amount
	Breakdown   []DayEntry
}

// IsZero reports a duration with no working time, either because the range
// was empty/inverted or because it covered only non-working days.
func (d Duration) IsZero() bool { return !d.WorkingDays.IsPositive() }

// =============================================================================
// CALCULATOR
// =============================================================================

// ComputeDuration walks [start, end] inclusive and produces the working-day
// and hour totals with a per-day breakdown.
func ComputeDuration(start, end Date, settings CompanySettings, mode PartialDayMode, params PartialDayParams) Duration {
	hoursPerDay := settings.hoursPerDay()
	zero := Duration{
		WorkingDays: Days(0),
		TotalHours:  Hours(0),
	}

	if start.IsZero() || end.IsZero() || start.After(end) {
		return zero
	}

	// First pass: classify days so edge overrides know which working day is
	// first and which is last.
	var breakdown []DayEntry
	workingIdx := make([]int, 0, DaysBetween(start, end)+1)
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		working := d.IsWorkingDay(settings.WorkWeek, settings.Holidays)
		if working {
			workingIdx = append(workingIdx, len(breakdown))
		}
		breakdown = append(breakdown, DayEntry{
			Date:          d,
			Hours:         Hours(0),
			NonWorkingDay: !working,
		})
	}

	if len(workingIdx) == 0 {
		zero.Breakdown = breakdown
		return zero
	}

	// Second pass: assign hours per mode.
	total := Hours(0)
	for n, idx := range workingIdx {
		h := hoursPerDay
		switch mode {
		case PartialEdges:
			switch {
			case n == 0:
				// A single working day takes the first-day override alone;
				// the last-day override is ignored.
				h = clampPartial(params.FirstDayHours, settings)
			case n == len(workingIdx)-1:
				h = clampPartial(params.LastDayHours, settings)
			}
		case PartialUniform:
			h = clampPartial(params.SameHoursPerDay, settings)
		}
		breakdown[idx].Hours = h
		total = total.Add(h)
	}

	return Duration{
		WorkingDays: Amount{Value: total.Value.Div(hoursPerDay.Value), Unit: UnitDays},
		TotalHours:  total,
		Breakdown:   breakdown,
	}
}

// clampPartial coerces a per-day override into (0, hoursPerWorkDay].
// Explicit clamping is the one place the engine silently corrects input.
func clampPartial(h Amount, settings CompanySettings) Amount {
	hi := settings.hoursPerDay()
	lo := settings.minPartialHours()
	if lo.GreaterThan(hi) {
		lo = hi
	}
	return Amount{Value: h.Value, Unit: UnitHours}.Clamp(lo, hi)
}
