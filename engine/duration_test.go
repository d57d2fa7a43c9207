package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/timeoff-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(y int, m time.Month, d int) engine.Date { return engine.NewDate(y, m, d) }

func settings() engine.CompanySettings { return engine.DefaultSettings() }

func assertAmount(t *testing.T, want float64, got engine.Amount) {
	t.Helper()
	assert.True(t, got.Value.Equal(engine.NewAmount(want, got.Unit).Value),
		"want %v, got %v", want, got.Value)
}

// =============================================================================
// WORKING-DAY COUNTING
// =============================================================================

func TestComputeDuration_SingleFullDay(t *testing.T) {
	// GIVEN: A single working day, full mode, 8-hour schedule
	// WHEN: Computing duration
	// THEN: Exactly 1 working day and 8 hours

	d := engine.ComputeDuration(
		date(2025, time.April, 10), date(2025, time.April, 10),
		settings(), engine.PartialFull, engine.PartialDayParams{})

	assertAmount(t, 1, d.WorkingDays)
	assertAmount(t, 8, d.TotalHours)
	require.Len(t, d.Breakdown, 1)
	assert.False(t, d.Breakdown[0].NonWorkingDay)
}

func TestComputeDuration_WeekendExcluded(t *testing.T) {
	// GIVEN: Thursday 2025-04-10 through Monday 2025-04-14, default work week
	// WHEN: Computing duration in full mode
	// THEN: Thu, Fri, Mon count; Sat/Sun are flagged non-working

	d := engine.ComputeDuration(
		date(2025, time.April, 10), date(2025, time.April, 14),
		settings(), engine.PartialFull, engine.PartialDayParams{})

	assertAmount(t, 3, d.WorkingDays)
	assertAmount(t, 24, d.TotalHours)

	require.Len(t, d.Breakdown, 5)
	assert.False(t, d.Breakdown[0].NonWorkingDay, "Thursday")
	assert.False(t, d.Breakdown[1].NonWorkingDay, "Friday")
	assert.True(t, d.Breakdown[2].NonWorkingDay, "Saturday")
	assert.True(t, d.Breakdown[3].NonWorkingDay, "Sunday")
	assert.False(t, d.Breakdown[4].NonWorkingDay, "Monday")
	assertAmount(t, 0, d.Breakdown[2].Hours)
}

func TestComputeDuration_SingleSaturday_ZeroWorkingDays(t *testing.T) {
	// GIVEN: A range covering exactly one Saturday
	// WHEN: Computing duration
	// THEN: Zero working days, but the day still appears in the breakdown

	sat := date(2025, time.April, 12)
	d := engine.ComputeDuration(sat, sat, settings(), engine.PartialFull, engine.PartialDayParams{})

	assert.True(t, d.IsZero())
	assertAmount(t, 0, d.WorkingDays)
	require.Len(t, d.Breakdown, 1)
	assert.True(t, d.Breakdown[0].NonWorkingDay)
}

func TestComputeDuration_InvertedRange_ZeroNotError(t *testing.T) {
	// GIVEN: start > end (user mid-edit)
	// WHEN: Computing duration
	// THEN: Zero everything, empty breakdown, no error

	d := engine.ComputeDuration(
		date(2025, time.April, 14), date(2025, time.April, 10),
		settings(), engine.PartialFull, engine.PartialDayParams{})

	assert.True(t, d.IsZero())
	assertAmount(t, 0, d.TotalHours)
	assert.Empty(t, d.Breakdown)
}

func TestComputeDuration_CustomWorkWeek_SaturdayCounts(t *testing.T) {
	// GIVEN: A six-day work week (Mon-Sat)
	// WHEN: Computing Fri-Sun
	// THEN: Fri and Sat count, Sun does not

	s := settings()
	s.WorkWeek = engine.SixDayWorkWeek()

	d := engine.ComputeDuration(
		date(2025, time.April, 11), date(2025, time.April, 13),
		s, engine.PartialFull, engine.PartialDayParams{})

	assertAmount(t, 2, d.WorkingDays)
}

type singleHoliday struct{ day engine.Date }

func (h singleHoliday) IsHoliday(d engine.Date) bool { return d.Equal(h.day) }

func TestComputeDuration_HolidayExcluded(t *testing.T) {
	// GIVEN: A holiday on Friday 2025-04-11
	// WHEN: Computing Thu-Fri
	// THEN: Only Thursday counts

	s := settings()
	s.Holidays = singleHoliday{day: date(2025, time.April, 11)}

	d := engine.ComputeDuration(
		date(2025, time.April, 10), date(2025, time.April, 11),
		s, engine.PartialFull, engine.PartialDayParams{})

	assertAmount(t, 1, d.WorkingDays)
	assert.True(t, d.Breakdown[1].NonWorkingDay)
}

// =============================================================================
// PARTIAL-DAY MODES
// =============================================================================

func TestComputeDuration_UniformMode_HalfDays(t *testing.T) {
	// GIVEN: Mon-Fri with a uniform 4-hour override on an 8-hour schedule
	// WHEN: Computing duration
	// THEN: 5 working days at 4h = 20h = 2.5 days

	d := engine.ComputeDuration(
		date(2025, time.April, 7), date(2025, time.April, 11),
		settings(), engine.PartialUniform,
		engine.PartialDayParams{SameHoursPerDay: engine.Hours(4)})

	assertAmount(t, 2.5, d.WorkingDays)
	assertAmount(t, 20, d.TotalHours)
}

func TestComputeDuration_EdgesMode_OverridesFirstAndLast(t *testing.T) {
	// GIVEN: Mon-Wed with 4h first day and 2h last day
	// WHEN: Computing in edges mode
	// THEN: 4 + 8 + 2 = 14 hours = 1.75 days

	d := engine.ComputeDuration(
		date(2025, time.April, 7), date(2025, time.April, 9),
		settings(), engine.PartialEdges,
		engine.PartialDayParams{FirstDayHours: engine.Hours(4), LastDayHours: engine.Hours(2)})

	assertAmount(t, 14, d.TotalHours)
	assertAmount(t, 1.75, d.WorkingDays)
	assertAmount(t, 4, d.Breakdown[0].Hours)
	assertAmount(t, 8, d.Breakdown[1].Hours)
	assertAmount(t, 2, d.Breakdown[2].Hours)
}

func TestComputeDuration_EdgesMode_SingleDay_FirstOverrideWins(t *testing.T) {
	// GIVEN: A single working day with conflicting first/last overrides
	// WHEN: Computing in edges mode
	// THEN: The first-day override applies alone; last-day is ignored

	d := engine.ComputeDuration(
		date(2025, time.April, 7), date(2025, time.April, 7),
		settings(), engine.PartialEdges,
		engine.PartialDayParams{FirstDayHours: engine.Hours(3), LastDayHours: engine.Hours(6)})

	assertAmount(t, 3, d.TotalHours)
}

func TestComputeDuration_EdgesMode_WeekendEdges_OverridesLandOnWorkingDays(t *testing.T) {
	// GIVEN: Sat-Tue range, so the first calendar day is non-working
	// WHEN: Computing in edges mode with a 4h first-day override
	// THEN: The override lands on Monday (the first WORKING day)

	d := engine.ComputeDuration(
		date(2025, time.April, 12), date(2025, time.April, 15),
		settings(), engine.PartialEdges,
		engine.PartialDayParams{FirstDayHours: engine.Hours(4), LastDayHours: engine.Hours(8)})

	require.Len(t, d.Breakdown, 4)
	assert.True(t, d.Breakdown[0].NonWorkingDay, "Saturday")
	assertAmount(t, 4, d.Breakdown[2].Hours) // Monday
	assertAmount(t, 8, d.Breakdown[3].Hours) // Tuesday
}

// =============================================================================
// OVERRIDE CLAMPING
// =============================================================================

func TestComputeDuration_OverrideClamping(t *testing.T) {
	tests := []struct {
		name      string
		override  float64
		wantHours float64
	}{
		{"zero clamps to minimum granularity", 0, 0.5},
		{"negative clamps to minimum granularity", -3, 0.5},
		{"above schedule clamps to schedule", 12, 8},
		{"in range passes through", 6, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.ComputeDuration(
				date(2025, time.April, 7), date(2025, time.April, 7),
				settings(), engine.PartialUniform,
				engine.PartialDayParams{SameHoursPerDay: engine.Hours(tt.override)})

			assertAmount(t, tt.wantHours, d.TotalHours)
		})
	}
}
