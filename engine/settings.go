/*
settings.go - Company-wide settings consumed by the engine

PURPOSE:
  CompanySettings is the read-only context for every calculation: the work
  week, hours per work day, and the advance-notice rule table. The engine
  never mutates settings; administration of them lives with the caller.

ADVANCE NOTICE RULES:
  Rules are bucketed by requested duration in days:

    1-3 day requests  -> 14 days notice
    4-5 day requests  -> 28 days notice
    6+ day requests   -> 60 days notice

  Buckets should be contiguous and non-overlapping. Authoring tools may
  still produce gaps or overlaps, so ValidateNoticeRules detects both at
  configuration time; the evaluator itself applies first-match-wins.

SEE ALSO:
  - notice.go: rule evaluation at request time
*/
package engine

import (
	"fmt"
	"sort"
)

// =============================================================================
// NOTICE RULE - One advance-notice bucket
// =============================================================================

// NoticeRule maps a requested-duration range to a minimum lead time.
// MaxDays == nil means the bucket is unbounded above ("6+ day requests").
type NoticeRule struct {
	MinDays            int
	MaxDays            *int
	RequiredNoticeDays int
}

// Matches reports whether the requested duration falls into this bucket.
// Fractional durations match on their ceiling, so integer bucket bounds
// leave no unmatched seams: 2.5 days lands in the 1-3 bucket, 3.5 days in
// the 4-5 bucket.
func (r NoticeRule) Matches(durationDays Amount) bool {
	days := Amount{Value: durationDays.Value.Ceil(), Unit: UnitDays}
	if days.LessThan(NewAmountFromInt(r.MinDays, UnitDays)) {
		return false
	}
	if r.MaxDays != nil && days.GreaterThan(NewAmountFromInt(*r.MaxDays, UnitDays)) {
		return false
	}
	return true
}

// Label renders the bucket for display, e.g. "1-3 day requests" or
// "6+ day requests".
func (r NoticeRule) Label() string {
	if r.MaxDays == nil {
		return fmt.Sprintf("%d+ day requests", r.MinDays)
	}
	if r.MinDays == *r.MaxDays {
		return fmt.Sprintf("%d day requests", r.MinDays)
	}
	return fmt.Sprintf("%d-%d day requests", r.MinDays, *r.MaxDays)
}

// =============================================================================
// COMPANY SETTINGS
// =============================================================================

type CompanySettings struct {
	// HoursPerWorkDay converts hour totals to day totals. Default 8.
	HoursPerWorkDay Amount

	// WorkWeek is the set of weekdays that count as working days.
	WorkWeek WorkWeek

	// Holidays excludes company holidays from working days. Optional.
	Holidays HolidayCalendar

	// MinPartialHours is the smallest partial-day override accepted; values
	// at or below zero clamp up to this. Default 0.5.
	MinPartialHours Amount

	// AdvanceNoticeRules is scanned in order; first match wins.
	AdvanceNoticeRules []NoticeRule

	// SickLeaveExempt bypasses notice evaluation for sick leave entirely.
	SickLeaveExempt bool

	// ManagerOverride is informational only: requests failing notice still
	// submit, carrying a warning.
	ManagerOverride bool
}

// DefaultSettings mirrors the stock configuration: 8-hour days, Mon-Fri,
// the three stock notice buckets, and sick leave exempt.
func DefaultSettings() CompanySettings {
	three, five := 3, 5
	return CompanySettings{
		HoursPerWorkDay: Hours(8),
		WorkWeek:        StandardWorkWeek(),
		Holidays:        EmptyHolidayCalendar{},
		MinPartialHours: Hours(0.5),
		AdvanceNoticeRules: []NoticeRule{
			{MinDays: 1, MaxDays: &three, RequiredNoticeDays: 14},
			{MinDays: 4, MaxDays: &five, RequiredNoticeDays: 28},
			{MinDays: 6, MaxDays: nil, RequiredNoticeDays: 60},
		},
		SickLeaveExempt: true,
		ManagerOverride: true,
	}
}

func (s CompanySettings) hoursPerDay() Amount {
	if !s.HoursPerWorkDay.IsPositive() {
		return Hours(8)
	}
	return s.HoursPerWorkDay
}

func (s CompanySettings) minPartialHours() Amount {
	if !s.MinPartialHours.IsPositive() {
		return Hours(0.5)
	}
	return s.MinPartialHours
}

// =============================================================================
// NOTICE RULE VALIDATION - Configuration-time bucket coverage check
// =============================================================================

// ValidateNoticeRules checks the bucket table for overlaps and gaps.
// Returns a *PolicyConfigurationError describing every problem found, or nil.
//
// The evaluator tolerates a bad table (first match wins, no match means
// compliant); this check exists so misconfiguration is caught when rules are
// authored instead of silently defaulting at request time.
func ValidateNoticeRules(rules []NoticeRule) error {
	var problems []string

	for i, r := range rules {
		if r.MinDays < 1 {
			problems = append(problems, fmt.Sprintf("rule %d: minimum duration must be at least 1 day", i+1))
		}
		if r.MaxDays != nil && *r.MaxDays < r.MinDays {
			problems = append(problems, fmt.Sprintf("rule %d: maximum %d is below minimum %d", i+1, *r.MaxDays, r.MinDays))
		}
		if r.RequiredNoticeDays < 0 {
			problems = append(problems, fmt.Sprintf("rule %d: required notice cannot be negative", i+1))
		}
	}
	if len(problems) > 0 {
		return &PolicyConfigurationError{Problems: problems}
	}
	if len(rules) == 0 {
		return nil
	}

	sorted := make([]NoticeRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinDays < sorted[j].MinDays })

	if sorted[0].MinDays > 1 {
		problems = append(problems, fmt.Sprintf("gap below %q: durations 1-%d have no rule",
			sorted[0].Label(), sorted[0].MinDays-1))
	}

	unboundedSeen := false
	for i := 0; i < len(sorted); i++ {
		cur := sorted[i]
		if unboundedSeen {
			problems = append(problems, fmt.Sprintf("bucket %q overlaps an unbounded bucket", cur.Label()))
			continue
		}
		if cur.MaxDays == nil {
			unboundedSeen = true
		}
		if i == len(sorted)-1 {
			break
		}
		next := sorted[i+1]
		switch {
		case cur.MaxDays == nil:
			problems = append(problems, fmt.Sprintf("bucket %q overlaps %q", cur.Label(), next.Label()))
		case next.MinDays <= *cur.MaxDays:
			problems = append(problems, fmt.Sprintf("bucket %q overlaps %q", cur.Label(), next.Label()))
		case next.MinDays > *cur.MaxDays+1:
			problems = append(problems, fmt.Sprintf("gap between %q and %q: durations %d-%d have no rule",
				cur.Label(), next.Label(), *cur.MaxDays+1, next.MinDays-1))
		}
	}

	if len(problems) > 0 {
		return &PolicyConfigurationError{Problems: problems}
	}
	return nil
}
