/*
notice.go - Advance-notice rule evaluator

PURPOSE:
  Answers "was enough notice given for this request?" against the company's
  bucketed notice rules. The answer is advisory: a failing result never
  blocks submission, it surfaces a warning with the required and actual
  numbers plus the matched bucket's label.

EVALUATION ORDER:
  1. Sick leave with the exemption enabled is compliant unconditionally.
  2. Actual notice = whole-day count from today to the start date, both
     midnight-normalized.
  3. Buckets are scanned in list order; first match wins. That tie-break is
     observed policy, not a derived fact, and must be preserved.
  4. No matching bucket means no applicable requirement, which evaluates
     as compliant.

SEE ALSO:
  - settings.go: rule table and configuration-time validation
*/
package engine

// NoticeResult is the outcome of advance-notice evaluation. The detail
// fields are populated only when a bucket matched.
type NoticeResult struct {
	Compliant          bool
	RequiredNoticeDays int
	ActualNoticeDays   int
	MatchedBucketLabel string

	// Exempt is set when the sick-leave exemption short-circuited
	// evaluation.
	Exempt bool
}

// EvaluateNotice checks the requested duration against the settings' notice
// buckets. requestedDurationDays is the calculator's fractional working-day
// total; startDate and today are calendar days.
func EvaluateNotice(category Category, requestedDurationDays Amount, startDate, today Date, settings CompanySettings) NoticeResult {
	if category == CategorySickLeave && settings.SickLeaveExempt {
		return NoticeResult{Compliant: true, Exempt: true}
	}

	actual := DaysBetween(today, startDate)
	if actual < 0 {
		actual = 0
	}

	for _, rule := range settings.AdvanceNoticeRules {
		if !rule.Matches(requestedDurationDays) {
			continue
		}
		return NoticeResult{
			Compliant:          actual >= rule.RequiredNoticeDays,
			RequiredNoticeDays: rule.RequiredNoticeDays,
			ActualNoticeDays:   actual,
			MatchedBucketLabel: rule.Label(),
		}
	}

	// No applicable rule means no requirement.
	return NoticeResult{Compliant: true, ActualNoticeDays: actual}
}
