/*
composer.go - Request composer reducer

PURPOSE:
  The request form recomputes derived state on every edit: duration,
  notice compliance, projected balance, warnings, and whether the submit
  action is allowed. This file expresses that as a pure FormState ->
  DerivedState reducer, callable without any UI, so the calculator,
  notice evaluator, and projector are exercised together exactly as the
  form does.

SUBMISSION RULES:
  - workingDays > 0 is a hard precondition.
  - A projection below the policy's negative-balance floor blocks.
  - A negative (but above-floor) projection only warns.
  - Notice non-compliance only warns; it never blocks.
*/
package engine

import "fmt"

// =============================================================================
// FORM STATE - What the user has entered
// =============================================================================

type FormState struct {
	Category  Category
	StartDate Date
	EndDate   Date
	Mode      PartialDayMode
	Params    PartialDayParams
	Note      string
}

// ComposerContext is the employee/policy context the form was opened with.
type ComposerContext struct {
	Settings CompanySettings
	Balance  Balance

	// NegativeBalanceLimit comes from the policy backing the balance;
	// nil means negative projections are allowed.
	NegativeBalanceLimit *Amount

	// Today anchors notice evaluation. Injected so the reducer stays pure.
	Today Date
}

// =============================================================================
// DERIVED STATE - What the form renders
// =============================================================================

type DerivedState struct {
	Duration   Duration
	Notice     NoticeResult
	Projection Projection

	// Warnings are advisory messages shown next to the summary panel.
	Warnings []string

	// CanSubmit gates the submit button. BlockReason explains a false
	// value; it is empty while the form is simply incomplete.
	CanSubmit   bool
	BlockReason string
}

// =============================================================================
// REDUCER
// =============================================================================

// Derive recomputes everything the form shows from the current form state.
// It is a pure function: same inputs, same outputs, no side effects.
func Derive(form FormState, ctx ComposerContext) DerivedState {
	out := DerivedState{
		Duration: ComputeDuration(form.StartDate, form.EndDate, ctx.Settings, form.Mode, form.Params),
	}

	if form.StartDate.IsZero() || form.EndDate.IsZero() {
		// Nothing entered yet: zero summary, no warnings, submit disabled.
		out.Projection = ProjectBalance(ctx.Balance, Days(0))
		return out
	}

	out.Notice = EvaluateNotice(form.Category, out.Duration.WorkingDays, form.StartDate, ctx.Today, ctx.Settings)
	out.Projection = ProjectBalance(ctx.Balance, out.Duration.WorkingDays)

	if !form.Category.Valid() {
		out.BlockReason = ErrInvalidCategory.Error()
		return out
	}

	if out.Duration.IsZero() {
		if form.StartDate.After(form.EndDate) {
			// Treated as "nothing entered yet", per the calculator contract.
			return out
		}
		out.BlockReason = ErrZeroWorkingDays.Error()
		return out
	}

	if !out.Notice.Compliant {
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"%s require %d days notice; only %d given",
			out.Notice.MatchedBucketLabel, out.Notice.RequiredNoticeDays, out.Notice.ActualNoticeDays))
	}

	if err := out.Projection.CheckFloor(ctx.Balance, ctx.NegativeBalanceLimit); err != nil {
		out.BlockReason = err.Error()
		return out
	}

	if out.Projection.Negative {
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"this request takes the balance to %s days", out.Projection.Projected.Value))
	}

	out.CanSubmit = true
	return out
}

// ValidateSubmission re-checks the hard preconditions at submit time and
// returns the validation error the UI should surface, or nil.
func ValidateSubmission(form FormState, ctx ComposerContext) error {
	if !form.Category.Valid() {
		return ErrInvalidCategory
	}
	d := ComputeDuration(form.StartDate, form.EndDate, ctx.Settings, form.Mode, form.Params)
	if d.IsZero() {
		return ErrZeroWorkingDays
	}
	return ProjectBalance(ctx.Balance, d.WorkingDays).CheckFloor(ctx.Balance, ctx.NegativeBalanceLimit)
}
