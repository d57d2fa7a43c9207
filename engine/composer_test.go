package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meridian/timeoff-engine/engine"
)

func composerCtx(available float64) engine.ComposerContext {
	return engine.ComposerContext{
		Settings: settings(),
		Balance:  testBalance(available),
		Today:    date(2025, time.March, 1),
	}
}

func TestDerive_EmptyForm_NothingEnteredYet(t *testing.T) {
	// GIVEN: A form with no dates
	// WHEN: Deriving
	// THEN: Zero summary, no warnings, submit disabled without a block reason

	out := engine.Derive(engine.FormState{Category: engine.CategoryVacation}, composerCtx(10))

	assert.True(t, out.Duration.IsZero())
	assert.False(t, out.CanSubmit)
	assert.Empty(t, out.BlockReason)
	assert.Empty(t, out.Warnings)
}

func TestDerive_ValidRequest_Submittable(t *testing.T) {
	// GIVEN: Thu-Mon full-mode request with plenty of balance and notice
	// WHEN: Deriving
	// THEN: 3 working days, projected 7, submit enabled

	form := engine.FormState{
		Category:  engine.CategoryVacation,
		StartDate: date(2025, time.April, 10),
		EndDate:   date(2025, time.April, 14),
		Mode:      engine.PartialFull,
	}

	out := engine.Derive(form, composerCtx(10))

	assertAmount(t, 3, out.Duration.WorkingDays)
	assertAmount(t, 7, out.Projection.Projected)
	assert.True(t, out.Notice.Compliant)
	assert.True(t, out.CanSubmit)
	assert.Empty(t, out.Warnings)
}

func TestDerive_WeekendOnlyRange_Blocked(t *testing.T) {
	form := engine.FormState{
		Category:  engine.CategoryVacation,
		StartDate: date(2025, time.April, 12), // Saturday
		EndDate:   date(2025, time.April, 13), // Sunday
		Mode:      engine.PartialFull,
	}

	out := engine.Derive(form, composerCtx(10))

	assert.False(t, out.CanSubmit)
	assert.Equal(t, engine.ErrZeroWorkingDays.Error(), out.BlockReason)
}

func TestDerive_InvertedRange_TreatedAsIncomplete(t *testing.T) {
	form := engine.FormState{
		Category:  engine.CategoryVacation,
		StartDate: date(2025, time.April, 14),
		EndDate:   date(2025, time.April, 10),
		Mode:      engine.PartialFull,
	}

	out := engine.Derive(form, composerCtx(10))

	assert.False(t, out.CanSubmit)
	assert.Empty(t, out.BlockReason, "mid-edit state is not an error")
}

func TestDerive_ShortNotice_WarnsButSubmits(t *testing.T) {
	// GIVEN: A 3-day request only 5 days out (1-3 bucket needs 14)
	// WHEN: Deriving
	// THEN: Warning carried, submission still allowed

	form := engine.FormState{
		Category:  engine.CategoryVacation,
		StartDate: date(2025, time.March, 5), // Wednesday, 4 days notice
		EndDate:   date(2025, time.March, 7),
		Mode:      engine.PartialFull,
	}

	out := engine.Derive(form, composerCtx(10))

	assert.False(t, out.Notice.Compliant)
	assert.True(t, out.CanSubmit, "notice failure is advisory only")
	assert.NotEmpty(t, out.Warnings)
	assert.Contains(t, out.Warnings[0], "1-3 day requests")
}

func TestDerive_NegativeProjection_WarnsWithoutLimit(t *testing.T) {
	form := engine.FormState{
		Category:  engine.CategoryVacation,
		StartDate: date(2025, time.June, 2),
		EndDate:   date(2025, time.June, 6),
		Mode:      engine.PartialFull,
	}

	out := engine.Derive(form, composerCtx(3)) // 5 days requested, 3 available

	assert.True(t, out.Projection.Negative)
	assert.True(t, out.CanSubmit)
	assert.NotEmpty(t, out.Warnings)
}

func TestDerive_NegativeLimitExceeded_Blocks(t *testing.T) {
	form := engine.FormState{
		Category:  engine.CategoryVacation,
		StartDate: date(2025, time.June, 2),
		EndDate:   date(2025, time.June, 6),
		Mode:      engine.PartialFull,
	}
	ctx := composerCtx(3)
	limit := engine.Days(1)
	ctx.NegativeBalanceLimit = &limit

	out := engine.Derive(form, ctx)

	assert.False(t, out.CanSubmit)
	assert.Contains(t, out.BlockReason, "floor")
}

func TestValidateSubmission(t *testing.T) {
	ctx := composerCtx(10)

	t.Run("weekend only range rejected", func(t *testing.T) {
		err := engine.ValidateSubmission(engine.FormState{
			Category:  engine.CategoryVacation,
			StartDate: date(2025, time.April, 12),
			EndDate:   date(2025, time.April, 13),
			Mode:      engine.PartialFull,
		}, ctx)
		assert.ErrorIs(t, err, engine.ErrZeroWorkingDays)
	})

	t.Run("unknown category rejected", func(t *testing.T) {
		err := engine.ValidateSubmission(engine.FormState{
			Category:  engine.Category("sabbatical"),
			StartDate: date(2025, time.April, 10),
			EndDate:   date(2025, time.April, 10),
			Mode:      engine.PartialFull,
		}, ctx)
		assert.ErrorIs(t, err, engine.ErrInvalidCategory)
	})

	t.Run("valid request passes", func(t *testing.T) {
		err := engine.ValidateSubmission(engine.FormState{
			Category:  engine.CategoryVacation,
			StartDate: date(2025, time.April, 10),
			EndDate:   date(2025, time.April, 10),
			Mode:      engine.PartialFull,
		}, ctx)
		assert.NoError(t, err)
	})
}
