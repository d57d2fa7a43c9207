package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/timeoff-engine/directory"
	"github.com/meridian/timeoff-engine/engine"
	"github.com/meridian/timeoff-engine/ledger"
	"github.com/meridian/timeoff-engine/policy"
	"github.com/meridian/timeoff-engine/store/memory"
	"github.com/meridian/timeoff-engine/workflow"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixedSettings struct{ s engine.CompanySettings }

func (f fixedSettings) Current() engine.CompanySettings { return f.s }

type fixture struct {
	svc   *workflow.Service
	store *memory.Store
	dir   *directory.InMemory
}

// March 1, 2025 is "today" throughout these tests.
var testNow = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	dir := directory.NewInMemory()

	require.NoError(t, dir.SaveEmployee(ctx, directory.Employee{
		ID:       "emp-1",
		Name:     "Avery Chen",
		Email:    "avery@example.com",
		Role:     directory.RoleEmployee,
		HireDate: engine.NewDate(2023, time.May, 1),
	}))

	limit := engine.Days(2)
	require.NoError(t, dir.SavePolicy(ctx, policy.Policy{
		ID:                   "vacation-standard",
		Name:                 "Standard Vacation",
		Category:             engine.CategoryVacation,
		AccrualType:          policy.AccrualTimeBased,
		AccrualRate:          policy.AccrualRate{Amount: engine.Days(1.25), Per: policy.PerMonth},
		Eligibility:          policy.EligibilityRule{Kind: policy.EligibleAfterProbation},
		NegativeBalanceLimit: &limit,
	}))

	require.NoError(t, store.SaveBalance(ctx, engine.Balance{
		EmployeeID: "emp-1",
		PolicyID:   "vacation-standard",
		Category:   engine.CategoryVacation,
		Available:  engine.Days(10),
	}))

	svc := &workflow.Service{
		Requests:  store,
		Ledger:    ledger.NewService(store),
		Balances:  store,
		Policies:  dir,
		Employees: dir,
		Settings:  fixedSettings{s: engine.DefaultSettings()},
		Now:       func() time.Time { return testNow },
	}
	return &fixture{svc: svc, store: store, dir: dir}
}

func submitInput(start, end engine.Date) workflow.SubmitInput {
	return workflow.SubmitInput{
		EmployeeID: "emp-1",
		PolicyID:   "vacation-standard",
		Form: engine.FormState{
			StartDate: start,
			EndDate:   end,
			Mode:      engine.PartialFull,
			Note:      "spring trip",
		},
	}
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmit_CreatesPendingWithDerivedDuration(t *testing.T) {
	// GIVEN: Thu 2025-04-10 through Mon 2025-04-14
	// WHEN: Submitting
	// THEN: Pending request with 3 working days / 24 hours derived

	f := newFixture(t)

	req, err := f.svc.Submit(context.Background(),
		submitInput(engine.NewDate(2025, time.April, 10), engine.NewDate(2025, time.April, 14)))

	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPending, req.Status)
	assert.True(t, req.WorkingDays.Equal(engine.Days(3)))
	assert.True(t, req.TotalHours.Equal(engine.Hours(24)))
	assert.Equal(t, engine.CategoryVacation, req.Category)
	assert.True(t, req.Notice.Compliant)
	assert.NotEmpty(t, req.ID)
}

func TestSubmit_ShortNotice_SubmitsWithWarningRecorded(t *testing.T) {
	// Notice non-compliance is advisory: the request still submits and
	// carries the evaluation result.

	f := newFixture(t)

	req, err := f.svc.Submit(context.Background(),
		submitInput(engine.NewDate(2025, time.March, 5), engine.NewDate(2025, time.March, 7)))

	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPending, req.Status)
	assert.False(t, req.Notice.Compliant)
	assert.Equal(t, 14, req.Notice.RequiredNoticeDays)
	assert.Equal(t, 4, req.Notice.ActualNoticeDays)
}

func TestSubmit_WeekendOnly_Rejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(),
		submitInput(engine.NewDate(2025, time.April, 12), engine.NewDate(2025, time.April, 13)))

	assert.ErrorIs(t, err, engine.ErrZeroWorkingDays)
}

func TestSubmit_BeyondNegativeLimit_Rejected(t *testing.T) {
	// GIVEN: 10 available, negative limit 2 (floor -2)
	// WHEN: Requesting 13 working days
	// THEN: Blocked by the balance floor

	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(),
		submitInput(engine.NewDate(2025, time.June, 2), engine.NewDate(2025, time.June, 18)))

	assert.ErrorIs(t, err, engine.ErrBalanceFloor)
}

func TestSubmit_BeforeEligibility_Rejected(t *testing.T) {
	// GIVEN: An employee hired 30 days ago under a probation policy
	// WHEN: Submitting
	// THEN: Rejected as not eligible

	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.dir.SaveEmployee(ctx, directory.Employee{
		ID:       "emp-2",
		Name:     "Noor Haddad",
		HireDate: engine.NewDate(2025, time.February, 1),
	}))
	require.NoError(t, f.store.SaveBalance(ctx, engine.Balance{
		EmployeeID: "emp-2",
		PolicyID:   "vacation-standard",
		Category:   engine.CategoryVacation,
		Available:  engine.Days(5),
	}))

	in := submitInput(engine.NewDate(2025, time.April, 10), engine.NewDate(2025, time.April, 10))
	in.EmployeeID = "emp-2"
	_, err := f.svc.Submit(ctx, in)

	assert.ErrorIs(t, err, workflow.ErrNotEligible)
}

// =============================================================================
// APPROVAL
// =============================================================================

func TestApprove_StampsAndDebits(t *testing.T) {
	// GIVEN: A pending 3-day request
	// WHEN: The manager approves
	// THEN: Approved with approver+timestamp, balance debited 10 -> 7,
	//       and the ledger references the request

	f := newFixture(t)
	ctx := context.Background()
	req, err := f.svc.Submit(ctx,
		submitInput(engine.NewDate(2025, time.April, 10), engine.NewDate(2025, time.April, 14)))
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, req.ID, "mgr-1")

	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, approved.Status)
	assert.Equal(t, "mgr-1", approved.DecidedBy)
	require.NotNil(t, approved.DecidedAt)
	assert.Equal(t, testNow, *approved.DecidedAt)

	b, err := f.store.Balance(ctx, "emp-1", "vacation-standard")
	require.NoError(t, err)
	assert.True(t, b.Available.Equal(engine.Days(7)))

	entries, err := f.store.Entries(ctx, "emp-1", "vacation-standard")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.KindDebit, entries[0].Kind)
	assert.Equal(t, string(req.ID), entries[0].ReferenceID)
}

func TestApprove_NonPending_Rejected(t *testing.T) {
	// Terminal states are final: no transition out of Approved or Denied.

	f := newFixture(t)
	ctx := context.Background()
	req, err := f.svc.Submit(ctx,
		submitInput(engine.NewDate(2025, time.April, 10), engine.NewDate(2025, time.April, 10)))
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, req.ID, "mgr-1")
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, req.ID, "mgr-2")
	assert.ErrorIs(t, err, workflow.ErrNotPending)

	_, err = f.svc.Deny(ctx, req.ID, "mgr-2", "changed my mind")
	assert.ErrorIs(t, err, workflow.ErrNotPending)
}

func TestApprove_ConcurrentDecisions_SingleDebit(t *testing.T) {
	// GIVEN: One pending 3-day request and two managers racing to approve
	// WHEN: Both approvals run concurrently
	// THEN: Exactly one wins; the balance is debited once, not twice

	f := newFixture(t)
	ctx := context.Background()
	req, err := f.svc.Submit(ctx,
		submitInput(engine.NewDate(2025, time.April, 10), engine.NewDate(2025, time.April, 14)))
	require.NoError(t, err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, mgr := range []string{"mgr-1", "mgr-2"} {
		wg.Add(1)
		go func(approver string) {
			defer wg.Done()
			_, err := f.svc.Approve(ctx, req.ID, approver)
			errs <- err
		}(mgr)
	}
	wg.Wait()
	close(errs)

	var won, lost int
	for err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, workflow.ErrNotPending)
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	b, err := f.store.Balance(ctx, "emp-1", "vacation-standard")
	require.NoError(t, err)
	assert.True(t, b.Available.Equal(engine.Days(7)))

	entries, err := f.store.Entries(ctx, "emp-1", "vacation-standard")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestApprove_UnlimitedBalance_NoDebit(t *testing.T) {
	// GIVEN: An unlimited unpaid-time policy
	// WHEN: Approving a request against it
	// THEN: Approval succeeds and no ledger entry is written

	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.dir.SavePolicy(ctx, policy.Policy{
		ID:          "unpaid",
		Name:        "Unpaid Personal",
		Category:    engine.CategoryPersonal,
		AccrualType: policy.AccrualUnlimited,
		Eligibility: policy.EligibilityRule{Kind: policy.EligibleFromHireDate},
	}))
	require.NoError(t, f.store.SaveBalance(ctx,
		engine.UnlimitedBalance("emp-1", "unpaid", engine.CategoryPersonal)))

	in := submitInput(engine.NewDate(2025, time.April, 10), engine.NewDate(2025, time.April, 10))
	in.PolicyID = "unpaid"
	req, err := f.svc.Submit(ctx, in)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, req.ID, "mgr-1")
	require.NoError(t, err)

	entries, err := f.store.Entries(ctx, "emp-1", "unpaid")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// =============================================================================
// DENIAL
// =============================================================================

func TestDeny_RequiresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req, err := f.svc.Submit(ctx,
		submitInput(engine.NewDate(2025, time.April, 10), engine.NewDate(2025, time.April, 10)))
	require.NoError(t, err)

	_, err = f.svc.Deny(ctx, req.ID, "mgr-1", "  ")
	assert.ErrorIs(t, err, engine.ErrReasonRequired)

	denied, err := f.svc.Deny(ctx, req.ID, "mgr-1", "coverage conflict")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusDenied, denied.Status)
	assert.Equal(t, "coverage conflict", denied.DenialReason)
	assert.Equal(t, "mgr-1", denied.DecidedBy)
}

func TestDeny_LeavesBalanceUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req, err := f.svc.Submit(ctx,
		submitInput(engine.NewDate(2025, time.April, 10), engine.NewDate(2025, time.April, 14)))
	require.NoError(t, err)

	_, err = f.svc.Deny(ctx, req.ID, "mgr-1", "coverage conflict")
	require.NoError(t, err)

	b, err := f.store.Balance(ctx, "emp-1", "vacation-standard")
	require.NoError(t, err)
	assert.True(t, b.Available.Equal(engine.Days(10)))
}

// =============================================================================
// LISTING
// =============================================================================

func TestList_FiltersByStatusAndEmployee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Submit(ctx,
		submitInput(engine.NewDate(2025, time.April, 10), engine.NewDate(2025, time.April, 10)))
	require.NoError(t, err)
	second, err := f.svc.Submit(ctx,
		submitInput(engine.NewDate(2025, time.May, 5), engine.NewDate(2025, time.May, 6)))
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, first.ID, "mgr-1")
	require.NoError(t, err)

	pending := workflow.StatusPending
	list, err := f.svc.List(ctx, workflow.Filter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)

	emp := engine.EmployeeID("emp-1")
	list, err = f.svc.List(ctx, workflow.Filter{EmployeeID: &emp})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
