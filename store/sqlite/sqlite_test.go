package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/timeoff-engine/engine"
	"github.com/meridian/timeoff-engine/ledger"
	"github.com/meridian/timeoff-engine/store/sqlite"
	"github.com/meridian/timeoff-engine/workflow"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBalance_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Balance(ctx, "emp-1", "vacation-standard")
	assert.ErrorIs(t, err, ledger.ErrBalanceNotFound)

	saved := engine.Balance{
		EmployeeID: "emp-1",
		PolicyID:   "vacation-standard",
		Category:   engine.CategoryVacation,
		Available:  engine.Days(7.5),
		Version:    3,
	}
	require.NoError(t, store.SaveBalance(ctx, saved))

	got, err := store.Balance(ctx, "emp-1", "vacation-standard")
	require.NoError(t, err)
	assert.Equal(t, saved.Category, got.Category)
	assert.True(t, got.Available.Equal(engine.Days(7.5)))
	assert.Equal(t, int64(3), got.Version)
	assert.False(t, got.Unlimited)
}

func TestBalances_ListsPerEmployee(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBalance(ctx, engine.Balance{
		EmployeeID: "emp-1", PolicyID: "vacation-standard",
		Category: engine.CategoryVacation, Available: engine.Days(10),
	}))
	require.NoError(t, store.SaveBalance(ctx,
		engine.UnlimitedBalance("emp-1", "unpaid", engine.CategoryPersonal)))
	require.NoError(t, store.SaveBalance(ctx, engine.Balance{
		EmployeeID: "emp-2", PolicyID: "vacation-standard",
		Category: engine.CategoryVacation, Available: engine.Days(4),
	}))

	balances, err := store.Balances(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, balances, 2)
	// Ordered by policy ID.
	assert.Equal(t, engine.PolicyID("unpaid"), balances[0].PolicyID)
	assert.True(t, balances[0].Unlimited)
	assert.Equal(t, engine.PolicyID("vacation-standard"), balances[1].PolicyID)
}

func TestEntries_NewestFirst(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	for i, reason := range []string{"first", "second", "third"} {
		require.NoError(t, store.AppendEntry(ctx, ledger.Entry{
			ID:          ledger.EntryID("entry-" + reason),
			EmployeeID:  "emp-1",
			PolicyID:    "vacation-standard",
			EffectiveAt: engine.NewDate(2025, time.June, 1+i),
			CreatedAt:   time.Now().UTC(),
			Delta:       engine.Days(1),
			Resulting:   engine.Days(float64(i + 1)),
			Kind:        ledger.KindManualAdjustment,
			Actor:       "admin-1",
			Reason:      reason,
		}))
	}

	entries, err := store.Entries(ctx, "emp-1", "vacation-standard")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "third", entries[0].Reason)
	assert.Equal(t, "first", entries[2].Reason)
	assert.True(t, entries[0].Resulting.Equal(engine.Days(3)))
	assert.Equal(t, engine.NewDate(2025, time.June, 3), entries[0].EffectiveAt)
}

func TestAppendEntry_PersistsIdempotencyKey(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendEntry(ctx, ledger.Entry{
		ID:             "entry-accrual",
		EmployeeID:     "emp-1",
		PolicyID:       "vacation-standard",
		EffectiveAt:    engine.NewDate(2025, time.February, 1),
		CreatedAt:      time.Now().UTC(),
		Delta:          engine.Days(1.25),
		Resulting:      engine.Days(11.25),
		Kind:           ledger.KindAccrual,
		Actor:          "system",
		Reason:         "monthly accrual",
		IdempotencyKey: "accrual:2025-02-01",
	}))

	entries, err := store.Entries(ctx, "emp-1", "vacation-standard")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "accrual:2025-02-01", entries[0].IdempotencyKey)
}

func TestRequest_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Request(ctx, "missing")
	assert.ErrorIs(t, err, workflow.ErrRequestNotFound)

	saved := workflow.Request{
		ID:         "req-1",
		EmployeeID: "emp-1",
		PolicyID:   "vacation-standard",
		Category:   engine.CategoryVacation,
		StartDate:  engine.NewDate(2025, time.April, 10),
		EndDate:    engine.NewDate(2025, time.April, 14),
		Mode:       engine.PartialEdges,
		Params: engine.PartialDayParams{
			FirstDayHours: engine.Hours(4),
			LastDayHours:  engine.Hours(6),
		},
		Note:        "spring trip",
		WorkingDays: engine.Days(2.25),
		TotalHours:  engine.Hours(18),
		Notice: engine.NoticeResult{
			Compliant:          false,
			RequiredNoticeDays: 14,
			ActualNoticeDays:   10,
			MatchedBucketLabel: "1-3 day requests",
		},
		Status:      workflow.StatusPending,
		SubmittedAt: time.Date(2025, time.March, 31, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveRequest(ctx, saved))

	got, err := store.Request(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, saved.StartDate, got.StartDate)
	assert.Equal(t, saved.EndDate, got.EndDate)
	assert.Equal(t, engine.PartialEdges, got.Mode)
	assert.True(t, got.Params.FirstDayHours.Equal(engine.Hours(4)))
	assert.True(t, got.Params.LastDayHours.Equal(engine.Hours(6)))
	assert.True(t, got.WorkingDays.Equal(engine.Days(2.25)))
	assert.Equal(t, saved.Notice, got.Notice)
	assert.Equal(t, "spring trip", got.Note)
	assert.Equal(t, saved.SubmittedAt, got.SubmittedAt)
	assert.Nil(t, got.DecidedAt)
}

func TestSaveRequest_UpdatesDecisionOnly(t *testing.T) {
	// Re-saving after a decision keeps the submitted form intact and
	// stamps status, decider, timestamp, and denial reason.

	store := newStore(t)
	ctx := context.Background()

	req := workflow.Request{
		ID:          "req-1",
		EmployeeID:  "emp-1",
		PolicyID:    "vacation-standard",
		Category:    engine.CategoryVacation,
		StartDate:   engine.NewDate(2025, time.April, 10),
		EndDate:     engine.NewDate(2025, time.April, 10),
		Mode:        engine.PartialFull,
		WorkingDays: engine.Days(1),
		TotalHours:  engine.Hours(8),
		Notice:      engine.NoticeResult{Compliant: true},
		Status:      workflow.StatusPending,
		SubmittedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveRequest(ctx, req))

	decidedAt := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	req.Status = workflow.StatusDenied
	req.DecidedBy = "mgr-1"
	req.DecidedAt = &decidedAt
	req.DenialReason = "coverage conflict"
	require.NoError(t, store.SaveRequest(ctx, req))

	got, err := store.Request(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusDenied, got.Status)
	assert.Equal(t, "mgr-1", got.DecidedBy)
	require.NotNil(t, got.DecidedAt)
	assert.Equal(t, decidedAt, *got.DecidedAt)
	assert.Equal(t, "coverage conflict", got.DenialReason)
	assert.Equal(t, engine.NewDate(2025, time.April, 10), got.StartDate)
}

func TestRequests_Filtering(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	base := workflow.Request{
		PolicyID:    "vacation-standard",
		Category:    engine.CategoryVacation,
		StartDate:   engine.NewDate(2025, time.April, 10),
		EndDate:     engine.NewDate(2025, time.April, 10),
		Mode:        engine.PartialFull,
		WorkingDays: engine.Days(1),
		TotalHours:  engine.Hours(8),
		SubmittedAt: time.Now().UTC(),
	}

	for _, r := range []struct {
		id       workflow.RequestID
		employee engine.EmployeeID
		status   workflow.Status
	}{
		{"req-1", "emp-1", workflow.StatusApproved},
		{"req-2", "emp-1", workflow.StatusPending},
		{"req-3", "emp-2", workflow.StatusPending},
	} {
		req := base
		req.ID = r.id
		req.EmployeeID = r.employee
		req.Status = r.status
		require.NoError(t, store.SaveRequest(ctx, req))
	}

	pending := workflow.StatusPending
	emp := engine.EmployeeID("emp-1")

	list, err := store.Requests(ctx, workflow.Filter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Newest submission first.
	assert.Equal(t, workflow.RequestID("req-3"), list[0].ID)

	list, err = store.Requests(ctx, workflow.Filter{EmployeeID: &emp, Status: &pending})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, workflow.RequestID("req-2"), list[0].ID)
}
