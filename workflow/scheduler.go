/*
scheduler.go - Accrual and carryover runner

PURPOSE:
  Feeds schedule-driven movements into the same ledger as manual
  adjustments and approval debits: monthly accrual grants while a policy
  is active, and the period-end split of the remaining balance into a
  carried portion and an expired one.

DESIGN:
  - Accrual grants carry an idempotency key derived from the event date,
    so replaying a window (an HTTP retry, an overlapping range) never
    credits the same event twice. Carryover writes at most one expiry per
    balance per year and is naturally safe to replay.
  - An optional background loop grants newly due accruals on a fixed
    interval; carryover stays an explicit admin action.
  - Employees accrue only once eligible under the policy, and unlimited
    policies generate no movements at all.

SEE ALSO:
  - policy/accrual.go: schedule generation
  - policy/carryover.go: period-end reconciliation
  - ledger: the append path every movement goes through
*/
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/meridian/timeoff-engine/directory"
	"github.com/meridian/timeoff-engine/engine"
	"github.com/meridian/timeoff-engine/ledger"
	"github.com/meridian/timeoff-engine/policy"
)

// RosterSource lists the employees the scheduler accrues for.
type RosterSource interface {
	Employees(ctx context.Context) ([]directory.Employee, error)
}

// CatalogSource lists the policies the scheduler runs.
type CatalogSource interface {
	Policies(ctx context.Context) ([]policy.Policy, error)
}

// SchedulerResult summarizes one run for logging and API responses.
type SchedulerResult struct {
	EntriesWritten int
	Skipped        int
}

// Scheduler grants accruals and reconciles carryover across the whole
// roster.
type Scheduler struct {
	Ledger   *ledger.Service
	Balances BalanceSource
	Roster   RosterSource
	Catalog  CatalogSource
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	lastRun engine.Date
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RunAccruals grants every accrual event due in [from, to] for every
// eligible employee under every deterministic policy.
func (s *Scheduler) RunAccruals(ctx context.Context, from, to engine.Date) (SchedulerResult, error) {
	var res SchedulerResult

	policies, err := s.Catalog.Policies(ctx)
	if err != nil {
		return res, err
	}
	employees, err := s.Roster.Employees(ctx)
	if err != nil {
		return res, err
	}

	for _, p := range policies {
		schedule := policy.ScheduleFor(p)
		if schedule == nil || !schedule.IsDeterministic() {
			continue
		}
		events := schedule.GenerateAccruals(from, to)

		for _, e := range employees {
			for _, ev := range events {
				if !p.Eligibility.EligibleOn(e.HireDate, ev.At) {
					res.Skipped++
					continue
				}
				key := fmt.Sprintf("accrual:%s", ev.At)
				_, _, err := s.Ledger.Grant(ctx, e.ID, p.ID, ev.Amount, ledger.KindAccrual, ev.Reason, ev.At, key)
				switch {
				case err == nil:
					res.EntriesWritten++
				case errors.Is(err, ledger.ErrDuplicateEntry):
					// Already granted by an earlier run over this date.
					res.Skipped++
				case errors.Is(err, ledger.ErrBalanceNotFound), errors.Is(err, ledger.ErrUnlimitedBalance):
					// No balance to accrue onto; nothing to write.
					res.Skipped++
				default:
					return res, fmt.Errorf("accrual %s/%s at %s: %w", e.ID, p.ID, ev.At, err)
				}
			}
		}
	}
	return res, nil
}

// RunCarryover reconciles the given calendar year for every balance. The
// carried portion simply remains on the balance; the expired portion is
// written off on the last day of the ending year. Balances that carry
// everything (or hold nothing) produce no entries.
func (s *Scheduler) RunCarryover(ctx context.Context, year int) (SchedulerResult, error) {
	var res SchedulerResult

	policies, err := s.Catalog.Policies(ctx)
	if err != nil {
		return res, err
	}
	employees, err := s.Roster.Employees(ctx)
	if err != nil {
		return res, err
	}

	period := policy.CalendarYear(year)
	for _, p := range policies {
		if p.Unlimited() {
			continue
		}
		for _, e := range employees {
			balance, err := s.Balances.Balance(ctx, e.ID, p.ID)
			if err != nil {
				res.Skipped++
				continue
			}
			outcome := policy.ApplyCarryover(balance.Available, p.Carryover)
			if !outcome.Expired.IsPositive() {
				continue
			}

			reason := fmt.Sprintf("carryover %d: %s carried, %s expired",
				year, outcome.Carried.Value, outcome.Expired.Value)
			_, _, err = s.Ledger.Expire(ctx, e.ID, p.ID, outcome.Expired, reason, period.End)
			if err != nil {
				return res, fmt.Errorf("carryover %s/%s: %w", e.ID, p.ID, err)
			}
			res.EntriesWritten++
		}
	}
	return res, nil
}

// Start launches the background loop granting newly due accruals every
// Interval. The first window opens at start time, so historical accruals
// belong to an explicit RunAccruals call.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	if s.Interval <= 0 {
		s.Interval = time.Hour
	}
	s.lastRun = engine.DateOf(s.now())
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop()
}

// Stop halts the background loop and waits for it to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (s *Scheduler) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			today := engine.DateOf(s.now())
			if !today.After(s.lastRun) {
				continue
			}
			res, err := s.RunAccruals(context.Background(), s.lastRun.AddDays(1), today)
			if err != nil {
				if s.Logger != nil {
					s.Logger.Error("accrual run failed", "error", err)
				}
				continue
			}
			s.lastRun = today
			if s.Logger != nil && res.EntriesWritten > 0 {
				s.Logger.Info("accruals granted", "entries", res.EntriesWritten, "through", today.String())
			}
		}
	}
}
