package engine

import (
	"time"
)

// =============================================================================
// DATE - Calendar day, midnight-normalized UTC
// =============================================================================

// Date is a calendar day. All engine math is day-granular: request ranges are
// inclusive [Start, End], and notice is counted in whole days.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an arbitrary time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func TodayDate() Date { return DateOf(time.Now().UTC()) }

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{t: d.t.AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }
func (d Date) String() string        { return d.t.Format("2006-01-02") }

// DaysBetween returns the whole-day count from a to b. Both dates are
// midnight-normalized, so any partial day in the inputs has already been
// rounded up to a full day of separation.
func DaysBetween(a, b Date) int {
	return int(b.t.Sub(a.t).Hours() / 24)
}

// =============================================================================
// WORK WEEK - Which weekdays count as working days
// =============================================================================

// WorkWeek is the set of weekdays considered working days.
type WorkWeek map[time.Weekday]bool

// StandardWorkWeek is Monday through Friday.
func StandardWorkWeek() WorkWeek {
	return WorkWeek{
		time.Monday:    true,
		time.Tuesday:   true,
		time.Wednesday: true,
		time.Thursday:  true,
		time.Friday:    true,
	}
}

// SixDayWorkWeek is Monday through Saturday.
func SixDayWorkWeek() WorkWeek {
	ww := StandardWorkWeek()
	ww[time.Saturday] = true
	return ww
}

func (w WorkWeek) Contains(day time.Weekday) bool { return w[day] }

// IsEmpty reports a work week with no working days at all, which makes every
// duration zero and is almost certainly a configuration mistake.
func (w WorkWeek) IsEmpty() bool {
	for _, on := range w {
		if on {
			return false
		}
	}
	return true
}

// =============================================================================
// HOLIDAY CALENDAR - Company holidays excluded from working days
// =============================================================================

// HolidayCalendar answers whether a date is a company holiday. Holiday
// sourcing is external; the engine only consumes the lookup.
type HolidayCalendar interface {
	IsHoliday(date Date) bool
}

// EmptyHolidayCalendar is the no-op calendar used when holidays are not
// configured.
type EmptyHolidayCalendar struct{}

func (EmptyHolidayCalendar) IsHoliday(Date) bool { return false }

// IsWorkingDay reports whether the date counts toward a request's duration
// under the given work week and holiday calendar.
func (d Date) IsWorkingDay(week WorkWeek, holidays HolidayCalendar) bool {
	if !week.Contains(d.Weekday()) {
		return false
	}
	if holidays != nil && holidays.IsHoliday(d) {
		return false
	}
	return true
}
