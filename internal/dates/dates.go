// Package dates converts between time values and calendar-day keys.
//
// A day key is the zero-padded "YYYY-MM-DD" rendering of a date's wall-clock
// year, month and day. Time-of-day and zone offset are discarded, so a
// reservation stored as UTC midnight and a date picked in local time map to
// the same key as long as they name the same calendar day.
package dates

import (
	"fmt"
	"time"
)

// Layout is the day key format.
const Layout = "2006-01-02"

// Civil returns midnight UTC of t's calendar day. Civil values compare and
// step by whole days without daylight-saving surprises.
func Civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayKey formats t's calendar day.
func DayKey(t time.Time) string {
	return Civil(t).Format(Layout)
}

// ParseDayKey parses a "YYYY-MM-DD" key into its civil date.
func ParseDayKey(key string) (time.Time, error) {
	t, err := time.Parse(Layout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", key, err)
	}
	return t, nil
}

// Ordered returns a and b with the earlier calendar day first.
func Ordered(a, b time.Time) (time.Time, time.Time) {
	if Civil(b).Before(Civil(a)) {
		return b, a
	}
	return a, b
}

// ExpandRange returns every day key from start to end inclusive, ascending.
// It returns an empty slice when end falls on a day before start; callers
// that accept user input normalize the order with Ordered first.
func ExpandRange(start, end time.Time) []string {
	first, last := Civil(start), Civil(end)
	if last.Before(first) {
		return []string{}
	}

	days := int(last.Sub(first).Hours()/24) + 1
	keys := make([]string, 0, days)
	for cur := first; !cur.After(last); cur = cur.AddDate(0, 0, 1) {
		keys = append(keys, cur.Format(Layout))
	}
	return keys
}

// Window is a fixed run of calendar days starting at Start.
type Window struct {
	Start time.Time
	Days  int
}

// NewWindow returns the window of days calendar days beginning on now's day.
func NewWindow(now time.Time, days int) Window {
	if days < 0 {
		days = 0
	}
	return Window{Start: Civil(now), Days: days}
}

// End returns the last civil day inside the window. For an empty window it
// returns the day before Start.
func (w Window) End() time.Time {
	return w.Start.AddDate(0, 0, w.Days-1)
}

// Keys lists every day key of the window in order.
func (w Window) Keys() []string {
	if w.Days <= 0 {
		return []string{}
	}
	return ExpandRange(w.Start, w.End())
}

// Contains reports whether t's calendar day lies inside the window.
func (w Window) Contains(t time.Time) bool {
	if w.Days <= 0 {
		return false
	}
	c := Civil(t)
	return !c.Before(w.Start) && !c.After(w.End())
}

// Expand returns the day keys of [start, end] that fall inside the window.
func (w Window) Expand(start, end time.Time) []string {
	if w.Days <= 0 {
		return []string{}
	}
	first, last := Civil(start), Civil(end)
	if first.Before(w.Start) {
		first = w.Start
	}
	if windowEnd := w.End(); last.After(windowEnd) {
		last = windowEnd
	}
	return ExpandRange(first, last)
}
