// Package clock implements C1: wall clock in KST, trading-day
// classification, and previous-trading-day resolution.
package clock

import (
	"sync"
	"time"
)

// KST is Korea Standard Time, a fixed +09:00 offset — never DST-adjusted.
var KST = time.FixedZone("KST", 9*60*60)

// TradingDayProbe checks an external daily-ticker source for whether the
// market actually opened on date. Satisfied by C5's price collector; kept
// abstract here so clock has no dependency on the collector package.
type TradingDayProbe func(date time.Time) (bool, error)

// Clock is C1. The trading-day cache is unbounded for the process lifetime,
// matching spec.md §4.1: "cached ... for the process lifetime".
// ⭐ SSOT: 거래일 판정은 이 타입을 거쳐야 함
type Clock struct {
	probe TradingDayProbe

	mu    sync.Mutex
	cache map[string]bool // YYYYMMDD -> is trading day
}

// New creates a Clock. probe may be nil; in that case weekday dates are
// optimistically treated as trading days (fail-open, per §4.1).
func New(probe TradingDayProbe) *Clock {
	return &Clock{
		probe: probe,
		cache: make(map[string]bool),
	}
}

// Now returns the current instant in KST.
func (c *Clock) Now() time.Time {
	return time.Now().In(KST)
}

// IsTradingDay reports whether date is a trading day. Weekends are false
// without probing. Weekdays consult the probe once per calendar date and
// cache the result for the process lifetime (I8). On probe failure, it
// fails open (returns true) — a false positive wastes at most one idle job.
func (c *Clock) IsTradingDay(date time.Time) (bool, error) {
	date = date.In(KST)
	if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
		return false, nil
	}

	key := date.Format("20060102")

	c.mu.Lock()
	if v, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	var result bool
	if c.probe == nil {
		result = true
	} else {
		ok, err := c.probe(date)
		if err != nil {
			// Fail-open: still cache true so repeated probes within the
			// same day are not re-attempted (I8 applies regardless of
			// probe outcome).
			result = true
		} else {
			result = ok
		}
	}

	c.mu.Lock()
	c.cache[key] = result
	c.mu.Unlock()

	return result, nil
}

// PreviousTradingDay returns the previous trading day per spec.md §4.1:
// Monday returns Friday (-3 days), Tuesday..Friday returns the previous day
// (-1 day), and weekend inputs return the zero time with ok=false. Holidays
// are NOT consulted — this is calendar-only arithmetic.
func (c *Clock) PreviousTradingDay(date time.Time) (prev time.Time, ok bool) {
	date = date.In(KST)
	switch date.Weekday() {
	case time.Monday:
		return date.AddDate(0, 0, -3), true
	case time.Tuesday, time.Wednesday, time.Thursday, time.Friday:
		return date.AddDate(0, 0, -1), true
	default:
		return time.Time{}, false
	}
}

// IsWithinSession reports whether t falls in the 09:00-15:30 KST session.
func IsWithinSession(t time.Time) bool {
	t = t.In(KST)
	open := time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, KST)
	closeT := time.Date(t.Year(), t.Month(), t.Day(), 15, 30, 0, 0, KST)
	return !t.Before(open) && !t.After(closeT)
}
