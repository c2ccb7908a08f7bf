package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/uswizard/backend/internal/contracts"
)

// Calendar is an immutable, ordered in-memory index of trading sessions.
// SSOT: trading-day arithmetic happens here only. Loaded once per run from
// the calendar repository; refreshing the underlying table is an external
// concern (weekly job), not something the calendar retries itself.
type Calendar struct {
	days  []time.Time // ascending, unique, normalized to UTC midnight
	index map[time.Time]int
}

// New builds a calendar from session dates. Input may be unsorted and
// contain duplicates; the index normalizes both.
func New(days []time.Time) *Calendar {
	normalized := make([]time.Time, 0, len(days))
	seen := make(map[time.Time]struct{}, len(days))
	for _, d := range days {
		day := contracts.Day(d)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		normalized = append(normalized, day)
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i].Before(normalized[j]) })

	index := make(map[time.Time]int, len(normalized))
	for i, d := range normalized {
		index[d] = i
	}

	return &Calendar{days: normalized, index: index}
}

// Len returns the number of known sessions.
func (c *Calendar) Len() int {
	return len(c.days)
}

// IsTradingDay reports whether date is a known market session.
func (c *Calendar) IsTradingDay(date time.Time) bool {
	_, ok := c.index[contracts.Day(date)]
	return ok
}

// LastSession returns the most recent known session.
func (c *Calendar) LastSession() (time.Time, bool) {
	if len(c.days) == 0 {
		return time.Time{}, false
	}
	return c.days[len(c.days)-1], true
}

// TradingDaysBetween returns the ordered sessions in [start, end]. Fails
// with ErrCalendarGap when end is past the last known session: the external
// calendar source must be refreshed.
func (c *Calendar) TradingDaysBetween(start, end time.Time) ([]time.Time, error) {
	startDay := contracts.Day(start)
	endDay := contracts.Day(end)
	if endDay.Before(startDay) {
		return nil, fmt.Errorf("invalid range %s..%s: %w",
			startDay.Format("2006-01-02"), endDay.Format("2006-01-02"), contracts.ErrCalendarGap)
	}

	last, ok := c.LastSession()
	if !ok || endDay.After(last) {
		return nil, fmt.Errorf("range end %s exceeds last session: %w",
			endDay.Format("2006-01-02"), contracts.ErrCalendarGap)
	}

	lo := sort.Search(len(c.days), func(i int) bool { return !c.days[i].Before(startDay) })
	hi := sort.Search(len(c.days), func(i int) bool { return c.days[i].After(endDay) })

	out := make([]time.Time, hi-lo)
	copy(out, c.days[lo:hi])
	return out, nil
}

// NthPriorTradingDay returns the session n trading days before date. When
// date itself is a session, n=0 returns it. Walking off the front of the
// calendar fails with ErrNotFound.
func (c *Calendar) NthPriorTradingDay(date time.Time, n int) (time.Time, error) {
	if n < 0 {
		return time.Time{}, fmt.Errorf("negative offset %d: %w", n, contracts.ErrNotFound)
	}

	day := contracts.Day(date)
	// Position of the latest session <= day.
	pos := sort.Search(len(c.days), func(i int) bool { return c.days[i].After(day) }) - 1
	if pos < 0 {
		return time.Time{}, fmt.Errorf("no session on or before %s: %w",
			day.Format("2006-01-02"), contracts.ErrNotFound)
	}

	target := pos - n
	if target < 0 {
		return time.Time{}, fmt.Errorf("fewer than %d sessions before %s: %w",
			n, day.Format("2006-01-02"), contracts.ErrNotFound)
	}

	return c.days[target], nil
}
