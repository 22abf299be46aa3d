package core

import "sort"

// Cycle is one budget period, running from a payday (inclusive) to the
// day before the next payday (inclusive, end-of-day granularity).
// Consecutive cycles are contiguous and never overlap.
type Cycle struct {
	Start Date
	End   Date
}

// Contains reports whether d falls within the cycle, boundaries included.
func (c Cycle) Contains(d Date) bool {
	return !d.Before(c.Start) && !d.After(c.End)
}

// PaydayForMonth computes the effective payday date for the month of ref.
// The configured day is clamped to the last actual day of the month, then
// walked off weekends one day at a time in the rollover direction. The walk
// must loop because Saturday and Sunday are adjacent.
func PaydayForMonth(ref Date, s PaydaySettings) (Date, error) {
	if err := s.Validate(); err != nil {
		return Date{}, err
	}
	day := s.Payday
	if last := LastDayOfMonth(ref.Year(), ref.Month()); day > last {
		day = last
	}
	d := NewDate(ref.Year(), ref.Month(), day)
	step := -1
	if s.Rollover == RollAfter {
		step = 1
	}
	for d.IsWeekend() {
		d = d.AddDays(step)
	}
	return d, nil
}

// CycleFor returns the budget cycle enclosing ref. The cycle starts at the
// payday of ref's month when ref is on or after it, otherwise at the
// previous month's payday; it ends the day before the following payday.
func CycleFor(ref Date, s PaydaySettings) (Cycle, error) {
	thisPayday, err := PaydayForMonth(ref, s)
	if err != nil {
		return Cycle{}, err
	}

	var start Date
	var nextMonthRef Date
	if !ref.Before(thisPayday) {
		start = thisPayday
		nextMonthRef = NewDate(ref.Year(), ref.Month(), 1).AddMonths(1)
	} else {
		prevMonthRef := NewDate(ref.Year(), ref.Month(), 1).AddMonths(-1)
		start, err = PaydayForMonth(prevMonthRef, s)
		if err != nil {
			return Cycle{}, err
		}
		nextMonthRef = NewDate(ref.Year(), ref.Month(), 1)
	}

	nextPayday, err := PaydayForMonth(nextMonthRef, s)
	if err != nil {
		return Cycle{}, err
	}
	return Cycle{Start: start, End: nextPayday.AddDays(-1)}, nil
}

// AddMonths returns the first-of-month date n months away. Intended for
// month arithmetic from a day-1 anchor so day overflow cannot occur.
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.Time.AddDate(0, n, 0)}
}

// CyclesForYear enumerates the cycles starting within the given calendar
// year, ascending, at most twelve. Iteration steps two days past each cycle
// end so re-entry near a boundary recomputes the same cycle; duplicates are
// collapsed by start date.
func CyclesForYear(year int, s PaydaySettings) ([]Cycle, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	byStart := make(map[string]Cycle)
	ref := NewDate(year, 1, 1)
	for i := 0; i < 16; i++ { // bounded walk across the year plus boundaries
		c, err := CycleFor(ref, s)
		if err != nil {
			return nil, err
		}
		if c.Start.Year() > year {
			break
		}
		if c.Start.Year() == year {
			byStart[c.Start.String()] = c
		}
		ref = c.End.AddDays(2)
	}

	cycles := make([]Cycle, 0, len(byStart))
	for _, c := range byStart {
		cycles = append(cycles, c)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i].Start.Before(cycles[j].Start) })
	if len(cycles) > 12 {
		cycles = cycles[:12]
	}
	return cycles, nil
}

// PaymentDateFor resolves a day-of-month entry (recurring payment, bonus
// payday) to its concrete date in the given month, clamped to month length.
// No weekend rollover is applied; that adjustment belongs to paydays only.
func PaymentDateFor(year, month, day int) Date {
	if last := LastDayOfMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}
