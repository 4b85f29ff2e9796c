package core

import "time"

// TrailingMonths returns the window [asOf - n months, asOf]. The start keeps
// asOf's clock and its day is clamped to the last day of the target month,
// so 31 May minus three months is 28 (or 29) February.
func TrailingMonths(asOf time.Time, n int) DateWindow {
	return DateWindow{Start: AddMonths(asOf, -n), End: asOf}
}

// MonthToDate returns the window from the first instant of asOf's month to asOf.
func MonthToDate(asOf time.Time) DateWindow {
	y, m, _ := asOf.Date()
	return DateWindow{
		Start: time.Date(y, m, 1, 0, 0, 0, 0, asOf.Location()),
		End:   asOf,
	}
}

// AddMonths shifts t by n calendar months, clamping the day instead of
// overflowing into the next month like time.AddDate does.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + n
	y += total / 12
	total %= 12
	if total < 0 {
		total += 12
		y--
	}
	month := time.Month(total + 1)
	if last := DaysIn(y, month); d > last {
		d = last
	}
	return time.Date(y, month, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Within returns the rows whose normalized time falls inside w. Rows without a
// normalized time are dropped.
func (l Ledger) Within(w DateWindow) Ledger {
	return l.Filter(func(t Transaction) bool {
		return t.HasTime() && w.Contains(t.OperationTime)
	})
}
