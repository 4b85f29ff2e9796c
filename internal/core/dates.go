package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Bank exports mix day-first ("29.12.2021 22:32:24") and year-first
// ("2021-12-29 22:32:24") operation dates in the same column.
var dayFirstPrefix = regexp.MustCompile(`^(\d{2}).(\d{2}).(\d{4})(.*)$`)

var (
	dayFirstLayouts  = []string{"02.01.2006 15:04:05", "02.01.2006 15:04", "02.01.2006"}
	yearFirstLayouts = []string{"2006-1-2 15:04:05", "2006-1-2T15:04:05", "2006-1-2 15:04", "2006-1-2"}
)

// RowError describes a ledger row whose operation date could not be parsed.
type RowError struct {
	Index int
	Value string
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: operation date %q: %v", e.Index, e.Value, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// ParseOperationDate parses a raw operation date in either supported format.
// The result is a wall-clock time in UTC; a value without a time part is
// midnight.
func ParseOperationDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	layouts := yearFirstLayouts
	if m := dayFirstPrefix.FindStringSubmatch(s); m != nil {
		s = m[1] + "." + m[2] + "." + m[3] + m[4]
		layouts = dayFirstLayouts
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// Normalize returns a copy of the ledger with OperationTime filled for every
// row that parses. Rows that do not parse keep a zero time and are reported.
func (l Ledger) Normalize() (Ledger, []RowError) {
	out := l.Clone()
	var rowErrs []RowError
	for i := range out {
		t, err := ParseOperationDate(out[i].OperationDate)
		if err != nil {
			out[i].OperationTime = time.Time{}
			rowErrs = append(rowErrs, RowError{Index: i, Value: out[i].OperationDate, Err: err})
			continue
		}
		out[i].OperationTime = t
	}
	return out, rowErrs
}

// WallClock re-expresses t as the same calendar reading in UTC so that it
// compares with normalized ledger times.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// StartOfDay truncates t to midnight keeping its location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
