package domain

import (
	"fmt"
	"time"
)

// UnlimitedExpiry is the far-future expiry of non-expiring products.
var UnlimitedExpiry = time.Date(9999, time.December, 31, 23, 59, 59, 999_000_000, time.UTC)

// Window is the [Start, Expiry) validity of a granted package.
type Window struct {
	Start  time.Time
	Expiry time.Time
}

// StartString and ExpiryString return the stored ISO forms.
func (w Window) StartString() string  { return Timestamp(w.Start) }
func (w Window) ExpiryString() string { return Timestamp(w.Expiry) }

// ValidityWindow computes the window of p starting at now.
func ValidityWindow(p Product, now time.Time) (Window, error) {
	now = now.UTC()
	w := Window{Start: now}
	switch p.Validity {
	case Validity2Hours:
		w.Expiry = now.Add(2 * time.Hour)
	case Validity24Hours:
		w.Expiry = now.Add(24 * time.Hour)
	case Validity1Month:
		w.Expiry = AddCalendarMonths(now, 1)
	case ValidityUnlimited:
		w.Expiry = UnlimitedExpiry
	default:
		return Window{}, fmt.Errorf("product %s has validity %q: %w", p.Key, p.Validity, ErrBadRequest)
	}
	return w, nil
}

// AddCalendarMonths moves t by n months, clamping the day to the last day
// of the target month (Jan 31 + 1 month = Feb 28 or 29).
func AddCalendarMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := daysIn(first.Year(), first.Month())
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
