package timeutil

import (
	"fmt"
	"time"
)

// DateKey identifies a calendar day with no time component. It is comparable
// and safe to use as a map key.
type DateKey struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDateKey builds a normalized DateKey (out-of-range days roll over like time.Date).
func NewDateKey(year int, month time.Month, day int) DateKey {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) DateKey {
	y, m, d := t.Date()
	return DateKey{Year: y, Month: m, Day: d}
}

// ParseDateKey parses a YYYY-MM-DD string.
func ParseDateKey(value string) (DateKey, error) {
	t, err := ParseDate(value)
	if err != nil {
		return DateKey{}, fmt.Errorf("parse date key %q: %w", value, err)
	}
	return DateOf(t), nil
}

// MustDateKey parses a YYYY-MM-DD string or panics; intended for tests and constants.
func MustDateKey(value string) DateKey {
	d, err := ParseDateKey(value)
	if err != nil {
		panic(err)
	}
	return d
}

// String formats the key as YYYY-MM-DD.
func (d DateKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero DateKey.
func (d DateKey) IsZero() bool {
	return d == DateKey{}
}

// Midnight returns the start of the day in loc.
func (d DateKey) Midnight(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the key n calendar days away from d.
func (d DateKey) AddDays(n int) DateKey {
	return DateOf(d.Midnight(time.UTC).AddDate(0, 0, n))
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after other.
func (d DateKey) Compare(other DateKey) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(int(d.Month) - int(other.Month))
	default:
		return sign(d.Day - other.Day)
	}
}

// Before reports whether d is strictly earlier than other.
func (d DateKey) Before(other DateKey) bool {
	return d.Compare(other) < 0
}

// After reports whether d is strictly later than other.
func (d DateKey) After(other DateKey) bool {
	return d.Compare(other) > 0
}

// DaysUntil returns the signed number of calendar days from d to other.
func (d DateKey) DaysUntil(other DateKey) int {
	delta := other.Midnight(time.UTC).Sub(d.Midnight(time.UTC))
	return int(delta.Hours() / 24)
}

// MarshalText encodes the key as YYYY-MM-DD.
func (d DateKey) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a YYYY-MM-DD key.
func (d *DateKey) UnmarshalText(text []byte) error {
	parsed, err := ParseDateKey(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
