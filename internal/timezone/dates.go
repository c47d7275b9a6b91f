package timezone

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// DateLayout is the wire and storage format of a calendar day.
const DateLayout = "2006-01-02"

// Dates are carried as time.Time values at midnight UTC. Only the
// year/month/day fields are meaningful; the zone a day belongs to is implied
// by the caller (canonical for storage, viewer-local for display).

// ParseDate parses a YYYY-MM-DD string into a day value.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate renders a day value as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// Day truncates t to its calendar day as seen in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a day value by n calendar days.
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// DaysBetween returns the number of days from a to b (negative if b < a).
func DaysBetween(a, b time.Time) int {
	return int(math.Round(Day(b).Sub(Day(a)).Hours() / 24))
}

// HourKey encodes an integer or half-integer hour the way slot maps store it:
// "14", "14.5".
func HourKey(h float64) string {
	return strconv.FormatFloat(roundHour(h), 'f', -1, 64)
}

// ParseHourKey is the inverse of HourKey.
func ParseHourKey(key string) (float64, error) {
	h, err := strconv.ParseFloat(key, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hour key %q", key)
	}
	return h, nil
}

// SlotKey is the "date-hour" key used for range-wide slot maps.
func SlotKey(day time.Time, h float64) string {
	return FormatDate(day) + "-" + HourKey(h)
}

// ParseSlotKey splits a "YYYY-MM-DD-hour" key back into its day and hour.
func ParseSlotKey(key string) (time.Time, float64, error) {
	if len(key) < len(DateLayout)+2 || key[len(DateLayout)] != '-' {
		return time.Time{}, 0, fmt.Errorf("invalid slot key %q", key)
	}
	day, err := ParseDate(key[:len(DateLayout)])
	if err != nil {
		return time.Time{}, 0, err
	}
	h, err := ParseHourKey(key[len(DateLayout)+1:])
	if err != nil {
		return time.Time{}, 0, err
	}
	return day, h, nil
}

// ValidHour reports whether h is within [0, 24) on a half-hour boundary.
func ValidHour(h float64) bool {
	return h >= 0 && h < 24 && IsHalfHour(h)
}

// IsHalfHour reports whether h is a whole or half hour.
func IsHalfHour(h float64) bool {
	return math.Abs(h*2-math.Round(h*2)) < 1e-9
}

// roundHour removes floating-point noise so keys stay stable.
func roundHour(h float64) float64 {
	r := math.Round(h*1e9) / 1e9
	if r == 0 {
		return 0 // normalizes -0
	}
	return r
}

// wallClock builds the instant at hour h (fractional hours become minutes) of
// day in loc. Hours outside [0,24) roll into the adjacent day.
func wallClock(day time.Time, h float64, loc *time.Location) time.Time {
	minutes := int(math.Round(h * 60))
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, minutes, 0, 0, loc)
}
