// Package availability stores per-user, per-day hour availability in the
// canonical timezone and serves it back as sparse slot maps.
package availability

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// MaxRangeDays bounds a single availability read.
const MaxRangeDays = 62

// PadDays is how far a local view's canonical fetch reaches past each end.
const PadDays = 1

// TimeSlots is one day record's sparse hour map: canonical hour key ("14",
// "14.5") to availability. Absent keys mean unavailable.
type TimeSlots map[string]bool

// Get returns the value for hour h, false when absent.
func (t TimeSlots) Get(h float64) bool {
	return t[timezone.HourKey(h)]
}

// UnmarshalJSON decodes a stored slot map, coercing every value with Coerce
// so a malformed record never fails a read.
func (t *TimeSlots) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		// Not an object at all (null, array, scalar): treat as empty.
		*t = TimeSlots{}
		return nil
	}
	out := make(TimeSlots, len(raw))
	for k, v := range raw {
		out[k] = Coerce(v)
	}
	*t = out
	return nil
}

// SlotMap is a range-wide sparse map keyed by "YYYY-MM-DD-hour". Absent keys
// mean unavailable.
type SlotMap map[string]bool

// Get returns the value for (day, h), false when absent.
func (m SlotMap) Get(day time.Time, h float64) bool {
	return m[timezone.SlotKey(day, h)]
}

// Record is one persisted (username, campaign, day) row.
type Record struct {
	Username   string
	CampaignID string
	Date       time.Time // Canonical day.
	TimeSlots  TimeSlots
	UpdatedAt  time.Time
}

// Coerce applies the truthiness rule used for stored slot values: booleans
// as-is, non-zero numbers true, the strings true/1/yes/y/on (any case) true,
// and everything else false.
func Coerce(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1", "yes", "y", "on":
			return true
		}
	}
	return false
}

// DateRange is an inclusive span of canonical days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange normalizes both ends to days and validates the span.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: timezone.Day(start), End: timezone.Day(end)}
	return r, r.Validate()
}

// ParseDateRange parses YYYY-MM-DD bounds.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := timezone.ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := timezone.ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(s, e)
}

// Validate rejects reversed and oversized ranges.
func (r DateRange) Validate() error {
	return r.validate(MaxRangeDays)
}

// validateFetch allows a validated range plus its padding.
func (r DateRange) validateFetch() error {
	return r.validate(MaxRangeDays + 2*PadDays)
}

func (r DateRange) validate(maxDays int) error {
	n := timezone.DaysBetween(r.Start, r.End)
	if n < 0 {
		return fmt.Errorf("range end %s is before start %s", timezone.FormatDate(r.End), timezone.FormatDate(r.Start))
	}
	if n+1 > maxDays {
		return fmt.Errorf("range spans %d days, at most %d allowed", n+1, maxDays)
	}
	return nil
}

// Days lists every day in the range.
func (r DateRange) Days() []time.Time {
	n := timezone.DaysBetween(r.Start, r.End)
	out := make([]time.Time, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, timezone.AddDays(r.Start, i))
	}
	return out
}

// Padded widens the range by PadDays on each side. Local views fetch the
// padded range so slots that convert across midnight are still covered.
func (r DateRange) Padded() DateRange {
	return DateRange{Start: timezone.AddDays(r.Start, -PadDays), End: timezone.AddDays(r.End, PadDays)}
}

// Contains reports whether day falls within the range.
func (r DateRange) Contains(day time.Time) bool {
	d := timezone.Day(day)
	return !d.Before(r.Start) && !d.After(r.End)
}

// --- Request / response DTOs ---

// SetSlotRequest is the JSON body for PUT /campaigns/:id/availability. Date
// and hour are in the viewer's local zone.
type SetSlotRequest struct {
	Date      string  `json:"date"`
	Hour      float64 `json:"hour"`
	Available bool    `json:"available"`
}

// SetSlotResponse echoes the stored canonical slot alongside the local one.
type SetSlotResponse struct {
	Date          string  `json:"date"`
	Hour          float64 `json:"hour"`
	CanonicalDate string  `json:"canonical_date"`
	CanonicalHour float64 `json:"canonical_hour"`
	Available     bool    `json:"available"`
}

// UserAvailabilityResponse is the body of GET /campaigns/:id/availability.
type UserAvailabilityResponse struct {
	Timezone string  `json:"timezone"`
	Start    string  `json:"start"`
	End      string  `json:"end"`
	Slots    SlotMap `json:"slots"`
	Degraded bool    `json:"degraded"`
}
