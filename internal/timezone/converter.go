package timezone

import (
	"sync"
	"time"
)

// maxCachedConversions caps the memo table; it is cleared when full.
const maxCachedConversions = 4096

type direction uint8

const (
	toLocal direction = iota
	toCanonical
)

type cacheKey struct {
	dir  direction
	day  string
	hour float64
}

// Converter translates wall-clock hours between the canonical zone and a
// viewer's local zone. It belongs to exactly one Viewer and its memo table
// lives as long as that Viewer.
//
// Both directions take a reference day because the offset between two zones
// can change across a DST transition. Under ReferenceToday the reference day
// passed by the caller is ignored and the day the Viewer was created on is
// used instead, so results are memoized per hour; see ReferenceToday for the
// precision trade-off that implies.
type Converter struct {
	viewer *Viewer
	mode   ReferenceMode
	now    func() time.Time
	today  time.Time

	mu    sync.Mutex
	cache map[cacheKey]float64
}

func newConverter(v *Viewer, opts Options) *Converter {
	return &Converter{
		viewer: v,
		mode:   opts.Mode,
		now:    opts.Now,
		today:  Day(opts.Now().In(v.Location)),
		cache:  make(map[cacheKey]float64),
	}
}

// Mode returns the reference mode in effect.
func (c *Converter) Mode() ReferenceMode {
	return c.mode
}

// ToLocalHour converts a canonical hour to the viewer's local hour. The
// result may fall outside [0,24) when the conversion crosses midnight; use
// CanonicalToLocalSlot to get a normalized (day, hour) pair.
func (c *Converter) ToLocalHour(canonicalHour float64, ref time.Time) float64 {
	if c.viewer.IsCanonical {
		return canonicalHour
	}
	return c.convert(toLocal, canonicalHour, ref)
}

// ToCanonicalHour converts a local hour to the canonical hour. Like
// ToLocalHour the result is not wrapped into [0,24).
func (c *Converter) ToCanonicalHour(localHour float64, ref time.Time) float64 {
	if c.viewer.IsCanonical {
		return localHour
	}
	return c.convert(toCanonical, localHour, ref)
}

// LocalToCanonicalSlot maps a displayed (day, hour) to the canonical
// (day, hour) it is stored under.
func (c *Converter) LocalToCanonicalSlot(day time.Time, localHour float64) (time.Time, float64) {
	return wrapDay(day, c.ToCanonicalHour(localHour, day))
}

// CanonicalToLocalSlot maps a stored (day, hour) to where it is displayed.
func (c *Converter) CanonicalToLocalSlot(day time.Time, canonicalHour float64) (time.Time, float64) {
	return wrapDay(day, c.ToLocalHour(canonicalHour, day))
}

func (c *Converter) convert(dir direction, h float64, ref time.Time) float64 {
	refDay := c.referenceDay(ref)
	key := cacheKey{dir: dir, day: FormatDate(refDay), hour: h}

	c.mu.Lock()
	if v, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	canonLoc := c.viewer.canon.Location
	localLoc := c.viewer.Location

	var out float64
	switch dir {
	case toLocal:
		instant := wallClock(refDay, h, canonLoc)
		out = h + offsetHours(instant, localLoc) - offsetHours(instant, canonLoc)
	default:
		instant := wallClock(refDay, h, localLoc)
		out = h + offsetHours(instant, canonLoc) - offsetHours(instant, localLoc)
	}
	out = roundHour(out)

	c.mu.Lock()
	if len(c.cache) >= maxCachedConversions {
		c.cache = make(map[cacheKey]float64)
	}
	c.cache[key] = out
	c.mu.Unlock()
	return out
}

func (c *Converter) referenceDay(ref time.Time) time.Time {
	if c.mode == ReferenceSlot && !ref.IsZero() {
		return Day(ref)
	}
	return c.today
}

// offsetHours is loc's UTC offset at instant t, in hours.
func offsetHours(t time.Time, loc *time.Location) float64 {
	_, off := t.In(loc).Zone()
	return float64(off) / 3600
}

// wrapDay folds an hour outside [0,24) into the neighbouring day.
func wrapDay(day time.Time, h float64) (time.Time, float64) {
	for h < 0 {
		h += 24
		day = AddDays(day, -1)
	}
	for h >= 24 {
		h -= 24
		day = AddDays(day, 1)
	}
	return day, roundHour(h)
}
