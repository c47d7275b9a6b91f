// Package timezone resolves a viewer's local zone against the canonical
// storage zone and converts wall-clock hours between the two.
//
// All availability and session data is persisted in the canonical zone.
// Conversion happens only at the edges: reads are converted to the viewer's
// local hours for display, and writes are converted back before they reach
// the store.
package timezone

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// builtinAliases lists zone names that keep the same wall clock as a
// canonical zone all year round.
var builtinAliases = map[string][]string{
	"America/New_York": {
		"US/Eastern", "EST5EDT", "America/Detroit", "America/Toronto", "America/Montreal",
		"America/Nassau", "America/Indiana/Indianapolis", "America/Indianapolis",
		"America/Kentucky/Louisville", "America/Louisville", "Canada/Eastern",
	},
	"America/Chicago": {
		"US/Central", "CST6CDT", "America/Winnipeg", "America/Indiana/Knox",
		"America/Menominee", "Canada/Central",
	},
	"America/Denver": {
		"US/Mountain", "MST7MDT", "America/Edmonton", "America/Boise", "Canada/Mountain",
	},
	"America/Los_Angeles": {
		"US/Pacific", "PST8PDT", "America/Vancouver", "America/Tijuana", "Canada/Pacific",
	},
	"Europe/London": {
		"GB", "Europe/Belfast", "Europe/Guernsey", "Europe/Isle_of_Man", "Europe/Jersey",
	},
	"UTC": {
		"Etc/UTC", "Etc/GMT", "GMT", "Etc/Universal", "Universal", "Zulu", "UCT", "Etc/Zulu",
	},
}

// Canonical is the storage zone plus the names considered equivalent to it.
type Canonical struct {
	Name     string
	Location *time.Location
	aliases  map[string]bool
}

// NewCanonical loads the canonical zone and merges the built-in aliases for
// it with extra.
func NewCanonical(name string, extra []string) (*Canonical, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading canonical timezone %q: %w", name, err)
	}

	c := &Canonical{Name: name, Location: loc, aliases: map[string]bool{name: true}}
	for _, a := range builtinAliases[name] {
		c.aliases[a] = true
	}
	for _, a := range extra {
		if a = strings.TrimSpace(a); a != "" {
			c.aliases[a] = true
		}
	}
	return c, nil
}

// IsEquivalent reports whether name is the canonical zone or an alias of it.
func (c *Canonical) IsEquivalent(name string) bool {
	return c.aliases[name]
}

// At returns the instant of canonical hour h on day. Hour 24 is midnight of
// the following day.
func (c *Canonical) At(day time.Time, h float64) time.Time {
	return wallClock(day, h, c.Location)
}

// ReferenceMode selects which calendar day drives DST-sensitive offsets.
type ReferenceMode int

const (
	// ReferenceToday converts every hour using the viewer's "today",
	// whatever date the slot is on. Conversions for dates on the other side
	// of a DST transition from today can be off by one hour; this is a known
	// limitation kept for compatibility with stored data.
	ReferenceToday ReferenceMode = iota

	// ReferenceSlot converts using the slot's own date.
	ReferenceSlot
)

// ParseReferenceMode maps the REFERENCE_DATE_MODE setting to a mode.
func ParseReferenceMode(s string) ReferenceMode {
	if strings.EqualFold(strings.TrimSpace(s), "slot") {
		return ReferenceSlot
	}
	return ReferenceToday
}

// Options tune how a Viewer converts hours.
type Options struct {
	Mode ReferenceMode

	// Now supplies the clock; defaults to time.Now.
	Now func() time.Time
}

// Viewer is the per-session timezone context: the resolved local zone,
// whether it matches canonical, and the memoized converter. It is built once
// and never mutated; a timezone change means building a new Viewer.
type Viewer struct {
	Name        string
	IsCanonical bool
	Location    *time.Location

	canon *Canonical
	conv  *Converter
}

// Resolve builds the Viewer for a zone name. Empty or unknown names fall back
// to the canonical zone and are treated as canonical.
func Resolve(name string, canon *Canonical, opts Options) *Viewer {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return newViewer(canon.Name, canon.Location, true, canon, opts)
	}

	if canon.IsEquivalent(name) {
		return newViewer(name, canon.Location, true, canon, opts)
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return newViewer(canon.Name, canon.Location, true, canon, opts)
	}
	return newViewer(name, loc, false, canon, opts)
}

// ResolveFromEnvironment resolves the process's own zone: the TZ variable if
// set, otherwise the name of time.Local.
func ResolveFromEnvironment(canon *Canonical, opts Options) *Viewer {
	name := os.Getenv("TZ")
	if name == "" {
		name = time.Local.String()
	}
	return Resolve(name, canon, opts)
}

func newViewer(name string, loc *time.Location, isCanonical bool, canon *Canonical, opts Options) *Viewer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	v := &Viewer{
		Name:        name,
		IsCanonical: isCanonical,
		Location:    loc,
		canon:       canon,
	}
	v.conv = newConverter(v, opts)
	return v
}

// Converter returns the viewer's hour converter.
func (v *Viewer) Converter() *Converter {
	return v.conv
}

// Canonical returns the canonical zone the viewer was resolved against.
func (v *Viewer) Canonical() *Canonical {
	return v.canon
}

// Today is the viewer's current calendar day in its local zone.
func (v *Viewer) Today() time.Time {
	return Day(v.conv.now().In(v.Location))
}

// Registry hands out Viewers by zone name so their conversion caches are
// shared between requests. Entries live until the canonical day changes,
// after which "today"-referenced conversions would be stale.
type Registry struct {
	canon *Canonical
	opts  Options

	mu      sync.Mutex
	day     string
	viewers map[string]*Viewer
}

// maxRegistryViewers bounds the number of distinct zones kept per day.
const maxRegistryViewers = 512

// NewRegistry creates a registry for the given canonical zone.
func NewRegistry(canon *Canonical, opts Options) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{canon: canon, opts: opts, viewers: make(map[string]*Viewer)}
}

// Canonical returns the registry's canonical zone.
func (r *Registry) Canonical() *Canonical {
	return r.canon
}

// Viewer returns the cached Viewer for name, resolving it on first use.
func (r *Registry) Viewer(name string) *Viewer {
	today := FormatDate(Day(r.opts.Now().In(r.canon.Location)))

	r.mu.Lock()
	defer r.mu.Unlock()

	if today != r.day || len(r.viewers) >= maxRegistryViewers {
		r.day = today
		r.viewers = make(map[string]*Viewer)
	}
	if v, ok := r.viewers[name]; ok {
		return v
	}
	v := Resolve(name, r.canon, r.opts)
	r.viewers[name] = v
	return v
}
