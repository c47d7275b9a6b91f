// Package calendar builds the group availability view: it picks the days and
// hours to show for a navigation state, folds every roster member's
// availability into per-slot counts and tiers, and marks slots occupied by a
// scheduled session. All of it is timezone-aware; slots are displayed in the
// viewer's zone and looked up in the canonical one.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/sessions"
)

// Zoom is the span of days a view covers.
type Zoom int

const (
	// ZoomCompact is three days centered on the anchor.
	ZoomCompact Zoom = iota

	// ZoomNormal is the anchor's calendar week.
	ZoomNormal

	// ZoomWide is the anchor's calendar week and the one after it.
	ZoomWide
)

// ParseZoom accepts "compact", "normal" or "wide"; empty means normal.
func ParseZoom(s string) (Zoom, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "week":
		return ZoomNormal, nil
	case "compact", "3day":
		return ZoomCompact, nil
	case "wide", "2week":
		return ZoomWide, nil
	}
	return ZoomNormal, fmt.Errorf("unknown zoom level %q", s)
}

// String returns the zoom level's query-string name.
func (z Zoom) String() string {
	switch z {
	case ZoomCompact:
		return "compact"
	case ZoomWide:
		return "wide"
	default:
		return "normal"
	}
}

// MarshalText renders the zoom level by name in JSON.
func (z Zoom) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

// Days is both the number of days shown and the navigation step.
func (z Zoom) Days() int {
	switch z {
	case ZoomCompact:
		return 3
	case ZoomWide:
		return 14
	default:
		return 7
	}
}

// Direction is a navigation step.
type Direction int

const (
	Stay Direction = iota
	Forward
	Backward
)

// ParseDirection accepts forward/next and backward/back/prev; empty is Stay.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Stay, nil
	case "forward", "next":
		return Forward, nil
	case "backward", "back", "prev":
		return Backward, nil
	}
	return Stay, fmt.Errorf("unknown navigation %q", s)
}

// Tier is a slot's display category.
type Tier string

const (
	TierEmpty     Tier = "empty"
	TierNone      Tier = "none"
	TierLow       Tier = "low"
	TierLowMid    Tier = "low-mid"
	TierMidHigh   Tier = "mid-high"
	TierHigh      Tier = "high"
	TierFull      Tier = "full"
	TierScheduled Tier = "scheduled"
)

// Rank orders tiers by visibility. Empty ranks with none.
func (t Tier) Rank() int {
	switch t {
	case TierLow:
		return 1
	case TierLowMid:
		return 2
	case TierMidHigh:
		return 3
	case TierHigh:
		return 4
	case TierFull:
		return 5
	case TierScheduled:
		return 6
	default:
		return 0
	}
}

// ViewOptions are the grid settings loaded from configuration.
type ViewOptions struct {
	HourStart      int // First hour shown.
	HourEnd        int // Exclusive end of the hour grid.
	WeekStart      time.Weekday
	MaxFutureWeeks int
}

// DefaultViewOptions is 08:00-23:00, Monday weeks, twelve weeks ahead.
func DefaultViewOptions() ViewOptions {
	return ViewOptions{HourStart: 8, HourEnd: 23, WeekStart: time.Monday, MaxFutureWeeks: 12}
}

// View is the set of local days and hours a calendar shows.
type View struct {
	Anchor time.Time
	Zoom   Zoom
	Fine   bool
	Dates  []time.Time
	Hours  []float64
}

// Start is the first displayed day.
func (v View) Start() time.Time { return v.Dates[0] }

// End is the last displayed day.
func (v View) End() time.Time { return v.Dates[len(v.Dates)-1] }

// SessionRef is the part of a scheduled session a slot carries.
type SessionRef struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Date      string  `json:"date"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

func refOf(s *sessions.ScheduledSession) *SessionRef {
	if s == nil {
		return nil
	}
	return &SessionRef{ID: s.ID, Title: s.Title, Date: s.Date, StartTime: s.StartTime, EndTime: s.EndTime}
}

// Slot is one computed (day, hour) cell. Date and Hour are viewer-local;
// Key is the canonical slot key the cell reads from.
type Slot struct {
	Date        string      `json:"date"`
	Hour        float64     `json:"hour"`
	Key         string      `json:"key"`
	IsAvailable bool        `json:"is_available"`
	Count       int         `json:"count"`
	Total       int         `json:"total"`
	Tier        Tier        `json:"tier"`
	Session     *SessionRef `json:"session,omitempty"`
}

// Grid holds the slots of a view, one row per displayed day.
type Grid struct {
	Days  [][]Slot
	Total int // Distinct roster members considered.
}

// Cell returns the slot for the i-th day and j-th hour.
func (g Grid) Cell(i, j int) Slot {
	return g.Days[i][j]
}

// ViewRequest is one calendar render.
type ViewRequest struct {
	CampaignID string
	Username   string
	Timezone   string
	Anchor     time.Time // Zero means the viewer's today.
	Zoom       Zoom
	Fine       bool
	Nav        Direction
}

// CalendarResponse is the JSON body of GET /campaigns/:id/calendar.
type CalendarResponse struct {
	Timezone    string    `json:"timezone"`
	IsCanonical bool      `json:"is_canonical"`
	Anchor      string    `json:"anchor"`
	Zoom        Zoom      `json:"zoom"`
	Fine        bool      `json:"fine"`
	Dates       []string  `json:"dates"`
	Hours       []float64 `json:"hours"`
	Slots       [][]Slot  `json:"slots"`
	RosterSize  int       `json:"roster_size"`
	Degraded    bool      `json:"degraded"`
	CanForward  bool      `json:"can_forward"`
}
