package calendar

import (
	"time"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/availability"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/sessions"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// ComputeTier discretizes count/total. Thresholds are compared as integers
// (4*count against total) so quarter boundaries are exact: [0.25, 0.5) is
// low-mid, [0.5, 0.75) mid-high, [0.75, 1) high. A scheduled session
// overrides the ratio.
func ComputeTier(count, total int, scheduled bool) Tier {
	if scheduled {
		return TierScheduled
	}
	if total <= 0 {
		return TierEmpty
	}
	count = max(0, min(count, total))

	switch q := 4 * count; {
	case count == 0:
		return TierNone
	case count == total:
		return TierFull
	case q < total:
		return TierLow
	case q < 2*total:
		return TierLowMid
	case q < 3*total:
		return TierMidHigh
	default:
		return TierHigh
	}
}

// FindSession returns the first session occupying the displayed slot
// (date, localHour), or nil. The slot is converted to its canonical day and
// hour first, so a session and the availability under it always line up.
func FindSession(date time.Time, localHour float64, list []sessions.ScheduledSession, conv *timezone.Converter) *sessions.ScheduledSession {
	day, h := conv.LocalToCanonicalSlot(date, localHour)
	canonicalDay := timezone.FormatDate(day)
	for i := range list {
		if list[i].Covers(canonicalDay, h) {
			return &list[i]
		}
	}
	return nil
}

// Aggregate computes every slot of view. roster defines total; users in all
// who are not on the roster are ignored. viewer is the requesting username,
// used for IsAvailable. Work is one canonical conversion per cell plus one
// map probe per roster member per cell.
func Aggregate(view View, roster []string, all map[string]availability.SlotMap, viewer string, list []sessions.ScheduledSession, conv *timezone.Converter) Grid {
	members := make([]availability.SlotMap, 0, len(roster))
	seen := make(map[string]bool, len(roster))
	for _, name := range roster {
		if seen[name] {
			continue
		}
		seen[name] = true
		members = append(members, all[name]) // nil maps read as all-false
	}
	total := len(members)
	mine := all[viewer]

	byDay := make(map[string][]*sessions.ScheduledSession)
	for i := range list {
		byDay[list[i].Date] = append(byDay[list[i].Date], &list[i])
	}

	grid := Grid{Days: make([][]Slot, len(view.Dates)), Total: total}
	for i, d := range view.Dates {
		row := make([]Slot, len(view.Hours))
		localDate := timezone.FormatDate(d)

		for j, h := range view.Hours {
			cDay, cHour := conv.LocalToCanonicalSlot(d, h)
			cDate := timezone.FormatDate(cDay)
			key := timezone.SlotKey(cDay, cHour)

			count := 0
			for _, m := range members {
				if m[key] {
					count++
				}
			}

			var match *sessions.ScheduledSession
			for _, s := range byDay[cDate] {
				if s.Covers(cDate, cHour) {
					match = s
					break
				}
			}

			row[j] = Slot{
				Date:        localDate,
				Hour:        h,
				Key:         key,
				IsAvailable: mine[key],
				Count:       count,
				Total:       total,
				Tier:        ComputeTier(count, total, match != nil),
				Session:     refOf(match),
			}
		}
		grid.Days[i] = row
	}
	return grid
}
