package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// ErrInvalidGrid is returned for hour bounds outside 0..24 or reversed.
var ErrInvalidGrid = errors.New("invalid hour grid")

// BuildView returns the days and hours to display for an anchor day and zoom
// level. The fine flag switches the hour grid to half-hour steps over the
// same bounds.
func BuildView(anchor time.Time, zoom Zoom, fine bool, opts ViewOptions) (View, error) {
	if opts.HourStart < 0 || opts.HourEnd > 24 || opts.HourStart >= opts.HourEnd {
		return View{}, fmt.Errorf("%w: [%d, %d)", ErrInvalidGrid, opts.HourStart, opts.HourEnd)
	}

	anchor = timezone.Day(anchor)
	var start time.Time
	switch zoom {
	case ZoomCompact:
		start = timezone.AddDays(anchor, -1)
	default:
		start = weekStart(anchor, opts.WeekStart)
	}

	n := zoom.Days()
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = timezone.AddDays(start, i)
	}

	return View{
		Anchor: anchor,
		Zoom:   zoom,
		Fine:   fine,
		Dates:  dates,
		Hours:  hourGrid(opts.HourStart, opts.HourEnd, fine),
	}, nil
}

// Navigate moves the anchor one zoom span. Moving forward never goes past
// MaxFutureWeeks from today and never moves the anchor backwards; at the
// limit the anchor is returned unchanged. Backward moves are unbounded.
func Navigate(anchor time.Time, zoom Zoom, dir Direction, today time.Time, opts ViewOptions) time.Time {
	anchor = timezone.Day(anchor)
	step := zoom.Days()

	switch dir {
	case Backward:
		return timezone.AddDays(anchor, -step)
	case Forward:
		next := timezone.AddDays(anchor, step)
		if opts.MaxFutureWeeks > 0 {
			if limit := MaxAnchor(today, opts); next.After(limit) {
				next = limit
			}
		}
		if next.Before(anchor) {
			return anchor
		}
		return next
	default:
		return anchor
	}
}

// MaxAnchor is the furthest day forward navigation may reach.
func MaxAnchor(today time.Time, opts ViewOptions) time.Time {
	return timezone.AddDays(timezone.Day(today), 7*opts.MaxFutureWeeks)
}

func weekStart(day time.Time, first time.Weekday) time.Time {
	back := (int(day.Weekday()) - int(first) + 7) % 7
	return timezone.AddDays(day, -back)
}

func hourGrid(start, end int, fine bool) []float64 {
	step := 1.0
	if fine {
		step = 0.5
	}
	hours := make([]float64, 0, int(float64(end-start)/step))
	for h := float64(start); h < float64(end); h += step {
		hours = append(hours, h)
	}
	return hours
}
