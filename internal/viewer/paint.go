package viewer

import (
	"context"
	"sync"
	"time"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/availability"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// SlotResult is the outcome of one write made during a drag.
type SlotResult struct {
	Date  time.Time
	Hour  float64
	Key   string
	Value bool
	Err   error
}

// Paint is one drag-to-paint gesture. Every cell the pointer passes over is
// set to the same target value, which is the inverse of the cell the drag
// started on. Cells are written independently; a failed cell is reverted on
// its own and the rest stay.
type Paint struct {
	editor *Editor
	target bool
	start  availability.SlotMap

	mu      sync.Mutex
	written map[string]bool
	results []SlotResult
}

// BeginPaint starts a drag on (date, hour). Nothing is written until Over is
// called, including for the starting cell.
func (e *Editor) BeginPaint(date time.Time, hour float64) *Paint {
	start := e.Snapshot()
	return &Paint{
		editor:  e,
		target:  !start.Get(date, hour),
		start:   start,
		written: make(map[string]bool),
	}
}

// Target is the value this drag paints.
func (p *Paint) Target() bool { return p.target }

// Over paints (date, hour). Cells that already held the target at drag
// start, and cells already written in this drag, are skipped.
func (p *Paint) Over(ctx context.Context, date time.Time, hour float64) error {
	key := timezone.SlotKey(date, hour)

	p.mu.Lock()
	if p.written[key] || p.start[key] == p.target {
		p.mu.Unlock()
		return nil
	}
	p.written[key] = true
	p.mu.Unlock()

	err := p.editor.Set(ctx, date, hour, p.target)

	p.mu.Lock()
	p.results = append(p.results, SlotResult{Date: date, Hour: hour, Key: key, Value: p.target, Err: err})
	p.mu.Unlock()
	return err
}

// End finishes the drag and returns one result per written cell, in the
// order they were written.
func (p *Paint) End() []SlotResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SlotResult, len(p.results))
	copy(out, p.results)
	return out
}

// Failed filters results down to the cells whose write failed.
func Failed(results []SlotResult) []SlotResult {
	var out []SlotResult
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
