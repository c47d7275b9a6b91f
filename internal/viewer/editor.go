// Package viewer holds the interactive side of the scheduler: the current
// user's optimistic availability edits, drag-to-paint batches, and the
// debounced calendar refetch. It works in viewer-local coordinates and
// leaves canonical conversion to its SlotWriter.
package viewer

import (
	"context"
	"sync"
	"time"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/availability"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// SlotWriter persists one viewer-local slot.
type SlotWriter interface {
	SetSlot(ctx context.Context, date time.Time, hour float64, available bool) error
}

// ServiceWriter writes through the availability service, converting each
// local slot to its canonical day and hour first.
type ServiceWriter struct {
	Service    availability.AvailabilityService
	Converter  *timezone.Converter
	CampaignID string
	Username   string
}

// SetSlot implements SlotWriter.
func (w *ServiceWriter) SetSlot(ctx context.Context, date time.Time, hour float64, available bool) error {
	day, h := w.Converter.LocalToCanonicalSlot(date, hour)
	return w.Service.SetSlot(ctx, w.Username, w.CampaignID, day, h, available)
}

// Editor is the current user's local availability with optimistic writes.
// A change is visible immediately; if the write fails it is reverted.
type Editor struct {
	writer SlotWriter

	mu    sync.Mutex
	slots availability.SlotMap
}

// NewEditor starts from the user's localized slots.
func NewEditor(writer SlotWriter, initial availability.SlotMap) *Editor {
	slots := make(availability.SlotMap, len(initial))
	for k, v := range initial {
		if v {
			slots[k] = true
		}
	}
	return &Editor{writer: writer, slots: slots}
}

// Get returns the displayed value of a local slot.
func (e *Editor) Get(date time.Time, hour float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slots.Get(date, hour)
}

// Snapshot copies the displayed state.
func (e *Editor) Snapshot() availability.SlotMap {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(availability.SlotMap, len(e.slots))
	for k, v := range e.slots {
		out[k] = v
	}
	return out
}

// Replace swaps in freshly fetched state, e.g. after a calendar refetch.
func (e *Editor) Replace(slots availability.SlotMap) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.slots = make(availability.SlotMap, len(slots))
	for k, v := range slots {
		if v {
			e.slots[k] = true
		}
	}
}

// Toggle flips a slot and writes it. It returns the value the slot ends up
// with: the flipped value on success, the original one on failure.
func (e *Editor) Toggle(ctx context.Context, date time.Time, hour float64) (bool, error) {
	e.mu.Lock()
	next := !e.slots.Get(date, hour)
	e.mu.Unlock()

	if err := e.Set(ctx, date, hour, next); err != nil {
		return !next, err
	}
	return next, nil
}

// Set applies value optimistically and writes it. On failure the slot goes
// back to its previous value unless something else changed it meanwhile.
func (e *Editor) Set(ctx context.Context, date time.Time, hour float64, value bool) error {
	key := timezone.SlotKey(date, hour)

	e.mu.Lock()
	prev := e.slots[key]
	e.put(key, value)
	e.mu.Unlock()

	if err := e.writer.SetSlot(ctx, date, hour, value); err != nil {
		e.mu.Lock()
		if e.slots[key] == value {
			e.put(key, prev)
		}
		e.mu.Unlock()
		return err
	}
	return nil
}

// put keeps the map sparse. Caller holds mu.
func (e *Editor) put(key string, value bool) {
	if value {
		e.slots[key] = true
	} else {
		delete(e.slots, key)
	}
}
