package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/calendar"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// DefaultDebounce is used when no FETCH_DEBOUNCE is configured.
const DefaultDebounce = 300 * time.Millisecond

// ApplyFunc receives the result of a fetch that is still current.
type ApplyFunc func(resp *calendar.CalendarResponse, err error)

// Refresher refetches the calendar as the view moves. Requests are
// debounced; a request for the range already requested is dropped; and a
// response is applied only if its range is still the one being shown.
type Refresher struct {
	svc    calendar.CalendarService
	delay  time.Duration
	apply  ApplyFunc
	logger *slog.Logger

	mu      sync.Mutex
	current string // key of the latest requested view
	timer   *time.Timer
	closed  bool

	applyMu sync.Mutex
}

// NewRefresher creates a refresher. A zero delay uses DefaultDebounce.
func NewRefresher(svc calendar.CalendarService, delay time.Duration, apply ApplyFunc, logger *slog.Logger) *Refresher {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{svc: svc, delay: delay, apply: apply, logger: logger}
}

// Key identifies the range a request shows. Navigation must already be
// resolved into the anchor.
func Key(req calendar.ViewRequest) string {
	return fmt.Sprintf("%s|%s|%s|%s|%t", req.CampaignID, req.Timezone, timezone.FormatDate(req.Anchor), req.Zoom, req.Fine)
}

// Request schedules a fetch for req after the debounce delay, replacing any
// fetch still waiting. It reports whether a fetch was scheduled.
func (r *Refresher) Request(req calendar.ViewRequest) bool {
	req.Nav = calendar.Stay
	key := Key(req)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || key == r.current {
		return false
	}
	r.current = key
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.delay, func() { r.fetch(req, key) })
	return true
}

// Invalidate forgets the last requested key so the same view can be fetched
// again, e.g. after a write.
func (r *Refresher) Invalidate() {
	r.mu.Lock()
	r.current = ""
	r.mu.Unlock()
}

// Close stops pending fetches and drops any response still in flight.
func (r *Refresher) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
	}
}

func (r *Refresher) isCurrent(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && key == r.current
}

func (r *Refresher) fetch(req calendar.ViewRequest, key string) {
	if !r.isCurrent(key) {
		return
	}

	resp, err := r.svc.GetView(context.Background(), req)

	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	if !r.isCurrent(key) {
		r.logger.Debug("discarding stale calendar response", slog.String("key", key))
		return
	}
	if err != nil {
		// Let the same view be retried.
		r.mu.Lock()
		if r.current == key {
			r.current = ""
		}
		r.mu.Unlock()
	}
	r.apply(resp, err)
}
