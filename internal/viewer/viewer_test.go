package viewer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/availability"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/calendar"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// --- Mocks ---

type mockWriter struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]bool
}

func (m *mockWriter) SetSlot(_ context.Context, date time.Time, hour float64, _ bool) error {
	key := timezone.SlotKey(date, hour)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, key)
	if m.failOn[key] {
		return errors.New("store unavailable")
	}
	return nil
}

type mockAvailabilityService struct {
	availability.AvailabilityService
	gotDay  time.Time
	gotHour float64
}

func (m *mockAvailabilityService) SetSlot(_ context.Context, _, _ string, day time.Time, hour float64, _ bool) error {
	m.gotDay, m.gotHour = day, hour
	return nil
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := timezone.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// --- Editor ---

func TestToggle_Success(t *testing.T) {
	w := &mockWriter{}
	e := NewEditor(w, nil)
	d := day(t, "2024-06-10")

	got, err := e.Toggle(context.Background(), d, 19)
	if err != nil || !got {
		t.Fatalf("Toggle = %v, %v", got, err)
	}
	if !e.Get(d, 19) {
		t.Error("expected slot on after toggle")
	}
	got, _ = e.Toggle(context.Background(), d, 19)
	if got || e.Get(d, 19) {
		t.Error("second toggle should turn slot off")
	}
	if len(w.calls) != 2 {
		t.Errorf("expected 2 writes, got %d", len(w.calls))
	}
}

func TestToggle_RevertsOnFailure(t *testing.T) {
	d := day(t, "2024-06-10")
	w := &mockWriter{failOn: map[string]bool{"2024-06-10-19": true}}
	e := NewEditor(w, availability.SlotMap{"2024-06-10-20": true})

	got, err := e.Toggle(context.Background(), d, 19)
	if err == nil {
		t.Fatal("expected error")
	}
	if got || e.Get(d, 19) {
		t.Error("failed write must revert to the previous value")
	}
	if !e.Get(d, 20) {
		t.Error("unrelated slot must be untouched")
	}
}

func TestServiceWriter_ConvertsToCanonical(t *testing.T) {
	canon, err := timezone.NewCanonical("America/New_York", nil)
	if err != nil {
		t.Fatal(err)
	}
	now := func() time.Time { return time.Date(2024, time.June, 10, 16, 0, 0, 0, time.UTC) }
	v := timezone.Resolve("Europe/London", canon, timezone.Options{Now: now})
	svc := &mockAvailabilityService{}
	w := &ServiceWriter{Service: svc, Converter: v.Converter(), CampaignID: "c1", Username: "alice"}

	// London 01:00 on 06-11 is 20:00 on 06-10 in New York.
	if err := w.SetSlot(context.Background(), day(t, "2024-06-11"), 1, true); err != nil {
		t.Fatal(err)
	}
	if timezone.FormatDate(svc.gotDay) != "2024-06-10" || svc.gotHour != 20 {
		t.Errorf("expected 2024-06-10 20, got %s %v", timezone.FormatDate(svc.gotDay), svc.gotHour)
	}
}

// --- Paint ---

func TestPaint_SkipsCellsAlreadyAtTarget(t *testing.T) {
	d := day(t, "2024-06-10")
	w := &mockWriter{}
	e := NewEditor(w, availability.SlotMap{"2024-06-10-11": true})

	p := e.BeginPaint(d, 10)
	if !p.Target() {
		t.Fatal("drag from an empty cell should paint available")
	}
	for _, h := range []float64{10, 11, 12, 11, 10} {
		if err := p.Over(context.Background(), d, h); err != nil {
			t.Fatal(err)
		}
	}
	results := p.End()

	if len(results) != 2 || results[0].Key != "2024-06-10-10" || results[1].Key != "2024-06-10-12" {
		t.Errorf("expected writes for 10 and 12 only, got %+v", results)
	}
	if len(w.calls) != 2 {
		t.Errorf("expected 2 store writes, got %v", w.calls)
	}
	for _, h := range []float64{10, 11, 12} {
		if !e.Get(d, h) {
			t.Errorf("hour %v should be available", h)
		}
	}
}

func TestPaint_PartialFailure(t *testing.T) {
	d := day(t, "2024-06-10")
	w := &mockWriter{failOn: map[string]bool{"2024-06-10-15": true}}
	e := NewEditor(w, availability.SlotMap{
		"2024-06-10-14": true, "2024-06-10-15": true, "2024-06-10-16": true,
	})

	p := e.BeginPaint(d, 14)
	if p.Target() {
		t.Fatal("drag from an available cell should clear")
	}
	for _, h := range []float64{14, 15, 16} {
		_ = p.Over(context.Background(), d, h)
	}
	results := p.End()

	failed := Failed(results)
	if len(results) != 3 || len(failed) != 1 || failed[0].Key != "2024-06-10-15" {
		t.Fatalf("expected one failure at 15, got %+v", results)
	}
	if e.Get(d, 14) || e.Get(d, 16) {
		t.Error("successful cells stay cleared")
	}
	if !e.Get(d, 15) {
		t.Error("failed cell must be reverted individually")
	}
}

// --- Refresher ---

type mockCalendar struct {
	mu    sync.Mutex
	calls int32
	block map[string]chan struct{}
	err   error
}

func (m *mockCalendar) GetView(_ context.Context, req calendar.ViewRequest) (*calendar.CalendarResponse, error) {
	atomic.AddInt32(&m.calls, 1)
	m.mu.Lock()
	ch := m.block[timezone.FormatDate(req.Anchor)]
	m.mu.Unlock()
	if ch != nil {
		<-ch
	}
	if m.err != nil {
		return nil, m.err
	}
	return &calendar.CalendarResponse{Anchor: timezone.FormatDate(req.Anchor)}, nil
}

type applied struct {
	resp *calendar.CalendarResponse
	err  error
}

func collector() (ApplyFunc, chan applied) {
	ch := make(chan applied, 8)
	return func(resp *calendar.CalendarResponse, err error) { ch <- applied{resp, err} }, ch
}

func waitApplied(t *testing.T, ch chan applied) applied {
	t.Helper()
	select {
	case a := <-ch:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for apply")
		return applied{}
	}
}

func expectNoApply(t *testing.T, ch chan applied, wait time.Duration) {
	t.Helper()
	select {
	case a := <-ch:
		t.Fatalf("unexpected apply: %+v", a)
	case <-time.After(wait):
	}
}

func req(t *testing.T, anchor string) calendar.ViewRequest {
	return calendar.ViewRequest{CampaignID: "c1", Anchor: day(t, anchor), Zoom: calendar.ZoomNormal}
}

func TestRefresher_Debounce(t *testing.T) {
	svc := &mockCalendar{}
	apply, ch := collector()
	r := NewRefresher(svc, 50*time.Millisecond, apply, nil)
	defer r.Close()

	r.Request(req(t, "2024-06-10"))
	r.Request(req(t, "2024-06-17"))
	r.Request(req(t, "2024-06-24"))

	a := waitApplied(t, ch)
	if a.resp.Anchor != "2024-06-24" {
		t.Errorf("expected last requested view, got %s", a.resp.Anchor)
	}
	expectNoApply(t, ch, 100*time.Millisecond)
	if n := atomic.LoadInt32(&svc.calls); n != 1 {
		t.Errorf("expected 1 fetch, got %d", n)
	}
}

func TestRefresher_SkipsIdenticalRange(t *testing.T) {
	svc := &mockCalendar{}
	apply, ch := collector()
	r := NewRefresher(svc, 10*time.Millisecond, apply, nil)
	defer r.Close()

	if !r.Request(req(t, "2024-06-10")) {
		t.Fatal("first request should schedule")
	}
	waitApplied(t, ch)

	next := req(t, "2024-06-10")
	next.Nav = calendar.Forward // ignored: navigation is resolved by the caller
	if r.Request(next) {
		t.Error("identical range should be skipped")
	}
	r.Invalidate()
	if !r.Request(req(t, "2024-06-10")) {
		t.Error("invalidated range should be refetched")
	}
	waitApplied(t, ch)
	if n := atomic.LoadInt32(&svc.calls); n != 2 {
		t.Errorf("expected 2 fetches, got %d", n)
	}
}

func TestRefresher_DiscardsStaleResponse(t *testing.T) {
	release := make(chan struct{})
	svc := &mockCalendar{block: map[string]chan struct{}{"2024-06-10": release}}
	apply, ch := collector()
	r := NewRefresher(svc, time.Millisecond, apply, nil)
	defer r.Close()

	r.Request(req(t, "2024-06-10"))
	// Wait for the slow fetch to be in flight.
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&svc.calls) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first fetch never started")
		}
		time.Sleep(time.Millisecond)
	}

	r.Request(req(t, "2024-06-17"))
	a := waitApplied(t, ch)
	if a.resp.Anchor != "2024-06-17" {
		t.Fatalf("expected fresh view applied, got %s", a.resp.Anchor)
	}

	close(release)
	expectNoApply(t, ch, 100*time.Millisecond)
}

func TestRefresher_ErrorAllowsRetry(t *testing.T) {
	svc := &mockCalendar{err: errors.New("boom")}
	apply, ch := collector()
	r := NewRefresher(svc, time.Millisecond, apply, nil)
	defer r.Close()

	r.Request(req(t, "2024-06-10"))
	if a := waitApplied(t, ch); a.err == nil {
		t.Fatal("expected error to be applied")
	}
	if !r.Request(req(t, "2024-06-10")) {
		t.Error("failed range should be retryable")
	}
}
