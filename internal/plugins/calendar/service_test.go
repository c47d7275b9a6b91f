package calendar

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/availability"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/sessions"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// --- Fixtures ---

// fixedNow is Monday 2024-06-10, noon in New York (EDT).
func fixedNow() time.Time {
	return time.Date(2024, time.June, 10, 16, 0, 0, 0, time.UTC)
}

func testCanonical(t *testing.T) *timezone.Canonical {
	t.Helper()
	canon, err := timezone.NewCanonical("America/New_York", nil)
	if err != nil {
		t.Fatal(err)
	}
	return canon
}

func viewer(t *testing.T, name string) *timezone.Viewer {
	t.Helper()
	return timezone.Resolve(name, testCanonical(t), timezone.Options{Now: fixedNow})
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := timezone.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// findCell locates the slot for a local date and hour.
func findCell(t *testing.T, g Grid, day string, hour float64) Slot {
	t.Helper()
	for _, row := range g.Days {
		for _, s := range row {
			if s.Date == day && s.Hour == hour {
				return s
			}
		}
	}
	t.Fatalf("no cell for %s %v", day, hour)
	return Slot{}
}

func weekView(t *testing.T, anchor string) View {
	t.Helper()
	v, err := BuildView(date(t, anchor), ZoomNormal, false, DefaultViewOptions())
	if err != nil {
		t.Fatal(err)
	}
	return v
}

// --- Tiers ---

func TestComputeTier_Thresholds(t *testing.T) {
	tests := []struct {
		count, total int
		scheduled    bool
		want         Tier
	}{
		{0, 0, false, TierEmpty},
		{0, 0, true, TierScheduled},
		{0, 3, false, TierNone},
		{1, 5, false, TierLow},
		{1, 4, false, TierLowMid},
		{1, 3, false, TierLowMid},
		{2, 4, false, TierMidHigh},
		{2, 3, false, TierMidHigh},
		{3, 4, false, TierHigh},
		{4, 5, false, TierHigh},
		{4, 4, false, TierFull},
		{0, 4, true, TierScheduled},
		{7, 4, false, TierFull},
		{-1, 4, false, TierNone},
	}
	for _, tt := range tests {
		if got := ComputeTier(tt.count, tt.total, tt.scheduled); got != tt.want {
			t.Errorf("ComputeTier(%d, %d, %v) = %s, want %s", tt.count, tt.total, tt.scheduled, got, tt.want)
		}
	}
}

func TestComputeTier_Monotonic(t *testing.T) {
	for total := 1; total <= 24; total++ {
		prev := -1
		for count := 0; count <= total; count++ {
			rank := ComputeTier(count, total, false).Rank()
			if rank < prev {
				t.Fatalf("tier rank dropped at %d/%d: %d < %d", count, total, rank, prev)
			}
			prev = rank
			if ComputeTier(count, total, true) != TierScheduled {
				t.Fatalf("session must force scheduled at %d/%d", count, total)
			}
		}
	}
}

// --- View builder ---

func TestBuildView_Zooms(t *testing.T) {
	opts := DefaultViewOptions()

	compact, err := BuildView(date(t, "2024-06-12"), ZoomCompact, false, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(compact.Dates) != 3 || timezone.FormatDate(compact.Start()) != "2024-06-11" || timezone.FormatDate(compact.End()) != "2024-06-13" {
		t.Errorf("compact should center on anchor, got %v..%v", compact.Start(), compact.End())
	}

	normal, _ := BuildView(date(t, "2024-06-12"), ZoomNormal, false, opts)
	if len(normal.Dates) != 7 || timezone.FormatDate(normal.Start()) != "2024-06-10" {
		t.Errorf("normal should start Monday 2024-06-10, got %v", normal.Start())
	}

	opts.WeekStart = time.Sunday
	sunday, _ := BuildView(date(t, "2024-06-12"), ZoomNormal, false, opts)
	if timezone.FormatDate(sunday.Start()) != "2024-06-09" {
		t.Errorf("sunday week should start 2024-06-09, got %v", sunday.Start())
	}

	wide, _ := BuildView(date(t, "2024-06-16"), ZoomWide, false, DefaultViewOptions())
	if len(wide.Dates) != 14 || timezone.FormatDate(wide.Start()) != "2024-06-10" || timezone.FormatDate(wide.End()) != "2024-06-23" {
		t.Errorf("wide should cover two weeks from 2024-06-10, got %v..%v", wide.Start(), wide.End())
	}
}

func TestBuildView_HourGrid(t *testing.T) {
	coarse, _ := BuildView(date(t, "2024-06-10"), ZoomNormal, false, DefaultViewOptions())
	if len(coarse.Hours) != 15 || coarse.Hours[0] != 8 || coarse.Hours[14] != 22 {
		t.Errorf("expected hours 8..22, got %v", coarse.Hours)
	}
	fine, _ := BuildView(date(t, "2024-06-10"), ZoomNormal, true, DefaultViewOptions())
	if len(fine.Hours) != 30 || fine.Hours[1] != 8.5 || fine.Hours[29] != 22.5 {
		t.Errorf("expected half hours 8..22.5, got %v", fine.Hours)
	}
}

func TestBuildView_InvalidGrid(t *testing.T) {
	for _, opts := range []ViewOptions{
		{HourStart: -1, HourEnd: 10},
		{HourStart: 8, HourEnd: 25},
		{HourStart: 12, HourEnd: 12},
		{HourStart: 14, HourEnd: 9},
	} {
		if _, err := BuildView(date(t, "2024-06-10"), ZoomNormal, false, opts); !errors.Is(err, ErrInvalidGrid) {
			t.Errorf("BuildView(%+v) error = %v, want ErrInvalidGrid", opts, err)
		}
	}
}

func TestNavigate(t *testing.T) {
	opts := DefaultViewOptions()
	opts.MaxFutureWeeks = 2
	today := date(t, "2024-06-10")

	if got := Navigate(date(t, "2024-06-10"), ZoomNormal, Forward, today, opts); timezone.FormatDate(got) != "2024-06-17" {
		t.Errorf("forward week = %v", got)
	}
	if got := Navigate(date(t, "2024-06-10"), ZoomCompact, Backward, today, opts); timezone.FormatDate(got) != "2024-06-07" {
		t.Errorf("backward compact = %v", got)
	}
	if got := Navigate(date(t, "2024-06-20"), ZoomNormal, Forward, today, opts); timezone.FormatDate(got) != "2024-06-24" {
		t.Errorf("forward should clamp to 2024-06-24, got %v", got)
	}
	if got := Navigate(date(t, "2024-01-01"), ZoomWide, Backward, today, opts); timezone.FormatDate(got) != "2023-12-18" {
		t.Errorf("backward is unbounded, got %v", got)
	}
}

func TestNavigate_MaxFutureClamp(t *testing.T) {
	opts := DefaultViewOptions()
	today := date(t, "2024-06-10")
	limit := MaxAnchor(today, opts)

	for _, z := range []Zoom{ZoomCompact, ZoomNormal, ZoomWide} {
		if got := Navigate(limit, z, Forward, today, opts); !got.Equal(limit) {
			t.Errorf("%s: forward at limit moved anchor to %v", z, got)
		}
	}
	// Past the limit (e.g. a typed-in anchor) forward never moves back.
	beyond := timezone.AddDays(limit, 10)
	if got := Navigate(beyond, ZoomNormal, Forward, today, opts); !got.Equal(beyond) {
		t.Errorf("forward from beyond limit should stay, got %v", got)
	}
}

// --- Aggregation ---

func TestAggregate_BasicScenario(t *testing.T) {
	v := viewer(t, "America/New_York")
	all := map[string]availability.SlotMap{
		"alice": {"2024-06-10-14": true},
		"bob":   {"2024-06-10-14": true},
		"carol": {"2024-06-10-14": false},
	}
	g := Aggregate(weekView(t, "2024-06-10"), []string{"alice", "bob", "carol"}, all, "carol", nil, v.Converter())

	cell := findCell(t, g, "2024-06-10", 14)
	if cell.Count != 2 || cell.Total != 3 {
		t.Errorf("expected 2/3, got %d/%d", cell.Count, cell.Total)
	}
	if cell.Tier != TierMidHigh {
		t.Errorf("expected mid-high, got %s", cell.Tier)
	}
	if cell.IsAvailable {
		t.Error("carol is not available at 14")
	}
	if other := findCell(t, g, "2024-06-10", 15); other.Count != 0 || other.Tier != TierNone {
		t.Errorf("expected empty neighbour, got %+v", other)
	}
}

func TestAggregate_SessionOverride(t *testing.T) {
	v := viewer(t, "America/New_York")
	list := []sessions.ScheduledSession{{ID: "s1", Title: "Game night", Date: "2024-06-10", StartTime: 13, EndTime: 15}}
	g := Aggregate(weekView(t, "2024-06-10"), []string{"alice", "bob"}, nil, "alice", list, v.Converter())

	cell := findCell(t, g, "2024-06-10", 14)
	if cell.Count != 0 {
		t.Fatalf("expected no availability, got %d", cell.Count)
	}
	if cell.Session == nil || cell.Session.ID != "s1" || cell.Tier != TierScheduled {
		t.Errorf("expected scheduled s1, got %+v", cell)
	}
	if end := findCell(t, g, "2024-06-10", 15); end.Session != nil {
		t.Error("session end hour is exclusive")
	}
}

func TestAggregate_RosterDefinesTotal(t *testing.T) {
	v := viewer(t, "America/New_York")
	all := map[string]availability.SlotMap{
		"alice":    {"2024-06-10-9": true},
		"stranger": {"2024-06-10-9": true},
	}
	g := Aggregate(weekView(t, "2024-06-10"), []string{"alice", "bob", "alice"}, all, "alice", nil, v.Converter())

	cell := findCell(t, g, "2024-06-10", 9)
	if cell.Total != 2 || cell.Count != 1 {
		t.Errorf("expected 1/2 (stranger ignored, roster deduped), got %d/%d", cell.Count, cell.Total)
	}
	if g.Total != 2 {
		t.Errorf("grid total = %d, want 2", g.Total)
	}

	empty := Aggregate(weekView(t, "2024-06-10"), nil, all, "alice", nil, v.Converter())
	if c := findCell(t, empty, "2024-06-10", 9); c.Tier != TierEmpty || c.Total != 0 {
		t.Errorf("empty roster should give empty tier, got %+v", c)
	}
}

func TestAggregate_Bounds(t *testing.T) {
	v := viewer(t, "Europe/Berlin")
	view, _ := BuildView(date(t, "2024-06-10"), ZoomWide, true, DefaultViewOptions())
	roster := []string{"a", "b", "c", "d", "e"}

	all := map[string]availability.SlotMap{}
	for i, u := range roster {
		m := availability.SlotMap{}
		for d := 0; d < 16; d++ {
			for h := 0.0; h < 24; h += 0.5 {
				if (d+int(h*2)+i)%(i+2) == 0 {
					m[timezone.SlotKey(timezone.AddDays(date(t, "2024-06-09"), d), h)] = true
				}
			}
		}
		all[u] = m
	}

	g := Aggregate(view, roster, all, "a", nil, v.Converter())
	for _, row := range g.Days {
		for _, s := range row {
			if s.Count < 0 || s.Count > s.Total || s.Total != len(roster) {
				t.Fatalf("slot out of bounds: %+v", s)
			}
		}
	}
}

func TestAggregate_LocalViewerReadsCanonicalKeys(t *testing.T) {
	// London is canonical+5 in June: canonical 14 shows at local 19.
	v := viewer(t, "Europe/London")
	all := map[string]availability.SlotMap{"alice": {"2024-06-10-14": true}}
	g := Aggregate(weekView(t, "2024-06-10"), []string{"alice"}, all, "alice", nil, v.Converter())

	cell := findCell(t, g, "2024-06-10", 19)
	if !cell.IsAvailable || cell.Count != 1 || cell.Key != "2024-06-10-14" {
		t.Errorf("expected local 19 to read canonical 14, got %+v", cell)
	}
	if findCell(t, g, "2024-06-10", 14).Count != 0 {
		t.Error("local 14 must not read canonical 14")
	}
}

// --- Session overlap ---

func TestFindSession_OffsetOverlap(t *testing.T) {
	// Halifax is one hour ahead of New York on 2024-06-10.
	conv := viewer(t, "America/Halifax").Converter()
	list := []sessions.ScheduledSession{{ID: "s1", Date: "2024-06-10", StartTime: 9, EndTime: 10}}
	d := date(t, "2024-06-10")

	if s := FindSession(d, 10, list, conv); s == nil || s.ID != "s1" {
		t.Errorf("local 10 (canonical 9) should match, got %v", s)
	}
	if s := FindSession(d, 9, list, conv); s != nil {
		t.Error("local 9 (canonical 8) must not match")
	}
	if s := FindSession(d, 11, list, conv); s != nil {
		t.Error("local 11 (canonical 10) must not match")
	}
}

func TestFindSession_FirstMatchWins(t *testing.T) {
	conv := viewer(t, "America/New_York").Converter()
	list := []sessions.ScheduledSession{
		{ID: "first", Date: "2024-06-10", StartTime: 18, EndTime: 22},
		{ID: "second", Date: "2024-06-10", StartTime: 19, EndTime: 21},
	}
	if s := FindSession(date(t, "2024-06-10"), 20, list, conv); s == nil || s.ID != "first" {
		t.Errorf("expected first overlapping session, got %v", s)
	}
}

func TestFindSession_AcrossMidnight(t *testing.T) {
	// Tokyo is canonical+13: local 09:00 on 06-11 is canonical 20:00 on 06-10.
	conv := viewer(t, "Asia/Tokyo").Converter()
	list := []sessions.ScheduledSession{{ID: "late", Date: "2024-06-10", StartTime: 19, EndTime: 23}}
	if s := FindSession(date(t, "2024-06-11"), 9, list, conv); s == nil {
		t.Error("expected session on previous canonical day to match")
	}
	if s := FindSession(date(t, "2024-06-10"), 9, list, conv); s != nil {
		t.Error("local 06-10 09:00 is canonical 06-09 and must not match")
	}
}

// --- Service ---

type mockRoster struct {
	names []string
	err   error
}

func (m *mockRoster) Roster(context.Context, string) ([]string, error) { return m.names, m.err }

type mockAvailability struct {
	all      map[string]availability.SlotMap
	degraded bool
	gotRange availability.DateRange
}

func (m *mockAvailability) GetAllAvailability(_ context.Context, _ string, r availability.DateRange) (map[string]availability.SlotMap, bool, error) {
	m.gotRange = r
	if m.degraded {
		return map[string]availability.SlotMap{}, true, nil
	}
	return m.all, false, nil
}

type mockSessions struct {
	list []sessions.ScheduledSession
	err  error
}

func (m *mockSessions) ListInRange(context.Context, string, time.Time, time.Time) ([]sessions.ScheduledSession, error) {
	return m.list, m.err
}

func newTestService(t *testing.T, roster *mockRoster, avail *mockAvailability, sess *mockSessions, opts ViewOptions) CalendarService {
	t.Helper()
	zones := timezone.NewRegistry(testCanonical(t), timezone.Options{Now: fixedNow})
	return NewCalendarService(roster, avail, sess, zones, opts)
}

func TestGetView_Default(t *testing.T) {
	avail := &mockAvailability{all: map[string]availability.SlotMap{
		"alice": {"2024-06-10-14": true},
		"bob":   {"2024-06-10-14": true},
	}}
	svc := newTestService(t,
		&mockRoster{names: []string{"alice", "bob", "carol"}},
		avail,
		&mockSessions{},
		DefaultViewOptions())

	resp, err := svc.GetView(context.Background(), ViewRequest{CampaignID: "c1", Username: "alice", Zoom: ZoomNormal})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Anchor != "2024-06-10" || len(resp.Dates) != 7 || resp.Dates[0] != "2024-06-10" {
		t.Errorf("unexpected view: anchor=%s dates=%v", resp.Anchor, resp.Dates)
	}
	if !resp.IsCanonical || resp.RosterSize != 3 || resp.Degraded {
		t.Errorf("unexpected flags: %+v", resp)
	}
	if got := timezone.FormatDate(avail.gotRange.Start); got != "2024-06-09" {
		t.Errorf("fetch should be padded a day, started %s", got)
	}
	cell := resp.Slots[0][14-8]
	if cell.Count != 2 || cell.Tier != TierMidHigh || !cell.IsAvailable {
		t.Errorf("unexpected cell: %+v", cell)
	}
	if !resp.CanForward {
		t.Error("expected forward navigation to be possible")
	}
}

func TestGetView_DegradesOnStoreFailure(t *testing.T) {
	svc := newTestService(t,
		&mockRoster{names: []string{"alice", "bob"}},
		&mockAvailability{degraded: true},
		&mockSessions{err: errors.New("db down")},
		DefaultViewOptions())

	resp, err := svc.GetView(context.Background(), ViewRequest{CampaignID: "c1", Username: "alice"})
	if err != nil {
		t.Fatalf("degraded read must not fail: %v", err)
	}
	if !resp.Degraded {
		t.Error("expected degraded response")
	}
	for _, row := range resp.Slots {
		for _, s := range row {
			if s.Total != 2 || s.Count != 0 || s.Tier != TierNone {
				t.Fatalf("degraded slot should be 0/2 none, got %+v", s)
			}
		}
	}
}

func TestGetView_ForwardClamp(t *testing.T) {
	opts := DefaultViewOptions()
	opts.MaxFutureWeeks = 1
	svc := newTestService(t, &mockRoster{}, &mockAvailability{}, &mockSessions{}, opts)

	resp, err := svc.GetView(context.Background(), ViewRequest{
		CampaignID: "c1", Anchor: date(t, "2024-06-17"), Zoom: ZoomNormal, Nav: Forward,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Anchor != "2024-06-17" || resp.CanForward {
		t.Errorf("expected anchor clamped at 2024-06-17 with no forward, got %s can_forward=%v", resp.Anchor, resp.CanForward)
	}
}

func TestGetView_InvalidGrid(t *testing.T) {
	svc := newTestService(t, &mockRoster{}, &mockAvailability{}, &mockSessions{},
		ViewOptions{HourStart: 20, HourEnd: 10})
	_, err := svc.GetView(context.Background(), ViewRequest{CampaignID: "c1"})
	assertAppError(t, err, http.StatusBadRequest)
}

func TestGetView_RosterFailure(t *testing.T) {
	svc := newTestService(t, &mockRoster{err: errors.New("boom")}, &mockAvailability{}, &mockSessions{}, DefaultViewOptions())
	_, err := svc.GetView(context.Background(), ViewRequest{CampaignID: "c1"})
	assertAppError(t, err, http.StatusInternalServerError)
}

func TestParseZoomAndDirection(t *testing.T) {
	if z, err := ParseZoom("WIDE"); err != nil || z != ZoomWide {
		t.Errorf("ParseZoom(WIDE) = %v, %v", z, err)
	}
	if _, err := ParseZoom("month"); err == nil {
		t.Error("expected error for unknown zoom")
	}
	if d, err := ParseDirection("prev"); err != nil || d != Backward {
		t.Errorf("ParseDirection(prev) = %v, %v", d, err)
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
}
