package presence

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/auth"
)

// newTestStore creates a presence store backed by an in-process miniredis.
func newTestStore(t *testing.T, ttl time.Duration) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, ttl), mr
}

func TestActive_WithinWindow(t *testing.T) {
	s, _ := newTestStore(t, 5*time.Minute)
	ctx := context.Background()
	now := time.Date(2024, time.June, 10, 16, 0, 0, 0, time.UTC)

	_ = s.Touch(ctx, "alice", now.Add(-time.Minute))
	_ = s.Touch(ctx, "bob", now.Add(-10*time.Minute))
	_ = s.Touch(ctx, "carol", now)

	active, err := s.Active(ctx, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(active) != 2 || active[0].Username != "carol" || active[1].Username != "alice" {
		t.Errorf("expected [carol alice], got %+v", active)
	}
	if !active[1].LastSeen.Equal(now.Add(-time.Minute)) {
		t.Errorf("unexpected last seen: %v", active[1].LastSeen)
	}
}

func TestTouch_Refreshes(t *testing.T) {
	s, _ := newTestStore(t, time.Minute)
	ctx := context.Background()
	now := time.Date(2024, time.June, 10, 16, 0, 0, 0, time.UTC)

	_ = s.Touch(ctx, "alice", now.Add(-time.Hour))
	_ = s.Touch(ctx, "alice", now)

	active, _ := s.Active(ctx, now)
	if len(active) != 1 {
		t.Fatalf("expected refreshed entry, got %+v", active)
	}
	if err := s.Touch(ctx, "", now); err != nil {
		t.Errorf("empty username should be ignored, got %v", err)
	}
}

func TestSweep_RemovesStale(t *testing.T) {
	s, mr := newTestStore(t, 5*time.Minute)
	ctx := context.Background()
	now := time.Date(2024, time.June, 10, 16, 0, 0, 0, time.UTC)

	_ = s.Touch(ctx, "alice", now)
	_ = s.Touch(ctx, "bob", now.Add(-6*time.Minute))
	_ = s.Touch(ctx, "carol", now.Add(-time.Hour))

	n, err := s.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	members, _ := mr.ZMembers(Key)
	if len(members) != 1 || members[0] != "alice" {
		t.Errorf("expected only alice left, got %v", members)
	}
}

func TestSweeper_Run(t *testing.T) {
	s, mr := newTestStore(t, time.Minute)
	now := time.Date(2024, time.June, 10, 16, 0, 0, 0, time.UTC)
	_ = s.Touch(context.Background(), "alice", now.Add(-2*time.Minute))

	sw, err := NewSweeper(s, "@every 1h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sw.now = func() time.Time { return now }
	sw.run()

	if members, _ := mr.ZMembers(Key); len(members) != 0 {
		t.Errorf("expected sweep to empty the set, got %v", members)
	}

	sw.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sw.Stop(ctx)
}

func TestNewSweeper_InvalidSpec(t *testing.T) {
	s, _ := newTestStore(t, time.Minute)
	if _, err := NewSweeper(s, "not a schedule"); err == nil {
		t.Error("expected error for invalid cron spec")
	}
}

func TestTrack_TouchesAuthenticatedUser(t *testing.T) {
	s, mr := newTestStore(t, time.Hour)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/campaigns", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	auth.SetSession(c, &auth.Session{UserID: "u1", Username: "alice"})

	h := Track(s)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := mr.ZScore(Key, "alice"); err != nil {
		t.Errorf("expected alice to be tracked: %v", err)
	}

	// Anonymous requests are not tracked.
	c2 := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if err := h(c2); err != nil {
		t.Fatal(err)
	}
	if members, _ := mr.ZMembers(Key); len(members) != 1 {
		t.Errorf("expected one member, got %v", members)
	}
}
