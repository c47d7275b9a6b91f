package timezone

import (
	"math"
	"testing"
	"time"
)

// fixedNow pins "today" to 2024-06-10 (EDT in the canonical zone).
func fixedNow() time.Time {
	return time.Date(2024, time.June, 10, 16, 0, 0, 0, time.UTC)
}

func newTestCanonical(t *testing.T) *Canonical {
	t.Helper()
	canon, err := NewCanonical("America/New_York", []string{"America/Port-au-Prince"})
	if err != nil {
		t.Fatalf("loading canonical: %v", err)
	}
	return canon
}

func resolve(t *testing.T, name string, mode ReferenceMode) *Viewer {
	t.Helper()
	return Resolve(name, newTestCanonical(t), Options{Mode: mode, Now: fixedNow})
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestResolve_Canonical(t *testing.T) {
	tests := []struct {
		name     string
		wantName string
	}{
		{"America/New_York", "America/New_York"},
		{"US/Eastern", "US/Eastern"},
		{"America/Port-au-Prince", "America/Port-au-Prince"},
		{"", "America/New_York"},
		{"   ", "America/New_York"},
		{"Not/AZone", "America/New_York"},
	}
	for _, tt := range tests {
		v := resolve(t, tt.name, ReferenceToday)
		if !v.IsCanonical {
			t.Errorf("Resolve(%q).IsCanonical = false", tt.name)
		}
		if v.Name != tt.wantName {
			t.Errorf("Resolve(%q).Name = %q, want %q", tt.name, v.Name, tt.wantName)
		}
	}
}

func TestResolve_NonCanonical(t *testing.T) {
	v := resolve(t, "Europe/Berlin", ReferenceToday)
	if v.IsCanonical {
		t.Fatal("Europe/Berlin reported as canonical")
	}
	if v.Location.String() != "Europe/Berlin" {
		t.Errorf("location = %s", v.Location)
	}
}

func TestResolveFromEnvironment(t *testing.T) {
	t.Setenv("TZ", "America/Chicago")
	v := ResolveFromEnvironment(newTestCanonical(t), Options{Now: fixedNow})
	if v.Name != "America/Chicago" || v.IsCanonical {
		t.Errorf("got %q canonical=%v", v.Name, v.IsCanonical)
	}
}

func TestConverter_IdentityWhenCanonical(t *testing.T) {
	conv := resolve(t, "US/Eastern", ReferenceSlot).Converter()
	days := []string{"2024-01-15", "2024-03-10", "2024-11-03", "2025-07-04"}
	for _, ds := range days {
		d := mustDate(t, ds)
		for h := 0.0; h < 24; h += 0.5 {
			if got := conv.ToLocalHour(h, d); got != h {
				t.Errorf("ToLocalHour(%v, %s) = %v", h, ds, got)
			}
			if got := conv.ToCanonicalHour(h, d); got != h {
				t.Errorf("ToCanonicalHour(%v, %s) = %v", h, ds, got)
			}
		}
	}
}

func TestConverter_Offsets(t *testing.T) {
	day := mustDate(t, "2024-06-10")
	tests := []struct {
		zone      string
		canonical float64
		local     float64
	}{
		{"America/Halifax", 9, 10},
		{"America/Los_Angeles", 14, 11},
		{"Europe/London", 14, 19},
		{"Asia/Kolkata", 14, 23.5},
		{"Asia/Kolkata", 14.5, 24},
	}
	for _, tt := range tests {
		conv := resolve(t, tt.zone, ReferenceToday).Converter()
		if got := conv.ToLocalHour(tt.canonical, day); !almostEqual(got, tt.local) {
			t.Errorf("%s: ToLocalHour(%v) = %v, want %v", tt.zone, tt.canonical, got, tt.local)
		}
		if got := conv.ToCanonicalHour(tt.local, day); !almostEqual(got, tt.canonical) {
			t.Errorf("%s: ToCanonicalHour(%v) = %v, want %v", tt.zone, tt.local, got, tt.canonical)
		}
	}
}

func TestConverter_RoundTrip(t *testing.T) {
	zones := []string{"America/Halifax", "America/Los_Angeles", "Europe/London", "Asia/Kolkata", "Australia/Adelaide", "Pacific/Kiritimati"}
	days := []string{"2024-01-15", "2024-06-10", "2024-10-01"}
	for _, mode := range []ReferenceMode{ReferenceToday, ReferenceSlot} {
		for _, zone := range zones {
			conv := resolve(t, zone, mode).Converter()
			for _, ds := range days {
				d := mustDate(t, ds)
				for h := 0.0; h < 24; h += 0.5 {
					local := conv.ToLocalHour(h, d)
					if back := conv.ToCanonicalHour(local, d); !almostEqual(back, h) {
						t.Errorf("mode %d %s %s: round trip %v -> %v -> %v", mode, zone, ds, h, local, back)
					}
				}
			}
		}
	}
}

func TestConverter_ReferenceModes(t *testing.T) {
	// On 2024-03-20 New York is already on EDT (UTC-4) but London is still
	// on GMT, so the real gap is 4 hours; in June it is 5.
	march := mustDate(t, "2024-03-20")

	slot := resolve(t, "Europe/London", ReferenceSlot).Converter()
	if got := slot.ToLocalHour(14, march); got != 18 {
		t.Errorf("slot mode: ToLocalHour(14, March 20) = %v, want 18", got)
	}

	today := resolve(t, "Europe/London", ReferenceToday).Converter()
	if got := today.ToLocalHour(14, march); got != 19 {
		t.Errorf("today mode: ToLocalHour(14, March 20) = %v, want 19 (today's offset)", got)
	}
}

func TestConverter_TodayModeMemoizesPerHour(t *testing.T) {
	conv := resolve(t, "America/Los_Angeles", ReferenceToday).Converter()
	conv.ToLocalHour(14, mustDate(t, "2024-06-10"))
	conv.ToLocalHour(14, mustDate(t, "2024-12-24"))
	conv.ToLocalHour(15, mustDate(t, "2024-12-24"))

	conv.mu.Lock()
	n := len(conv.cache)
	conv.mu.Unlock()
	if n != 2 {
		t.Errorf("cache entries = %d, want 2 (one per hour)", n)
	}
}

func TestConverter_SlotWrapsAcrossMidnight(t *testing.T) {
	conv := resolve(t, "Asia/Kolkata", ReferenceSlot).Converter()
	day := mustDate(t, "2024-06-10")

	localDay, localHour := conv.CanonicalToLocalSlot(day, 15)
	if FormatDate(localDay) != "2024-06-11" || localHour != 0.5 {
		t.Errorf("CanonicalToLocalSlot = %s %v, want 2024-06-11 0.5", FormatDate(localDay), localHour)
	}

	canonDay, canonHour := conv.LocalToCanonicalSlot(localDay, localHour)
	if FormatDate(canonDay) != "2024-06-10" || canonHour != 15 {
		t.Errorf("LocalToCanonicalSlot = %s %v, want 2024-06-10 15", FormatDate(canonDay), canonHour)
	}

	west := resolve(t, "Pacific/Honolulu", ReferenceSlot).Converter()
	localDay, localHour = west.CanonicalToLocalSlot(day, 2)
	if FormatDate(localDay) != "2024-06-09" || localHour != 20 {
		t.Errorf("Honolulu: got %s %v, want 2024-06-09 20", FormatDate(localDay), localHour)
	}
}

func TestRegistry_SharesViewersPerDay(t *testing.T) {
	now := fixedNow()
	reg := NewRegistry(newTestCanonical(t), Options{Now: func() time.Time { return now }})

	a := reg.Viewer("Europe/London")
	b := reg.Viewer("Europe/London")
	if a != b {
		t.Error("expected the same viewer within a day")
	}

	now = now.Add(24 * time.Hour)
	c := reg.Viewer("Europe/London")
	if c == a {
		t.Error("expected a fresh viewer after the day changed")
	}
}

func TestHourKeys(t *testing.T) {
	tests := []struct {
		h    float64
		want string
	}{
		{14, "14"},
		{14.5, "14.5"},
		{0, "0"},
		{9.000000000001, "9"},
	}
	for _, tt := range tests {
		if got := HourKey(tt.h); got != tt.want {
			t.Errorf("HourKey(%v) = %q, want %q", tt.h, got, tt.want)
		}
	}
	if _, err := ParseHourKey("noon"); err == nil {
		t.Error("expected error for non-numeric hour key")
	}
	if got := SlotKey(mustDate(t, "2024-06-10"), 14.5); got != "2024-06-10-14.5" {
		t.Errorf("SlotKey = %q", got)
	}
	day, h, err := ParseSlotKey("2024-06-10-14.5")
	if err != nil || FormatDate(day) != "2024-06-10" || h != 14.5 {
		t.Errorf("ParseSlotKey = %v %v %v", day, h, err)
	}
	for _, bad := range []string{"2024-06-10", "2024-06-10x14", "2024-13-10-9", "2024-06-10-x"} {
		if _, _, err := ParseSlotKey(bad); err == nil {
			t.Errorf("ParseSlotKey(%q) should fail", bad)
		}
	}
	if ValidHour(24) || ValidHour(-0.5) || ValidHour(3.25) || !ValidHour(23.5) {
		t.Error("ValidHour bounds wrong")
	}
}

func TestCanonicalAt(t *testing.T) {
	canon := newTestCanonical(t)
	got := canon.At(mustDate(t, "2024-06-10"), 13.5)
	want := time.Date(2024, 6, 10, 17, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("At(13.5) = %v, want %v", got.UTC(), want)
	}
	end := canon.At(mustDate(t, "2024-06-10"), 24)
	if !end.Equal(time.Date(2024, 6, 11, 4, 0, 0, 0, time.UTC)) {
		t.Errorf("At(24) = %v, want next-day midnight", end.UTC())
	}
}
