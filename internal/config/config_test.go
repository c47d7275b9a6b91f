package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_SchedulingDefaults(t *testing.T) {
	t.Setenv("ENV", "development")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := cfg.Scheduling
	if s.CanonicalTimezone != "America/New_York" {
		t.Errorf("canonical = %q", s.CanonicalTimezone)
	}
	if s.HourStart != 8 || s.HourEnd != 23 {
		t.Errorf("hour grid = [%d,%d)", s.HourStart, s.HourEnd)
	}
	if s.WeekStart != time.Monday {
		t.Errorf("week start = %v", s.WeekStart)
	}
	if s.ReferenceDateMode != "today" {
		t.Errorf("reference mode = %q", s.ReferenceDateMode)
	}
	if s.FetchDebounce != 300*time.Millisecond {
		t.Errorf("debounce = %v", s.FetchDebounce)
	}
}

func TestLoad_RejectsBadHourGrid(t *testing.T) {
	t.Setenv("HOUR_START", "20")
	t.Setenv("HOUR_END", "10")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for inverted hour grid")
	}
}

func TestLoad_RejectsUnknownTimezone(t *testing.T) {
	t.Setenv("CANONICAL_TIMEZONE", "Mars/Olympus_Mons")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}

func TestLoad_WeekStartSunday(t *testing.T) {
	t.Setenv("WEEK_START", "Sunday")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scheduling.WeekStart != time.Sunday {
		t.Errorf("week start = %v", cfg.Scheduling.WeekStart)
	}
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("SECRET_KEY", "short")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for short production secret")
	}
}

func TestLoadAliases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	doc := "canonical: America/New_York\naliases:\n  - US/Eastern\n  - \" EST5EDT \"\n  - US/Eastern\n  - \"\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	f, err := LoadAliases(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Canonical != "America/New_York" {
		t.Errorf("canonical = %q", f.Canonical)
	}
	want := []string{"US/Eastern", "EST5EDT"}
	if len(f.Aliases) != len(want) {
		t.Fatalf("aliases = %v, want %v", f.Aliases, want)
	}
	for i := range want {
		if f.Aliases[i] != want[i] {
			t.Errorf("aliases[%d] = %q, want %q", i, f.Aliases[i], want[i])
		}
	}
}

func TestLoad_AliasFileForOtherZone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	if err := os.WriteFile(path, []byte("canonical: Europe/Paris\naliases: [CET]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TIMEZONE_ALIASES_FILE", path)
	if _, err := Load(); err == nil {
		t.Fatal("expected mismatch error")
	}
}
