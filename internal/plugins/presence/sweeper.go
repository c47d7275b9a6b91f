package presence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSpec runs the sweep once a minute.
const DefaultSweepSpec = "@every 1m"

// Sweeper evicts stale presence entries on a cron schedule.
type Sweeper struct {
	store Store
	cron  *cron.Cron
	now   func() time.Time
}

// NewSweeper validates spec and prepares the schedule. Call Start to run it.
func NewSweeper(store Store, spec string) (*Sweeper, error) {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	s := &Sweeper{store: store, cron: cron.New(), now: time.Now}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("scheduling presence sweep %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish, or for
// ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := s.store.Sweep(ctx, s.now())
	if err != nil {
		slog.Warn("presence sweep failed", slog.Any("error", err))
		return
	}
	if n > 0 {
		slog.Debug("presence sweep", slog.Int64("removed", n))
	}
}
