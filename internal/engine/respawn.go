package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/syncedhp/internal/metrics"
)

// WatchOutcome is how a respawn watcher finished.
type WatchOutcome string

const (
	// WatchDone means the location changed and the pool vitality was written.
	WatchDone WatchOutcome = "done"

	// WatchAbandoned means the location became unreadable or the participant
	// left its group before the location changed.
	WatchAbandoned WatchOutcome = "abandoned"

	// WatchCancelled means the engine stopped first.
	WatchCancelled WatchOutcome = "cancelled"
)

// respawnWatcher waits for the host to finish repositioning a respawned
// participant, then overwrites the vitality the host assigned with the
// group's pool value.
//
// The watcher has two states. It stays watching while the location equals
// the snapshot taken at the respawn event and performs a single write on
// the first observed change.
type respawnWatcher struct {
	participant Participant
	snapshot    Location
	registry    *Registry
	interval    time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func (w *respawnWatcher) run(ctx context.Context) WatchOutcome {
	w.metrics.WatcherStarted()
	defer w.metrics.WatcherStopped()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return WatchCancelled
		case <-ticker.C:
		}

		loc, err := w.participant.Location()
		if err != nil {
			return WatchAbandoned
		}
		if loc == w.snapshot {
			continue
		}

		v, ok := w.registry.VitalityOf(w.participant.ID())
		if !ok {
			return WatchAbandoned
		}
		w.participant.SetVitality(v)
		return WatchDone
	}
}
