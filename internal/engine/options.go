package engine

import (
	"log/slog"
	"time"

	"github.com/roach88/syncedhp/internal/metrics"
)

// DefaultPollInterval is how often a respawn watcher re-reads a location.
const DefaultPollInterval = 50 * time.Millisecond

// Option configures an Engine.
type Option func(*options)

type options struct {
	pollInterval time.Duration
	logger       *slog.Logger
	clock        Clock
	metrics      *metrics.Metrics
}

func defaultOptions() options {
	return options{
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
		clock:        SystemClock{},
	}
}

// WithPollInterval sets the respawn watcher poll interval.
// Non-positive values keep the default.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithLogger sets the logger used by the engine and its registry.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the clock used to stamp member records.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithMetrics enables prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
