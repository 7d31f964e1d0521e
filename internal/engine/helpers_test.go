package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/syncedhp/internal/metrics"
	"github.com/roach88/syncedhp/internal/store"
	"github.com/roach88/syncedhp/internal/testutil"
)

// env wires an engine to a temp store and a fake host.
type env struct {
	t       *testing.T
	store   *store.Store
	host    *fakeHost
	clock   *testutil.DeterministicClock
	metrics *metrics.Metrics
	engine  *Engine
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return &env{
		t:       t,
		store:   testutil.OpenStore(t),
		host:    &fakeHost{},
		clock:   testutil.NewDeterministicClock(testutil.Epoch, time.Minute),
		metrics: metrics.New(),
	}
}

// start connects ps and starts a fresh engine over the env's store.
func (e *env) start(ps ...*fakeParticipant) *Engine {
	e.t.Helper()
	e.host.connect(ps...)
	e.engine = New(e.store, e.host, append(testOptions(e.clock), WithMetrics(e.metrics))...)
	require.NoError(e.t, e.engine.Start(e.t.Context()))
	e.t.Cleanup(e.engine.Stop)
	return e.engine
}

// restart stops the current engine and loads a new one from the same store.
func (e *env) restart() *Engine {
	e.t.Helper()
	e.engine.Stop()
	return e.start()
}

func (e *env) value(path string) string {
	e.t.Helper()
	v, ok, err := e.store.Get(e.t.Context(), path)
	require.NoError(e.t, err)
	require.True(e.t, ok, "%q not stored", path)
	return v
}

func (e *env) absent(path string) {
	e.t.Helper()
	_, ok, err := e.store.Get(e.t.Context(), path)
	require.NoError(e.t, err)
	require.False(e.t, ok, "%q still stored", path)
}

func (e *env) entries() []store.Entry {
	e.t.Helper()
	entries, err := e.store.Entries(e.t.Context())
	require.NoError(e.t, err)
	return entries
}

func (e *env) seed(entries []store.Entry) {
	e.t.Helper()
	err := e.store.Update(e.t.Context(), func(tx *store.Tx) error {
		return tx.Replace(entries)
	})
	require.NoError(e.t, err)
}

// create makes groups and fails the test on error.
func (e *env) create(names ...string) {
	e.t.Helper()
	for _, name := range names {
		_, err := e.engine.CreateGroup(e.t.Context(), name)
		require.NoError(e.t, err)
	}
}

func (e *env) add(group string, ps ...*fakeParticipant) {
	e.t.Helper()
	for _, p := range ps {
		require.NoError(e.t, e.engine.AddParticipant(e.t.Context(), p.Name(), group))
	}
}

func (e *env) group(name string) GroupInfo {
	e.t.Helper()
	g, err := e.engine.Registry().Find(name)
	require.NoError(e.t, err)
	return g
}

var (
	steve = newFake("Steve").ID()
	alex  = newFake("Alex").ID()
)

// validDoc is a consistent two-group document with one member in Alpha.
func validDoc() []store.Entry {
	return []store.Entry{
		{Path: "Health Bar Count", Value: "2"},
		{Path: "Health Bar 0.Name", Value: "Alpha"},
		{Path: "Health Bar 0.Health", Value: "15.0"},
		{Path: "Health Bar 0.Player Count", Value: "1"},
		{Path: "Health Bar 0.Player 0.Name", Value: "Steve"},
		{Path: "Health Bar 0.Player 0.UUID", Value: steve.String()},
		{Path: "Health Bar 0.Player 0.Last Login", Value: "12:00 | 01.03.2024"},
		{Path: "Health Bar 1.Name", Value: "Beta"},
		{Path: "Health Bar 1.Health", Value: "20.0"},
		{Path: "Health Bar 1.Player Count", Value: "0"},
	}
}

func withEntry(doc []store.Entry, path, value string) []store.Entry {
	out := append([]store.Entry(nil), doc...)
	for i := range out {
		if out[i].Path == path {
			out[i].Value = value
			return out
		}
	}
	return append(out, store.Entry{Path: path, Value: value})
}

func withoutEntry(doc []store.Entry, path string) []store.Entry {
	var out []store.Entry
	for _, e := range doc {
		if e.Path != path {
			out = append(out, e)
		}
	}
	return out
}
