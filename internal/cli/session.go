package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/syncedhp/internal/engine"
	"github.com/roach88/syncedhp/internal/sim"
	"github.com/roach88/syncedhp/internal/store"
)

// session is one engine run over the configured store, with the
// participants of the configured session file online.
type session struct {
	store  *store.Store
	world  *sim.World
	engine *engine.Engine
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// openStore opens the configured database.
func openStore(opts *RootOptions) (*store.Store, error) {
	if opts.Config.Database == "" {
		return nil, NewExitError(ExitCommandError, "no database configured")
	}
	st, err := store.Open(opts.Config.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// openSession opens the store, loads the session world and starts an
// engine. A failed startup load is returned as the engine's error.
func openSession(ctx context.Context, opts *RootOptions, extra ...engine.Option) (*session, error) {
	world := sim.NewWorld()
	if path := opts.Config.Session; path != "" {
		w, err := sim.LoadSession(path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load session", err)
		}
		world = w
	}

	st, err := openStore(opts)
	if err != nil {
		return nil, err
	}

	engineOpts := []engine.Option{
		engine.WithLogger(opts.logger()),
		engine.WithPollInterval(opts.Config.PollInterval),
	}
	eng := engine.New(st, world, append(engineOpts, extra...)...)
	if err := eng.Start(ctx); err != nil {
		st.Close()
		return nil, err
	}

	opts.logger().Debug("session opened", "db", opts.Config.Database, "online", len(world.Online()))
	return &session{store: st, world: world, engine: eng}, nil
}

// Close stops the engine and closes the store.
func (s *session) Close() error {
	s.engine.Stop()
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

// withSession runs fn against a freshly opened session and reports any
// error in the configured output format.
func withSession(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, s *session) error) error {
	ctx := commandContext(cmd)
	s, err := openSession(ctx, opts)
	if err != nil {
		return reportError(cmd, opts, err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			opts.logger().Error("error closing session", "error", err)
		}
	}()

	if err := fn(ctx, s); err != nil {
		return reportError(cmd, opts, err)
	}
	return nil
}

// exactArgs requires exactly n positional arguments.
func exactArgs(n int, missing string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		switch {
		case len(args) > n:
			return NewExitError(ExitCommandError, "Too many arguments!")
		case len(args) < n:
			return NewExitError(ExitCommandError, missing)
		}
		return nil
	}
}
