package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/syncedhp/internal/engine"
	"github.com/roach88/syncedhp/internal/metrics"
	"github.com/roach88/syncedhp/internal/sim"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the engine and feed it host events from stdin",
		Long: `Start the engine over the configured store and session, then read host
events from stdin, one per line:

  join <participant>
  quit <participant>
  damage <participant> <amount>
  heal <participant> <amount> [SATIATED|MAGIC|CUSTOM]
  respawn <participant>
  move <participant> <world> <x> <y> <z>
  wait

Blank lines and lines starting with # are ignored. The engine stops at end
of input or on SIGINT/SIGTERM. With --metrics-addr, prometheus metrics are
served on /metrics while the engine runs.

Example:
  syncedhp run --session session.yaml --metrics-addr :9090 < events.txt`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd, opts)
		},
	}

	cmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")

	return cmd
}

func runEngine(cmd *cobra.Command, opts *RunOptions) error {
	logger := opts.logger()

	parentCtx := commandContext(cmd)
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	m := metrics.New()
	if addr := opts.Config.MetricsAddr; addr != "" {
		srv := serveMetrics(addr, m, opts)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("error stopping metrics server", "error", err)
			}
		}()
	}

	s, err := openSession(ctx, opts.RootOptions, engine.WithMetrics(m))
	if err != nil {
		return reportError(cmd, opts.RootOptions, err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("error closing session", "error", err)
		}
	}()

	logger.Info("engine running", "db", opts.Config.Database, "online", len(s.world.Online()))
	if err := s.console(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "session error", err)
	}

	// Let pending respawns finish unless shutdown was requested.
	if err := s.engine.WaitIdle(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "session error", err)
	}
	logger.Info("engine stopped gracefully")
	return nil
}

func serveMetrics(addr string, m *metrics.Metrics, opts *RunOptions) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			opts.logger().Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	opts.logger().Info("serving metrics", "addr", addr)
	return srv
}

// console reads host events from r until EOF or ctx is done. Malformed
// lines and engine errors are reported on w and do not stop the session.
func (s *session) console(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			fields := strings.Fields(line)
			if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
				continue
			}
			out, err := s.dispatch(ctx, fields)
			if err != nil {
				code, msg := describeError(err)
				fmt.Fprintf(w, "Error [%s]: %s\n", code, msg)
				continue
			}
			fmt.Fprintln(w, out)
		}
	}
}

// dispatch runs one console event and describes its effect.
func (s *session) dispatch(ctx context.Context, fields []string) (string, error) {
	verb, args := fields[0], fields[1:]

	want := map[string][2]int{
		"join":    {1, 1},
		"quit":    {1, 1},
		"damage":  {2, 2},
		"heal":    {2, 3},
		"respawn": {1, 1},
		"move":    {5, 5},
		"wait":    {0, 0},
	}
	n, ok := want[verb]
	if !ok {
		return "", fmt.Errorf("unknown event %q", verb)
	}
	if len(args) < n[0] || len(args) > n[1] {
		return "", fmt.Errorf("%s: expected %d to %d arguments, got %d", verb, n[0], n[1], len(args))
	}

	if verb == "wait" {
		if err := s.engine.WaitIdle(ctx); err != nil {
			return "", err
		}
		return "idle", nil
	}

	p, ok := s.world.ByName(args[0])
	if !ok {
		return "", fmt.Errorf("unknown participant %q", args[0])
	}

	switch verb {
	case "join":
		if err := s.world.Join(ctx, s.engine, p); err != nil {
			return "", err
		}
	case "quit":
		if err := s.world.Quit(s.engine, p); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: offline", p.Name()), nil
	case "damage":
		amount, err := parseAmount(args[1])
		if err != nil {
			return "", err
		}
		if err := s.world.Damage(ctx, s.engine, p, amount); err != nil {
			return "", err
		}
	case "heal":
		amount, err := parseAmount(args[1])
		if err != nil {
			return "", err
		}
		cause := engine.CauseCustom
		if len(args) == 3 {
			cause = engine.RegainCause(strings.ToUpper(args[2]))
		}
		applied, err := s.world.Heal(ctx, s.engine, p, amount, cause)
		if err != nil {
			return "", err
		}
		if !applied {
			return fmt.Sprintf("%s: heal cancelled, %s", p.Name(), s.describe(p)), nil
		}
	case "respawn":
		if err := s.world.Respawn(s.engine, p); err != nil {
			return "", err
		}
	case "move":
		loc, err := parseLocation(args[1:])
		if err != nil {
			return "", err
		}
		p.MoveTo(loc)
	}
	return fmt.Sprintf("%s: %s", p.Name(), s.describe(p)), nil
}

func (s *session) describe(p *sim.Participant) string {
	out := "vitality " + strconv.FormatFloat(p.Vitality(), 'f', 1, 64)
	if info, ok := s.engine.Registry().GroupOf(p.ID()); ok {
		out += fmt.Sprintf(" (group %s at %s)", info.Name, strconv.FormatFloat(info.Vitality, 'f', 1, 64))
	}
	return out
}

func parseAmount(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	return v, nil
}

func parseLocation(fields []string) (engine.Location, error) {
	loc := engine.Location{World: fields[0]}
	coords := []*float64{&loc.X, &loc.Y, &loc.Z}
	for i, raw := range fields[1:] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return engine.Location{}, fmt.Errorf("invalid coordinate %q", raw)
		}
		*coords[i] = v
	}
	return loc, nil
}
