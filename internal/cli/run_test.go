package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/syncedhp/internal/config"
)

func testOptions(t *testing.T) *RootOptions {
	t.Helper()
	dir := t.TempDir()
	session := filepath.Join(dir, "session.yaml")
	require.NoError(t, os.WriteFile(session, []byte(testSession), 0644))

	cfg := config.Default()
	cfg.Database = filepath.Join(dir, "syncedhp.db")
	cfg.Session = session
	cfg.PollInterval = time.Millisecond
	return &RootOptions{Format: "text", Config: cfg}
}

func openTestSession(t *testing.T, opts *RootOptions) *session {
	t.Helper()
	s, err := openSession(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenSessionRequiresDatabase(t *testing.T) {
	opts := &RootOptions{Format: "text"}
	_, err := openSession(context.Background(), opts)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOpenSessionMissingSessionFile(t *testing.T) {
	opts := testOptions(t)
	opts.Config.Session = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := openSession(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load session")
}

func TestConsoleDispatch(t *testing.T) {
	ctx := context.Background()
	s := openTestSession(t, testOptions(t))
	_, err := s.engine.CreateGroup(ctx, "Alpha")
	require.NoError(t, err)
	require.NoError(t, s.engine.AddParticipant(ctx, "Steve", "Alpha"))
	require.NoError(t, s.engine.AddParticipant(ctx, "Alex", "Alpha"))

	tests := []struct {
		line string
		want string
	}{
		{"damage Steve 6", "Steve: vitality 14.0 (group Alpha at 14.0)"},
		{"heal Alex 2 magic", "Alex: vitality 16.0 (group Alpha at 16.0)"},
		{"move Steve world 1 64 -3", "Steve: vitality 16.0 (group Alpha at 16.0)"},
		{"quit Alex", "Alex: offline"},
		{"join Alex", "Alex: vitality 16.0 (group Alpha at 16.0)"},
		{"wait", "idle"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			out, err := s.dispatch(ctx, strings.Fields(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestConsoleDispatchErrors(t *testing.T) {
	ctx := context.Background()
	s := openTestSession(t, testOptions(t))

	tests := []struct {
		line string
		want string
	}{
		{"fly Steve", `unknown event "fly"`},
		{"damage Steve", "damage: expected 2 to 2 arguments, got 1"},
		{"heal Steve 1 MAGIC extra", "heal: expected 2 to 3 arguments, got 4"},
		{"join Nobody", `unknown participant "Nobody"`},
		{"damage Steve lots", `invalid amount "lots"`},
		{"damage Steve -1", `invalid amount "-1"`},
		{"damage Steve NaN", `invalid amount "NaN"`},
		{"heal Steve +Inf", `invalid amount "+Inf"`},
		{"damage Steve -inf", `invalid amount "-inf"`},
		{"move Steve world 1 up 3", `invalid coordinate "up"`},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := s.dispatch(ctx, strings.Fields(tt.line))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConsoleSkipsCommentsAndReportsErrors(t *testing.T) {
	ctx := context.Background()
	s := openTestSession(t, testOptions(t))
	_, err := s.engine.CreateGroup(ctx, "Alpha")
	require.NoError(t, err)

	input := "# comment\n\njoin Sam\ndamage Sam 3\nquit Sam\nfly\n"
	var out bytes.Buffer
	require.NoError(t, s.console(ctx, strings.NewReader(input), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Sam: vitality 20.0", lines[0])
	assert.Equal(t, "Sam: vitality 17.0", lines[1])
	assert.Equal(t, "Sam: offline", lines[2])
	assert.Equal(t, `Error [E_INTERNAL]: unknown event "fly"`, lines[3])
}

func TestConsoleStopsOnCancel(t *testing.T) {
	s := openTestSession(t, testOptions(t))

	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.console(ctx, r, io.Discard)
	}()

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("console did not stop after cancel")
	}
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	addrFlag := runCmd.Flags().Lookup("metrics-addr")
	require.NotNil(t, addrFlag)
	assert.Equal(t, "", addrFlag.DefValue)
}

func TestRunCorruptedStore(t *testing.T) {
	env := newCLIEnv(t)
	env.mustExecute(t, "create", "Alpha")

	opts := testOptions(t)
	opts.Config.Database = env.db
	st, err := openStore(opts)
	require.NoError(t, err)
	doc := "Health Bar Count: 2\nHealth Bar 1:\n  Name: Alpha\n  Health: 20.0\n  Player Count: 0\n"
	require.NoError(t, st.Import(context.Background(), strings.NewReader(doc), nil))
	require.NoError(t, st.Close())

	out, err := env.execute(t, "damage Steve 1\n", "run")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "The store could not be loaded. Please repair it and try again!")
}
