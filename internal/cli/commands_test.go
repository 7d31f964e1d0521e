package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSession = `participants:
  - name: Steve
  - name: Alex
  - name: Sam
    offline: true
`

// cliEnv is a database and session file shared by consecutive invocations.
type cliEnv struct {
	db      string
	session string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	session := filepath.Join(dir, "session.yaml")
	require.NoError(t, os.WriteFile(session, []byte(testSession), 0644))
	return &cliEnv{db: filepath.Join(dir, "syncedhp.db"), session: session}
}

func (e *cliEnv) execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--db", e.db, "--session", e.session, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *cliEnv) mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.execute(t, "", args...)
	require.NoError(t, err, out)
	return out
}

func TestCreateAndGroups(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustExecute(t, "groups")
	assert.Contains(t, out, "No groups exist yet!")

	out = env.mustExecute(t, "create", "Alpha")
	assert.Contains(t, out, "Group 'Alpha' has been created!")

	out, err := env.execute(t, "", "create", "Alpha")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [NAME_TAKEN]: The name: 'Alpha' is already taken!")

	env.mustExecute(t, "create", "Beta")
	out = env.mustExecute(t, "groups")
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "Beta")
	assert.Less(t, strings.Index(out, "Alpha"), strings.Index(out, "Beta"))
	assert.Contains(t, out, "20.0")
}

func TestGroupsJSON(t *testing.T) {
	env := newCLIEnv(t)
	env.mustExecute(t, "create", "Alpha")
	env.mustExecute(t, "add", "Steve", "Alpha")

	out := env.mustExecute(t, "--format", "json", "groups")

	var response struct {
		Status string `json:"status"`
		Data   []struct {
			Name     string  `json:"name"`
			Vitality float64 `json:"vitality"`
			Members  int     `json:"members"`
			Online   int     `json:"online"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	require.Len(t, response.Data, 1)
	assert.Equal(t, "Alpha", response.Data[0].Name)
	assert.Equal(t, 20.0, response.Data[0].Vitality)
	assert.Equal(t, 1, response.Data[0].Members)
	assert.Equal(t, 1, response.Data[0].Online)
}

func TestArgumentErrors(t *testing.T) {
	env := newCLIEnv(t)

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"create missing", []string{"create"}, "The command requires an argument!"},
		{"create extra", []string{"create", "A", "B"}, "Too many arguments!"},
		{"add missing", []string{"add", "Steve"}, "The command requires a group and a participant as argument!"},
		{"remove extra", []string{"remove", "Steve", "Alex"}, "Too many arguments!"},
		{"list missing", []string{"list"}, "The command requires an argument!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestMembership(t *testing.T) {
	env := newCLIEnv(t)
	env.mustExecute(t, "create", "Alpha")

	out := env.mustExecute(t, "list", "Alpha")
	assert.Contains(t, out, "No participant is added to group 'Alpha'!")

	out = env.mustExecute(t, "add", "Steve", "Alpha")
	assert.Contains(t, out, "Participant 'Steve' has been added to group 'Alpha'!")
	env.mustExecute(t, "add", "Alex", "Alpha")

	out, err := env.execute(t, "", "add", "Sam", "Alpha")
	require.Error(t, err)
	assert.Contains(t, out, "Error [NOT_ONLINE]")

	out, err = env.execute(t, "", "add", "Steve", "Missing")
	require.Error(t, err)
	assert.Contains(t, out, "Error [NOT_FOUND]: Group 'Missing' does not exist!")

	out = env.mustExecute(t, "list", "Alpha")
	assert.Contains(t, out, "The participants: Steve, Alex are assigned to group 'Alpha'!")

	out = env.mustExecute(t, "list", "Alpha", "--table")
	assert.Contains(t, out, "Steve")
	assert.Contains(t, out, "yes")

	out = env.mustExecute(t, "remove", "Steve")
	assert.Contains(t, out, "Participant 'Steve' has been removed from their group!")

	out, err = env.execute(t, "", "remove", "Steve")
	require.Error(t, err)
	assert.Contains(t, out, "Error [NOT_A_MEMBER]")

	out = env.mustExecute(t, "list", "Alpha")
	assert.Contains(t, out, "The participants: Alex are assigned to group 'Alpha'!")
}

func TestDeleteGroup(t *testing.T) {
	env := newCLIEnv(t)
	env.mustExecute(t, "create", "Alpha")

	out := env.mustExecute(t, "delete", "Alpha")
	assert.Contains(t, out, "Group 'Alpha' has been deleted!")

	out, err := env.execute(t, "", "delete", "Alpha")
	require.Error(t, err)
	assert.Contains(t, out, "Error [NOT_FOUND]")
}

func TestExportImportRoundTrip(t *testing.T) {
	env := newCLIEnv(t)
	env.mustExecute(t, "create", "Alpha")
	env.mustExecute(t, "add", "Steve", "Alpha")

	exported := env.mustExecute(t, "export")
	assert.Contains(t, exported, "Alpha")

	path := filepath.Join(t.TempDir(), "export.yaml")
	env.mustExecute(t, "export", "-o", path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, exported, string(data))

	other := newCLIEnv(t)
	out, err := other.execute(t, exported, "import", "-")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported 1 group(s).")

	out = other.mustExecute(t, "list", "Alpha")
	assert.Contains(t, out, "Steve")
}

func TestImportRejectsInvalidDocument(t *testing.T) {
	env := newCLIEnv(t)
	env.mustExecute(t, "create", "Alpha")

	out, err := env.execute(t, "groups: [1, 2\n", "import", "-")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [")

	out = env.mustExecute(t, "groups")
	assert.Contains(t, out, "Alpha", "failed import leaves the store untouched")
}

func TestRunConsole(t *testing.T) {
	env := newCLIEnv(t)
	env.mustExecute(t, "create", "Alpha")
	env.mustExecute(t, "add", "Steve", "Alpha")
	env.mustExecute(t, "add", "Alex", "Alpha")

	events := strings.Join([]string{
		"# shared damage",
		"damage Steve 5",
		"",
		"damage Nobody 1",
		"fly Steve",
		"quit Alex",
		"wait",
	}, "\n")

	out, err := env.execute(t, events, "run")
	require.NoError(t, err, out)

	assert.Contains(t, out, "Steve: vitality 15.0 (group Alpha at 15.0)")
	assert.Contains(t, out, `unknown participant "Nobody"`)
	assert.Contains(t, out, `unknown event "fly"`)
	assert.Contains(t, out, "Alex: offline")
	assert.Contains(t, out, "idle")

	out = env.mustExecute(t, "groups")
	assert.Contains(t, out, "15.0")
}
