package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcc-dev/zcc/internal/config"
	"github.com/zcc-dev/zcc/internal/workspace"
)

func setup(t *testing.T) (*workspace.Workspace, *Generator) {
	t.Helper()
	ws := workspace.New(t.TempDir(), workspace.ScopeProject)
	require.NoError(t, ws.EnsureDirs())
	for _, m := range []string{"engineer", "architect"} {
		require.NoError(t, os.WriteFile(filepath.Join(ws.ModesDir(), m+".md"), []byte("# "+m), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(ws.WorkflowsDir(), "review.md"), []byte("# review"), 0644))
	cfg := config.New()
	cfg.DefaultMode = "engineer"
	require.NoError(t, cfg.SaveTo(ws.ConfigPath()))
	return ws, NewGenerator(ws, "", nil)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"zcc-mode.md", "zcc-status.md", "zcc-workflow.md", "zcc.md"}, Names())
}

func TestInstall(t *testing.T) {
	ws, g := setup(t)

	written, err := g.Install(false)
	require.NoError(t, err)
	assert.Len(t, written, 4)

	data, err := os.ReadFile(filepath.Join(ws.CommandsDir(), "zcc.md"))
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, Marker)
	assert.Contains(t, s, "- engineer (default)")
	assert.Contains(t, s, "- architect\n")
	assert.Contains(t, s, "- review")

	data, err = os.ReadFile(filepath.Join(ws.CommandsDir(), "zcc-mode.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "argument-hint: <mode> (architect | engineer)")

	data, err = os.ReadFile(filepath.Join(ws.CommandsDir(), "zcc-status.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "!`zcc status`")
}

func TestStatus(t *testing.T) {
	ws, g := setup(t)

	st, err := g.Status()
	require.NoError(t, err)
	for _, s := range st {
		assert.Equal(t, StateMissing, s.State, s.Name)
	}

	_, err = g.Install(false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(ws.ModesDir(), "reviewer.md"), []byte("# r"), 0644))

	st, err = g.Status()
	require.NoError(t, err)
	states := map[string]State{}
	for _, s := range st {
		states[s.Name] = s.State
	}
	assert.Equal(t, StateOutdated, states["zcc"], "a new mode changes the overview")
	assert.Equal(t, StateCurrent, states["zcc-workflow"])
	assert.Equal(t, ".claude/commands/zcc.md", st[len(st)-1].Path)
}

func TestForeignFilesArePreserved(t *testing.T) {
	ws, g := setup(t)
	mine := filepath.Join(ws.CommandsDir(), "zcc-status.md")
	require.NoError(t, os.MkdirAll(ws.CommandsDir(), 0755))
	require.NoError(t, os.WriteFile(mine, []byte("my own command"), 0644))

	written, err := g.Install(false)
	require.NoError(t, err)
	assert.Len(t, written, 3)

	st, err := g.Status()
	require.NoError(t, err)
	for _, s := range st {
		if s.Name == "zcc-status" {
			assert.Equal(t, StateForeign, s.State)
		}
	}

	removed, err := g.Cleanup()
	require.NoError(t, err)
	assert.Len(t, removed, 3)
	data, err := os.ReadFile(mine)
	require.NoError(t, err)
	assert.Equal(t, "my own command", string(data))

	_, err = g.Install(true)
	require.NoError(t, err)
	data, _ = os.ReadFile(mine)
	assert.True(t, strings.Contains(string(data), Marker))
}

func TestCleanupRemovesDirectory(t *testing.T) {
	ws, g := setup(t)
	_, err := g.Install(false)
	require.NoError(t, err)

	removed, err := g.Cleanup()
	require.NoError(t, err)
	assert.Len(t, removed, 4)
	assert.NoDirExists(t, ws.CommandsDir())
}
