package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeProject, s)

	s, err = ParseScope("global")
	require.NoError(t, err)
	assert.Equal(t, ScopeGlobal, s)

	_, err = ParseScope("galaxy")
	assert.Error(t, err)
}

func TestOpen_Global(t *testing.T) {
	home := t.TempDir()
	t.Setenv("ZCC_HOME", home)

	ws, err := Open("/somewhere", ScopeGlobal)
	require.NoError(t, err)
	assert.Equal(t, home, ws.Root)
	assert.Equal(t, filepath.Join(home, ".zcc", "modes"), ws.ModesDir())
}

func TestEnsureDirsAndPaths(t *testing.T) {
	root := t.TempDir()
	ws := New(root, ScopeProject)
	require.NoError(t, ws.EnsureDirs())

	for _, dir := range []string{ws.ModesDir(), ws.WorkflowsDir(), ws.AgentsDir(), ws.HookDefinitionsDir(), ws.HookScriptsDir(), ws.PacksDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}

	assert.Equal(t, ".zcc/modes/a.md", ws.Rel(filepath.Join(ws.ModesDir(), "a.md")))
	assert.Equal(t, filepath.Join(root, ".zcc", "modes", "a.md"), ws.Abs(".zcc/modes/a.md"))
	assert.Equal(t, filepath.Join(root, ".zcc", "packs", "x.manifest.json"), ws.SnapshotPath("x"))
}

func TestTempDirCleanup(t *testing.T) {
	ws := New(t.TempDir(), ScopeProject)
	dir, err := ws.TempDir("fetch")
	require.NoError(t, err)
	_, err = os.Stat(dir)
	require.NoError(t, err)

	ws.Cleanup()
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "file.json")
	require.NoError(t, WriteFileAtomic(path, []byte("one"), 0644))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestRemoveIfEmpty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "d")
	removed, err := RemoveIfEmpty(dir)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), nil, 0644))
	removed, err = RemoveIfEmpty(dir)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, os.Remove(filepath.Join(dir, "f")))
	removed, err = RemoveIfEmpty(dir)
	require.NoError(t, err)
	assert.True(t, removed)
}
