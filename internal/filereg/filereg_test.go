package filereg

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (string, *Registry) {
	t.Helper()
	root := t.TempDir()
	return root, Open(filepath.Join(root, ".zcc", "file-registry.json"), root)
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func TestRegisterFile_Checksum(t *testing.T) {
	root, r := setup(t)
	write(t, root, ".zcc/modes/engineer.md", "# Engineer")

	require.NoError(t, r.RegisterFile(".zcc/modes/engineer.md", "essentials", "components/modes/engineer.md"))
	require.NoError(t, r.RegisterFile(".zcc/modes/engineer.md", "essentials", "components/modes/engineer.md"))

	sum := sha256.Sum256([]byte("# Engineer"))
	info, ok := r.File(".zcc/modes/engineer.md")
	require.True(t, ok)
	assert.Equal(t, hex.EncodeToString(sum[:]), info.Checksum)
	assert.Equal(t, "essentials", info.Pack)
	assert.Equal(t, []string{".zcc/modes/engineer.md"}, r.PackFiles("essentials"))

	reopened := Open(r.path, root)
	assert.Equal(t, []string{".zcc/modes/engineer.md"}, reopened.PackFiles("essentials"))
}

func TestRegisterFile_Missing(t *testing.T) {
	_, r := setup(t)
	assert.Error(t, r.RegisterFile("nope.md", "p", "x"))
}

func TestIsFileModified(t *testing.T) {
	root, r := setup(t)
	write(t, root, "a.md", "one")
	require.NoError(t, r.RegisterFile("a.md", "p", "a.md"))

	assert.False(t, r.IsFileModified("a.md"))
	assert.False(t, r.IsFileModified("untracked.md"))

	write(t, root, "a.md", "two")
	assert.True(t, r.IsFileModified("a.md"))

	write(t, root, "a.md", "one")
	assert.True(t, r.IsFileModified("a.md"), "modified flag sticks")

	reopened := Open(r.path, root)
	info, _ := reopened.File("a.md")
	assert.True(t, info.Modified, "flag is persisted")
}

func TestIsFileModified_Deleted(t *testing.T) {
	root, r := setup(t)
	write(t, root, "a.md", "one")
	require.NoError(t, r.RegisterFile("a.md", "p", "a.md"))
	require.NoError(t, os.Remove(filepath.Join(root, "a.md")))

	assert.True(t, r.IsFileModified("a.md"))
}

func TestCheckConflicts(t *testing.T) {
	root, r := setup(t)
	write(t, root, "a.md", "a")
	write(t, root, "b.md", "b")
	require.NoError(t, r.RegisterFile("a.md", "one", "a.md"))
	require.NoError(t, r.RegisterFile("b.md", "two", "b.md"))

	assert.Equal(t, []string{"b.md"}, r.CheckConflicts([]string{"a.md", "b.md", "c.md"}, "one"))
	assert.Empty(t, r.CheckConflicts([]string{"a.md"}, "one"))
}

func TestUnregister(t *testing.T) {
	root, r := setup(t)
	write(t, root, "a.md", "a")
	write(t, root, "b.md", "b")
	require.NoError(t, r.RegisterFile("a.md", "p", "a.md"))
	require.NoError(t, r.RegisterFile("b.md", "p", "b.md"))
	require.NoError(t, r.RegisterPack("p", "1.0.0"))

	require.NoError(t, r.UnregisterFile("a.md"))
	assert.Equal(t, []string{"b.md"}, r.PackFiles("p"))

	require.NoError(t, r.UnregisterPack("p"))
	assert.Empty(t, r.Packs())
	info, ok := r.File("b.md")
	require.True(t, ok, "file entries outlive their pack")
	assert.Equal(t, "", info.Pack)
}

func TestLoad_RecoversFromBackup(t *testing.T) {
	root, r := setup(t)
	write(t, root, "a.md", "a")
	require.NoError(t, r.RegisterFile("a.md", "p", "a.md"))
	require.NoError(t, r.RegisterPack("p", "1.0.0"))

	require.NoError(t, os.WriteFile(r.path, []byte("{corrupt"), 0644))

	restored := Open(r.path, root)
	assert.Equal(t, "p", restored.Owner("a.md"))
	v, ok := restored.PackVersion("p")
	assert.True(t, ok)
	// The backup predates the RegisterPack save.
	assert.Equal(t, "", v)

	// The restore keeps the backup intact.
	backup, err := os.ReadFile(restored.backupPath())
	require.NoError(t, err)
	assert.NotContains(t, string(backup), "{corrupt")

	require.NoError(t, os.WriteFile(r.path, []byte("{corrupt"), 0644))
	again := Open(r.path, root)
	assert.Equal(t, "p", again.Owner("a.md"))
}

func TestLoad_CorruptWithoutBackup(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "file-registry.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	r := Open(path, root)
	assert.Empty(t, r.Packs())
}

func TestVerify(t *testing.T) {
	root, r := setup(t)
	write(t, root, "a.md", "a")
	write(t, root, "b.md", "b")
	require.NoError(t, r.RegisterFile("a.md", "p", "a.md"))
	require.NoError(t, r.RegisterFile("b.md", "p", "b.md"))

	write(t, root, "a.md", "edited")
	require.NoError(t, os.Remove(filepath.Join(root, "b.md")))

	drift := r.Verify()
	assert.Equal(t, []Drift{
		{Path: "a.md", Pack: "p"},
		{Path: "b.md", Pack: "p", Missing: true},
	}, drift)
}
