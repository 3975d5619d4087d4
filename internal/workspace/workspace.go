// Package workspace resolves the on-disk layout zcc manages and provides
// temp-directory and atomic-write helpers. A Workspace is constructed once
// per command and passed to whatever needs it.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zcc-dev/zcc/internal/config"
)

// Scope selects where packs are installed.
type Scope string

const (
	ScopeProject Scope = "project"
	ScopeGlobal  Scope = "global"
)

// ParseScope converts a flag value to a Scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeProject:
		return ScopeProject, nil
	case ScopeGlobal:
		return ScopeGlobal, nil
	default:
		return "", fmt.Errorf("invalid scope %q (want project or global)", s)
	}
}

// Workspace describes one install root.
type Workspace struct {
	// Root is the project root or, for the global scope, the home directory.
	Root string

	// Scope is the scope this workspace was opened for.
	Scope Scope

	mu       sync.Mutex
	tempDirs []string
}

// New creates a workspace rooted at root.
func New(root string, scope Scope) *Workspace {
	return &Workspace{Root: root, Scope: scope}
}

// Open resolves the workspace for scope. Project scope uses projectRoot,
// global scope uses config.GlobalRoot.
func Open(projectRoot string, scope Scope) (*Workspace, error) {
	if scope == ScopeGlobal {
		home, err := config.GlobalRoot()
		if err != nil {
			return nil, err
		}
		return New(home, ScopeGlobal), nil
	}
	return New(projectRoot, ScopeProject), nil
}

// ZccDir returns the .zcc directory.
func (w *Workspace) ZccDir() string { return filepath.Join(w.Root, config.DirName) }

// ClaudeDir returns the host assistant's .claude directory.
func (w *Workspace) ClaudeDir() string { return filepath.Join(w.Root, ".claude") }

func (w *Workspace) ModesDir() string     { return filepath.Join(w.ZccDir(), "modes") }
func (w *Workspace) WorkflowsDir() string { return filepath.Join(w.ZccDir(), "workflows") }
func (w *Workspace) AgentsDir() string    { return filepath.Join(w.ClaudeDir(), "agents") }
func (w *Workspace) HooksDir() string     { return filepath.Join(w.ZccDir(), "hooks") }

// HookDefinitionsDir holds one JSON file per hook.
func (w *Workspace) HookDefinitionsDir() string { return filepath.Join(w.HooksDir(), "definitions") }

// HookScriptsDir holds hook scripts.
func (w *Workspace) HookScriptsDir() string { return filepath.Join(w.HooksDir(), "scripts") }

// PacksDir holds per-pack manifest snapshots.
func (w *Workspace) PacksDir() string { return filepath.Join(w.ZccDir(), "packs") }

// CommandsDir holds the generated slash commands.
func (w *Workspace) CommandsDir() string { return filepath.Join(w.ClaudeDir(), "commands") }

func (w *Workspace) ConfigPath() string       { return filepath.Join(w.ZccDir(), config.ConfigFileName) }
func (w *Workspace) SourcesPath() string      { return filepath.Join(w.ZccDir(), "sources.json") }
func (w *Workspace) FileRegistryPath() string { return filepath.Join(w.ZccDir(), "file-registry.json") }
func (w *Workspace) ProjectManifestPath() string {
	return filepath.Join(w.ZccDir(), "packs.json")
}

// SnapshotPath returns the manifest snapshot path for a pack.
func (w *Workspace) SnapshotPath(pack string) string {
	return filepath.Join(w.PacksDir(), pack+".manifest.json")
}

// EnsureDirs creates the directories zcc writes into.
func (w *Workspace) EnsureDirs() error {
	for _, dir := range []string{
		w.ZccDir(),
		w.ModesDir(),
		w.WorkflowsDir(),
		w.AgentsDir(),
		w.HookDefinitionsDir(),
		w.HookScriptsDir(),
		w.PacksDir(),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// Rel returns path relative to the workspace root, for display and registry keys.
func (w *Workspace) Rel(path string) string {
	rel, err := filepath.Rel(w.Root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// Abs resolves a registry key back to an absolute path.
func (w *Workspace) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(w.Root, filepath.FromSlash(rel))
}

// TempDir creates a temporary directory that Cleanup removes.
func (w *Workspace) TempDir(prefix string) (string, error) {
	dir, err := os.MkdirTemp("", "zcc-"+prefix+"-")
	if err != nil {
		return "", err
	}
	w.mu.Lock()
	w.tempDirs = append(w.tempDirs, dir)
	w.mu.Unlock()
	return dir, nil
}

// Cleanup removes every temp directory created through this workspace.
func (w *Workspace) Cleanup() {
	w.mu.Lock()
	dirs := w.tempDirs
	w.tempDirs = nil
	w.mu.Unlock()
	for _, dir := range dirs {
		_ = os.RemoveAll(dir)
	}
}

// WriteFileAtomic writes data to a sibling temp file and renames it into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// RemoveIfEmpty removes dir when it has no entries. Missing dirs are ignored.
func RemoveIfEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if len(entries) > 0 {
		return false, nil
	}
	return true, os.Remove(dir)
}
