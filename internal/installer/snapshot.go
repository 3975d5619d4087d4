package installer

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/zcc-dev/zcc/internal/errors"
	"github.com/zcc-dev/zcc/internal/pack"
	"github.com/zcc-dev/zcc/internal/workspace"
)

// Snapshot records what an install did so uninstall can undo it exactly.
type Snapshot struct {
	Manifest       *pack.Manifest `json:"manifest"`
	SourceID       string         `json:"sourceId"`
	InstalledAt    time.Time      `json:"installedAt"`
	Files          []string       `json:"files"`
	AddedSettings  map[string]any `json:"addedSettings,omitempty"`
	DefaultModeSet bool           `json:"defaultModeSet,omitempty"`
}

// ProjectManifestVersion is the version written to .zcc/packs.json.
const ProjectManifestVersion = "1.0.0"

// ProjectManifest is the legacy list of installed packs in .zcc/packs.json.
type ProjectManifest struct {
	Version string                   `json:"version"`
	Packs   map[string]InstalledPack `json:"packs"`
}

// InstalledPack is one entry in the project manifest.
type InstalledPack struct {
	Version     string            `json:"version"`
	Source      string            `json:"source"`
	InstalledAt time.Time         `json:"installedAt"`
	Components  pack.ComponentSet `json:"components"`
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.New(errors.CodeInvalidJSON).WithDetailf("%s: %v", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return workspace.WriteFileAtomic(path, append(data, '\n'), 0644)
}

// LoadSnapshot returns the snapshot of an installed pack.
func (i *Installer) LoadSnapshot(name string) (*Snapshot, error) {
	var s Snapshot
	if err := readJSON(i.ws.SnapshotPath(name), &s); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodePackNotFound).
				WithDetailf("pack %q is not installed", name).
				WithSuggestion("Run 'zcc pack list --installed' to see installed packs")
		}
		return nil, err
	}
	return &s, nil
}

func (i *Installer) saveSnapshot(name string, s *Snapshot) error {
	return writeJSON(i.ws.SnapshotPath(name), s)
}

// LoadProjectManifest reads .zcc/packs.json, returning an empty manifest
// when it does not exist.
func (i *Installer) LoadProjectManifest() (*ProjectManifest, error) {
	pm := &ProjectManifest{Version: ProjectManifestVersion, Packs: map[string]InstalledPack{}}
	if err := readJSON(i.ws.ProjectManifestPath(), pm); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if pm.Packs == nil {
		pm.Packs = map[string]InstalledPack{}
	}
	return pm, nil
}

func (i *Installer) updateProjectManifest(fn func(pm *ProjectManifest)) error {
	pm, err := i.LoadProjectManifest()
	if err != nil {
		return err
	}
	fn(pm)
	return writeJSON(i.ws.ProjectManifestPath(), pm)
}

// Installed reports whether a pack is installed in the workspace.
func (i *Installer) Installed(name string) bool {
	if _, err := os.Stat(i.ws.SnapshotPath(name)); err == nil {
		return true
	}
	pm, err := i.LoadProjectManifest()
	if err != nil {
		return false
	}
	_, ok := pm.Packs[name]
	return ok
}

// InstalledInfo describes an installed pack.
type InstalledInfo struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Source      string         `json:"source"`
	InstalledAt time.Time      `json:"installedAt"`
	Manifest    *pack.Manifest `json:"-"`
}

// ListInstalled returns installed packs sorted by name. Snapshots take
// precedence over legacy manifest entries.
func (i *Installer) ListInstalled() ([]InstalledInfo, error) {
	pm, err := i.LoadProjectManifest()
	if err != nil {
		return nil, err
	}
	byName := map[string]InstalledInfo{}
	for name, p := range pm.Packs {
		byName[name] = InstalledInfo{Name: name, Version: p.Version, Source: p.Source, InstalledAt: p.InstalledAt}
	}

	entries, err := os.ReadDir(i.ws.PacksDir())
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	const suffix = ".manifest.json"
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || len(n) <= len(suffix) || n[len(n)-len(suffix):] != suffix {
			continue
		}
		name := n[:len(n)-len(suffix)]
		s, err := i.LoadSnapshot(name)
		if err == nil && s.Manifest == nil {
			err = errors.New(errors.CodeInvalidManifest).WithDetail("snapshot has no manifest")
		}
		if err != nil {
			i.logger.Warn("skipping unreadable snapshot", "pack", name, "error", err)
			continue
		}
		byName[name] = InstalledInfo{
			Name:        name,
			Version:     s.Manifest.Version,
			Source:      s.SourceID,
			InstalledAt: s.InstalledAt,
			Manifest:    s.Manifest,
		}
	}

	out := make([]InstalledInfo, 0, len(byName))
	for _, v := range byName {
		out = append(out, v)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}
