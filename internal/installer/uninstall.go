package installer

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sort"

	"github.com/zcc-dev/zcc/internal/config"
	"github.com/zcc-dev/zcc/internal/errors"
	"github.com/zcc-dev/zcc/internal/pack"
	"github.com/zcc-dev/zcc/internal/telemetry"
	"github.com/zcc-dev/zcc/internal/workspace"
)

// Uninstall removes the files a pack installed. Files the user modified are
// kept and reported as skipped. Settings the pack added are removed only
// while they still hold the value the pack wrote.
func (i *Installer) Uninstall(ctx context.Context, name string) (res *pack.InstallationResult) {
	res = pack.NewResult(name)
	_, span := telemetry.StartSpan(ctx, "installer.Uninstall", "pack", name)
	defer func() {
		res.Success = len(res.Errors) == 0
		var err error
		if !res.Success {
			err = errors.New(errors.CodeComponentRemovalError).WithDetail(res.Errors[0])
		}
		telemetry.EndSpan(span, err)
		i.metrics.RecordPackUninstall(name, res.Success)
	}()

	snap, snapErr := i.LoadSnapshot(name)
	files := i.files.PackFiles(name)
	if snap != nil {
		files = mergeUnique(files, snap.Files)
	}
	if snapErr != nil && len(files) == 0 && !i.Installed(name) {
		res.AddError("%v", snapErr)
		return res
	}

	var hooksTouched bool
	dirs := map[string]bool{}
	for _, f := range files {
		t, comp, known := i.classify(f)
		if known && t == pack.ComponentHooks {
			hooksTouched = true
		}
		fi, tracked := i.files.File(f)
		if tracked && fi.Pack != "" && fi.Pack != name {
			continue
		}
		// Without a recorded checksum an edit cannot be ruled out.
		if !tracked {
			if _, err := os.Stat(i.ws.Abs(f)); err == nil {
				res.AddWarning("%s is not tracked and has been kept", f)
				if known {
					res.Skipped.Add(t, comp)
				}
			}
			continue
		}
		if i.files.IsFileModified(f) {
			if _, err := os.Stat(i.ws.Abs(f)); err == nil {
				res.AddWarning("%s was modified and has been kept", f)
				if known {
					res.Skipped.Add(t, comp)
				}
				continue
			}
		}
		if err := os.Remove(i.ws.Abs(f)); err != nil && !os.IsNotExist(err) {
			res.AddError("removing %s: %v", f, err)
			continue
		}
		if err := i.files.UnregisterFile(f); err != nil {
			res.AddError("unregistering %s: %v", f, err)
		}
		if known {
			res.Removed.Add(t, comp)
		}
		dirs[filepath.Dir(i.ws.Abs(f))] = true
	}

	for _, d := range []string{i.ws.ModesDir(), i.ws.WorkflowsDir(), i.ws.AgentsDir(), i.ws.HookScriptsDir(), i.ws.HookDefinitionsDir()} {
		if !dirs[d] {
			continue
		}
		if _, err := workspace.RemoveIfEmpty(d); err != nil {
			i.logger.Debug("could not remove directory", "dir", d, "error", err)
		}
	}

	if snap != nil {
		if err := i.revertConfig(snap); err != nil {
			res.AddWarning("could not revert settings: %v", err)
		}
	}

	if err := i.files.UnregisterPack(name); err != nil {
		res.AddError("unregistering pack: %v", err)
	}
	if err := os.Remove(i.ws.SnapshotPath(name)); err != nil && !os.IsNotExist(err) {
		res.AddError("removing snapshot: %v", err)
	}
	if err := i.updateProjectManifest(func(pm *ProjectManifest) {
		delete(pm.Packs, name)
	}); err != nil {
		res.AddError("updating %s: %v", i.ws.Rel(i.ws.ProjectManifestPath()), err)
	}

	if hooksTouched && i.hooks != nil {
		if err := i.hooks.Load(); err != nil {
			res.AddWarning("reloading hooks: %v", err)
		} else if _, err := i.hooks.WriteSettings(i.ws.ClaudeDir(), i.format, i.binary); err != nil {
			res.AddWarning("could not update host hook settings: %v", err)
		}
	}

	i.logger.Info("pack uninstalled", "pack", name,
		"removed", res.Removed.Len(), "kept", res.Skipped.Len(), "errors", len(res.Errors))
	return res
}

func (i *Installer) revertConfig(snap *Snapshot) error {
	if len(snap.AddedSettings) == 0 && !snap.DefaultModeSet {
		return nil
	}
	cfg, err := config.LoadFile(i.ws.ConfigPath())
	if err != nil {
		return err
	}
	changed := false
	for k, v := range snap.AddedSettings {
		if cur, ok := cfg.Settings[k]; ok && reflect.DeepEqual(normalize(cur), normalize(v)) {
			delete(cfg.Settings, k)
			changed = true
		}
	}
	if snap.DefaultModeSet && snap.Manifest != nil && snap.Manifest.Configuration != nil &&
		cfg.DefaultMode == snap.Manifest.Configuration.DefaultMode {
		cfg.DefaultMode = ""
		changed = true
	}
	if !changed {
		return nil
	}
	return cfg.Save()
}

// normalize maps JSON-decoded and in-memory numbers to the same type.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return v
}

func mergeUnique(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
