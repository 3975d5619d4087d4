package installer

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"time"

	"github.com/zcc-dev/zcc/internal/config"
	"github.com/zcc-dev/zcc/internal/errors"
	"github.com/zcc-dev/zcc/internal/filereg"
	"github.com/zcc-dev/zcc/internal/hooks"
	"github.com/zcc-dev/zcc/internal/pack"
	"github.com/zcc-dev/zcc/internal/source"
	"github.com/zcc-dev/zcc/internal/telemetry"
	"github.com/zcc-dev/zcc/internal/workspace"
)

// Config holds the Installer's collaborators.
type Config struct {
	Workspace *workspace.Workspace
	Files     *filereg.Registry
	Hooks     *hooks.Manager
	Logger    *slog.Logger
	Metrics   *telemetry.Metrics

	// SettingsFormat selects the host settings file ("json" or "toml").
	SettingsFormat string

	// Binary is the command written into host settings. Defaults to "zcc".
	Binary string
}

// Options controls a single install.
type Options struct {
	// Force overwrites existing files and ignores ownership conflicts.
	Force bool
}

// Installer copies pack components into a workspace and removes them again.
type Installer struct {
	ws       *workspace.Workspace
	files    *filereg.Registry
	hooks    *hooks.Manager
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	format   string
	binary   string
	lookPath func(string) (string, error)
	now      func() time.Time
}

// New creates an Installer.
func New(cfg Config) *Installer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	binary := cfg.Binary
	if binary == "" {
		binary = "zcc"
	}
	return &Installer{
		ws:       cfg.Workspace,
		files:    cfg.Files,
		hooks:    cfg.Hooks,
		logger:   logger,
		metrics:  cfg.Metrics,
		format:   cfg.SettingsFormat,
		binary:   binary,
		lookPath: exec.LookPath,
		now:      time.Now,
	}
}

// Workspace returns the workspace the installer writes to.
func (i *Installer) Workspace() *workspace.Workspace {
	return i.ws
}

// Files returns the file registry.
func (i *Installer) Files() *filereg.Registry {
	return i.files
}

// TargetPath returns the absolute install location of a component.
func (i *Installer) TargetPath(t pack.ComponentType, name string) string {
	switch t {
	case pack.ComponentModes:
		return filepath.Join(i.ws.ModesDir(), name+".md")
	case pack.ComponentWorkflows:
		return filepath.Join(i.ws.WorkflowsDir(), name+".md")
	case pack.ComponentAgents:
		return filepath.Join(i.ws.AgentsDir(), name+".md")
	case pack.ComponentHooks:
		return filepath.Join(i.ws.HookDefinitionsDir(), name+".json")
	}
	return ""
}

// scriptPath returns the install location of a pack script.
func (i *Installer) scriptPath(rel string) string {
	return filepath.Join(i.ws.HookScriptsDir(), path.Base(rel))
}

// classify maps a registry key back to its component.
func (i *Installer) classify(rel string) (pack.ComponentType, string, bool) {
	abs := i.ws.Abs(rel)
	dir, base := filepath.Dir(abs), filepath.Base(abs)
	for _, t := range pack.ComponentTypes {
		if filepath.Dir(i.TargetPath(t, "x")) == dir && filepath.Ext(base) == t.Ext() {
			return t, base[:len(base)-len(t.Ext())], true
		}
	}
	return "", "", false
}

type plannedFile struct {
	typ      pack.ComponentType // empty for scripts
	name     string
	ref      pack.ComponentRef
	origin   string
	target   string
	key      string
	perm     os.FileMode
	required bool
}

func (i *Installer) plan(m *pack.Manifest) []plannedFile {
	var out []plannedFile
	for _, t := range pack.ComponentTypes {
		for _, ref := range m.Components.Of(t) {
			target := i.TargetPath(t, ref.Name)
			out = append(out, plannedFile{
				typ:      t,
				name:     ref.Name,
				ref:      ref,
				origin:   pack.ComponentPath(t, ref.Name),
				target:   target,
				key:      i.ws.Rel(target),
				perm:     0644,
				required: ref.Required,
			})
		}
	}
	for _, s := range m.Scripts {
		target := i.scriptPath(s)
		out = append(out, plannedFile{
			name:     path.Base(s),
			origin:   s,
			target:   target,
			key:      i.ws.Rel(target),
			perm:     0755,
			required: true,
		})
	}
	return out
}

// InstallPack installs one pack without processing its dependencies.
// Component failures are collected in the result; the result is never nil.
func (i *Installer) InstallPack(ctx context.Context, st *pack.Structure, src source.Source, opts Options) (res *pack.InstallationResult) {
	m := st.Manifest
	start := time.Now()
	res = pack.NewResult(m.Name)

	ctx, span := telemetry.StartSpan(ctx, "installer.InstallPack", "pack", m.Name, "source", st.SourceID)
	defer func() {
		res.Success = len(res.Errors) == 0
		var err error
		if !res.Success {
			err = errors.New(errors.CodeComponentInstallError).WithDetail(res.Errors[0])
		}
		telemetry.EndSpan(span, err)
		i.metrics.RecordPackInstall(m.Name, res.Success, time.Since(start))
	}()

	if err := i.ws.EnsureDirs(); err != nil {
		res.AddError("preparing directories: %v", err)
		return res
	}

	planned := i.plan(m)
	if !opts.Force {
		keys := make([]string, len(planned))
		for n, p := range planned {
			keys[n] = p.key
		}
		if conflicts := i.files.CheckConflicts(keys, m.Name); len(conflicts) > 0 {
			for _, c := range conflicts {
				res.AddError("file conflict: %s is owned by pack %q", c, i.files.Owner(c))
			}
			return res
		}
	}

	if m.Requirements != nil {
		for _, tool := range m.Requirements.Tools {
			if _, err := i.lookPath(tool); err != nil {
				res.AddWarning("required tool %q was not found in PATH", tool)
			}
		}
	}

	var written, owned []plannedFile
	for _, p := range planned {
		if ctx.Err() != nil {
			res.AddError("install cancelled: %v", ctx.Err())
			return res
		}
		outcome := i.copyFile(ctx, src, m.Name, p, opts, res)
		switch outcome {
		case outcomeWritten:
			written = append(written, p)
			owned = append(owned, p)
		case outcomeOwned:
			owned = append(owned, p)
		}
	}

	addedSettings, modeSet, err := i.mergeConfig(m)
	if err != nil {
		res.AddError("updating config: %v", err)
	}

	hookFiles, hooksTouched := i.configureHooks(m, res)

	for _, p := range written {
		if err := i.files.RegisterFile(p.key, m.Name, p.origin); err != nil {
			res.AddError("registering %s: %v", p.key, err)
		}
	}
	for _, h := range hookFiles {
		if err := i.files.RegisterFile(h, m.Name, "hooks"); err != nil {
			res.AddError("registering %s: %v", h, err)
		}
	}
	if hooksTouched {
		if _, err := i.hooks.WriteSettings(i.ws.ClaudeDir(), i.format, i.binary); err != nil {
			res.AddWarning("could not update host hook settings: %v", err)
		}
	}

	// A partial install is not recorded; the written files stay owned by
	// the pack so a retry keeps them.
	if len(res.Errors) > 0 {
		i.logger.Warn("pack install incomplete", "pack", m.Name, "errors", len(res.Errors))
		return res
	}
	if err := i.files.RegisterPack(m.Name, m.Version); err != nil {
		res.AddError("registering pack: %v", err)
		return res
	}

	prev, _ := i.LoadSnapshot(m.Name)
	snap := &Snapshot{
		Manifest:       m,
		SourceID:       st.SourceID,
		InstalledAt:    i.now().UTC(),
		Files:          i.files.PackFiles(m.Name),
		AddedSettings:  addedSettings,
		DefaultModeSet: modeSet || (prev != nil && prev.DefaultModeSet),
	}
	if err := i.saveSnapshot(m.Name, snap); err != nil {
		res.AddError("writing snapshot: %v", err)
	}

	components := pack.NewComponentSet()
	for _, t := range pack.ComponentTypes {
		for _, ref := range m.Components.Of(t) {
			components.Add(t, ref.Name)
		}
	}
	if err := i.updateProjectManifest(func(pm *ProjectManifest) {
		pm.Packs[m.Name] = InstalledPack{
			Version:     m.Version,
			Source:      st.SourceID,
			InstalledAt: snap.InstalledAt,
			Components:  components,
		}
	}); err != nil {
		res.AddError("updating %s: %v", i.ws.Rel(i.ws.ProjectManifestPath()), err)
	}

	if m.PostInstall != nil {
		for _, cmd := range m.PostInstall.Commands {
			res.AddWarning("post-install command not executed: %s", cmd)
			i.logger.Warn("post-install command not executed", "pack", m.Name, "command", cmd)
		}
		res.PostInstallMessage = m.PostInstall.Message
	}

	i.logger.Info("pack installed", "pack", m.Name,
		"installed", res.Installed.Len(), "skipped", res.Skipped.Len(), "errors", len(res.Errors))
	return res
}

type copyOutcome int

const (
	outcomeFailed copyOutcome = iota
	outcomeSkipped
	outcomeOwned
	outcomeWritten
)

func (i *Installer) record(res *pack.InstallationResult, p plannedFile, skipped bool) {
	if p.typ == "" {
		return
	}
	if skipped {
		res.Skipped.Add(p.typ, p.name)
	} else {
		res.Installed.Add(p.typ, p.name)
	}
}

// copyFile installs one planned file. An existing file is left alone unless
// forced: files this pack installed and nobody edited are kept as is, any
// other file is skipped with a warning.
func (i *Installer) copyFile(ctx context.Context, src source.Source, packName string, p plannedFile, opts Options, res *pack.InstallationResult) copyOutcome {
	label := string(p.typ)
	if label == "" {
		label = "scripts"
	}

	if _, err := os.Stat(p.target); err == nil && !opts.Force {
		i.record(res, p, true)
		i.metrics.RecordComponent(label, "skipped")
		if i.files.Owner(p.key) == packName && !i.files.IsFileModified(p.key) {
			return outcomeOwned
		}
		res.AddWarning("%s already exists; use --force to overwrite", p.key)
		return outcomeSkipped
	}

	var (
		data []byte
		err  error
	)
	if p.typ != "" {
		data, err = src.ReadComponent(ctx, packName, p.typ, p.name)
	} else {
		data, err = src.ReadFile(ctx, packName, p.origin)
	}
	if err == nil {
		err = workspace.WriteFileAtomic(p.target, data, p.perm)
	}
	if err != nil {
		i.metrics.RecordComponent(label, "error")
		if p.required {
			res.AddError("%s %q: %v", label, p.name, err)
		} else {
			res.AddWarning("optional %s %q not installed: %v", label, p.name, err)
			i.record(res, p, true)
		}
		return outcomeFailed
	}

	i.record(res, p, false)
	i.metrics.RecordComponent(label, "installed")
	return outcomeWritten
}

func (i *Installer) mergeConfig(m *pack.Manifest) (map[string]any, bool, error) {
	if m.Configuration == nil {
		return nil, false, nil
	}
	cfg, err := config.LoadFile(i.ws.ConfigPath())
	if err != nil {
		return nil, false, err
	}
	added, modeSet := cfg.MergeSettings(m.Configuration.ProjectSettings, m.Configuration.DefaultMode)
	if len(added) == 0 && !modeSet {
		return nil, false, nil
	}
	if err := cfg.Save(); err != nil {
		return nil, false, err
	}
	return added, modeSet, nil
}

// configureHooks loads installed hook definitions and applies the hooks the
// manifest declares. It returns the definition files created for
// command-declared hooks and whether host settings need regenerating.
func (i *Installer) configureHooks(m *pack.Manifest, res *pack.InstallationResult) ([]string, bool) {
	if i.hooks == nil || (len(m.Hooks) == 0 && len(m.Components.Hooks) == 0) {
		return nil, false
	}
	if err := i.hooks.Load(); err != nil {
		res.AddError("loading hooks: %v", err)
		return nil, false
	}
	var created []string
	for _, h := range m.Hooks {
		if h.Command == "" {
			if _, err := os.Stat(i.hooks.DefinitionPath(h.Name)); err != nil {
				res.AddWarning("hook %q skipped: its definition was not installed", h.Name)
				continue
			}
		}
		p, err := i.hooks.ConfigurePackHook(m.Name, h)
		if err != nil {
			res.AddError("hook %q: %v", h.Name, err)
			continue
		}
		if h.Command != "" {
			created = append(created, i.ws.Rel(p))
		}
	}
	return created, true
}
