// Package starter orchestrates installing starter packs together with their
// dependencies.
package starter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/zcc-dev/zcc/internal/errors"
	"github.com/zcc-dev/zcc/internal/installer"
	"github.com/zcc-dev/zcc/internal/pack"
	"github.com/zcc-dev/zcc/internal/registry"
	"github.com/zcc-dev/zcc/internal/source"
)

// MaxRetries is the number of install attempts made for one pack.
const MaxRetries = 3

// maxIterations bounds the install queue loop.
const maxIterations = 1000

// PackInstaller installs a single pack without looking at its dependencies.
type PackInstaller interface {
	InstallPack(ctx context.Context, st *pack.Structure, src source.Source, opts installer.Options) *pack.InstallationResult
	Uninstall(ctx context.Context, name string) *pack.InstallationResult
	Installed(name string) bool
	ListInstalled() ([]installer.InstalledInfo, error)
}

// Options controls InstallPack.
type Options struct {
	// Force overwrites existing files and ignores ownership conflicts.
	Force bool

	// Source is the preferred source for the requested pack. Dependencies
	// are looked up in every source.
	Source string

	// OnResult, when set, is called after every install attempt.
	OnResult func(*pack.InstallationResult)
}

// Manager is the entry point for pack operations.
type Manager struct {
	registry  *registry.Registry
	installer PackInstaller
	validator *pack.Validator
	logger    *slog.Logger
}

// New creates a Manager.
func New(reg *registry.Registry, inst PackInstaller, validator *pack.Validator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = pack.NewValidator("")
	}
	return &Manager{registry: reg, installer: inst, validator: validator, logger: logger}
}

// Registry returns the pack registry.
func (m *Manager) Registry() *registry.Registry {
	return m.registry
}

// InstallPack installs root and any dependency not yet installed in the
// project. Dependencies are installed before their dependents. Each pack
// gets MaxRetries attempts. A failed dependency fails every pack that needs
// it; the returned result is the root's.
func (m *Manager) InstallPack(ctx context.Context, root string, opts Options) *pack.InstallationResult {
	var (
		queue     = []string{root}
		installed = map[string]*pack.InstallationResult{}
		failed    = map[string]string{}
		attempts  = map[string]int{}
	)

	for iter := 0; len(queue) > 0; iter++ {
		if iter >= maxIterations {
			return pack.Failure(root, fmt.Sprintf("install of %s did not settle after %d steps", root, maxIterations))
		}
		if err := ctx.Err(); err != nil {
			return pack.Failure(root, fmt.Sprintf("install of %s cancelled: %v", root, err))
		}

		name := queue[0]
		queue = queue[1:]
		if _, ok := installed[name]; ok {
			continue
		}
		if _, ok := failed[name]; ok {
			continue
		}

		deps, err := m.registry.ResolveDependencies(ctx, name)
		if err != nil {
			return pack.Failure(root, fmt.Sprintf("resolving dependencies of %s: %v", name, err))
		}
		if !deps.OK() {
			problems := deps.Problems()
			if name == root {
				return pack.Failure(root, problems...)
			}
			m.logger.Warn("dependency cannot be resolved", "pack", name, "problems", problems)
			failed[name] = strings.Join(problems, "; ")
			continue
		}

		var pending []string
		blocked := ""
		for _, d := range deps.Resolved {
			if _, ok := installed[d]; ok {
				continue
			}
			if _, ok := failed[d]; ok {
				blocked = d
				break
			}
			// A dependency attempted in this run counts only once it succeeds.
			if attempts[d] == 0 && m.installer.Installed(d) {
				continue
			}
			pending = append(pending, d)
		}
		if blocked != "" {
			reason := fmt.Sprintf("dependency %s failed: %s", blocked, failed[blocked])
			if name == root {
				return pack.Failure(root, reason)
			}
			failed[name] = reason
			continue
		}
		if len(pending) > 0 {
			m.logger.Debug("installing dependencies first", "pack", name, "dependencies", pending)
			next := make([]string, 0, len(pending)+len(queue)+1)
			next = append(next, pending...)
			next = append(next, queue...)
			queue = append(next, name)
			continue
		}

		preferred := ""
		if name == root {
			preferred = opts.Source
		}
		attempts[name]++
		res, err := m.installPackDirect(ctx, name, preferred, opts)
		if err == nil && res.Success {
			installed[name] = res
			if opts.OnResult != nil {
				opts.OnResult(res)
			}
			continue
		}

		reason := failureReason(res, err)
		if res != nil && opts.OnResult != nil {
			opts.OnResult(res)
		}
		if attempts[name] < MaxRetries {
			m.logger.Warn("pack install failed, retrying", "pack", name, "attempt", attempts[name], "error", reason)
			queue = append(queue, name)
			continue
		}
		failed[name] = reason
		if name == root {
			return pack.Failure(root,
				fmt.Sprintf("failed to install pack %s after %d attempts: %s", name, MaxRetries, reason))
		}
		m.logger.Error("dependency install failed", "pack", name, "attempts", attempts[name], "error", reason)
	}

	if res, ok := installed[root]; ok {
		return res
	}
	if reason, ok := failed[root]; ok {
		return pack.Failure(root, fmt.Sprintf("failed to install pack %s: %s", root, reason))
	}
	return pack.Failure(root, fmt.Sprintf("failed to install pack %s", root))
}

func failureReason(res *pack.InstallationResult, err error) string {
	if err != nil {
		return err.Error()
	}
	if res != nil && len(res.Errors) > 0 {
		return strings.Join(res.Errors, "; ")
	}
	return "unknown error"
}

// installPackDirect loads, validates and installs one pack. Panics from the
// install are returned as errors.
func (m *Manager) installPackDirect(ctx context.Context, name, preferred string, opts Options) (res *pack.InstallationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("panic while installing %s: %v", name, r)
		}
	}()

	st, err := m.registry.LoadPack(ctx, name, preferred)
	if err != nil {
		return nil, err
	}
	v := m.validator.Validate(st.Manifest)
	if !v.Valid {
		return pack.Failure(name, v.Errors...), nil
	}
	src := m.registry.Source(st.SourceID)
	if src == nil {
		return nil, errors.New(errors.CodeSourceNotFound).WithDetailf("source %q is not registered", st.SourceID)
	}

	res = m.installer.InstallPack(ctx, st, src, installer.Options{Force: opts.Force})
	res.Warnings = append(append([]string{}, v.Warnings...), res.Warnings...)
	return res, nil
}

// UninstallPack removes an installed pack. It refuses while another
// installed pack depends on it unless force is set.
func (m *Manager) UninstallPack(ctx context.Context, name string, force bool) *pack.InstallationResult {
	if !m.installer.Installed(name) {
		return pack.Failure(name, errors.New(errors.CodePackNotFound).
			WithDetailf("pack %q is not installed", name).Error())
	}
	dependents, err := m.Dependents(name)
	if err != nil {
		return pack.Failure(name, err.Error())
	}
	if len(dependents) > 0 && !force {
		return pack.Failure(name, errors.New(errors.CodeDependency).
			WithDetailf("%s is required by %s", name, strings.Join(dependents, ", ")).
			WithSuggestion("Uninstall the dependent packs first or pass --force").Error())
	}
	res := m.installer.Uninstall(ctx, name)
	for _, d := range dependents {
		res.AddWarning("pack %s depends on %s", d, name)
	}
	return res
}

// Dependents returns the installed packs that declare name as a dependency.
func (m *Manager) Dependents(name string) ([]string, error) {
	list, err := m.installer.ListInstalled()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, info := range list {
		if info.Manifest == nil || info.Name == name {
			continue
		}
		for _, d := range info.Manifest.ParsedDependencies() {
			if d.Name == name {
				out = append(out, info.Name)
				break
			}
		}
	}
	return out, nil
}

// ListInstalled returns the packs installed in the workspace.
func (m *Manager) ListInstalled() ([]installer.InstalledInfo, error) {
	return m.installer.ListInstalled()
}

// Update describes an installed pack with a newer version available.
type Update struct {
	Name      string `json:"name"`
	Installed string `json:"installed"`
	Available string `json:"available"`
	Source    string `json:"source"`
}

// Outdated compares installed versions with what the sources offer. Packs
// that are no longer available or carry unparsable versions are skipped.
func (m *Manager) Outdated(ctx context.Context) ([]Update, error) {
	list, err := m.installer.ListInstalled()
	if err != nil {
		return nil, err
	}
	var out []Update
	for _, info := range list {
		st, err := m.registry.LoadPack(ctx, info.Name, "")
		if err != nil {
			m.logger.Debug("installed pack not available", "pack", info.Name, "error", err)
			continue
		}
		have, err1 := semver.NewVersion(info.Version)
		avail, err2 := semver.NewVersion(st.Manifest.Version)
		if err1 != nil || err2 != nil {
			continue
		}
		if avail.GreaterThan(have) {
			out = append(out, Update{
				Name:      info.Name,
				Installed: info.Version,
				Available: st.Manifest.Version,
				Source:    st.SourceID,
			})
		}
	}
	return out, nil
}

// Info describes a pack as the sources and the workspace see it.
type Info struct {
	Structure        *pack.Structure            `json:"-"`
	Manifest         *pack.Manifest             `json:"manifest"`
	Source           string                     `json:"source"`
	Installed        bool                       `json:"installed"`
	InstalledVersion string                     `json:"installedVersion,omitempty"`
	Dependencies     *registry.DependencyResult `json:"dependencies"`
	Validation       *pack.ValidationResult     `json:"validation"`
}

// Info loads a pack and reports its dependency and install state.
func (m *Manager) Info(ctx context.Context, name, preferred string) (*Info, error) {
	st, err := m.registry.LoadPack(ctx, name, preferred)
	if err != nil {
		return nil, err
	}
	deps, err := m.registry.ResolveDependencies(ctx, name)
	if err != nil {
		return nil, err
	}
	info := &Info{
		Structure:    st,
		Manifest:     st.Manifest,
		Source:       st.SourceID,
		Dependencies: deps,
		Validation:   m.validator.Validate(st.Manifest),
	}
	if m.installer.Installed(name) {
		info.Installed = true
		list, err := m.installer.ListInstalled()
		if err == nil {
			for _, l := range list {
				if l.Name == name {
					info.InstalledVersion = l.Version
				}
			}
		}
	}
	return info, nil
}

// Search finds packs across all sources.
func (m *Manager) Search(ctx context.Context, query string, f registry.Filter) ([]registry.Summary, error) {
	return m.registry.Search(ctx, query, f)
}

// Recommend ranks packs for the project in dir.
func (m *Manager) Recommend(ctx context.Context, dir string) (registry.ProjectInfo, []registry.Recommendation, error) {
	info := registry.DetectProject(dir)
	recs, err := m.registry.Recommend(ctx, info)
	return info, recs, err
}
