package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/zcc-dev/zcc/internal/errors"
	"github.com/zcc-dev/zcc/internal/pack"
	"github.com/zcc-dev/zcc/internal/source"
	"github.com/zcc-dev/zcc/internal/telemetry"
)

// Registry aggregates pack sources. Sources are consulted in the order they
// were added.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	sources []source.Source
	cache   map[string]*pack.Structure
}

// New creates a Registry over sources.
func New(logger *slog.Logger, sources ...source.Source) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:  logger,
		sources: append([]source.Source(nil), sources...),
		cache:   map[string]*pack.Structure{},
	}
}

// AddSource appends a source.
func (r *Registry) AddSource(s source.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, s)
}

// Sources returns the registered sources in lookup order.
func (r *Registry) Sources() []source.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]source.Source(nil), r.sources...)
}

// Source returns the registered source with id, or nil.
func (r *Registry) Source(id string) source.Source {
	for _, s := range r.Sources() {
		if s.ID() == id {
			return s
		}
	}
	return nil
}

// ClearCache drops every cached pack, including the sources' manifest
// caches.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = map[string]*pack.Structure{}
	for _, s := range r.sources {
		s.ClearCache()
	}
}

// LoadPack finds and loads a pack. When preferred names a registered source
// it is tried first. Results are cached under "source:name", or "name" when
// no preferred source is given.
func (r *Registry) LoadPack(ctx context.Context, name, preferred string) (*pack.Structure, error) {
	key := pack.CacheKey(preferred, name)

	r.mu.RLock()
	st, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return st, nil
	}

	var order []source.Source
	if preferred != "" {
		ps := r.Source(preferred)
		if ps == nil {
			return nil, errors.New(errors.CodeSourceNotFound).
				WithDetailf("source %q is not registered or not enabled", preferred)
		}
		order = append(order, ps)
	}
	for _, s := range r.Sources() {
		if s.ID() != preferred {
			order = append(order, s)
		}
	}

	for _, s := range order {
		if !s.HasPack(ctx, name) {
			continue
		}
		st, err := s.LoadPack(ctx, name)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[key] = st
		r.mu.Unlock()
		r.logger.Debug("pack loaded", "pack", name, "source", s.ID())
		return st, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New(errors.CodePackNotFound).
		WithDetailf("pack %q not found in any source", name)
}

// HasPack reports whether any source provides name.
func (r *Registry) HasPack(ctx context.Context, name string) bool {
	for _, s := range r.Sources() {
		if s.HasPack(ctx, name) {
			return true
		}
	}
	return false
}

// DependencyResult is the outcome of resolving a pack's dependencies.
// Resolved is in install order and never contains the root pack.
type DependencyResult struct {
	Resolved     []string
	Missing      []string
	Circular     []string
	Incompatible []string
	// Cycles holds the dependency path of every cycle found, e.g. "a -> b -> a".
	Cycles []string
	// Errors holds packs that exist but could not be loaded.
	Errors []string
}

// OK reports whether the dependencies can be installed.
func (d *DependencyResult) OK() bool {
	return len(d.Missing) == 0 && len(d.Circular) == 0 && len(d.Incompatible) == 0 && len(d.Errors) == 0
}

// Problems returns a human readable line per problem.
func (d *DependencyResult) Problems() []string {
	var out []string
	for _, m := range d.Missing {
		out = append(out, "missing dependency: "+m)
	}
	for _, c := range d.Cycles {
		out = append(out, "circular dependency: "+c)
	}
	for _, i := range d.Incompatible {
		out = append(out, "incompatible dependency: "+i)
	}
	out = append(out, d.Errors...)
	return out
}

// ResolveDependencies walks the dependency graph of name depth first.
// Problems are collected in the result rather than returned; the error is
// reserved for cancellation.
func (r *Registry) ResolveDependencies(ctx context.Context, name string) (res *DependencyResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "registry.ResolveDependencies", "pack", name)
	defer func() { telemetry.EndSpan(span, err) }()

	res = &DependencyResult{}
	visiting := map[string]bool{}
	visited := map[string]string{}
	var stack []string

	var visit func(dep pack.Dependency)
	visit = func(dep pack.Dependency) {
		if ctx.Err() != nil {
			return
		}
		if visiting[dep.Name] {
			r.logger.Debug("circular dependency", "pack", dep.Name, "path", stack)
			if !contains(res.Circular, dep.Name) {
				res.Circular = append(res.Circular, dep.Name)
			}
			res.Cycles = append(res.Cycles, cyclePath(stack, dep.Name))
			return
		}
		if version, ok := visited[dep.Name]; ok {
			r.checkConstraint(dep, version, res)
			return
		}

		st, lerr := r.LoadPack(ctx, dep.Name, "")
		if lerr != nil {
			if errors.HasCode(lerr, errors.CodePackNotFound) {
				if !contains(res.Missing, dep.Name) {
					res.Missing = append(res.Missing, dep.Name)
				}
			} else {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", dep.Name, lerr))
			}
			visited[dep.Name] = ""
			return
		}
		r.checkConstraint(dep, st.Manifest.Version, res)

		visiting[dep.Name] = true
		stack = append(stack, dep.Name)
		for _, d := range st.Manifest.ParsedDependencies() {
			visit(d)
		}
		stack = stack[:len(stack)-1]
		delete(visiting, dep.Name)
		visited[dep.Name] = st.Manifest.Version

		if dep.Name != name {
			res.Resolved = append(res.Resolved, dep.Name)
		}
	}

	visit(pack.Dependency{Name: name})
	return res, ctx.Err()
}

func (r *Registry) checkConstraint(dep pack.Dependency, version string, res *DependencyResult) {
	if dep.Constraint == "" || version == "" {
		return
	}
	if !Satisfies(version, dep.Constraint) {
		entry := fmt.Sprintf("%s (found %s)", dep, version)
		if !contains(res.Incompatible, entry) {
			res.Incompatible = append(res.Incompatible, entry)
		}
	}
}

// Satisfies reports whether version meets constraint. Unparseable input
// never satisfies.
func Satisfies(version, constraint string) bool {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return c.Check(v)
}

func cyclePath(stack []string, name string) string {
	start := 0
	for i, s := range stack {
		if s == name {
			start = i
			break
		}
	}
	path := append(append([]string{}, stack[start:]...), name)
	return strings.Join(path, " -> ")
}

// Summary describes an available pack.
type Summary struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Description  string   `json:"description"`
	Author       string   `json:"author"`
	Category     string   `json:"category,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Components   int      `json:"components"`
	SourceID     string   `json:"source"`
}

func summarize(st *pack.Structure) Summary {
	m := st.Manifest
	return Summary{
		Name:         m.Name,
		Version:      m.Version,
		Description:  m.Description,
		Author:       m.Author,
		Category:     m.Category,
		Tags:         m.Tags,
		Dependencies: m.Dependencies,
		Components:   m.Components.Count(),
		SourceID:     st.SourceID,
	}
}

// ListPacks returns every available pack, de-duplicated by name with the
// first source winning. Sources that fail to list are skipped.
func (r *Registry) ListPacks(ctx context.Context) ([]Summary, error) {
	seen := map[string]bool{}
	var out []Summary
	for _, s := range r.Sources() {
		names, err := s.ListPacks(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("cannot list source", "source", s.ID(), "error", err)
			continue
		}
		for _, name := range names {
			if seen[name] {
				continue
			}
			st, err := s.LoadPack(ctx, name)
			if err != nil {
				r.logger.Warn("skipping unreadable pack", "source", s.ID(), "pack", name, "error", err)
				continue
			}
			seen[name] = true
			out = append(out, summarize(st))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Filter narrows Search results.
type Filter struct {
	Category string
	Tags     []string
}

// Search matches query against name, description and tags
// case-insensitively. An empty query matches everything.
func (r *Registry) Search(ctx context.Context, query string, f Filter) ([]Summary, error) {
	all, err := r.ListPacks(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Summary
	for _, s := range all {
		if f.Category != "" && !strings.EqualFold(s.Category, f.Category) {
			continue
		}
		if !hasAllTags(s.Tags, f.Tags) {
			continue
		}
		if q == "" || matches(s, q) {
			out = append(out, s)
		}
	}
	return out, nil
}

func matches(s Summary, q string) bool {
	if strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(strings.ToLower(s.Description), q) {
		return true
	}
	for _, t := range s.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if strings.EqualFold(h, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
