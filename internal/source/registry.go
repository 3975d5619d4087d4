package source

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	zerrors "github.com/zcc-dev/zcc/internal/errors"
)

// RegistryVersion is the current sources.json format version.
const RegistryVersion = 1

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

// File is the persisted form of the source registry.
type File struct {
	Version       int      `json:"version"`
	DefaultSource string   `json:"defaultSource,omitempty"`
	Sources       []Config `json:"sources"`
}

// Registry holds the configured pack sources. The local source is always
// present, enabled and first.
type Registry struct {
	path   string
	logger *slog.Logger

	mu   sync.RWMutex
	file File
}

// NewRegistry returns a registry containing only the local source, bound to
// path for saving.
func NewRegistry(path string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		path:   path,
		logger: logger,
		file: File{
			Version:       RegistryVersion,
			DefaultSource: LocalID,
			Sources:       []Config{LocalConfig()},
		},
	}
}

// LoadRegistry reads sources.json at path. A missing file yields the default
// registry.
func LoadRegistry(path string, logger *slog.Logger) (*Registry, error) {
	r := NewRegistry(path, logger)
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Load replaces the in-memory state with the file contents.
func (r *Registry) Load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return zerrors.New(zerrors.CodeConfig).Wrap(err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return zerrors.New(zerrors.CodeInvalidJSON).WithDetailf("%s: %v", r.path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.file = normalize(f)
	return nil
}

// normalize restores the local source invariants.
func normalize(f File) File {
	if f.Version == 0 {
		f.Version = RegistryVersion
	}
	out := []Config{LocalConfig()}
	seen := map[string]bool{LocalID: true}
	for _, c := range f.Sources {
		if c.ID == LocalID {
			out[0].Priority = 0
			continue
		}
		if seen[c.ID] || c.ID == "" {
			continue
		}
		seen[c.ID] = true
		if c.Config == nil {
			c.Config = map[string]any{}
		}
		out = append(out, c)
	}
	f.Sources = out
	if f.DefaultSource == "" || !seen[f.DefaultSource] {
		f.DefaultSource = LocalID
	}
	return f
}

// Save writes the registry to its path atomically.
func (r *Registry) Save() error {
	r.mu.RLock()
	data, err := json.MarshalIndent(r.file, "", "  ")
	r.mu.RUnlock()
	if err != nil {
		return zerrors.New(zerrors.CodeConfig).Wrap(err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return zerrors.New(zerrors.CodeConfig).Wrap(err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return zerrors.New(zerrors.CodeConfig).Wrap(err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return zerrors.New(zerrors.CodeConfig).Wrap(err)
	}
	return nil
}

// Path returns the file the registry saves to.
func (r *Registry) Path() string {
	return r.path
}

// List returns all sources ordered by priority, then id.
func (r *Registry) List() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Config, len(r.file.Sources))
	copy(out, r.file.Sources)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ID == LocalID || out[j].ID == LocalID {
			return out[i].ID == LocalID && out[j].ID != LocalID
		}
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Enabled returns the enabled sources in priority order.
func (r *Registry) Enabled() []Config {
	var out []Config
	for _, c := range r.List() {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

// Default returns the id of the default source.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.file.DefaultSource
}

// Get returns the source with id.
func (r *Registry) Get(id string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.index(id); i >= 0 {
		return r.file.Sources[i], nil
	}
	return Config{}, notFound(id)
}

func (r *Registry) index(id string) int {
	for i, c := range r.file.Sources {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func notFound(id string) *zerrors.ZccError {
	return zerrors.New(zerrors.CodeSourceNotFound).WithDetailf("no source with id %q", id)
}

// Add registers a new source. Duplicate ids and the local type are rejected.
func (r *Registry) Add(c Config) error {
	if err := Validate(c); err != nil {
		return err
	}
	if c.Type == KindLocal {
		return zerrors.New(zerrors.CodeSourceTypeInvalid).
			WithDetail("only the built-in source may have type local")
	}
	if c.Config == nil {
		c.Config = map[string]any{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index(c.ID) >= 0 {
		return zerrors.New(zerrors.CodeSourceExists).WithDetailf("source %q already exists", c.ID)
	}
	if c.Priority <= 0 {
		c.Priority = r.nextPriority()
	}
	r.file.Sources = append(r.file.Sources, c)
	r.logger.Debug("source added", "id", c.ID, "type", c.Type)
	return nil
}

func (r *Registry) nextPriority() int {
	p := 0
	for _, c := range r.file.Sources {
		if c.Priority > p {
			p = c.Priority
		}
	}
	return p + 10
}

// Validate checks a source config independent of the registry.
func Validate(c Config) error {
	if !idPattern.MatchString(c.ID) {
		return zerrors.New(zerrors.CodeValidation).
			WithDetailf("source id %q must be 1-64 letters, digits, dots, dashes or underscores", c.ID)
	}
	if !c.Type.Valid() {
		return zerrors.New(zerrors.CodeSourceTypeInvalid).WithDetailf("unknown source type %q", c.Type)
	}
	for _, key := range requiredKeys[c.Type] {
		if c.String(key, "") == "" {
			return zerrors.New(zerrors.CodeValidation).
				WithDetailf("%s source %q requires config key %q", c.Type, c.ID, key)
		}
	}
	return nil
}

// Remove deletes a source. The local source cannot be removed.
func (r *Registry) Remove(id string) error {
	if id == LocalID {
		return zerrors.New(zerrors.CodeSourceProtected).WithDetail("the local source cannot be removed")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return notFound(id)
	}
	r.file.Sources = append(r.file.Sources[:i], r.file.Sources[i+1:]...)
	if r.file.DefaultSource == id {
		r.file.DefaultSource = LocalID
	}
	return nil
}

// Enable turns a source on.
func (r *Registry) Enable(id string) error {
	return r.update(id, func(c *Config) error {
		c.Enabled = true
		return nil
	})
}

// Disable turns a source off. The local source cannot be disabled.
func (r *Registry) Disable(id string) error {
	if id == LocalID {
		return zerrors.New(zerrors.CodeSourceProtected).WithDetail("the local source cannot be disabled")
	}
	r.mu.Lock()
	if r.file.DefaultSource == id {
		r.file.DefaultSource = LocalID
	}
	r.mu.Unlock()
	return r.update(id, func(c *Config) error {
		c.Enabled = false
		return nil
	})
}

// SetTrusted marks a source trusted or untrusted.
func (r *Registry) SetTrusted(id string, trusted bool) error {
	if id == LocalID && !trusted {
		return zerrors.New(zerrors.CodeSourceProtected).WithDetail("the local source is always trusted")
	}
	return r.update(id, func(c *Config) error {
		c.Trusted = trusted
		return nil
	})
}

// SetPriority changes a source's priority. Lower is preferred.
func (r *Registry) SetPriority(id string, priority int) error {
	if id == LocalID {
		return zerrors.New(zerrors.CodeSourceProtected).WithDetail("the local source priority is fixed")
	}
	return r.update(id, func(c *Config) error {
		c.Priority = priority
		return nil
	})
}

// SetDefault selects the source tried first when locating packs.
func (r *Registry) SetDefault(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return notFound(id)
	}
	if !r.file.Sources[i].Enabled {
		return zerrors.New(zerrors.CodeValidation).
			WithDetailf("source %q is disabled", id).
			WithSuggestion("Enable it first with 'zcc source enable " + id + "'")
	}
	r.file.DefaultSource = id
	return nil
}

func (r *Registry) update(id string, fn func(c *Config) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return notFound(id)
	}
	return fn(&r.file.Sources[i])
}

// Build constructs the enabled sources, default source first, then by
// priority. Sources that fail to build are logged and skipped.
func (r *Registry) Build(opts Options) []Source {
	def := r.Default()
	cfgs := r.Enabled()
	sort.SliceStable(cfgs, func(i, j int) bool {
		return cfgs[i].ID == def && cfgs[j].ID != def
	})

	var out []Source
	for _, c := range cfgs {
		s, err := New(c, opts)
		if err != nil {
			r.logger.Warn("skipping source", "id", c.ID, "error", err)
			continue
		}
		out = append(out, s)
	}
	return out
}

// FindPackSource returns the first built source that has the pack.
func (r *Registry) FindPackSource(ctx context.Context, name string, opts Options) (Source, error) {
	for _, s := range r.Build(opts) {
		if s.HasPack(ctx, name) {
			return s, nil
		}
	}
	return nil, zerrors.New(zerrors.CodePackNotFound).
		WithDetailf("pack %q not found in any enabled source", name)
}

// Health is the result of probing one source.
type Health struct {
	ID      string        `json:"id"`
	Kind    Kind          `json:"type"`
	OK      bool          `json:"ok"`
	Packs   int           `json:"packs"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// Check lists packs in every enabled source concurrently. It never fails;
// problems are reported per source.
func (r *Registry) Check(ctx context.Context, opts Options) []Health {
	cfgs := r.Enabled()
	results := make([]Health, len(cfgs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, c := range cfgs {
		g.Go(func() error {
			h := Health{ID: c.ID, Kind: c.Type}
			start := time.Now()
			s, err := New(c, opts)
			if err == nil {
				var names []string
				names, err = s.ListPacks(ctx)
				h.Packs = len(names)
			}
			h.Latency = time.Since(start)
			if err != nil {
				h.Error = err.Error()
			} else {
				h.OK = true
			}
			results[i] = h
			return nil
		})
	}
	_ = g.Wait()
	return results
}
