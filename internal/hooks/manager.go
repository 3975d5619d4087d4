package hooks

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zcc-dev/zcc/internal/errors"
	"github.com/zcc-dev/zcc/internal/pack"
	"github.com/zcc-dev/zcc/internal/telemetry"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Root is the project (or global) root hooks run in.
	Root string

	// DefinitionsDir holds one <id>.json per hook.
	DefinitionsDir string

	// ScriptsDir holds hook scripts.
	ScriptsDir string

	DefaultTimeout time.Duration
	Logger         *slog.Logger
	Metrics        *telemetry.Metrics
}

// Manager loads, persists and dispatches hooks.
type Manager struct {
	cfg      ManagerConfig
	logger   *slog.Logger
	registry *Registry
	executor *Executor
}

// NewManager creates a Manager. Call Load to read existing definitions.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		logger:   logger,
		registry: NewRegistry(),
		executor: &Executor{
			Root:           cfg.Root,
			DefaultTimeout: cfg.DefaultTimeout,
			Logger:         logger,
			Metrics:        cfg.Metrics,
		},
	}
}

// Registry returns the in-memory hook registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Load replaces the registry contents with the definitions on disk.
// Unreadable definitions are logged and skipped.
func (m *Manager) Load() error {
	m.registry = NewRegistry()
	entries, err := os.ReadDir(m.cfg.DefinitionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.New(errors.CodeConfig).Wrap(err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		p := filepath.Join(m.cfg.DefinitionsDir, e.Name())
		c, err := readDefinition(p)
		if err != nil {
			m.logger.Warn("skipping hook definition", "path", p, "error", err)
			continue
		}
		if c.ID == "" {
			c.ID = strings.TrimSuffix(e.Name(), ".json")
		}
		m.registry.Add(c)
	}
	return nil
}

func readDefinition(p string) (*Config, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.New(errors.CodeInvalidJSON).WithDetailf("%s: %v", p, err)
	}
	return &c, nil
}

// DefinitionPath returns where the hook with id is stored.
func (m *Manager) DefinitionPath(id string) string {
	return filepath.Join(m.cfg.DefinitionsDir, id+".json")
}

// List returns every hook ordered by event and priority.
func (m *Manager) List() []*Config {
	return m.registry.All()
}

// Get returns the hook with id.
func (m *Manager) Get(id string) (*Config, error) {
	c, ok := m.registry.Get(id)
	if !ok {
		return nil, errors.New(errors.CodeHookNotFound).WithDetailf("no hook with id %q", id)
	}
	return c, nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

func newID(name string) string {
	short := uuid.NewString()[:8]
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		return "hook-" + short
	}
	return slug + "-" + short
}

// Validate checks a hook config.
func Validate(c *Config) error {
	if !pack.SafeName(c.ID) {
		return errors.New(errors.CodeValidation).WithDetailf("hook id %q is not a valid file name", c.ID)
	}
	if _, ok := ParseEvent(string(c.Event)); !ok {
		return errors.New(errors.CodeValidation).
			WithDetailf("unknown event %q", c.Event).
			WithSuggestion("Valid events: " + strings.Join(pack.HookEvents, ", "))
	}
	if strings.TrimSpace(c.Command) == "" {
		return errors.New(errors.CodeValidation).WithDetailf("hook %q has no command", c.ID)
	}
	if c.Timeout < 0 {
		return errors.New(errors.CodeValidation).WithDetailf("hook %q has a negative timeout", c.ID)
	}
	if err := c.Matcher.Validate(); err != nil {
		return errors.New(errors.CodeValidation).WithDetailf("hook %q: %v", c.ID, err)
	}
	return nil
}

// Add validates, stores and persists a new hook. An empty id is generated
// from the name.
func (m *Manager) Add(c Config) (*Config, error) {
	if c.ID == "" {
		c.ID = newID(c.Name)
	}
	if c.Name == "" {
		c.Name = c.ID
	}
	if err := Validate(&c); err != nil {
		return nil, err
	}
	if _, ok := m.registry.Get(c.ID); ok {
		return nil, errors.New(errors.CodeHookExists).WithDetailf("hook %q already exists", c.ID)
	}
	if err := m.save(&c); err != nil {
		return nil, err
	}
	m.registry.Add(&c)
	m.logger.Debug("hook added", "id", c.ID, "event", c.Event)
	return &c, nil
}

func (m *Manager) save(c *Config) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(m.cfg.DefinitionsDir, 0755); err != nil {
		return errors.New(errors.CodeConfig).Wrap(err)
	}
	if err := os.WriteFile(m.DefinitionPath(c.ID), append(data, '\n'), 0644); err != nil {
		return errors.New(errors.CodeConfig).Wrap(err)
	}
	return nil
}

// SetEnabled enables or disables a hook and persists the change.
func (m *Manager) SetEnabled(id string, enabled bool) error {
	c, err := m.Get(id)
	if err != nil {
		return err
	}
	updated := *c
	updated.Enabled = enabled
	if err := m.save(&updated); err != nil {
		return err
	}
	m.registry.Add(&updated)
	return nil
}

// Remove deletes a hook's registry entry, definition and scripts.
func (m *Manager) Remove(id string) error {
	if _, err := m.Get(id); err != nil {
		return err
	}
	m.registry.Remove(id)
	if err := os.Remove(m.DefinitionPath(id)); err != nil && !os.IsNotExist(err) {
		return errors.New(errors.CodeComponentRemovalError).Wrap(err)
	}
	if m.cfg.ScriptsDir != "" {
		matches, _ := filepath.Glob(filepath.Join(m.cfg.ScriptsDir, id+".*"))
		for _, p := range matches {
			if err := os.Remove(p); err != nil {
				m.logger.Warn("could not remove hook script", "path", p, "error", err)
			}
		}
	}
	return nil
}

// AddFromTemplate installs a template's script and registers the hook.
// id overrides the template id when non-empty.
func (m *Manager) AddFromTemplate(name, id string) (*Config, error) {
	t, err := LookupTemplate(name)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = t.ID
	}
	if !pack.SafeName(id) {
		return nil, errors.New(errors.CodeValidation).WithDetailf("hook id %q is not a valid file name", id)
	}
	if _, ok := m.registry.Get(id); ok {
		return nil, errors.New(errors.CodeHookExists).WithDetailf("hook %q already exists", id)
	}

	script := filepath.Join(m.cfg.ScriptsDir, id+".sh")
	if err := os.MkdirAll(m.cfg.ScriptsDir, 0755); err != nil {
		return nil, errors.New(errors.CodeConfig).Wrap(err)
	}
	if err := os.WriteFile(script, []byte(t.Script), 0755); err != nil {
		return nil, errors.New(errors.CodeConfig).Wrap(err)
	}

	command := script
	if rel, err := filepath.Rel(m.cfg.Root, script); err == nil && !strings.HasPrefix(rel, "..") {
		command = "./" + filepath.ToSlash(rel)
	}
	c, err := m.Add(Config{
		ID:              id,
		Name:            t.Name,
		Event:           t.Event,
		Enabled:         true,
		Matcher:         t.Matcher,
		Command:         command,
		Timeout:         t.Timeout,
		Priority:        t.Priority,
		ContinueOnError: t.ContinueOnError,
	})
	if err != nil {
		_ = os.Remove(script)
		return nil, err
	}
	return c, nil
}

// ConfigurePackHook applies a hook declared in a pack manifest and returns
// the definition path it owns. A hook without a command refers to a hook
// component the pack already installed; only its enabled flag and owner are
// updated.
func (m *Manager) ConfigurePackHook(packName string, h pack.Hook) (string, error) {
	if h.Command == "" {
		p := m.DefinitionPath(h.Name)
		c, err := readDefinition(p)
		if err != nil {
			return "", errors.New(errors.CodeHookNotFound).
				WithDetailf("pack %q declares hook %q but no definition was installed", packName, h.Name).
				Wrap(err)
		}
		if c.ID == "" {
			c.ID = h.Name
		}
		c.Enabled = h.Enabled
		c.Pack = packName
		if h.Priority != 0 {
			c.Priority = h.Priority
		}
		if h.Timeout != 0 {
			c.Timeout = h.Timeout
		}
		if err := Validate(c); err != nil {
			return "", err
		}
		if err := m.save(c); err != nil {
			return "", err
		}
		m.registry.Add(c)
		return p, nil
	}

	c := Config{
		ID:       h.Name,
		Name:     h.Name,
		Event:    Event(h.Event),
		Enabled:  h.Enabled,
		Command:  h.Command,
		Timeout:  h.Timeout,
		Priority: h.Priority,
		Pack:     packName,
	}
	if err := Validate(&c); err != nil {
		return "", err
	}
	if existing, ok := m.registry.Get(c.ID); ok && existing.Pack != packName {
		return "", errors.New(errors.CodeHookExists).
			WithDetailf("hook %q is already defined outside pack %q", c.ID, packName)
	}
	if err := m.save(&c); err != nil {
		return "", err
	}
	m.registry.Add(&c)
	return m.DefinitionPath(c.ID), nil
}

// Execute dispatches event to its enabled, matching hooks in descending
// priority. Exit code 2 blocks and stops the chain. Other failures stop the
// chain unless the hook sets continueOnError. For UserPromptSubmit, a
// hook's non-empty stdout replaces the prompt seen by later hooks.
func (m *Manager) Execute(ctx context.Context, event Event, in Input) Outcome {
	in.Event = event
	if in.Cwd == "" {
		in.Cwd = m.cfg.Root
	}
	out := Outcome{Event: event, Prompt: in.Prompt, Results: []Result{}}

	for _, c := range m.registry.ForEvent(event) {
		if !c.Enabled || !c.Matcher.Matches(in) {
			continue
		}
		r := m.executor.Run(ctx, c, in)
		out.Results = append(out.Results, r)

		if r.ShouldBlock {
			out.Blocked = true
			m.logger.Info("hook blocked event", "hook", c.ID, "event", event)
			break
		}
		if !r.Success() {
			m.logger.Warn("hook failed", "hook", c.ID, "exit", r.ExitCode, "error", r.Error)
			if !c.ContinueOnError {
				out.Failed = true
				break
			}
			continue
		}
		if event == EventUserPromptSubmit {
			if s := strings.TrimRight(r.Stdout, "\r\n"); strings.TrimSpace(s) != "" {
				in.Prompt = s
				out.Prompt = s
			}
		}
		if ctx.Err() != nil {
			break
		}
	}
	return out
}
