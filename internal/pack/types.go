package pack

import (
	"fmt"
	"path"
	"strings"
)

// ComponentType identifies a kind of pack component.
type ComponentType string

const (
	ComponentModes     ComponentType = "modes"
	ComponentWorkflows ComponentType = "workflows"
	ComponentAgents    ComponentType = "agents"
	ComponentHooks     ComponentType = "hooks"
)

// ComponentTypes lists every component type in install order.
var ComponentTypes = []ComponentType{ComponentModes, ComponentWorkflows, ComponentAgents, ComponentHooks}

// Ext returns the file extension used for components of this type.
func (t ComponentType) Ext() string {
	if t == ComponentHooks {
		return ".json"
	}
	return ".md"
}

// Singular returns the singular noun for display.
func (t ComponentType) Singular() string {
	return strings.TrimSuffix(string(t), "s")
}

// ComponentPath returns the path of a component file relative to the pack root.
func ComponentPath(t ComponentType, name string) string {
	return path.Join("components", string(t), name+t.Ext())
}

// ParseComponentPath is the inverse of ComponentPath.
func ParseComponentPath(p string) (ComponentType, string, bool) {
	parts := strings.Split(path.Clean(strings.ReplaceAll(p, "\\", "/")), "/")
	if len(parts) != 3 || parts[0] != "components" {
		return "", "", false
	}
	t := ComponentType(parts[1])
	if !t.Valid() || path.Ext(parts[2]) != t.Ext() {
		return "", "", false
	}
	return t, strings.TrimSuffix(parts[2], t.Ext()), true
}

// Valid reports whether t is a known component type.
func (t ComponentType) Valid() bool {
	for _, ct := range ComponentTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// ComponentRef names a component inside a pack manifest.
type ComponentRef struct {
	Name         string         `json:"name" yaml:"name"`
	Required     bool           `json:"required" yaml:"required"`
	CustomConfig map[string]any `json:"customConfig,omitempty" yaml:"customConfig,omitempty"`
}

// Components lists a pack's components by type.
type Components struct {
	Modes     []ComponentRef `json:"modes,omitempty" yaml:"modes,omitempty"`
	Workflows []ComponentRef `json:"workflows,omitempty" yaml:"workflows,omitempty"`
	Agents    []ComponentRef `json:"agents,omitempty" yaml:"agents,omitempty"`
	Hooks     []ComponentRef `json:"hooks,omitempty" yaml:"hooks,omitempty"`
}

// Of returns the components of type t.
func (c Components) Of(t ComponentType) []ComponentRef {
	switch t {
	case ComponentModes:
		return c.Modes
	case ComponentWorkflows:
		return c.Workflows
	case ComponentAgents:
		return c.Agents
	case ComponentHooks:
		return c.Hooks
	}
	return nil
}

// Count returns the total number of components.
func (c Components) Count() int {
	return len(c.Modes) + len(c.Workflows) + len(c.Agents) + len(c.Hooks)
}

// Configuration is the pack's contribution to the project config.
type Configuration struct {
	DefaultMode     string         `json:"defaultMode,omitempty" yaml:"defaultMode,omitempty"`
	ProjectSettings map[string]any `json:"projectSettings,omitempty" yaml:"projectSettings,omitempty"`
}

// PostInstall describes what to show after installation. Commands are
// recorded for the user's information and never run.
type PostInstall struct {
	Message  string   `json:"message,omitempty" yaml:"message,omitempty"`
	Commands []string `json:"commands,omitempty" yaml:"commands,omitempty"`
}

// Hook declares a hook the pack wants configured. When Command is empty the
// hook refers to a hook component installed by the same pack.
type Hook struct {
	Name     string `json:"name" yaml:"name"`
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Event    string `json:"event,omitempty" yaml:"event,omitempty"`
	Command  string `json:"command,omitempty" yaml:"command,omitempty"`
	Priority int    `json:"priority,omitempty" yaml:"priority,omitempty"`
	Timeout  int    `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Requirements lists informational external tool dependencies.
type Requirements struct {
	Tools []string `json:"tools,omitempty" yaml:"tools,omitempty"`
}

// Manifest is a pack manifest. It is immutable once loaded.
type Manifest struct {
	Name          string         `json:"name" yaml:"name"`
	Version       string         `json:"version" yaml:"version"`
	Description   string         `json:"description" yaml:"description"`
	Author        string         `json:"author" yaml:"author"`
	Category      string         `json:"category,omitempty" yaml:"category,omitempty"`
	Tags          []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Dependencies  []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	ZccVersion    string         `json:"zccVersion,omitempty" yaml:"zccVersion,omitempty"`
	Components    Components     `json:"components" yaml:"components"`
	Configuration *Configuration `json:"configuration,omitempty" yaml:"configuration,omitempty"`
	PostInstall   *PostInstall   `json:"postInstall,omitempty" yaml:"postInstall,omitempty"`
	Hooks         []Hook         `json:"hooks,omitempty" yaml:"hooks,omitempty"`
	Scripts       []string       `json:"scripts,omitempty" yaml:"scripts,omitempty"`
	Requirements  *Requirements  `json:"requirements,omitempty" yaml:"requirements,omitempty"`
}

// Dependency is a parsed dependency entry: "name" or "name@constraint".
type Dependency struct {
	Name       string
	Constraint string
}

// String returns the dependency in manifest form.
func (d Dependency) String() string {
	if d.Constraint == "" {
		return d.Name
	}
	return d.Name + "@" + d.Constraint
}

// ParseDependency splits a manifest dependency entry.
func ParseDependency(s string) Dependency {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "@"); i > 0 {
		return Dependency{Name: s[:i], Constraint: strings.TrimSpace(s[i+1:])}
	}
	return Dependency{Name: s}
}

// ParsedDependencies returns the manifest's dependencies parsed.
func (m *Manifest) ParsedDependencies() []Dependency {
	deps := make([]Dependency, 0, len(m.Dependencies))
	for _, d := range m.Dependencies {
		if strings.TrimSpace(d) == "" {
			continue
		}
		deps = append(deps, ParseDependency(d))
	}
	return deps
}

// Structure is a loaded manifest plus its location.
type Structure struct {
	Manifest       *Manifest
	Path           string
	ComponentsPath string
	SourceID       string
}

// CacheKey returns the registry cache key for a pack.
func CacheKey(sourceID, name string) string {
	if sourceID == "" {
		return name
	}
	return sourceID + ":" + name
}

// ComponentSet holds component names by type.
type ComponentSet struct {
	Modes     []string `json:"modes"`
	Workflows []string `json:"workflows"`
	Agents    []string `json:"agents"`
	Hooks     []string `json:"hooks"`
}

// NewComponentSet returns a set with non-nil slices.
func NewComponentSet() ComponentSet {
	return ComponentSet{Modes: []string{}, Workflows: []string{}, Agents: []string{}, Hooks: []string{}}
}

// Add appends name under type t.
func (s *ComponentSet) Add(t ComponentType, name string) {
	switch t {
	case ComponentModes:
		s.Modes = append(s.Modes, name)
	case ComponentWorkflows:
		s.Workflows = append(s.Workflows, name)
	case ComponentAgents:
		s.Agents = append(s.Agents, name)
	case ComponentHooks:
		s.Hooks = append(s.Hooks, name)
	}
}

// Of returns the names of type t.
func (s ComponentSet) Of(t ComponentType) []string {
	switch t {
	case ComponentModes:
		return s.Modes
	case ComponentWorkflows:
		return s.Workflows
	case ComponentAgents:
		return s.Agents
	case ComponentHooks:
		return s.Hooks
	}
	return nil
}

// Len returns the total number of names.
func (s ComponentSet) Len() int {
	return len(s.Modes) + len(s.Workflows) + len(s.Agents) + len(s.Hooks)
}

// InstallationResult is produced once per top-level install or uninstall.
type InstallationResult struct {
	Success            bool         `json:"success"`
	Pack               string       `json:"pack,omitempty"`
	Installed          ComponentSet `json:"installed"`
	Skipped            ComponentSet `json:"skipped"`
	Removed            ComponentSet `json:"removed"`
	Errors             []string     `json:"errors"`
	Warnings           []string     `json:"warnings,omitempty"`
	PostInstallMessage string       `json:"postInstallMessage,omitempty"`
}

// NewResult returns an empty result for pack.
func NewResult(pack string) *InstallationResult {
	return &InstallationResult{
		Pack:      pack,
		Installed: NewComponentSet(),
		Skipped:   NewComponentSet(),
		Removed:   NewComponentSet(),
		Errors:    []string{},
	}
}

// Failure returns a failed result carrying the given errors.
func Failure(pack string, errs ...string) *InstallationResult {
	r := NewResult(pack)
	r.Errors = append(r.Errors, errs...)
	return r
}

// AddError records a formatted error.
func (r *InstallationResult) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// AddWarning records a formatted warning.
func (r *InstallationResult) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
