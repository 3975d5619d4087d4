package pack

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$|^[a-z0-9]$`)

	// Command fragments that warrant a warning when a pack declares them.
	riskyCommands = []*regexp.Regexp{
		regexp.MustCompile(`\brm\s+-[a-zA-Z]*r[a-zA-Z]*f?\s+/`),
		regexp.MustCompile(`\b(curl|wget)\b[^|]*\|\s*(sh|bash|zsh)\b`),
		regexp.MustCompile(`\bsudo\b`),
		regexp.MustCompile(`\beval\b`),
		regexp.MustCompile(`\bchmod\s+777\b`),
		regexp.MustCompile(`>\s*/etc/`),
	}
)

// HookEvents are the lifecycle events a pack hook may target.
var HookEvents = []string{
	"UserPromptSubmit", "PreToolUse", "PostToolUse", "SessionStart",
	"SessionEnd", "Stop", "SubagentStop", "PreCompact", "Notification",
}

// ValidationResult reports manifest problems. Warnings never block install.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validator checks manifests for schema and security problems.
type Validator struct {
	// CLIVersion, when set, is checked against zccVersion constraints.
	CLIVersion string
}

// NewValidator returns a Validator for the running CLI version.
func NewValidator(cliVersion string) *Validator {
	return &Validator{CLIVersion: cliVersion}
}

// Validate checks m and returns every problem found.
func (v *Validator) Validate(m *Manifest) *ValidationResult {
	r := &ValidationResult{Errors: []string{}, Warnings: []string{}}
	if m == nil {
		r.errorf("manifest is empty")
		return r
	}

	if m.Name == "" {
		r.errorf("name is required")
	} else if !ValidName(m.Name) {
		r.errorf("name %q must be lowercase letters, digits and dashes", m.Name)
	}

	if m.Version == "" {
		r.errorf("version is required")
	} else if _, err := semver.StrictNewVersion(m.Version); err != nil {
		r.errorf("version %q is not valid semver: %v", m.Version, err)
	}

	if m.Description == "" {
		r.errorf("description is required")
	}
	if m.Author == "" {
		r.errorf("author is required")
	}

	v.validateDependencies(m, r)
	v.validateComponents(m, r)
	v.validateHooks(m, r)

	for _, s := range m.Scripts {
		if !SafeRelPath(s) {
			r.errorf("script path %q escapes the pack directory", s)
		}
	}

	if m.ZccVersion != "" {
		c, err := semver.NewConstraint(m.ZccVersion)
		if err != nil {
			r.errorf("zccVersion %q is not a valid constraint: %v", m.ZccVersion, err)
		} else if v.CLIVersion != "" {
			if cur, err := semver.NewVersion(v.CLIVersion); err == nil && !c.Check(cur) {
				r.errorf("pack requires zcc %s, running %s", m.ZccVersion, v.CLIVersion)
			}
		}
	}

	if m.PostInstall != nil {
		for _, cmd := range m.PostInstall.Commands {
			r.warnf("postInstall command will not be executed: %s", cmd)
			v.checkCommand("postInstall", cmd, r)
		}
	}

	r.Valid = len(r.Errors) == 0
	return r
}

func (v *Validator) validateDependencies(m *Manifest, r *ValidationResult) {
	seen := map[string]bool{}
	for _, raw := range m.Dependencies {
		d := ParseDependency(raw)
		if !ValidName(d.Name) {
			r.errorf("dependency %q has an invalid name", raw)
			continue
		}
		if d.Name == m.Name {
			r.errorf("pack cannot depend on itself")
		}
		if seen[d.Name] {
			r.warnf("dependency %q is listed more than once", d.Name)
		}
		seen[d.Name] = true
		if d.Constraint != "" {
			if _, err := semver.NewConstraint(d.Constraint); err != nil {
				r.errorf("dependency %q has an invalid version constraint: %v", raw, err)
			}
		}
	}
}

func (v *Validator) validateComponents(m *Manifest, r *ValidationResult) {
	if m.Components.Count() == 0 && len(m.Dependencies) == 0 {
		r.warnf("pack has no components and no dependencies")
	}
	for _, t := range ComponentTypes {
		seen := map[string]bool{}
		for _, c := range m.Components.Of(t) {
			if c.Name == "" {
				r.errorf("%s entry is missing a name", t.Singular())
				continue
			}
			if !SafeName(c.Name) {
				r.errorf("%s name %q must not contain path separators", t.Singular(), c.Name)
			}
			if seen[c.Name] {
				r.errorf("duplicate %s %q", t.Singular(), c.Name)
			}
			seen[c.Name] = true
		}
	}
	if m.Configuration != nil && m.Configuration.DefaultMode != "" {
		found := false
		for _, c := range m.Components.Modes {
			if c.Name == m.Configuration.DefaultMode {
				found = true
			}
		}
		if !found {
			r.warnf("defaultMode %q is not a mode provided by this pack", m.Configuration.DefaultMode)
		}
	}
}

func (v *Validator) validateHooks(m *Manifest, r *ValidationResult) {
	for _, h := range m.Hooks {
		if h.Name == "" {
			r.errorf("hook entry is missing a name")
			continue
		}
		if h.Event != "" && !ValidEvent(h.Event) {
			r.errorf("hook %q has unknown event %q", h.Name, h.Event)
		}
		if h.Command == "" {
			found := false
			for _, c := range m.Components.Hooks {
				if c.Name == h.Name {
					found = true
				}
			}
			if !found {
				r.errorf("hook %q has no command and no matching hook component", h.Name)
			}
			continue
		}
		if h.Event == "" {
			r.errorf("hook %q declares a command but no event", h.Name)
		}
		if h.Timeout < 0 {
			r.errorf("hook %q has a negative timeout", h.Name)
		}
		v.checkCommand("hook "+h.Name, h.Command, r)
	}
}

func (v *Validator) checkCommand(where, cmd string, r *ValidationResult) {
	for _, re := range riskyCommands {
		if re.MatchString(cmd) {
			r.warnf("%s runs a potentially dangerous command: %s", where, cmd)
			return
		}
	}
}

// ValidName reports whether s is a valid pack name.
func ValidName(s string) bool {
	return len(s) <= 64 && namePattern.MatchString(s)
}

// ValidEvent reports whether s is a known hook event.
func ValidEvent(s string) bool {
	for _, e := range HookEvents {
		if e == s {
			return true
		}
	}
	return false
}

// SafeName reports whether s can be used as a single path element.
func SafeName(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// SafeRelPath reports whether p is relative and stays inside its root.
func SafeRelPath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return false
	}
	clean := path.Clean(p)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}
