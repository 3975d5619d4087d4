// Package commands installs the slash commands that expose zcc modes and
// workflows inside the assistant (.claude/commands).
package commands

import (
	"bytes"
	"embed"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/zcc-dev/zcc/internal/config"
	"github.com/zcc-dev/zcc/internal/errors"
	"github.com/zcc-dev/zcc/internal/workspace"
)

// Marker identifies files generated by zcc. Files without it are never
// overwritten or removed.
const Marker = "<!-- generated by zcc -->"

//go:embed templates/*.md.tmpl
var templateFS embed.FS

var tmpl = template.Must(template.New("commands").
	Funcs(template.FuncMap{"join": strings.Join}).
	ParseFS(templateFS, "templates/*.md.tmpl"))

// Names returns the command file names, sorted.
func Names() []string {
	var names []string
	for _, t := range tmpl.Templates() {
		if strings.HasSuffix(t.Name(), ".md.tmpl") {
			names = append(names, strings.TrimSuffix(t.Name(), ".tmpl"))
		}
	}
	sort.Strings(names)
	return names
}

// Data is what the command templates see.
type Data struct {
	Modes       []string
	Workflows   []string
	DefaultMode string
	Binary      string
}

// State is the status of one command file.
type State string

const (
	StateMissing  State = "missing"
	StateCurrent  State = "current"
	StateOutdated State = "outdated"
	StateForeign  State = "foreign" // exists without the zcc marker
)

// Status describes one command file.
type Status struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	State State  `json:"state"`
}

// Generator renders and maintains the command files of a workspace.
type Generator struct {
	ws     *workspace.Workspace
	binary string
	logger *slog.Logger
}

// NewGenerator creates a Generator. binary is the zcc executable the
// commands call; it defaults to "zcc".
func NewGenerator(ws *workspace.Workspace, binary string, logger *slog.Logger) *Generator {
	if binary == "" {
		binary = "zcc"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{ws: ws, binary: binary, logger: logger}
}

// Data collects the installed modes and workflows.
func (g *Generator) Data() (Data, error) {
	d := Data{Binary: g.binary}
	var err error
	if d.Modes, err = listMarkdown(g.ws.ModesDir()); err != nil {
		return d, err
	}
	if d.Workflows, err = listMarkdown(g.ws.WorkflowsDir()); err != nil {
		return d, err
	}
	cfg, err := config.LoadFile(g.ws.ConfigPath())
	if err != nil {
		return d, err
	}
	d.DefaultMode = cfg.DefaultMode
	return d, nil
}

func listMarkdown(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".md" {
			out = append(out, strings.TrimSuffix(e.Name(), ".md"))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Render returns the content of every command file.
func (g *Generator) Render() (map[string][]byte, error) {
	data, err := g.Data()
	if err != nil {
		return nil, err
	}
	out := map[string][]byte{}
	for _, name := range Names() {
		var buf bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
			return nil, errors.Newf(errors.CategoryCLI, "rendering %s: %v", name, err)
		}
		out[name] = buf.Bytes()
	}
	return out, nil
}

// Install writes every command file. Files without the marker are skipped
// unless force is set. It returns the paths written.
func (g *Generator) Install(force bool) ([]string, error) {
	files, err := g.Render()
	if err != nil {
		return nil, err
	}
	var written []string
	for _, name := range Names() {
		p := filepath.Join(g.ws.CommandsDir(), name)
		if existing, err := os.ReadFile(p); err == nil && !force && !bytes.Contains(existing, []byte(Marker)) {
			g.logger.Warn("skipping command not generated by zcc", "path", p)
			continue
		}
		if err := workspace.WriteFileAtomic(p, files[name], 0644); err != nil {
			return written, errors.New(errors.CodeComponentInstallError).Wrap(err)
		}
		written = append(written, p)
	}
	return written, nil
}

// Status reports the state of every command file.
func (g *Generator) Status() ([]Status, error) {
	files, err := g.Render()
	if err != nil {
		return nil, err
	}
	var out []Status
	for _, name := range Names() {
		p := filepath.Join(g.ws.CommandsDir(), name)
		s := Status{Name: strings.TrimSuffix(name, ".md"), Path: g.ws.Rel(p)}
		existing, err := os.ReadFile(p)
		switch {
		case err != nil:
			s.State = StateMissing
		case !bytes.Contains(existing, []byte(Marker)):
			s.State = StateForeign
		case bytes.Equal(existing, files[name]):
			s.State = StateCurrent
		default:
			s.State = StateOutdated
		}
		out = append(out, s)
	}
	return out, nil
}

// Cleanup removes generated command files and returns their paths.
// Files without the marker are left alone.
func (g *Generator) Cleanup() ([]string, error) {
	var removed []string
	for _, name := range Names() {
		p := filepath.Join(g.ws.CommandsDir(), name)
		existing, err := os.ReadFile(p)
		if err != nil || !bytes.Contains(existing, []byte(Marker)) {
			continue
		}
		if err := os.Remove(p); err != nil {
			return removed, errors.New(errors.CodeComponentRemovalError).Wrap(err)
		}
		removed = append(removed, p)
	}
	if _, err := workspace.RemoveIfEmpty(g.ws.CommandsDir()); err != nil {
		g.logger.Debug("could not remove commands directory", "error", err)
	}
	return removed, nil
}
