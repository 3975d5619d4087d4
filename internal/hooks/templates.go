package hooks

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zcc-dev/zcc/internal/errors"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// Template is a ready-made hook with its script body.
type Template struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	Event           Event    `yaml:"event"`
	Priority        int      `yaml:"priority"`
	Timeout         int      `yaml:"timeout"`
	ContinueOnError bool     `yaml:"continueOnError"`
	Matcher         *Matcher `yaml:"matcher"`
	Script          string   `yaml:"script"`
}

// Templates returns the built-in hook templates sorted by id.
func Templates() ([]Template, error) {
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	var out []Template
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		t, err := loadTemplate(path.Join("templates", e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LookupTemplate returns the template with id.
func LookupTemplate(id string) (*Template, error) {
	t, err := loadTemplate(path.Join("templates", id+".yaml"))
	if err != nil {
		return nil, errors.New(errors.CodeTemplateNotFound).
			WithDetailf("no hook template named %q", id)
	}
	return t, nil
}

func loadTemplate(p string) (*Template, error) {
	data, err := templateFS.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.New(errors.CodeInvalidManifest).WithDetailf("%s: %v", p, err)
	}
	return &t, nil
}
