package templates

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/zcc-dev/zcc/internal/errors"
)

// Config contains template configuration.
type Config struct {
	// Name is the pack name.
	Name string

	// Description is a short pack description.
	Description string

	// Author is written to the manifest.
	Author string

	// Category groups the pack in listings.
	Category string

	// Version is the initial version. Defaults to 0.1.0.
	Version string
}

// Title returns the pack name in title case.
func (c Config) Title() string {
	parts := strings.Split(c.Name, "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

func (c Config) withDefaults() Config {
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.Description == "" {
		c.Description = c.Title() + " starter pack"
	}
	if c.Author == "" {
		c.Author = "unknown"
	}
	if c.Category == "" {
		c.Category = "general"
	}
	return c
}

// Template represents a pack template.
type Template struct {
	// Name is the template name.
	Name string

	// Description describes the template.
	Description string

	// Files is a map of relative paths to file contents.
	Files map[string]string
}

// Available templates.
var templates = map[string]*Template{
	"minimal": minimalTemplate(),
	"full":    fullTemplate(),
	"hooks":   hooksTemplate(),
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New(errors.CodeTemplateNotFound).
			WithDetail("Template '" + name + "' not found").
			WithSuggestion("Available templates: " + strings.Join(List(), ", "))
	}
	return tmpl, nil
}

// List returns all available template names, sorted.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create generates a pack in dir. Nothing is written if any target file
// already exists.
func (t *Template) Create(dir string, cfg Config) error {
	cfg = cfg.withDefaults()
	rendered := make(map[string]string, len(t.Files))
	for relPath, content := range t.Files {
		name, err := render(relPath, relPath, cfg)
		if err != nil {
			return err
		}
		body, err := render(relPath, content, cfg)
		if err != nil {
			return err
		}
		fullPath := filepath.Join(dir, filepath.FromSlash(name))
		if _, err := os.Stat(fullPath); err == nil {
			return errors.Newf(errors.CategoryCLI, "%s already exists", fullPath)
		}
		rendered[fullPath] = body
	}

	for fullPath, body := range rendered {
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return err
		}
		perm := os.FileMode(0644)
		if strings.HasSuffix(fullPath, ".sh") {
			perm = 0755
		}
		if err := os.WriteFile(fullPath, []byte(body), perm); err != nil {
			return err
		}
	}
	return nil
}

func render(name, text string, cfg Config) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", errors.Newf(errors.CategoryCLI, "invalid template %s: %v", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return "", errors.Newf(errors.CategoryCLI, "template execute error %s: %v", name, err)
	}
	return buf.String(), nil
}

// minimalTemplate returns the minimal template.
func minimalTemplate() *Template {
	return &Template{
		Name:        "minimal",
		Description: "A manifest and a single mode",
		Files: map[string]string{
			"manifest.json": `{
  "name": "{{.Name}}",
  "version": "{{.Version}}",
  "description": "{{.Description}}",
  "author": "{{.Author}}",
  "category": "{{.Category}}",
  "tags": [],
  "components": {
    "modes": [
      {"name": "{{.Name}}", "required": true}
    ]
  }
}
`,
			"components/modes/{{.Name}}.md": modeBody,
		},
	}
}

// fullTemplate returns a template using every component type.
func fullTemplate() *Template {
	return &Template{
		Name:        "full",
		Description: "One component of every type plus a hook script",
		Files: map[string]string{
			"manifest.json": `{
  "name": "{{.Name}}",
  "version": "{{.Version}}",
  "description": "{{.Description}}",
  "author": "{{.Author}}",
  "category": "{{.Category}}",
  "tags": [],
  "dependencies": [],
  "components": {
    "modes": [
      {"name": "{{.Name}}", "required": true}
    ],
    "workflows": [
      {"name": "{{.Name}}-checklist", "required": false}
    ],
    "agents": [
      {"name": "{{.Name}}-helper", "required": false}
    ],
    "hooks": [
      {"name": "{{.Name}}-context", "required": false}
    ]
  },
  "configuration": {
    "defaultMode": "{{.Name}}",
    "projectSettings": {}
  },
  "hooks": [
    {"name": "{{.Name}}-context", "enabled": true}
  ],
  "scripts": ["scripts/{{.Name}}-context.sh"],
  "postInstall": {
    "message": "{{.Title}} installed."
  }
}
`,
			"components/modes/{{.Name}}.md": modeBody,
			"components/workflows/{{.Name}}-checklist.md": `# {{.Title}} checklist

1. Describe the change.
2. List the files it touches.
3. Verify the result.
`,
			"components/agents/{{.Name}}-helper.md": `---
name: {{.Name}}-helper
description: Helper agent for {{.Title}}
---

You assist with {{.Description}}.
`,
			"components/hooks/{{.Name}}-context.json": `{
  "id": "{{.Name}}-context",
  "name": "{{.Title}} context",
  "event": "UserPromptSubmit",
  "enabled": true,
  "command": ".zcc/hooks/scripts/{{.Name}}-context.sh",
  "timeout": 5000,
  "continueOnError": true
}
`,
			"scripts/{{.Name}}-context.sh": scriptBody,
			"README.md":                    readmeBody,
		},
	}
}

// hooksTemplate returns a template carrying only a hook.
func hooksTemplate() *Template {
	return &Template{
		Name:        "hooks",
		Description: "A hook-only pack",
		Files: map[string]string{
			"manifest.json": `{
  "name": "{{.Name}}",
  "version": "{{.Version}}",
  "description": "{{.Description}}",
  "author": "{{.Author}}",
  "category": "{{.Category}}",
  "components": {
    "hooks": [
      {"name": "{{.Name}}-context", "required": true}
    ]
  },
  "hooks": [
    {"name": "{{.Name}}-context", "enabled": true}
  ],
  "scripts": ["scripts/{{.Name}}-context.sh"]
}
`,
			"components/hooks/{{.Name}}-context.json": `{
  "id": "{{.Name}}-context",
  "name": "{{.Title}} context",
  "event": "UserPromptSubmit",
  "enabled": true,
  "command": ".zcc/hooks/scripts/{{.Name}}-context.sh",
  "timeout": 5000,
  "continueOnError": true
}
`,
			"scripts/{{.Name}}-context.sh": scriptBody,
		},
	}
}

const modeBody = `# {{.Title}}

You are working in {{.Title}} mode.

## Focus

- {{.Description}}

## Conventions

- Keep changes small and reviewable.
`

const scriptBody = `#!/bin/sh
# Reads the hook input as JSON on stdin. Anything written to stdout is
# added to the prompt. Exit 2 blocks the action.
cat >/dev/null
echo "[{{.Name}}] context"
`

const readmeBody = `# {{.Title}}

{{.Description}}

## Layout

    manifest.json
    components/{modes,workflows,agents,hooks}/
    scripts/

Validate with ` + "`zcc pack validate .`" + ` and serve locally with
` + "`zcc source serve <dir>`" + `.
`
