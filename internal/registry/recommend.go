package registry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ProjectInfo describes what was detected in a project directory.
type ProjectInfo struct {
	Type       string   `json:"type"`
	Languages  []string `json:"languages"`
	Frameworks []string `json:"frameworks"`
}

// traits returns the lowercase words used for matching.
func (p ProjectInfo) traits() map[string]bool {
	t := map[string]bool{}
	if p.Type != "" {
		t[strings.ToLower(p.Type)] = true
	}
	for _, l := range p.Languages {
		t[strings.ToLower(l)] = true
	}
	for _, f := range p.Frameworks {
		t[strings.ToLower(f)] = true
	}
	return t
}

var frontendDeps = map[string]string{
	"react": "react", "vue": "vue", "svelte": "svelte", "@angular/core": "angular",
	"next": "react", "nuxt": "vue", "solid-js": "solid",
}

var backendDeps = map[string]string{
	"express": "node", "fastify": "node", "koa": "node", "@nestjs/core": "node",
}

// DetectProject inspects well-known files under dir.
func DetectProject(dir string) ProjectInfo {
	info := ProjectInfo{}
	var frontend, backend bool

	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(dir, name))
		return err == nil
	}

	if data, err := os.ReadFile(filepath.Join(dir, "package.json")); err == nil {
		info.Languages = appendUnique(info.Languages, "javascript")
		var pkg struct {
			Dependencies    map[string]string `json:"dependencies"`
			DevDependencies map[string]string `json:"devDependencies"`
		}
		if json.Unmarshal(data, &pkg) == nil {
			for _, deps := range []map[string]string{pkg.Dependencies, pkg.DevDependencies} {
				for dep := range deps {
					if fw, ok := frontendDeps[dep]; ok {
						info.Frameworks = appendUnique(info.Frameworks, fw)
						frontend = true
					}
					if fw, ok := backendDeps[dep]; ok {
						info.Frameworks = appendUnique(info.Frameworks, fw)
						backend = true
					}
					if dep == "typescript" {
						info.Languages = appendUnique(info.Languages, "typescript")
					}
				}
			}
		}
	}
	if exists("tsconfig.json") {
		info.Languages = appendUnique(info.Languages, "typescript")
	}
	if exists("go.mod") {
		info.Languages = appendUnique(info.Languages, "go")
		backend = true
	}
	if exists("requirements.txt") || exists("pyproject.toml") {
		info.Languages = appendUnique(info.Languages, "python")
		backend = true
	}
	if exists("Cargo.toml") {
		info.Languages = appendUnique(info.Languages, "rust")
		backend = true
	}

	switch {
	case frontend && backend:
		info.Type = "fullstack"
	case frontend:
		info.Type = "frontend"
	case backend:
		info.Type = "backend"
	default:
		info.Type = "general"
	}
	sort.Strings(info.Languages)
	sort.Strings(info.Frameworks)
	return info
}

func appendUnique(list []string, s string) []string {
	if contains(list, s) {
		return list
	}
	return append(list, s)
}

// Recommendation is a scored pack suggestion.
type Recommendation struct {
	Summary
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Recommend scores every available pack against the project. Category
// matches weigh 3, tag matches 1 each. Packs scoring zero are omitted.
func (r *Registry) Recommend(ctx context.Context, info ProjectInfo) ([]Recommendation, error) {
	all, err := r.ListPacks(ctx)
	if err != nil {
		return nil, err
	}
	traits := info.traits()
	if info.Type == "fullstack" {
		traits["frontend"] = true
		traits["backend"] = true
	}

	var out []Recommendation
	for _, s := range all {
		rec := Recommendation{Summary: s}
		if s.Category != "" && traits[strings.ToLower(s.Category)] {
			rec.Score += 3
			rec.Reasons = append(rec.Reasons, "matches "+s.Category+" projects")
		}
		if s.Category == "general" {
			rec.Score++
			rec.Reasons = append(rec.Reasons, "useful in any project")
		}
		for _, t := range s.Tags {
			if traits[strings.ToLower(t)] {
				rec.Score++
				rec.Reasons = append(rec.Reasons, "uses "+t)
			}
		}
		if rec.Score > 0 {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
