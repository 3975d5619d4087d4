package pack

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zcc-dev/zcc/internal/errors"
)

const (
	// ManifestFile is the canonical manifest name inside a pack directory.
	ManifestFile = "manifest.json"

	// ManifestYAMLFile is accepted when ManifestFile is absent.
	ManifestYAMLFile = "manifest.yaml"
)

// ParseManifest decodes a manifest. YAML is used when name ends in .yaml or
// .yml, JSON otherwise.
func ParseManifest(name string, data []byte) (*Manifest, error) {
	var m Manifest
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, errors.New(errors.CodeInvalidManifest).
				WithDetailf("%s: %v", name, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&m); err != nil {
			return nil, errors.New(errors.CodeInvalidJSON).
				WithDetailf("%s: %v", name, err)
		}
	}
	return &m, nil
}

// MarshalManifest encodes a manifest as indented JSON.
func MarshalManifest(m *Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ReadManifestFS reads the manifest of the pack rooted at dir in fsys,
// preferring manifest.json over manifest.yaml.
func ReadManifestFS(fsys fs.FS, dir string) (*Manifest, string, error) {
	for _, name := range []string{ManifestFile, ManifestYAMLFile} {
		p := path.Join(dir, name)
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			continue
		}
		m, err := ParseManifest(p, data)
		if err != nil {
			return nil, p, err
		}
		return m, p, nil
	}
	return nil, "", errors.New(errors.CodeManifestNotFound).
		WithDetailf("no %s in %s", ManifestFile, dir)
}
