package source

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/url"
	"strings"
	"time"

	zerrors "github.com/zcc-dev/zcc/internal/errors"
)

// IndexFile lists the packs served by a remote source.
const IndexFile = "index.json"

// httpBackend speaks the remote pack protocol:
//
//	GET <base>/index.json
//	GET <base>/<pack>/manifest.json
//	GET <base>/<pack>/components/<type>/<name>.{md|json}
type httpBackend struct {
	base string
	f    *fetcher
}

func newHTTPBackend(cfg Config, opts Options) (*httpBackend, error) {
	raw := cfg.String("url", "")
	u, err := url.Parse(raw)
	if raw == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, zerrors.New(zerrors.CodeValidation).
			WithDetailf("http source %q requires an http(s) url, got %q", cfg.ID, raw)
	}
	timeout := time.Duration(cfg.Int("timeout", 0)) * time.Second
	return &httpBackend{
		base: strings.TrimSuffix(raw, "/"),
		f:    newFetcher(opts, cfg.String("token", ""), timeout),
	}, nil
}

func (b *httpBackend) read(ctx context.Context, p string) ([]byte, error) {
	return b.f.get(ctx, b.location(p))
}

func (b *httpBackend) list(ctx context.Context) ([]string, error) {
	data, err := b.f.get(ctx, b.location(IndexFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return parseIndex(data)
}

func (b *httpBackend) location(p string) string {
	return b.base + "/" + p
}

// Index is the document served at index.json. Sources may also serve a
// bare array of names.
type Index struct {
	Packs []IndexEntry `json:"packs"`
}

// IndexEntry describes one pack in an index.
type IndexEntry struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
}

// UnmarshalJSON accepts either a name string or an object.
func (e *IndexEntry) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		e.Name = name
		return nil
	}
	type plain IndexEntry
	return json.Unmarshal(data, (*plain)(e))
}

func parseIndex(data []byte) ([]string, error) {
	var entries []IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		var idx Index
		if err := json.Unmarshal(data, &idx); err != nil {
			return nil, zerrors.New(zerrors.CodeInvalidJSON).WithDetailf("index.json: %v", err)
		}
		entries = idx.Packs
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name != "" {
			names = append(names, e.Name)
		}
	}
	return names, nil
}
