package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	zerrors "github.com/zcc-dev/zcc/internal/errors"
)

const (
	defaultGitHubAPI = "https://api.github.com"
	defaultGitHubRaw = "https://raw.githubusercontent.com"
)

// githubBackend lists packs through the contents API and reads files
// from raw.githubusercontent.com.
type githubBackend struct {
	owner, repo, branch, dir string
	api, raw                 string
	f                        *fetcher
}

func newGitHubBackend(cfg Config, opts Options) (*githubBackend, error) {
	owner, repo := cfg.String("owner", ""), cfg.String("repo", "")
	if owner == "" || repo == "" {
		return nil, zerrors.New(zerrors.CodeValidation).
			WithDetailf("github source %q requires owner and repo", cfg.ID)
	}
	f := newFetcher(opts, cfg.String("token", ""), time.Duration(cfg.Int("timeout", 0))*time.Second)
	f.header["Accept"] = "application/vnd.github+json"
	return &githubBackend{
		owner:  owner,
		repo:   repo,
		branch: cfg.String("branch", "main"),
		dir:    strings.Trim(cfg.String("path", "packs"), "/"),
		api:    strings.TrimSuffix(cfg.String("apiUrl", defaultGitHubAPI), "/"),
		raw:    strings.TrimSuffix(cfg.String("rawUrl", defaultGitHubRaw), "/"),
		f:      f,
	}, nil
}

func (b *githubBackend) read(ctx context.Context, p string) ([]byte, error) {
	return b.f.get(ctx, b.location(p))
}

type contentEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (b *githubBackend) list(ctx context.Context) ([]string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		b.api, url.PathEscape(b.owner), url.PathEscape(b.repo), b.dir, url.QueryEscape(b.branch))
	data, err := b.f.get(ctx, u)
	if err != nil {
		return nil, err
	}
	var entries []contentEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, zerrors.New(zerrors.CodeInvalidJSON).WithDetailf("github contents: %v", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type == "dir" {
			names = append(names, e.Name)
		}
	}
	return names, nil
}

func (b *githubBackend) location(p string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", b.raw, b.owner, b.repo, b.branch, path.Join(b.dir, p))
}
