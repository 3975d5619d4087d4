package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"sort"
	"sync"

	zerrors "github.com/zcc-dev/zcc/internal/errors"
	"github.com/zcc-dev/zcc/internal/pack"
	"github.com/zcc-dev/zcc/internal/telemetry"
)

// Kind discriminates source implementations.
type Kind string

const (
	KindLocal  Kind = "local"
	KindCustom Kind = "custom"
	KindGitHub Kind = "github"
	KindHTTP   Kind = "http"
	KindS3     Kind = "s3"
)

// Kinds lists every supported source kind.
var Kinds = []Kind{KindLocal, KindCustom, KindGitHub, KindHTTP, KindS3}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Source reads pack manifests and component files from one origin.
type Source interface {
	ID() string
	Kind() Kind
	ListPacks(ctx context.Context) ([]string, error)
	HasPack(ctx context.Context, name string) bool
	LoadPack(ctx context.Context, name string) (*pack.Structure, error)
	ReadComponent(ctx context.Context, packName string, t pack.ComponentType, component string) ([]byte, error)
	ReadFile(ctx context.Context, packName, rel string) ([]byte, error)
	ClearCache()
}

// Options carries the collaborators shared by all sources.
type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *telemetry.Metrics

	// S3Client overrides the client built for s3 sources.
	S3Client S3API
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// New builds the Source described by cfg.
func New(cfg Config, opts Options) (Source, error) {
	var (
		b   backend
		err error
	)
	switch cfg.Type {
	case KindLocal:
		b = newFSBackend(builtinFS(), "packs")
	case KindCustom:
		b, err = newCustomBackend(cfg)
	case KindHTTP:
		b, err = newHTTPBackend(cfg, opts)
	case KindGitHub:
		b, err = newGitHubBackend(cfg, opts)
	case KindS3:
		b, err = newS3Backend(cfg, opts)
	default:
		return nil, zerrors.New(zerrors.CodeSourceTypeInvalid).
			WithDetailf("source %q has type %q", cfg.ID, cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return &packSource{
		id:      cfg.ID,
		kind:    cfg.Type,
		b:       b,
		logger:  opts.logger().With("source", cfg.ID),
		metrics: opts.Metrics,
		cache:   map[string]*pack.Structure{},
	}, nil
}

// backend is the per-kind file access. Paths are slash-separated and
// relative to the source root; a missing file yields fs.ErrNotExist.
type backend interface {
	read(ctx context.Context, p string) ([]byte, error)
	list(ctx context.Context) ([]string, error)
	location(p string) string
}

// packSource implements Source over a backend.
type packSource struct {
	id      string
	kind    Kind
	b       backend
	logger  *slog.Logger
	metrics *telemetry.Metrics

	mu    sync.Mutex
	cache map[string]*pack.Structure
}

func (s *packSource) ID() string { return s.id }
func (s *packSource) Kind() Kind { return s.kind }

func (s *packSource) ListPacks(ctx context.Context) ([]string, error) {
	names, err := s.b.list(ctx)
	s.record(err)
	if err != nil {
		return nil, zerrors.FromError(err, zerrors.CodeNetwork).
			WithDetailf("listing packs in source %q: %v", s.id, err)
	}
	sort.Strings(names)
	return names, nil
}

// HasPack reports whether name has a manifest in the source. Only a
// missing manifest counts as absent; read errors are left for LoadPack to
// report.
func (s *packSource) HasPack(ctx context.Context, name string) bool {
	if !pack.SafeName(name) {
		return false
	}
	s.mu.Lock()
	_, ok := s.cache[name]
	s.mu.Unlock()
	if ok {
		return true
	}
	for _, file := range []string{pack.ManifestFile, pack.ManifestYAMLFile} {
		_, err := s.b.read(ctx, path.Join(name, file))
		s.record(err)
		if err == nil {
			return true
		}
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("pack lookup failed", "pack", name, "error", err)
			return true
		}
	}
	return false
}

func (s *packSource) LoadPack(ctx context.Context, name string) (*pack.Structure, error) {
	if !pack.SafeName(name) {
		return nil, zerrors.New(zerrors.CodePackNotFound).WithDetailf("invalid pack name %q", name)
	}

	s.mu.Lock()
	if st, ok := s.cache[name]; ok {
		s.mu.Unlock()
		return st, nil
	}
	s.mu.Unlock()

	var (
		m       *pack.Manifest
		lastErr error
	)
	for _, file := range []string{pack.ManifestFile, pack.ManifestYAMLFile} {
		p := path.Join(name, file)
		data, err := s.b.read(ctx, p)
		s.record(err)
		if err != nil {
			lastErr = err
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, zerrors.FromError(err, zerrors.CodeNetwork)
		}
		m, err = pack.ParseManifest(p, data)
		if err != nil {
			return nil, err
		}
		break
	}
	if m == nil {
		return nil, zerrors.New(zerrors.CodeManifestNotFound).
			WithDetailf("pack %q not found in source %q", name, s.id).
			Wrap(lastErr)
	}
	if m.Name != name {
		s.logger.Warn("manifest name differs from directory", "dir", name, "name", m.Name)
	}

	st := &pack.Structure{
		Manifest:       m,
		Path:           s.b.location(name),
		ComponentsPath: s.b.location(path.Join(name, "components")),
		SourceID:       s.id,
	}

	s.mu.Lock()
	s.cache[name] = st
	s.mu.Unlock()
	return st, nil
}

func (s *packSource) ReadComponent(ctx context.Context, packName string, t pack.ComponentType, component string) ([]byte, error) {
	if !pack.SafeName(packName) || !pack.SafeName(component) || !t.Valid() {
		return nil, zerrors.New(zerrors.CodeValidation).
			WithDetailf("invalid component reference %s/%s/%s", packName, t, component)
	}
	data, err := s.b.read(ctx, path.Join(packName, pack.ComponentPath(t, component)))
	s.record(err)
	if err != nil {
		return nil, s.readError(packName, t.Singular()+" "+component, err)
	}
	return data, nil
}

func (s *packSource) ReadFile(ctx context.Context, packName, rel string) ([]byte, error) {
	if !pack.SafeName(packName) || !pack.SafeRelPath(rel) {
		return nil, zerrors.New(zerrors.CodeValidation).
			WithDetailf("invalid file reference %s/%s", packName, rel)
	}
	data, err := s.b.read(ctx, path.Join(packName, path.Clean(rel)))
	s.record(err)
	if err != nil {
		return nil, s.readError(packName, rel, err)
	}
	return data, nil
}

func (s *packSource) readError(packName, what string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return zerrors.New(zerrors.CodeComponentInstallError).
			WithDetailf("%s not found in pack %q (source %q)", what, packName, s.id).
			Wrap(err)
	}
	return zerrors.FromError(err, zerrors.CodeNetwork)
}

// ClearCache drops cached manifests.
func (s *packSource) ClearCache() {
	s.mu.Lock()
	s.cache = map[string]*pack.Structure{}
	s.mu.Unlock()
}

func (s *packSource) record(err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		result = "not_found"
	default:
		result = "error"
	}
	s.metrics.RecordSourceRequest(string(s.kind), result)
}

func (s *packSource) String() string {
	return fmt.Sprintf("%s (%s)", s.id, s.kind)
}
