package source

import (
	"context"
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	zerrors "github.com/zcc-dev/zcc/internal/errors"
	"github.com/zcc-dev/zcc/internal/pack"
)

//go:embed all:packs
var builtinPacks embed.FS

func builtinFS() fs.FS {
	return builtinPacks
}

// BuiltinFS returns the packs shipped with the binary, rooted at the pack
// directories.
func BuiltinFS() fs.FS {
	sub, err := fs.Sub(builtinPacks, "packs")
	if err != nil {
		panic(err)
	}
	return sub
}

// fsBackend reads packs from an fs.FS. It serves both the embedded
// built-in packs and custom directories.
type fsBackend struct {
	fsys fs.FS
	root string
	// dir is the on-disk location for display; empty for embedded packs.
	dir string
}

func newFSBackend(fsys fs.FS, root string) *fsBackend {
	return &fsBackend{fsys: fsys, root: root}
}

func newCustomBackend(cfg Config) (*fsBackend, error) {
	dir := cfg.String("path", "")
	if dir == "" {
		return nil, zerrors.New(zerrors.CodeValidation).
			WithDetailf("custom source %q requires a path", cfg.ID)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, zerrors.New(zerrors.CodeValidation).Wrap(err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, zerrors.New(zerrors.CodeSourceNotFound).
			WithDetailf("custom source %q: %s is not a directory", cfg.ID, abs)
	}
	return &fsBackend{fsys: os.DirFS(abs), root: ".", dir: abs}, nil
}

func (b *fsBackend) read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadFile(b.fsys, path.Join(b.root, p))
}

func (b *fsBackend) list(ctx context.Context) ([]string, error) {
	entries, err := fs.ReadDir(b.fsys, b.root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if hasManifest(b.fsys, path.Join(b.root, e.Name())) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (b *fsBackend) location(p string) string {
	if b.dir == "" {
		return "builtin:" + p
	}
	return filepath.Join(b.dir, filepath.FromSlash(p))
}

func hasManifest(fsys fs.FS, dir string) bool {
	for _, name := range []string{"manifest.json", "manifest.yaml"} {
		if _, err := fs.Stat(fsys, path.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// NewFS returns a custom source reading packs from the root of fsys.
func NewFS(id string, fsys fs.FS, opts Options) Source {
	return &packSource{
		id:      id,
		kind:    KindCustom,
		b:       &fsBackend{fsys: fsys, root: "."},
		logger:  opts.logger().With("source", id),
		metrics: opts.Metrics,
		cache:   map[string]*pack.Structure{},
	}
}
