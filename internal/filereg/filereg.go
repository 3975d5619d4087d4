package filereg

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/zcc-dev/zcc/internal/errors"
)

// Version is the current registry file format version.
const Version = "1.0.0"

// FileInfo records who installed a file and what it looked like.
type FileInfo struct {
	Pack         string    `json:"pack"`
	OriginalPath string    `json:"originalPath"`
	Checksum     string    `json:"checksum"`
	InstalledAt  time.Time `json:"installedAt"`
	Modified     bool      `json:"modified"`
}

// PackInfo lists the files a pack installed.
type PackInfo struct {
	Version string   `json:"version"`
	Files   []string `json:"files"`
}

// Data is the persisted registry.
type Data struct {
	Version string               `json:"version"`
	Files   map[string]*FileInfo `json:"files"`
	Packs   map[string]*PackInfo `json:"packs"`
}

func newData() *Data {
	return &Data{Version: Version, Files: map[string]*FileInfo{}, Packs: map[string]*PackInfo{}}
}

// Registry tracks file ownership and drift. Keys are paths relative to the
// workspace root using forward slashes; root resolves them on disk.
type Registry struct {
	path   string
	root   string
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	data *Data
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// Open loads the registry stored at path. Files are resolved relative to
// root. Corrupt files are recovered from the backup or replaced by an empty
// registry; Open never fails because of file contents.
func Open(path, root string, opts ...Option) *Registry {
	r := &Registry{
		path:   path,
		root:   root,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Load()
	return r
}

// Load (re)reads the registry from disk.
func (r *Registry) Load() {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.read(r.path)
	if err == nil {
		r.data = data
		return
	}
	if os.IsNotExist(err) {
		r.data = newData()
		return
	}

	r.logger.Warn("file registry unreadable, trying backup", "path", r.path, "error", err)
	if data, berr := r.read(r.backupPath()); berr == nil {
		r.data = data
		if serr := r.writeLocked(); serr != nil {
			r.logger.Warn("could not rewrite restored file registry", "error", serr)
		}
		r.logger.Info("file registry restored from backup", "path", r.backupPath())
		return
	}
	r.logger.Warn("file registry backup unusable, starting empty", "path", r.path)
	r.data = newData()
}

func (r *Registry) read(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d := newData()
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, err
	}
	if d.Files == nil {
		d.Files = map[string]*FileInfo{}
	}
	if d.Packs == nil {
		d.Packs = map[string]*PackInfo{}
	}
	return d, nil
}

func (r *Registry) backupPath() string {
	return r.path + ".backup"
}

// Save persists the registry, first copying the current file to .backup.
func (r *Registry) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked()
}

func (r *Registry) saveLocked() error {
	if err := copyFile(r.path, r.backupPath()); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("could not back up file registry", "error", err)
	}
	return r.writeLocked()
}

// writeLocked replaces the registry file without touching the backup.
func (r *Registry) writeLocked() error {
	out, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return errors.New(errors.CodeConfig).Wrap(err)
	}
	out = append(out, '\n')

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return errors.New(errors.CodeConfig).Wrap(err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0644); err != nil {
		return errors.New(errors.CodeConfig).Wrap(err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return errors.New(errors.CodeConfig).Wrap(err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (r *Registry) abs(target string) string {
	if filepath.IsAbs(target) {
		return target
	}
	return filepath.Join(r.root, filepath.FromSlash(target))
}

// Checksum returns the hex sha256 of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// RegisterFile records target as owned by pack and saves.
func (r *Registry) RegisterFile(target, pack, originalPath string) error {
	sum, err := Checksum(r.abs(target))
	if err != nil {
		return errors.New(errors.CodeComponentInstallError).
			WithDetailf("cannot checksum %s: %v", target, err).Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.data.Files[target]; ok && prev.Pack != "" && prev.Pack != pack {
		r.dropFromPackLocked(prev.Pack, target)
	}
	r.data.Files[target] = &FileInfo{
		Pack:         pack,
		OriginalPath: originalPath,
		Checksum:     sum,
		InstalledAt:  r.now().UTC(),
	}
	p := r.packLocked(pack)
	if !contains(p.Files, target) {
		p.Files = append(p.Files, target)
	}
	return r.saveLocked()
}

func (r *Registry) packLocked(name string) *PackInfo {
	p, ok := r.data.Packs[name]
	if !ok {
		p = &PackInfo{Files: []string{}}
		r.data.Packs[name] = p
	}
	return p
}

func (r *Registry) dropFromPackLocked(pack, target string) {
	p, ok := r.data.Packs[pack]
	if !ok {
		return
	}
	for i, f := range p.Files {
		if f == target {
			p.Files = append(p.Files[:i], p.Files[i+1:]...)
			return
		}
	}
}

// RegisterPack records the installed version of pack and saves.
func (r *Registry) RegisterPack(pack, version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packLocked(pack).Version = version
	return r.saveLocked()
}

// IsFileModified reports whether target differs from what was installed.
// Once a file is seen modified the flag sticks. Unreadable files count as
// modified so they are never deleted automatically.
func (r *Registry) IsFileModified(target string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.data.Files[target]
	if !ok {
		return false
	}
	if info.Modified {
		return true
	}
	sum, err := Checksum(r.abs(target))
	if err == nil && sum == info.Checksum {
		return false
	}
	info.Modified = true
	if err := r.saveLocked(); err != nil {
		r.logger.Warn("could not persist modified flag", "file", target, "error", err)
	}
	return true
}

// CheckConflicts returns the paths in files owned by a pack other than pack.
func (r *Registry) CheckConflicts(files []string, pack string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var conflicts []string
	for _, f := range files {
		if info, ok := r.data.Files[f]; ok && info.Pack != "" && info.Pack != pack {
			conflicts = append(conflicts, f)
		}
	}
	return conflicts
}

// Owner returns the pack owning target, or "".
func (r *Registry) Owner(target string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.data.Files[target]; ok {
		return info.Pack
	}
	return ""
}

// File returns a copy of the entry for target.
func (r *Registry) File(target string) (FileInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.data.Files[target]
	if !ok {
		return FileInfo{}, false
	}
	return *info, true
}

// UnregisterFile forgets target and saves.
func (r *Registry) UnregisterFile(target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.data.Files[target]; ok {
		r.dropFromPackLocked(info.Pack, target)
		delete(r.data.Files, target)
	}
	return r.saveLocked()
}

// UnregisterPack removes pack. Files still listed for it are kept but lose
// their owner; these are the modified files left behind by an uninstall.
func (r *Registry) UnregisterPack(pack string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data.Packs[pack]
	if !ok {
		return nil
	}
	for _, f := range p.Files {
		if info, ok := r.data.Files[f]; ok && info.Pack == pack {
			info.Pack = ""
		}
	}
	delete(r.data.Packs, pack)
	return r.saveLocked()
}

// PackFiles returns the files owned by pack.
func (r *Registry) PackFiles(pack string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data.Packs[pack]
	if !ok {
		return nil
	}
	out := make([]string, len(p.Files))
	copy(out, p.Files)
	return out
}

// PackVersion returns the recorded version of pack.
func (r *Registry) PackVersion(pack string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data.Packs[pack]
	if !ok {
		return "", false
	}
	return p.Version, true
}

// Packs returns the registered pack names, sorted.
func (r *Registry) Packs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.data.Packs))
	for n := range r.data.Packs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Drift describes one tracked file that no longer matches its checksum.
type Drift struct {
	Path    string `json:"path"`
	Pack    string `json:"pack"`
	Missing bool   `json:"missing"`
}

// Verify checks every tracked file and returns those that drifted. Newly
// detected drift is persisted.
func (r *Registry) Verify() []Drift {
	r.mu.Lock()
	paths := make([]string, 0, len(r.data.Files))
	for p := range r.data.Files {
		paths = append(paths, p)
	}
	r.mu.Unlock()
	sort.Strings(paths)

	var out []Drift
	for _, p := range paths {
		if !r.IsFileModified(p) {
			continue
		}
		_, err := os.Stat(r.abs(p))
		out = append(out, Drift{Path: p, Pack: r.Owner(p), Missing: os.IsNotExist(err)})
	}
	return out
}

// Snapshot returns a deep copy of the registry data.
func (r *Registry) Snapshot() *Data {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := newData()
	d.Version = r.data.Version
	for k, v := range r.data.Files {
		c := *v
		d.Files[k] = &c
	}
	for k, v := range r.data.Packs {
		d.Packs[k] = &PackInfo{Version: v.Version, Files: append([]string{}, v.Files...)}
	}
	return d
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
