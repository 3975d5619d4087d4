package starter

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcc-dev/zcc/internal/filereg"
	"github.com/zcc-dev/zcc/internal/hooks"
	"github.com/zcc-dev/zcc/internal/installer"
	"github.com/zcc-dev/zcc/internal/pack"
	"github.com/zcc-dev/zcc/internal/registry"
	"github.com/zcc-dev/zcc/internal/source"
	"github.com/zcc-dev/zcc/internal/workspace"
)

// fakeInstaller records install calls. failures maps a pack to the number of
// attempts that fail before one succeeds; a negative count always fails.
type fakeInstaller struct {
	mu        sync.Mutex
	calls     []string
	failures  map[string]int
	panics    map[string]bool
	installed map[string]*pack.Manifest
}

func newFake() *fakeInstaller {
	return &fakeInstaller{
		failures:  map[string]int{},
		panics:    map[string]bool{},
		installed: map[string]*pack.Manifest{},
	}
}

func (f *fakeInstaller) InstallPack(_ context.Context, st *pack.Structure, _ source.Source, _ installer.Options) *pack.InstallationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := st.Manifest.Name
	f.calls = append(f.calls, name)
	if f.panics[name] {
		panic("boom")
	}
	if n := f.failures[name]; n != 0 {
		if n > 0 {
			f.failures[name] = n - 1
		}
		return pack.Failure(name, "disk full")
	}
	f.installed[name] = st.Manifest
	res := pack.NewResult(name)
	res.Success = true
	return res
}

func (f *fakeInstaller) Uninstall(_ context.Context, name string) *pack.InstallationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.installed, name)
	res := pack.NewResult(name)
	res.Success = true
	return res
}

func (f *fakeInstaller) Installed(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.installed[name]
	return ok
}

func (f *fakeInstaller) ListInstalled() ([]installer.InstalledInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []installer.InstalledInfo
	for name, m := range f.installed {
		out = append(out, installer.InstalledInfo{Name: name, Version: m.Version, Manifest: m})
	}
	return out, nil
}

type def struct {
	version string
	deps    []string
}

func newRegistry(t *testing.T, defs map[string]def) *registry.Registry {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, d := range defs {
		v := d.version
		if v == "" {
			v = "1.0.0"
		}
		data, err := json.Marshal(pack.Manifest{
			Name: name, Version: v, Description: name, Author: "test", Dependencies: d.deps,
		})
		require.NoError(t, err)
		fsys[name+"/manifest.json"] = &fstest.MapFile{Data: data}
	}
	return registry.New(nil, source.NewFS("mem", fsys, source.Options{}))
}

var chain = map[string]def{
	"a": {deps: []string{"b"}},
	"b": {deps: []string{"c"}},
	"c": {},
}

func TestInstallPack_DependenciesFirst(t *testing.T) {
	fake := newFake()
	m := New(newRegistry(t, chain), fake, nil, nil)

	var seen []string
	res := m.InstallPack(context.Background(), "a", Options{
		OnResult: func(r *pack.InstallationResult) { seen = append(seen, r.Pack) },
	})

	require.True(t, res.Success, "%v", res.Errors)
	assert.Equal(t, "a", res.Pack)
	assert.Equal(t, []string{"c", "b", "a"}, fake.calls)
	assert.Equal(t, []string{"c", "b", "a"}, seen)
}

func TestInstallPack_SkipsInstalledDependencies(t *testing.T) {
	fake := newFake()
	fake.installed["c"] = &pack.Manifest{Name: "c", Version: "1.0.0"}
	m := New(newRegistry(t, chain), fake, nil, nil)

	res := m.InstallPack(context.Background(), "a", Options{})
	require.True(t, res.Success)
	assert.Equal(t, []string{"b", "a"}, fake.calls)
}

func TestInstallPack_MergesValidatorWarnings(t *testing.T) {
	fake := newFake()
	m := New(newRegistry(t, chain), fake, nil, nil)

	first := m.InstallPack(context.Background(), "c", Options{})
	require.True(t, first.Success)
	assert.Equal(t, []string{"pack has no components and no dependencies"}, first.Warnings)

	first.Warnings[0] = "changed"
	delete(fake.installed, "c")
	second := m.InstallPack(context.Background(), "c", Options{})
	assert.Equal(t, []string{"pack has no components and no dependencies"}, second.Warnings)
}

func TestInstallPack_Diamond(t *testing.T) {
	fake := newFake()
	m := New(newRegistry(t, map[string]def{
		"app":   {deps: []string{"left", "right"}},
		"left":  {deps: []string{"base"}},
		"right": {deps: []string{"base"}},
		"base":  {},
	}), fake, nil, nil)

	res := m.InstallPack(context.Background(), "app", Options{})
	require.True(t, res.Success)
	assert.Equal(t, []string{"base", "left", "right", "app"}, fake.calls)
}

func TestInstallPack_RootExhaustsRetries(t *testing.T) {
	fake := newFake()
	fake.failures["c"] = -1
	m := New(newRegistry(t, chain), fake, nil, nil)

	res := m.InstallPack(context.Background(), "c", Options{})
	assert.False(t, res.Success)
	assert.Equal(t, "c", res.Pack)
	assert.Equal(t, []string{"c", "c", "c"}, fake.calls)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "failed to install pack c after 3 attempts")
	assert.Contains(t, res.Errors[0], "disk full")
}

func TestInstallPack_TransientFailure(t *testing.T) {
	fake := newFake()
	fake.failures["b"] = 2
	m := New(newRegistry(t, chain), fake, nil, nil)

	res := m.InstallPack(context.Background(), "a", Options{})
	require.True(t, res.Success, "%v", res.Errors)
	assert.Equal(t, []string{"c", "b", "b", "b", "a"}, fake.calls)
}

func TestInstallPack_DependencyFailure(t *testing.T) {
	fake := newFake()
	fake.failures["c"] = -1
	m := New(newRegistry(t, chain), fake, nil, nil)

	res := m.InstallPack(context.Background(), "a", Options{})
	assert.False(t, res.Success)
	assert.Equal(t, []string{"c", "c", "c"}, fake.calls)
	assert.Contains(t, strings.Join(res.Errors, "\n"), "dependency c failed")
	assert.False(t, fake.Installed("a"))
}

func TestInstallPack_Panic(t *testing.T) {
	fake := newFake()
	fake.panics["c"] = true
	m := New(newRegistry(t, chain), fake, nil, nil)

	res := m.InstallPack(context.Background(), "c", Options{})
	assert.False(t, res.Success)
	assert.Len(t, fake.calls, MaxRetries)
	assert.Contains(t, res.Errors[0], "panic while installing c")
}

func TestInstallPack_UnresolvableRoot(t *testing.T) {
	tests := []struct {
		name string
		defs map[string]def
		want string
	}{
		{"missing", map[string]def{"a": {deps: []string{"ghost"}}}, "missing dependency: ghost"},
		{"circular", map[string]def{"a": {deps: []string{"b"}}, "b": {deps: []string{"a"}}}, "circular dependency: a -> b -> a"},
		{"incompatible", map[string]def{"a": {deps: []string{"b@^2.0.0"}}, "b": {}}, "incompatible dependency"},
		{"root not found", map[string]def{}, "missing dependency: a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake()
			m := New(newRegistry(t, tt.defs), fake, nil, nil)

			res := m.InstallPack(context.Background(), "a", Options{})
			assert.False(t, res.Success)
			assert.Empty(t, fake.calls)
			assert.Contains(t, strings.Join(res.Errors, "\n"), tt.want)
		})
	}
}

func TestInstallPack_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fake := newFake()
	m := New(newRegistry(t, chain), fake, nil, nil)

	res := m.InstallPack(ctx, "a", Options{})
	assert.False(t, res.Success)
	assert.Empty(t, fake.calls)
}

func TestUninstallPack(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	m := New(newRegistry(t, chain), fake, nil, nil)
	require.True(t, m.InstallPack(ctx, "b", Options{}).Success)

	res := m.UninstallPack(ctx, "c", false)
	assert.False(t, res.Success)
	assert.Contains(t, res.Errors[0], "c is required by b")
	assert.True(t, fake.Installed("c"))

	res = m.UninstallPack(ctx, "c", true)
	assert.True(t, res.Success)
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "pack b depends on c")
	assert.False(t, fake.Installed("c"))

	res = m.UninstallPack(ctx, "c", false)
	assert.False(t, res.Success)
	assert.Contains(t, res.Errors[0], "not installed")
}

func TestOutdated(t *testing.T) {
	fake := newFake()
	fake.installed["a"] = &pack.Manifest{Name: "a", Version: "1.0.0"}
	fake.installed["b"] = &pack.Manifest{Name: "b", Version: "2.0.0"}
	fake.installed["gone"] = &pack.Manifest{Name: "gone", Version: "1.0.0"}
	m := New(newRegistry(t, map[string]def{
		"a": {version: "1.2.0"},
		"b": {version: "2.0.0"},
	}), fake, nil, nil)

	updates, err := m.Outdated(context.Background())
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, Update{Name: "a", Installed: "1.0.0", Available: "1.2.0", Source: "mem"}, updates[0])
}

func TestInfo(t *testing.T) {
	fake := newFake()
	fake.installed["b"] = &pack.Manifest{Name: "b", Version: "0.9.0"}
	m := New(newRegistry(t, chain), fake, nil, nil)

	info, err := m.Info(context.Background(), "b", "")
	require.NoError(t, err)
	assert.Equal(t, "mem", info.Source)
	assert.True(t, info.Installed)
	assert.Equal(t, "0.9.0", info.InstalledVersion)
	assert.Equal(t, []string{"c"}, info.Dependencies.Resolved)
	assert.True(t, info.Validation.Valid)
}

func newInstaller(t *testing.T) *installer.Installer {
	t.Helper()
	ws := workspace.New(t.TempDir(), workspace.ScopeProject)
	return installer.New(installer.Config{
		Workspace: ws,
		Files:     filereg.Open(ws.FileRegistryPath(), ws.Root),
		Hooks: hooks.NewManager(hooks.ManagerConfig{
			Root:           ws.Root,
			DefinitionsDir: ws.HookDefinitionsDir(),
			ScriptsDir:     ws.HookScriptsDir(),
		}),
	})
}

func TestInstallPack_PartialDependencyInstall(t *testing.T) {
	ctx := context.Background()
	inst := newInstaller(t)
	fsys := fstest.MapFS{
		"dep/manifest.json": {Data: []byte(`{"name":"dep","version":"1.0.0","description":"d","author":"a",
			"components":{"modes":[{"name":"ok","required":true},{"name":"gone","required":true}]}}`)},
		"dep/components/modes/ok.md": {Data: []byte("# ok")},
		"app/manifest.json": {Data: []byte(`{"name":"app","version":"1.0.0","description":"d","author":"a",
			"dependencies":["dep"]}`)},
	}
	m := New(registry.New(nil, source.NewFS("mem", fsys, source.Options{})), inst, nil, nil)

	var attempts []string
	res := m.InstallPack(ctx, "app", Options{
		OnResult: func(r *pack.InstallationResult) { attempts = append(attempts, r.Pack) },
	})
	assert.False(t, res.Success)
	assert.Contains(t, strings.Join(res.Errors, "\n"), "dependency dep failed")
	assert.Equal(t, []string{"dep", "dep", "dep"}, attempts)
	assert.False(t, inst.Installed("dep"))
	assert.False(t, inst.Installed("app"))

	res = m.InstallPack(ctx, "app", Options{})
	assert.False(t, res.Success, "a failed dependency is not treated as installed")
}

func TestInstallPack_LocalPacks(t *testing.T) {
	ctx := context.Background()
	inst := newInstaller(t)
	local, err := source.New(source.LocalConfig(), source.Options{})
	require.NoError(t, err)
	m := New(registry.New(nil, local), inst, pack.NewValidator("1.0.0"), nil)

	res := m.InstallPack(ctx, "frontend", Options{})
	require.True(t, res.Success, "%v", res.Errors)
	assert.True(t, inst.Installed("essentials"))
	assert.True(t, inst.Installed("frontend"))

	res = m.UninstallPack(ctx, "essentials", false)
	assert.False(t, res.Success)

	require.True(t, m.UninstallPack(ctx, "frontend", false).Success)
	require.True(t, m.UninstallPack(ctx, "essentials", false).Success)
	list, err := m.ListInstalled()
	require.NoError(t, err)
	assert.Empty(t, list)
}
