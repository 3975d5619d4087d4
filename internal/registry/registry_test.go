package registry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcc-dev/zcc/internal/errors"
	"github.com/zcc-dev/zcc/internal/pack"
	"github.com/zcc-dev/zcc/internal/source"
)

type def struct {
	version  string
	deps     []string
	category string
	tags     []string
}

func packFS(t *testing.T, defs map[string]def) fstest.MapFS {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, d := range defs {
		v := d.version
		if v == "" {
			v = "1.0.0"
		}
		m := pack.Manifest{
			Name: name, Version: v, Description: name + " pack", Author: "test",
			Category: d.category, Tags: d.tags, Dependencies: d.deps,
		}
		data, err := json.Marshal(m)
		require.NoError(t, err)
		fsys[name+"/manifest.json"] = &fstest.MapFile{Data: data}
	}
	return fsys
}

func newRegistry(t *testing.T, defs map[string]def) *Registry {
	return New(nil, source.NewFS("mem", packFS(t, defs), source.Options{}))
}

func TestResolveDependencies_Chain(t *testing.T) {
	reg := newRegistry(t, map[string]def{
		"a": {deps: []string{"b"}},
		"b": {deps: []string{"c"}},
		"c": {},
	})

	res, err := reg.ResolveDependencies(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, res.Resolved)
	assert.NotContains(t, res.Resolved, "a")
	assert.True(t, res.OK())
}

func TestResolveDependencies_Diamond(t *testing.T) {
	reg := newRegistry(t, map[string]def{
		"app":  {deps: []string{"ui", "api"}},
		"ui":   {deps: []string{"core"}},
		"api":  {deps: []string{"core"}},
		"core": {},
	})

	res, err := reg.ResolveDependencies(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "ui", "api"}, res.Resolved)
}

func TestResolveDependencies_Circular(t *testing.T) {
	reg := newRegistry(t, map[string]def{
		"a": {deps: []string{"b", "c"}},
		"b": {deps: []string{"a"}},
		"c": {},
	})

	res, err := reg.ResolveDependencies(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.Circular)
	assert.Equal(t, []string{"a -> b -> a"}, res.Cycles)
	assert.Contains(t, res.Resolved, "c", "siblings still resolve")
	assert.False(t, res.OK())
}

func TestResolveDependencies_Missing(t *testing.T) {
	reg := newRegistry(t, map[string]def{
		"a": {deps: []string{"ghost", "b"}},
		"b": {},
	})

	res, err := reg.ResolveDependencies(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, res.Missing)
	assert.Equal(t, []string{"b"}, res.Resolved)
	assert.Contains(t, res.Problems(), "missing dependency: ghost")
}

func TestResolveDependencies_Incompatible(t *testing.T) {
	reg := newRegistry(t, map[string]def{
		"a": {deps: []string{"b@^2.0.0"}},
		"b": {version: "1.4.0"},
	})

	res, err := reg.ResolveDependencies(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b@^2.0.0 (found 1.4.0)"}, res.Incompatible)
}

func TestLoadPack_PreferredAndCache(t *testing.T) {
	first := source.NewFS("first", packFS(t, map[string]def{"x": {version: "1.0.0"}}), source.Options{})
	second := source.NewFS("second", packFS(t, map[string]def{"x": {version: "2.0.0"}}), source.Options{})
	reg := New(nil, first, second)
	ctx := context.Background()

	st, err := reg.LoadPack(ctx, "x", "")
	require.NoError(t, err)
	assert.Equal(t, "first", st.SourceID)

	st, err = reg.LoadPack(ctx, "x", "second")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", st.Manifest.Version)

	again, err := reg.LoadPack(ctx, "x", "second")
	require.NoError(t, err)
	assert.Same(t, st, again)

	_, err = reg.LoadPack(ctx, "x", "third")
	assert.True(t, errors.HasCode(err, errors.CodeSourceNotFound))

	_, err = reg.LoadPack(ctx, "y", "")
	assert.True(t, errors.HasCode(err, errors.CodePackNotFound))
}

func TestResolveDependencies_InvalidManifest(t *testing.T) {
	fsys := packFS(t, map[string]def{"a": {deps: []string{"b"}}})
	fsys["b/manifest.json"] = &fstest.MapFile{Data: []byte(`{"name":"b",`)}
	reg := New(nil, source.NewFS("mem", fsys, source.Options{}))
	ctx := context.Background()

	_, err := reg.LoadPack(ctx, "b", "")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidJSON), "%v", err)

	res, err := reg.ResolveDependencies(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, res.Missing)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "b:")
	assert.False(t, res.OK())
}

func TestClearCache_ReloadsManifests(t *testing.T) {
	fsys := packFS(t, map[string]def{"x": {version: "1.0.0"}})
	reg := New(nil, source.NewFS("mem", fsys, source.Options{}))
	ctx := context.Background()

	st, err := reg.LoadPack(ctx, "x", "")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", st.Manifest.Version)

	updated := packFS(t, map[string]def{"x": {version: "2.0.0"}})
	fsys["x/manifest.json"] = updated["x/manifest.json"]

	st, err = reg.LoadPack(ctx, "x", "")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", st.Manifest.Version, "cached until cleared")

	reg.ClearCache()
	st, err = reg.LoadPack(ctx, "x", "")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", st.Manifest.Version)
}

func TestListAndSearch(t *testing.T) {
	first := source.NewFS("first", packFS(t, map[string]def{
		"react-kit": {category: "frontend", tags: []string{"react", "ui"}},
		"go-kit":    {category: "backend", tags: []string{"go"}},
	}), source.Options{})
	second := source.NewFS("second", packFS(t, map[string]def{
		"react-kit": {version: "9.0.0"},
		"docs":      {category: "general"},
	}), source.Options{})
	reg := New(nil, first, second)
	ctx := context.Background()

	all, err := reg.ListPacks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "react-kit", all[2].Name)
	assert.Equal(t, "first", all[2].SourceID)

	found, err := reg.Search(ctx, "REACT", Filter{})
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = reg.Search(ctx, "", Filter{Category: "backend"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "go-kit", found[0].Name)

	found, err = reg.Search(ctx, "kit", Filter{Tags: []string{"ui"}})
	require.NoError(t, err)
	require.Len(t, found, 1)
}

func TestDetectAndRecommend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"),
		[]byte(`{"dependencies":{"react":"^18.0.0"},"devDependencies":{"typescript":"^5"}}`), 0644))

	info := DetectProject(dir)
	assert.Equal(t, "frontend", info.Type)
	assert.Equal(t, []string{"javascript", "typescript"}, info.Languages)
	assert.Equal(t, []string{"react"}, info.Frameworks)

	reg := newRegistry(t, map[string]def{
		"react-kit": {category: "frontend", tags: []string{"react", "typescript"}},
		"go-kit":    {category: "backend", tags: []string{"go"}},
		"basics":    {category: "general"},
	})
	recs, err := reg.Recommend(context.Background(), info)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "react-kit", recs[0].Name)
	assert.Equal(t, 5, recs[0].Score)
	assert.Equal(t, "basics", recs[1].Name)
}

func TestSatisfies(t *testing.T) {
	assert.True(t, Satisfies("1.2.3", "^1.0.0"))
	assert.False(t, Satisfies("2.0.0", "^1.0.0"))
	assert.False(t, Satisfies("bogus", "^1.0.0"))
	assert.False(t, Satisfies("1.0.0", "not a constraint"))
}
