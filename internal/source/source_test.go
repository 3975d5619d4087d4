package source

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zerrors "github.com/zcc-dev/zcc/internal/errors"
	"github.com/zcc-dev/zcc/internal/pack"
)

func init() {
	retryBackoff = time.Millisecond
}

const testManifest = `{"name":"web","version":"1.0.0","description":"d","author":"a",
	"components":{"modes":[{"name":"ui","required":true}]}}`

func TestLocalSource(t *testing.T) {
	ctx := context.Background()
	s, err := New(LocalConfig(), Options{})
	require.NoError(t, err)

	names, err := s.ListPacks(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "essentials")
	assert.Contains(t, names, "frontend")

	assert.True(t, s.HasPack(ctx, "essentials"))
	assert.False(t, s.HasPack(ctx, "nope"))
	assert.False(t, s.HasPack(ctx, "../essentials"))

	st, err := s.LoadPack(ctx, "essentials")
	require.NoError(t, err)
	assert.Equal(t, "local", st.SourceID)
	assert.NotEmpty(t, st.Manifest.Components.Modes)

	data, err := s.ReadComponent(ctx, "essentials", pack.ComponentModes, "engineer")
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Engineer")

	data, err = s.ReadFile(ctx, "essentials", "scripts/git-context.sh")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("#!/bin/sh")))

	_, err = s.ReadFile(ctx, "essentials", "../frontend/manifest.json")
	assert.True(t, zerrors.HasCode(err, zerrors.CodeValidation))
}

func TestBuiltinPacksValidate(t *testing.T) {
	ctx := context.Background()
	s, err := New(LocalConfig(), Options{})
	require.NoError(t, err)
	names, err := s.ListPacks(ctx)
	require.NoError(t, err)

	v := pack.NewValidator("")
	for _, name := range names {
		st, err := s.LoadPack(ctx, name)
		require.NoError(t, err, name)
		r := v.Validate(st.Manifest)
		assert.True(t, r.Valid, "%s: %v", name, r.Errors)
		for _, typ := range pack.ComponentTypes {
			for _, c := range st.Manifest.Components.Of(typ) {
				_, err := s.ReadComponent(ctx, name, typ, c.Name)
				assert.NoError(t, err, "%s/%s/%s", name, typ, c.Name)
			}
		}
	}
}

func TestCustomSource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "web", "components", "modes"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "web", "manifest.json"), []byte(testManifest), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "web", "components", "modes", "ui.md"), []byte("# UI"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "not-a-pack"), 0755))

	s, err := New(Config{ID: "mine", Type: KindCustom, Config: map[string]any{"path": dir}}, Options{})
	require.NoError(t, err)

	names, err := s.ListPacks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, names)

	st, err := s.LoadPack(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "web"), st.Path)

	_, err = New(Config{ID: "gone", Type: KindCustom, Config: map[string]any{"path": filepath.Join(dir, "missing")}}, Options{})
	assert.True(t, zerrors.HasCode(err, zerrors.CodeSourceNotFound))
}

func newPackServer(t *testing.T, failures int32) (*httptest.Server, *int32) {
	var manifestHits int32
	r := chi.NewRouter()
	r.Get("/index.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"packs":[{"name":"web","version":"1.0.0"},"api"]}`)
	})
	r.Get("/{pack}/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		n := atomic.AddInt32(&manifestHits, 1)
		if n <= failures {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if chi.URLParam(r, "pack") != "web" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, testManifest)
	})
	r.Get("/{pack}/components/{type}/{file}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "file") == "ui.md" {
			_, _ = io.WriteString(w, "# UI")
			return
		}
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, &manifestHits
}

func TestHTTPSource(t *testing.T) {
	ctx := context.Background()
	srv, hits := newPackServer(t, 2)

	s, err := New(Config{ID: "remote", Type: KindHTTP, Config: map[string]any{"url": srv.URL + "/", "token": "secret"}}, Options{})
	require.NoError(t, err)

	names, err := s.ListPacks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "web"}, names)

	st, err := s.LoadPack(ctx, "web")
	require.NoError(t, err, "5xx responses are retried")
	assert.Equal(t, "web", st.Manifest.Name)
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))

	data, err := s.ReadComponent(ctx, "web", pack.ComponentModes, "ui")
	require.NoError(t, err)
	assert.Equal(t, "# UI", string(data))

	_, err = s.ReadComponent(ctx, "web", pack.ComponentModes, "other")
	assert.True(t, zerrors.HasCode(err, zerrors.CodeComponentInstallError))
}

func TestHTTPSource_NoRetryOn4xx(t *testing.T) {
	ctx := context.Background()
	srv, hits := newPackServer(t, 0)

	s, err := New(Config{ID: "remote", Type: KindHTTP, Config: map[string]any{"url": srv.URL, "token": "wrong"}}, Options{})
	require.NoError(t, err)

	_, err = s.LoadPack(ctx, "web")
	require.Error(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(hits), "401 is answered before the handler counts")
	assert.True(t, zerrors.HasCode(err, zerrors.CodeNetwork))
	// Only a missing manifest means absent; the auth failure is left to LoadPack.
	assert.True(t, s.HasPack(ctx, "web"))

	s, err = New(Config{ID: "remote2", Type: KindHTTP, Config: map[string]any{"url": srv.URL, "token": "secret"}}, Options{})
	require.NoError(t, err)
	assert.False(t, s.HasPack(ctx, "api"))
	// manifest.json then manifest.yaml, both 404, neither retried
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestHTTPSource_InvalidURL(t *testing.T) {
	_, err := New(Config{ID: "x", Type: KindHTTP, Config: map[string]any{"url": "ftp://host"}}, Options{})
	assert.True(t, zerrors.HasCode(err, zerrors.CodeValidation))
}

func TestGitHubSource(t *testing.T) {
	ctx := context.Background()
	r := chi.NewRouter()
	r.Get("/repos/acme/packs/contents/packs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dev", r.URL.Query().Get("ref"))
		assert.Equal(t, "Bearer gh", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"name":"web","type":"dir"},{"name":"README.md","type":"file"}]`)
	})
	r.Get("/acme/packs/dev/packs/web/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, testManifest)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	s, err := New(Config{ID: "gh", Type: KindGitHub, Config: map[string]any{
		"owner": "acme", "repo": "packs", "branch": "dev", "token": "gh",
		"apiUrl": srv.URL, "rawUrl": srv.URL,
	}}, Options{})
	require.NoError(t, err)

	names, err := s.ListPacks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, names)
	assert.True(t, s.HasPack(ctx, "web"))
}

type fakeS3 struct {
	objects map[string]string
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(in.Prefix)
	seen := map[string]bool{}
	out := &s3.ListObjectsV2Output{}
	for key := range f.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			cp := prefix + rest[:i+1]
			if !seen[cp] {
				seen[cp] = true
				out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(cp)})
			}
		}
	}
	return out, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Source(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string]string{
		"team/web/manifest.json":          testManifest,
		"team/web/components/modes/ui.md": "# UI",
		"team/api/manifest.yaml":          "name: api\nversion: 0.2.0\n",
		"other/ignored/manifest.json":     "{}",
	}}

	s, err := New(Config{ID: "bucket", Type: KindS3, Config: map[string]any{"bucket": "packs", "prefix": "/team/"}}, Options{S3Client: fake})
	require.NoError(t, err)

	names, err := s.ListPacks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "web"}, names)

	st, err := s.LoadPack(ctx, "api")
	require.NoError(t, err)
	assert.Equal(t, "0.2.0", st.Manifest.Version)
	assert.Equal(t, "s3://packs/team/api", st.Path)

	data, err := s.ReadComponent(ctx, "web", pack.ComponentModes, "ui")
	require.NoError(t, err)
	assert.Equal(t, "# UI", string(data))

	assert.False(t, s.HasPack(ctx, "missing"))
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(Config{ID: "x", Type: "ftp"}, Options{})
	assert.True(t, zerrors.HasCode(err, zerrors.CodeSourceTypeInvalid))
}
