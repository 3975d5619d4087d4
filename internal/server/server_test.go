package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcc-dev/zcc/internal/pack"
	"github.com/zcc-dev/zcc/internal/source"
	"github.com/zcc-dev/zcc/internal/telemetry"
)

const webManifest = `{"name":"web","version":"1.2.0","description":"Web pack","author":"a",
	"components":{"modes":[{"name":"ui","required":true}]},"scripts":["scripts/setup.sh"]}`

func writePack(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"web/manifest.json":          webManifest,
		"web/components/modes/ui.md": "# UI",
		"web/scripts/setup.sh":       "#!/bin/sh\necho hi\n",
	}
	for p, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
}

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
		writePack(t, cfg.Dir)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url, token string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestRoutes(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	tests := []struct {
		path string
		code int
		body string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/web/manifest.json", http.StatusOK, `"version":"1.2.0"`},
		{"/web/components/modes/ui.md", http.StatusOK, "# UI"},
		{"/web/scripts/setup.sh", http.StatusOK, "echo hi"},
		{"/web/components/modes/missing.md", http.StatusNotFound, ""},
		{"/web/components/widgets/ui.md", http.StatusNotFound, ""},
		{"/web/components/hooks/ui.md", http.StatusNotFound, ""},
		{"/nope/manifest.json", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			code, body := get(t, ts.URL+tt.path, "")
			assert.Equal(t, tt.code, code)
			assert.Contains(t, body, tt.body)
		})
	}
}

func TestIndex(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	code, body := get(t, ts.URL+"/index.json", "")
	require.Equal(t, http.StatusOK, code)
	var idx source.Index
	require.NoError(t, json.Unmarshal([]byte(body), &idx))
	require.Len(t, idx.Packs, 1)
	assert.Equal(t, source.IndexEntry{Name: "web", Version: "1.2.0", Description: "Web pack"}, idx.Packs[0])
}

func TestToken(t *testing.T) {
	_, ts := newTestServer(t, Config{Token: "s3cret"})

	code, _ := get(t, ts.URL+"/web/manifest.json", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = get(t, ts.URL+"/web/manifest.json", "wrong")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = get(t, ts.URL+"/web/manifest.json", "s3cret")
	assert.Equal(t, http.StatusOK, code)
	code, _ = get(t, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestHTTPSourceRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, ts := newTestServer(t, Config{Token: "tok"})

	src, err := source.New(source.Config{
		ID: "team", Type: source.KindHTTP, Enabled: true,
		Config: map[string]any{"url": ts.URL, "token": "tok"},
	}, source.Options{})
	require.NoError(t, err)

	names, err := src.ListPacks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, names)

	st, err := src.LoadPack(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", st.Manifest.Version)

	data, err := src.ReadComponent(ctx, "web", pack.ComponentModes, "ui")
	require.NoError(t, err)
	assert.Equal(t, "# UI", string(data))

	data, err = src.ReadFile(ctx, "web", "scripts/setup.sh")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "#!/bin/sh"))
}

func TestMetrics(t *testing.T) {
	m := telemetry.NewMetrics(telemetry.WithRegistry(prometheus.NewRegistry()))
	_, ts := newTestServer(t, Config{Metrics: m})

	get(t, ts.URL+"/web/manifest.json", "")
	get(t, ts.URL+"/nope/manifest.json", "")

	code, body := get(t, ts.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `route="/{pack}/*"`)
	assert.Contains(t, body, `code="404"`)
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir)
	w := NewWatcher(WatcherConfig{Root: dir})
	w.Scan()

	assert.Empty(t, w.Poll())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "web", "components", "modes", "new.md"), []byte("x"), 0644))
	require.NoError(t, os.Remove(filepath.Join(dir, "web", "scripts", "setup.sh")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "web", "notes.swp"), []byte("x"), 0644))

	changes := w.Poll()
	require.Len(t, changes, 2)
	assert.Equal(t, Change{Path: "web/components/modes/new.md", Pack: "web"}, changes[0])
	assert.Equal(t, Change{Path: "web/scripts/setup.sh", Pack: "web", Removed: true}, changes[1])
	assert.Empty(t, w.Poll())
}

func TestEvents(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir)
	s, ts := newTestServer(t, Config{Dir: dir, Watch: true, PollInterval: 10 * time.Millisecond})
	s.watcher.Scan()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/events", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.Hub().ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "web", "manifest.json"), []byte(`{"name":"web"}`), 0644))
	// force a distinct mtime on coarse filesystems
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "web", "manifest.json"), future, future))
	s.watcher.Poll()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, "web", ev.Pack)
	assert.Contains(t, ev.Error, "version")
	assert.Equal(t, []string{"web/manifest.json"}, ev.Files)

	require.NoError(t, os.RemoveAll(filepath.Join(dir, "web")))
	s.watcher.Poll()
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventRemoved, ev.Type)
}
