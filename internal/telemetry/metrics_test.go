package telemetry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics()

	m.RecordPackInstall("essentials", true, 50*time.Millisecond)
	m.RecordPackInstall("essentials", false, time.Millisecond)
	m.RecordComponent("modes", "installed")
	m.RecordHook("UserPromptSubmit", "blocked", time.Millisecond)
	m.RecordSourceRequest("http", "ok")
	m.RecordServed("manifest", 200)
	m.RecordDrift()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.packInstalls.WithLabelValues("essentials", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.packInstalls.WithLabelValues("essentials", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.componentWrites.WithLabelValues("modes", "installed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hookExecutions.WithLabelValues("UserPromptSubmit", "blocked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.servedRequests.WithLabelValues("manifest", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.registryDriftSeen))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordPackInstall("x", true, 0)
	m.RecordHook("Stop", "success", 0)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile("/nonexistent/x.prom"))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics(WithNamespace("zcctest"))
	m.RecordPackUninstall("essentials", true)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "zcctest_pack_uninstalls_total"))
}

func TestItoa(t *testing.T) {
	assert.Equal(t, "0", itoa(0))
	assert.Equal(t, "404", itoa(404))
	assert.Equal(t, "-12", itoa(-12))
}

func TestSpanHelpers(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test", "pack", "essentials")
	require.NotNil(t, ctx)
	EndSpan(span, errors.New("boom"))

	_, span = StartSpan(context.Background(), "ok")
	EndSpan(span, nil)
}
