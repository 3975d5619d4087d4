package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zcc-dev/zcc/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	assert.Equal(t, DefaultHookTimeoutMS, cfg.Hooks.DefaultTimeout)
	assert.Equal(t, SettingsFormatJSON, cfg.Hooks.SettingsFormat)
	assert.NotNil(t, cfg.Settings)
	assert.Empty(t, cfg.DefaultMode)
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DirName, ConfigFileName), cfg.Path())
	assert.Equal(t, DefaultHookTimeoutMS, cfg.Hooks.DefaultTimeout)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, DirName), 0755))

	configJSON := `{
  "defaultMode": "architect",
  "settings": {"testCommand": "go test ./..."},
  "hooks": {"settingsFormat": "toml"}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DirName, ConfigFileName), []byte(configJSON), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "architect", cfg.DefaultMode)
	assert.Equal(t, "go test ./...", cfg.Settings["testCommand"])
	assert.Equal(t, SettingsFormatTOML, cfg.Hooks.SettingsFormat)
	// Unset values get defaults.
	assert.Equal(t, DefaultHookTimeoutMS, cfg.Hooks.DefaultTimeout)
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, DirName), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DirName, ConfigFileName), []byte("{nope"), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeConfig))
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	cfg.DefaultMode = "reviewer"
	cfg.Settings["lint"] = true
	require.NoError(t, cfg.Save())

	reloaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "reviewer", reloaded.DefaultMode)
	assert.Equal(t, true, reloaded.Settings["lint"])

	_, err = os.Stat(cfg.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestSave_NoPath(t *testing.T) {
	cfg := New()
	assert.Error(t, cfg.Save())
}

func TestValidate(t *testing.T) {
	cfg := New()
	assert.NoError(t, cfg.Validate())

	cfg.Hooks.SettingsFormat = "yaml"
	assert.Error(t, cfg.Validate())

	cfg.Hooks.SettingsFormat = SettingsFormatTOML
	cfg.Hooks.DefaultTimeout = -1
	assert.Error(t, cfg.Validate())
}

func TestMergeSettings(t *testing.T) {
	cfg := New()
	cfg.Settings["keep"] = "me"

	added, modeSet := cfg.MergeSettings(map[string]any{"framework": "react"}, "engineer")
	assert.True(t, modeSet)
	assert.Equal(t, "engineer", cfg.DefaultMode)
	assert.Equal(t, map[string]any{"framework": "react"}, added)
	assert.Equal(t, "me", cfg.Settings["keep"])

	// A second pack never replaces an existing default mode.
	_, modeSet = cfg.MergeSettings(nil, "architect")
	assert.False(t, modeSet)
	assert.Equal(t, "engineer", cfg.DefaultMode)
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, DirName), 0755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := FindProjectRoot(nested)
	require.NoError(t, err)

	want, _ := filepath.EvalSymlinks(root)
	got, _ := filepath.EvalSymlinks(found)
	assert.Equal(t, want, got)

	_, err = FindProjectRoot(t.TempDir())
	assert.True(t, errors.HasCode(err, errors.CodeNotInitialized))
}

func TestGlobalRoot_Env(t *testing.T) {
	t.Setenv(HomeEnv, "/tmp/zcc-home")
	root, err := GlobalRoot()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/zcc-home", root)
}
