package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/zcc-dev/zcc/internal/errors"
)

const (
	// DirName is the name of the zcc state directory.
	DirName = ".zcc"

	// ConfigFileName is the name of the configuration file inside DirName.
	ConfigFileName = "config.json"

	// DefaultHookTimeoutMS is the default hook execution timeout in milliseconds.
	DefaultHookTimeoutMS = 30000

	// SettingsFormatJSON writes hook wiring to .claude/settings.local.json.
	SettingsFormatJSON = "json"

	// SettingsFormatTOML writes hook wiring to .claude/settings.toml.
	SettingsFormatTOML = "toml"

	// HomeEnv overrides the directory used for the global scope.
	HomeEnv = "ZCC_HOME"
)

// Config represents the complete .zcc/config.json configuration.
type Config struct {
	// DefaultMode is the mode the assistant starts in.
	DefaultMode string `json:"defaultMode,omitempty"`

	// Settings holds project settings merged in by installed packs.
	Settings map[string]any `json:"settings,omitempty"`

	// Hooks contains hook execution settings.
	Hooks HooksConfig `json:"hooks,omitempty"`

	// Telemetry contains metrics output settings.
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`

	// UI contains terminal output settings.
	UI UIConfig `json:"ui,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// HooksConfig contains hook execution settings.
type HooksConfig struct {
	// DefaultTimeout is the timeout in milliseconds for hooks without one.
	DefaultTimeout int `json:"defaultTimeout,omitempty"`

	// SettingsFormat selects the host settings file: "json" or "toml".
	SettingsFormat string `json:"settingsFormat,omitempty"`
}

// TelemetryConfig contains metrics settings.
type TelemetryConfig struct {
	// MetricsFile, when set, receives Prometheus text-format metrics after each command.
	MetricsFile string `json:"metricsFile,omitempty"`
}

// UIConfig contains terminal output settings.
type UIConfig struct {
	// Color enables colored output. Nil means auto.
	Color *bool `json:"color,omitempty"`

	// Verbose enables debug logging.
	Verbose bool `json:"verbose,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Settings: map[string]any{},
		Hooks: HooksConfig{
			DefaultTimeout: DefaultHookTimeoutMS,
			SettingsFormat: SettingsFormatJSON,
		},
	}
}

// Load reads configuration from the .zcc directory under dir.
// A missing file yields defaults bound to that path.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, DirName, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	cfg.configPath = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.New(errors.CodeConfig).Wrap(err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeConfig).
			WithDetail("Failed to parse " + path + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CodeConfig).Wrap(err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.New(errors.CodeConfig).Wrap(err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.New(errors.CodeConfig).Wrap(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.New(errors.CodeConfig).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Settings == nil {
		c.Settings = map[string]any{}
	}
	if c.Hooks.DefaultTimeout <= 0 {
		c.Hooks.DefaultTimeout = DefaultHookTimeoutMS
	}
	if c.Hooks.SettingsFormat == "" {
		c.Hooks.SettingsFormat = SettingsFormatJSON
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Hooks.SettingsFormat {
	case SettingsFormatJSON, SettingsFormatTOML:
	default:
		return errors.New(errors.CodeConfig).
			WithDetail("hooks.settingsFormat must be \"json\" or \"toml\", got \"" + c.Hooks.SettingsFormat + "\"")
	}
	if c.Hooks.DefaultTimeout < 0 {
		return errors.New(errors.CodeConfig).
			WithDetail("hooks.defaultTimeout must not be negative")
	}
	return nil
}

// MergeSettings shallow-merges settings into the config and returns the keys
// that were written. A "defaultMode" entry is applied only when no default
// mode is set and is reported through modeSet.
func (c *Config) MergeSettings(settings map[string]any, defaultMode string) (added map[string]any, modeSet bool) {
	if c.Settings == nil {
		c.Settings = map[string]any{}
	}
	added = map[string]any{}
	for k, v := range settings {
		c.Settings[k] = v
		added[k] = v
	}
	if defaultMode != "" && c.DefaultMode == "" {
		c.DefaultMode = defaultMode
		modeSet = true
	}
	return added, modeSet
}

// Exists checks if an initialized .zcc directory exists in dir.
func Exists(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, DirName))
	return err == nil && info.IsDir()
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing .zcc, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.CodeNotInitialized).
				WithDetail("No .zcc directory found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// GlobalRoot returns the directory used for the global scope. ZCC_HOME
// overrides the user's home directory.
func GlobalRoot() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}
	return os.UserHomeDir()
}
