package hooks

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/zcc-dev/zcc/internal/errors"
)

const (
	// SettingsJSON is the host settings file written in json format.
	SettingsJSON = "settings.local.json"

	// SettingsTOML is the host settings file written in toml format.
	SettingsTOML = "settings.toml"
)

// RunCommand returns the command the host runs for event.
func RunCommand(binary string, event Event) string {
	if binary == "" {
		binary = "zcc"
	}
	return binary + " hook run " + string(event)
}

// isOurs reports whether a settings entry routes to zcc.
func isOurs(entry any) bool {
	m, ok := entry.(map[string]any)
	if !ok {
		return false
	}
	hooks, _ := m["hooks"].([]any)
	for _, h := range hooks {
		hm, _ := h.(map[string]any)
		cmd, _ := hm["command"].(string)
		if strings.Contains(cmd, " hook run ") {
			return true
		}
	}
	return false
}

// mergeHooks rewrites the "hooks" section of settings so that exactly the
// given events route to zcc. Entries owned by other tools are kept.
func mergeHooks(settings map[string]any, events []Event, binary string) {
	section, _ := settings["hooks"].(map[string]any)
	if section == nil {
		section = map[string]any{}
	}
	for ev, v := range section {
		list, _ := v.([]any)
		var kept []any
		for _, entry := range list {
			if !isOurs(entry) {
				kept = append(kept, entry)
			}
		}
		if len(kept) == 0 {
			delete(section, ev)
		} else {
			section[ev] = kept
		}
	}
	for _, ev := range events {
		list, _ := section[string(ev)].([]any)
		section[string(ev)] = append(list, map[string]any{
			"matcher": "",
			"hooks": []any{map[string]any{
				"type":    "command",
				"command": RunCommand(binary, ev),
			}},
		})
	}
	if len(section) == 0 {
		delete(settings, "hooks")
	} else {
		settings["hooks"] = section
	}
}

// WriteSettings updates the host settings file in claudeDir so each event
// with an enabled hook invokes "zcc hook run <event>". format is "json" or
// "toml". Keys outside the hooks section are preserved. It returns the path
// written.
func WriteSettings(claudeDir, format string, events []Event, binary string) (string, error) {
	var (
		path      string
		unmarshal func([]byte, any) error
		marshal   func(any) ([]byte, error)
	)
	switch format {
	case "", "json":
		path = filepath.Join(claudeDir, SettingsJSON)
		unmarshal = json.Unmarshal
		marshal = func(v any) ([]byte, error) {
			data, err := json.MarshalIndent(v, "", "  ")
			return append(data, '\n'), err
		}
	case "toml":
		path = filepath.Join(claudeDir, SettingsTOML)
		unmarshal = toml.Unmarshal
		marshal = toml.Marshal
	default:
		return "", errors.New(errors.CodeConfig).WithDetailf("unknown settings format %q", format)
	}

	settings := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := unmarshal(data, &settings); err != nil {
			return "", errors.New(errors.CodeConfig).WithDetailf("%s: %v", path, err)
		}
	case os.IsNotExist(err):
		if len(events) == 0 {
			return path, nil
		}
	default:
		return "", errors.New(errors.CodeConfig).Wrap(err)
	}

	mergeHooks(settings, events, binary)

	out, err := marshal(settings)
	if err != nil {
		return "", errors.New(errors.CodeConfig).Wrap(err)
	}
	if err := os.MkdirAll(claudeDir, 0755); err != nil {
		return "", errors.New(errors.CodeConfig).Wrap(err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return "", errors.New(errors.CodeConfig).Wrap(err)
	}
	return path, nil
}

// WriteSettings regenerates the host settings for the loaded hooks.
func (m *Manager) WriteSettings(claudeDir, format, binary string) (string, error) {
	return WriteSettings(claudeDir, format, m.registry.EnabledEvents(), binary)
}
