package source

import (
	"fmt"
	"strconv"
)

// Config describes one configured pack source.
type Config struct {
	ID       string         `json:"id"`
	Type     Kind           `json:"type"`
	Enabled  bool           `json:"enabled"`
	Priority int            `json:"priority"`
	Trusted  bool           `json:"trusted"`
	Config   map[string]any `json:"config,omitempty"`
}

// String returns the config value for key as a string.
func (c Config) String(key, def string) string {
	v, ok := c.Config[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return def
		}
		return t
	default:
		return fmt.Sprint(t)
	}
}

// Int returns the config value for key as an int.
func (c Config) Int(key string, def int) int {
	v, ok := c.Config[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return def
}

// LocalConfig is the permanent built-in source entry.
func LocalConfig() Config {
	return Config{
		ID:       LocalID,
		Type:     KindLocal,
		Enabled:  true,
		Priority: 0,
		Trusted:  true,
		Config:   map[string]any{},
	}
}

// LocalID is the id of the built-in source.
const LocalID = "local"

// requiredKeys lists the config keys each kind needs.
var requiredKeys = map[Kind][]string{
	KindCustom: {"path"},
	KindGitHub: {"owner", "repo"},
	KindHTTP:   {"url"},
	KindS3:     {"bucket"},
}
