package hooks

import (
	"path"
	"regexp"
	"strings"
)

// Matches reports whether in satisfies the matcher. A nil matcher matches
// everything.
func (m *Matcher) Matches(in Input) bool {
	if m == nil || m.Pattern == "" {
		return true
	}
	switch m.Type {
	case MatchKeyword:
		text := strings.ToLower(in.Prompt + " " + in.Message)
		for _, kw := range splitList(m.Pattern) {
			if strings.Contains(text, strings.ToLower(kw)) {
				return true
			}
		}
		return false
	case MatchRegex:
		re, err := regexp.Compile(m.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(in.Prompt) || (in.ToolName != "" && re.MatchString(in.ToolName))
	case MatchTool:
		for _, t := range splitList(m.Pattern) {
			if t == "*" || strings.EqualFold(t, in.ToolName) {
				return true
			}
		}
		return false
	case MatchGlob:
		file, _ := in.ToolInput["file_path"].(string)
		if file == "" {
			file, _ = in.ToolInput["path"].(string)
		}
		if file == "" {
			return false
		}
		for _, g := range splitList(m.Pattern) {
			if ok, _ := path.Match(g, file); ok {
				return true
			}
			if ok, _ := path.Match(g, path.Base(file)); ok {
				return true
			}
		}
		return false
	}
	return false
}

// Validate checks the matcher type and pattern.
func (m *Matcher) Validate() error {
	if m == nil {
		return nil
	}
	switch m.Type {
	case MatchKeyword, MatchTool, MatchGlob:
		return nil
	case MatchRegex:
		_, err := regexp.Compile(m.Pattern)
		return err
	}
	return &matcherError{m.Type}
}

type matcherError struct{ t MatcherType }

func (e *matcherError) Error() string {
	return "unknown matcher type " + string(e.t) + " (want keyword, regex, tool or glob)"
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
