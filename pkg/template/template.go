// Package template provides placeholder substitution for node configuration.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Resolve returns a copy of value where every "{{key}}" placeholder inside
// strings is replaced with the string form of vars[key]. Arrays and objects are
// resolved element by element, every other type is returned unchanged.
//
// A placeholder may also address a field inside a structured variable with a
// dotted path, e.g. "{{input.subject}}". Placeholders that match no variable,
// or whose path is missing, are left as-is.
func Resolve(value any, vars map[string]any) any {
	if len(vars) == 0 {
		return value
	}

	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	patterns := make([]*regexp.Regexp, len(keys))
	for i, key := range keys {
		patterns[i] = regexp.MustCompile(`\{\{` + regexp.QuoteMeta(key) + `((?:\.[^{}.]+)*)\}\}`)
	}

	r := &resolver{vars: vars, keys: keys, patterns: patterns}

	return r.resolve(value)
}

type resolver struct {
	vars     map[string]any
	keys     []string
	patterns []*regexp.Regexp
}

func (r *resolver) resolve(value any) any {
	switch v := value.(type) {
	case string:
		return r.resolveString(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.resolve(item)
		}

		return out
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.resolveString(item)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = r.resolve(item)
		}

		return out
	case map[string]string:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = r.resolveString(item)
		}

		return out
	default:
		return value
	}
}

func (r *resolver) resolveString(s string) string {
	if !strings.Contains(s, "{{") {
		return s
	}

	for i, key := range r.keys {
		pattern := r.patterns[i]
		variable := r.vars[key]

		s = pattern.ReplaceAllStringFunc(s, func(match string) string {
			groups := pattern.FindStringSubmatch(match)

			path := strings.TrimPrefix(groups[1], ".")
			if path == "" {
				return Stringify(variable)
			}

			found, ok := Lookup(variable, strings.Split(path, "."))
			if !ok {
				return match
			}

			return Stringify(found)
		})
	}

	return s
}

// Stringify returns strings unchanged and serializes every other value as JSON.
func Stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}

	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(value); err != nil {
		return fmt.Sprint(value)
	}

	return strings.TrimSuffix(buf.String(), "\n")
}
