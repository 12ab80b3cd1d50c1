// Package macro implements placeholder substitution for templated settings
// strings such as output directories and tool flags.
package macro

import (
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

// Resolve substitutes {name} placeholders in template against the given
// variable table. Resolution is a single left-to-right pass: substituted
// values are never re-expanded, so the table must already be flat. Doubled
// braces escape to literal braces.
//
// A placeholder with no entry in the table fails with
// domain.ErrUnresolvedPlaceholder naming the missing key.
func Resolve(template string, table map[string]string) (string, error) {
	if !strings.ContainsAny(template, "{}") {
		return template, nil
	}

	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); i++ {
		c := template[i]

		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}

			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", zerr.With(domain.ErrUnbalancedPlaceholder, "template", template)
			}

			key := template[i+1 : i+1+end]
			value, ok := table[key]
			if !ok {
				return "", zerr.With(domain.ErrUnresolvedPlaceholder, "placeholder", key)
			}
			b.WriteString(value)
			i += end + 1

		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", zerr.With(domain.ErrUnbalancedPlaceholder, "template", template)

		default:
			b.WriteByte(c)
		}
	}

	return b.String(), nil
}

// ResolveAll resolves every template in the slice, returning a new slice.
func ResolveAll(templates []string, table map[string]string) ([]string, error) {
	if len(templates) == 0 {
		return nil, nil
	}
	out := make([]string, len(templates))
	for i, t := range templates {
		resolved, err := Resolve(t, table)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

// ResolveTable resolves every value of src against base, producing a flat
// table. Keys of src may reference base entries but not each other; the
// expander uses this to flatten layered settings before contexts are built.
func ResolveTable(src, base map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(src))
	for k, v := range src {
		resolved, err := Resolve(v, base)
		if err != nil {
			return nil, zerr.With(err, "variable", k)
		}
		out[k] = resolved
	}
	return out, nil
}
