// Package frontmatter splits document metadata from the markdown body.
package frontmatter

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/adrg/frontmatter"

	"github.com/dgallion1/docpage/internal/doctree"
)

// Parse extracts the front matter block (YAML "---", TOML "+++" or JSON)
// and returns it with the remaining markdown. Input without a block yields
// empty metadata and the whole input as body.
func Parse(raw []byte) (doctree.FrontMatter, string, error) {
	meta := map[string]any{}
	body, err := frontmatter.Parse(bytes.NewReader(raw), &meta)
	if err != nil {
		return nil, "", fmt.Errorf("parse frontmatter: %w", err)
	}
	return normalize(meta), string(body), nil
}

var titleLineRe = regexp.MustCompile(`(?m)^# (.*?)$`)

// StripTitle removes the first level-1 heading line from body. Its text
// becomes the title unless fm already carries a non-empty one of any
// scalar type. The
// returned metadata is a copy; fm is never modified.
func StripTitle(fm doctree.FrontMatter, body string) (doctree.FrontMatter, string) {
	out := fm.Clone()
	loc := titleLineRe.FindStringSubmatchIndex(body)
	if loc == nil {
		return out, body
	}
	title := body[loc[2]:loc[3]]
	body = body[:loc[0]] + body[loc[1]:]
	if out.Title() == "" {
		out["title"] = title
	}
	return out, body
}

// normalize converts nested map[interface{}]interface{} values produced by
// the YAML decoder into map[string]any so the metadata encodes as JSON.
func normalize(m map[string]any) doctree.FrontMatter {
	out := make(doctree.FrontMatter, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(normalize(t))
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalizeValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = normalizeValue(val)
		}
		return s
	default:
		return v
	}
}
