package doctree

import (
	"fmt"
	"strconv"
	"strings"
)

// Request identifies one navigation: a document path and an optional anchor.
type Request struct {
	Path   string // Document path, e.g. "getting-started"
	Anchor string // Optional scroll target, e.g. "#install"
}

// FrontMatter is the metadata block at the top of a document.
type FrontMatter map[string]any

// Title returns the "title" key as a string, or "" when absent. Scalar
// titles such as `title: 2024` are formatted; maps and lists yield "".
func (fm FrontMatter) Title() string {
	if fm == nil {
		return ""
	}
	switch v := fm["title"].(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, map[any]any, []any:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// HideTOC reports whether the document asked for its contents block to be hidden.
func (fm FrontMatter) HideTOC() bool {
	if fm == nil {
		return false
	}
	switch v := fm["hideTOC"].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	}
	return false
}

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (fm FrontMatter) Clone() FrontMatter {
	out := make(FrontMatter, len(fm))
	for k, v := range fm {
		out[k] = v
	}
	return out
}

// Heading is one heading of a rendered document.
type Heading struct {
	Level    int    `json:"level" yaml:"level"`       // 1..6
	AnchorID string `json:"anchorId" yaml:"anchorId"` // Unique within the document
	Text     string `json:"text" yaml:"text"`         // Inline HTML, rendered as-is
}

// Document is the output of the parse and render stages.
type Document struct {
	FrontMatter FrontMatter
	Title       string
	Body        string    // Rendered HTML
	Headings    []Heading // Document order
}
