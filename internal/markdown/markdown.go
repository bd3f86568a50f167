// Package markdown renders document bodies to HTML and extracts their headings.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/dgallion1/docpage/internal/doctree"
)

// Rendered is the output of the render stage.
type Rendered struct {
	HTML     string
	Headings []doctree.Heading
}

// Renderer converts markdown to HTML with goldmark. It is stateless and safe
// for concurrent use.
type Renderer struct {
	// Extensions used when the document does not name its own.
	DefaultExtensions []string
}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render converts body to HTML. Front matter can pick goldmark extensions
// ("extensions": [...]) and enable hard wraps ("hardWraps": true).
func (r *Renderer) Render(body string, fm doctree.FrontMatter) (Rendered, error) {
	names := stringList(fm["extensions"])
	if len(names) == 0 {
		names = r.DefaultExtensions
	}
	hardWraps, _ := fm["hardWraps"].(bool)

	engine := newEngine(names, hardWraps)
	var buf bytes.Buffer
	if err := engine.Convert([]byte(body), &buf); err != nil {
		return Rendered{}, fmt.Errorf("markdown render: %w", err)
	}

	out := buf.String()
	headings, err := ExtractHeadings(out)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{HTML: out, Headings: headings}, nil
}

func newEngine(extNames []string, hardWraps bool) goldmark.Markdown {
	rendererOptions := []renderer.Option{html.WithUnsafe()}
	if hardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	return goldmark.New(
		goldmark.WithExtensions(collectExtensions(extNames)...),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOptions...),
	)
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"tables":        extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"autolink":      extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
	"typographer":   extension.Typographer,
}

// collectExtensions maps names to extenders. Unknown names are ignored and
// an empty list means GFM.
func collectExtensions(names []string) []goldmark.Extender {
	var extenders []goldmark.Extender
	seen := map[string]struct{}{}

	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, ok := seen[key]; ok {
			continue
		}
		ext, ok := extensionRegistry[key]
		if !ok {
			continue
		}
		extenders = append(extenders, ext)
		seen[key] = struct{}{}
	}
	if len(extenders) == 0 {
		return []goldmark.Extender{extension.GFM}
	}
	return extenders
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return strings.Split(t, ",")
	}
	return nil
}
