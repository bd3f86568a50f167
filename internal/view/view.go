// Package view derives what a document page shows from loader state.
package view

import (
	"html"
	"html/template"
	"strings"

	"github.com/dgallion1/docpage/internal/doctree"
	"github.com/dgallion1/docpage/internal/markdown"
)

// maxTOCLevel is the deepest heading level listed in the contents block.
const maxTOCLevel = 2

// Input is the slice of loader state the presentation depends on.
type Input struct {
	IsLoading     bool
	Errored       bool
	Title         string
	Body          string
	TOCHeadings   []doctree.Heading
	FrontMatter   doctree.FrontMatter
	HideTOC       bool
	PendingScroll string
}

// TOCEntry is one link in the contents block.
type TOCEntry struct {
	Href string        // "#<anchorId>"
	Text template.HTML // Heading inner HTML
}

// View is the page model handed to templates.
type View struct {
	Loading      bool
	Title        string
	TOC          []TOCEntry
	ShowTOC      bool
	Body         template.HTML
	FrontMatter  doctree.FrontMatter
	ScrollTarget string // Element id to scroll to, set only when it exists in Body
}

// Present is a pure function of in. While loading it returns only the
// loading flag.
func Present(in Input) View {
	if in.IsLoading {
		return View{Loading: true}
	}

	var toc []TOCEntry
	for _, h := range in.TOCHeadings {
		if h.Level > maxTOCLevel {
			continue
		}
		toc = append(toc, TOCEntry{Href: "#" + h.AnchorID, Text: template.HTML(h.Text)})
	}

	// Error messages are plain text; rendered documents are trusted HTML.
	body := template.HTML(in.Body)
	if in.Errored {
		body = template.HTML(html.EscapeString(in.Body))
	}

	v := View{
		Title:       in.Title,
		TOC:         toc,
		ShowTOC:     len(toc) > 0 && !in.HideTOC,
		Body:        body,
		FrontMatter: in.FrontMatter,
	}
	if in.PendingScroll != "" && markdown.HasAnchor(in.Body, in.PendingScroll) {
		v.ScrollTarget = strings.TrimPrefix(in.PendingScroll, "#")
	}
	return v
}
