package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/url"

	"github.com/dgallion1/docpage/internal/doctree"
)

// FooterFunc renders the region below the document body.
type FooterFunc func(fm doctree.FrontMatter) template.HTML

// Page renders a View as a complete HTML document.
type Page struct {
	SiteTitle string
	PageClass string
	Footer    FooterFunc // DefaultFooter when nil
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{if .View.Title}}{{.View.Title}} - {{end}}{{.SiteTitle}}</title>
</head>
<body class="{{.PageClass}}">
<docs-document>
{{- if .View.Loading}}
<div class="loading-indicator" aria-busy="true"></div>
{{- else}}
<h1>{{.View.Title}}</h1>
<div class="table-of-contents">
{{- if .View.ShowTOC}}
<strong class="toc-label">Contents</strong>
<ul class="toc-list">
{{- range .View.TOC}}
<li class="toc-item"><a href="{{.Href}}">{{.Text}}</a></li>
{{- end}}
</ul>
{{- end}}
</div>
<main>{{.View.Body}}</main>
<footer class="docs-footer">{{.Footer}}</footer>
{{- end}}
</docs-document>
{{- if .View.ScrollTarget}}
<script>(function(){var el=document.getElementById({{.View.ScrollTarget}});if(el&&el.scrollIntoView){el.scrollIntoView();}})();</script>
{{- end}}
</body>
</html>
`))

// Render writes the page for v.
func (p Page) Render(w io.Writer, v View) error {
	footer := p.Footer
	if footer == nil {
		footer = DefaultFooter
	}
	var footerHTML template.HTML
	if !v.Loading {
		footerHTML = footer(v.FrontMatter)
	}
	data := struct {
		SiteTitle string
		PageClass string
		View      View
		Footer    template.HTML
	}{p.SiteTitle, p.PageClass, v, footerHTML}

	if err := pageTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

var footerTmpl = template.Must(template.New("footer").Parse(
	`{{if .Contributors}}<div class="contributors">Contributors:` +
		`{{range .Contributors}} <span class="contributor">{{.}}</span>{{end}}</div>{{end}}` +
		`{{if .EditURL}}<a class="edit-link" href="{{.EditURL}}">Edit this page</a>{{end}}`))

// DefaultFooter lists "contributors" and links "editUrl" from the front matter.
func DefaultFooter(fm doctree.FrontMatter) template.HTML {
	data := struct {
		Contributors []string
		EditURL      string
	}{}

	switch c := fm["contributors"].(type) {
	case []any:
		for _, item := range c {
			if s, ok := item.(string); ok && s != "" {
				data.Contributors = append(data.Contributors, s)
			}
		}
	case []string:
		data.Contributors = c
	case string:
		if c != "" {
			data.Contributors = []string{c}
		}
	}
	if raw, ok := fm["editUrl"].(string); ok {
		if u, err := url.Parse(raw); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
			data.EditURL = u.String()
		}
	}

	var buf bytes.Buffer
	if err := footerTmpl.Execute(&buf, data); err != nil {
		return ""
	}
	return template.HTML(buf.String())
}
