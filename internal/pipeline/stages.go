package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docpage/internal/content"
	"github.com/dgallion1/docpage/internal/doctree"
	"github.com/dgallion1/docpage/internal/frontmatter"
	"github.com/dgallion1/docpage/internal/markdown"
	"github.com/dgallion1/docpage/internal/parser"
)

// Renderer converts a markdown body to HTML and headings.
type Renderer interface {
	Render(body string, fm doctree.FrontMatter) (markdown.Rendered, error)
}

// Stages runs fetch, decode, parse and render for one document.
type Stages struct {
	fetcher  content.Fetcher
	renderer Renderer
	log      *slog.Logger
}

func NewStages(fetcher content.Fetcher, renderer Renderer, log *slog.Logger) *Stages {
	if renderer == nil {
		renderer = markdown.NewRenderer()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Stages{fetcher: fetcher, renderer: renderer, log: log}
}

// Run produces the document for docPath.
func (s *Stages) Run(ctx context.Context, docPath string) (doctree.Document, error) {
	log := s.log.With("path", docPath)

	// Phase 1: Fetch
	src, err := s.fetcher.Fetch(ctx, docPath)
	if err != nil {
		log.Warn("fetch failed", "error", err)
		return doctree.Document{}, err
	}

	// Phase 2: Decode
	dec, err := parser.ForFile(src.Name)
	if err != nil {
		log.Error("unsupported format", "file", src.Name, "error", err)
		return doctree.Document{}, err
	}
	text, err := dec.Decode(bytes.NewReader(src.Data), src.Name)
	if err != nil {
		log.Error("decode failed", "file", src.Name, "error", err)
		return doctree.Document{}, fmt.Errorf("decode %s: %w", src.Name, err)
	}

	// Phase 3: Parse
	fm, body, err := frontmatter.Parse([]byte(text))
	if err != nil {
		log.Error("front matter invalid", "error", err)
		return doctree.Document{}, err
	}
	fm, body = frontmatter.StripTitle(fm, body)

	// Phase 4: Render
	out, err := s.renderer.Render(body, fm)
	if err != nil {
		log.Error("render failed", "error", err)
		return doctree.Document{}, err
	}
	log.Debug("document rendered", "bytes", len(out.HTML), "headings", len(out.Headings))

	return doctree.Document{
		FrontMatter: fm,
		Title:       fm.Title(),
		Body:        out.HTML,
		Headings:    out.Headings,
	}, nil
}
