package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docpage/internal/content"
	"github.com/dgallion1/docpage/internal/doctree"
	"github.com/dgallion1/docpage/internal/pipeline"
	"github.com/dgallion1/docpage/internal/view"
)

const (
	formatHTML = "html"
	formatJSON = "json"
	formatYAML = "yaml"

	defaultLoadingTimeout = pipeline.DefaultLoadingTimeout
	defaultFetchTimeout   = 30 * time.Second
)

type renderOptions struct {
	Path           string
	Anchor         string
	Base           string
	Ext            string
	PageClass      string
	SiteTitle      string
	Format         string
	LoadingTimeout time.Duration
	FetchTimeout   time.Duration
	Log            *slog.Logger
}

// render loads one document and writes it to w. For html the error page is
// still written when loading fails.
func render(ctx context.Context, w io.Writer, opts renderOptions) error {
	switch opts.Format {
	case formatHTML, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown format %q (want html, json or yaml)", opts.Format)
	}

	source := content.New(opts.Base, opts.Ext, opts.FetchTimeout)
	if hf, ok := source.(*content.HTTPFetcher); ok {
		defer hf.Close()
	}

	var loaded *pipeline.Loaded
	loader := pipeline.NewLoader(pipeline.NewStages(source, nil, opts.Log), pipeline.Config{
		PageClass:      opts.PageClass,
		LoadingTimeout: opts.LoadingTimeout,
		Log:            opts.Log,
		OnLoaded: func(l pipeline.Loaded) {
			loaded = &l
		},
	})
	defer loader.Close()

	loadErr := loader.Load(ctx, doctree.Request{Path: opts.Path, Anchor: opts.Anchor})

	if opts.Format == formatHTML {
		page := view.Page{SiteTitle: opts.SiteTitle, PageClass: opts.PageClass}
		if err := page.Render(w, loader.View()); err != nil {
			return err
		}
		return loadErr
	}
	if loadErr != nil {
		return loadErr
	}

	out := loaded.Merged()
	if opts.Format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
