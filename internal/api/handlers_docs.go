package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/docpage/internal/content"
	"github.com/dgallion1/docpage/internal/doctree"
	"github.com/dgallion1/docpage/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// load runs one document request to completion on a fresh Loader.
func (s *Server) load(ctx context.Context, req doctree.Request) (*pipeline.Loader, *pipeline.Loaded, error) {
	var loaded *pipeline.Loaded
	loader := pipeline.NewLoader(s.stages, pipeline.Config{
		PageClass:      s.cfg.PageClass,
		LoadingTimeout: s.cfg.LoadingTimeout,
		Log:            s.log.With("request_id", middleware.GetReqID(ctx)),
		OnLoaded: func(l pipeline.Loaded) {
			loaded = &l
		},
	})
	err := loader.Load(ctx, req)
	return loader, loaded, err
}

// handleDocPage renders a document as a full HTML page. Load failures are
// rendered in place of the body.
func (s *Server) handleDocPage(w http.ResponseWriter, r *http.Request) {
	req := doctree.Request{
		Path:   chi.URLParam(r, "*"),
		Anchor: normalizeAnchor(r.URL.Query().Get("anchor")),
	}

	loader, _, err := s.load(r.Context(), req)
	defer loader.Close()

	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}

	var buf bytes.Buffer
	if rerr := s.page.Render(&buf, loader.View()); rerr != nil {
		s.log.Error("render page failed", "path", req.Path, "error", rerr)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// handleDocument returns the merged front matter and rendered output as JSON.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	req := doctree.Request{Path: chi.URLParam(r, "*")}

	loader, loaded, err := s.load(r.Context(), req)
	defer loader.Close()
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loaded.Merged())
}

func normalizeAnchor(anchor string) string {
	anchor = strings.TrimSpace(anchor)
	if anchor == "" || strings.HasPrefix(anchor, "#") {
		return anchor
	}
	return "#" + anchor
}

func statusFor(err error) int {
	var fe *content.FetchError
	switch {
	case errors.Is(err, pipeline.ErrEmptyPath), errors.Is(err, content.ErrInvalidPath):
		return http.StatusBadRequest
	case content.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &fe):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
