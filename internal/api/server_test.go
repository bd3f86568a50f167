package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docpage/internal/config"
	"github.com/dgallion1/docpage/internal/content"
	"github.com/dgallion1/docpage/internal/pipeline"
)

func newTestServer(t *testing.T, files map[string]string, cfg config.Config) (*Server, *content.Stats) {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	stats := content.NewStats(time.Hour)
	fetcher := content.Instrumented{Fetcher: content.NewDirFetcher(root, ".md"), Stats: stats}

	if cfg.SiteTitle == "" {
		cfg.SiteTitle = "Docs"
	}
	if cfg.PageClass == "" {
		cfg.PageClass = "docs-page"
	}
	cfg.ContentBase = root

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewServer(ctx, pipeline.NewStages(fetcher, nil, log), stats, log, cfg), stats
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil, config.Config{})
	rec := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDocPage_RendersDocument(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{
		"guide/getting-started.md": "---\ntitle: Start\ncontributors: [ada]\n---\n# Start\nSome text\n\n## Install\n\nRun it.\n",
	}, config.Config{})

	rec := get(t, srv, "/docs/guide/getting-started?anchor=install")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "<title>Start - Docs</title>")
	assert.Contains(t, body, `<body class="docs-page">`)
	assert.Contains(t, body, "<h1>Start</h1>")
	assert.Contains(t, body, "Some text")
	assert.Contains(t, body, `<a href="#install">Install</a>`)
	assert.Contains(t, body, "getElementById")
	assert.Contains(t, body, "ada")
}

func TestDocPage_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil, config.Config{})

	rec := get(t, srv, "/docs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Unable to fetch missing: Not Found")
	assert.NotContains(t, body, "toc-list")
}

func TestDocPage_InvalidPath(t *testing.T) {
	srv, _ := newTestServer(t, nil, config.Config{})

	tests := []struct {
		target string
		want   string
	}{
		{"/docs/", "document path is required"},
		{"/docs/a/../../etc/passwd", "invalid document path"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, srv, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "<main>"+tt.want)
			assert.NotContains(t, rec.Body.String(), "toc-list")
		})
	}
}

func TestDocumentJSON_EmptyPath(t *testing.T) {
	srv, _ := newTestServer(t, nil, config.Config{})

	rec := get(t, srv, "/api/documents/")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"document path is required"}`, rec.Body.String())
}

func TestDocPage_ParseErrorIsEscaped(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{
		"bad.md": "---\ntitle: [<script>\n---\nbody\n",
	}, config.Config{})

	rec := get(t, srv, "/docs/bad")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "parse frontmatter")
	assert.NotContains(t, rec.Body.String(), "<main>[<script>")
}

func TestDocumentJSON(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{
		"intro.md": "---\nauthor: ada\n---\n# Intro\n\n## Setup\n\ntext\n",
	}, config.Config{PageClass: "custom"})

	rec := get(t, srv, "/api/documents/intro")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Intro", got["title"])
	assert.Equal(t, "ada", got["author"])
	assert.Equal(t, "custom", got["pageClass"])
	assert.Contains(t, got["body"], "text")

	headings, ok := got["headings"].([]any)
	require.True(t, ok)
	require.Len(t, headings, 1)
	first := headings[0].(map[string]any)
	assert.Equal(t, "setup", first["anchorId"])
	assert.Equal(t, float64(2), first["level"])
}

func TestDocumentJSON_Error(t *testing.T) {
	srv, _ := newTestServer(t, nil, config.Config{})

	rec := get(t, srv, "/api/documents/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Unable to fetch nope: Not Found"}`, rec.Body.String())
}

func TestFetchStats(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{"a.md": "text"}, config.Config{})

	get(t, srv, "/api/documents/a")
	get(t, srv, "/api/documents/b")

	rec := get(t, srv, "/api/stats/fetch")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Stats content.StatsSnapshot `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Stats.Count)
	assert.Equal(t, 1, got.Stats.Failures)
	assert.Equal(t, map[string]int{"ok": 1, "404": 1}, got.Stats.Outcomes)
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{"a.md": "text"}, config.Config{
		RateLimitRPS:   0.001,
		RateLimitBurst: 2,
	})

	assert.Equal(t, http.StatusOK, get(t, srv, "/api/documents/a").Code)
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/documents/a").Code)

	rec := get(t, srv, "/api/documents/a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Health checks are never limited.
	assert.Equal(t, http.StatusOK, get(t, srv, "/health").Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"direct", "203.0.113.7:1234", nil, "203.0.113.7"},
		{"untrusted forwarded", "203.0.113.7:1234", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "203.0.113.7"},
		{"proxy forwarded", "10.0.0.2:80", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "1.2.3.4"},
		{"proxy real ip", "127.0.0.1:80", map[string]string{"X-Real-IP": " 5.6.7.8 "}, "5.6.7.8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(r))
		})
	}
}

func TestIPLimiters_EvictsLeastRecent(t *testing.T) {
	l := &ipLimiters{rps: 1, burst: 1, maxIPs: 2, items: map[string]*ipLimiter{}}
	now := time.Unix(0, 0)

	l.allow("a", now)
	l.allow("b", now.Add(time.Second))
	_, evicted := l.allow("c", now.Add(2*time.Second))
	assert.True(t, evicted)
	assert.NotContains(t, l.items, "a")
	assert.Contains(t, l.items, "b")

	l.sweep(now.Add(time.Hour))
	assert.Empty(t, l.items)
}

func TestNormalizeAnchor(t *testing.T) {
	assert.Equal(t, "", normalizeAnchor(""))
	assert.Equal(t, "#a", normalizeAnchor("a"))
	assert.Equal(t, "#a", normalizeAnchor("#a"))
}
