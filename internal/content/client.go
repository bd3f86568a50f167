package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// maxSourceBytes caps how much of a document is read.
const maxSourceBytes = 10 << 20

// Source is a fetched document before decoding.
type Source struct {
	Name string // File name including extension, e.g. "install.md"
	Data []byte
}

// Fetcher retrieves the raw source for a document path.
type Fetcher interface {
	Fetch(ctx context.Context, docPath string) (Source, error)
}

// FetchError is a non-success response for a document.
type FetchError struct {
	Path       string
	StatusCode int
	Status     string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("Unable to fetch %s: %s", e.Path, e.Status)
}

// IsNotFound reports whether err is a FetchError for a missing document.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound
}

// ErrInvalidPath is returned for empty paths and paths escaping the base.
var ErrInvalidPath = errors.New("invalid document path")

// CleanPath normalises a document path and rejects traversal outside the root.
func CleanPath(docPath string) (string, error) {
	p := strings.Trim(strings.TrimSpace(docPath), "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, docPath)
		}
	}
	p = path.Clean(p)
	if p == "." {
		return "", ErrInvalidPath
	}
	return p, nil
}

// HTTPFetcher fetches documents from <baseURL>/<path><ext>.
type HTTPFetcher struct {
	baseURL    string
	ext        string
	httpClient *http.Client
}

func NewHTTPFetcher(baseURL, ext string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		ext:     ext,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch retrieves a document. Non-2xx responses become *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, docPath string) (Source, error) {
	p, err := CleanPath(docPath)
	if err != nil {
		return Source{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/"+p+f.ext, nil)
	if err != nil {
		return Source{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return Source{}, fmt.Errorf("fetch %s: %w", p, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Source{}, &FetchError{
			Path:       p,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return Source{}, fmt.Errorf("read %s: %w", p, err)
	}
	return Source{Name: path.Base(p) + f.ext, Data: data}, nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() {
	f.httpClient.CloseIdleConnections()
}

// DirFetcher reads documents from <root>/<path><ext> on local disk.
type DirFetcher struct {
	root string
	ext  string
}

func NewDirFetcher(root, ext string) *DirFetcher {
	return &DirFetcher{root: root, ext: ext}
}

func (f *DirFetcher) Fetch(ctx context.Context, docPath string) (Source, error) {
	p, err := CleanPath(docPath)
	if err != nil {
		return Source{}, err
	}
	if err := ctx.Err(); err != nil {
		return Source{}, err
	}
	file, err := os.Open(filepath.Join(f.root, filepath.FromSlash(p)+f.ext))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Source{}, &FetchError{Path: p, StatusCode: http.StatusNotFound, Status: http.StatusText(http.StatusNotFound)}
		}
		return Source{}, fmt.Errorf("open %s: %w", p, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSourceBytes))
	if err != nil {
		return Source{}, fmt.Errorf("read %s: %w", p, err)
	}
	return Source{Name: path.Base(p) + f.ext, Data: data}, nil
}

// New picks an HTTPFetcher for http(s) bases and a DirFetcher otherwise.
func New(base, ext string, timeout time.Duration) Fetcher {
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		return NewHTTPFetcher(base, ext, timeout)
	}
	return NewDirFetcher(base, ext)
}
