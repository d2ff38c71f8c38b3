// Package dataset abstracts where the snippet dataset comes from.
//
// The catalog treats the dataset as an externally supplied, read-only
// resource: a single JSON document of the shape
//
//	{ "snippets": [...], "categories": [...], "languages": [...] }
//
// fetched once at startup (and replaced wholesale on an explicit reload).
// The Source interface keeps the catalog ignorant of the transport — in
// production it's an HTTP fetch or a local file, in tests an in-memory stub.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sakif/snippet-catalog/internal/model"
)

// Source yields the snippet dataset.
//
// ACCEPT INTERFACES, RETURN STRUCTS:
// The catalog service depends on this interface, never on a concrete source.
// That's what lets catalog tests inject a stub that returns a canned dataset
// (or a forced error) without any network or filesystem.
type Source interface {
	// Fetch retrieves and decodes the full dataset. Implementations must
	// honour ctx cancellation — the caller supplies any timeout; no source
	// retries on its own.
	Fetch(ctx context.Context) (*model.Dataset, error)
}

// HTTPSource fetches the dataset from a URL.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates an HTTPSource for the given URL.
//
// The default client timeout is a backstop only — callers should still pass
// a context with their own deadline to Fetch. A dataset fetch that hangs
// forever would otherwise stall startup indefinitely.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch downloads and decodes the dataset.
func (s *HTTPSource) Fetch(ctx context.Context) (*model.Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dataset: building request for %s: %w", s.url, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataset: fetching %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dataset: fetching %s: unexpected status %d", s.url, resp.StatusCode)
	}

	// Stream-decode straight off the response body — the dataset can be a
	// few MB of code text and there's no reason to buffer it twice.
	var ds model.Dataset
	if err := json.NewDecoder(resp.Body).Decode(&ds); err != nil {
		return nil, fmt.Errorf("dataset: decoding %s: %w", s.url, err)
	}

	return &ds, nil
}

// FileSource reads the dataset from a local JSON file. Used for development
// and for deployments that bake the dataset into the image.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch reads and decodes the dataset file.
func (s *FileSource) Fetch(ctx context.Context) (*model.Dataset, error) {
	// os.ReadFile has no context support; check for cancellation up front so
	// a caller-cancelled load doesn't touch the disk at all.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dataset: reading %s: %w", s.path, err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("dataset: reading %s: %w", s.path, err)
	}

	var ds model.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("dataset: decoding %s: %w", s.path, err)
	}

	return &ds, nil
}
