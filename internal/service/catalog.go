// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
// Code is organised into three layers:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → search, favorites/comments state, session rules
//	Repository (Data layer)  → the external document store boundary
//
// The services in this package never touch HTTP, and the handlers never touch
// the repositories directly. Each service takes its collaborators as
// interfaces (dataset.Source, repository.FavoriteRepository, ...) so tests
// can inject in-memory fakes — see the _test.go files.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"

	"github.com/sakif/snippet-catalog/internal/apperror"
	"github.com/sakif/snippet-catalog/internal/dataset"
	"github.com/sakif/snippet-catalog/internal/model"
)

// DefaultRandomCount is how many snippets GetRandom returns when the caller
// doesn't say (the "surprise me" shelf on the home page).
const DefaultRandomCount = 5

// previewLines is how much of a premium snippet's code is shown to viewers
// without premium access.
const previewLines = 5

// SearchFilters narrows a catalog search. A zero-value field is a no-op
// (no constraint), NOT a "match empty" constraint. Filters are conjunctive
// and applied after the text match.
type SearchFilters struct {
	Category   string
	Language   string
	Difficulty model.Difficulty

	// IncludePremium=false strips every premium snippet from the results
	// regardless of how well it matches. This is the premium-visibility
	// flag from the caller's configuration, not a content filter.
	IncludePremium bool
}

// CatalogService holds the immutable snippet list plus its derived facets and
// answers search/filter queries.
//
// LIFECYCLE: created empty, populated by Load, read-only thereafter. A second
// Load replaces the whole state (used for dataset refreshes); a failed Load
// leaves the prior state untouched. The RWMutex exists because Load can race
// in-flight searches in a server — everything else is read-only.
type CatalogService struct {
	source dataset.Source
	logger *slog.Logger

	mu         sync.RWMutex
	snippets   []model.Snippet
	byID       map[string]int // normalized id → index into snippets
	categories []string
	languages  []string
	loaded     bool
}

// NewCatalogService creates a CatalogService. The catalog is empty until
// Load succeeds; Search on an unloaded catalog returns an empty result,
// never an error.
func NewCatalogService(source dataset.Source, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		source: source,
		logger: logger,
		byID:   make(map[string]int),
	}
}

// Load fetches the dataset and replaces the catalog state.
//
// On transport or parse failure it returns an ErrLoad-class error and the
// catalog keeps whatever it had before (empty if it never loaded). The error
// is reported, not fatal — the server starts either way and a reload can be
// user-initiated later.
func (s *CatalogService) Load(ctx context.Context) error {
	ds, err := s.source.Fetch(ctx)
	if err != nil {
		s.logger.Error("failed to load snippet dataset", slog.String("error", err.Error()))
		return apperror.LoadFailed(err)
	}

	// Build the id index before taking the write lock — a duplicate id in
	// the dataset is a data bug worth surfacing, first occurrence wins.
	byID := make(map[string]int, len(ds.Snippets))
	for i, sn := range ds.Snippets {
		key := normalizeID(sn.ID.String())
		if _, exists := byID[key]; exists {
			s.logger.Warn("duplicate snippet id in dataset", slog.String("id", sn.ID.String()))
			continue
		}
		byID[key] = i
	}

	s.mu.Lock()
	s.snippets = ds.Snippets
	s.byID = byID
	s.categories = ds.Categories
	s.languages = ds.Languages
	s.loaded = true
	s.mu.Unlock()

	s.logger.Info("snippet dataset loaded",
		slog.Int("snippets", len(ds.Snippets)),
		slog.Int("categories", len(ds.Categories)),
		slog.Int("languages", len(ds.Languages)),
	)

	return nil
}

// Loaded reports whether a dataset has been successfully loaded.
func (s *CatalogService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Search returns the snippets matching the query and filters.
//
// The text match is a case-insensitive substring check against title,
// description, any tag, and the code body. An empty or whitespace-only query
// matches every snippet. Filters are ANDed on top of the text match.
//
// The result is a fresh slice of copies each call — callers can't mutate the
// catalog through it. An unloaded catalog yields an empty result, not an
// error: the UI renders "no snippets" rather than a failure.
func (s *CatalogService) Search(query string, filters SearchFilters) []model.Snippet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return []model.Snippet{}
	}

	term := strings.ToLower(strings.TrimSpace(query))

	results := make([]model.Snippet, 0, len(s.snippets))
	for _, sn := range s.snippets {
		if term != "" && !matchesQuery(&sn, term) {
			continue
		}
		if filters.Category != "" && sn.Category != filters.Category {
			continue
		}
		if filters.Language != "" && sn.Language != filters.Language {
			continue
		}
		if filters.Difficulty != "" && sn.Difficulty != filters.Difficulty {
			continue
		}
		if !filters.IncludePremium && sn.Premium {
			continue
		}
		results = append(results, sn)
	}

	return results
}

// matchesQuery reports whether the snippet matches the lowercased search term
// in at least one of title, description, tags, or code.
func matchesQuery(sn *model.Snippet, term string) bool {
	if strings.Contains(strings.ToLower(sn.Title), term) ||
		strings.Contains(strings.ToLower(sn.Description), term) ||
		strings.Contains(strings.ToLower(sn.Code), term) {
		return true
	}
	for _, tag := range sn.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// GetByID looks up a snippet by identifier.
//
// The index is keyed by normalized IDs, so a caller-supplied "42", " 42 " or
// "042" all resolve to the snippet whose dataset id was the number 42. If the
// normalized lookup misses we fall back to a linear scan on the raw id —
// covers dataset ids that normalization would have folded (first occurrence
// won the index slot).
//
// An unloaded catalog is a load failure, not a miss — "we have no dataset"
// and "no snippet has that id" are different answers (503 vs 404 upstream).
func (s *CatalogService) GetByID(id string) (*model.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil, apperror.LoadFailed(fmt.Errorf("catalog has not been loaded"))
	}

	if idx, ok := s.byID[normalizeID(id)]; ok {
		sn := s.snippets[idx]
		return &sn, nil
	}

	raw := strings.TrimSpace(id)
	for i := range s.snippets {
		if s.snippets[i].ID.String() == raw {
			sn := s.snippets[i]
			return &sn, nil
		}
	}

	return nil, apperror.NotFound("snippet", id)
}

// GetRandom returns count snippets chosen by an unbiased random permutation
// (Fisher–Yates via rand.Shuffle) of the full set, truncated to count — or
// fewer if the catalog is smaller. No two calls need return the same order.
func (s *CatalogService) GetRandom(count int) []model.Snippet {
	if count <= 0 {
		count = DefaultRandomCount
	}

	s.mu.RLock()
	shuffled := make([]model.Snippet, len(s.snippets))
	copy(shuffled, s.snippets)
	s.mu.RUnlock()

	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if count > len(shuffled) {
		count = len(shuffled)
	}
	return shuffled[:count]
}

// Categories returns the catalog's category facet.
func (s *CatalogService) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}

// Languages returns the catalog's language facet.
func (s *CatalogService) Languages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.languages))
	copy(out, s.languages)
	return out
}

// PreviewCode truncates premium code for viewers without premium access:
// the first few lines, then a continuation marker. Handlers apply this when
// serving a premium snippet to a non-premium request.
func PreviewCode(code string) string {
	lines := strings.Split(code, "\n")
	if len(lines) <= previewLines {
		return code
	}
	return strings.Join(lines[:previewLines], "\n") +
		fmt.Sprintf("\n\n// ... Premium content continues (%d more lines) ...", len(lines)-previewLines)
}

// normalizeID canonicalizes a snippet identifier for index lookups.
func normalizeID(id string) string {
	return model.NormalizeSnippetID(id).String()
}
