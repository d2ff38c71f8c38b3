package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/sakif/snippet-catalog/internal/apperror"
	"github.com/sakif/snippet-catalog/internal/model"
)

// =========================================================================
// STUB DATASET SOURCE
// =========================================================================
//
// The catalog depends on dataset.Source (an interface), so tests inject this
// stub instead of an HTTP fetch. Setting err simulates a transport failure.

type stubSource struct {
	dataset *model.Dataset
	err     error
	fetches int
}

func (s *stubSource) Fetch(_ context.Context) (*model.Dataset, error) {
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	return s.dataset, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testDataset builds the small fixture catalog used across the search tests.
func testDataset() *model.Dataset {
	return &model.Dataset{
		Snippets: []model.Snippet{
			{
				ID:          "1",
				Title:       "Quick Sort",
				Description: "classic divide and conquer",
				Tags:        []string{"sorting", "c"},
				Code:        "void quicksort(int *a, int n) { /* ... */ }",
				Category:    "algorithms",
				Language:    "c",
				Difficulty:  model.DifficultyIntermediate,
				Premium:     false,
			},
			{
				ID:          "2",
				Title:       "Auth Helper",
				Description: "sign requests with HMAC",
				Tags:        []string{"security"},
				Code:        "func sign(msg []byte) []byte { return hmacSHA256(msg) }",
				Category:    "security",
				Language:    "go",
				Difficulty:  model.DifficultyAdvanced,
				Premium:     true,
			},
			{
				ID:          "3",
				Title:       "Bubble Sort",
				Description: "the slow one",
				Tags:        []string{"sorting"},
				Code:        "for i := range a { for j := range a[:len(a)-1] { /* swap */ } }",
				Category:    "algorithms",
				Language:    "go",
				Difficulty:  model.DifficultyBeginner,
				Premium:     false,
			},
		},
		Categories: []string{"algorithms", "security"},
		Languages:  []string{"c", "go"},
	}
}

func newLoadedCatalog(t *testing.T) *CatalogService {
	t.Helper()
	svc := NewCatalogService(&stubSource{dataset: testDataset()}, testLogger())
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return svc
}

func resultIDs(snippets []model.Snippet) []string {
	ids := make([]string, len(snippets))
	for i, s := range snippets {
		ids[i] = s.ID.String()
	}
	return ids
}

// =========================================================================
// LOAD TESTS
// =========================================================================

func TestLoad_FailureKeepsCatalogEmpty(t *testing.T) {
	src := &stubSource{err: fmt.Errorf("connection refused")}
	svc := NewCatalogService(src, testLogger())

	err := svc.Load(context.Background())
	if !errors.Is(err, apperror.ErrLoad) {
		t.Fatalf("Load() error = %v, want ErrLoad", err)
	}

	if svc.Loaded() {
		t.Error("catalog reports loaded after a failed load")
	}
	if got := svc.Search("", SearchFilters{IncludePremium: true}); len(got) != 0 {
		t.Errorf("Search() on unloaded catalog returned %d snippets, want 0", len(got))
	}
	// A direct lookup is a load failure, not a miss — the catalog can't say
	// "no such snippet" about a dataset it never got.
	if _, err := svc.GetByID("1"); !errors.Is(err, apperror.ErrLoad) {
		t.Errorf("GetByID() on unloaded catalog error = %v, want ErrLoad", err)
	}
}

func TestLoad_FailureKeepsPriorState(t *testing.T) {
	src := &stubSource{dataset: testDataset()}
	svc := NewCatalogService(src, testLogger())
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Second load fails — the catalog must keep serving the first dataset.
	src.err = fmt.Errorf("gateway timeout")
	if err := svc.Load(context.Background()); !errors.Is(err, apperror.ErrLoad) {
		t.Fatalf("second Load() error = %v, want ErrLoad", err)
	}

	if got := svc.Search("", SearchFilters{IncludePremium: true}); len(got) != 3 {
		t.Errorf("Search() after failed reload returned %d snippets, want 3", len(got))
	}
}

func TestLoad_ReloadReplacesState(t *testing.T) {
	src := &stubSource{dataset: testDataset()}
	svc := NewCatalogService(src, testLogger())
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	src.dataset = &model.Dataset{
		Snippets:   []model.Snippet{{ID: "9", Title: "Only One"}},
		Categories: []string{"misc"},
		Languages:  []string{"go"},
	}
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("reload error = %v", err)
	}

	got := svc.Search("", SearchFilters{IncludePremium: true})
	if len(got) != 1 || got[0].ID != "9" {
		t.Errorf("Search() after reload = %v, want only snippet 9", resultIDs(got))
	}
	if _, err := svc.GetByID("1"); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("GetByID(1) should be gone after the reload replaced the dataset")
	}
}

// =========================================================================
// SEARCH TESTS
// =========================================================================

func TestSearch_EmptyQueryMatchesAll(t *testing.T) {
	svc := newLoadedCatalog(t)

	for _, query := range []string{"", "   ", "\t\n"} {
		got := svc.Search(query, SearchFilters{IncludePremium: true})
		if len(got) != 3 {
			t.Errorf("Search(%q) returned %d snippets, want all 3", query, len(got))
		}
	}
}

func TestSearch_MatchesTitleDescriptionTagsAndCode(t *testing.T) {
	svc := newLoadedCatalog(t)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"title match, case-insensitive", "QUICK", []string{"1"}},
		{"description match", "divide and conquer", []string{"1"}},
		{"tag match", "security", []string{"2"}},
		{"code body match", "hmacSHA256", []string{"2"}},
		{"substring across both sorts", "sort", []string{"1", "3"}},
		{"no match", "nonexistent-term", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resultIDs(svc.Search(tt.query, SearchFilters{IncludePremium: true}))
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Search(%q) = %v, want %v", tt.query, got, tt.wantIDs)
			}
			for i := range got {
				if got[i] != tt.wantIDs[i] {
					t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.wantIDs)
				}
			}
		})
	}
}

func TestSearch_FiltersAreConjunctive(t *testing.T) {
	svc := newLoadedCatalog(t)
	all := SearchFilters{IncludePremium: true}

	// category alone → both algorithm snippets
	byCategory := svc.Search("", SearchFilters{Category: "algorithms", IncludePremium: true})
	if len(byCategory) != 2 {
		t.Fatalf("category filter returned %v", resultIDs(byCategory))
	}

	// category AND language → only the go one
	both := svc.Search("", SearchFilters{Category: "algorithms", Language: "go", IncludePremium: true})
	if len(both) != 1 || both[0].ID != "3" {
		t.Fatalf("category+language filter = %v, want [3]", resultIDs(both))
	}

	// conjunctive: the combined result is a subset of each single-filter result
	byLanguage := svc.Search("", SearchFilters{Language: "go", IncludePremium: true})
	for _, s := range both {
		if !containsID(byCategory, s.ID) || !containsID(byLanguage, s.ID) {
			t.Errorf("combined result %s missing from a single-filter result", s.ID)
		}
	}

	// an unset filter is a no-op, not a "match empty" constraint
	if got := svc.Search("", all); len(got) != 3 {
		t.Errorf("unset filters returned %d snippets, want 3", len(got))
	}

	// difficulty filter
	beginner := svc.Search("", SearchFilters{Difficulty: model.DifficultyBeginner, IncludePremium: true})
	if len(beginner) != 1 || beginner[0].ID != "3" {
		t.Errorf("difficulty filter = %v, want [3]", resultIDs(beginner))
	}
}

func TestSearch_PremiumStripping(t *testing.T) {
	svc := newLoadedCatalog(t)

	// "sort" with premium hidden → only the free quick sort and bubble sort
	got := resultIDs(svc.Search("sort", SearchFilters{}))
	if len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Errorf(`Search("sort", no premium) = %v, want [1 3]`, got)
	}

	// "auth" matches the premium snippet's title — but premium is hidden,
	// so the result is empty despite the match
	if got := svc.Search("auth", SearchFilters{}); len(got) != 0 {
		t.Errorf(`Search("auth", no premium) = %v, want []`, resultIDs(got))
	}

	// with premium included, everything matching comes back
	if got := svc.Search("", SearchFilters{IncludePremium: true}); len(got) != 3 {
		t.Errorf("Search with premium returned %d snippets, want 3", len(got))
	}

	// no result may ever carry premium=true when premium is excluded
	for _, s := range svc.Search("", SearchFilters{}) {
		if s.Premium {
			t.Errorf("premium snippet %s leaked into a non-premium search", s.ID)
		}
	}
}

func TestSearch_DoesNotMutateCatalog(t *testing.T) {
	svc := newLoadedCatalog(t)

	first := svc.Search("", SearchFilters{IncludePremium: true})
	first[0].Title = "MUTATED"
	first[0].Tags = nil

	second := svc.Search("", SearchFilters{IncludePremium: true})
	if second[0].Title != "Quick Sort" {
		t.Error("mutating a search result leaked into the catalog")
	}
}

func TestSearch_EveryResultResolvesViaGetByID(t *testing.T) {
	svc := newLoadedCatalog(t)

	for _, s := range svc.Search("", SearchFilters{IncludePremium: true}) {
		got, err := svc.GetByID(s.ID.String())
		if err != nil {
			t.Errorf("GetByID(%s) for a search result failed: %v", s.ID, err)
			continue
		}
		if got.ID != s.ID {
			t.Errorf("GetByID(%s) returned snippet %s", s.ID, got.ID)
		}
	}
}

// =========================================================================
// GET BY ID TESTS
// =========================================================================

func TestGetByID_NormalizedRepresentations(t *testing.T) {
	svc := newLoadedCatalog(t)

	// The same logical id in several representations must resolve to the
	// same snippet — the dataset has historically carried ids as numbers
	// AND strings, so callers can show up with either.
	for _, id := range []string{"1", " 1 ", "01"} {
		got, err := svc.GetByID(id)
		if err != nil {
			t.Errorf("GetByID(%q) error = %v", id, err)
			continue
		}
		if got.ID != "1" {
			t.Errorf("GetByID(%q) = snippet %s, want 1", id, got.ID)
		}
	}
}

func TestGetByID_NotFound(t *testing.T) {
	svc := newLoadedCatalog(t)

	_, err := svc.GetByID("999")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID(999) error = %v, want ErrNotFound", err)
	}
}

func TestGetByID_ReturnsCopy(t *testing.T) {
	svc := newLoadedCatalog(t)

	got, err := svc.GetByID("1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	got.Title = "MUTATED"

	again, _ := svc.GetByID("1")
	if again.Title != "Quick Sort" {
		t.Error("mutating a GetByID result leaked into the catalog")
	}
}

// =========================================================================
// RANDOM / FACET / PREVIEW TESTS
// =========================================================================

func TestGetRandom_CountAndMembership(t *testing.T) {
	svc := newLoadedCatalog(t)

	got := svc.GetRandom(2)
	if len(got) != 2 {
		t.Fatalf("GetRandom(2) returned %d snippets", len(got))
	}
	if got[0].ID == got[1].ID {
		t.Error("GetRandom(2) returned the same snippet twice")
	}
	for _, s := range got {
		if _, err := svc.GetByID(s.ID.String()); err != nil {
			t.Errorf("GetRandom returned snippet %s not in the catalog", s.ID)
		}
	}

	// asking for more than the catalog holds truncates to the full set
	if got := svc.GetRandom(100); len(got) != 3 {
		t.Errorf("GetRandom(100) returned %d snippets, want 3", len(got))
	}
}

func TestFacets(t *testing.T) {
	svc := newLoadedCatalog(t)

	if got := svc.Categories(); len(got) != 2 || got[0] != "algorithms" {
		t.Errorf("Categories() = %v", got)
	}
	if got := svc.Languages(); len(got) != 2 || got[1] != "go" {
		t.Errorf("Languages() = %v", got)
	}
}

func TestPreviewCode(t *testing.T) {
	long := "l1\nl2\nl3\nl4\nl5\nl6\nl7"
	preview := PreviewCode(long)
	if preview == long {
		t.Error("PreviewCode() did not truncate a long snippet")
	}
	if want := "l1\nl2\nl3\nl4\nl5"; preview[:len(want)] != want {
		t.Errorf("PreviewCode() does not start with the first lines: %q", preview)
	}

	short := "only\ntwo"
	if PreviewCode(short) != short {
		t.Error("PreviewCode() truncated a snippet shorter than the preview window")
	}
}

func containsID(snippets []model.Snippet, id model.SnippetID) bool {
	for _, s := range snippets {
		if s.ID == id {
			return true
		}
	}
	return false
}
