package handler_test

import (
	"net/http"

	"context"
	"github.com/go-chi/chi/v5"
	"log/slog"
	"os"
	"testing"

	"github.com/sakif/snippet-catalog/internal/auth"
	"github.com/sakif/snippet-catalog/internal/dataset"
	"github.com/sakif/snippet-catalog/internal/model"
	"github.com/sakif/snippet-catalog/internal/repository/sqlite"
	"github.com/sakif/snippet-catalog/internal/service"
)

// testEnv wires real services over an in-memory SQLite database — the same
// object graph the server builds, minus HTTP. Handler tests drive the
// handlers directly with httptest and inspect the JSON they produce.
type testEnv struct {
	db        *sqlite.DB
	catalog   *service.CatalogService
	favorites *service.FavoritesManager
	threads   *service.ThreadManager
	sessions  *service.SessionContext
	tokens    *auth.TokenService
}

// stubSource feeds the catalog a canned dataset.
type stubSource struct {
	dataset *model.Dataset
}

func (s *stubSource) Fetch(_ context.Context) (*model.Dataset, error) {
	return s.dataset, nil
}

var _ dataset.Source = (*stubSource)(nil)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789")
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}

	catalog := service.NewCatalogService(&stubSource{dataset: &model.Dataset{
		Snippets: []model.Snippet{
			{
				ID:         "1",
				Title:      "Quick Sort",
				Tags:       []string{"sorting"},
				Code:       "void quicksort() {}",
				Category:   "algorithms",
				Language:   "c",
				Difficulty: model.DifficultyIntermediate,
			},
			{
				ID:         "2",
				Title:      "Auth Helper",
				Tags:       []string{"security"},
				Code:       "l1\nl2\nl3\nl4\nl5\nl6\nl7\nl8",
				Category:   "security",
				Language:   "go",
				Difficulty: model.DifficultyAdvanced,
				Premium:    true,
			},
		},
		Categories: []string{"algorithms", "security"},
		Languages:  []string{"c", "go"},
	}}, logger)
	if err := catalog.Load(context.Background()); err != nil {
		t.Fatalf("catalog Load() error = %v", err)
	}

	sessions := service.NewSessionContext(sqlite.NewUserRepo(db), tokens, logger)
	favorites := service.NewFavoritesManager(sqlite.NewFavoriteRepo(db), service.FavoritesConfig{}, logger)
	threads := service.NewThreadManager(sqlite.NewCommentRepo(db), logger)
	sessions.Subscribe(favorites.HandleSessionChange)
	sessions.Subscribe(threads.HandleSessionChange)

	return &testEnv{
		db:        db,
		catalog:   catalog,
		favorites: favorites,
		threads:   threads,
		sessions:  sessions,
		tokens:    tokens,
	}
}

// signIn creates a user through the real sign-in path and returns the result.
func (e *testEnv) signIn(t *testing.T, providerID, login string) *service.AuthResult {
	t.Helper()
	result, err := e.sessions.SignIn(context.Background(), &auth.Profile{
		Provider:   model.ProviderGitHub,
		ProviderID: providerID,
		Login:      login,
	})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	return result
}

// asUser returns a context carrying the user id, as the auth middleware
// would have set it after validating the JWT.
func asUser(userID string) context.Context {
	return auth.WithUserID(context.Background(), userID)
}

// setPathValue injects a URL path parameter the way chi's router would.
func setPathValue(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return req
}
