package handler

import (
	"github.com/go-chi/chi/v5"
	"log/slog"
	"net/http"

	"github.com/sakif/snippet-catalog/internal/apperror"
	"github.com/sakif/snippet-catalog/internal/auth"
	"github.com/sakif/snippet-catalog/internal/model"
	"github.com/sakif/snippet-catalog/internal/service"
)

// FavoritesHandler exposes the signed-in user's favorite set.
//
// All three endpoints sit behind RequireAuth — the favorites state machine
// treats "no session" as an error, and the middleware turns that into a 401
// before the service is ever reached. The handler's own session resolution
// can still miss (the user row was deleted while the token lived), so the
// Unauthenticated path exists here too.
type FavoritesHandler struct {
	favorites *service.FavoritesManager
	sessions  *service.SessionContext
	logger    *slog.Logger
}

// NewFavoritesHandler creates a FavoritesHandler.
func NewFavoritesHandler(favorites *service.FavoritesManager, sessions *service.SessionContext, logger *slog.Logger) *FavoritesHandler {
	return &FavoritesHandler{
		favorites: favorites,
		sessions:  sessions,
		logger:    logger,
	}
}

// storeForRequest resolves the request's session and returns the user's
// favorites store. A nil store with a nil error never happens on
// RequireAuth-protected routes; the error covers a stale token whose user is
// gone.
func (h *FavoritesHandler) storeForRequest(r *http.Request) (*service.FavoritesStore, error) {
	userID, _ := auth.UserIDFromContext(r.Context())
	session, err := h.sessions.SessionFor(r.Context(), userID)
	if err != nil {
		return nil, err
	}

	store := h.favorites.StoreFor(r.Context(), session)
	if store == nil {
		return nil, apperror.Unauthenticated("manage favorites")
	}
	return store, nil
}

// favoritesResponse is the shape of the list and resync endpoints.
type favoritesResponse struct {
	Favorites []model.SnippetID `json:"favorites"`
	State     string            `json:"state"`
}

// HandleList returns the user's favorited snippet ids from the local cache.
//
// HTTP: GET /api/favorites
//
// Served from the cache, no store round-trip — the state field tells the
// client how fresh that cache is ("syncing" right after sign-in, "synced"
// once a resync confirmed it).
func (h *FavoritesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	store, err := h.storeForRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, favoritesResponse{
		Favorites: store.List(),
		State:     store.State().String(),
	})
}

// toggleResponse is the shape of the toggle endpoint.
type toggleResponse struct {
	SnippetID model.SnippetID `json:"snippet_id"`
	Favorited bool            `json:"favorited"`
}

// HandleToggle flips one snippet's favorite state.
//
// HTTP: POST /api/favorites/{id}/toggle
//
// The local flip happens before the store write; if the write fails the
// client gets a 502 and the cache keeps the optimistic value (unless the
// server runs with rollback enabled), reconverging on the next resync.
func (h *FavoritesHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "snippet id is required"))
		return
	}

	store, err := h.storeForRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	snippetID := model.NormalizeSnippetID(id)
	favorited, err := store.Toggle(r.Context(), snippetID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toggleResponse{
		SnippetID: snippetID,
		Favorited: favorited,
	})
}

// HandleResync re-pulls the user's favorites from the store, replacing the
// cache, and returns the confirmed set.
//
// HTTP: POST /api/favorites/resync
//
// POST, not GET — it mutates the server-side cache. Retrying after a failed
// toggle is the intended use.
func (h *FavoritesHandler) HandleResync(w http.ResponseWriter, r *http.Request) {
	store, err := h.storeForRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := store.Resync(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, favoritesResponse{
		Favorites: store.List(),
		State:     store.State().String(),
	})
}
