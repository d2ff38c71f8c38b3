package handler

import (
	"encoding/json"
	"github.com/go-chi/chi/v5"
	"log/slog"
	"net/http"

	"github.com/sakif/snippet-catalog/internal/apperror"
	"github.com/sakif/snippet-catalog/internal/auth"
	"github.com/sakif/snippet-catalog/internal/model"
	"github.com/sakif/snippet-catalog/internal/service"
)

// CommentsHandler exposes per-snippet comment threads.
//
// The GET endpoint runs behind OptionalAuth: anonymous visitors get a
// read-disabled response (and the document store is never contacted for
// them), signed-in users get the thread. POST requires auth outright.
type CommentsHandler struct {
	threads  *service.ThreadManager
	sessions *service.SessionContext
	logger   *slog.Logger
}

// NewCommentsHandler creates a CommentsHandler.
func NewCommentsHandler(threads *service.ThreadManager, sessions *service.SessionContext, logger *slog.Logger) *CommentsHandler {
	return &CommentsHandler{
		threads:  threads,
		sessions: sessions,
		logger:   logger,
	}
}

// sessionForRequest resolves the request's session. An absent or invalid
// token resolves to the anonymous session, not an error — OptionalAuth
// already decided whether a userID is present.
func (h *CommentsHandler) sessionForRequest(r *http.Request) (model.Session, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return model.Session{}, nil
	}
	return h.sessions.SessionFor(r.Context(), userID)
}

// threadResponse is the shape of both comment endpoints.
type threadResponse struct {
	SnippetID   model.SnippetID `json:"snippet_id"`
	ReadEnabled bool            `json:"read_enabled"`
	Comments    []model.Comment `json:"comments"`
}

// HandleList returns a snippet's comment thread, newest first.
//
// HTTP: GET /api/snippets/{id}/comments  (optional auth)
//
// Anonymous: read_enabled=false with an empty comments array — the frontend
// renders its "sign in to view comments" panel off that flag. An empty thread
// for a signed-in user is read_enabled=true with an empty array: a success,
// not an error.
func (h *CommentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "snippet id is required"))
		return
	}

	session, err := h.sessionForRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	snippetID := model.NormalizeSnippetID(id)

	thread := h.threads.ThreadFor(session)
	comments, err := thread.Open(r.Context(), snippetID)
	if err != nil {
		writeError(w, err)
		return
	}

	if comments == nil {
		comments = []model.Comment{}
	}
	writeJSON(w, http.StatusOK, threadResponse{
		SnippetID:   snippetID,
		ReadEnabled: thread.ReadEnabled(),
		Comments:    comments,
	})
}

// addCommentRequest is the POST body for adding a comment.
type addCommentRequest struct {
	Text string `json:"text"`
}

// HandleCreate appends a comment to a snippet's thread.
//
// HTTP: POST /api/snippets/{id}/comments  (auth required)
// BODY: {"text": "great trick"}
//
// The response is the REFRESHED thread, re-loaded from the store after the
// append — the caller sees the server-assigned timestamp and authoritative
// order, not a local echo of its own input.
func (h *CommentsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "snippet id is required"))
		return
	}

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	session, err := h.sessionForRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	snippetID := model.NormalizeSnippetID(id)

	thread := h.threads.ThreadFor(session)

	// Point the thread at this snippet if it isn't already — a POST straight
	// after a server restart has no prior GET to have opened it.
	if active, open := thread.Active(); !open || active != snippetID {
		if _, err := thread.Open(r.Context(), snippetID); err != nil {
			writeError(w, err)
			return
		}
	}

	comments, err := thread.AddComment(r.Context(), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, threadResponse{
		SnippetID:   snippetID,
		ReadEnabled: thread.ReadEnabled(),
		Comments:    comments,
	})
}
