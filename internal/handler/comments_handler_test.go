package handler_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sakif/snippet-catalog/internal/handler"
	"github.com/sakif/snippet-catalog/internal/model"
	"github.com/stretchr/testify/assert"
)

type commentsEnv struct {
	*testEnv
	handler *handler.CommentsHandler
}

func newCommentsEnv(t *testing.T) *commentsEnv {
	t.Helper()
	env := newTestEnv(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return &commentsEnv{
		testEnv: env,
		handler: handler.NewCommentsHandler(env.threads, env.sessions, logger),
	}
}

type threadBody struct {
	SnippetID   string          `json:"snippet_id"`
	ReadEnabled bool            `json:"read_enabled"`
	Comments    []model.Comment `json:"comments"`
}

func (e *commentsEnv) getThread(t *testing.T, userID, snippetID string) (*httptest.ResponseRecorder, threadBody) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/snippets/"+snippetID+"/comments", nil)
	if userID != "" {
		req = req.WithContext(asUser(userID))
	}
	req = setPathValue(req, "id", snippetID)
	rr := httptest.NewRecorder()
	e.handler.HandleList(rr, req)

	var body threadBody
	if rr.Code == http.StatusOK {
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	}
	return rr, body
}

func (e *commentsEnv) postComment(t *testing.T, userID, snippetID, text string) (*httptest.ResponseRecorder, threadBody) {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"text": text})
	req := httptest.NewRequest(http.MethodPost, "/api/snippets/"+snippetID+"/comments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(asUser(userID))
	req = setPathValue(req, "id", snippetID)
	rr := httptest.NewRecorder()
	e.handler.HandleCreate(rr, req)

	var body threadBody
	if rr.Code == http.StatusCreated {
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	}
	return rr, body
}

func TestCommentsHandler_AnonymousReadDisabled(t *testing.T) {
	env := newCommentsEnv(t)

	rr, body := env.getThread(t, "", "5")

	// Not an error: a 200 with read_enabled=false and no comments. The store
	// is never contacted for anonymous viewers.
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, body.ReadEnabled)
	assert.Empty(t, body.Comments)
}

func TestCommentsHandler_EmptyThreadIsSuccess(t *testing.T) {
	env := newCommentsEnv(t)
	user := env.signIn(t, "100", "alice")

	rr, body := env.getThread(t, user.User.ID, "5")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, body.ReadEnabled)
	assert.NotNil(t, body.Comments)
	assert.Empty(t, body.Comments)
}

func TestCommentsHandler_PostAndRead(t *testing.T) {
	env := newCommentsEnv(t)
	user := env.signIn(t, "100", "alice")

	rr, body := env.postComment(t, user.User.ID, "5", "  great trick  ")
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Len(t, body.Comments, 1)
	assert.Equal(t, "great trick", body.Comments[0].Text)
	assert.Equal(t, "alice", body.Comments[0].AuthorName)
	assert.False(t, body.Comments[0].CreatedAt.IsZero(), "server timestamp missing")

	rr, body = env.postComment(t, user.User.ID, "5", "second thought")
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Len(t, body.Comments, 2)
	// newest first
	assert.Equal(t, "second thought", body.Comments[0].Text)

	// other snippets' threads are untouched
	_, other := env.getThread(t, user.User.ID, "7")
	assert.Empty(t, other.Comments)
}

func TestCommentsHandler_Validation(t *testing.T) {
	env := newCommentsEnv(t)
	user := env.signIn(t, "100", "alice")

	t.Run("empty text", func(t *testing.T) {
		rr, _ := env.postComment(t, user.User.ID, "5", "   ")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/snippets/5/comments", bytes.NewBufferString(`{"text":`))
		req = req.WithContext(asUser(user.User.ID))
		req = setPathValue(req, "id", "5")
		rr := httptest.NewRecorder()
		env.handler.HandleCreate(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestCommentsHandler_AnonymousPostRejected(t *testing.T) {
	env := newCommentsEnv(t)

	payload := bytes.NewBufferString(`{"text":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/snippets/5/comments", payload)
	req = setPathValue(req, "id", "5")
	rr := httptest.NewRecorder()
	env.handler.HandleCreate(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCommentsHandler_CommentsVisibleAcrossUsers(t *testing.T) {
	env := newCommentsEnv(t)
	alice := env.signIn(t, "100", "alice")
	bob := env.signIn(t, "200", "bob")

	env.postComment(t, alice.User.ID, "5", "from alice")

	// Comments are per snippet, not per user — bob sees alice's comment.
	_, body := env.getThread(t, bob.User.ID, "5")
	assert.Len(t, body.Comments, 1)
	assert.Equal(t, "alice", body.Comments[0].AuthorName)
}
