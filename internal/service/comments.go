package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/sakif/snippet-catalog/internal/apperror"
	"github.com/sakif/snippet-catalog/internal/model"
	"github.com/sakif/snippet-catalog/internal/repository"
)

// MaxCommentLength bounds a single comment. Long enough for a code review
// rant, short enough that the comments table stays a comments table.
const MaxCommentLength = 2000

// CommentThread is the ordered comment list attached to ONE snippet at a time
// for one user's session.
//
// Only the currently-open snippet's comments are cached; opening a different
// snippet invalidates the cache. Without a session the thread is
// read-disabled: Open records the active snippet but never contacts the
// store, and the UI renders a "sign in to view comments" panel instead.
type CommentThread struct {
	repo    repository.CommentRepository
	session model.Session
	logger  *slog.Logger

	mu       sync.Mutex
	active   model.SnippetID
	open     bool
	comments []model.Comment
}

// NewCommentThread creates a thread bound to the given session.
// A zero session yields a read-disabled thread.
func NewCommentThread(repo repository.CommentRepository, session model.Session, logger *slog.Logger) *CommentThread {
	return &CommentThread{
		repo:    repo,
		session: session,
		logger:  logger,
	}
}

// ReadEnabled reports whether this thread can load comments at all.
func (t *CommentThread) ReadEnabled() bool {
	return t.session.Active()
}

// Open sets the active snippet and, if a session exists, loads its comments.
// Opening a different snippet drops the previous snippet's cached comments
// even if the load for the new one fails.
func (t *CommentThread) Open(ctx context.Context, snippetID model.SnippetID) ([]model.Comment, error) {
	t.mu.Lock()
	t.active = snippetID
	t.open = true
	t.comments = nil
	t.mu.Unlock()

	if !t.session.Active() {
		// Read-disabled: no store contact at all.
		return nil, nil
	}

	return t.LoadComments(ctx)
}

// LoadComments fetches all comments for the active snippet, newest first,
// and caches them. An empty thread is a success with an empty slice —
// distinct from a failure, which returns an ErrSync-class error and leaves
// the cache empty.
func (t *CommentThread) LoadComments(ctx context.Context) ([]model.Comment, error) {
	t.mu.Lock()
	open := t.open
	snippetID := t.active
	t.mu.Unlock()

	if !open {
		return nil, apperror.ValidationFailed("snippetId", "no snippet is open")
	}
	if !t.session.Active() {
		return nil, apperror.Unauthenticated("view comments")
	}

	comments, err := t.repo.ListBySnippet(ctx, snippetID)
	if err != nil {
		t.logger.Error("failed to load comments",
			slog.String("snippetID", snippetID.String()),
			slog.String("error", err.Error()),
		)
		return nil, apperror.SyncFailed("load comments", err)
	}

	t.mu.Lock()
	// The active snippet may have changed while we were loading — don't
	// cache another snippet's thread under the new one.
	if t.active == snippetID {
		t.comments = comments
	}
	t.mu.Unlock()

	return comments, nil
}

// AddComment validates and appends a comment to the active snippet's thread,
// then re-loads the thread so the caller sees the authoritative order and
// server-assigned timestamp — NOT a pure local append.
func (t *CommentThread) AddComment(ctx context.Context, text string) ([]model.Comment, error) {
	if !t.session.Active() {
		return nil, apperror.Unauthenticated("comment on snippets")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", "comment text is required")
	}
	if len(text) > MaxCommentLength {
		return nil, apperror.ValidationFailed("text", "comment is too long")
	}

	t.mu.Lock()
	open := t.open
	snippetID := t.active
	t.mu.Unlock()

	if !open {
		return nil, apperror.ValidationFailed("snippetId", "no snippet is open")
	}

	comment := &model.Comment{
		SnippetID:  snippetID,
		Text:       text,
		AuthorID:   t.session.UserID,
		AuthorName: t.session.Login,
	}
	if err := t.repo.Create(ctx, comment); err != nil {
		t.logger.Error("failed to add comment",
			slog.String("snippetID", snippetID.String()),
			slog.String("userID", t.session.UserID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.SyncFailed("post comment", err)
	}

	t.logger.Info("comment added",
		slog.String("snippetID", snippetID.String()),
		slog.String("userID", t.session.UserID),
	)

	return t.LoadComments(ctx)
}

// Active returns the currently-open snippet id, if any.
func (t *CommentThread) Active() (model.SnippetID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active, t.open
}

// Comments returns the cached comment list for the active snippet.
func (t *CommentThread) Comments() []model.Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Comment, len(t.comments))
	copy(out, t.comments)
	return out
}

// Close clears the active snippet and the cached comment list.
func (t *CommentThread) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = ""
	t.open = false
	t.comments = nil
}

// ThreadManager hands out one CommentThread per user session, mirroring
// FavoritesManager. Threads are cheap; the manager exists so the
// open-snippet/cache state survives across requests from the same user and
// is dropped on sign-out.
type ThreadManager struct {
	repo   repository.CommentRepository
	logger *slog.Logger

	mu      sync.Mutex
	threads map[string]*CommentThread
}

// NewThreadManager creates an empty manager.
func NewThreadManager(repo repository.CommentRepository, logger *slog.Logger) *ThreadManager {
	return &ThreadManager{
		repo:    repo,
		logger:  logger,
		threads: make(map[string]*CommentThread),
	}
}

// ThreadFor returns the user's thread, creating it on first sight.
// Anonymous sessions get a fresh read-disabled thread each time — there is
// no per-user state worth keeping for them.
func (m *ThreadManager) ThreadFor(session model.Session) *CommentThread {
	if !session.Active() {
		return NewCommentThread(m.repo, session, m.logger)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	thread, ok := m.threads[session.UserID]
	if !ok {
		thread = NewCommentThread(m.repo, session, m.logger)
		m.threads[session.UserID] = thread
	}
	return thread
}

// HandleSessionChange drops a user's thread on sign-out (closing it so the
// cached comments are released) — the subscription hook wired into the
// SessionContext.
func (m *ThreadManager) HandleSessionChange(_ context.Context, prev, next model.Session) {
	if prev.Active() && prev.UserID != next.UserID {
		m.mu.Lock()
		thread, ok := m.threads[prev.UserID]
		delete(m.threads, prev.UserID)
		m.mu.Unlock()

		if ok {
			thread.Close()
		}
	}
}
