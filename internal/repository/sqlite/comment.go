package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/snippet-catalog/internal/model"
	"github.com/sakif/snippet-catalog/internal/repository"
)

// compile-time check that *CommentRepo implements repository.CommentRepository
var _ repository.CommentRepository = (*CommentRepo)(nil)

// CommentRepo is the SQLite-backed comments collection.
type CommentRepo struct {
	db *DB
}

// NewCommentRepo creates a CommentRepo on the shared connection pool.
func NewCommentRepo(db *DB) *CommentRepo {
	return &CommentRepo{db: db}
}

// Create appends a comment to a snippet's thread.
// ID and CreatedAt are assigned here — the thread re-loads after an append
// precisely so the client sees this authoritative timestamp and ordering
// instead of its own clock.
func (r *CommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.CreatedAt = time.Now()

	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, snippet_id, text, author_id, author_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID,
		comment.SnippetID.String(),
		comment.Text,
		comment.AuthorID,
		comment.AuthorName,
		comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment on snippet %s: %w", comment.SnippetID, err)
	}

	return nil
}

// ListBySnippet returns all comments for a snippet, newest first.
//
// The slice is allocated up front and returned even when empty: an empty
// thread is a successful load with zero comments, which callers must be able
// to distinguish from a failed one (nil, err).
func (r *CommentRepo) ListBySnippet(ctx context.Context, snippetID model.SnippetID) ([]model.Comment, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT id, snippet_id, text, author_id, author_name, created_at
		 FROM comments
		 WHERE snippet_id = ?
		 ORDER BY created_at DESC`,
		snippetID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for snippet %s: %w", snippetID, err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0)
	for rows.Next() {
		var c model.Comment
		var sid string
		if err := rows.Scan(&c.ID, &sid, &c.Text, &c.AuthorID, &c.AuthorName, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		c.SnippetID = model.SnippetID(sid)
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}

	return comments, nil
}
