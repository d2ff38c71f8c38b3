// Package repository defines the interfaces for the external document store.
//
// The favorites and comments collections are NOT owned by this service's core
// logic — the services issue create/query/delete operations against them
// through these narrow interfaces, the same way they'd talk to a hosted
// document database. The sqlite subpackage is the embedded implementation;
// tests substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/snippet-catalog/internal/model"
)

// FavoriteRepository stores (user, snippet) favorite markings.
// Only equality-filtered operations exist — no scans, no partial updates.
type FavoriteRepository interface {
	// Create inserts a favorite record. The repository assigns ID and
	// CreatedAt (server timestamp).
	Create(ctx context.Context, fav *model.Favorite) error

	// ListByUser returns every favorite owned by the given user.
	ListByUser(ctx context.Context, userID string) ([]model.Favorite, error)

	// DeleteByUserAndSnippet removes every record matching the pair.
	// Plural on purpose: the legacy store had no uniqueness constraint, so
	// duplicates can exist and an unfavorite must clear them all.
	// Deleting a pair with no records is not an error.
	DeleteByUserAndSnippet(ctx context.Context, userID string, snippetID model.SnippetID) error
}

// CommentRepository stores per-snippet comment threads.
type CommentRepository interface {
	// Create appends a comment. The repository assigns ID and CreatedAt
	// (server timestamp).
	Create(ctx context.Context, comment *model.Comment) error

	// ListBySnippet returns all comments for a snippet ordered by
	// CreatedAt descending (newest first). An empty thread is a success
	// with an empty slice, not an error.
	ListBySnippet(ctx context.Context, snippetID model.SnippetID) ([]model.Comment, error)
}

// UserRepository stores user accounts keyed by their external identity.
type UserRepository interface {
	// Upsert inserts or updates a user based on (provider, provider_id).
	// After the call the user's ID and timestamps are populated.
	Upsert(ctx context.Context, user *model.User) error

	// GetUserByID retrieves a user by their internal ID.
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}
