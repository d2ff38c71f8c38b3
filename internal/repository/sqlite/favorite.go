package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/snippet-catalog/internal/model"
	"github.com/sakif/snippet-catalog/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` verifies at compile time that *FavoriteRepo implements
// the repository interface. Without it, a missing method would only surface at
// the call site that passes it as a FavoriteRepository.
var _ repository.FavoriteRepository = (*FavoriteRepo)(nil)

// FavoriteRepo is the SQLite-backed favorites collection.
type FavoriteRepo struct {
	db *DB
}

// NewFavoriteRepo creates a FavoriteRepo on the shared connection pool.
func NewFavoriteRepo(db *DB) *FavoriteRepo {
	return &FavoriteRepo{db: db}
}

// Create inserts a favorite record.
//
// The ID is generated here with xid (20 chars, URL-safe, time-sortable) and
// CreatedAt is the server clock — the client never supplies either. Taking a
// pointer lets the caller see the assigned ID and timestamp after the call.
func (r *FavoriteRepo) Create(ctx context.Context, fav *model.Favorite) error {
	fav.ID = xid.New().String()
	fav.CreatedAt = time.Now()

	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO favorites (id, user_id, snippet_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		fav.ID,
		fav.UserID,
		fav.SnippetID.String(),
		fav.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating favorite (user=%s snippet=%s): %w",
			fav.UserID, fav.SnippetID, err)
	}

	return nil
}

// ListByUser returns every favorite owned by the given user, newest first.
// This is the full-replacement query the favorites resync runs — it must
// return the complete server-side set, not a page.
func (r *FavoriteRepo) ListByUser(ctx context.Context, userID string) ([]model.Favorite, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT id, user_id, snippet_id, created_at
		 FROM favorites
		 WHERE user_id = ?
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing favorites for user %s: %w", userID, err)
	}
	// CRITICAL: always close rows — a leaked sql.Rows holds a pool connection.
	defer rows.Close()

	var favorites []model.Favorite
	for rows.Next() {
		var f model.Favorite
		var snippetID string
		if err := rows.Scan(&f.ID, &f.UserID, &snippetID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning favorite row: %w", err)
		}
		f.SnippetID = model.SnippetID(snippetID)
		favorites = append(favorites, f)
	}

	// rows.Err() catches errors that happened DURING iteration
	// (e.g. the connection dropping mid-scan).
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating favorites: %w", err)
	}

	return favorites, nil
}

// DeleteByUserAndSnippet removes every favorite record for the pair.
//
// No RowsAffected check here: unlike ordinary CRUD, deleting zero rows is NOT
// a "not found" condition. The caller evicted the id from its cache
// optimistically — if a concurrent resync already removed the server record,
// the delete matching nothing is the converged outcome, not an error.
func (r *FavoriteRepo) DeleteByUserAndSnippet(ctx context.Context, userID string, snippetID model.SnippetID) error {
	_, err := r.db.conn.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND snippet_id = ?`,
		userID,
		snippetID.String(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting favorite (user=%s snippet=%s): %w",
			userID, snippetID, err)
	}

	return nil
}
