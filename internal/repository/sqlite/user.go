package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/snippet-catalog/internal/apperror"
	"github.com/sakif/snippet-catalog/internal/model"
	"github.com/sakif/snippet-catalog/internal/repository"
)

// compile-time check that *UserRepo implements repository.UserRepository
var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo is the SQLite-backed users collection.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a UserRepo on the shared connection pool.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// Upsert inserts or updates a user based on their (provider, provider_id) pair.
//
// The external identity is the pair, not either half: the same person signing
// in with GitHub and with Google is two accounts on purpose (we have no way to
// prove they're the same identity, and guessing by email is wrong — providers
// don't all verify it).
//
// We SELECT first to decide insert-vs-update because an existing user must
// KEEP their internal ID — favorites and comments reference it.
func (r *UserRepo) Upsert(ctx context.Context, user *model.User) error {
	var existingID string
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE provider = ? AND provider_id = ?`,
		user.Provider, user.ProviderID,
	).Scan(&existingID)

	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user %s/%s: %w", user.Provider, user.ProviderID, err)
	}

	if existingID != "" {
		// User already exists — refresh the profile in case login/email/avatar
		// changed on the provider side since the last sign-in.
		user.ID = existingID
		user.UpdatedAt = time.Now()
		_, err = r.db.conn.ExecContext(ctx,
			`UPDATE users SET login = ?, email = ?, avatar_url = ?, updated_at = ?
			 WHERE id = ?`,
			user.Login,
			user.Email,
			user.AvatarURL,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
	} else {
		// New user — generate an internal ID and INSERT
		now := time.Now()
		user.ID = xid.New().String()
		user.CreatedAt = now
		user.UpdatedAt = now

		_, err = r.db.conn.ExecContext(ctx,
			`INSERT INTO users (id, provider, provider_id, login, email, avatar_url, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			user.ID,
			user.Provider,
			user.ProviderID,
			user.Login,
			user.Email,
			user.AvatarURL,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting user %s/%s: %w", user.Provider, user.ProviderID, err)
		}
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (r *UserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User

	err := r.db.conn.QueryRowContext(ctx,
		`SELECT id, provider, provider_id, login, email, avatar_url, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(
		&u.ID,
		&u.Provider,
		&u.ProviderID,
		&u.Login,
		&u.Email,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		// sql.ErrNoRows is a sentinel — it just means "no matching row".
		// Translate it to our domain NotFound so handlers can map it to 404.
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &u, nil
}
