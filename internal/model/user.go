// Package model defines the data structures used throughout the application.
package model

import "time"

// Provider names the external identity provider a user signed in with.
// The catalog never sees a password — identity is fully delegated.
const (
	ProviderGitHub = "github"
	ProviderGoogle = "google"
)

// User represents a registered user account.
//
// We support multiple OAuth identity providers (GitHub and Google), so the
// external identity is the (provider, provider_id) pair. We still generate our
// own internal string ID (xid) so our primary keys aren't tied to any
// third-party's numbering scheme — GitHub uses integers, Google uses opaque
// "sub" strings, and we don't want either leaking into foreign keys.
//
// WHY ProviderID string (not int64)?
// GitHub IDs are numeric but Google subject IDs are not. A string holds both;
// the numeric form is stringified at the auth boundary.
//
// WHY Email string (not *string)?
// Providers can withhold the email (GitHub users may hide theirs). We use an
// empty string as the zero value rather than a nullable pointer — simpler to
// work with and safe to display.
type User struct {
	ID         string    `json:"id"         db:"id"`
	Provider   string    `json:"provider"   db:"provider"`    // "github" or "google"
	ProviderID string    `json:"providerId" db:"provider_id"` // provider's user identifier
	Login      string    `json:"login"      db:"login"`       // Display name / username
	Email      string    `json:"email"      db:"email"`       // May be empty
	AvatarURL  string    `json:"avatarUrl"  db:"avatar_url"`  // Profile picture URL
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt"  db:"updated_at"`
}

// Session is the current authenticated identity, or absence thereof.
// The zero value means "signed out". Sessions are small value types on
// purpose — they get captured by favorites/comment state and compared when a
// stale external round-trip completes after a sign-out.
type Session struct {
	UserID string `json:"userId"`
	Login  string `json:"login"`
}

// Active reports whether the session carries an identity.
func (s Session) Active() bool {
	return s.UserID != ""
}
