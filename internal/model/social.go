package model

import "time"

// Favorite is one (user, snippet) marking. Favorites are many-to-many between
// users and snippets, realized as one record per pair in the external store.
// CreatedAt is always server-assigned — the client never supplies it.
type Favorite struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	SnippetID SnippetID `json:"snippetId" db:"snippet_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Comment is one entry in a snippet's comment thread. Threads are append-only
// and displayed newest-first. AuthorName is denormalized into the record so a
// thread renders without a join against users.
type Comment struct {
	ID         string    `json:"id"         db:"id"`
	SnippetID  SnippetID `json:"snippetId"  db:"snippet_id"`
	Text       string    `json:"text"       db:"text"`
	AuthorID   string    `json:"authorId"   db:"author_id"`
	AuthorName string    `json:"authorName" db:"author_name"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
}
