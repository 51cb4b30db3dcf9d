package model

import "time"

// Notice represents a row in the `notices` table joined with its author.
// AuthorName falls back to DefaultAuthorName when the author has no
// display name or no longer exists.
type Notice struct {
	ID         uint64     `json:"id"`         // notices.id
	Title      string     `json:"title"`      // notices.title
	Content    string     `json:"content"`    // notices.content
	AuthorID   uint64     `json:"authorId"`   // notices.author_id
	AuthorName string     `json:"authorName"` // users.true_name of the author
	CreatedAt  time.Time  `json:"createdAt"`  // notices.created_at
	UpdatedAt  *time.Time `json:"updatedAt"`  // notices.updated_at (null until first edit)
}

// DefaultAuthorName is shown for notices whose author has no true name.
const DefaultAuthorName = "管理员"
