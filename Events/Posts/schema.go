package posts

import (
	"time"

	Users "fanhub/Events/Users"
)

// Post represents a media post owned by a model
type Post struct {
	ID          int       `db:"id" json:"-"`
	PostID      string    `db:"post_id" json:"id"`
	UserUID     string    `db:"user_uid" json:"user"` // immutable after creation
	MediaURL    string    `db:"media_url" json:"mediaUrl"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// PostWithOwner is a post enriched with the owning user's public profile
type PostWithOwner struct {
	Post
	Owner Users.PublicProfile `json:"owner"`
}
