package types

import "time"

// PostEventType names the kind of change a PostEvent describes.
type PostEventType string

const (
	PostCreated PostEventType = "post.created"
	PostUpdated PostEventType = "post.updated"
	PostDeleted PostEventType = "post.deleted"
)

// PostEvent is published after a post has been written to the database.
type PostEvent struct {
	Type       PostEventType `json:"type"`
	PostID     int           `json:"post_id"`
	AuthorID   int           `json:"author_id"`
	Title      string        `json:"title"`
	OccurredAt time.Time     `json:"occurred_at"`
}
