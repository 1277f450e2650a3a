package types

import "time"

// Post represents a blog entry written by a single author.
type Post struct {
	// ID is the unique identifier of the post.
	ID int `json:"id" db:"id"`

	// Title is the headline of the post. It is never empty.
	Title string `json:"title" db:"title"`

	// Body is the free-form text of the post and may be empty.
	Body string `json:"body" db:"body"`

	// AuthorID references the user who created the post.
	AuthorID int `json:"author_id" db:"author_id"`

	// AuthorUsername is joined from the users table when posts are read.
	AuthorUsername string `json:"author_username" db:"username"`

	// Created is the timestamp at which the post was inserted.
	// It is set by the database and never changes.
	Created time.Time `json:"created" db:"created"`
}

// IsAuthor reports whether the given user wrote the post.
func (p Post) IsAuthor(userID int) bool {
	return p.AuthorID == userID
}
