package domain

import "time"

// CommentAuthorType indicates who authored a comment.
type CommentAuthorType string

const (
	CommentAuthorPrincipal CommentAuthorType = "PRINCIPAL"
	CommentAuthorSystem    CommentAuthorType = "SYSTEM"
)

// Comment is an immutable annotation on a ticket thread. Private
// comments are visible to staff roles only.
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   *string
	AuthorType CommentAuthorType
	Content    string
	IsPrivate  bool
	CreatedAt  time.Time
}
