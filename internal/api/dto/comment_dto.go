package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content   string `json:"content"`
	IsPrivate bool   `json:"is_private"`
}

// CommentResponse is the wire shape of a comment.
type CommentResponse struct {
	ID         string                   `json:"id"`
	TicketID   string                   `json:"ticket_id"`
	AuthorID   *string                  `json:"author_id"`
	AuthorType domain.CommentAuthorType `json:"author_type"`
	Content    string                   `json:"content"`
	IsPrivate  bool                     `json:"is_private"`
	CreatedAt  time.Time                `json:"created_at"`
}

// FromComment maps the domain model.
func FromComment(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		TicketID:   c.TicketID,
		AuthorID:   c.AuthorID,
		AuthorType: c.AuthorType,
		Content:    c.Content,
		IsPrivate:  c.IsPrivate,
		CreatedAt:  c.CreatedAt,
	}
}

// FromComments maps a slice.
func FromComments(comments []domain.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, FromComment(&comments[i]))
	}
	return out
}
