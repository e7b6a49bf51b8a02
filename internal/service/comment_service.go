package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-core/internal/access"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util/errorutil"
)

// CommentService manages ticket annotations with role-gated
// visibility.
type CommentService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	resolver   *access.Resolver
	dispatcher events.Dispatcher
}

// NewCommentService constructs the service.
func NewCommentService(tickets repository.TicketRepository, comments repository.CommentRepository, resolver *access.Resolver, dispatcher events.Dispatcher) *CommentService {
	return &CommentService{
		tickets:    tickets,
		comments:   comments,
		resolver:   resolver,
		dispatcher: dispatcher,
	}
}

// Add appends an immutable comment to the ticket thread. Private
// comments require a staff role.
func (s *CommentService) Add(ctx context.Context, principal domain.Principal, ticketID, content string, isPrivate bool) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment content required", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !s.resolver.CanViewTicket(principal, ticket) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if !s.resolver.CanComment(principal, ticket, isPrivate) {
		return nil, apperrors.NewAuthorizationError("private comments require a staff role")
	}

	authorID := principal.ProfileID
	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   &authorID,
		AuthorType: domain.CommentAuthorPrincipal,
		Content:    content,
		IsPrivate:  isPrivate,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(context.Background(), events.Event{
			Type:        events.EventTicketCommentAdded,
			TicketID:    ticket.ID,
			TicketTitle: ticket.Title,
			ActorID:     principal.ProfileID,
			Message:     fmt.Sprintf("New comment on %q.", ticket.Title),
			Payload: events.TicketCommentAddedPayload{
				CommentID:   comment.ID,
				AuthorID:    comment.AuthorID,
				IsPrivate:   comment.IsPrivate,
				BodyPreview: preview(comment.Content, 120),
			},
		})
	}
	return comment, nil
}

// ListVisible returns the thread oldest first, filtered by the role
// rule. includePrivate is a display preference that is clamped: a user
// role never sees private comments regardless of the flag. A ticket
// the principal cannot see yields an empty thread, not an error.
func (s *CommentService) ListVisible(ctx context.Context, principal domain.Principal, ticketID string, includePrivate bool) ([]domain.Comment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.Comment{}, nil
		}
		return nil, apperrors.MapError(err)
	}
	if !s.resolver.CanViewTicket(principal, ticket) {
		return []domain.Comment{}, nil
	}

	all, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	visible := make([]domain.Comment, 0, len(all))
	for _, comment := range all {
		if comment.IsPrivate && !includePrivate {
			continue
		}
		if !s.resolver.CanSeeComment(principal, &comment) {
			continue
		}
		visible = append(visible, comment)
	}
	return visible, nil
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
