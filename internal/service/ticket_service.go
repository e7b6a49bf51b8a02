package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-core/internal/access"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util/errorutil"
)

// TicketService coordinates the ticket lifecycle: creation, status
// transitions, assignment, priority and due-date changes. Every
// accepted mutation commits together with its history entry and is
// followed by a fire-and-forget event publication.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	categories repository.CategoryRepository
	profiles   repository.ProfileRepository
	history    repository.HistoryRepository
	resolver   *access.Resolver
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CommentRepo  repository.CommentRepository
	CategoryRepo repository.CategoryRepository
	ProfileRepo  repository.ProfileRepository
	HistoryRepo  repository.HistoryRepository
	Resolver     *access.Resolver
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CategoryID  string
	Title       string
	Description string
	Priority    domain.TicketPriority
	DueDate     *time.Time
}

// TicketListFilter describes listing filters on top of the principal's
// visibility scope.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	CategoryID  *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		categories: deps.CategoryRepo,
		profiles:   deps.ProfileRepo,
		history:    deps.HistoryRepo,
		resolver:   deps.Resolver,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
	}
}

// CreateTicket creates a ticket with the principal as submitter. Any
// authenticated principal may submit.
func (s *TicketService) CreateTicket(ctx context.Context, principal domain.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}

	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": input.CategoryID})
		}
		return nil, apperrors.MapError(err)
	}
	if !category.IsActive {
		return nil, apperrors.NewValidationError("category inactive", map[string]any{"category_id": category.ID})
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityNormal
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(),
		SubmitterID: principal.ProfileID,
		CategoryID:  category.ID,
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		DueDate:     input.DueDate,
	}

	entry := &domain.HistoryEntry{
		ActorID:     principal.ProfileID,
		Action:      domain.HistoryActionCreated,
		Description: fmt.Sprintf("ticket created with priority %s", priority),
	}
	if err := s.tickets.Create(ctx, ticket, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordMutation(string(domain.HistoryActionCreated))
	s.publishEvent(events.Event{
		Type:        events.EventTicketCreated,
		TicketID:    ticket.ID,
		TicketTitle: ticket.Title,
		ActorID:     principal.ProfileID,
		Message:     fmt.Sprintf("A new ticket %q was created.", ticket.Title),
		Payload: events.TicketCreatedPayload{
			CategoryID: ticket.CategoryID,
			Priority:   ticket.Priority,
			Title:      ticket.Title,
		},
	})
	return ticket, nil
}

// ListTickets returns the tickets visible to the principal. An
// out-of-scope caller simply gets fewer (or zero) results, never an
// authorization error.
func (s *TicketService) ListTickets(ctx context.Context, principal domain.Principal, filter TicketListFilter) ([]domain.Ticket, error) {
	scope := s.resolver.TicketScope(principal)
	scope.Statuses = filter.Statuses
	scope.Priorities = filter.Priorities
	scope.CategoryID = filter.CategoryID
	scope.SearchTerm = filter.SearchTerm
	scope.CreatedFrom = filter.CreatedFrom
	scope.CreatedTo = filter.CreatedTo
	scope.Limit = filter.Limit
	scope.Offset = filter.Offset
	tickets, err := s.tickets.ListWithFilter(ctx, scope)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicket fetches one ticket under the visibility rule. An invisible
// ticket is indistinguishable from a missing one.
func (s *TicketService) GetTicket(ctx context.Context, principal domain.Principal, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadVisible(ctx, principal, ticketID)
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// ChangeStatus moves the ticket between open, waiting and closed.
// Reopening a closed ticket must go through Reopen, which has its own
// side effects; this operation rejects that edge.
func (s *TicketService) ChangeStatus(ctx context.Context, principal domain.Principal, ticketID string, next domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidStatus(next) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": next})
	}
	ticket, err := s.loadForMutation(ctx, principal, ticketID, access.IntentChangeStatus)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed && next == domain.TicketStatusOpen {
		return nil, apperrors.NewInvalidTransition("closed tickets are reopened, not set to open", map[string]any{
			"current": ticket.Status,
		})
	}
	if !domain.CanTransition(ticket.Status, next) {
		return nil, apperrors.NewInvalidTransition("illegal status transition", map[string]any{
			"current": ticket.Status,
			"next":    next,
		})
	}

	old := ticket.Status
	ticket.Status = next
	if next == domain.TicketStatusClosed {
		now := time.Now()
		ticket.ClosedAt = &now
	}

	entry := &domain.HistoryEntry{
		ActorID:     principal.ProfileID,
		Action:      domain.HistoryActionStatusChanged,
		FieldName:   strPtr("status"),
		OldValue:    strPtr(string(old)),
		NewValue:    strPtr(string(next)),
		Description: fmt.Sprintf("status changed from %s to %s", old, next),
	}
	if err := s.tickets.Update(ctx, ticket, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordMutation(string(domain.HistoryActionStatusChanged))
	s.publishEvent(events.Event{
		Type:        events.EventTicketStatusChanged,
		TicketID:    ticket.ID,
		TicketTitle: ticket.Title,
		ActorID:     principal.ProfileID,
		Message:     fmt.Sprintf("Ticket %q moved from %s to %s.", ticket.Title, old, next),
		Payload:     events.TicketStatusChangedPayload{OldStatus: old, NewStatus: next},
	})
	return ticket, nil
}

// Reopen returns a closed ticket to open, clears closedAt, and records
// a dedicated reopened entry plus a system comment naming the actor.
func (s *TicketService) Reopen(ctx context.Context, principal domain.Principal, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadForMutation(ctx, principal, ticketID, access.IntentReopen)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusClosed {
		return nil, apperrors.NewInvalidTransition("only closed tickets can be reopened", map[string]any{
			"current": ticket.Status,
		})
	}

	ticket.Status = domain.TicketStatusOpen
	ticket.ClosedAt = nil

	entry := &domain.HistoryEntry{
		ActorID:     principal.ProfileID,
		Action:      domain.HistoryActionReopened,
		FieldName:   strPtr("status"),
		OldValue:    strPtr(string(domain.TicketStatusClosed)),
		NewValue:    strPtr(string(domain.TicketStatusOpen)),
		Description: "ticket reopened",
	}
	if err := s.tickets.Update(ctx, ticket, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.addSystemComment(ctx, ticket.ID, fmt.Sprintf("Ticket reopened by %s.", s.actorName(ctx, principal)), false)

	s.metrics.RecordMutation(string(domain.HistoryActionReopened))
	s.publishEvent(events.Event{
		Type:        events.EventTicketReopened,
		TicketID:    ticket.ID,
		TicketTitle: ticket.Title,
		ActorID:     principal.ProfileID,
		Message:     fmt.Sprintf("Ticket %q was reopened.", ticket.Title),
		Payload:     events.TicketReopenedPayload{ReopenedBy: principal.ProfileID},
	})
	return ticket, nil
}

// MarkDuplicate closes the ticket as a duplicate of another. The
// referenced original is read to confirm existence but never modified.
func (s *TicketService) MarkDuplicate(ctx context.Context, principal domain.Principal, ticketID, originalID string) (*domain.Ticket, error) {
	if ticketID == originalID {
		return nil, apperrors.NewValidationError("a ticket cannot duplicate itself", nil)
	}
	ticket, err := s.loadForMutation(ctx, principal, ticketID, access.IntentMarkDuplicate)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewInvalidTransition("closed tickets cannot be marked duplicate", map[string]any{
			"current": ticket.Status,
		})
	}
	original, err := s.tickets.GetByID(ctx, originalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": originalID})
		}
		return nil, apperrors.MapError(err)
	}

	old := ticket.Status
	now := time.Now()
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &now

	entry := &domain.HistoryEntry{
		ActorID:     principal.ProfileID,
		Action:      domain.HistoryActionDuplicated,
		FieldName:   strPtr("status"),
		OldValue:    strPtr(string(old)),
		NewValue:    strPtr(original.ID),
		Description: fmt.Sprintf("closed as duplicate of %s", original.ExternalKey),
	}
	if err := s.tickets.Update(ctx, ticket, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.addSystemComment(ctx, ticket.ID,
		fmt.Sprintf("Closed as a duplicate of ticket %s (%s).", original.ExternalKey, original.ID), false)

	s.metrics.RecordMutation(string(domain.HistoryActionDuplicated))
	s.publishEvent(events.Event{
		Type:        events.EventTicketMarkedDuplicate,
		TicketID:    ticket.ID,
		TicketTitle: ticket.Title,
		ActorID:     principal.ProfileID,
		Message:     fmt.Sprintf("Ticket %q was closed as a duplicate.", ticket.Title),
		Payload:     events.TicketMarkedDuplicatePayload{OriginalTicketID: original.ID},
	})
	return ticket, nil
}

// Assign sets or clears the assignee. Reserved for admin and owner
// roles; the assignee must be an active staff profile.
func (s *TicketService) Assign(ctx context.Context, principal domain.Principal, ticketID string, assigneeID *string) (*domain.Ticket, error) {
	ticket, err := s.loadForMutation(ctx, principal, ticketID, access.IntentAssign)
	if err != nil {
		return nil, err
	}

	if assigneeID != nil {
		assignee, err := s.profiles.GetByID(ctx, *assigneeID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("profile", map[string]any{"profile_id": *assigneeID})
			}
			return nil, apperrors.MapError(err)
		}
		if !access.AssignableRole(assignee.Role) {
			return nil, apperrors.NewValidationError("assignee must hold a staff role", map[string]any{
				"profile_id": assignee.ID,
				"role":       assignee.Role,
			})
		}
		if assignee.Status != domain.ProfileStatusActive {
			return nil, apperrors.NewConflict("assignee suspended", map[string]any{"profile_id": assignee.ID})
		}
	}

	oldAssignee := ticket.AssigneeID
	ticket.AssigneeID = assigneeID

	entry := &domain.HistoryEntry{
		ActorID:     principal.ProfileID,
		Action:      domain.HistoryActionAssigned,
		FieldName:   strPtr("assignee_id"),
		OldValue:    oldAssignee,
		NewValue:    assigneeID,
		Description: "assignee changed",
	}
	if err := s.tickets.Update(ctx, ticket, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordMutation(string(domain.HistoryActionAssigned))
	s.publishEvent(events.Event{
		Type:        events.EventTicketAssigned,
		TicketID:    ticket.ID,
		TicketTitle: ticket.Title,
		ActorID:     principal.ProfileID,
		Message:     fmt.Sprintf("Ticket %q was reassigned.", ticket.Title),
		Payload:     events.TicketAssignedPayload{OldAssigneeID: oldAssignee, NewAssigneeID: assigneeID},
	})
	return ticket, nil
}

// SetPriority changes the priority and records the change.
func (s *TicketService) SetPriority(ctx context.Context, principal domain.Principal, ticketID string, priority domain.TicketPriority) (*domain.Ticket, error) {
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	ticket, err := s.loadForMutation(ctx, principal, ticketID, access.IntentSetPriority)
	if err != nil {
		return nil, err
	}
	old := ticket.Priority
	ticket.Priority = priority

	entry := &domain.HistoryEntry{
		ActorID:     principal.ProfileID,
		Action:      domain.HistoryActionPriorityChange,
		FieldName:   strPtr("priority"),
		OldValue:    strPtr(string(old)),
		NewValue:    strPtr(string(priority)),
		Description: fmt.Sprintf("priority changed from %s to %s", old, priority),
	}
	if err := s.tickets.Update(ctx, ticket, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordMutation(string(domain.HistoryActionPriorityChange))
	s.publishEvent(events.Event{
		Type:        events.EventTicketPriorityChanged,
		TicketID:    ticket.ID,
		TicketTitle: ticket.Title,
		ActorID:     principal.ProfileID,
		Message:     fmt.Sprintf("Priority of %q is now %s.", ticket.Title, priority),
		Payload:     events.TicketPriorityChangedPayload{OldPriority: old, NewPriority: priority},
	})
	return ticket, nil
}

// SetDueDate sets or clears the due date. History keeps ISO-8601
// values, nil meaning "cleared".
func (s *TicketService) SetDueDate(ctx context.Context, principal domain.Principal, ticketID string, dueDate *time.Time) (*domain.Ticket, error) {
	ticket, err := s.loadForMutation(ctx, principal, ticketID, access.IntentSetDueDate)
	if err != nil {
		return nil, err
	}
	old := ticket.DueDate
	ticket.DueDate = dueDate

	entry := &domain.HistoryEntry{
		ActorID:     principal.ProfileID,
		Action:      domain.HistoryActionDueDateChanged,
		FieldName:   strPtr("due_date"),
		OldValue:    timePtrString(old),
		NewValue:    timePtrString(dueDate),
		Description: "due date changed",
	}
	if err := s.tickets.Update(ctx, ticket, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordMutation(string(domain.HistoryActionDueDateChanged))
	s.publishEvent(events.Event{
		Type:        events.EventTicketDueDateChanged,
		TicketID:    ticket.ID,
		TicketTitle: ticket.Title,
		ActorID:     principal.ProfileID,
		Message:     fmt.Sprintf("Due date of %q changed.", ticket.Title),
		Payload:     events.TicketDueDateChangedPayload{OldDueDate: old, NewDueDate: dueDate},
	})
	return ticket, nil
}

// ListHistory returns the audit trail, newest first, for a ticket the
// principal can see.
func (s *TicketService) ListHistory(ctx context.Context, principal domain.Principal, ticketID string, limit, offset int) ([]domain.HistoryEntry, error) {
	if _, err := s.loadVisible(ctx, principal, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// loadVisible fetches a ticket and hides it behind NOT_FOUND when the
// principal may not see it, so reads leak no existence information.
func (s *TicketService) loadVisible(ctx context.Context, principal domain.Principal, ticketID string) (*domain.Ticket, error) {
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
	return ticket, nil
}

// loadForMutation fetches the ticket and applies the write rule, which
// rejects explicitly, unlike reads.
func (s *TicketService) loadForMutation(ctx context.Context, principal domain.Principal, ticketID string, intent access.Intent) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !s.resolver.CanMutate(principal, ticket, intent) {
		return nil, apperrors.NewAuthorizationError("mutation not permitted for role")
	}
	return ticket, nil
}

func (s *TicketService) addSystemComment(ctx context.Context, ticketID, content string, isPrivate bool) {
	comment := &domain.Comment{
		TicketID:   ticketID,
		AuthorType: domain.CommentAuthorSystem,
		Content:    content,
		IsPrivate:  isPrivate,
	}
	// best effort; the mutation and its history entry are already
	// committed
	_ = s.comments.Create(ctx, comment)
}

func (s *TicketService) actorName(ctx context.Context, principal domain.Principal) string {
	profile, err := s.profiles.GetByID(ctx, principal.ProfileID)
	if err != nil {
		return principal.ProfileID
	}
	return profile.Name
}

func (s *TicketService) publishEvent(event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	// detached context: dispatch must not inherit the request deadline
	_ = s.dispatcher.Publish(context.Background(), event)
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func strPtr(v string) *string {
	return &v
}

func timePtrString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return strPtr(t.UTC().Format(time.RFC3339))
}
