package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-core/internal/access"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util/errorutil"
)

type ticketFixture struct {
	service  *TicketService
	tickets  *fakeTicketRepo
	comments *fakeCommentRepo
	profiles *fakeProfileRepo
	events   *eventRecorder
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()

	tickets := newFakeTicketRepo()
	comments := &fakeCommentRepo{}
	profiles := newFakeProfileRepo(
		domain.Profile{ID: "user-1", Name: "Ursula", Email: "ursula@example.com", Role: domain.RoleUser, Status: domain.ProfileStatusActive},
		domain.Profile{ID: "emp-1", Name: "Edgar", Email: "edgar@example.com", Role: domain.RoleEmployee, Status: domain.ProfileStatusActive},
		domain.Profile{ID: "emp-2", Name: "Elena", Email: "elena@example.com", Role: domain.RoleEmployee, Status: domain.ProfileStatusActive},
		domain.Profile{ID: "emp-suspended", Name: "Sam", Email: "sam@example.com", Role: domain.RoleEmployee, Status: domain.ProfileStatusSuspended},
		domain.Profile{ID: "admin-1", Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin, Status: domain.ProfileStatusActive},
	)
	categories := newFakeCategoryRepo(
		domain.Category{ID: "cat-1", Name: "Billing", IsActive: true},
		domain.Category{ID: "cat-frozen", Name: "Legacy", IsActive: false},
	)

	recorder := &eventRecorder{}
	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketReopened,
		events.EventTicketMarkedDuplicate,
		events.EventTicketAssigned,
		events.EventTicketPriorityChanged,
		events.EventTicketDueDateChanged,
	} {
		dispatcher.Subscribe(eventType, recorder.record)
	}

	svc := NewTicketService(TicketDependencies{
		TicketRepo:   tickets,
		CommentRepo:  comments,
		CategoryRepo: categories,
		ProfileRepo:  profiles,
		HistoryRepo:  &fakeHistoryRepo{tickets: tickets},
		Resolver:     access.NewResolver(),
		Dispatcher:   dispatcher,
	})

	return &ticketFixture{service: svc, tickets: tickets, comments: comments, profiles: profiles, events: recorder}
}

var (
	asUser  = domain.Principal{ProfileID: "user-1", Role: domain.RoleUser}
	asEmp   = domain.Principal{ProfileID: "emp-1", Role: domain.RoleEmployee}
	asAdmin = domain.Principal{ProfileID: "admin-1", Role: domain.RoleAdmin}
)

func (f *ticketFixture) createTicket(t *testing.T, submitter domain.Principal) *domain.Ticket {
	t.Helper()
	ticket, err := f.service.CreateTicket(context.Background(), submitter, TicketCreateInput{
		CategoryID:  "cat-1",
		Title:       "Printer on fire",
		Description: "It prints but also burns.",
	})
	require.NoError(t, err)
	return ticket
}

func TestCreateTicketDefaultsAndHistory(t *testing.T) {
	f := newTicketFixture(t)

	ticket := f.createTicket(t, asUser)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityNormal, ticket.Priority)
	assert.Equal(t, "user-1", ticket.SubmitterID)
	assert.NotEmpty(t, ticket.ExternalKey)

	history := f.tickets.historyFor(ticket.ID)
	require.Len(t, history, 1)
	assert.Equal(t, domain.HistoryActionCreated, history[0].Action)
	assert.Equal(t, "user-1", history[0].ActorID)

	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.events.types())
}

func TestCreateTicketValidation(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateTicket(ctx, asUser, TicketCreateInput{CategoryID: "cat-1", Title: "  ", Description: "x"})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.service.CreateTicket(ctx, asUser, TicketCreateInput{CategoryID: "cat-missing", Title: "t", Description: "d"})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	_, err = f.service.CreateTicket(ctx, asUser, TicketCreateInput{CategoryID: "cat-frozen", Title: "t", Description: "d"})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.service.CreateTicket(ctx, asUser, TicketCreateInput{CategoryID: "cat-1", Title: "t", Description: "d", Priority: "SOMEDAY"})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestChangeStatusLegalTransitions(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, asUser)

	updated, err := f.service.ChangeStatus(ctx, asAdmin, ticket.ID, domain.TicketStatusWaiting)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusWaiting, updated.Status)

	updated, err = f.service.ChangeStatus(ctx, asAdmin, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)
	require.NotNil(t, updated.ClosedAt)

	history := f.tickets.historyFor(ticket.ID)
	require.Len(t, history, 3) // created + two transitions
	last := history[2]
	assert.Equal(t, domain.HistoryActionStatusChanged, last.Action)
	require.NotNil(t, last.OldValue)
	require.NotNil(t, last.NewValue)
	assert.Equal(t, "WAITING", *last.OldValue)
	assert.Equal(t, "CLOSED", *last.NewValue)
}

func TestChangeStatusRejectsIllegalEdges(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, asUser)

	// identical status is not a transition
	_, err := f.service.ChangeStatus(ctx, asAdmin, ticket.ID, domain.TicketStatusOpen)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))

	_, err = f.service.ChangeStatus(ctx, asAdmin, ticket.ID, "ARCHIVED")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.service.ChangeStatus(ctx, asAdmin, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)

	// closed tickets only leave through Reopen
	_, err = f.service.ChangeStatus(ctx, asAdmin, ticket.ID, domain.TicketStatusOpen)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
	_, err = f.service.ChangeStatus(ctx, asAdmin, ticket.ID, domain.TicketStatusWaiting)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestChangeStatusForbiddenForUserRole(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, asUser)

	before := len(f.tickets.historyFor(ticket.ID))
	_, err := f.service.ChangeStatus(context.Background(), asUser, ticket.ID, domain.TicketStatusWaiting)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	assert.Len(t, f.tickets.historyFor(ticket.ID), before, "rejected mutation must not write history")
}

func TestFailedUpdateWritesNoHistory(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, asUser)

	f.tickets.failUpdate = errors.New("connection reset")
	_, err := f.service.ChangeStatus(context.Background(), asAdmin, ticket.ID, domain.TicketStatusWaiting)
	require.Error(t, err)
	assert.Len(t, f.tickets.historyFor(ticket.ID), 1, "only the creation entry may exist")
}

func TestReopenClearsClosedAtAndComments(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, asUser)

	_, err := f.service.ChangeStatus(ctx, asAdmin, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)

	reopened, err := f.service.Reopen(ctx, asAdmin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, reopened.Status)
	assert.Nil(t, reopened.ClosedAt)

	history := f.tickets.historyFor(ticket.ID)
	require.Len(t, history, 3)
	assert.Equal(t, domain.HistoryActionReopened, history[2].Action)

	comments, err := f.comments.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, domain.CommentAuthorSystem, comments[0].AuthorType)
	assert.Contains(t, comments[0].Content, "Ada")
	assert.False(t, comments[0].IsPrivate)
}

func TestReopenRequiresClosedTicket(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, asUser)

	_, err := f.service.Reopen(context.Background(), asAdmin, ticket.ID)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestMarkDuplicateClosesWithoutTouchingOriginal(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	original := f.createTicket(t, asUser)
	dup := f.createTicket(t, asUser)

	closed, err := f.service.MarkDuplicate(ctx, asAdmin, dup.ID, original.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	// the original is referenced, never mutated
	reloaded, err := f.tickets.GetByID(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, reloaded.Status)
	assert.Len(t, f.tickets.historyFor(original.ID), 1)

	history := f.tickets.historyFor(dup.ID)
	require.Len(t, history, 2)
	assert.Equal(t, domain.HistoryActionDuplicated, history[1].Action)
	require.NotNil(t, history[1].NewValue)
	assert.Equal(t, original.ID, *history[1].NewValue)

	comments, _ := f.comments.ListByTicket(ctx, dup.ID)
	require.Len(t, comments, 1)
	assert.Contains(t, comments[0].Content, original.ExternalKey)
}

func TestMarkDuplicateEdgeCases(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, asUser)

	_, err := f.service.MarkDuplicate(ctx, asAdmin, ticket.ID, ticket.ID)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.service.MarkDuplicate(ctx, asAdmin, ticket.ID, "ticket-missing")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	_, err = f.service.ChangeStatus(ctx, asAdmin, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	other := f.createTicket(t, asUser)
	_, err = f.service.MarkDuplicate(ctx, asAdmin, ticket.ID, other.ID)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestAssignRules(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, asUser)

	// employees never assign
	empID := "emp-1"
	_, err := f.service.Assign(ctx, asEmp, ticket.ID, &empID)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	// assignee must hold a staff role
	userID := "user-1"
	_, err = f.service.Assign(ctx, asAdmin, ticket.ID, &userID)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	suspendedID := "emp-suspended"
	_, err = f.service.Assign(ctx, asAdmin, ticket.ID, &suspendedID)
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))

	assigned, err := f.service.Assign(ctx, asAdmin, ticket.ID, &empID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssigneeID)
	assert.Equal(t, "emp-1", *assigned.AssigneeID)

	// clearing is a valid assignment
	cleared, err := f.service.Assign(ctx, asAdmin, ticket.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, cleared.AssigneeID)

	history := f.tickets.historyFor(ticket.ID)
	require.Len(t, history, 3)
	assert.Equal(t, domain.HistoryActionAssigned, history[1].Action)
	assert.Equal(t, domain.HistoryActionAssigned, history[2].Action)
}

func TestSetDueDateHistoryKeepsISOValues(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, asUser)

	due := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)
	updated, err := f.service.SetDueDate(ctx, asAdmin, ticket.ID, &due)
	require.NoError(t, err)
	require.NotNil(t, updated.DueDate)

	history := f.tickets.historyFor(ticket.ID)
	require.Len(t, history, 2)
	entry := history[1]
	assert.Equal(t, domain.HistoryActionDueDateChanged, entry.Action)
	assert.Nil(t, entry.OldValue)
	require.NotNil(t, entry.NewValue)
	assert.Equal(t, "2026-09-15T12:00:00Z", *entry.NewValue)

	cleared, err := f.service.SetDueDate(ctx, asAdmin, ticket.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, cleared.DueDate)
}

func TestVisibilityScopes(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	mine := f.createTicket(t, asUser)
	other := f.createTicket(t, domain.Principal{ProfileID: "user-9", Role: domain.RoleUser})
	empID := "emp-1"
	_, err := f.service.Assign(ctx, asAdmin, other.ID, &empID)
	require.NoError(t, err)

	// user: own submissions only
	visible, err := f.service.ListTickets(ctx, asUser, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, mine.ID, visible[0].ID)

	// employee: submitted or assigned
	visible, err = f.service.ListTickets(ctx, asEmp, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, other.ID, visible[0].ID)

	// admin: everything
	visible, err = f.service.ListTickets(ctx, asAdmin, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	// single reads hide invisible tickets as missing
	_, err = f.service.GetTicket(ctx, asUser, other.ID)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
	_, err = f.service.ListHistory(ctx, asUser, other.ID, 10, 0)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestListHistoryNewestFirst(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, asUser)
	_, err := f.service.ChangeStatus(ctx, asAdmin, ticket.ID, domain.TicketStatusWaiting)
	require.NoError(t, err)

	entries, err := f.service.ListHistory(ctx, asAdmin, ticket.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.HistoryActionStatusChanged, entries[0].Action)
	assert.Equal(t, domain.HistoryActionCreated, entries[1].Action)
}

func TestMutationsPublishEvents(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, asUser)

	_, err := f.service.SetPriority(ctx, asAdmin, ticket.ID, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	_, err = f.service.ChangeStatus(ctx, asAdmin, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	_, err = f.service.Reopen(ctx, asAdmin, ticket.ID)
	require.NoError(t, err)

	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketPriorityChanged,
		events.EventTicketStatusChanged,
		events.EventTicketReopened,
	}, f.events.types())
}
