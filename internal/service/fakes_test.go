package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/repository"
)

// In-memory doubles for the repository interfaces. They mirror the
// postgres behavior the services rely on: pgx.ErrNoRows for misses and
// history entries persisted in the same call as the ticket write.

type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]domain.Ticket
	history []domain.HistoryEntry

	failUpdate error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket, entry *domain.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", f.seq)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	f.tickets[ticket.ID] = *ticket
	if entry != nil {
		entry.TicketID = ticket.ID
		entry.CreatedAt = time.Now()
		f.history = append(f.history, *entry)
	}
	return nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket, entries ...*domain.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate != nil {
		return f.failUpdate
	}
	if _, ok := f.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	f.tickets[ticket.ID] = *ticket
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		entry.TicketID = ticket.ID
		entry.CreatedAt = time.Now()
		f.history = append(f.history, *entry)
	}
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (f *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range f.tickets {
		if filter.SubmitterID != nil && ticket.SubmitterID != *filter.SubmitterID {
			continue
		}
		if filter.VisibleTo != nil {
			assigned := ticket.AssigneeID != nil && *ticket.AssigneeID == *filter.VisibleTo
			if ticket.SubmitterID != *filter.VisibleTo && !assigned {
				continue
			}
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		out = append(out, ticket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTicketRepo) historyFor(ticketID string) []domain.HistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.HistoryEntry
	for _, entry := range f.history {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out
}

func containsStatus(statuses []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	seq      int
	comments []domain.Comment

	failCreate error
}

func (f *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	f.seq++
	comment.ID = fmt.Sprintf("comment-%d", f.seq)
	comment.CreatedAt = time.Now()
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Comment
	for _, comment := range f.comments {
		if comment.TicketID == ticketID {
			out = append(out, comment)
		}
	}
	return out, nil
}

type fakeCategoryRepo struct {
	categories map[string]domain.Category
}

func newFakeCategoryRepo(categories ...domain.Category) *fakeCategoryRepo {
	repo := &fakeCategoryRepo{categories: make(map[string]domain.Category)}
	for _, category := range categories {
		repo.categories[category.ID] = category
	}
	return repo
}

func (f *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	category, ok := f.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &category, nil
}

func (f *fakeCategoryRepo) List(_ context.Context, activeOnly bool) ([]domain.Category, error) {
	var out []domain.Category
	for _, category := range f.categories {
		if activeOnly && !category.IsActive {
			continue
		}
		out = append(out, category)
	}
	return out, nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	seq      int
	profiles map[string]domain.Profile
}

func newFakeProfileRepo(profiles ...domain.Profile) *fakeProfileRepo {
	repo := &fakeProfileRepo{profiles: make(map[string]domain.Profile)}
	for _, profile := range profiles {
		repo.profiles[profile.ID] = profile
	}
	return repo
}

func (f *fakeProfileRepo) Create(_ context.Context, profile *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	profile.ID = fmt.Sprintf("profile-%d", f.seq)
	profile.CreatedAt = time.Now()
	f.profiles[profile.ID] = *profile
	return nil
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &profile, nil
}

func (f *fakeProfileRepo) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, profile := range f.profiles {
		if strings.EqualFold(profile.Email, email) {
			copied := profile
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeProfileRepo) ListActiveByRoles(_ context.Context, roles ...domain.Role) ([]domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Profile
	for _, profile := range f.profiles {
		if profile.Status != domain.ProfileStatusActive {
			continue
		}
		for _, role := range roles {
			if profile.Role == role {
				out = append(out, profile)
				break
			}
		}
	}
	return out, nil
}

type fakeHistoryRepo struct {
	tickets *fakeTicketRepo
}

func (f *fakeHistoryRepo) Create(_ context.Context, entry *domain.HistoryEntry) error {
	f.tickets.mu.Lock()
	defer f.tickets.mu.Unlock()
	entry.CreatedAt = time.Now()
	f.tickets.history = append(f.tickets.history, *entry)
	return nil
}

func (f *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string, limit, offset int) ([]domain.HistoryEntry, error) {
	entries := f.tickets.historyFor(ticketID)
	// newest first, matching the SQL ordering
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if offset >= len(entries) {
		return nil, nil
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

type fakeAttachmentRepo struct {
	mu          sync.Mutex
	seq         int
	attachments map[string]domain.Attachment

	failCreate error
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{attachments: make(map[string]domain.Attachment)}
}

func (f *fakeAttachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	f.seq++
	attachment.ID = fmt.Sprintf("attachment-%d", f.seq)
	attachment.CreatedAt = time.Now()
	f.attachments[attachment.ID] = *attachment
	return nil
}

func (f *fakeAttachmentRepo) GetByID(_ context.Context, id string) (*domain.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attachment, ok := f.attachments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &attachment, nil
}

func (f *fakeAttachmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Attachment
	for _, attachment := range f.attachments {
		if attachment.TicketID == ticketID {
			out = append(out, attachment)
		}
	}
	return out, nil
}

func (f *fakeAttachmentRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.attachments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.attachments, id)
	return nil
}

// fakeBlobStore records puts and deletes without touching disk.
type fakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	failPut    error
	failDelete error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(_ context.Context, path string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		return "", f.failPut
	}
	f.blobs[path] = data
	return path, nil
}

func (f *fakeBlobStore) Delete(_ context.Context, ref string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return false, f.failDelete
	}
	delete(f.blobs, ref)
	return true, nil
}

func (f *fakeBlobStore) SignedURL(ref string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}
	return "https://files.test/" + ref + "?signed=1", nil
}

func (f *fakeBlobStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blobs)
}
