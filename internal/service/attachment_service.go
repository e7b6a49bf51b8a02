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
	"github.com/spec-kit/helpdesk-core/internal/blob"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util/errorutil"
)

// AttachmentService binds opaque blobs to tickets and brokers
// time-limited retrieval. Metadata and blob are kept consistent: the
// blob is written before the row, and deleted before the row on
// unbind.
type AttachmentService struct {
	tickets     repository.TicketRepository
	attachments repository.AttachmentRepository
	store       blob.Store
	resolver    *access.Resolver
	opTimeout   time.Duration
}

// NewAttachmentService constructs the service.
func NewAttachmentService(tickets repository.TicketRepository, attachments repository.AttachmentRepository, store blob.Store, resolver *access.Resolver, opTimeout time.Duration) *AttachmentService {
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}
	return &AttachmentService{
		tickets:     tickets,
		attachments: attachments,
		store:       store,
		resolver:    resolver,
		opTimeout:   opTimeout,
	}
}

// Attach stores the bytes and binds the metadata to the ticket. The
// blob goes in first; a failed metadata write rolls the blob back so
// no record ever exists without its bytes.
func (s *AttachmentService) Attach(ctx context.Context, principal domain.Principal, ticketID, filename, mimeType string, data []byte) (*domain.Attachment, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, apperrors.NewValidationError("filename required", nil)
	}
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("empty attachment", nil)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
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

	path := derivePath(ticket.ID, filename)

	putCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	ref, err := s.store.Put(putCtx, path, data)
	if err != nil {
		return nil, apperrors.NewStorageError("blob store put failed", err)
	}

	attachment := &domain.Attachment{
		TicketID:   ticket.ID,
		UploaderID: principal.ProfileID,
		Filename:   filename,
		ByteSize:   int64(len(data)),
		MimeType:   mimeType,
		BlobRef:    ref,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		// roll the blob back so it does not dangle without a record
		delCtx, cancelDel := context.WithTimeout(context.Background(), s.opTimeout)
		defer cancelDel()
		_, _ = s.store.Delete(delCtx, ref)
		return nil, apperrors.MapError(err)
	}
	return attachment, nil
}

// Detach removes blob and record. The blob is deleted first and the
// metadata row only on confirmed blob deletion; a failed blob delete
// keeps the record so nothing dangles.
func (s *AttachmentService) Detach(ctx context.Context, principal domain.Principal, attachmentID string) error {
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
		}
		return apperrors.MapError(err)
	}
	if !s.resolver.CanDetach(principal, attachment) {
		return apperrors.NewAuthorizationError("detach not permitted")
	}

	delCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	deleted, err := s.store.Delete(delCtx, attachment.BlobRef)
	if err != nil || !deleted {
		return apperrors.NewStorageError("blob store delete failed", err)
	}

	if err := s.attachments.Delete(ctx, attachmentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// row already gone; the end state is consistent
			return nil
		}
		return apperrors.MapError(err)
	}
	return nil
}

// List returns the attachments of a ticket visible to the principal.
func (s *AttachmentService) List(ctx context.Context, principal domain.Principal, ticketID string) ([]domain.Attachment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.Attachment{}, nil
		}
		return nil, apperrors.MapError(err)
	}
	if !s.resolver.CanViewTicket(principal, ticket) {
		return []domain.Attachment{}, nil
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachments, nil
}

// URLFor issues a fresh signed URL for the attachment, valid for ttl.
// URLs are recomputed per call and never persisted.
func (s *AttachmentService) URLFor(ctx context.Context, principal domain.Principal, attachmentID string, ttl time.Duration) (string, error) {
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
		}
		return "", apperrors.MapError(err)
	}
	ticket, err := s.tickets.GetByID(ctx, attachment.TicketID)
	if err != nil {
		return "", apperrors.MapError(err)
	}
	if !s.resolver.CanViewTicket(principal, ticket) {
		return "", apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
	}

	url, err := s.store.SignedURL(attachment.BlobRef, ttl)
	if err != nil {
		return "", apperrors.NewStorageError("signed url generation failed", err)
	}
	return url, nil
}

// derivePath builds a collision-resistant blob path from the ticket
// id, a timestamp, a nonce and the sanitized filename.
func derivePath(ticketID, filename string) string {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%d-%s-%s", ticketID, time.Now().UnixNano(), nonce, sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "file"
	}
	return out
}
