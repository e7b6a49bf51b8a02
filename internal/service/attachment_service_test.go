package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-core/internal/access"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util/errorutil"
)

type attachmentFixture struct {
	service     *AttachmentService
	tickets     *fakeTicketRepo
	attachments *fakeAttachmentRepo
	store       *fakeBlobStore
	ticket      *domain.Ticket
}

func newAttachmentFixture(t *testing.T) *attachmentFixture {
	t.Helper()
	tickets := newFakeTicketRepo()
	attachments := newFakeAttachmentRepo()
	store := newFakeBlobStore()

	ticket := &domain.Ticket{
		SubmitterID: "user-1",
		CategoryID:  "cat-1",
		Title:       "Broken invoice",
		Description: "PDF attached.",
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityNormal,
	}
	require.NoError(t, tickets.Create(context.Background(), ticket, nil))

	return &attachmentFixture{
		service:     NewAttachmentService(tickets, attachments, store, access.NewResolver(), time.Second),
		tickets:     tickets,
		attachments: attachments,
		store:       store,
		ticket:      ticket,
	}
}

func TestAttachStoresBlobAndMetadata(t *testing.T) {
	f := newAttachmentFixture(t)

	attachment, err := f.service.Attach(context.Background(), asUser, f.ticket.ID,
		"invoice.pdf", "application/pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)

	assert.Equal(t, "user-1", attachment.UploaderID)
	assert.Equal(t, int64(8), attachment.ByteSize)
	assert.NotEmpty(t, attachment.BlobRef)
	assert.Equal(t, 1, f.store.count())
}

func TestAttachValidation(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()

	_, err := f.service.Attach(ctx, asUser, f.ticket.ID, "  ", "text/plain", []byte("x"))
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.service.Attach(ctx, asUser, f.ticket.ID, "empty.txt", "text/plain", nil)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	stranger := domain.Principal{ProfileID: "user-9", Role: domain.RoleUser}
	_, err = f.service.Attach(ctx, stranger, f.ticket.ID, "a.txt", "text/plain", []byte("x"))
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestAttachBlobFailurePropagates(t *testing.T) {
	f := newAttachmentFixture(t)
	f.store.failPut = errors.New("disk full")

	_, err := f.service.Attach(context.Background(), asUser, f.ticket.ID,
		"a.txt", "text/plain", []byte("x"))
	assert.True(t, apperrors.IsCode(err, "STORAGE_FAILED"))

	listed, listErr := f.attachments.ListByTicket(context.Background(), f.ticket.ID)
	require.NoError(t, listErr)
	assert.Empty(t, listed, "no metadata without bytes")
}

func TestAttachMetadataFailureRollsBlobBack(t *testing.T) {
	f := newAttachmentFixture(t)
	f.attachments.failCreate = errors.New("constraint violation")

	_, err := f.service.Attach(context.Background(), asUser, f.ticket.ID,
		"a.txt", "text/plain", []byte("x"))
	require.Error(t, err)
	assert.Equal(t, 0, f.store.count(), "blob must not dangle without its record")
}

func TestDetachPermissions(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()

	attachment, err := f.service.Attach(ctx, asUser, f.ticket.ID, "a.txt", "text/plain", []byte("x"))
	require.NoError(t, err)

	// neither a random user nor a plain employee may detach
	stranger := domain.Principal{ProfileID: "user-9", Role: domain.RoleUser}
	assert.True(t, apperrors.IsCode(f.service.Detach(ctx, stranger, attachment.ID), "FORBIDDEN"))
	assert.True(t, apperrors.IsCode(f.service.Detach(ctx, asEmp, attachment.ID), "FORBIDDEN"))

	// the uploader may
	require.NoError(t, f.service.Detach(ctx, asUser, attachment.ID))
	assert.Equal(t, 0, f.store.count())
	_, err = f.attachments.GetByID(ctx, attachment.ID)
	require.Error(t, err)

	// elevated roles may detach anything
	attachment, err = f.service.Attach(ctx, asUser, f.ticket.ID, "b.txt", "text/plain", []byte("y"))
	require.NoError(t, err)
	require.NoError(t, f.service.Detach(ctx, asAdmin, attachment.ID))
}

func TestDetachKeepsRecordOnBlobFailure(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()

	attachment, err := f.service.Attach(ctx, asUser, f.ticket.ID, "a.txt", "text/plain", []byte("x"))
	require.NoError(t, err)

	f.store.failDelete = errors.New("backend offline")
	err = f.service.Detach(ctx, asUser, attachment.ID)
	assert.True(t, apperrors.IsCode(err, "STORAGE_FAILED"))

	_, err = f.attachments.GetByID(ctx, attachment.ID)
	assert.NoError(t, err, "record stays until the blob is confirmed gone")
}

func TestURLForVisibility(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()

	attachment, err := f.service.Attach(ctx, asUser, f.ticket.ID, "a.txt", "text/plain", []byte("x"))
	require.NoError(t, err)

	url, err := f.service.URLFor(ctx, asUser, attachment.ID, time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, attachment.BlobRef)

	stranger := domain.Principal{ProfileID: "user-9", Role: domain.RoleUser}
	_, err = f.service.URLFor(ctx, stranger, attachment.ID, time.Hour)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	_, err = f.service.URLFor(ctx, asUser, "attachment-missing", time.Hour)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestListAttachmentsInvisibleTicketIsEmpty(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()
	_, err := f.service.Attach(ctx, asUser, f.ticket.ID, "a.txt", "text/plain", []byte("x"))
	require.NoError(t, err)

	stranger := domain.Principal{ProfileID: "user-9", Role: domain.RoleUser}
	listed, err := f.service.List(ctx, stranger, f.ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
