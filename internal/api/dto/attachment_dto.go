package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// AttachmentResponse metadata. BlobRef deliberately never appears
// here; retrieval goes through the signed URL endpoint.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	UploaderID string    `json:"uploader_id"`
	Filename   string    `json:"filename"`
	ByteSize   int64     `json:"byte_size"`
	MimeType   string    `json:"mime_type"`
	CreatedAt  time.Time `json:"created_at"`
}

// FromAttachment maps the domain model.
func FromAttachment(a *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:         a.ID,
		TicketID:   a.TicketID,
		UploaderID: a.UploaderID,
		Filename:   a.Filename,
		ByteSize:   a.ByteSize,
		MimeType:   a.MimeType,
		CreatedAt:  a.CreatedAt,
	}
}

// FromAttachments maps a slice.
func FromAttachments(attachments []domain.Attachment) []AttachmentResponse {
	out := make([]AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		out = append(out, FromAttachment(&attachments[i]))
	}
	return out
}

// SignedURLResponse carries a freshly issued retrieval link.
type SignedURLResponse struct {
	URL        string `json:"url"`
	TTLSeconds int    `json:"ttl_seconds"`
}
