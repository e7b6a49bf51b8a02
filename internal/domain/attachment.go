package domain

import "time"

// Attachment stores metadata for a binary blob bound to a ticket.
// BlobRef is an opaque locator into the backing store and is never
// exposed to callers directly, only through a signed URL.
type Attachment struct {
	ID         string
	TicketID   string
	UploaderID string
	Filename   string
	ByteSize   int64
	MimeType   string
	BlobRef    string
	CreatedAt  time.Time
}
