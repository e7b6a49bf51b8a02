package handlers

import (
	"errors"
	"net/url"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-core/internal/blob"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util/errorutil"
)

// FilesHandler serves blob bytes for signed download URLs. It is the
// only route that reads blobs directly; everything else goes through
// attachment metadata. No auth middleware: the HMAC signature is the
// credential.
type FilesHandler struct {
	store *blob.FSStore
}

// NewFilesHandler constructs handler.
func NewFilesHandler(store *blob.FSStore) *FilesHandler {
	return &FilesHandler{store: store}
}

// Download GET /files/*?expires=..&sig=..
func (h *FilesHandler) Download(c *fiber.Ctx) error {
	ref, err := url.PathUnescape(c.Params("*"))
	if err != nil || ref == "" {
		return apperrors.NewValidationError("invalid file reference", nil)
	}

	if err := h.store.VerifyRawQuery(ref, c.Query("expires"), c.Query("sig")); err != nil {
		if errors.Is(err, blob.ErrExpired) {
			return apperrors.NewAuthorizationError("download link expired")
		}
		return apperrors.NewAuthorizationError("invalid download link")
	}

	data, err := h.store.Open(ref)
	if err != nil {
		if os.IsNotExist(err) {
			return apperrors.NewNotFound("file", map[string]any{"ref": ref})
		}
		return apperrors.NewStorageError("blob read failed", err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	return c.Send(data)
}
