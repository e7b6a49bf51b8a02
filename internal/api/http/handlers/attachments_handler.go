package handlers

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-core/internal/api/dto"
	"github.com/spec-kit/helpdesk-core/internal/auth"
	"github.com/spec-kit/helpdesk-core/internal/service"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util/errorutil"
)

// defaultURLTTL is how long an issued download link stays valid when
// the caller does not ask for a specific window.
const defaultURLTTL = 3600

// AttachmentsHandler exposes attachment upload, listing, detaching and
// signed-URL issuance.
type AttachmentsHandler struct {
	service *service.AttachmentService
}

// NewAttachmentsHandler constructs handler.
func NewAttachmentsHandler(attachmentService *service.AttachmentService) *AttachmentsHandler {
	return &AttachmentsHandler{service: attachmentService}
}

// Upload POST /tickets/:id/attachments (multipart form, field "file").
func (h *AttachmentsHandler) Upload(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("principal required")
	}

	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("multipart field 'file' required", nil)
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable upload", nil)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return apperrors.NewValidationError("unreadable upload", nil)
	}

	attachment, err := h.service.Attach(c.UserContext(), principal, c.Params("id"),
		header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromAttachment(attachment))
}

// List GET /tickets/:id/attachments.
func (h *AttachmentsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("principal required")
	}
	attachments, err := h.service.List(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"attachments": dto.FromAttachments(attachments)})
}

// Detach DELETE /attachments/:id.
func (h *AttachmentsHandler) Detach(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("principal required")
	}
	if err := h.service.Detach(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// URL GET /attachments/:id/url?ttl=<seconds>.
func (h *AttachmentsHandler) URL(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("principal required")
	}
	ttlSeconds := c.QueryInt("ttl", defaultURLTTL)
	if ttlSeconds <= 0 {
		return apperrors.NewValidationError("ttl must be positive", nil)
	}
	url, err := h.service.URLFor(c.UserContext(), principal, c.Params("id"),
		time.Duration(ttlSeconds)*time.Second)
	if err != nil {
		return err
	}
	return c.JSON(dto.SignedURLResponse{URL: url, TTLSeconds: ttlSeconds})
}
