package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-core/internal/api/dto"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	"github.com/spec-kit/helpdesk-core/internal/service"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util/errorutil"
)

// AdminHandler exposes the administrative surface: notification rule
// management and category listing. Routes are gated by role middleware.
type AdminHandler struct {
	notifications *service.NotificationService
	categories    repository.CategoryRepository
}

// NewAdminHandler constructs handler.
func NewAdminHandler(notifications *service.NotificationService, categories repository.CategoryRepository) *AdminHandler {
	return &AdminHandler{notifications: notifications, categories: categories}
}

// ListRules GET /admin/notification-rules.
func (h *AdminHandler) ListRules(c *fiber.Ctx) error {
	rules, err := h.notifications.ListRules(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.RuleResponse, 0, len(rules))
	for i := range rules {
		out = append(out, dto.FromRule(&rules[i]))
	}
	return c.JSON(fiber.Map{"rules": out})
}

// ToggleRule PATCH /admin/notification-rules/:id.
func (h *AdminHandler) ToggleRule(c *fiber.Ctx) error {
	var req dto.ToggleRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.notifications.SetRuleEnabled(c.UserContext(), c.Params("id"), req.Enabled)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromRule(rule))
}

// ListCategories GET /categories. Open to any authenticated principal
// so submitters can pick one at creation time.
func (h *AdminHandler) ListCategories(c *fiber.Ctx) error {
	activeOnly := c.QueryBool("active_only", true)
	categories, err := h.categories.List(c.UserContext(), activeOnly)
	if err != nil {
		return apperrors.MapError(err)
	}
	out := make([]dto.CategoryResponse, 0, len(categories))
	for _, category := range categories {
		out = append(out, dto.CategoryResponse{
			ID:       category.ID,
			Name:     category.Name,
			IsActive: category.IsActive,
		})
	}
	return c.JSON(fiber.Map{"categories": out})
}
