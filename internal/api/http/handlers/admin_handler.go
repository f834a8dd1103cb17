package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/service"
)

// AdminHandler exposes identity administration.
type AdminHandler struct {
	auth *service.AuthService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService) *AdminHandler {
	return &AdminHandler{auth: authService}
}

// Deactivate handles POST /api/admin/identities/:id/deactivate.
func (h *AdminHandler) Deactivate(c *fiber.Ctx) error {
	actor, _ := auth.IdentityFromFiber(c)
	if err := h.auth.Deactivate(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
