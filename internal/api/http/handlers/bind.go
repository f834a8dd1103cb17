package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/api/dto"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

type validatable interface {
	Validate() error
}

// bind parses the JSON body into req and validates it.
func bind(c *fiber.Ctx, req validatable) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if t, ok := req.(interface{ Trim() }); ok {
		t.Trim()
	}
	return dto.ValidationError(req.Validate())
}
