package dto

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"

	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

// ValidationError converts ozzo-validation output into a VALIDATION_FAILED
// domain error whose details map each field to its message.
func ValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]any, len(fieldErrs))
		for field, ferr := range fieldErrs {
			details[field] = ferr.Error()
		}
		return apperrors.NewValidationError("validation failed", details)
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return apperrors.NewInternalError(err)
	}
	return apperrors.NewValidationError(err.Error(), nil)
}
