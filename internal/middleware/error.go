package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/pkg/logger"
	"incident-workflow/internal/service/auth"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

var statusByKind = map[domain.ErrorKind]int{
	domain.KindNotFound:          fiber.StatusNotFound,
	domain.KindUnauthorized:      fiber.StatusForbidden,
	domain.KindInvalidTransition: fiber.StatusConflict,
	domain.KindValidation:        fiber.StatusUnprocessableEntity,
	domain.KindStorage:           fiber.StatusInternalServerError,
}

// NewErrorHandler maps domain errors, authentication failures and
// *fiber.Error values to the JSON error body.
func NewErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"
		errorCode := "INTERNAL_ERROR"

		var domainErr *domain.Error
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &domainErr):
			code = statusByKind[domainErr.Kind]
			errorCode = string(domainErr.Kind)
			message = domainErr.Message
			if domainErr.Kind == domain.KindStorage {
				message = "Storage failure"
			}
		case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
			code = fiber.StatusUnauthorized
			errorCode = "UNAUTHORIZED"
			message = err.Error()
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			message = fiberErr.Message
			errorCode = codeForStatus(code)
		}

		traceID := TraceID(c)
		if code >= fiber.StatusInternalServerError {
			log.WithComponent("http").WithError(err).WithFields(map[string]interface{}{
				"trace_id": traceID,
				"method":   c.Method(),
				"path":     c.Path(),
			}).Error("request failed")
		}

		return c.Status(code).JSON(ErrorResponse{
			Code:    errorCode,
			Message: message,
			TraceID: traceID,
		})
	}
}

func codeForStatus(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusConflict:
		return "CONFLICT"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusUnprocessableEntity:
		return "VALIDATION_ERROR"
	case fiber.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		return "INTERNAL_ERROR"
	}
}

func NewError(code int, message string) *fiber.Error {
	return fiber.NewError(code, message)
}

func BadRequest(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusBadRequest, message)
}

func Unauthorized(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusUnauthorized, message)
}

func Forbidden(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusForbidden, message)
}

func NotFound(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusNotFound, message)
}
