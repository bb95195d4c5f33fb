// Package apperror defines the error kinds shared by the storefront packages
// and maps them onto HTTP responses.
package apperror

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrEmptyCart      = errors.New("cart is empty")
	ErrPaymentGateway = errors.New("payment gateway unavailable")
	ErrConflict       = errors.New("conflict")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
)

// ValidationError reports a single malformed or missing input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFound wraps ErrNotFound with the name of the missing thing.
func NotFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

// GatewayError wraps a failure talking to the payment provider. The cause is
// kept for logs and never rendered to clients.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() []error { return []error{ErrPaymentGateway, e.Err} }

func Gateway(op string, err error) error {
	return &GatewayError{Op: op, Err: err}
}

// Status returns the HTTP status code for err.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrEmptyCart):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrPaymentGateway):
		return fiber.StatusBadGateway
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	}
	return fiber.StatusInternalServerError
}

// Respond writes err as a JSON error body. Unexpected errors are logged and
// rendered generically.
func Respond(c *fiber.Ctx, err error) error {
	status := Status(err)
	body := fiber.Map{}

	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		body["error"] = ve.Message
		if ve.Field != "" {
			body["field"] = ve.Field
		}
	case errors.Is(err, ErrEmptyCart):
		body["error"] = "Cart is empty"
	case errors.Is(err, ErrPaymentGateway):
		body["error"] = "Payment provider is unavailable, please try again"
	case status == fiber.StatusInternalServerError:
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		body["error"] = "internal server error"
	default:
		body["error"] = err.Error()
	}
	return c.Status(status).JSON(body)
}
