package user

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
)

// GetUserIDFromCtx extracts the user_id claim from the JWT token stored in
// c.Locals("user") by the jwt middleware.
func GetUserIDFromCtx(c *fiber.Ctx) (string, error) {
	tok, ok := c.Locals("user").(*jwt.Token)
	if !ok || tok == nil {
		return "", apperror.ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperror.ErrUnauthorized
	}
	id, ok := claims["user_id"].(string)
	if !ok || id == "" {
		return "", apperror.ErrUnauthorized
	}
	return id, nil
}

// RequireAdmin rejects callers whose account is not flagged as admin. The
// flag is looked up per request.
func RequireAdmin(service *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := GetUserIDFromCtx(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}
		isAdmin, err := service.IsAdmin(c.UserContext(), userID)
		if err != nil && !isNotFound(err) {
			return apperror.Respond(c, err)
		}
		if !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		}
		return c.Next()
	}
}
