package user

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
)

const tokenTTL = 72 * time.Hour

type Handler struct {
	service   *Service
	jwtSecret []byte
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewHandler(service *Service, jwtSecret string) *Handler {
	return &Handler{service: service, jwtSecret: []byte(jwtSecret)}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Post("/api/register", h.register)
	app.Post("/api/login", h.login)
}

// RegisterProtectedRoutes expects the JWT middleware to run before these
// handlers.
func (h *Handler) RegisterProtectedRoutes(app fiber.Router) {
	app.Get("/api/auth/user", h.currentUser)
	app.Get("/api/admin/check", h.adminCheck)
}

func (h *Handler) register(c *fiber.Ctx) error {
	payload := new(RegisterInput)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	created, err := h.service.Register(c.UserContext(), *payload)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return h.respondWithToken(c, fiber.StatusCreated, created)
}

func (h *Handler) login(c *fiber.Ctx) error {
	payload := new(loginRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if payload.Email == "" || payload.Password == "" {
		return apperror.Respond(c, apperror.Validation("", "email and password are required"))
	}

	u, err := h.service.Authenticate(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
		}
		return apperror.Respond(c, err)
	}
	return h.respondWithToken(c, fiber.StatusOK, u)
}

func (h *Handler) respondWithToken(c *fiber.Ctx, status int, u User) error {
	signed, err := h.IssueToken(u)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.Status(status).JSON(fiber.Map{
		"user":  u,
		"token": signed,
	})
}

// IssueToken signs an HS256 token carrying the user id. The admin flag is
// included for clients only; authorization re-reads it from the store.
func (h *Handler) IssueToken(u User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  u.ID,
		"email":    u.Email,
		"is_admin": u.IsAdmin,
		"exp":      time.Now().Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
}

func (h *Handler) currentUser(c *fiber.Ctx) error {
	userID, err := GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	u, err := h.service.GetByID(c.UserContext(), userID)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(u)
}

func (h *Handler) adminCheck(c *fiber.Ctx) error {
	userID, err := GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	isAdmin, err := h.service.IsAdmin(c.UserContext(), userID)
	if err != nil && !isNotFound(err) {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"isAdmin": isAdmin})
}
