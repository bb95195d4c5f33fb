package cart

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
	"github.com/wichananm65/coffee-shop-backend/internal/session"
)

// Handler delegates cart operations to the cart service. The routes are keyed
// by the anonymous session, not by a logged-in user.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Get("/api/cart", h.getCart)
	app.Post("/api/cart", h.addToCart)
	app.Patch("/api/cart/:id", h.updateQuantity)
	app.Delete("/api/cart/:id", h.removeItem)
	app.Delete("/api/cart", h.clearCart)
}

// Quantity is a pointer so an omitted value can default to 1. Non-integer
// JSON numbers fail to decode and are rejected with 400.
type addRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity,omitempty"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) addToCart(c *fiber.Ctx) error {
	token, err := session.TokenFromCtx(c)
	if err != nil {
		return apperror.Respond(c, err)
	}
	payload := new(addRequest)
	if err := c.BodyParser(payload); err != nil {
		return apperror.Respond(c, apperror.Validation("quantity", "invalid request body"))
	}
	qty := 1
	if payload.Quantity != nil {
		qty = *payload.Quantity
	}

	entry, err := h.service.Add(c.UserContext(), token, payload.ProductID, qty)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(entry)
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	token, err := session.TokenFromCtx(c)
	if err != nil {
		return apperror.Respond(c, err)
	}
	lines, err := h.service.List(c.UserContext(), token)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(lines)
}

func (h *Handler) updateQuantity(c *fiber.Ctx) error {
	token, err := session.TokenFromCtx(c)
	if err != nil {
		return apperror.Respond(c, err)
	}
	payload := new(quantityRequest)
	if err := c.BodyParser(payload); err != nil || payload.Quantity == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid quantity", "field": "quantity"})
	}

	entry, err := h.service.SetQuantity(c.UserContext(), token, c.Params("id"), *payload.Quantity)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(entry)
}

func (h *Handler) removeItem(c *fiber.Ctx) error {
	token, err := session.TokenFromCtx(c)
	if err != nil {
		return apperror.Respond(c, err)
	}
	if err := h.service.Remove(c.UserContext(), token, c.Params("id")); err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) clearCart(c *fiber.Ctx) error {
	token, err := session.TokenFromCtx(c)
	if err != nil {
		return apperror.Respond(c, err)
	}
	if err := h.service.Clear(c.UserContext(), token); err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
