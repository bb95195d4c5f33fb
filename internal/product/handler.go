package product

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Get("/api/products", h.getProducts)
	app.Get("/api/products/:slug", h.getProduct)
}

// RegisterAdminRoutes expects r to be a group already gated by the admin
// check, e.g. app.Group("/api/admin", ...).
func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/products", h.getProducts)
	r.Post("/products", h.createProduct)
	r.Patch("/products/:id", h.updateProduct)
	r.Delete("/products/:id", h.deleteProduct)
}

func (h *Handler) getProducts(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext())
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(products)
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	p, err := h.service.Lookup(c.UserContext(), c.Params("slug"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"product": p})
}

func (h *Handler) createProduct(c *fiber.Ctx) error {
	p := new(Product)
	if err := c.BodyParser(p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	p.ID = ""
	if strings.TrimSpace(p.Slug) == "" {
		p.Slug = Slugify(p.Title)
	}

	// validate payload and return all validation errors together
	if ves := validateProductPayload(p); len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": ves})
	}

	created, err := h.service.Create(c.UserContext(), *p)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) updateProduct(c *fiber.Ctx) error {
	patch := new(Patch)
	if err := c.BodyParser(patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	updated, err := h.service.Update(c.UserContext(), c.Params("id"), *patch)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(updated)
}

func (h *Handler) deleteProduct(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
