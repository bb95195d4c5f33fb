package order

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
	"github.com/wichananm65/coffee-shop-backend/internal/payment"
	"github.com/wichananm65/coffee-shop-backend/internal/product"
	"github.com/wichananm65/coffee-shop-backend/internal/session"
)

// ProductLister loads current catalog rows to decorate order responses.
type ProductLister interface {
	ListByIDs(ctx context.Context, ids []string) ([]product.Product, error)
}

// Handler exposes checkout, payment retry, verification and the provider
// webhook.
type Handler struct {
	service  *Service
	products ProductLister
	webhooks payment.WebhookParser
}

// NewHandler wires the order routes. products and webhooks may be nil.
func NewHandler(s *Service, products ProductLister, webhooks payment.WebhookParser) *Handler {
	return &Handler{service: s, products: products, webhooks: webhooks}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Post("/api/checkout", h.checkout)
	app.Post("/api/order/:id/pay", h.pay)
	app.Get("/api/order/verify/:providerSessionId", h.verify)
	app.Get("/api/order/:id", h.getOrder)
	app.Post("/api/webhooks/payment", h.webhook)
}

// checkoutRequest accepts the nested shippingDestination and, for older
// clients, the flat inpost* fields.
type checkoutRequest struct {
	CheckoutInput
	InpostPointID      string `json:"inpostPointId"`
	InpostPointName    string `json:"inpostPointName"`
	InpostPointAddress string `json:"inpostPointAddress"`
}

func (r checkoutRequest) input() CheckoutInput {
	in := r.CheckoutInput
	if in.ShippingDestination == nil && r.InpostPointID != "" {
		in.ShippingDestination = &ShippingDestination{
			PointID:      r.InpostPointID,
			PointName:    r.InpostPointName,
			PointAddress: r.InpostPointAddress,
		}
	}
	return in
}

func (h *Handler) checkout(c *fiber.Ctx) error {
	token, err := session.TokenFromCtx(c)
	if err != nil {
		return apperror.Respond(c, err)
	}
	payload := new(checkoutRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	res, err := h.service.Checkout(c.UserContext(), token, payload.input())
	if err != nil {
		return respondWithOrderID(c, err, res.OrderID)
	}
	return c.JSON(fiber.Map{
		"url":         res.URL,
		"redirectUrl": res.URL,
		"orderId":     res.OrderID,
	})
}

// pay retries opening a payment session for a pending order.
func (h *Handler) pay(c *fiber.Ctx) error {
	token, err := session.TokenFromCtx(c)
	if err != nil {
		return apperror.Respond(c, err)
	}
	res, err := h.service.OpenPaymentSession(c.UserContext(), token, c.Params("id"))
	if err != nil {
		return respondWithOrderID(c, err, res.OrderID)
	}
	return c.JSON(fiber.Map{
		"url":         res.URL,
		"redirectUrl": res.URL,
		"orderId":     res.OrderID,
	})
}

func (h *Handler) verify(c *fiber.Ctx) error {
	res, err := h.service.Verify(c.UserContext(), c.Params("providerSessionId"))
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(res)
}

type productSummary struct {
	Slug     string  `json:"slug"`
	ImageURL *string `json:"imageUrl,omitempty"`
	InStock  bool    `json:"inStock"`
}

type orderView struct {
	Order
	// Products holds the current catalog data for display only; prices come
	// from the snapshot in Items.
	Products map[string]productSummary `json:"products,omitempty"`
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	ord, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperror.Respond(c, err)
	}

	view := orderView{Order: ord}
	if h.products != nil && len(ord.Items) > 0 {
		ids := make([]string, 0, len(ord.Items))
		for _, it := range ord.Items {
			ids = append(ids, it.ProductID)
		}
		prods, err := h.products.ListByIDs(c.UserContext(), ids)
		if err != nil {
			// decoration is optional
			slog.Warn("could not load products for order", "order_id", ord.ID, "error", err)
		} else {
			view.Products = make(map[string]productSummary, len(prods))
			for _, p := range prods {
				view.Products[p.ID] = productSummary{Slug: p.Slug, ImageURL: p.ImageURL, InStock: p.InStock}
			}
		}
	}
	return c.JSON(view)
}

// webhook reconciles orders pushed by the provider. Errors other than bad
// signatures return non-2xx so the provider retries.
func (h *Handler) webhook(c *fiber.Ctx) error {
	if h.webhooks == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "webhooks are not configured"})
	}
	ev, err := h.webhooks.ParseWebhook(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		slog.Warn("rejected payment webhook", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid webhook"})
	}
	if !ev.Completed || ev.SessionID == "" {
		return c.JSON(fiber.Map{"received": true})
	}

	res, err := h.service.Verify(c.UserContext(), ev.SessionID)
	if err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"received": true, "success": res.Success})
}

func respondWithOrderID(c *fiber.Ctx, err error, orderID string) error {
	if orderID == "" || !errors.Is(err, apperror.ErrPaymentGateway) {
		return apperror.Respond(c, err)
	}
	return c.Status(apperror.Status(err)).JSON(fiber.Map{
		"error":   "Payment provider is unavailable, please try again",
		"orderId": orderID,
	})
}
