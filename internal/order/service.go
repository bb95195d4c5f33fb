package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
	"github.com/wichananm65/coffee-shop-backend/internal/cart"
	"github.com/wichananm65/coffee-shop-backend/internal/logging"
	"github.com/wichananm65/coffee-shop-backend/internal/metrics"
	"github.com/wichananm65/coffee-shop-backend/internal/payment"
)

var ErrNotPending = fmt.Errorf("%w: order is not awaiting a payment session", apperror.ErrConflict)

// CartReader is the part of the cart ledger checkout needs.
type CartReader interface {
	Snapshot(ctx context.Context, sessionID string) ([]cart.Line, error)
}

type Config struct {
	Currency string
	// PublicBaseURL is the storefront origin used for success and cancel URLs.
	PublicBaseURL  string
	PaymentTimeout time.Duration
	Shipping       payment.ShippingLine
}

// Service runs the checkout lifecycle: cart snapshot, payment session and
// reconciliation.
type Service struct {
	repo    Repository
	carts   CartReader
	gateway payment.Gateway
	cfg     Config
	metrics *metrics.OrderMetrics
	log     *slog.Logger
}

func NewService(repo Repository, carts CartReader, gateway payment.Gateway, cfg Config) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "pln"
	}
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = 10 * time.Second
	}
	if cfg.Shipping == (payment.ShippingLine{}) {
		cfg.Shipping = payment.InPostLocker
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &Service{repo: repo, carts: carts, gateway: gateway, cfg: cfg, log: slog.Default()}
}

func (s *Service) WithMetrics(m *metrics.OrderMetrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) WithLogger(l *slog.Logger) *Service {
	if l != nil {
		s.log = l
	}
	return s
}

// CheckoutInput carries the buyer details collected by the checkout form.
type CheckoutInput struct {
	CustomerName        string               `json:"customerName"`
	CustomerEmail       string               `json:"customerEmail"`
	CustomerPhone       string               `json:"customerPhone"`
	CustomerType        string               `json:"customerType"`
	CompanyName         string               `json:"companyName"`
	CompanyNIP          string               `json:"companyNip"`
	ShippingDestination *ShippingDestination `json:"shippingDestination"`
}

type CheckoutResult struct {
	OrderID           string `json:"orderId"`
	ProviderSessionID string `json:"-"`
	URL               string `json:"url"`
}

type VerifyResult struct {
	Success        bool                  `json:"success"`
	Order          *Order                `json:"order,omitempty"`
	ProviderStatus payment.PaymentStatus `json:"status,omitempty"`
}

// Checkout creates the order and opens its payment session. When only the
// second step fails the result still carries the order id so the caller can
// retry with OpenPaymentSession.
func (s *Service) Checkout(ctx context.Context, sessionID string, in CheckoutInput) (CheckoutResult, error) {
	ord, err := s.Initiate(ctx, sessionID, in)
	if err != nil {
		return CheckoutResult{}, err
	}
	res, err := s.OpenPaymentSession(ctx, sessionID, ord.ID)
	if err != nil {
		return CheckoutResult{OrderID: ord.ID}, err
	}
	return res, nil
}

// Initiate validates the buyer, snapshots the cart and stores a pending
// order. An empty cart creates nothing.
func (s *Service) Initiate(ctx context.Context, sessionID string, in CheckoutInput) (Order, error) {
	if sessionID == "" {
		return Order{}, apperror.ErrUnauthorized
	}
	customer, shipping, err := validateCheckout(in)
	if err != nil {
		return Order{}, err
	}

	lines, err := s.carts.Snapshot(ctx, sessionID)
	if err != nil {
		return Order{}, fmt.Errorf("read cart: %w", err)
	}
	if len(lines) == 0 {
		return Order{}, apperror.ErrEmptyCart
	}

	// items and total come from the same read
	items := make([]LineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, LineItem{
			ProductID:   l.ProductID,
			Title:       l.Product.Title,
			Description: l.Product.Description,
			Weight:      l.Product.Weight,
			Type:        l.Product.Type,
			Price:       l.Product.Price,
			Quantity:    l.Quantity,
		})
	}

	ord, err := s.repo.Create(ctx, Order{
		SessionID:   sessionID,
		Status:      StatusPending,
		Customer:    customer,
		Shipping:    shipping,
		TotalAmount: Total(items),
		Currency:    s.cfg.Currency,
		Items:       items,
	})
	if err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	s.metrics.OrderInitiated()
	logging.Order(s.log, ord.ID, "initiate").Info("order created",
		"items", len(items), "total", ord.TotalAmount.StringFixed(2), "currency", ord.Currency)
	return ord, nil
}

// OpenPaymentSession asks the provider for a hosted checkout page for a
// pending order owned by sessionID. On failure the order stays pending.
func (s *Service) OpenPaymentSession(ctx context.Context, sessionID, orderID string) (CheckoutResult, error) {
	ord, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return CheckoutResult{}, err
	}
	// other sessions must not learn the order exists
	if ord.SessionID != sessionID {
		return CheckoutResult{}, ErrNotFound
	}
	if !ord.Status.CanTransitionTo(StatusAwaitingPayment) {
		return CheckoutResult{OrderID: ord.ID}, ErrNotPending
	}

	log := logging.Order(s.log, ord.ID, "open_payment_session")
	req := s.sessionRequest(ord)

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()
	sess, err := s.gateway.CreateSession(callCtx, req)
	if err != nil {
		s.metrics.PaymentSessionOpened("error")
		log.Error("payment session failed", "error", err)
		return CheckoutResult{OrderID: ord.ID}, apperror.Gateway("create_session", err)
	}

	attached, err := s.repo.AttachProviderSession(context.WithoutCancel(ctx), ord.ID, sess.ID)
	if err != nil {
		s.metrics.PaymentSessionOpened("error")
		return CheckoutResult{OrderID: ord.ID}, fmt.Errorf("attach provider session: %w", err)
	}
	if !attached {
		// a concurrent retry won; its redirect is the only one handed out
		s.metrics.PaymentSessionOpened("conflict")
		log.Warn("provider session not stored, order already moved on", "provider_session_id", sess.ID)
		return CheckoutResult{OrderID: ord.ID}, ErrNotPending
	}
	s.metrics.PaymentSessionOpened("ok")
	log.Info("payment session opened", "provider_session_id", sess.ID)

	return CheckoutResult{OrderID: ord.ID, ProviderSessionID: sess.ID, URL: sess.RedirectURL}, nil
}

func (s *Service) sessionRequest(ord Order) payment.CreateSessionRequest {
	lines := make([]payment.LineItem, 0, len(ord.Items))
	for _, it := range ord.Items {
		name := it.Title
		if it.Weight != "" && !strings.Contains(it.Title, it.Weight) {
			name += " " + it.Weight
		}
		lines = append(lines, payment.LineItem{
			Name:        name,
			Description: it.Description,
			UnitAmount:  payment.ToMinorUnits(it.Price),
			Quantity:    int64(it.Quantity),
		})
	}
	shipping := s.cfg.Shipping
	return payment.CreateSessionRequest{
		Currency:      ord.Currency,
		Lines:         lines,
		Shipping:      &shipping,
		SuccessURL:    s.cfg.PublicBaseURL + "/order-success?session_id=" + payment.SessionIDPlaceholder,
		CancelURL:     s.cfg.PublicBaseURL + "/checkout?canceled=true",
		CustomerEmail: ord.Customer.Email,
		Metadata:      map[string]string{payment.MetadataOrderID: ord.ID},
	}
}

// Verify reconciles an order with the provider's view of a checkout session.
// It is safe to call any number of times; the cart is cleared once.
func (s *Service) Verify(ctx context.Context, providerSessionID string) (VerifyResult, error) {
	if strings.TrimSpace(providerSessionID) == "" {
		return VerifyResult{}, apperror.Validation("providerSessionId", "provider session id is required")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()
	st, err := s.gateway.RetrieveSession(callCtx, providerSessionID)
	if err != nil {
		s.metrics.Reconciled("error")
		s.log.Error("retrieve payment session failed", "provider_session_id", providerSessionID, "step", "verify", "error", err)
		return VerifyResult{}, apperror.Gateway("retrieve_session", err)
	}

	orderID := st.OrderID()
	if !st.Paid() || orderID == "" {
		if st.Paid() {
			s.log.Warn("paid session without order metadata", "provider_session_id", providerSessionID, "step", "verify")
		}
		s.metrics.Reconciled("not_paid")
		return VerifyResult{Success: false, ProviderStatus: st.PaymentStatus}, nil
	}

	log := logging.Order(s.log, orderID, "verify")
	// the provider already took the money; finish the write even if the
	// shopper goes away
	ord, transitioned, err := s.repo.MarkPaid(context.WithoutCancel(ctx), orderID, st.PaymentConfirmationID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			log.Warn("paid session references unknown order", "provider_session_id", providerSessionID)
		}
		s.metrics.Reconciled("error")
		return VerifyResult{}, err
	}
	if ord.ProviderSessionID != nil && *ord.ProviderSessionID != providerSessionID {
		log.Warn("order paid through a different provider session",
			"provider_session_id", providerSessionID, "stored_provider_session_id", *ord.ProviderSessionID)
	}

	if transitioned {
		s.metrics.Reconciled("paid")
		log.Info("order paid", "provider_session_id", providerSessionID)
	} else {
		s.metrics.Reconciled("already_paid")
	}
	return VerifyResult{Success: true, Order: &ord}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAwaitingPayment returns orders whose payment was started but never
// confirmed, for manual reconciliation.
func (s *Service) ListAwaitingPayment(ctx context.Context, limit int) ([]Order, error) {
	return s.repo.ListByStatus(ctx, StatusAwaitingPayment, limit)
}

func validateCheckout(in CheckoutInput) (Customer, *ShippingDestination, error) {
	c := Customer{
		Name:  strings.TrimSpace(in.CustomerName),
		Email: strings.TrimSpace(in.CustomerEmail),
		Phone: strings.TrimSpace(in.CustomerPhone),
	}
	switch {
	case c.Name == "":
		return Customer{}, nil, apperror.Validation("customerName", "Missing customer information")
	case c.Email == "":
		return Customer{}, nil, apperror.Validation("customerEmail", "Missing customer information")
	case c.Phone == "":
		return Customer{}, nil, apperror.Validation("customerPhone", "Missing customer information")
	}
	if addr, err := mail.ParseAddress(c.Email); err != nil || addr.Address != c.Email {
		return Customer{}, nil, apperror.Validation("customerEmail", "Invalid email address")
	}

	switch CustomerType(strings.TrimSpace(in.CustomerType)) {
	case "", CustomerIndividual:
		c.Type = CustomerIndividual
	case CustomerCompany:
		c.Type = CustomerCompany
		name, nip := strings.TrimSpace(in.CompanyName), strings.TrimSpace(in.CompanyNIP)
		if name == "" {
			return Customer{}, nil, apperror.Validation("companyName", "Missing company information")
		}
		if nip == "" {
			return Customer{}, nil, apperror.Validation("companyNip", "Missing company information")
		}
		c.CompanyName, c.CompanyNIP = &name, &nip
	default:
		return Customer{}, nil, apperror.Validation("customerType", "customerType must be individual or company")
	}

	var shipping *ShippingDestination
	if d := in.ShippingDestination; d != nil && *d != (ShippingDestination{}) {
		dest := ShippingDestination{
			PointID:      strings.TrimSpace(d.PointID),
			PointName:    strings.TrimSpace(d.PointName),
			PointAddress: strings.TrimSpace(d.PointAddress),
		}
		if dest.PointID == "" {
			return Customer{}, nil, apperror.Validation("shippingDestination.pointId", "parcel locker id is required")
		}
		shipping = &dest
	}
	return c, shipping, nil
}
