package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
)

var ErrNotFound = apperror.NotFound("order")

// Repository persists orders. Orders are never deleted.
type Repository interface {
	// Create inserts a pending order in one statement.
	Create(ctx context.Context, ord Order) (Order, error)
	// AttachProviderSession stores the provider handle and advances a pending
	// order to awaiting_payment. It reports false when the order was not
	// pending or already carried a handle.
	AttachProviderSession(ctx context.Context, orderID, providerSessionID string) (bool, error)
	// MarkPaid moves the order to paid and clears the owning session's cart,
	// both only if the order was not paid yet. The returned bool reports
	// whether this call performed the transition.
	MarkPaid(ctx context.Context, orderID, providerPaymentID string) (Order, bool, error)
	GetByID(ctx context.Context, id string) (Order, error)
	// ListByStatus returns up to limit orders with the given status, oldest
	// first.
	ListByStatus(ctx context.Context, status Status, limit int) ([]Order, error)
}

// CartClearer empties the cart of a session.
type CartClearer func(ctx context.Context, sessionID string) error

// InMemoryRepository is used for tests and local scenarios. The cart is
// cleared while the order lock is held so concurrent reconciliations clear it
// at most once.
type InMemoryRepository struct {
	mu        sync.Mutex
	orders    map[string]Order
	clearCart CartClearer
}

func NewInMemoryRepository(clearCart CartClearer) *InMemoryRepository {
	return &InMemoryRepository{orders: make(map[string]Order), clearCart: clearCart}
}

func (r *InMemoryRepository) Create(_ context.Context, ord Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ord.ID == "" {
		ord.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ord.CreatedAt, ord.UpdatedAt = now, now
	ord.Items = append([]LineItem(nil), ord.Items...)
	r.orders[ord.ID] = ord
	return clone(ord), nil
}

func (r *InMemoryRepository) AttachProviderSession(_ context.Context, orderID, providerSessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ord, ok := r.orders[orderID]
	if !ok {
		return false, ErrNotFound
	}
	if !ord.Status.CanTransitionTo(StatusAwaitingPayment) || ord.ProviderSessionID != nil {
		return false, nil
	}
	ord.ProviderSessionID = &providerSessionID
	ord.Status = StatusAwaitingPayment
	ord.UpdatedAt = time.Now().UTC()
	r.orders[orderID] = ord
	return true, nil
}

func (r *InMemoryRepository) MarkPaid(ctx context.Context, orderID, providerPaymentID string) (Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ord, ok := r.orders[orderID]
	if !ok {
		return Order{}, false, ErrNotFound
	}
	if !ord.Status.CanTransitionTo(StatusPaid) {
		return clone(ord), false, nil
	}
	if r.clearCart != nil {
		if err := r.clearCart(ctx, ord.SessionID); err != nil {
			return Order{}, false, err
		}
	}
	ord.Status = StatusPaid
	if providerPaymentID != "" {
		ord.ProviderPaymentID = &providerPaymentID
	}
	ord.UpdatedAt = time.Now().UTC()
	r.orders[orderID] = ord
	return clone(ord), true, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ord, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return clone(ord), nil
}

func (r *InMemoryRepository) ListByStatus(_ context.Context, status Status, limit int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Order, 0)
	for _, ord := range r.orders {
		if ord.Status == status {
			out = append(out, clone(ord))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// clone copies the items slice so callers cannot mutate the stored snapshot.
func clone(ord Order) Order {
	ord.Items = append([]LineItem(nil), ord.Items...)
	return ord
}
