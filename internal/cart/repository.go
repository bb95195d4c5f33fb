package cart

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
	"github.com/wichananm65/coffee-shop-backend/internal/product"
)

var ErrNotFound = apperror.NotFound("cart item")

// Repository stores cart entries. Every method is scoped to a session so one
// shopper can never read or change another shopper's cart.
type Repository interface {
	// Add inserts the entry or increments the quantity of the existing one in
	// a single atomic step. It returns ErrQuantityTooLarge instead of growing
	// an entry past MaxQuantity.
	Add(ctx context.Context, sessionID, productID string, qty int) (Entry, error)
	SetQuantity(ctx context.Context, sessionID, entryID string, qty int) (Entry, error)
	Remove(ctx context.Context, sessionID, entryID string) error
	Clear(ctx context.Context, sessionID string) error
	// Lines returns the entries joined with their products in one read.
	Lines(ctx context.Context, sessionID string) ([]Line, error)
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu       sync.Mutex
	entries  map[string][]Entry
	products product.Repository
}

func NewInMemoryRepository(products product.Repository) *InMemoryRepository {
	return &InMemoryRepository{
		entries:  make(map[string][]Entry),
		products: products,
	}
}

func (r *InMemoryRepository) Add(_ context.Context, sessionID, productID string, qty int) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.entries[sessionID]
	for i := range list {
		if list[i].ProductID == productID {
			if list[i].Quantity+qty > MaxQuantity {
				return Entry{}, ErrQuantityTooLarge
			}
			list[i].Quantity += qty
			return list[i], nil
		}
	}
	e := Entry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		ProductID: productID,
		Quantity:  qty,
		CreatedAt: time.Now().UTC(),
	}
	r.entries[sessionID] = append(list, e)
	return e, nil
}

func (r *InMemoryRepository) SetQuantity(_ context.Context, sessionID, entryID string, qty int) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.entries[sessionID]
	for i := range list {
		if list[i].ID == entryID {
			list[i].Quantity = qty
			return list[i], nil
		}
	}
	return Entry{}, ErrNotFound
}

func (r *InMemoryRepository) Remove(_ context.Context, sessionID, entryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.entries[sessionID]
	for i := range list {
		if list[i].ID == entryID {
			r.entries[sessionID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *InMemoryRepository) Clear(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sessionID)
	return nil
}

func (r *InMemoryRepository) Lines(ctx context.Context, sessionID string) ([]Line, error) {
	r.mu.Lock()
	list := make([]Entry, len(r.entries[sessionID]))
	copy(list, r.entries[sessionID])
	r.mu.Unlock()

	ids := make([]string, 0, len(list))
	for _, e := range list {
		ids = append(ids, e.ProductID)
	}
	products, err := r.products.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	out := make([]Line, 0, len(list))
	for _, e := range list {
		// entries of deleted products disappear, like the ON DELETE CASCADE
		p, ok := byID[e.ProductID]
		if !ok {
			continue
		}
		out = append(out, Line{Entry: e, Product: p})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
