package cart

import (
	"context"
	"strings"

	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
	"github.com/wichananm65/coffee-shop-backend/internal/product"
)

// Catalog is the part of the product service the cart depends on.
type Catalog interface {
	GetByID(ctx context.Context, id string) (product.Product, error)
}

// Service orchestrates cart operations. The session token is always passed
// explicitly.
type Service struct {
	repo     Repository
	products Catalog
}

func NewService(repo Repository, products Catalog) *Service {
	return &Service{repo: repo, products: products}
}

// Add puts qty units of productID into the cart, incrementing an existing
// entry for the same product. An increment that would pass MaxQuantity is
// rejected and leaves the entry unchanged.
func (s *Service) Add(ctx context.Context, sessionID, productID string, qty int) (Entry, error) {
	if err := requireSession(sessionID); err != nil {
		return Entry{}, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Entry{}, apperror.Validation("productId", "productId is required")
	}
	if qty < 1 {
		return Entry{}, apperror.Validation("quantity", "quantity must be a positive integer")
	}
	if qty > MaxQuantity {
		return Entry{}, ErrQuantityTooLarge
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return Entry{}, err
	}
	return s.repo.Add(ctx, sessionID, productID, qty)
}

func (s *Service) SetQuantity(ctx context.Context, sessionID, entryID string, qty int) (Entry, error) {
	if err := requireSession(sessionID); err != nil {
		return Entry{}, err
	}
	if qty < 1 {
		return Entry{}, apperror.Validation("quantity", "quantity must be at least 1")
	}
	if qty > MaxQuantity {
		return Entry{}, ErrQuantityTooLarge
	}
	return s.repo.SetQuantity(ctx, sessionID, entryID, qty)
}

// Remove deletes one entry. Removing a missing entry is not an error.
func (s *Service) Remove(ctx context.Context, sessionID, entryID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	return s.repo.Remove(ctx, sessionID, entryID)
}

func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	return s.repo.Clear(ctx, sessionID)
}

// List returns the cart for display with current catalog prices.
func (s *Service) List(ctx context.Context, sessionID string) ([]Line, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	return s.repo.Lines(ctx, sessionID)
}

// Snapshot reads the cart once for checkout. Callers must derive both the
// order items and the total from the returned slice.
func (s *Service) Snapshot(ctx context.Context, sessionID string) ([]Line, error) {
	return s.List(ctx, sessionID)
}

func requireSession(sessionID string) error {
	if sessionID == "" {
		return apperror.ErrUnauthorized
	}
	return nil
}
