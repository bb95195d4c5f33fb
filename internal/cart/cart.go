package cart

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
	"github.com/wichananm65/coffee-shop-backend/internal/product"
)

// MaxQuantity caps a single cart entry, whether set directly or reached by
// repeated adds.
const MaxQuantity = 999

var ErrQuantityTooLarge = apperror.Validation("quantity", "quantity must be at most 999")

// Entry is one product in a session's cart. There is at most one entry per
// (session, product) pair.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"-"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}

// Line is an entry joined with the current catalog row.
type Line struct {
	Entry
	Product product.Product `json:"product"`
}

// Subtotal is the live price times quantity. Orders keep their own snapshot
// and never use this after creation.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
