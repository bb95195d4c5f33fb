package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending         Status = "pending"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPaid            Status = "paid"
)

// CanTransitionTo reports whether moving from s to next is a forward step.
// pending may jump straight to paid when the provider confirms a payment
// whose session handle was never stored.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusAwaitingPayment || next == StatusPaid
	case StatusAwaitingPayment:
		return next == StatusPaid
	}
	return false
}

type CustomerType string

const (
	CustomerIndividual CustomerType = "individual"
	CustomerCompany    CustomerType = "company"
)

type Customer struct {
	Type        CustomerType `json:"type"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`
	CompanyName *string      `json:"companyName,omitempty"`
	CompanyNIP  *string      `json:"companyNip,omitempty"`
}

// ShippingDestination is the InPost parcel locker picked by the buyer.
type ShippingDestination struct {
	PointID      string `json:"pointId"`
	PointName    string `json:"pointName"`
	PointAddress string `json:"pointAddress"`
}

// LineItem is a copy of a cart line taken when the order is created. It is
// never recomputed from the catalog.
type LineItem struct {
	ProductID   string          `json:"productId"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Weight      string          `json:"weight"`
	Type        string          `json:"type"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

type Order struct {
	ID                string               `json:"id"`
	SessionID         string               `json:"-"`
	ProviderSessionID *string              `json:"providerSessionId,omitempty"`
	ProviderPaymentID *string              `json:"providerPaymentId,omitempty"`
	Status            Status               `json:"status"`
	Customer          Customer             `json:"customer"`
	Shipping          *ShippingDestination `json:"shipping,omitempty"`
	TotalAmount       decimal.Decimal      `json:"totalAmount"`
	Currency          string               `json:"currency"`
	Items             []LineItem           `json:"items"`
	CreatedAt         time.Time            `json:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt"`
}

// Total sums price times quantity over items.
func Total(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total.Round(2)
}
