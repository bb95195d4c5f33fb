// Package payment talks to the hosted checkout provider. The rest of the
// application only sees the Gateway interface.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// SessionIDPlaceholder is substituted by the provider in the success URL
// with the id of the session the shopper just completed.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// MetadataOrderID is the metadata key used to correlate a provider session
// back to an order.
const MetadataOrderID = "orderId"

type LineItem struct {
	Name        string
	Description string
	UnitAmount  int64 // minor units
	Quantity    int64
}

type ShippingLine struct {
	DisplayName     string
	Amount          int64 // minor units
	MinBusinessDays int64
	MaxBusinessDays int64
}

// InPostLocker is the only shipping option offered at checkout.
var InPostLocker = ShippingLine{
	DisplayName:     "InPost Paczkomat",
	Amount:          1499,
	MinBusinessDays: 2,
	MaxBusinessDays: 4,
}

type CreateSessionRequest struct {
	Currency      string
	Lines         []LineItem
	Shipping      *ShippingLine
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string
}

type Session struct {
	ID          string
	RedirectURL string
}

type PaymentStatus string

const (
	StatusPaid              PaymentStatus = "paid"
	StatusUnpaid            PaymentStatus = "unpaid"
	StatusNoPaymentRequired PaymentStatus = "no_payment_required"
)

type SessionStatus struct {
	ID            string
	PaymentStatus PaymentStatus
	// PaymentConfirmationID identifies the captured payment, when there is one.
	PaymentConfirmationID string
	Metadata              map[string]string
}

func (s SessionStatus) Paid() bool {
	return s.PaymentStatus == StatusPaid
}

func (s SessionStatus) OrderID() string {
	return s.Metadata[MetadataOrderID]
}

// Gateway opens and inspects hosted checkout sessions. Implementations must
// honour ctx cancellation.
type Gateway interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (Session, error)
	RetrieveSession(ctx context.Context, id string) (SessionStatus, error)
}

// WebhookEvent is the part of a provider notification the shop acts on.
type WebhookEvent struct {
	Type      string
	SessionID string
	// Completed reports whether the event may mean the session is now paid.
	Completed bool
}

// WebhookParser is implemented by gateways that can authenticate push
// notifications from the provider.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (WebhookEvent, error)
}

// ToMinorUnits converts an amount with two decimal places to grosze/cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
