package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

var ErrWebhookSecretMissing = errors.New("stripe webhook secret is not configured")

// StripeGateway opens Stripe Checkout Sessions.
type StripeGateway struct {
	client        *checkoutsession.Client
	webhookSecret string
	methods       []string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{
		client: &checkoutsession.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: secretKey,
		},
		webhookSecret: webhookSecret,
		methods:       []string{"card", "blik", "p24"},
	}
}

func (g *StripeGateway) CreateSession(ctx context.Context, req CreateSessionRequest) (Session, error) {
	params := g.checkoutParams(req)
	params.Context = ctx
	cs, err := g.client.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("stripe create checkout session: %w", err)
	}
	return Session{ID: cs.ID, RedirectURL: cs.URL}, nil
}

func (g *StripeGateway) checkoutParams(req CreateSessionRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice(g.methods),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		Metadata:           req.Metadata,
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	for _, l := range req.Lines {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(l.Name),
		}
		if l.Description != "" {
			product.Description = stripe.String(l.Description)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(l.UnitAmount),
			},
			Quantity: stripe.Int64(l.Quantity),
		})
	}

	if s := req.Shipping; s != nil {
		params.ShippingOptions = []*stripe.CheckoutSessionShippingOptionParams{{
			ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
				Type:        stripe.String("fixed_amount"),
				DisplayName: stripe.String(s.DisplayName),
				FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
					Amount:   stripe.Int64(s.Amount),
					Currency: stripe.String(req.Currency),
				},
				DeliveryEstimate: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateParams{
					Minimum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMinimumParams{
						Unit:  stripe.String("business_day"),
						Value: stripe.Int64(s.MinBusinessDays),
					},
					Maximum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMaximumParams{
						Unit:  stripe.String("business_day"),
						Value: stripe.Int64(s.MaxBusinessDays),
					},
				},
			},
		}}
	}
	return params
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, id string) (SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := g.client.Get(id, params)
	if err != nil {
		return SessionStatus{}, fmt.Errorf("stripe retrieve checkout session: %w", err)
	}

	st := SessionStatus{
		ID:            cs.ID,
		PaymentStatus: PaymentStatus(cs.PaymentStatus),
		Metadata:      cs.Metadata,
	}
	if cs.PaymentIntent != nil {
		st.PaymentConfirmationID = cs.PaymentIntent.ID
	}
	return st, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the checkout
// session the event refers to.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	if g.webhookSecret == "" {
		return WebhookEvent{}, ErrWebhookSecretMissing
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("stripe webhook: %w", err)
	}
	return parseStripeEvent(event)
}

func parseStripeEvent(event stripe.Event) (WebhookEvent, error) {
	out := WebhookEvent{Type: string(event.Type)}
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		out.Completed = true
	default:
		return out, nil
	}
	if event.Data == nil {
		return out, errors.New("stripe webhook: event has no data")
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return out, fmt.Errorf("stripe webhook: decode checkout session: %w", err)
	}
	out.SessionID = cs.ID
	return out, nil
}
