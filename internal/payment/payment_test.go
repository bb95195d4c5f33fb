package payment_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/wichananm65/coffee-shop-backend/internal/payment"
	"github.com/wichananm65/coffee-shop-backend/internal/payment/paymenttest"
)

func TestToMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"25.00":  2500,
		"14.99":  1499,
		"0.1":    10,
		"159.95": 15995,
	}
	for in, want := range cases {
		assert.Equal(t, want, payment.ToMinorUnits(decimal.RequireFromString(in)), in)
	}
}

func TestBreakerGateway_TimesOutSlowProvider(t *testing.T) {
	fake := paymenttest.New(paymenttest.ModeSlow)
	g := payment.NewBreakerGateway(fake, payment.BreakerConfig{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := g.CreateSession(context.Background(), payment.CreateSessionRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestBreakerGateway_OpensAfterFailures(t *testing.T) {
	fake := paymenttest.New(paymenttest.ModeError)
	g := payment.NewBreakerGateway(fake, payment.BreakerConfig{FailureThreshold: 2, OpenFor: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := g.RetrieveSession(context.Background(), "cs_x")
		require.ErrorIs(t, err, paymenttest.ErrUnavailable)
	}

	// provider recovers but the breaker is still open
	fake.SetMode(paymenttest.ModePaid)
	_, err := g.RetrieveSession(context.Background(), "cs_x")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	// the create breaker is independent
	s, err := g.CreateSession(context.Background(), payment.CreateSessionRequest{SuccessURL: "http://shop/ok?session_id=" + payment.SessionIDPlaceholder})
	require.NoError(t, err)
	assert.Equal(t, "http://shop/ok?session_id="+s.ID, s.RedirectURL)
}

func TestBreakerGateway_ForwardsWebhooks(t *testing.T) {
	g := payment.NewBreakerGateway(paymenttest.New(paymenttest.ModePaid), payment.BreakerConfig{})
	ev, err := g.ParseWebhook([]byte("cs_test_9"), "sandbox")
	require.NoError(t, err)
	assert.True(t, ev.Completed)
	assert.Equal(t, "cs_test_9", ev.SessionID)
}

func TestFakeGateway_MarkPaid(t *testing.T) {
	fake := paymenttest.New(paymenttest.ModeUnpaid)
	ctx := context.Background()
	s, err := fake.CreateSession(ctx, payment.CreateSessionRequest{Metadata: map[string]string{payment.MetadataOrderID: "o1"}})
	require.NoError(t, err)

	st, err := fake.RetrieveSession(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, st.Paid())
	assert.Equal(t, "o1", st.OrderID())

	require.NoError(t, fake.MarkPaid(s.ID))
	st, err = fake.RetrieveSession(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, st.Paid())
	assert.NotEmpty(t, st.PaymentConfirmationID)
}

func TestStripeWebhookSecretRequired(t *testing.T) {
	g := payment.NewStripeGateway("sk_test_x", "")
	_, err := g.ParseWebhook([]byte(`{}`), "t=1,v1=abc")
	assert.ErrorIs(t, err, payment.ErrWebhookSecretMissing)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	g := payment.NewStripeGateway("sk_test_x", "whsec_test")
	body, _ := json.Marshal(stripe.Event{Type: "checkout.session.completed"})
	_, err := g.ParseWebhook(body, "t=1,v1=deadbeef")
	assert.Error(t, err)
}
