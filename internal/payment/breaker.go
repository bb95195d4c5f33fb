package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerGateway decorates a Gateway with a per-call deadline and a circuit
// breaker per operation. While a breaker is open calls fail fast with
// gobreaker.ErrOpenState instead of waiting on a provider that is down.
type BreakerGateway struct {
	next     Gateway
	timeout  time.Duration
	create   *gobreaker.CircuitBreaker[Session]
	retrieve *gobreaker.CircuitBreaker[SessionStatus]
}

type BreakerConfig struct {
	// Timeout bounds each provider call. Zero leaves the caller's deadline.
	Timeout time.Duration
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
	// OpenFor is how long the breaker stays open before probing again.
	OpenFor time.Duration
}

func NewBreakerGateway(next Gateway, cfg BreakerConfig) *BreakerGateway {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     cfg.OpenFor,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= cfg.FailureThreshold
			},
			// a shopper closing the tab says nothing about provider health
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("payment circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}
	}
	return &BreakerGateway{
		next:     next,
		timeout:  cfg.Timeout,
		create:   gobreaker.NewCircuitBreaker[Session](settings("payment.create_session")),
		retrieve: gobreaker.NewCircuitBreaker[SessionStatus](settings("payment.retrieve_session")),
	}
}

func (g *BreakerGateway) CreateSession(ctx context.Context, req CreateSessionRequest) (Session, error) {
	return g.create.Execute(func() (Session, error) {
		ctx, cancel := g.withTimeout(ctx)
		defer cancel()
		return g.next.CreateSession(ctx, req)
	})
}

func (g *BreakerGateway) RetrieveSession(ctx context.Context, id string) (SessionStatus, error) {
	return g.retrieve.Execute(func() (SessionStatus, error) {
		ctx, cancel := g.withTimeout(ctx)
		defer cancel()
		return g.next.RetrieveSession(ctx, id)
	})
}

// ParseWebhook forwards to the wrapped gateway when it supports webhooks.
func (g *BreakerGateway) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	p, ok := g.next.(WebhookParser)
	if !ok {
		return WebhookEvent{}, ErrWebhooksUnsupported
	}
	return p.ParseWebhook(payload, signature)
}

var ErrWebhooksUnsupported = errors.New("payment gateway does not support webhooks")

func (g *BreakerGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}
