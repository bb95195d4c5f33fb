// Package paymenttest provides an in-memory payment gateway. It backs the
// test suites and the "sandbox" provider used for local development.
package paymenttest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wichananm65/coffee-shop-backend/internal/payment"
)

type Mode int

const (
	// ModePaid sessions report paid as soon as they are created.
	ModePaid Mode = iota
	// ModeUnpaid sessions stay unpaid until MarkPaid is called.
	ModeUnpaid
	// ModeSlow calls block until ctx is done.
	ModeSlow
	// ModeError calls fail with ErrUnavailable.
	ModeError
)

var (
	ErrUnavailable    = errors.New("paymenttest: provider unavailable")
	ErrUnknownSession = errors.New("paymenttest: no such session")
)

type record struct {
	req    payment.CreateSessionRequest
	status payment.PaymentStatus
	intent string
}

type Gateway struct {
	mu        sync.Mutex
	mode      Mode
	seq       int
	sessions  map[string]*record
	requests  []payment.CreateSessionRequest
	retrieved int
}

var _ payment.Gateway = (*Gateway)(nil)
var _ payment.WebhookParser = (*Gateway)(nil)

func New(mode Mode) *Gateway {
	return &Gateway{mode: mode, sessions: make(map[string]*record)}
}

func (g *Gateway) SetMode(m Mode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode = m
}

func (g *Gateway) CreateSession(ctx context.Context, req payment.CreateSessionRequest) (payment.Session, error) {
	if err := g.misbehave(ctx); err != nil {
		return payment.Session{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	id := fmt.Sprintf("cs_test_%d", g.seq)
	status := payment.StatusUnpaid
	if g.mode == ModePaid {
		status = payment.StatusPaid
	}
	g.sessions[id] = &record{req: req, status: status}
	g.requests = append(g.requests, req)

	// the sandbox "hosted page" is the success page itself
	redirect := strings.ReplaceAll(req.SuccessURL, payment.SessionIDPlaceholder, id)
	return payment.Session{ID: id, RedirectURL: redirect}, nil
}

func (g *Gateway) RetrieveSession(ctx context.Context, id string) (payment.SessionStatus, error) {
	if err := g.misbehave(ctx); err != nil {
		return payment.SessionStatus{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.retrieved++
	rec, ok := g.sessions[id]
	if !ok {
		return payment.SessionStatus{}, ErrUnknownSession
	}
	meta := make(map[string]string, len(rec.req.Metadata))
	for k, v := range rec.req.Metadata {
		meta[k] = v
	}
	st := payment.SessionStatus{ID: id, PaymentStatus: rec.status, Metadata: meta}
	if rec.status == payment.StatusPaid {
		st.PaymentConfirmationID = rec.intent
		if st.PaymentConfirmationID == "" {
			st.PaymentConfirmationID = "pi_" + id
		}
	}
	return st, nil
}

// MarkPaid flips an existing session to paid, as if the shopper completed
// the hosted page.
func (g *Gateway) MarkPaid(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.sessions[id]
	if !ok {
		return ErrUnknownSession
	}
	rec.status = payment.StatusPaid
	return nil
}

// AddSession registers a session that was not created through
// CreateSession, e.g. one whose metadata points at an arbitrary order.
func (g *Gateway) AddSession(id string, status payment.PaymentStatus, metadata map[string]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[id] = &record{req: payment.CreateSessionRequest{Metadata: metadata}, status: status}
}

// Requests returns every CreateSession request received so far.
func (g *Gateway) Requests() []payment.CreateSessionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]payment.CreateSessionRequest, len(g.requests))
	copy(out, g.requests)
	return out
}

func (g *Gateway) Retrievals() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.retrieved
}

// ParseWebhook accepts an unsigned payload that is just a session id. The
// signature must equal "sandbox".
func (g *Gateway) ParseWebhook(payload []byte, signature string) (payment.WebhookEvent, error) {
	if signature != "sandbox" {
		return payment.WebhookEvent{}, errors.New("paymenttest: bad signature")
	}
	return payment.WebhookEvent{
		Type:      "checkout.session.completed",
		SessionID: strings.TrimSpace(string(payload)),
		Completed: true,
	}, nil
}

func (g *Gateway) misbehave(ctx context.Context) error {
	g.mu.Lock()
	mode := g.mode
	g.mu.Unlock()

	switch mode {
	case ModeError:
		return ErrUnavailable
	case ModeSlow:
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Minute):
			return ErrUnavailable
		}
	}
	return ctx.Err()
}
