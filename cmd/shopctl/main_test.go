package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/coffee-shop-backend/internal/cart"
	"github.com/wichananm65/coffee-shop-backend/internal/order"
	"github.com/wichananm65/coffee-shop-backend/internal/payment/paymenttest"
	"github.com/wichananm65/coffee-shop-backend/internal/product"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "seed", "verify", "orders", "admin"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

func TestVerifyCommand_Args(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	root.SetArgs([]string{"verify"})
	assert.Error(t, root.Execute(), "a session id is required without --all")

	root.SetArgs([]string{"verify", "--all", "cs_1"})
	assert.Error(t, root.Execute(), "--all takes no session id")
}

func TestOrdersCommand_RejectsUnknownStatus(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"orders", "--status", "shipped"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}

func newTestOrderService(t *testing.T, gw *paymenttest.Gateway) (*order.Service, *cart.Service) {
	t.Helper()
	catalog := product.NewInMemoryRepository([]product.Product{
		{ID: "p1", Slug: "ciemne-250", Title: "Ciemne Palenie", Weight: "250g", Type: "beans", Roast: "dark", Price: decimal.RequireFromString("49.00"), InStock: true},
	})
	cartRepo := cart.NewInMemoryRepository(catalog)
	carts := cart.NewService(cartRepo, product.NewService(catalog))
	orders := order.NewInMemoryRepository(cartRepo.Clear)
	return order.NewService(orders, carts, gw, order.Config{PublicBaseURL: "http://localhost:5173"}), carts
}

func checkoutFor(t *testing.T, svc *order.Service, carts *cart.Service, sessionID string) order.CheckoutResult {
	t.Helper()
	ctx := context.Background()
	_, err := carts.Add(ctx, sessionID, "p1", 1)
	require.NoError(t, err)
	res, err := svc.Checkout(ctx, sessionID, order.CheckoutInput{
		CustomerName:  "Anna Nowak",
		CustomerEmail: "anna@example.com",
		CustomerPhone: "500600700",
	})
	require.NoError(t, err)
	return res
}

func TestReconcileAll(t *testing.T) {
	gw := paymenttest.New(paymenttest.ModeUnpaid)
	svc, carts := newTestOrderService(t, gw)

	paid := checkoutFor(t, svc, carts, "s1")
	unpaid := checkoutFor(t, svc, carts, "s2")
	require.NoError(t, gw.MarkPaid(paid.ProviderSessionID))

	var out bytes.Buffer
	require.NoError(t, reconcileAll(context.Background(), svc, &out, 10))

	text := out.String()
	assert.Contains(t, text, paid.OrderID)
	assert.Contains(t, text, unpaid.OrderID)
	assert.Contains(t, text, "checked 2 orders, 1 paid, 0 failed")

	ord, err := svc.Get(context.Background(), paid.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, ord.Status)

	// the paid order drops out of the next run
	out.Reset()
	require.NoError(t, reconcileAll(context.Background(), svc, &out, 10))
	assert.Contains(t, out.String(), "checked 1 orders, 0 paid, 0 failed")
}

type failingReconciler struct {
	orders []order.Order
}

func (f failingReconciler) ListAwaitingPayment(context.Context, int) ([]order.Order, error) {
	return f.orders, nil
}

func (f failingReconciler) Verify(context.Context, string) (order.VerifyResult, error) {
	return order.VerifyResult{}, errors.New("provider unavailable")
}

func TestReconcileAll_ReportsFailures(t *testing.T) {
	psid := "cs_test_9"
	rec := failingReconciler{orders: []order.Order{
		{ID: "o1", ProviderSessionID: &psid},
		{ID: "o2"},
	}}

	var out bytes.Buffer
	err := reconcileAll(context.Background(), rec, &out, 10)
	require.Error(t, err)
	assert.Contains(t, out.String(), "error: provider unavailable")
	assert.Contains(t, out.String(), "checked 2 orders, 0 paid, 1 failed")
}

func TestListOrders(t *testing.T) {
	gw := paymenttest.New(paymenttest.ModeUnpaid)
	svc, carts := newTestOrderService(t, gw)
	res := checkoutFor(t, svc, carts, "s1")

	var out bytes.Buffer
	repoOrders, err := svc.ListAwaitingPayment(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, repoOrders, 1)

	require.NoError(t, listOrders(context.Background(), staticLister(repoOrders), &out, order.StatusAwaitingPayment, 10))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], res.OrderID)
	assert.Contains(t, lines[1], "49.00 pln")
	assert.Contains(t, lines[1], res.ProviderSessionID)
}

type staticLister []order.Order

func (s staticLister) ListByStatus(context.Context, order.Status, int) ([]order.Order, error) {
	return s, nil
}
