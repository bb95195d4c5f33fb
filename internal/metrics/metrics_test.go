package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	sm := NewServerMetrics(reg)
	om := NewOrderMetrics(reg)

	app := fiber.New()
	app.Use(sm.Middleware())
	app.Get("/api/order/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })
	app.Get("/metrics", Handler(reg))

	for _, id := range []string{"a", "b"} {
		res, err := app.Test(httptest.NewRequest("GET", "/api/order/"+id, nil))
		if err != nil {
			t.Fatal(err)
		}
		if res.StatusCode != fiber.StatusNotFound {
			t.Fatalf("expected 404, got %d", res.StatusCode)
		}
	}
	if got := testutil.ToFloat64(sm.Requests.WithLabelValues("/api/order/:id", "404")); got != 2 {
		t.Fatalf("expected 2 samples on route pattern, got %v", got)
	}

	om.Reconciled("paid")
	res, _ := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), `storefront_order_reconciliations_total{outcome="paid"} 1`) {
		t.Fatalf("reconciliation counter missing from exposition:\n%s", string(b))
	}
}

func TestNilOrderMetricsIsNoop(t *testing.T) {
	var om *OrderMetrics
	om.OrderInitiated()
	om.PaymentSessionOpened("ok")
	om.Reconciled("paid")
}
