package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// Middleware records one sample per request, labelled with the matched route
// pattern rather than the raw path.
func (m *ServerMetrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
		return err
	}
}

// OrderMetrics counts checkout lifecycle outcomes.
type OrderMetrics struct {
	Initiated      prometheus.Counter
	PaymentSession *prometheus.CounterVec
	Reconciliation *prometheus.CounterVec
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	initiated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_initiated_total",
		Help:      "Orders created from a cart snapshot.",
	})
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_sessions_total",
		Help:      "Attempts to open a hosted payment session.",
	}, []string{"result"})
	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_reconciliations_total",
		Help:      "Verification calls by outcome.",
	}, []string{"outcome"})

	reg.MustRegister(initiated, sessions, reconciliations)
	return &OrderMetrics{Initiated: initiated, PaymentSession: sessions, Reconciliation: reconciliations}
}

func (m *OrderMetrics) OrderInitiated() {
	if m == nil {
		return
	}
	m.Initiated.Inc()
}

func (m *OrderMetrics) PaymentSessionOpened(result string) {
	if m == nil {
		return
	}
	m.PaymentSession.WithLabelValues(result).Inc()
}

func (m *OrderMetrics) Reconciled(outcome string) {
	if m == nil {
		return
	}
	m.Reconciliation.WithLabelValues(outcome).Inc()
}

// Handler exposes the given gatherer on a Fiber route.
func Handler(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
