// Package metrics exposes Prometheus collectors for the workflows. A nil *Metrics is valid
// and records nothing.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/httpx"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "warehouse"

type Metrics struct {
	Registry *prometheus.Registry

	operations    *prometheus.CounterVec
	stockMoved    *prometheus.CounterVec
	stockRejected prometheus.Counter
	reconcile     *prometheus.GaugeVec
	httpDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Workflow operations by entity, operation and outcome kind.",
		}, []string{"entity", "operation", "outcome"}),
		stockMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_units_moved_total",
			Help:      "Absolute stock units moved, by movement reason.",
		}, []string{"reason"}),
		stockRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_insufficient_total",
			Help:      "Adjustments refused because stock would go negative.",
		}),
		reconcile: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconciliation_discrepancies",
			Help:      "Discrepancies found by the last reconciliation run, by check.",
		}, []string{"check"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operations, m.stockMoved, m.stockRejected, m.reconcile, m.httpDuration,
	)
	return m
}

// Operation counts one service call; outcome is "ok" or the error kind.
func (m *Metrics) Operation(entity, op, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(entity, op, outcome).Inc()
}

func (m *Metrics) StockMoved(reason string, delta int) {
	if m == nil {
		return
	}
	if delta < 0 {
		delta = -delta
	}
	m.stockMoved.WithLabelValues(reason).Add(float64(delta))
}

func (m *Metrics) InsufficientStock() {
	if m == nil {
		return
	}
	m.stockRejected.Inc()
}

func (m *Metrics) Discrepancies(check string, n int) {
	if m == nil {
		return
	}
	m.reconcile.WithLabelValues(check).Set(float64(n))
}

// Middleware records request latency under the matched route pattern.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			// the app ErrorHandler writes the response only after this returns
			status = errorStatus(err)
		}
		m.httpDuration.
			WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}

func errorStatus(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return httpx.StatusOf(ae.Kind)
	}
	return fiber.StatusInternalServerError
}

// Outcome is the label value for an operation result.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperr.KindOf(err))
}
