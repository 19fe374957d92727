package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты оформления заказа для метки result.
const (
	CheckoutResultPlaced   = "placed"
	CheckoutResultRejected = "rejected"
	CheckoutResultFailed   = "failed"
)

// CheckoutMetrics содержит метрики оформления заказов.
type CheckoutMetrics struct {
	checkouts       *prometheus.CounterVec
	subOrders       prometheus.Counter
	partialFailures prometheus.Counter
	duration        prometheus.Histogram
	inFlight        prometheus.Gauge
}

// NewCheckoutMetrics создаёт метрики в DefaultRegisterer.
func NewCheckoutMetrics() *CheckoutMetrics {
	return NewCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCheckoutMetricsWithRegisterer создаёт метрики в заданном registerer.
func NewCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		checkouts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "marketplace_checkout_total",
			Help: "Total number of checkout attempts grouped by result",
		}, []string{"result"}),
		subOrders: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_checkout_suborders_total",
			Help: "Total number of per-seller orders created by checkouts",
		}),
		partialFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_checkout_partial_failures_total",
			Help: "Checkouts that failed after persisting some orders without rollback",
		}),
		duration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "marketplace_checkout_duration_seconds",
			Help:    "Duration of checkout in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "marketplace_checkout_in_flight",
			Help: "Number of checkouts currently being processed",
		}),
	}
}

// Started отмечает начало оформления и возвращает функцию завершения.
func (m *CheckoutMetrics) Started() func(result string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.inFlight.Inc()
	return func(result string) {
		m.inFlight.Dec()
		m.duration.Observe(time.Since(start).Seconds())
		m.checkouts.WithLabelValues(result).Inc()
	}
}

// RecordSubOrders увеличивает счётчик созданных заказов.
func (m *CheckoutMetrics) RecordSubOrders(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.subOrders.Add(float64(n))
}

// RecordPartialFailure отмечает оформление, оставившее часть заказов без отката.
func (m *CheckoutMetrics) RecordPartialFailure() {
	if m == nil {
		return
	}
	m.partialFailures.Inc()
}
