package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты оформления заказа для label "result".
const (
	ResultSucceeded        = "succeeded"
	ResultFailed           = "failed"
	ResultValidationFailed = "validation_failed"
	ResultEmptyCart        = "empty_cart"
)

// CheckoutMetrics содержит метрики корзины и оформления заказа.
type CheckoutMetrics struct {
	// Оформление
	submissions          *prometheus.CounterVec
	submissionDuration   prometheus.Histogram
	notificationFailures prometheus.Counter
	orderGrandTotal      prometheus.Histogram

	// Корзина
	cartMutations *prometheus.CounterVec
	openCarts     prometheus.Gauge

	// Очистка корзин
	cartCleanupRuns *prometheus.CounterVec
	cartsExpired    prometheus.Counter
	cartsEvicted    prometheus.Counter
}

// NewCheckoutMetrics создаёт метрики в DefaultRegisterer.
func NewCheckoutMetrics() *CheckoutMetrics {
	return NewCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCheckoutMetricsWithRegisterer создаёт метрики в переданном registerer
// (в тестах — в изолированном prometheus.NewRegistry()).
func NewCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		submissions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_submissions_total",
			Help: "Total number of checkout submissions grouped by result",
		}, []string{"result"}),
		submissionDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_checkout_submission_duration_seconds",
			Help:    "Duration of checkout submissions including persistence and notification",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		notificationFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_order_notification_failures_total",
			Help: "Total number of order confirmation notifications that failed",
		}),
		orderGrandTotal: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_order_grand_total",
			Help:    "Grand total of placed orders in currency units",
			Buckets: []float64{100, 500, 1000, 2500, 5000, 10000, 25000},
		}),
		cartMutations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Total number of applied cart mutations grouped by operation",
		}, []string{"op"}),
		openCarts: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_open_carts",
			Help: "Number of cart sessions loaded in this process",
		}),
		cartCleanupRuns: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_cleanup_runs_total",
			Help: "Total number of cart cleanup runs grouped by result",
		}, []string{"result"}),
		cartsExpired: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_carts_expired_total",
			Help: "Total number of stored carts deleted after TTL",
		}),
		cartsEvicted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_sessions_evicted_total",
			Help: "Total number of idle cart sessions unloaded from memory",
		}),
	}
}

// RecordSubmission увеличивает счётчик оформлений с указанным результатом.
func (m *CheckoutMetrics) RecordSubmission(result string) {
	m.submissions.WithLabelValues(result).Inc()
}

// RecordSubmissionDuration записывает длительность оформления.
func (m *CheckoutMetrics) RecordSubmissionDuration(d time.Duration) {
	m.submissionDuration.Observe(d.Seconds())
}

// RecordNotificationFailure увеличивает счётчик неудачных уведомлений.
func (m *CheckoutMetrics) RecordNotificationFailure() {
	m.notificationFailures.Inc()
}

// RecordOrderGrandTotal записывает итог оформленного заказа.
func (m *CheckoutMetrics) RecordOrderGrandTotal(total float64) {
	m.orderGrandTotal.Observe(total)
}

// RecordCartMutation увеличивает счётчик мутаций корзины.
func (m *CheckoutMetrics) RecordCartMutation(op string) {
	m.cartMutations.WithLabelValues(op).Inc()
}

// SetOpenCarts выставляет число открытых корзин.
func (m *CheckoutMetrics) SetOpenCarts(n int) {
	m.openCarts.Set(float64(n))
}

// RecordCartCleanup учитывает прогон очистки корзин.
func (m *CheckoutMetrics) RecordCartCleanup(result string, expired, evicted int) {
	m.cartCleanupRuns.WithLabelValues(result).Inc()
	if expired > 0 {
		m.cartsExpired.Add(float64(expired))
	}
	if evicted > 0 {
		m.cartsEvicted.Add(float64(evicted))
	}
}
