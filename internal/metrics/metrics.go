package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

type Metrics struct {
	CartMutations       *prometheus.CounterVec
	CouponApplications  *prometheus.CounterVec
	CheckoutSubmissions *prometheus.CounterVec
	APILatencyMS        *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the storefront collectors on reg. Passing a fresh
// prometheus.NewRegistry() keeps tests independent of the global registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		CartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by operation and result.",
		}, []string{"op", "result"}),
		CouponApplications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_applications_total",
			Help:      "Coupon application attempts by result.",
		}, []string{"result"}),
		CheckoutSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_submissions_total",
			Help:      "Order submissions by payment method and result.",
		}, []string{"method", "result"}),
		APILatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_ms",
			Help:      "Remote API latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"endpoint"}),
		gatherer: reg,
	}
	reg.MustRegister(m.CartMutations, m.CouponApplications, m.CheckoutSubmissions, m.APILatencyMS)
	return m
}

// Nop returns collectors registered on a private registry.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) CartMutation(op string, err error) {
	m.CartMutations.WithLabelValues(op, result(err)).Inc()
}

func (m *Metrics) CouponApplication(err error) {
	m.CouponApplications.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) CheckoutSubmission(method string, err error) {
	m.CheckoutSubmissions.WithLabelValues(method, result(err)).Inc()
}

func (m *Metrics) ObserveAPI(endpoint string, start time.Time) {
	m.APILatencyMS.WithLabelValues(endpoint).Observe(float64(time.Since(start).Milliseconds()))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
