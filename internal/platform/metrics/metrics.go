package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	certificates    prometheus.Counter
	downloads       *prometheus.CounterVec
	collected       *prometheus.CounterVec
	notifyFailures  *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etatcivil_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "etatcivil_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etatcivil_declaration_transitions_total",
			Help: "Declaration workflow transitions by command and resulting status.",
		}, []string{"command", "status"}),
		certificates: factory.NewCounter(prometheus.CounterOpts{
			Name: "etatcivil_certificates_issued_total",
			Help: "Birth certificates issued.",
		}),
		downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etatcivil_certificate_downloads_total",
			Help: "Paid certificate copies by payment method.",
		}, []string{"method"}),
		collected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etatcivil_certificate_collected_amount_total",
			Help: "Amount collected for certificate copies by currency.",
		}, []string{"currency"}),
		notifyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etatcivil_notification_failures_total",
			Help: "Lifecycle notifications that could not be delivered, by sink.",
		}, []string{"sink"}),
	}
}

func (m *Metrics) ObserveRequest(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, status).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) Transition(command, status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(command, status).Inc()
}

func (m *Metrics) CertificateIssued() {
	if m == nil {
		return
	}
	m.certificates.Inc()
}

// PaymentConfirmed records a first confirmation of quantity copies.
func (m *Metrics) PaymentConfirmed(method, currency string, quantity int, amount float64) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues(method).Add(float64(quantity))
	m.collected.WithLabelValues(currency).Add(amount)
}

func (m *Metrics) NotificationFailed(sink string) {
	if m == nil {
		return
	}
	m.notifyFailures.WithLabelValues(sink).Inc()
}
