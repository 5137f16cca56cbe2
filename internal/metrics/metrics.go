// Package metrics holds the Prometheus collectors exported on the metrics listener.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "oauth"

type Metrics struct {
	registry          *prometheus.Registry
	tokensIssued      *prometheus.CounterVec
	tokenErrors       *prometheus.CounterVec
	gateRejections    *prometheus.CounterVec
	proxyRequests     *prometheus.CounterVec
	clientsRegistered prometheus.Counter
}

// New creates the collectors on a private registry so multiple servers (tests) never collide.
func New() *Metrics {
	m := &Metrics{
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Access tokens issued, by grant type.",
		}, []string{"grant_type"}),
		tokenErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_errors_total",
			Help:      "Rejected token endpoint requests, by OAuth error code.",
		}, []string{"error"}),
		gateRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_rejections_total",
			Help:      "Requests rejected by the bearer gate, by reason.",
		}, []string{"reason"}),
		proxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_requests_total",
			Help:      "Requests forwarded upstream, by response status code.",
		}, []string{"code"}),
		clientsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clients_registered_total",
			Help:      "Dynamically registered OAuth clients.",
		}),
	}

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.tokensIssued,
		m.tokenErrors,
		m.gateRejections,
		m.proxyRequests,
		m.clientsRegistered,
	)
	return m
}

// Handler serves the registry in the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) TokenIssued(grantType string) {
	m.tokensIssued.WithLabelValues(grantType).Inc()
}

func (m *Metrics) TokenError(code string) {
	m.tokenErrors.WithLabelValues(code).Inc()
}

func (m *Metrics) GateRejected(reason string) {
	m.gateRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) Proxied(statusCode int) {
	m.proxyRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (m *Metrics) ClientRegistered() {
	m.clientsRegistered.Inc()
}
