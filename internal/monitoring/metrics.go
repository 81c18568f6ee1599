package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine and HTTP collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	gamesCreated   prometheus.Counter
	gamesActivated prometheus.Counter
	gamesFinished  prometheus.Counter
	answers        *prometheus.CounterVec
	txRetries      *prometheus.CounterVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gamesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_games_created_total",
			Help: "Games opened in the waiting room",
		}),
		gamesActivated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_games_activated_total",
			Help: "Games paired with a second player",
		}),
		gamesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_games_finished_total",
			Help: "Games where both players answered every question",
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_answers_total",
			Help: "Recorded answers by verdict",
		}, []string{"status"}),
		txRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_tx_retries_total",
			Help: "Transactions retried after a transient storage conflict",
		}, []string{"operation"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		m.gamesCreated, m.gamesActivated, m.gamesFinished,
		m.answers, m.txRetries, m.requests, m.requestDuration,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) GameCreated() {
	if m != nil {
		m.gamesCreated.Inc()
	}
}

func (m *Metrics) GameActivated() {
	if m != nil {
		m.gamesActivated.Inc()
	}
}

func (m *Metrics) GameFinished() {
	if m != nil {
		m.gamesFinished.Inc()
	}
}

func (m *Metrics) AnswerRecorded(status string) {
	if m != nil {
		m.answers.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) TxRetried(operation string) {
	if m != nil {
		m.txRetries.WithLabelValues(operation).Inc()
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
