package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "healthconsultant"

const (
	OutcomeAdmitted = "admitted"
	OutcomeDenied   = "denied"

	SourceRecordEndpoint = "record_endpoint"
	SourceConsultation   = "consultation"
)

// application-level instruments; every method is safe on a nil receiver
type Metrics struct {
	interactions       *prometheus.CounterVec
	recordFailures     *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	reportInteractions prometheus.Gauge
	reportPrompts      prometheus.Gauge
	reportUsers        prometheus.Gauge
}

// creates and registers the instruments on registerer
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Entitlement decisions by interaction type and outcome.",
		}, []string{"type", "outcome"}),
		recordFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_record_failures_total",
			Help:      "Usage ledger writes that failed, by call site.",
		}, []string{"source"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		reportInteractions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_month_interactions",
			Help:      "Interactions recorded in the previous calendar month.",
		}),
		reportPrompts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_month_prompts",
			Help:      "Prompt units recorded in the previous calendar month.",
		}),
		reportUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_month_active_users",
			Help:      "Distinct users with usage in the previous calendar month.",
		}),
	}

	registerer.MustRegister(
		m.interactions,
		m.recordFailures,
		m.httpDuration,
		m.reportInteractions,
		m.reportPrompts,
		m.reportUsers,
	)

	return m
}

func (m *Metrics) InteractionAdmitted(interactionType string) {
	if m == nil {
		return
	}

	m.interactions.WithLabelValues(interactionType, OutcomeAdmitted).Inc()
}

func (m *Metrics) InteractionDenied(interactionType string) {
	if m == nil {
		return
	}

	m.interactions.WithLabelValues(interactionType, OutcomeDenied).Inc()
}

func (m *Metrics) RecordFailed(source string) {
	if m == nil {
		return
	}

	m.recordFailures.WithLabelValues(source).Inc()
}

// publishes the totals of the monthly usage report
func (m *Metrics) SetMonthlyReport(interactions, prompts, users int) {
	if m == nil {
		return
	}

	m.reportInteractions.Set(float64(interactions))
	m.reportPrompts.Set(float64(prompts))
	m.reportUsers.Set(float64(users))
}

// observes request latency; unmatched routes share one label
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		if m == nil {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		m.httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// serves the registry in the prometheus exposition format
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
