package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "alloy"

// Metrics — Prometheus метрики движка выполнения.
//
// Все методы безопасны для nil-получателя: компоненты,
// собранные без метрик (тесты, CLI), просто ничего не пишут.
type Metrics struct {
	actions    *prometheus.CounterVec
	retries    *prometheus.CounterVec
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	requests   *prometheus.CounterVec
}

// NewMetrics регистрирует метрики в reg.
// nil — prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_outcomes_total",
			Help:      "Final outcomes of workflow actions by type and status.",
		}, []string{"type", "status"}),

		retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_retries_total",
			Help:      "Failed action attempts that were retried.",
		}, []string{"type"}),

		executions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Workflow executions by result.",
		}, []string{"result"}),

		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Duration of a single action handler invocation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),

		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
	}
}

// ObserveAction фиксирует итог действия.
func (m *Metrics) ObserveAction(actionType, status string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(actionType, status).Inc()
}

// ObserveRetry фиксирует повторную попытку.
func (m *Metrics) ObserveRetry(actionType string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(actionType).Inc()
}

// ObserveExecution фиксирует итог выполнения workflow.
// result: "completed", "failed", "error".
func (m *Metrics) ObserveExecution(result string) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(result).Inc()
}

// ObserveDuration фиксирует длительность вызова handler'а.
func (m *Metrics) ObserveDuration(actionType string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(actionType).Observe(d.Seconds())
}

// ObserveRequest фиксирует HTTP-запрос к API.
func (m *Metrics) ObserveRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
