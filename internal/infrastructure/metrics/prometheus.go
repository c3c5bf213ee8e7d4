// Package metrics provides Prometheus metrics for the Pepegotchi bot.
//
// Every recording method is safe on a nil *Manager, so components can be
// built without metrics in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom histogram buckets (seconds) for latency metrics.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry sets the Prometheus registry metrics are registered on and
// served from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// WithRuntimeCollectors registers the Go runtime and process collectors.
func WithRuntimeCollectors() Option {
	return func(m *Manager) {
		m.runtimeCollectors = true
	}
}

// Manager owns all Prometheus metrics of the bot.
type Manager struct {
	namespace         string
	histogramBuckets  []float64
	registry          *prometheus.Registry
	runtimeCollectors bool

	// Commands
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	rateLimited     prometheus.Counter
	panicsTotal     prometheus.Counter

	// Pet domain
	actionsTotal *prometheus.CounterVec
	rankUpsTotal *prometheus.CounterVec
	wakesTotal   *prometheus.CounterVec
	petsTotal    prometheus.Gauge

	// Event bus
	eventsPublished *prometheus.CounterVec
	eventHandlers   *prometheus.HistogramVec

	// Scheduler
	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	wakeTimers  prometheus.Gauge

	// Telegram API
	telegramRequests *prometheus.CounterVec
}

// NewManager creates a metrics manager on its own registry unless one is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pepegotchi",
		histogramBuckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	if m.runtimeCollectors {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.commandsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "bot",
		Name:      "commands_total",
		Help:      "Commands and callbacks handled, by command and outcome",
	}, []string{"command", "outcome"})

	m.commandDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "bot",
		Name:      "command_duration_seconds",
		Help:      "Time spent handling a command",
		Buckets:   m.histogramBuckets,
	}, []string{"command"})

	m.rateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "bot",
		Name:      "rate_limited_total",
		Help:      "Updates rejected by the per-user rate limiter",
	})

	m.panicsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "bot",
		Name:      "panics_recovered_total",
		Help:      "Panics recovered in update handlers",
	})

	m.actionsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pet",
		Name:      "actions_total",
		Help:      "Successful pet actions by type",
	}, []string{"action"})

	m.rankUpsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pet",
		Name:      "rank_ups_total",
		Help:      "Rank transitions by destination rank",
	}, []string{"rank"})

	m.wakesTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pet",
		Name:      "wakes_total",
		Help:      "Sleep periods ended, by wake path",
	}, []string{"source"})

	m.petsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "pet",
		Name:      "pets",
		Help:      "Number of stored pets at the last daily reset",
	})

	m.eventsPublished = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Domain events published",
	}, []string{"event_type"})

	m.eventHandlers = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "events",
		Name:      "handler_duration_seconds",
		Help:      "Event handler execution time",
		Buckets:   m.histogramBuckets,
	}, []string{"event_type", "status"})

	m.jobRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "scheduler",
		Name:      "job_runs_total",
		Help:      "Scheduled job executions by job and status",
	}, []string{"job", "status"})

	m.jobDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "scheduler",
		Name:      "job_duration_seconds",
		Help:      "Scheduled job execution time",
		Buckets:   m.histogramBuckets,
	}, []string{"job"})

	m.wakeTimers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "scheduler",
		Name:      "wake_timers_pending",
		Help:      "Wake timers armed and not yet fired",
	})

	m.telegramRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "telegram",
		Name:      "api_requests_total",
		Help:      "Telegram Bot API calls by method and status",
	}, []string{"method", "status"})
}

// Registry returns the registry the metrics live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORDERS
// ══════════════════════════════════════════════════════════════════════════════

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// RecordCommand records one handled command.
func (m *Manager) RecordCommand(command, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command, outcome).Inc()
	m.commandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// RecordRateLimited counts an update dropped by the rate limiter.
func (m *Manager) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// RecordPanic counts a recovered panic.
func (m *Manager) RecordPanic() {
	if m == nil {
		return
	}
	m.panicsTotal.Inc()
}

// RecordAction counts a successful pet action.
func (m *Manager) RecordAction(action string) {
	if m == nil {
		return
	}
	m.actionsTotal.WithLabelValues(action).Inc()
}

// RecordRankUp counts a rank transition.
func (m *Manager) RecordRankUp(rank string) {
	if m == nil {
		return
	}
	m.rankUpsTotal.WithLabelValues(rank).Inc()
}

// RecordWake counts a wake transition.
func (m *Manager) RecordWake(source string) {
	if m == nil {
		return
	}
	m.wakesTotal.WithLabelValues(source).Inc()
}

// SetPets sets the stored pets gauge.
func (m *Manager) SetPets(n int) {
	if m == nil {
		return
	}
	m.petsTotal.Set(float64(n))
}

// RecordPublish counts a published event.
func (m *Manager) RecordPublish(eventType string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Inc()
}

// RecordHandlerExecution records one event handler run.
func (m *Manager) RecordHandlerExecution(eventType string, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.eventHandlers.WithLabelValues(eventType, status(ok)).Observe(d.Seconds())
}

// RecordJob records one scheduled job run.
func (m *Manager) RecordJob(job string, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, status(ok)).Inc()
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

// SetWakeTimers sets the pending wake timers gauge.
func (m *Manager) SetWakeTimers(n int) {
	if m == nil {
		return
	}
	m.wakeTimers.Set(float64(n))
}

// RecordTelegramRequest counts one Bot API call.
func (m *Manager) RecordTelegramRequest(method string, ok bool) {
	if m == nil {
		return
	}
	m.telegramRequests.WithLabelValues(method, status(ok)).Inc()
}
