// Package metrics exposes webmon's prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

const namespace = "webmon"

// Metrics holds all Prometheus metrics for webmon. It is the policy engine's
// evaluation observer and the browser monitor's metrics sink.
type Metrics struct {
	Evaluations      *prometheus.CounterVec
	Blocking         prometheus.Gauge
	AllowedRules     prometheus.Gauge
	Ticks            *prometheus.CounterVec
	TickDuration     prometheus.Histogram
	Redirects        *prometheus.CounterVec
	Throttles        *prometheus.CounterVec
	AutomationErrors *prometheus.CounterVec
	Permission       prometheus.Gauge
	CalendarSyncs    *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Evaluations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_evaluations_total",
				Help:      "Total policy evaluations",
			},
			[]string{"result"}, // result=blocking/idle
		),
		Blocking: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "blocking",
				Help:      "1 while focus mode is enforced",
			},
		),
		AllowedRules: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "allowed_rules",
				Help:      "Number of rules in the effective allow-list",
			},
		),
		Ticks: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "monitor_ticks_total",
				Help:      "Browser monitor ticks by outcome",
			},
			[]string{"outcome"},
		),
		TickDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "monitor_tick_duration_seconds",
				Help:      "Browser monitor tick duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2},
			},
		),
		Redirects: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "redirects_total",
				Help:      "Tabs redirected to the block page",
			},
			[]string{"browser"},
		),
		Throttles: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "redirects_throttled_total",
				Help:      "Redirects suppressed by the per-app throttle",
			},
			[]string{"browser"},
		),
		AutomationErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "automation_errors_total",
				Help:      "Failed OS automation calls",
			},
			[]string{"op"}, // op=foreground_app/current_url/redirect
		),
		Permission: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "automation_permission",
				Help:      "1 while automation permission is granted",
			},
		),
		CalendarSyncs: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calendar_syncs_total",
				Help:      "Calendar feed syncs by result",
			},
			[]string{"result"}, // result=ok/error/skipped
		),
	}
}

// Evaluated records one policy evaluation.
func (m *Metrics) Evaluated(d domain.BlockingDecision) {
	result := "idle"
	if d.IsBlocking {
		result = "blocking"
	}
	m.Evaluations.WithLabelValues(result).Inc()
	m.Blocking.Set(boolGauge(d.IsBlocking))
	m.AllowedRules.Set(float64(len(d.AllowedRules)))
}

// ObserveTick records one monitor tick.
func (m *Metrics) ObserveTick(outcome string, d time.Duration) {
	m.Ticks.WithLabelValues(outcome).Inc()
	m.TickDuration.Observe(d.Seconds())
}

func (m *Metrics) Redirected(browserID string) {
	m.Redirects.WithLabelValues(browserID).Inc()
}

func (m *Metrics) Throttled(browserID string) {
	m.Throttles.WithLabelValues(browserID).Inc()
}

func (m *Metrics) AutomationError(op string) {
	m.AutomationErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) SetPermission(granted bool) {
	m.Permission.Set(boolGauge(granted))
}

// CalendarSynced records a calendar sync result.
func (m *Metrics) CalendarSynced(result string) {
	m.CalendarSyncs.WithLabelValues(result).Inc()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
