// Package metrics records pipeline activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

const namespace = "kiln"

var _ ports.Metrics = (*PrometheusRecorder)(nil)

// PrometheusRecorder implements ports.Metrics on a private registry.
type PrometheusRecorder struct {
	reg           *prom.Registry
	taskDuration  *prom.HistogramVec
	taskResults   *prom.CounterVec
	dispatches    prom.Counter
	dispatchSize  prom.Histogram
	announcements prom.Counter
	reloadClients prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		taskDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of executed task actions",
			Buckets:   prom.DefBuckets,
		}, []string{"task"}),
		taskResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "task_results_total",
			Help:      "Task results by outcome and failure kind",
		}, []string{"task", "outcome", "kind"}),
		dispatches: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_dispatches_total",
			Help:      "Debounced batches dispatched by the watch controller",
		}),
		dispatchSize: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "watch_dispatch_tasks",
			Help:      "Number of tasks run per dispatch",
			Buckets:   []float64{1, 2, 4, 8, 16},
		}),
		announcements: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "livereload_announcements_total",
			Help:      "Paths announced to live-reload clients",
		}),
		reloadClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "livereload_clients",
			Help:      "Connected live-reload clients",
		}),
	}
	reg.MustRegister(pr.taskDuration, pr.taskResults, pr.dispatches, pr.dispatchSize, pr.announcements, pr.reloadClients)
	return pr
}

// Registry returns the registry the metrics live on.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveTask records one executed task.
func (p *PrometheusRecorder) ObserveTask(task string, outcome domain.Outcome, kind domain.FailureKind, d time.Duration) {
	if p == nil {
		return
	}
	p.taskDuration.WithLabelValues(task).Observe(d.Seconds())
	p.taskResults.WithLabelValues(task, outcome.String(), string(kind)).Inc()
}

// ObserveDispatch records one watch dispatch.
func (p *PrometheusRecorder) ObserveDispatch(tasks int) {
	if p == nil {
		return
	}
	p.dispatches.Inc()
	p.dispatchSize.Observe(float64(tasks))
}

// ObserveAnnounce records one live-reload announcement.
func (p *PrometheusRecorder) ObserveAnnounce() {
	if p == nil {
		return
	}
	p.announcements.Inc()
}

// SetReloadClients records the number of connected live-reload clients.
func (p *PrometheusRecorder) SetReloadClients(n int) {
	if p == nil {
		return
	}
	p.reloadClients.Set(float64(n))
}
