package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	taskDuration     *prom.HistogramVec
	taskResults      *prom.CounterVec
	runDuration      prom.Histogram
	runOutcome       *prom.CounterVec
	transformSkipped *prom.CounterVec
	reloads          *prom.CounterVec
	reloadClients    prom.Gauge
}

// NewPrometheusRecorder constructs and registers the assetbuilder metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		taskDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "assetbuilder",
			Name:      "task_duration_seconds",
			Help:      "Duration of individual task executions",
			Buckets:   prom.DefBuckets,
		}, []string{"task"}),
		taskResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "assetbuilder",
			Name:      "task_results_total",
			Help:      "Task result counts by outcome",
		}, []string{"task", "result"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "assetbuilder",
			Name:      "run_duration_seconds",
			Help:      "Total duration of a plan run",
			Buckets:   prom.DefBuckets,
		}),
		runOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "assetbuilder",
			Name:      "run_outcomes_total",
			Help:      "Plan runs by final status",
		}, []string{"outcome"}),
		transformSkipped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "assetbuilder",
			Name:      "transform_skipped_files_total",
			Help:      "Files dropped by per-file transform failures",
		}, []string{"adapter"}),
		reloads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "assetbuilder",
			Name:      "reload_broadcasts_total",
			Help:      "Reload notifications sent to dev clients",
		}, []string{"kind"}),
		reloadClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: "assetbuilder",
			Name:      "reload_clients",
			Help:      "Currently connected reload clients",
		}),
	}
	reg.MustRegister(pr.taskDuration, pr.taskResults, pr.runDuration, pr.runOutcome, pr.transformSkipped, pr.reloads, pr.reloadClients)
	return pr
}

func (p *PrometheusRecorder) ObserveTaskDuration(task string, d time.Duration) {
	if p == nil {
		return
	}
	p.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTaskResult(task string, result ResultLabel) {
	if p == nil {
		return
	}
	p.taskResults.WithLabelValues(task, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p == nil {
		return
	}
	p.runOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncTransformSkipped(adapter string) {
	if p == nil {
		return
	}
	p.transformSkipped.WithLabelValues(adapter).Inc()
}

func (p *PrometheusRecorder) IncReloadBroadcast(kind string) {
	if p == nil {
		return
	}
	p.reloads.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) SetReloadClients(n int) {
	if p == nil {
		return
	}
	p.reloadClients.Set(float64(n))
}
