// Package metrics exposes memebot's Prometheus counters on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memebot"

// Webhook results.
const (
	ResultHandled   = "handled"
	ResultBadJSON   = "bad_json"
	ResultSender    = "ignored_sender"
	ResultGroup     = "ignored_group"
	ResultDuplicate = "duplicate"
	ResultStoreErr  = "store_error"
)

// Collector holds the application metrics.
type Collector struct {
	registry *prometheus.Registry

	webhookRequests      *prometheus.CounterVec
	commands             *prometheus.CounterVec
	collaboratorFailures *prometheus.CounterVec
	handleDuration       prometheus.Histogram
	taskRuns             *prometheus.CounterVec
}

// NewCollector creates a Collector with its own registry, including the Go
// runtime and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		webhookRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_requests_total",
			Help:      "Inbound webhook callbacks by result.",
		}, []string{"result"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Handled chat messages by dispatch outcome.",
		}, []string{"outcome"}),
		collaboratorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_failures_total",
			Help:      "Failed calls to external collaborators.",
		}, []string{"collaborator"}),
		handleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handle_duration_seconds",
			Help:      "Time spent handling one chat message.",
			Buckets:   prometheus.DefBuckets,
		}),
		taskRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_runs_total",
			Help:      "Scheduled task runs by task and status.",
		}, []string{"task", "status"}),
	}

	c.registry.MustRegister(
		c.webhookRequests,
		c.commands,
		c.collaboratorFailures,
		c.handleDuration,
		c.taskRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// WebhookRequest counts one webhook callback.
func (c *Collector) WebhookRequest(result string) {
	c.webhookRequests.WithLabelValues(result).Inc()
}

// Command counts one dispatch outcome and its duration.
func (c *Collector) Command(outcome string, took time.Duration) {
	c.commands.WithLabelValues(outcome).Inc()
	c.handleDuration.Observe(took.Seconds())
}

// CollaboratorFailure counts one failed external call.
func (c *Collector) CollaboratorFailure(collaborator string) {
	c.collaboratorFailures.WithLabelValues(collaborator).Inc()
}

// TaskRun counts one scheduled task run.
func (c *Collector) TaskRun(task string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.taskRuns.WithLabelValues(task, status).Inc()
}
