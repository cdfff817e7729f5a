package metrics

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"incident-workflow/internal/domain"
)

// Collector owns a private registry so several instances can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	operations       *prometheus.CounterVec
	notifications    prometheus.Counter
	attachmentBytes  prometheus.Counter
	storeWrites      *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpRequestTimes *prometheus.HistogramVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_operations_total",
				Help: "Workflow operations by name and outcome",
			},
			[]string{"operation", "outcome"},
		),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Notifications received through intake",
		}),
		attachmentBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attachment_bytes_stored_total",
			Help: "Bytes written to the attachment store",
		}),
		storeWrites: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "document_write_duration_seconds",
				Help:    "Duration of full document writes",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"document"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestTimes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.operations,
		c.notifications,
		c.attachmentBytes,
		c.storeWrites,
		c.httpRequests,
		c.httpRequestTimes,
	)
	return c
}

// RecordOperation counts one workflow operation; err decides the outcome label.
func (c *Collector) RecordOperation(op domain.Operation, err error) {
	if c == nil {
		return
	}
	c.operations.WithLabelValues(string(op), Outcome(err)).Inc()
}

func (c *Collector) RecordIntake() {
	if c == nil {
		return
	}
	c.notifications.Inc()
}

func (c *Collector) AddAttachmentBytes(n int64) {
	if c == nil {
		return
	}
	c.attachmentBytes.Add(float64(n))
}

func (c *Collector) ObserveDocumentWrite(document string, d time.Duration) {
	if c == nil {
		return
	}
	c.storeWrites.WithLabelValues(document).Observe(d.Seconds())
}

func (c *Collector) RecordHTTPRequest(method, route, statusCode string, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, statusCode).Inc()
	c.httpRequestTimes.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Outcome maps an operation error to a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return strings.ToLower(string(de.Kind))
	}
	return "internal_error"
}
