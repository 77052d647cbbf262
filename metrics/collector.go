// Package metrics exposes generation and HTTP metrics in Prometheus format.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mhpenta/magicimage"
)

// Collector records metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	tokensUsed         *prometheus.CounterVec
	skippedImages      prometheus.Counter

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var _ magicimage.GenerationObserver = (*Collector)(nil)

// NewCollector creates a Collector whose metric names start with namespace.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		generationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Total number of generation calls by outcome",
			},
			[]string{"model", "mode", "outcome"},
		),
		generationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Generation call duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"model", "mode"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_used_total",
				Help:      "Tokens reported by the model",
			},
			[]string{"model", "type"}, // type: prompt, candidates
		),
		skippedImages: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skipped_images_total",
				Help:      "Attachment strings skipped as malformed",
			},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveGeneration implements magicimage.GenerationObserver.
func (c *Collector) ObserveGeneration(ev magicimage.GenerationEvent) {
	c.generationsTotal.WithLabelValues(ev.Model, string(ev.Mode), outcome(ev.Err)).Inc()
	c.generationDuration.WithLabelValues(ev.Model, string(ev.Mode)).Observe(ev.Duration.Seconds())

	if ev.Skipped > 0 {
		c.skippedImages.Add(float64(ev.Skipped))
	}
	if ev.Usage != nil {
		c.tokensUsed.WithLabelValues(ev.Model, "prompt").Add(float64(ev.Usage.PromptTokens))
		c.tokensUsed.WithLabelValues(ev.Model, "candidates").Add(float64(ev.Usage.CandidatesTokens))
	}
}

// RecordHTTPRequest counts one request against its route pattern.
func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	var genErr *magicimage.GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind.String()
	}
	return "unknown"
}
