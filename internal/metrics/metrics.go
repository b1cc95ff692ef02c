// Package metrics holds the Prometheus collectors exported by the service.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains every collector the service updates. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Interpretations  *prometheus.CounterVec
	InterpretLatency prometheus.Histogram
	Translations     *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	ModelLoaded      prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the collectors and registers them on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		Interpretations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mudra_sign_interpretations_total",
				Help: "Sign interpretation requests partitioned by outcome.",
			},
			[]string{"outcome"},
		),
		InterpretLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mudra_sign_interpret_duration_seconds",
				Help:    "Time taken to interpret one image, detection included.",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
			},
		),
		Translations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mudra_translations_total",
				Help: "Translation requests partitioned by result.",
			},
			[]string{"result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mudra_http_requests_total",
				Help: "HTTP requests partitioned by route and status code.",
			},
			[]string{"route", "code"},
		),
		ModelLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mudra_model_loaded",
				Help: "1 when the sign classifier is loaded, 0 otherwise.",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.Interpretations,
		m.InterpretLatency,
		m.Translations,
		m.HTTPRequests,
		m.ModelLoaded,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return m, nil
}

// ObserveInterpretation counts one interpretation and its duration.
func (m *Metrics) ObserveInterpretation(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Interpretations.WithLabelValues(outcome).Inc()
	m.InterpretLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveTranslation(result string) {
	if m == nil {
		return
	}
	m.Translations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// SetModelLoaded records classifier availability.
func (m *Metrics) SetModelLoaded(loaded bool) {
	if m == nil {
		return
	}
	if loaded {
		m.ModelLoaded.Set(1)
	} else {
		m.ModelLoaded.Set(0)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
