// Package metrics provides Prometheus metrics for schema builds and the
// query API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/CognitoIQ/ocxschema/xsd"
)

const namespace = "ocxschema"

// Collector holds all Prometheus metrics of the module.
type Collector struct {
	// Build metrics
	Builds        *prometheus.CounterVec
	BuildDuration prometheus.Histogram
	Declarations  *prometheus.GaugeVec
	Unresolved    prometheus.Gauge
	LastBuild     prometheus.Gauge

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		Builds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_total",
				Help:      "Total number of schema builds by result",
			},
			[]string{"result"},
		),
		BuildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "build_duration_seconds",
				Help:      "Schema build duration in seconds",
				Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		Declarations: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "declarations",
				Help:      "Global declarations of the current model by kind",
			},
			[]string{"kind"},
		),
		Unresolved: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "unresolved_references",
				Help:      "Unresolved type references of the current model",
			},
		),
		LastBuild: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_build_timestamp_seconds",
				Help:      "Unix time of the last successful build",
			},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveBuild records a finished build. It implements xsd.Observer.
func (c *Collector) ObserveBuild(s xsd.BuildStats) {
	c.BuildDuration.Observe(s.Duration.Seconds())
	if s.Err != nil {
		c.Builds.WithLabelValues("failure").Inc()
		return
	}
	c.Builds.WithLabelValues("success").Inc()
	for _, kc := range s.Counts {
		c.Declarations.WithLabelValues(kc.Kind.String()).Set(float64(kc.Count))
	}
	c.Unresolved.Set(float64(s.Unresolved))
	c.LastBuild.SetToCurrentTime()
}

// StatusLabel groups HTTP status codes by class.
func StatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

var _ xsd.Observer = (*Collector)(nil)
