package dashboard

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spektr-org/fertdash/loader"
)

// Metrics holds the dashboard's Prometheus collectors. Each Metrics owns
// its registry so tests and multiple servers never collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	renders      prometheus.Histogram
	loads        *prometheus.CounterVec
	loadDuration prometheus.Histogram
	rows         prometheus.Gauge
	warnings     prometheus.Gauge
}

// NewMetrics creates and registers the dashboard collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fertdash",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fertdash",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
		renders: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fertdash",
			Name:      "render_duration_seconds",
			Help:      "Time spent filtering and building one view.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fertdash",
			Name:      "dataset_loads_total",
			Help:      "Dataset load attempts by result (loaded, reused, error).",
		}, []string{"result"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fertdash",
			Name:      "dataset_load_duration_seconds",
			Help:      "Time spent reading, decoding and parsing the data file.",
			Buckets:   prometheus.DefBuckets,
		}),
		rows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fertdash",
			Name:      "dataset_rows",
			Help:      "Products in the current dataset.",
		}),
		warnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fertdash",
			Name:      "dataset_warnings",
			Help:      "Computation warnings in the current dataset.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.renders,
		m.loads, m.loadDuration, m.rows, m.warnings,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument wraps h with request counting and latency for route.
func (m *Metrics) Instrument(route string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerCounter(
		m.requests.MustCurryWith(labels),
		promhttp.InstrumentHandlerDuration(m.latency.MustCurryWith(labels), h),
	)
}

// ObserveRender records one render.
func (m *Metrics) ObserveRender(seconds float64) {
	m.renders.Observe(seconds)
}

// ObserveLoad records a cache load. Plug it in with loader.WithLoadObserver.
func (m *Metrics) ObserveLoad(ev loader.LoadEvent) {
	m.loadDuration.Observe(ev.Duration.Seconds())
	switch {
	case ev.Err != nil:
		m.loads.WithLabelValues("error").Inc()
		return
	case ev.Reused:
		m.loads.WithLabelValues("reused").Inc()
	default:
		m.loads.WithLabelValues("loaded").Inc()
	}
	m.rows.Set(float64(ev.Rows))
}

// SetWarnings records the warning count of the dataset being served.
func (m *Metrics) SetWarnings(n int) {
	m.warnings.Set(float64(n))
}
