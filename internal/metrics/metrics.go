// Package metrics exposes harvest run counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ThreadHarvester/internal/domain"
	"ThreadHarvester/internal/ports"
)

const namespace = "threadharvester"

// Metrics holds the harvest collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Runs             *prometheus.CounterVec
	PagesScanned     prometheus.Counter
	EntriesFound     prometheus.Counter
	MalformedEntries prometheus.Counter
	PostsSkipped     prometheus.Counter
	PostsFetched     prometheus.Counter
	PostsFailed      prometheus.Counter
	PostsPublished   prometheus.Counter
	LastSuccess      prometheus.Gauge
}

var _ ports.RunObserver = (*Metrics)(nil)

// New registers all collectors plus the Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}

	return &Metrics{
		registry: reg,
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Harvest runs by outcome.",
		}, []string{"status"}),
		PagesScanned:     counter("listing_pages_scanned_total", "Listing pages scanned."),
		EntriesFound:     counter("listing_entries_total", "Well-formed listing entries found."),
		MalformedEntries: counter("listing_entries_malformed_total", "Listing entries excluded for a bad timestamp."),
		PostsSkipped:     counter("posts_skipped_total", "Posts skipped because they were already published."),
		PostsFetched:     counter("posts_fetched_total", "Post detail pages fetched and parsed."),
		PostsFailed:      counter("posts_failed_total", "Post detail fetches that failed."),
		PostsPublished:   counter("posts_published_total", "Posts handed to the publish sink."),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
}

// ObserveRun records one finished run. Partial counts of failed runs are kept.
func (m *Metrics) ObserveRun(summary domain.RunSummary, err error) {
	m.PagesScanned.Add(float64(summary.PagesScanned))
	m.EntriesFound.Add(float64(summary.EntriesFound))
	m.MalformedEntries.Add(float64(summary.MalformedEntries))
	m.PostsSkipped.Add(float64(summary.PostsSkipped))
	m.PostsFetched.Add(float64(summary.PostsFetched))
	m.PostsFailed.Add(float64(summary.PostsFailed))
	m.PostsPublished.Add(float64(summary.PostsPublished))

	if err != nil {
		m.Runs.WithLabelValues("error").Inc()
		return
	}
	m.Runs.WithLabelValues("success").Inc()
	if !summary.ScrapedAt.IsZero() {
		m.LastSuccess.Set(float64(summary.ScrapedAt.Unix()))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
