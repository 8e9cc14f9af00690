package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the run collectors on a dedicated registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Registry      *prometheus.Registry
	RowsTotal     *prometheus.CounterVec
	AttemptsTotal *prometheus.CounterVec
	RetriesTotal  prometheus.Counter
	BlocksTotal   *prometheus.CounterVec
	ErrorsTotal   *prometheus.CounterVec
	PageDuration  *prometheus.HistogramVec
	PagesVisited  prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_rows_total",
			Help: "Result rows emitted, by mode and status.",
		},
		[]string{"mode", "status"},
	)
	attempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_attempts_total",
			Help: "Page attempts started, by mode.",
		},
		[]string{"mode"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_retries_total",
			Help: "Detail page retries scheduled after a failure.",
		},
	)
	blocks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_blocks_total",
			Help: "Pages classified as bot-defense responses, by mode.",
		},
		[]string{"mode"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_errors_total",
			Help: "Attempt failures by error kind.",
		},
		[]string{"kind"},
	)
	pageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_unit_duration_seconds",
			Help:    "Wall time spent per unit of work.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"mode"},
	)
	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_listing_pages_total",
			Help: "Listing pages visited.",
		},
	)

	registry.MustRegister(rows, attempts, retries, blocks, errorsTotal, pageDuration, pages)

	return &Metrics{
		Registry:      registry,
		RowsTotal:     rows,
		AttemptsTotal: attempts,
		RetriesTotal:  retries,
		BlocksTotal:   blocks,
		ErrorsTotal:   errorsTotal,
		PageDuration:  pageDuration,
		PagesVisited:  pages,
	}
}

func (m *Metrics) IncRow(mode, status string) {
	if m == nil {
		return
	}
	m.RowsTotal.WithLabelValues(mode, status).Inc()
}

func (m *Metrics) IncAttempt(mode string) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

func (m *Metrics) IncBlock(mode string) {
	if m == nil {
		return
	}
	m.BlocksTotal.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncError(kind string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncListingPage() {
	if m == nil {
		return
	}
	m.PagesVisited.Inc()
}

func (m *Metrics) ObserveDuration(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.PageDuration.WithLabelValues(mode).Observe(d.Seconds())
}
