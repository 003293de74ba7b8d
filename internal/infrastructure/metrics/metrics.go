package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vitos/currency_rates/internal/domain"
)

// RefreshMetrics exports refresh outcomes.
type RefreshMetrics struct {
	RefreshesTotal  *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	CurrentRate     *prometheus.GaugeVec
}

func NewRefreshMetrics(reg prometheus.Registerer) *RefreshMetrics {
	f := promauto.With(reg)
	return &RefreshMetrics{
		RefreshesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_refreshes_total",
				Help: "Settled rate refreshes by outcome",
			},
			[]string{"outcome"},
		),
		RefreshDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rate_refresh_duration_seconds",
				Help:    "Time spent fetching a rate",
				Buckets: prometheus.DefBuckets,
			},
		),
		CurrentRate: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rate_current",
				Help: "Last successfully fetched rate per pair",
			},
			[]string{"source", "destination"},
		),
	}
}

func (m *RefreshMetrics) ObserveRefresh(rec *domain.RefreshRecord) {
	m.RefreshDuration.Observe(rec.Duration.Seconds())
	if !rec.Succeeded() {
		m.RefreshesTotal.WithLabelValues("error").Inc()
		return
	}
	m.RefreshesTotal.WithLabelValues("ok").Inc()
	m.CurrentRate.WithLabelValues(string(rec.Source), string(rec.Destination)).Set(rec.Rate)
}
