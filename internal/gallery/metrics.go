package gallery

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the gallery's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	saved     prometheus.Counter
	deleted   prometheus.Counter
	orphaned  prometheus.Counter
	failures  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	photos    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		saved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gallery_photos_saved_total",
			Help: "Total number of photos captured and saved",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gallery_photos_deleted_total",
			Help: "Total number of photos deleted",
		}),
		orphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gallery_orphaned_blobs_total",
			Help: "Blobs left behind because their delete failed",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_operation_failures_total",
			Help: "Failed gallery operations",
		}, []string{"op"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gallery_operation_duration_seconds",
			Help:    "Duration of gallery operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		photos: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gallery_photos",
			Help: "Photos currently in the gallery",
		}),
	}
	reg.MustRegister(m.saved, m.deleted, m.orphaned, m.failures, m.durations, m.photos)
	return m
}

func (m *Metrics) observe(op string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.durations.WithLabelValues(op).Observe(seconds)
	if err != nil {
		m.failures.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) photoSaved() {
	if m != nil {
		m.saved.Inc()
	}
}

func (m *Metrics) photoDeleted() {
	if m != nil {
		m.deleted.Inc()
	}
}

func (m *Metrics) blobOrphaned() {
	if m != nil {
		m.orphaned.Inc()
	}
}

func (m *Metrics) setPhotos(n int) {
	if m != nil {
		m.photos.Set(float64(n))
	}
}
