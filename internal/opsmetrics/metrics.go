package opsmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the pipeline records to.
type Metrics struct {
	RingGeneration *prometheus.GaugeVec
	RingNext       *prometheus.GaugeVec
	RingWrites     *prometheus.CounterVec
	RingReadMisses *prometheus.CounterVec

	SchedulerPending  *prometheus.GaugeVec
	SchedulerCanceled *prometheus.CounterVec
	SchedulerPaused   *prometheus.GaugeVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	StageLatency *prometheus.HistogramVec

	startTime time.Time
}

// New builds and registers every collector.
func New() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RingGeneration: promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "bilirumine_ring_generation", Help: "Current ring generation counter"},
			[]string{"ring"},
		),
		RingNext: promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "bilirumine_ring_next_bytes", Help: "Current ring write cursor, in bytes"},
			[]string{"ring"},
		),
		RingWrites: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "bilirumine_ring_writes_total", Help: "Total ring writes"},
			[]string{"ring"},
		),
		RingReadMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "bilirumine_ring_read_misses_total", Help: "Total ring reads that failed the invariant check"},
			[]string{"ring"},
		),

		SchedulerPending: promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "bilirumine_scheduler_pending", Help: "Current scheduler FIFO depth"},
			[]string{"stage"},
		),
		SchedulerCanceled: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "bilirumine_scheduler_canceled_total", Help: "Total tasks dropped for a cancelled version"},
			[]string{"stage"},
		),
		SchedulerPaused: promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "bilirumine_scheduler_paused", Help: "Current size of the PAUSE set"},
			[]string{"stage"},
		),

		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "bilirumine_clip_cache_hits_total", Help: "Total CLIP embedding cache hits"},
			[]string{"stage"},
		),
		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "bilirumine_clip_cache_misses_total", Help: "Total CLIP embedding cache misses"},
			[]string{"stage"},
		),

		StageLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bilirumine_stage_duration_seconds",
				Help:    "Wall-clock duration of one completed stage task",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
	}
}

// Uptime reports process uptime, used by the /healthz handler.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// ObserveRing records one ring's current cursor state.
func (m *Metrics) ObserveRing(name string, next, generation int64) {
	m.RingNext.WithLabelValues(name).Set(float64(next))
	m.RingGeneration.WithLabelValues(name).Set(float64(generation))
}

// ObserveScheduler records one stage's scheduler queue/pause depth.
func (m *Metrics) ObserveScheduler(stage string, pending int64, paused int) {
	m.SchedulerPending.WithLabelValues(stage).Set(float64(pending))
	m.SchedulerPaused.WithLabelValues(stage).Set(float64(paused))
}
