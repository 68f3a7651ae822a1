package metric

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Frame outcomes used as the "outcome" label.
const (
	OutcomeLocated     = "located"
	OutcomeLost        = "lost"
	OutcomeNoTemplate  = "no_template"
	OutcomeFailedFrame = "error"
)

// Metric records tracker statistics on a prometheus registry.
type Metric struct {
	procTimeHistogram prometheus.Histogram
	procTime          prometheus.Gauge
	frames            *prometheus.CounterVec
	matches           prometheus.Gauge
	inliers           prometheus.Gauge
	trackerState      prometheus.Gauge
	captureFailures   prometheus.Counter

	mu sync.Mutex
}

// New creates the collectors and registers them on reg. A nil procTimeBuckets
// uses prometheus.DefBuckets.
func New(reg prometheus.Registerer, procTimeBuckets []float64) (*Metric, error) {
	if procTimeBuckets == nil {
		procTimeBuckets = prometheus.DefBuckets
	}

	m := &Metric{
		procTimeHistogram: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tracker_processing_time_ms_histogram",
				Help:    "Histogram of per-frame processing times.",
				Buckets: procTimeBuckets,
			},
		),
		procTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tracker_processing_time_ms",
				Help: "Processing time of the last frame.",
			},
		),
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_frames_total",
				Help: "Frames processed, by outcome.",
			},
			[]string{"outcome"},
		),
		matches: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tracker_matches",
				Help: "Matches kept for the last frame.",
			},
		),
		inliers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tracker_inliers",
				Help: "RANSAC inliers for the last frame.",
			},
		),
		trackerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tracker_has_template",
				Help: "1 while a template is selected.",
			},
		),
		captureFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tracker_capture_failures_total",
				Help: "Frames the source failed to deliver.",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		m.procTimeHistogram, m.procTime, m.frames, m.matches, m.inliers, m.trackerState, m.captureFailures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metric) AddProcessingTime(ms float64) {
	m.lock()
	defer m.unlock()
	m.procTimeHistogram.Observe(ms)
	m.procTime.Set(ms)
}

func (m *Metric) AddFrame(outcome string, matches, inliers int) {
	m.lock()
	defer m.unlock()
	m.frames.WithLabelValues(outcome).Inc()
	m.matches.Set(float64(matches))
	m.inliers.Set(float64(inliers))
}

func (m *Metric) SetHasTemplate(has bool) {
	m.lock()
	defer m.unlock()
	if has {
		m.trackerState.Set(1)
	} else {
		m.trackerState.Set(0)
	}
}

func (m *Metric) AddCaptureFailure() {
	m.lock()
	defer m.unlock()
	m.captureFailures.Inc()
}

func (m *Metric) lock() {
	m.mu.Lock()
}

func (m *Metric) unlock() {
	m.mu.Unlock()
}
