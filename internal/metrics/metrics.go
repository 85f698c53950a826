// Package metrics exports pipeline timings to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the collectors of one pipeline. A nil *Recorder discards
// every observation.
type Recorder struct {
	Frames        prometheus.Counter
	FrameErrors   prometheus.Counter
	FrameDuration prometheus.Histogram
	PassDuration  *prometheus.HistogramVec
	Reloads       *prometheus.CounterVec
	TargetResizes prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		Frames: f.NewCounter(prometheus.CounterOpts{
			Name: "bloom_frames_total",
			Help: "Total number of rendered frames",
		}),
		FrameErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "bloom_frame_errors_total",
			Help: "Total number of frames that failed",
		}),
		FrameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloom_frame_duration_seconds",
			Help:    "Frame render duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		PassDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bloom_pass_duration_seconds",
			Help:    "Render pass duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"pass", "program"}),
		Reloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloom_pipeline_reloads_total",
			Help: "Total number of pipeline reload attempts",
		}, []string{"result"}),
		TargetResizes: f.NewCounter(prometheus.CounterOpts{
			Name: "bloom_target_resizes_total",
			Help: "Total number of times the render targets were recreated",
		}),
	}
}

// Frame records a finished frame.
func (r *Recorder) Frame(d time.Duration, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.FrameErrors.Inc()
		return
	}
	r.Frames.Inc()
	r.FrameDuration.Observe(d.Seconds())
}

// Pass records one render pass.
func (r *Recorder) Pass(pass, program string, d time.Duration) {
	if r == nil {
		return
	}
	r.PassDuration.WithLabelValues(pass, program).Observe(d.Seconds())
}

// Reload records a pipeline reload.
func (r *Recorder) Reload(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	r.Reloads.WithLabelValues(result).Inc()
}

// Resize records a target recreation.
func (r *Recorder) Resize() {
	if r == nil {
		return
	}
	r.TargetResizes.Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
