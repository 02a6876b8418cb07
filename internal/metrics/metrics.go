package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssessmentSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labeling_assessment_saves_total",
		Help: "Assessment saves by operation (create, update) and result",
	}, []string{"op", "result"})

	AssessmentSaveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "labeling_assessment_save_duration_seconds",
		Help:    "Round-trip latency of assessment create/update calls",
		Buckets: []float64{0.025, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
	}, []string{"op"})

	AssessmentSavesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labeling_assessment_saves_skipped_total",
		Help: "Saves skipped because value and rationale were empty",
	})

	StaleSavesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labeling_stale_saves_discarded_total",
		Help: "Save results dropped because the active trace changed",
	})

	ItemCompletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labeling_item_completions_total",
		Help: "Automatic item completion attempts by result",
	}, []string{"result"})

	RendererResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labeling_renderer_resolutions_total",
		Help: "Renderer lookups by result (tagged, default, error)",
	}, []string{"result"})

	SpansNormalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labeling_spans_normalized_total",
		Help: "Spans processed by the normalizer",
	})
)
