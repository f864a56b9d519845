package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	predictions *prometheus.CounterVec
	predictLat  prometheus.Histogram
	trainings   *prometheus.CounterVec
	trainLat    prometheus.Histogram
	r2          *prometheus.GaugeVec
	modelLoaded prometheus.Gauge
	auditSent   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demandcast_predictions_total",
				Help: "Predictions served, by outcome",
			},
			[]string{"outcome"},
		),
		predictLat: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "demandcast_prediction_duration_seconds",
				Help:    "Time to encode, scale and score one request",
				Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
			},
		),
		trainings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demandcast_training_runs_total",
				Help: "Training runs, by result",
			},
			[]string{"result"},
		),
		trainLat: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "demandcast_training_duration_seconds",
				Help:    "Wall time of a training run",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		r2: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "demandcast_model_r2",
				Help: "Held-out R2 of the active model and its linear baseline",
			},
			[]string{"model"},
		),
		modelLoaded: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "demandcast_model_loaded",
				Help: "1 when a trained model is being served",
			},
		),
		auditSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demandcast_audit_records_total",
				Help: "Prediction audit records delivered, by backend",
			},
			[]string{"backend"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demandcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

func (r *Recorder) RecordPrediction(outcome string, seconds float64) {
	r.predictions.WithLabelValues(outcome).Inc()
	r.predictLat.Observe(seconds)
}

func (r *Recorder) RecordTraining(result string, seconds float64) {
	r.trainings.WithLabelValues(result).Inc()
	r.trainLat.Observe(seconds)
}

func (r *Recorder) RecordModelQuality(r2, baselineR2 float64) {
	r.r2.WithLabelValues("ensemble").Set(r2)
	r.r2.WithLabelValues("linear_baseline").Set(baselineR2)
}

func (r *Recorder) RecordModelLoaded(loaded bool) {
	if loaded {
		r.modelLoaded.Set(1)
		return
	}
	r.modelLoaded.Set(0)
}

func (r *Recorder) RecordAuditSent(backend string, n int) {
	r.auditSent.WithLabelValues(backend).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Nop discards everything; used where metrics are not wired.
type Nop struct{}

func (Nop) RecordPrediction(string, float64)    {}
func (Nop) RecordTraining(string, float64)      {}
func (Nop) RecordModelQuality(float64, float64) {}
func (Nop) RecordModelLoaded(bool)              {}
func (Nop) RecordAuditSent(string, int)         {}
func (Nop) RecordError(string)                  {}
