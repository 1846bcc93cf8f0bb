// Package metrics provides Prometheus metrics for tabpredict.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InferenceLatency tracks ONNX inference duration per model.
	InferenceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tabpredict",
			Name:      "inference_latency_seconds",
			Help:      "Latency of ONNX model inference",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	// PredictionsTotal counts completed predictions grouped by outcome.
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tabpredict",
			Name:      "predictions_total",
			Help:      "Total predictions grouped by model and status",
		},
		[]string{"model", "status"},
	)

	// RequestsInFlight tracks HTTP predict requests currently executing.
	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tabpredict",
			Name:      "requests_in_flight",
			Help:      "Number of predict requests currently executing",
		},
	)

	// RequestsRejectedTotal counts requests rejected before inference.
	RequestsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tabpredict",
			Name:      "requests_rejected_total",
			Help:      "Requests rejected before reaching inference",
		},
		[]string{"reason"},
	)

	// ModelLoaded reports whether a model session is currently loaded.
	ModelLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tabpredict",
			Name:      "model_loaded",
			Help:      "Whether the named model session is loaded (1) or not (0)",
		},
		[]string{"model"},
	)
)

// ObserveInference records one completed inference.
func ObserveInference(model string, elapsed time.Duration, err error) {
	InferenceLatency.WithLabelValues(model).Observe(elapsed.Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	PredictionsTotal.WithLabelValues(model, status).Inc()
}
