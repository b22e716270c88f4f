// Package metrics provides Prometheus metrics collection for the tummy tracker.
// It defines the training, prediction, ingestion and HTTP metrics exposed via
// the Prometheus metrics endpoint for monitoring and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the tracker.
type Metrics struct {
	// Training metrics
	MLTrainingRuns        prometheus.Counter     // Total number of training attempts
	MLTrainingFailures    *prometheus.CounterVec // Training attempts that did not publish a bundle, by reason
	MLTrainingDuration    prometheus.Histogram   // Wall time of successful training runs
	MLValidationAccuracy  *prometheus.GaugeVec   // Held-out accuracy of the latest bundle, by model
	MLArtifactLoadFailure prometheus.Counter     // Artifact sets that failed to load at startup

	// Prediction metrics
	MLPredictions      *prometheus.CounterVec // Predictions served, by outcome
	MLLatency          prometheus.Histogram   // Prediction latency in seconds
	MLPredictionScores prometheus.Histogram   // Distribution of ensemble probabilities

	// Ingestion metrics
	MealsLogged    prometheus.Counter // Meals accepted by the store
	SymptomsLogged prometheus.Counter // Symptoms accepted by the store
	FeatureErrors  prometheus.Counter // Meals dropped while building a dataset

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec   // Requests served, by route and status code
	HTTPDuration *prometheus.HistogramVec // Request duration, by route

	// System metrics
	ErrorsTotal prometheus.Counter // Total number of errors encountered
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		MLTrainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_training_runs_total",
			Help: "Total number of model training attempts",
		}),
		MLTrainingFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_training_failures_total",
			Help: "Total number of training attempts that did not publish a bundle",
		}, []string{"reason"}),
		MLTrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_training_duration_seconds",
			Help:    "Duration of successful training runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		MLValidationAccuracy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ml_validation_accuracy",
			Help: "Held-out accuracy of the most recently trained model",
		}, []string{"model"}),
		MLArtifactLoadFailure: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_artifact_load_failures_total",
			Help: "Total number of model artifact sets that could not be loaded",
		}),
		MLPredictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of predictions served",
		}, []string{"outcome"}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_latency_seconds",
			Help:    "Prediction latency in seconds (end-to-end)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		MLPredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_prediction_scores",
			Help:    "Distribution of ensemble symptom probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		MealsLogged: factory.NewCounter(prometheus.CounterOpts{
			Name: "meals_logged_total",
			Help: "Total number of meals recorded",
		}),
		SymptomsLogged: factory.NewCounter(prometheus.CounterOpts{
			Name: "symptoms_logged_total",
			Help: "Total number of symptoms recorded",
		}),
		FeatureErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "feature_errors_total",
			Help: "Total number of meals skipped during feature extraction",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}
