package metrics

import (
	"strconv"
	"time"
)

// MetricsWrapper adapts Metrics to the narrow interfaces the engine, store
// and HTTP layer depend on, so those packages never import Prometheus.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) MLTrainingRunsInc() {
	w.m.MLTrainingRuns.Inc()
}

func (w *MetricsWrapper) MLTrainingFailuresInc(reason string) {
	w.m.MLTrainingFailures.WithLabelValues(reason).Inc()
}

func (w *MetricsWrapper) MLTrainingDurationObserve(v float64) {
	w.m.MLTrainingDuration.Observe(v)
}

func (w *MetricsWrapper) MLValidationAccuracySet(model string, v float64) {
	w.m.MLValidationAccuracy.WithLabelValues(model).Set(v)
}

func (w *MetricsWrapper) MLPredictionsInc(outcome string) {
	w.m.MLPredictions.WithLabelValues(outcome).Inc()
}

func (w *MetricsWrapper) MLLatencyObserve(v float64) {
	w.m.MLLatency.Observe(v)
}

func (w *MetricsWrapper) MLPredictionScoresObserve(v float64) {
	w.m.MLPredictionScores.Observe(v)
}

func (w *MetricsWrapper) MLArtifactLoadFailuresInc() {
	w.m.MLArtifactLoadFailure.Inc()
	w.m.ErrorsTotal.Inc()
}

func (w *MetricsWrapper) FeatureErrorsInc() {
	w.m.FeatureErrors.Inc()
}

func (w *MetricsWrapper) MealsLoggedInc() {
	w.m.MealsLogged.Inc()
}

func (w *MetricsWrapper) SymptomsLoggedInc() {
	w.m.SymptomsLogged.Inc()
}

func (w *MetricsWrapper) ErrorsInc() {
	w.m.ErrorsTotal.Inc()
}

// HTTPRequestObserve records one served request.
func (w *MetricsWrapper) HTTPRequestObserve(route string, code int, elapsed time.Duration) {
	w.m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	w.m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
	if code >= 500 {
		w.m.ErrorsTotal.Inc()
	}
}
