package metrics

import (
	"testing"
	"time"

	"tummy-tracker/internal/features"
	"tummy-tracker/internal/ml"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

var (
	_ ml.MetricsInterface     = (*MetricsWrapper)(nil)
	_ features.MetricsTracker = (*MetricsWrapper)(nil)
)

func newTestWrapper(t *testing.T) (*Metrics, *MetricsWrapper) {
	t.Helper()
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)
	return m, NewWrapper(m)
}

func TestNewWrapper(t *testing.T) {
	m, wrapper := newTestWrapper(t)

	if wrapper == nil {
		t.Fatal("NewWrapper returned nil")
	}
	if wrapper.m != m {
		t.Error("Wrapper does not contain correct metrics instance")
	}
}

func TestMetricsWrapper_TrainingCounters(t *testing.T) {
	m, wrapper := newTestWrapper(t)

	if v := testutil.ToFloat64(m.MLTrainingRuns); v != 0 {
		t.Errorf("Expected initial counter value 0, got %f", v)
	}

	wrapper.MLTrainingRunsInc()
	wrapper.MLTrainingRunsInc()
	if v := testutil.ToFloat64(m.MLTrainingRuns); v != 2 {
		t.Errorf("Expected 2 training runs, got %f", v)
	}

	wrapper.MLTrainingFailuresInc("insufficient_data")
	wrapper.MLTrainingFailuresInc("insufficient_data")
	wrapper.MLTrainingFailuresInc("error")
	if v := testutil.ToFloat64(m.MLTrainingFailures.WithLabelValues("insufficient_data")); v != 2 {
		t.Errorf("Expected 2 insufficient_data failures, got %f", v)
	}
	if v := testutil.ToFloat64(m.MLTrainingFailures.WithLabelValues("error")); v != 1 {
		t.Errorf("Expected 1 error failure, got %f", v)
	}
}

func TestMetricsWrapper_ValidationAccuracy(t *testing.T) {
	m, wrapper := newTestWrapper(t)

	wrapper.MLValidationAccuracySet(ml.ForestName, 0.75)
	wrapper.MLValidationAccuracySet(ml.LogisticName, 0.5)
	wrapper.MLValidationAccuracySet(ml.ForestName, 1.0)

	if v := testutil.ToFloat64(m.MLValidationAccuracy.WithLabelValues(ml.ForestName)); v != 1.0 {
		t.Errorf("Expected forest accuracy 1.0, got %f", v)
	}
	if v := testutil.ToFloat64(m.MLValidationAccuracy.WithLabelValues(ml.LogisticName)); v != 0.5 {
		t.Errorf("Expected logistic accuracy 0.5, got %f", v)
	}
}

func TestMetricsWrapper_Predictions(t *testing.T) {
	m, wrapper := newTestWrapper(t)

	wrapper.MLPredictionsInc(string(ml.OutcomeOK))
	wrapper.MLPredictionsInc(string(ml.OutcomeOK))
	wrapper.MLPredictionsInc(string(ml.OutcomeModelNotTrained))

	if v := testutil.ToFloat64(m.MLPredictions.WithLabelValues("ok")); v != 2 {
		t.Errorf("Expected 2 ok predictions, got %f", v)
	}
	if v := testutil.ToFloat64(m.MLPredictions.WithLabelValues("model_not_trained")); v != 1 {
		t.Errorf("Expected 1 model_not_trained prediction, got %f", v)
	}
}

func TestMetricsWrapper_Histograms(t *testing.T) {
	m, wrapper := newTestWrapper(t)

	wrapper.MLLatencyObserve(0.002)
	wrapper.MLPredictionScoresObserve(0.8)
	wrapper.MLTrainingDurationObserve(1.5)

	var scores dto.Metric
	if err := m.MLPredictionScores.Write(&scores); err != nil {
		t.Fatalf("Failed to read prediction score histogram: %v", err)
	}
	if got := scores.GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("Expected 1 prediction score sample, got %d", got)
	}
	if got := scores.GetHistogram().GetSampleSum(); got != 0.8 {
		t.Errorf("Expected prediction score sum 0.8, got %f", got)
	}

	if n := testutil.CollectAndCount(m.MLLatency); n != 1 {
		t.Errorf("Expected 1 latency series, got %d", n)
	}
	if n := testutil.CollectAndCount(m.MLTrainingDuration); n != 1 {
		t.Errorf("Expected 1 training duration series, got %d", n)
	}
}

func TestMetricsWrapper_IngestionAndErrors(t *testing.T) {
	m, wrapper := newTestWrapper(t)

	wrapper.MealsLoggedInc()
	wrapper.SymptomsLoggedInc()
	wrapper.FeatureErrorsInc()
	wrapper.MLArtifactLoadFailuresInc()
	wrapper.ErrorsInc()

	checks := map[string]prometheus.Counter{
		"meals_logged_total":              m.MealsLogged,
		"symptoms_logged_total":           m.SymptomsLogged,
		"feature_errors_total":            m.FeatureErrors,
		"ml_artifact_load_failures_total": m.MLArtifactLoadFailure,
	}
	for name, c := range checks {
		if v := testutil.ToFloat64(c); v != 1 {
			t.Errorf("Expected %s to be 1, got %f", name, v)
		}
	}

	if v := testutil.ToFloat64(m.ErrorsTotal); v != 2 {
		t.Errorf("Expected errors_total 2, got %f", v)
	}
}

func TestMetricsWrapper_HTTPRequests(t *testing.T) {
	m, wrapper := newTestWrapper(t)

	wrapper.HTTPRequestObserve("/api/v1/users/{user}/predict", 200, 3*time.Millisecond)
	wrapper.HTTPRequestObserve("/api/v1/users/{user}/predict", 200, 5*time.Millisecond)
	wrapper.HTTPRequestObserve("/api/v1/users/{user}/train", 500, time.Second)

	if v := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/v1/users/{user}/predict", "200")); v != 2 {
		t.Errorf("Expected 2 predict requests, got %f", v)
	}
	if v := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/v1/users/{user}/train", "500")); v != 1 {
		t.Errorf("Expected 1 failed train request, got %f", v)
	}
	if v := testutil.ToFloat64(m.ErrorsTotal); v != 1 {
		t.Errorf("Expected server errors to count toward errors_total, got %f", v)
	}
	if n := testutil.CollectAndCount(m.HTTPDuration); n != 2 {
		t.Errorf("Expected 2 duration series, got %d", n)
	}
}

func TestNewWithRegistry_Isolated(t *testing.T) {
	// Two registries must not collide on metric names.
	a := NewWithRegistry(prometheus.NewRegistry())
	b := NewWithRegistry(prometheus.NewRegistry())

	NewWrapper(a).MLTrainingRunsInc()
	if v := testutil.ToFloat64(b.MLTrainingRuns); v != 0 {
		t.Errorf("Expected isolated registry to be untouched, got %f", v)
	}
}
