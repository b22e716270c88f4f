package ml

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tummy-tracker/internal/events"
	"tummy-tracker/internal/features"

	"github.com/rs/zerolog/log"
)

// MetricsInterface defines metrics methods needed by the engine
type MetricsInterface interface {
	MLTrainingRunsInc()
	MLTrainingFailuresInc(reason string)
	MLTrainingDurationObserve(float64)
	MLValidationAccuracySet(model string, v float64)
	MLPredictionsInc(outcome string)
	MLLatencyObserve(float64)
	MLPredictionScoresObserve(float64)
	MLArtifactLoadFailuresInc()
	FeatureErrorsInc()
}

// EngineConfig contains configuration for one user's engine
type EngineConfig struct {
	ModelDir                 string        `yaml:"model_dir"`
	Trainer                  TrainerConfig `yaml:"trainer"`
	PredictionsEnabled       bool          `yaml:"predictions_enabled"`
	FeatureImportanceEnabled bool          `yaml:"feature_importance_enabled"`
}

// TrainReport summarises a successful training run.
type TrainReport struct {
	Samples    int                `json:"samples"`
	Positives  int                `json:"positives"`
	Accuracies map[string]float64 `json:"validation_accuracies"`
	TrainedAt  time.Time          `json:"trained_at"`
	Duration   time.Duration      `json:"duration_ns"`
	Persisted  bool               `json:"persisted"`
}

// Status describes the engine's current bundle.
type Status struct {
	Trained              bool               `json:"trained"`
	AvailableModels      []string           `json:"available_models"`
	TotalModels          int                `json:"total_models"`
	ValidationAccuracies map[string]float64 `json:"validation_accuracies"`
	TrainedAt            *time.Time         `json:"trained_at,omitempty"`
	Categories           []string           `json:"categories,omitempty"`
	MinExamples          int                `json:"min_examples"`
}

// Engine owns one user's published bundle. Predictions read the bundle
// without locking; training is serialised and publishes by pointer swap.
type Engine struct {
	cfg     EngineConfig
	store   *ArtifactStore
	trainer *Trainer
	metrics MetricsInterface

	current atomic.Pointer[Bundle]
	trainMu sync.Mutex
}

// NewEngine creates an engine and loads any persisted bundle from
// cfg.ModelDir. Missing or damaged artifacts leave it untrained.
func NewEngine(cfg EngineConfig, metrics MetricsInterface) *Engine {
	e := &Engine{
		cfg:     cfg,
		store:   NewArtifactStore(cfg.ModelDir),
		trainer: NewTrainer(cfg.Trainer),
		metrics: metrics,
	}

	bundle, err := e.store.Load()
	if err != nil {
		log.Warn().Err(err).Str("model_dir", cfg.ModelDir).Msg("Failed to load model artifacts, starting untrained")
		if e.metrics != nil {
			e.metrics.MLArtifactLoadFailuresInc()
		}
	} else if bundle.Trained {
		log.Info().
			Str("model_dir", cfg.ModelDir).
			Strs("models", bundle.ModelNames()).
			Msg("Model artifacts loaded")
	}
	e.current.Store(bundle)

	return e
}

// Bundle returns the currently published bundle.
func (e *Engine) Bundle() *Bundle {
	return e.current.Load()
}

// Train builds a dataset from h, fits a new bundle, publishes it and
// persists it. On failure the published bundle is left untouched.
func (e *Engine) Train(h events.History) (TrainReport, error) {
	e.trainMu.Lock()
	defer e.trainMu.Unlock()

	start := time.Now()
	if e.metrics != nil {
		e.metrics.MLTrainingRunsInc()
	}

	ds, err := features.BuildDatasetWithMetrics(h, e.metrics)
	if errors.Is(err, features.ErrNoData) {
		err = fmt.Errorf("%w: %v", ErrInsufficientData, err)
	}
	if err != nil {
		e.trainingFailed(err)
		return TrainReport{}, err
	}

	bundle, err := e.trainer.Fit(ds)
	if err != nil {
		e.trainingFailed(err)
		return TrainReport{}, err
	}

	e.current.Store(bundle)

	report := TrainReport{
		Samples:    ds.Len(),
		Accuracies: bundle.Accuracies(),
		TrainedAt:  bundle.TrainedAt,
		Duration:   time.Since(start),
	}
	for _, t := range ds.Targets {
		report.Positives += t
	}

	if err := e.store.Save(bundle); err != nil {
		log.Error().Err(err).Str("model_dir", e.store.Dir()).Msg("Failed to persist trained bundle")
	} else {
		report.Persisted = true
	}

	if e.metrics != nil {
		e.metrics.MLTrainingDurationObserve(report.Duration.Seconds())
		for name, acc := range report.Accuracies {
			e.metrics.MLValidationAccuracySet(name, acc)
		}
	}

	log.Info().
		Int("samples", report.Samples).
		Int("positives", report.Positives).
		Float64("random_forest_accuracy", report.Accuracies[ForestName]).
		Float64("logistic_regression_accuracy", report.Accuracies[LogisticName]).
		Bool("persisted", report.Persisted).
		Msg("Models trained successfully")

	return report, nil
}

func (e *Engine) trainingFailed(err error) {
	reason := "error"
	if errors.Is(err, ErrInsufficientData) {
		reason = "insufficient_data"
	}
	if e.metrics != nil {
		e.metrics.MLTrainingFailuresInc(reason)
	}
	log.Warn().Err(err).Str("reason", reason).Msg("Training did not complete")
}

// Predict scores a candidate meal against the published bundle.
func (e *Engine) Predict(meal events.MealEvent) Result {
	start := time.Now()

	var res Result
	if !e.cfg.PredictionsEnabled {
		res = Result{Outcome: OutcomeDisabled, Category: meal.FoodCategory}
	} else {
		res = Predict(e.current.Load(), features.Build(meal))
	}

	if e.metrics != nil {
		e.metrics.MLPredictionsInc(string(res.Outcome))
		e.metrics.MLLatencyObserve(time.Since(start).Seconds())
		if res.Outcome == OutcomeOK {
			e.metrics.MLPredictionScoresObserve(res.Probability)
		}
	}
	return res
}

// Status reports what the published bundle can do.
func (e *Engine) Status() Status {
	b := e.current.Load()
	st := Status{
		Trained:              b.IsTrained(),
		AvailableModels:      b.ModelNames(),
		ValidationAccuracies: b.Accuracies(),
		Categories:           b.Categories(),
		MinExamples:          e.trainer.Config().MinExamples,
	}
	if st.AvailableModels == nil {
		st.AvailableModels = []string{}
	}
	st.TotalModels = len(st.AvailableModels)
	if st.Trained && !b.TrainedAt.IsZero() {
		at := b.TrainedAt
		st.TrainedAt = &at
	}
	return st
}

// FeatureImportance ranks features of the published forest.
func (e *Engine) FeatureImportance() ([]FeatureStats, error) {
	if !e.cfg.FeatureImportanceEnabled {
		return nil, ErrFeatureImportanceDisabled
	}
	return FeatureImportance(e.current.Load())
}
