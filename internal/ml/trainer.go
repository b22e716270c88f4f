package ml

import (
	"fmt"
	"time"

	"tummy-tracker/internal/common"
	"tummy-tracker/internal/features"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TrainerConfig controls dataset requirements and model construction.
type TrainerConfig struct {
	MinExamples        int     `yaml:"min_examples"`
	Trees              int     `yaml:"trees"`
	Seed               uint64  `yaml:"seed"`
	ValidationFraction float64 `yaml:"validation_fraction"`
	LogisticMaxIter    int     `yaml:"logistic_max_iter"`
}

func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		MinExamples:        common.DefaultMinMealsForML,
		Trees:              common.ForestTrees,
		Seed:               common.RandomSeed,
		ValidationFraction: common.ValidationFraction,
		LogisticMaxIter:    common.LogisticMaxIter,
	}
}

// Trainer fits a fresh Bundle from a labelled dataset.
type Trainer struct {
	cfg TrainerConfig
}

func NewTrainer(cfg TrainerConfig) *Trainer {
	def := DefaultTrainerConfig()
	if cfg.MinExamples <= 0 {
		cfg.MinExamples = def.MinExamples
	}
	if cfg.Trees <= 0 {
		cfg.Trees = def.Trees
	}
	if cfg.ValidationFraction <= 0 || cfg.ValidationFraction >= 1 {
		cfg.ValidationFraction = def.ValidationFraction
	}
	if cfg.LogisticMaxIter <= 0 {
		cfg.LogisticMaxIter = def.LogisticMaxIter
	}
	return &Trainer{cfg: cfg}
}

func (t *Trainer) Config() TrainerConfig { return t.cfg }

// Fit encodes and scales ds, trains both classifiers on the training
// partition and scores them on the validation partition.
func (t *Trainer) Fit(ds features.Dataset) (*Bundle, error) {
	n := ds.Len()
	if n < t.cfg.MinExamples {
		return nil, fmt.Errorf("%w: have %d meals, need at least %d", ErrInsufficientData, n, t.cfg.MinExamples)
	}
	if len(ds.Targets) != n {
		return nil, fmt.Errorf("%w: %d rows, %d targets", ErrDimension, n, len(ds.Targets))
	}

	positives := 0
	for _, label := range ds.Targets {
		if label != 0 && label != 1 {
			return nil, fmt.Errorf("invalid label %d", label)
		}
		positives += label
	}
	if positives == 0 || positives == n {
		return nil, fmt.Errorf("%w: all %d meals share one outcome", ErrInsufficientData, n)
	}

	categories := make([]string, n)
	for i, row := range ds.Rows {
		categories[i] = row.FoodCategory
	}
	encoder := NewCategoricalEncoder(features.FieldFoodCategory)
	if err := encoder.Fit(categories); err != nil {
		return nil, fmt.Errorf("fit encoder: %w", err)
	}

	X := make([][]float64, n)
	for i, row := range ds.Rows {
		code, err := encoder.Transform(row.FoodCategory)
		if err != nil {
			return nil, err
		}
		X[i] = row.Values(code)
	}

	trainIdx, valIdx := trainValidationSplit(ds.Targets, t.cfg.ValidationFraction, t.cfg.Seed)
	XTrain, yTrain := gather(X, ds.Targets, trainIdx)
	XVal, yVal := gather(X, ds.Targets, valIdx)

	scaler, err := FitScaler(XTrain)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	XTrainScaled, err := scaler.TransformMatrix(XTrain)
	if err != nil {
		return nil, err
	}
	XValScaled, err := scaler.TransformMatrix(XVal)
	if err != nil {
		return nil, err
	}

	classifiers := []BinaryClassifier{
		NewRandomForest(t.cfg.Trees, t.cfg.Seed),
		NewLogisticRegression(t.cfg.LogisticMaxIter),
	}

	models := make([]Model, 0, len(classifiers))
	for _, c := range classifiers {
		start := time.Now()
		if err := c.Fit(XTrainScaled, yTrain); err != nil {
			return nil, fmt.Errorf("fit %s: %w", c.Name(), err)
		}
		acc := accuracy(c, XValScaled, yVal, common.DecisionThreshold)
		models = append(models, Model{Name: c.Name(), Classifier: c, Accuracy: acc})

		log.Debug().
			Str("model", c.Name()).
			Float64("accuracy", acc).
			Dur("elapsed", time.Since(start)).
			Msg("Classifier fitted")
	}

	return &Bundle{
		Encoders:   map[string]*CategoricalEncoder{features.FieldFoodCategory: encoder},
		Scaler:     scaler,
		Models:     models,
		Trained:    true,
		TrainedAt:  time.Now().UTC(),
		Generation: uuid.NewString(),
	}, nil
}
