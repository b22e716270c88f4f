package ml

import (
	"errors"
	"math"

	"tummy-tracker/internal/common"
	"tummy-tracker/internal/features"

	"github.com/rs/zerolog/log"
)

type Label string

const (
	LabelLikely   Label = "likely"
	LabelUnlikely Label = "unlikely"
)

// Outcome tags which variant a Result carries.
type Outcome string

const (
	OutcomeOK              Outcome = "ok"
	OutcomeModelNotTrained Outcome = "model_not_trained"
	OutcomeUnseenCategory  Outcome = "unseen_category"
	OutcomeDisabled        Outcome = "disabled"
)

// ModelPrediction is one ensemble member's view of a meal.
type ModelPrediction struct {
	Label       Label   `json:"label"`
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
}

// Result is the outcome of a prediction. Only OutcomeOK results carry a
// label, confidence and recommendation.
type Result struct {
	Outcome        Outcome                    `json:"outcome"`
	Label          Label                      `json:"label,omitempty"`
	Probability    float64                    `json:"probability"`
	Confidence     float64                    `json:"confidence"`
	Recommendation string                     `json:"recommendation,omitempty"`
	Category       string                     `json:"food_category"`
	Models         map[string]ModelPrediction `json:"models,omitempty"`
	Detail         string                     `json:"detail,omitempty"`
}

// Err maps a non-OK outcome to its sentinel error.
func (r Result) Err() error {
	switch r.Outcome {
	case OutcomeOK:
		return nil
	case OutcomeModelNotTrained:
		return ErrModelNotTrained
	case OutcomeUnseenCategory:
		return ErrUnseenCategory
	case OutcomeDisabled:
		return ErrPredictionsDisabled
	}
	return errors.New("unknown prediction outcome")
}

// Predict scores one meal against a bundle. It has no side effects and is
// safe to call concurrently on the same bundle.
func Predict(b *Bundle, v features.Vector) Result {
	res := Result{Category: v.FoodCategory}

	if !b.IsTrained() {
		res.Outcome = OutcomeModelNotTrained
		return res
	}

	row, err := b.Encode(v)
	if err != nil {
		if errors.Is(err, ErrUnseenCategory) {
			res.Outcome = OutcomeUnseenCategory
			res.Detail = err.Error()
			return res
		}
		// A bundle that cannot encode is as good as no bundle.
		log.Warn().Err(err).Msg("Bundle failed to encode features")
		res.Outcome = OutcomeModelNotTrained
		res.Detail = err.Error()
		return res
	}

	res.Models = make(map[string]ModelPrediction, len(b.Models))
	var sum float64
	for _, m := range b.Models {
		p := clamp01(m.Classifier.PredictProba(row))
		sum += p
		res.Models[m.Name] = ModelPrediction{
			Label:       labelFor(p),
			Probability: p,
			Confidence:  math.Max(p, 1-p),
		}
	}

	p := sum / float64(len(b.Models))
	res.Outcome = OutcomeOK
	res.Probability = p
	res.Label = labelFor(p)
	res.Confidence = math.Max(p, 1-p)
	res.Recommendation = Recommend(res.Label, v.FoodCategory)

	log.Debug().
		Str("food_category", v.FoodCategory).
		Float64("probability", p).
		Str("label", string(res.Label)).
		Msg("Prediction successful")

	return res
}

func labelFor(p float64) Label {
	if p > common.DecisionThreshold {
		return LabelLikely
	}
	return LabelUnlikely
}

func clamp01(p float64) float64 {
	if math.IsNaN(p) {
		return 0.5
	}
	return math.Min(1, math.Max(0, p))
}
