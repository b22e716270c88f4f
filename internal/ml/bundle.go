package ml

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"tummy-tracker/internal/features"
)

// Model is one fitted ensemble member and its held-out accuracy.
type Model struct {
	Name       string
	Classifier BinaryClassifier
	Accuracy   float64
}

// Bundle is the complete trained state needed for inference. A published
// Bundle is never mutated; retraining builds and publishes a new one.
type Bundle struct {
	Encoders   map[string]*CategoricalEncoder
	Scaler     *Scaler
	Models     []Model
	Trained    bool
	TrainedAt  time.Time
	// Generation identifies the training run; every persisted artifact
	// of the bundle carries it.
	Generation string
}

// UntrainedBundle is the cold-start state.
func UntrainedBundle() *Bundle {
	return &Bundle{}
}

// IsTrained reports whether b can serve predictions.
func (b *Bundle) IsTrained() bool {
	return b != nil && b.Trained && b.Scaler != nil && len(b.Models) > 0
}

// Model returns the ensemble member with the given name.
func (b *Bundle) Model(name string) (Model, bool) {
	if b == nil {
		return Model{}, false
	}
	for _, m := range b.Models {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// ModelNames lists the ensemble members in bundle order.
func (b *Bundle) ModelNames() []string {
	if b == nil {
		return nil
	}
	names := make([]string, 0, len(b.Models))
	for _, m := range b.Models {
		names = append(names, m.Name)
	}
	return names
}

// Accuracies maps model name to validation accuracy.
func (b *Bundle) Accuracies() map[string]float64 {
	out := make(map[string]float64)
	if b == nil {
		return out
	}
	for _, m := range b.Models {
		out[m.Name] = m.Accuracy
	}
	return out
}

// Encode turns a feature vector into the scaled numeric row the
// classifiers expect.
func (b *Bundle) Encode(v features.Vector) ([]float64, error) {
	enc, ok := b.Encoders[features.FieldFoodCategory]
	if !ok {
		return nil, fmt.Errorf("%w: no encoder for %s", ErrCorruptedArtifact, features.FieldFoodCategory)
	}
	code, err := enc.Transform(v.FoodCategory)
	if err != nil {
		return nil, err
	}
	return b.Scaler.Transform(v.Values(code))
}

// Categories lists the food categories known to the bundle's encoder.
func (b *Bundle) Categories() []string {
	if b == nil {
		return nil
	}
	enc, ok := b.Encoders[features.FieldFoodCategory]
	if !ok {
		return nil
	}
	return slices.Clone(enc.Classes)
}

func encoderFields(encoders map[string]*CategoricalEncoder) []string {
	return slices.Sorted(maps.Keys(encoders))
}
