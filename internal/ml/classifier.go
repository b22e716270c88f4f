// Package ml provides the symptom-risk prediction engine: categorical
// encoding, feature scaling, two binary classifiers combined into an
// ensemble, and a persisted model bundle that can be reloaded without
// retraining.
//
// Trained state lives in an immutable Bundle. Retraining publishes a new
// Bundle by pointer swap, so concurrent predictions always see one
// consistent set of encoder, scaler and classifiers.
package ml

// Classifier identifiers, also used as artifact names.
const (
	ForestName   = "random_forest"
	LogisticName = "logistic_regression"
)

// BinaryClassifier is the capability both ensemble members implement.
// Implementations must be safe for concurrent PredictProba calls after Fit.
type BinaryClassifier interface {
	// Name returns the stable classifier identifier.
	Name() string

	// Fit trains on rows X with labels y in {0, 1}.
	Fit(X [][]float64, y []int) error

	// PredictProba returns the probability that x belongs to class 1.
	PredictProba(x []float64) float64
}

// newClassifier returns an empty classifier for the given identifier, used
// when decoding persisted artifacts.
func newClassifier(name string) (BinaryClassifier, bool) {
	switch name {
	case ForestName:
		return &RandomForest{}, true
	case LogisticName:
		return &LogisticRegression{}, true
	default:
		return nil, false
	}
}

func validateTrainingInput(X [][]float64, y []int) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyInput
	}
	if len(X) != len(y) {
		return 0, ErrDimension
	}
	width := len(X[0])
	for _, row := range X {
		if len(row) != width {
			return 0, ErrDimension
		}
	}
	return width, nil
}
