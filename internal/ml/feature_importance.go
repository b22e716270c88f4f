package ml

import (
	"fmt"
	"sort"

	"tummy-tracker/internal/features"
)

// FeatureStats is the importance of one feature in the trained forest.
type FeatureStats struct {
	Name            string  `json:"name"`
	ImportanceScore float64 `json:"importance_score"`
	Rank            int     `json:"rank"`
}

// FeatureImportance ranks features by the forest's mean impurity decrease,
// highest first. Scores sum to 1 unless the forest never split.
func FeatureImportance(b *Bundle) ([]FeatureStats, error) {
	if !b.IsTrained() {
		return nil, ErrModelNotTrained
	}
	m, ok := b.Model(ForestName)
	if !ok {
		return nil, fmt.Errorf("bundle has no %s model", ForestName)
	}
	forest, ok := m.Classifier.(*RandomForest)
	if !ok {
		return nil, fmt.Errorf("%s model has unexpected type %T", ForestName, m.Classifier)
	}
	if len(forest.Importances) != features.NumFields {
		return nil, fmt.Errorf("%w: forest has %d importances, want %d",
			ErrCorruptedArtifact, len(forest.Importances), features.NumFields)
	}

	stats := make([]FeatureStats, features.NumFields)
	for i, name := range features.FieldNames {
		stats[i] = FeatureStats{Name: name, ImportanceScore: forest.Importances[i]}
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].ImportanceScore > stats[j].ImportanceScore
	})
	for i := range stats {
		stats[i].Rank = i + 1
	}
	return stats, nil
}
