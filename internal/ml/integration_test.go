package ml

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tummy-tracker/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngineConfig(dir string) EngineConfig {
	return EngineConfig{
		ModelDir:                 dir,
		Trainer:                  DefaultTrainerConfig(),
		PredictionsEnabled:       true,
		FeatureImportanceEnabled: true,
	}
}

func TestEngine_PredictBeforeTraining(t *testing.T) {
	metrics := &MockMetrics{}
	e := NewEngine(testEngineConfig(t.TempDir()), metrics)

	res := e.Predict(spicyMeal("", testEpoch))
	assert.Equal(t, OutcomeModelNotTrained, res.Outcome)
	assert.Empty(t, res.Recommendation)
	assert.Equal(t, 1, metrics.predictionCount(OutcomeModelNotTrained))

	st := e.Status()
	assert.False(t, st.Trained)
	assert.Empty(t, st.AvailableModels)
	assert.Zero(t, st.TotalModels)
	assert.Nil(t, st.TrainedAt)
	assert.Equal(t, 10, st.MinExamples)
}

func TestEngine_SpicyRawScenario(t *testing.T) {
	metrics := &MockMetrics{}
	e := NewEngine(testEngineConfig(t.TempDir()), metrics)

	report, err := e.Train(spicyRawHistory(12))
	require.NoError(t, err)
	assert.Equal(t, 12, report.Samples)
	assert.Equal(t, 6, report.Positives)
	assert.True(t, report.Persisted)
	assert.Len(t, report.Accuracies, 2)

	spicy := e.Predict(spicyMeal("", testEpoch.Add(14*time.Hour)))
	require.Equal(t, OutcomeOK, spicy.Outcome)
	assert.Equal(t, LabelLikely, spicy.Label)
	assert.Greater(t, spicy.Confidence, 0.5)
	assert.Equal(t, RecommendSpicy, spicy.Recommendation)

	raw := e.Predict(rawMeal("", testEpoch.Add(7*time.Hour)))
	require.Equal(t, OutcomeOK, raw.Outcome)
	assert.Equal(t, LabelUnlikely, raw.Label)
	assert.Equal(t, RecommendAllClear, raw.Recommendation)

	st := e.Status()
	assert.True(t, st.Trained)
	assert.Equal(t, []string{ForestName, LogisticName}, st.AvailableModels)
	assert.Equal(t, 2, st.TotalModels)
	assert.NotNil(t, st.TrainedAt)
	assert.Equal(t, []string{"spicy", "raw"}, st.Categories)

	assert.Equal(t, 1, metrics.trainingRuns)
	assert.Len(t, metrics.accuracies, 2)
	assert.Equal(t, 2, metrics.predictionCount(OutcomeOK))
	assert.Len(t, metrics.predictionScores, 2)
}

func TestEngine_InsufficientDataKeepsBundle(t *testing.T) {
	metrics := &MockMetrics{}
	e := NewEngine(testEngineConfig(t.TempDir()), metrics)

	_, err := e.Train(spicyRawHistory(5))
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.False(t, e.Status().Trained)

	_, err = e.Train(spicyRawHistory(12))
	require.NoError(t, err)
	before := e.Bundle()

	_, err = e.Train(spicyRawHistory(4))
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Same(t, before, e.Bundle())

	_, err = e.Train(events.History{})
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Same(t, before, e.Bundle())

	assert.Equal(t, 3, metrics.trainingFailures["insufficient_data"])
}

func TestEngine_UnseenCategory(t *testing.T) {
	e := NewEngine(testEngineConfig(t.TempDir()), nil)
	_, err := e.Train(spicyRawHistory(12))
	require.NoError(t, err)

	meal := spicyMeal("", testEpoch)
	meal.FoodCategory = "dairy"
	res := e.Predict(meal)
	assert.Equal(t, OutcomeUnseenCategory, res.Outcome)
	assert.ErrorIs(t, res.Err(), ErrUnseenCategory)
}

func TestEngine_PredictionsDisabled(t *testing.T) {
	cfg := testEngineConfig(t.TempDir())
	cfg.PredictionsEnabled = false
	metrics := &MockMetrics{}
	e := NewEngine(cfg, metrics)

	_, err := e.Train(spicyRawHistory(12))
	require.NoError(t, err)

	res := e.Predict(spicyMeal("", testEpoch))
	assert.Equal(t, OutcomeDisabled, res.Outcome)
	assert.ErrorIs(t, res.Err(), ErrPredictionsDisabled)
	assert.Equal(t, 1, metrics.predictionCount(OutcomeDisabled))
}

func TestEngine_ReloadsPersistedBundle(t *testing.T) {
	dir := t.TempDir()
	first := NewEngine(testEngineConfig(dir), nil)
	_, err := first.Train(spicyRawHistory(16))
	require.NoError(t, err)

	second := NewEngine(testEngineConfig(dir), nil)
	require.True(t, second.Status().Trained)

	for _, meal := range []events.MealEvent{
		spicyMeal("", testEpoch.Add(40*time.Hour)),
		rawMeal("", testEpoch.Add(41*time.Hour)),
	} {
		assert.Equal(t, first.Predict(meal), second.Predict(meal))
	}
}

func TestEngine_CorruptedArtifactsStartUntrained(t *testing.T) {
	dir := t.TempDir()
	first := NewEngine(testEngineConfig(dir), nil)
	_, err := first.Train(spicyRawHistory(12))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, ScalerArtifact)))

	metrics := &MockMetrics{}
	second := NewEngine(testEngineConfig(dir), metrics)
	assert.False(t, second.Status().Trained)
	assert.Equal(t, 1, metrics.loadFailures)
	assert.Equal(t, OutcomeModelNotTrained, second.Predict(spicyMeal("", testEpoch)).Outcome)
}

func TestEngine_PersistFailureStillPublishes(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	e := NewEngine(testEngineConfig(blocker), nil)
	report, err := e.Train(spicyRawHistory(12))
	require.NoError(t, err)
	assert.False(t, report.Persisted)
	assert.True(t, e.Status().Trained)
}

func TestEngine_Deterministic(t *testing.T) {
	a := NewEngine(testEngineConfig(t.TempDir()), nil)
	b := NewEngine(testEngineConfig(t.TempDir()), nil)
	_, err := a.Train(spicyRawHistory(14))
	require.NoError(t, err)
	_, err = b.Train(spicyRawHistory(14))
	require.NoError(t, err)

	meal := spicyMeal("", testEpoch.Add(90*time.Hour))
	assert.Equal(t, a.Predict(meal), b.Predict(meal))
}

func TestEngine_FeatureImportance(t *testing.T) {
	e := NewEngine(testEngineConfig(t.TempDir()), nil)

	_, err := e.FeatureImportance()
	assert.ErrorIs(t, err, ErrModelNotTrained)

	_, err = e.Train(spicyRawHistory(12))
	require.NoError(t, err)

	stats, err := e.FeatureImportance()
	require.NoError(t, err)
	require.Len(t, stats, 13)

	var total float64
	for i, s := range stats {
		assert.Equal(t, i+1, s.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, stats[i-1].ImportanceScore, s.ImportanceScore)
		}
		total += s.ImportanceScore
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	cfg := testEngineConfig(t.TempDir())
	cfg.FeatureImportanceEnabled = false
	_, err = NewEngine(cfg, nil).FeatureImportance()
	assert.ErrorIs(t, err, ErrFeatureImportanceDisabled)
}

func TestEngine_ConcurrentPredictDuringTraining(t *testing.T) {
	e := NewEngine(testEngineConfig(t.TempDir()), &MockMetrics{})
	_, err := e.Train(spicyRawHistory(12))
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			meal := spicyMeal("", testEpoch.Add(14*time.Hour))
			for {
				select {
				case <-stop:
					return
				default:
				}
				res := e.Predict(meal)
				if res.Outcome != OutcomeOK {
					t.Errorf("unexpected outcome %s", res.Outcome)
					return
				}
			}
		}()
	}

	for i := 0; i < 3; i++ {
		_, err := e.Train(spicyRawHistory(12 + 2*i))
		assert.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}

func TestRegistry_PerUserEngines(t *testing.T) {
	base := t.TempDir()
	r := NewRegistry(base, testEngineConfig(""), nil)

	alice, err := r.Engine("alice")
	require.NoError(t, err)
	again, err := r.Engine("alice")
	require.NoError(t, err)
	assert.Same(t, alice, again)

	bob, err := r.Engine("bob")
	require.NoError(t, err)
	assert.NotSame(t, alice, bob)

	_, err = alice.Train(spicyRawHistory(12))
	require.NoError(t, err)
	assert.False(t, bob.Status().Trained)

	_, err = os.Stat(filepath.Join(base, "alice", ScalerArtifact))
	assert.NoError(t, err)

	assert.ElementsMatch(t, []string{"alice", "bob"}, r.Users())
}

func TestRegistry_RejectsUnsafeUserIDs(t *testing.T) {
	r := NewRegistry(t.TempDir(), testEngineConfig(""), nil)

	for _, id := range []string{"", "../etc", "a/b", ".hidden", "white space"} {
		_, err := r.Engine(id)
		assert.ErrorIs(t, err, ErrInvalidUser, id)
	}
	assert.True(t, ValidUserID("user_1.test-a"))
}
