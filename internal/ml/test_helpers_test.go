package ml

import (
	"fmt"
	"sync"
	"time"

	"tummy-tracker/internal/events"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu               sync.Mutex
	trainingRuns     int
	trainingFailures map[string]int
	trainingDuration float64
	accuracies       map[string]float64
	predictions      map[string]int
	latencySum       float64
	predictionScores []float64
	loadFailures     int
	featureErrors    int
}

func (m *MockMetrics) MLTrainingRunsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainingRuns++
}

func (m *MockMetrics) MLTrainingFailuresInc(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trainingFailures == nil {
		m.trainingFailures = make(map[string]int)
	}
	m.trainingFailures[reason]++
}

func (m *MockMetrics) MLTrainingDurationObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainingDuration += v
}

func (m *MockMetrics) MLValidationAccuracySet(model string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accuracies == nil {
		m.accuracies = make(map[string]float64)
	}
	m.accuracies[model] = v
}

func (m *MockMetrics) MLPredictionsInc(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.predictions == nil {
		m.predictions = make(map[string]int)
	}
	m.predictions[outcome]++
}

func (m *MockMetrics) MLLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) MLPredictionScoresObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictionScores = append(m.predictionScores, v)
}

func (m *MockMetrics) MLArtifactLoadFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadFailures++
}

func (m *MockMetrics) FeatureErrorsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.featureErrors++
}

func (m *MockMetrics) predictionCount(outcome Outcome) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predictions[string(outcome)]
}

var testEpoch = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC) // a Monday

// spicyRawHistory returns n meals alternating between spicy meals, each
// followed by a linked symptom, and raw meals with none.
func spicyRawHistory(n int) events.History {
	var h events.History
	for i := 0; i < n; i++ {
		ts := testEpoch.Add(time.Duration(i) * 7 * time.Hour)
		id := fmt.Sprintf("meal-%02d", i)
		if i%2 == 0 {
			h.Meals = append(h.Meals, spicyMeal(id, ts))
			h.Symptoms = append(h.Symptoms, events.SymptomEvent{
				ID:          fmt.Sprintf("sym-%02d", i),
				MealID:      id,
				SymptomType: "heartburn",
				Severity:    3,
				Onset:       ts.Add(2 * time.Hour),
			})
		} else {
			h.Meals = append(h.Meals, rawMeal(id, ts))
		}
	}
	return h
}

func spicyMeal(id string, ts time.Time) events.MealEvent {
	return events.MealEvent{
		ID:           id,
		FoodName:     "Chicken vindaloo",
		FoodCategory: "spicy",
		Ingredients:  "chicken, chili, black pepper, onion",
		Quantity:     events.Qty(1),
		Timestamp:    ts,
	}
}

func rawMeal(id string, ts time.Time) events.MealEvent {
	return events.MealEvent{
		ID:           id,
		FoodName:     "Garden salad",
		FoodCategory: "raw",
		Ingredients:  "lettuce, cucumber, carrot",
		Quantity:     events.Qty(1),
		Timestamp:    ts,
	}
}
