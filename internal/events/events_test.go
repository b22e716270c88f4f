package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

func TestSymptomEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		symptom SymptomEvent
		wantErr error
	}{
		{"valid", SymptomEvent{MealID: "m", Severity: 3, Onset: at}, nil},
		{"with duration", SymptomEvent{MealID: "m", Severity: 3, Onset: at, DurationMinutes: Minutes(45)}, nil},
		{"zero duration", SymptomEvent{MealID: "m", Severity: 3, Onset: at, DurationMinutes: Minutes(0)}, nil},
		{"negative duration", SymptomEvent{MealID: "m", Severity: 3, Onset: at, DurationMinutes: Minutes(-5)}, ErrNegativeDur},
		{"no meal", SymptomEvent{Severity: 3, Onset: at}, ErrMissingMealRef},
		{"severity", SymptomEvent{MealID: "m", Severity: 0, Onset: at}, ErrSeverityRange},
		{"no onset", SymptomEvent{MealID: "m", Severity: 1}, ErrMissingTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.symptom.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	h := History{
		Meals: []MealEvent{
			{ID: "d1", FoodCategory: "dairy", Timestamp: at},
			{ID: "d2", FoodCategory: "dairy", Timestamp: at},
			{ID: "s1", FoodCategory: "spicy", Timestamp: at},
			{ID: "r1", FoodCategory: "raw", Timestamp: at},
		},
		Symptoms: []SymptomEvent{
			{MealID: "d1", SymptomType: "bloating", Severity: 2, Onset: at},
			{MealID: "d1", SymptomType: "cramps", Severity: 4, Onset: at},
			{MealID: "d2", SymptomType: "bloating", Severity: 3, Onset: at},
			{MealID: "s1", Severity: 5, Onset: at},
			{MealID: "gone", SymptomType: "cramps", Severity: 1, Onset: at},
		},
	}

	a := Summarize(h)
	assert.Equal(t, 4, a.TotalMeals)
	assert.Equal(t, 5, a.TotalSymptoms)

	require.Len(t, a.Categories, 3)
	assert.Equal(t, "dairy", a.Categories[0].Category)
	assert.Equal(t, 2, a.Categories[0].MealCount)
	assert.Equal(t, 3, a.Categories[0].SymptomCount)
	require.NotNil(t, a.Categories[0].AvgSeverity)
	assert.InDelta(t, 3.0, *a.Categories[0].AvgSeverity, 1e-9)

	assert.Equal(t, "raw", a.Categories[1].Category)
	assert.Equal(t, 1, a.Categories[1].MealCount)
	assert.Nil(t, a.Categories[1].AvgSeverity)

	assert.Equal(t, "spicy", a.Categories[2].Category)
	assert.InDelta(t, 5.0, *a.Categories[2].AvgSeverity, 1e-9)

	assert.Equal(t, []SymptomTypeStats{
		{SymptomType: "bloating", Count: 2, AvgSeverity: 2.5},
		{SymptomType: "cramps", Count: 2, AvgSeverity: 2.5},
		{SymptomType: UnspecifiedSymptom, Count: 1, AvgSeverity: 5},
	}, a.SymptomTypes)
}

func TestSummarize_Empty(t *testing.T) {
	a := Summarize(History{})
	assert.Zero(t, a.TotalMeals)
	assert.Zero(t, a.TotalSymptoms)
	assert.NotNil(t, a.Categories)
	assert.Empty(t, a.Categories)
	assert.NotNil(t, a.SymptomTypes)
}
