// Package events defines the meal and symptom records the tracker ingests.
// Records are immutable once stored; the ML engine only reads them.
package events

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	MinSeverity = 1
	MaxSeverity = 5
)

var (
	ErrMissingCategory = errors.New("food category is required")
	ErrMissingTime     = errors.New("timestamp is required")
	ErrNegativeQty     = errors.New("quantity must not be negative")
	ErrSeverityRange   = errors.New("severity must be between 1 and 5")
	ErrMissingMealRef  = errors.New("symptom must reference a meal")
	ErrNegativeDur     = errors.New("duration must not be negative")
)

// MealEvent is one logged food intake. It doubles as the descriptor for a
// candidate meal at prediction time, in which case ID is empty.
type MealEvent struct {
	ID           string    `json:"id,omitempty"`
	FoodName     string    `json:"food_name,omitempty"`
	FoodCategory string    `json:"food_category"`
	Ingredients  string    `json:"ingredients,omitempty"`
	Allergens    string    `json:"allergens,omitempty"`
	Quantity     *float64  `json:"quantity,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// SymptomEvent is a digestive symptom linked to the meal it followed.
type SymptomEvent struct {
	ID              string    `json:"id,omitempty"`
	MealID          string    `json:"meal_id"`
	SymptomType     string    `json:"symptom_type,omitempty"`
	Severity        int       `json:"severity"`
	Onset           time.Time `json:"onset"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"` // optional
	Notes           string    `json:"notes,omitempty"`
}

// History is everything recorded for one user.
type History struct {
	Meals    []MealEvent    `json:"meals"`
	Symptoms []SymptomEvent `json:"symptoms"`
}

// Validate checks the fields the feature builder depends on.
func (m MealEvent) Validate() error {
	if strings.TrimSpace(m.FoodCategory) == "" {
		return ErrMissingCategory
	}
	if m.Timestamp.IsZero() {
		return ErrMissingTime
	}
	if m.Quantity != nil && *m.Quantity < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeQty, *m.Quantity)
	}
	return nil
}

func (s SymptomEvent) Validate() error {
	if s.MealID == "" {
		return ErrMissingMealRef
	}
	if s.Severity < MinSeverity || s.Severity > MaxSeverity {
		return fmt.Errorf("%w: got %d", ErrSeverityRange, s.Severity)
	}
	if s.Onset.IsZero() {
		return ErrMissingTime
	}
	if s.DurationMinutes != nil && *s.DurationMinutes < 0 {
		return fmt.Errorf("%w: %d minutes", ErrNegativeDur, *s.DurationMinutes)
	}
	return nil
}

// Linked returns the set of meal IDs referenced by at least one symptom.
func (h History) Linked() map[string]struct{} {
	linked := make(map[string]struct{}, len(h.Symptoms))
	for _, s := range h.Symptoms {
		linked[s.MealID] = struct{}{}
	}
	return linked
}

// Qty is a convenience for building MealEvent literals.
func Qty(v float64) *float64 { return &v }

// Minutes is a convenience for building SymptomEvent literals.
func Minutes(v int) *int { return &v }
