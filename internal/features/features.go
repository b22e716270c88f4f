// Package features turns meal events into the fixed-schema numeric vectors
// consumed by the symptom-risk classifiers.
//
// The field order defined by FieldNames is shared by training and inference;
// every consumer obtains numeric values through Vector.Values so the order
// cannot drift between the two.
package features

import (
	"errors"
	"strings"
	"time"

	"tummy-tracker/internal/events"

	"github.com/rs/zerolog/log"
)

// Field names in vector order.
const (
	FieldFoodCategory   = "food_category"
	FieldMealHour       = "meal_hour"
	FieldMealDayOfWeek  = "meal_day_of_week"
	FieldHasQuantity    = "has_quantity"
	FieldQuantity       = "quantity"
	FieldHasNotes       = "has_notes"
	FieldHasIngredients = "has_ingredients"
	FieldHasDairy       = "has_dairy"
	FieldHasGluten      = "has_gluten"
	FieldHasSpicy       = "has_spicy"
	FieldHasAllergens   = "has_allergens"
	FieldAllergenCount  = "allergen_count"
	FieldDaysSinceEpoch = "days_since_epoch"
)

// NumFields is the width of every feature vector.
const NumFields = 13

// FieldNames lists the vector fields in their fixed order.
var FieldNames = [NumFields]string{
	FieldFoodCategory,
	FieldMealHour,
	FieldMealDayOfWeek,
	FieldHasQuantity,
	FieldQuantity,
	FieldHasNotes,
	FieldHasIngredients,
	FieldHasDairy,
	FieldHasGluten,
	FieldHasSpicy,
	FieldHasAllergens,
	FieldAllergenCount,
	FieldDaysSinceEpoch,
}

var (
	dairyKeywords  = []string{"milk", "cheese", "yogurt", "butter", "cream"}
	glutenKeywords = []string{"wheat", "flour", "bread", "pasta"}
	spicyKeywords  = []string{"pepper", "chili", "hot", "spicy"}
	allergenTerms  = []string{"dairy", "nuts", "gluten", "soy", "fish"}
)

// ErrNoData is returned when a history holds no usable meals.
var ErrNoData = errors.New("features: no meal data")

// MetricsTracker receives a tick for every meal dropped from a dataset.
type MetricsTracker interface {
	FeatureErrorsInc()
}

// Vector is the feature record for one meal. FoodCategory stays categorical
// until an encoder assigns its code.
type Vector struct {
	FoodCategory   string
	MealHour       float64
	MealDayOfWeek  float64
	HasQuantity    float64
	Quantity       float64
	HasNotes       float64
	HasIngredients float64
	HasDairy       float64
	HasGluten      float64
	HasSpicy       float64
	HasAllergens   float64
	AllergenCount  float64
	DaysSinceEpoch float64
}

// Values returns the numeric vector in FieldNames order with categoryCode in
// the food_category slot.
func (v Vector) Values(categoryCode float64) []float64 {
	return []float64{
		categoryCode,
		v.MealHour,
		v.MealDayOfWeek,
		v.HasQuantity,
		v.Quantity,
		v.HasNotes,
		v.HasIngredients,
		v.HasDairy,
		v.HasGluten,
		v.HasSpicy,
		v.HasAllergens,
		v.AllergenCount,
		v.DaysSinceEpoch,
	}
}

// Dataset is a labelled training set. Targets[i] is 1 when Rows[i] was
// followed by at least one linked symptom.
type Dataset struct {
	Rows    []Vector
	Targets []int
}

func (d Dataset) Len() int { return len(d.Rows) }

// Build derives the feature vector for a single meal.
func Build(m events.MealEvent) Vector {
	wall := wallClock(m.Timestamp)

	v := Vector{
		FoodCategory:   m.FoodCategory,
		MealHour:       float64(wall.Hour()),
		MealDayOfWeek:  float64((int(wall.Weekday()) + 6) % 7), // Monday = 0
		DaysSinceEpoch: float64(floorDiv(wall.Unix(), 86400)),
	}

	if m.Quantity != nil && *m.Quantity > 0 {
		v.HasQuantity = 1
		v.Quantity = *m.Quantity
	}
	if present(m.Notes) {
		v.HasNotes = 1
	}

	if present(m.Ingredients) {
		ingredients := strings.ToLower(m.Ingredients)
		v.HasIngredients = 1
		v.HasDairy = flag(containsAny(ingredients, dairyKeywords))
		v.HasGluten = flag(containsAny(ingredients, glutenKeywords))
		v.HasSpicy = flag(containsAny(ingredients, spicyKeywords))
	}

	if present(m.Allergens) {
		allergens := strings.ToLower(m.Allergens)
		v.HasAllergens = 1
		v.AllergenCount = float64(countMatches(allergens, allergenTerms))
	}

	return v
}

// BuildDataset labels every meal in the history by whether any symptom
// references it.
func BuildDataset(h events.History) (Dataset, error) {
	return BuildDatasetWithMetrics(h, nil)
}

// BuildDatasetWithMetrics is BuildDataset with a counter for dropped meals.
// Meals that fail validation are skipped.
func BuildDatasetWithMetrics(h events.History, metrics MetricsTracker) (Dataset, error) {
	if len(h.Meals) == 0 {
		return Dataset{}, ErrNoData
	}

	linked := h.Linked()
	ds := Dataset{
		Rows:    make([]Vector, 0, len(h.Meals)),
		Targets: make([]int, 0, len(h.Meals)),
	}

	for _, m := range h.Meals {
		if err := m.Validate(); err != nil {
			log.Warn().Err(err).Str("meal_id", m.ID).Msg("Skipping invalid meal")
			if metrics != nil {
				metrics.FeatureErrorsInc()
			}
			continue
		}

		target := 0
		if _, ok := linked[m.ID]; ok && m.ID != "" {
			target = 1
		}
		ds.Rows = append(ds.Rows, Build(m))
		ds.Targets = append(ds.Targets, target)
	}

	if len(ds.Rows) == 0 {
		return Dataset{}, ErrNoData
	}
	return ds, nil
}

// wallClock reinterprets t's local wall time as UTC so hour, weekday and
// day count all agree with what the user logged.
func wallClock(t time.Time) time.Time {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, mo, d, h, mi, s, t.Nanosecond(), time.UTC)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func countMatches(text string, terms []string) int {
	n := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			n++
		}
	}
	return n
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
