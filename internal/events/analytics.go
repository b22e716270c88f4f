package events

import (
	"cmp"
	"slices"
)

// UnspecifiedSymptom groups symptoms logged without a type.
const UnspecifiedSymptom = "unspecified"

// CategoryStats summarises meals of one food category and the symptoms
// that reference them. AvgSeverity is nil when no symptom followed.
type CategoryStats struct {
	Category     string   `json:"food_category"`
	MealCount    int      `json:"meal_count"`
	SymptomCount int      `json:"symptom_count"`
	AvgSeverity  *float64 `json:"avg_severity"`
}

// SymptomTypeStats summarises symptoms of one type.
type SymptomTypeStats struct {
	SymptomType string  `json:"symptom_type"`
	Count       int     `json:"count"`
	AvgSeverity float64 `json:"avg_severity"`
}

// Analytics is the per-user pattern overview.
type Analytics struct {
	TotalMeals    int                `json:"total_meals"`
	TotalSymptoms int                `json:"total_symptoms"`
	Categories    []CategoryStats    `json:"categories"`
	SymptomTypes  []SymptomTypeStats `json:"symptom_types"`
}

// Summarize aggregates h by food category and symptom type. Both lists are
// sorted by name. A symptom whose meal is not in h still counts toward its
// type and the total.
func Summarize(h History) Analytics {
	out := Analytics{
		TotalMeals:    len(h.Meals),
		TotalSymptoms: len(h.Symptoms),
		Categories:    []CategoryStats{},
		SymptomTypes:  []SymptomTypeStats{},
	}

	type acc struct {
		meals, symptoms, severity int
	}
	mealCategory := make(map[string]string, len(h.Meals))
	categories := make(map[string]*acc)
	for _, m := range h.Meals {
		mealCategory[m.ID] = m.FoodCategory
		a, ok := categories[m.FoodCategory]
		if !ok {
			a = &acc{}
			categories[m.FoodCategory] = a
		}
		a.meals++
	}

	types := make(map[string]*acc)
	for _, s := range h.Symptoms {
		if cat, ok := mealCategory[s.MealID]; ok {
			a := categories[cat]
			a.symptoms++
			a.severity += s.Severity
		}

		kind := s.SymptomType
		if kind == "" {
			kind = UnspecifiedSymptom
		}
		a, ok := types[kind]
		if !ok {
			a = &acc{}
			types[kind] = a
		}
		a.symptoms++
		a.severity += s.Severity
	}

	for cat, a := range categories {
		cs := CategoryStats{Category: cat, MealCount: a.meals, SymptomCount: a.symptoms}
		if a.symptoms > 0 {
			avg := float64(a.severity) / float64(a.symptoms)
			cs.AvgSeverity = &avg
		}
		out.Categories = append(out.Categories, cs)
	}
	slices.SortFunc(out.Categories, func(x, y CategoryStats) int { return cmp.Compare(x.Category, y.Category) })

	for kind, a := range types {
		out.SymptomTypes = append(out.SymptomTypes, SymptomTypeStats{
			SymptomType: kind,
			Count:       a.symptoms,
			AvgSeverity: float64(a.severity) / float64(a.symptoms),
		})
	}
	slices.SortFunc(out.SymptomTypes, func(x, y SymptomTypeStats) int { return cmp.Compare(x.SymptomType, y.SymptomType) })

	return out
}
