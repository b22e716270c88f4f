package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"tummy-tracker/internal/events"
	"tummy-tracker/internal/storage"
)

type sampleFood struct {
	name        string
	category    string
	ingredients string
	allergens   string
	// base probability of a symptom following this food
	risk float64
}

var foods = []sampleFood{
	{"Chicken vindaloo", "spicy", "chicken, chili, garlic, onion", "", 0.7},
	{"Hot wings", "spicy", "chicken wings, hot sauce, butter", "dairy", 0.65},
	{"Mac and cheese", "dairy", "pasta, cheese, milk, butter", "dairy, gluten", 0.55},
	{"Milkshake", "dairy", "milk, ice cream, sugar", "dairy", 0.5},
	{"Garden salad", "raw", "lettuce, carrot, cucumber", "", 0.1},
	{"Fruit bowl", "raw", "apple, banana, berries", "", 0.1},
	{"Grilled salmon", "protein", "salmon, lemon, olive oil", "fish", 0.15},
	{"Oatmeal", "grain", "oats, water, honey", "gluten", 0.1},
	{"Fried chicken", "fried", "chicken, flour, oil", "gluten", 0.45},
	{"French fries", "fried", "potato, oil, salt", "", 0.35},
}

var symptomTypes = []string{"bloating", "cramps", "nausea", "heartburn"}

func main() {
	var (
		dataPath = flag.String("data", "data", "Data directory path")
		user     = flag.String("user", "demo", "User id to generate history for")
		days     = flag.Int("days", 30, "Number of days of history to generate")
		perDay   = flag.Int("meals-per-day", 3, "Meals logged per day")
		seed     = flag.Uint64("seed", 42, "Random seed")
	)
	flag.Parse()

	fmt.Printf("Generating sample history for %s...\n", *user)
	fmt.Printf("  Days: %d\n", *days)
	fmt.Printf("  Meals per day: %d\n", *perDay)
	fmt.Printf("  Data Path: %s\n", *dataPath)

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	start := time.Now().AddDate(0, 0, -*days).Truncate(24 * time.Hour)
	meals, symptoms, err := generateHistory(store, *user, start, *days, *perDay, rand.New(rand.NewPCG(*seed, *seed)))
	if err != nil {
		log.Fatalf("Failed to generate data: %v", err)
	}

	fmt.Printf("✓ Generated %d meals and %d symptoms for %s\n", meals, symptoms, *user)
}

// generateHistory logs meals at breakfast, lunch and dinner hours. Late
// evening meals carry extra risk so hour features have signal.
func generateHistory(store *storage.Store, user string, start time.Time, days, perDay int, rng *rand.Rand) (int, int, error) {
	mealHours := []int{8, 13, 19, 22}
	if perDay > len(mealHours) {
		perDay = len(mealHours)
	}

	meals, symptoms := 0, 0
	for d := 0; d < days; d++ {
		for i := 0; i < perDay; i++ {
			f := foods[rng.IntN(len(foods))]
			ts := start.AddDate(0, 0, d).
				Add(time.Duration(mealHours[i]) * time.Hour).
				Add(time.Duration(rng.IntN(45)) * time.Minute)

			qty := 0.5 + rng.Float64()*1.5
			stored, err := store.AddMeal(user, events.MealEvent{
				FoodName:     f.name,
				FoodCategory: f.category,
				Ingredients:  f.ingredients,
				Allergens:    f.allergens,
				Quantity:     events.Qty(float64(int(qty*10)) / 10),
				Timestamp:    ts,
			})
			if err != nil {
				return meals, symptoms, fmt.Errorf("add meal: %w", err)
			}
			meals++

			risk := f.risk
			if mealHours[i] >= 21 {
				risk += 0.15
			}
			if qty > 1.5 {
				risk += 0.1
			}
			if rng.Float64() >= risk {
				continue
			}

			severity := 1 + int(risk*4)
			if severity > events.MaxSeverity {
				severity = events.MaxSeverity
			}
			_, err = store.AddSymptom(user, events.SymptomEvent{
				MealID:      stored.ID,
				SymptomType: symptomTypes[rng.IntN(len(symptomTypes))],
				Severity:    severity,
				Onset:       ts.Add(time.Duration(30+rng.IntN(240)) * time.Minute),
			})
			if err != nil {
				return meals, symptoms, fmt.Errorf("add symptom: %w", err)
			}
			symptoms++
		}
	}
	return meals, symptoms, nil
}
