package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tummy-tracker/internal/events"
)

type countingMetrics struct {
	meals, symptoms int
}

func (c *countingMetrics) MealsLoggedInc()    { c.meals++ }
func (c *countingMetrics) SymptomsLoggedInc() { c.symptoms++ }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

var base = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func meal(category string, ts time.Time) events.MealEvent {
	return events.MealEvent{
		FoodName:     category + " dish",
		FoodCategory: category,
		Ingredients:  "rice, water",
		Quantity:     events.Qty(1),
		Timestamp:    ts,
	}
}

func TestNew(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "nested")

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store database is nil")
	}

	dbPath := filepath.Join(tempDir, DBFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := New(filepath.Join(blocker, "data")); err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestStore_Close(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Error closing store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Error closing already closed store: %v", err)
	}
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{db: nil}
	if err := store.Close(); err != nil {
		t.Errorf("Expected no error for nil db, got: %v", err)
	}
}

func TestAddMeal_AssignsID(t *testing.T) {
	store := newTestStore(t)

	stored, err := store.AddMeal("alice", meal("dairy", base))
	if err != nil {
		t.Fatalf("Failed to add meal: %v", err)
	}
	if stored.ID == "" {
		t.Fatal("Expected an id to be assigned")
	}

	got, err := store.Meal("alice", stored.ID)
	if err != nil {
		t.Fatalf("Failed to read meal: %v", err)
	}
	if got.FoodCategory != "dairy" || !got.Timestamp.Equal(base) {
		t.Errorf("Unexpected meal read back: %+v", got)
	}
	if got.Quantity == nil || *got.Quantity != 1 {
		t.Errorf("Expected quantity 1, got %v", got.Quantity)
	}
}

func TestAddMeal_Validation(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name    string
		user    string
		meal    events.MealEvent
		wantErr error
	}{
		{"missing user", "", meal("dairy", base), ErrInvalidUser},
		{"missing category", "alice", meal(" ", base), events.ErrMissingCategory},
		{"negative quantity", "alice", events.MealEvent{FoodCategory: "raw", Timestamp: base, Quantity: events.Qty(-1)}, events.ErrNegativeQty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.AddMeal(tt.user, tt.meal)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAddMeal_DefaultsTimestamp(t *testing.T) {
	store := newTestStore(t)
	store.now = func() time.Time { return base }

	stored, err := store.AddMeal("alice", events.MealEvent{FoodCategory: "raw"})
	if err != nil {
		t.Fatalf("Failed to add meal: %v", err)
	}
	if !stored.Timestamp.Equal(base) {
		t.Errorf("Expected timestamp %v, got %v", base, stored.Timestamp)
	}
}

func TestAddMeal_DuplicateID(t *testing.T) {
	store := newTestStore(t)

	m := meal("raw", base)
	m.ID = "fixed"
	if _, err := store.AddMeal("alice", m); err != nil {
		t.Fatalf("Failed to add meal: %v", err)
	}
	if _, err := store.AddMeal("alice", m); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("Expected ErrDuplicateID, got %v", err)
	}

	// Ids are scoped per user.
	if _, err := store.AddMeal("bob", m); err != nil {
		t.Errorf("Expected same id for another user to succeed, got %v", err)
	}
}

func TestAddSymptom(t *testing.T) {
	metrics := &countingMetrics{}
	store, err := NewWithMetrics(t.TempDir(), metrics)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	stored, err := store.AddMeal("alice", meal("dairy", base))
	if err != nil {
		t.Fatalf("Failed to add meal: %v", err)
	}

	sym, err := store.AddSymptom("alice", events.SymptomEvent{
		MealID:      stored.ID,
		SymptomType: "bloating",
		Severity:    3,
		Onset:       base.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Failed to add symptom: %v", err)
	}
	if sym.ID == "" {
		t.Error("Expected symptom id to be assigned")
	}

	if metrics.meals != 1 || metrics.symptoms != 1 {
		t.Errorf("Expected 1 meal and 1 symptom logged, got %d and %d", metrics.meals, metrics.symptoms)
	}
}

func TestAddSymptom_Rejects(t *testing.T) {
	store := newTestStore(t)
	stored, err := store.AddMeal("alice", meal("dairy", base))
	if err != nil {
		t.Fatalf("Failed to add meal: %v", err)
	}

	tests := []struct {
		name    string
		user    string
		symptom events.SymptomEvent
		wantErr error
	}{
		{"unknown meal", "alice", events.SymptomEvent{MealID: "nope", Severity: 2, Onset: base}, ErrMealNotFound},
		{"other user's meal", "bob", events.SymptomEvent{MealID: stored.ID, Severity: 2, Onset: base}, ErrMealNotFound},
		{"severity too high", "alice", events.SymptomEvent{MealID: stored.ID, Severity: 6, Onset: base}, events.ErrSeverityRange},
		{"severity too low", "alice", events.SymptomEvent{MealID: stored.ID, Severity: 0, Onset: base}, events.ErrSeverityRange},
		{"no meal reference", "alice", events.SymptomEvent{Severity: 2, Onset: base}, events.ErrMissingMealRef},
		{"negative duration", "alice", events.SymptomEvent{MealID: stored.ID, Severity: 2, Onset: base, DurationMinutes: events.Minutes(-10)}, events.ErrNegativeDur},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.AddSymptom(tt.user, tt.symptom)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAddSymptom_DuplicateID(t *testing.T) {
	store := newTestStore(t)
	stored, err := store.AddMeal("alice", meal("dairy", base))
	if err != nil {
		t.Fatalf("Failed to add meal: %v", err)
	}

	sym := events.SymptomEvent{ID: "s1", MealID: stored.ID, Severity: 2, Onset: base.Add(time.Hour)}
	if _, err := store.AddSymptom("alice", sym); err != nil {
		t.Fatalf("Failed to add symptom: %v", err)
	}

	// Same id at a different onset is still the same record.
	sym.Onset = base.Add(3 * time.Hour)
	if _, err := store.AddSymptom("alice", sym); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("Expected ErrDuplicateID, got %v", err)
	}

	h, err := store.History("alice")
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if len(h.Symptoms) != 1 {
		t.Errorf("Expected 1 stored symptom, got %d", len(h.Symptoms))
	}

	bobMeal, err := store.AddMeal("bob", meal("dairy", base))
	if err != nil {
		t.Fatalf("Failed to add meal: %v", err)
	}
	sym.MealID = bobMeal.ID
	if _, err := store.AddSymptom("bob", sym); err != nil {
		t.Errorf("Expected same symptom id for another user to succeed, got %v", err)
	}
}

func TestAddSymptom_KeepsDuration(t *testing.T) {
	store := newTestStore(t)
	stored, err := store.AddMeal("alice", meal("spicy", base))
	if err != nil {
		t.Fatalf("Failed to add meal: %v", err)
	}
	if _, err := store.AddSymptom("alice", events.SymptomEvent{
		MealID:          stored.ID,
		Severity:        3,
		Onset:           base.Add(time.Hour),
		DurationMinutes: events.Minutes(90),
	}); err != nil {
		t.Fatalf("Failed to add symptom: %v", err)
	}

	h, err := store.History("alice")
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if len(h.Symptoms) != 1 || h.Symptoms[0].DurationMinutes == nil || *h.Symptoms[0].DurationMinutes != 90 {
		t.Errorf("Expected stored duration of 90 minutes, got %+v", h.Symptoms)
	}
}

func TestHistory_ChronologicalAndScoped(t *testing.T) {
	store := newTestStore(t)

	// Insert out of order.
	later, err := store.AddMeal("alice", meal("spicy", base.Add(5*time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddMeal("alice", meal("raw", base)); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddMeal("bob", meal("gluten", base)); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddSymptom("alice", events.SymptomEvent{MealID: later.ID, Severity: 4, Onset: base.Add(6 * time.Hour)}); err != nil {
		t.Fatal(err)
	}

	h, err := store.History("alice")
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if len(h.Meals) != 2 {
		t.Fatalf("Expected 2 meals, got %d", len(h.Meals))
	}
	if h.Meals[0].FoodCategory != "raw" || h.Meals[1].FoodCategory != "spicy" {
		t.Errorf("Expected chronological order, got %s then %s", h.Meals[0].FoodCategory, h.Meals[1].FoodCategory)
	}
	if len(h.Symptoms) != 1 || h.Symptoms[0].MealID != later.ID {
		t.Errorf("Unexpected symptoms: %+v", h.Symptoms)
	}
	if _, ok := h.Linked()[later.ID]; !ok {
		t.Error("Expected spicy meal to be linked to a symptom")
	}

	users, err := store.Users()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Errorf("Expected 2 users, got %v", users)
	}
}

func TestHistory_UnknownUser(t *testing.T) {
	store := newTestStore(t)

	h, err := store.History("nobody")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(h.Meals) != 0 || len(h.Symptoms) != 0 {
		t.Errorf("Expected empty history, got %+v", h)
	}
}

func TestRecentMeals(t *testing.T) {
	store := newTestStore(t)

	for _, offset := range []time.Duration{-48 * time.Hour, -23 * time.Hour, -time.Hour, 0, time.Hour} {
		if _, err := store.AddMeal("alice", meal("raw", base.Add(offset))); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := store.RecentMeals("alice", 24*time.Hour, base)
	if err != nil {
		t.Fatalf("Failed to query recent meals: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Expected 3 meals within 24h, got %d", len(recent))
	}
	if !recent[0].Timestamp.Equal(base.Add(-23 * time.Hour)) {
		t.Errorf("Expected oldest recent meal first, got %v", recent[0].Timestamp)
	}

	none, err := store.RecentMeals("nobody", 24*time.Hour, base)
	if err != nil || len(none) != 0 {
		t.Errorf("Expected no meals for unknown user, got %d (%v)", len(none), err)
	}
}

func TestStore_Persists(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddMeal("alice", meal("dairy", base)); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	h, err := reopened.History("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Meals) != 1 {
		t.Errorf("Expected 1 persisted meal, got %d", len(h.Meals))
	}
}
