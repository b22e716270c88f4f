package storage

import (
	"bytes"
	"fmt"
	"time"

	"tummy-tracker/internal/events"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// AddMeal validates and stores a meal for userID. An empty ID is replaced
// with a new UUID; the stored record is returned.
func (s *Store) AddMeal(userID string, meal events.MealEvent) (events.MealEvent, error) {
	if err := checkUser(userID); err != nil {
		return events.MealEvent{}, err
	}
	if meal.Timestamp.IsZero() {
		meal.Timestamp = s.now()
	}
	if err := meal.Validate(); err != nil {
		return events.MealEvent{}, err
	}
	if meal.ID == "" {
		meal.ID = uuid.NewString()
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := userBuckets(tx, userID)
		if err != nil {
			return err
		}
		if b.mealIDs.Get([]byte(meal.ID)) != nil {
			return fmt.Errorf("%w: meal %s", ErrDuplicateID, meal.ID)
		}

		data, err := json.Marshal(meal)
		if err != nil {
			return fmt.Errorf("marshal meal: %w", err)
		}

		key := recordKey(meal.Timestamp, meal.ID)
		if err := b.meals.Put(key, data); err != nil {
			return err
		}
		return b.mealIDs.Put([]byte(meal.ID), key)
	})
	if err != nil {
		return events.MealEvent{}, err
	}

	if s.metrics != nil {
		s.metrics.MealsLoggedInc()
	}
	return meal, nil
}

// Meal returns one stored meal by id.
func (s *Store) Meal(userID, mealID string) (events.MealEvent, error) {
	var meal events.MealEvent
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := userBuckets(tx, userID)
		if err != nil {
			return err
		}
		if b.mealIDs == nil {
			return fmt.Errorf("%w: %s", ErrMealNotFound, mealID)
		}
		key := b.mealIDs.Get([]byte(mealID))
		if key == nil {
			return fmt.Errorf("%w: %s", ErrMealNotFound, mealID)
		}
		return json.Unmarshal(b.meals.Get(key), &meal)
	})
	return meal, err
}

// RecentMeals returns the user's meals logged within window before now,
// oldest first.
func (s *Store) RecentMeals(userID string, window time.Duration, now time.Time) ([]events.MealEvent, error) {
	var out []events.MealEvent

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := userBuckets(tx, userID)
		if err != nil || b.meals == nil {
			return err
		}

		start := []byte(timeKey(now.Add(-window)))
		end := []byte(timeKey(now) + "~")
		c := b.meals.Cursor()
		for k, v := c.Seek(start); k != nil && bytes.Compare(k, end) <= 0; k, v = c.Next() {
			var m events.MealEvent
			if err := json.Unmarshal(v, &m); err != nil {
				continue // Skip malformed records
			}
			out = append(out, m)
		}
		return nil
	})

	return out, err
}

func scanMeals(b *bbolt.Bucket) ([]events.MealEvent, error) {
	var out []events.MealEvent
	if b == nil {
		return out, nil
	}
	err := b.ForEach(func(k, v []byte) error {
		var m events.MealEvent
		if err := json.Unmarshal(v, &m); err != nil {
			return fmt.Errorf("decode meal %s: %w", k, err)
		}
		out = append(out, m)
		return nil
	})
	return out, err
}
