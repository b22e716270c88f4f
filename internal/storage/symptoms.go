package storage

import (
	"fmt"

	"tummy-tracker/internal/events"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// AddSymptom stores a symptom for userID. The referenced meal must already
// be stored for the same user.
func (s *Store) AddSymptom(userID string, symptom events.SymptomEvent) (events.SymptomEvent, error) {
	if err := checkUser(userID); err != nil {
		return events.SymptomEvent{}, err
	}
	if symptom.Onset.IsZero() {
		symptom.Onset = s.now()
	}
	if err := symptom.Validate(); err != nil {
		return events.SymptomEvent{}, err
	}
	if symptom.ID == "" {
		symptom.ID = uuid.NewString()
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := userBuckets(tx, userID)
		if err != nil {
			return err
		}
		if b.mealIDs.Get([]byte(symptom.MealID)) == nil {
			return fmt.Errorf("%w: %s", ErrMealNotFound, symptom.MealID)
		}
		if b.symptomIDs.Get([]byte(symptom.ID)) != nil {
			return fmt.Errorf("%w: symptom %s", ErrDuplicateID, symptom.ID)
		}

		data, err := json.Marshal(symptom)
		if err != nil {
			return fmt.Errorf("marshal symptom: %w", err)
		}

		key := recordKey(symptom.Onset, symptom.ID)
		if err := b.symptoms.Put(key, data); err != nil {
			return err
		}
		return b.symptomIDs.Put([]byte(symptom.ID), key)
	})
	if err != nil {
		return events.SymptomEvent{}, err
	}

	if s.metrics != nil {
		s.metrics.SymptomsLoggedInc()
	}
	return symptom, nil
}

// History returns everything stored for userID in chronological order.
// An unknown user has an empty history.
func (s *Store) History(userID string) (events.History, error) {
	var h events.History

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := userBuckets(tx, userID)
		if err != nil {
			return err
		}

		if h.Meals, err = scanMeals(b.meals); err != nil {
			return err
		}
		if b.symptoms == nil {
			return nil
		}
		return b.symptoms.ForEach(func(k, v []byte) error {
			var sym events.SymptomEvent
			if err := json.Unmarshal(v, &sym); err != nil {
				return fmt.Errorf("decode symptom %s: %w", k, err)
			}
			h.Symptoms = append(h.Symptoms, sym)
			return nil
		})
	})

	return h, err
}
