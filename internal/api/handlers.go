package api

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"tummy-tracker/internal/events"
	"tummy-tracker/internal/ml"
	"tummy-tracker/internal/storage"

	"github.com/go-chi/chi/v5"
)

type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok", Time: s.now().UTC()})
}

func (s *Server) addMeal(w http.ResponseWriter, r *http.Request) {
	var meal events.MealEvent
	if err := decodeBody(r, &meal); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	stored, err := s.store.AddMeal(chi.URLParam(r, "user"), meal)
	if err != nil {
		s.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, stored)
}

func (s *Server) addSymptom(w http.ResponseWriter, r *http.Request) {
	var symptom events.SymptomEvent
	if err := decodeBody(r, &symptom); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	stored, err := s.store.AddSymptom(chi.URLParam(r, "user"), symptom)
	if err != nil {
		s.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, stored)
}

// listMeals returns the user's meals, newest first.
func (s *Server) listMeals(w http.ResponseWriter, r *http.Request) {
	h, err := s.store.History(chi.URLParam(r, "user"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	meals := h.Meals
	if meals == nil {
		meals = []events.MealEvent{}
	}
	slices.Reverse(meals)

	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		meals = slices.DeleteFunc(meals, func(m events.MealEvent) bool {
			return m.FoodCategory != category
		})
	}
	respondJSON(w, http.StatusOK, meals)
}

// recentMeals returns meals inside the symptom tracking window, the
// candidates a new symptom can be attached to.
func (s *Server) recentMeals(w http.ResponseWriter, r *http.Request) {
	window := s.cfg.SymptomWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			respondError(w, http.StatusBadRequest, "INVALID_WINDOW", "window must be a positive duration such as 24h", nil)
			return
		}
		window = d
	}

	meals, err := s.store.RecentMeals(chi.URLParam(r, "user"), window, s.now())
	if err != nil {
		s.storeError(w, err)
		return
	}
	if meals == nil {
		meals = []events.MealEvent{}
	}
	slices.Reverse(meals)
	respondJSON(w, http.StatusOK, meals)
}

// analytics summarises the user's history by food category and symptom type.
func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	h, err := s.store.History(chi.URLParam(r, "user"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, events.Summarize(h))
}

func (s *Server) train(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	engine, ok := s.engine(w, user)
	if !ok {
		return
	}

	h, err := s.store.History(user)
	if err != nil {
		s.storeError(w, err)
		return
	}

	report, err := engine.Train(h)
	switch {
	case errors.Is(err, ml.ErrInsufficientData):
		respondError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_DATA", err.Error(), nil)
	case err != nil:
		respondError(w, http.StatusInternalServerError, "TRAINING_FAILED", "training failed", err)
	default:
		respondJSON(w, http.StatusOK, report)
	}
}

// predict always answers 200 for a well-formed request; the result's
// outcome says whether a label was produced.
func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	var meal events.MealEvent
	if err := decodeBody(r, &meal); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if meal.Timestamp.IsZero() {
		meal.Timestamp = s.now()
	}
	if err := meal.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_MEAL", err.Error(), nil)
		return
	}

	engine, ok := s.engine(w, chi.URLParam(r, "user"))
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, engine.Predict(meal))
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.engine(w, chi.URLParam(r, "user"))
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, engine.Status())
}

func (s *Server) importance(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.engine(w, chi.URLParam(r, "user"))
	if !ok {
		return
	}

	stats, err := engine.FeatureImportance()
	switch {
	case errors.Is(err, ml.ErrFeatureImportanceDisabled):
		respondError(w, http.StatusNotFound, "FEATURE_DISABLED", err.Error(), nil)
	case errors.Is(err, ml.ErrModelNotTrained):
		respondError(w, http.StatusConflict, "MODEL_NOT_TRAINED", err.Error(), nil)
	case err != nil:
		respondError(w, http.StatusInternalServerError, "IMPORTANCE_FAILED", "feature importance unavailable", err)
	default:
		respondJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) engine(w http.ResponseWriter, user string) (*ml.Engine, bool) {
	engine, err := s.engines.Engine(user)
	if err != nil {
		if errors.Is(err, ml.ErrInvalidUser) {
			respondError(w, http.StatusBadRequest, "INVALID_USER", err.Error(), nil)
		} else {
			respondError(w, http.StatusInternalServerError, "ENGINE_UNAVAILABLE", "engine unavailable", err)
		}
		return nil, false
	}
	return engine, true
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrMealNotFound):
		respondError(w, http.StatusNotFound, "MEAL_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, storage.ErrDuplicateID):
		respondError(w, http.StatusConflict, "DUPLICATE_ID", err.Error(), nil)
	case errors.Is(err, storage.ErrInvalidUser):
		respondError(w, http.StatusBadRequest, "INVALID_USER", err.Error(), nil)
	case errors.Is(err, events.ErrMissingCategory),
		errors.Is(err, events.ErrMissingTime),
		errors.Is(err, events.ErrNegativeQty),
		errors.Is(err, events.ErrSeverityRange),
		errors.Is(err, events.ErrMissingMealRef),
		errors.Is(err, events.ErrNegativeDur):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "storage failure", err)
	}
}
