// Package api exposes the tracker over HTTP using the Chi router.
package api

import (
	"net/http"
	"time"

	"tummy-tracker/internal/events"
	"tummy-tracker/internal/ml"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// EventStore is the history accessor the handlers need.
type EventStore interface {
	AddMeal(userID string, meal events.MealEvent) (events.MealEvent, error)
	AddSymptom(userID string, symptom events.SymptomEvent) (events.SymptomEvent, error)
	History(userID string) (events.History, error)
	RecentMeals(userID string, window time.Duration, now time.Time) ([]events.MealEvent, error)
}

// EngineProvider hands out the per-user engine.
type EngineProvider interface {
	Engine(userID string) (*ml.Engine, error)
}

// HTTPMetrics records served requests.
type HTTPMetrics interface {
	HTTPRequestObserve(route string, code int, elapsed time.Duration)
}

// Config controls request handling.
type Config struct {
	RequestTimeout time.Duration
	SymptomWindow  time.Duration
}

// Server wires handlers to their dependencies.
type Server struct {
	store   EventStore
	engines EngineProvider
	metrics HTTPMetrics
	cfg     Config
	now     func() time.Time
}

func NewServer(store EventStore, engines EngineProvider, metrics HTTPMetrics, cfg Config) *Server {
	return &Server{
		store:   store,
		engines: engines,
		metrics: metrics,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.observe)
	if s.cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(s.cfg.RequestTimeout))
	}

	r.Get("/health", s.health)

	r.Route("/api/v1/users/{user}", func(r chi.Router) {
		r.Use(s.requireUser)

		r.Get("/meals", s.listMeals)
		r.Post("/meals", s.addMeal)
		r.Get("/meals/recent", s.recentMeals)
		r.Post("/symptoms", s.addSymptom)
		r.Get("/analytics", s.analytics)

		r.Post("/train", s.train)
		r.Post("/predict", s.predict)
		r.Get("/status", s.status)
		r.Get("/importance", s.importance)
	})

	return r
}

// observe records per-route counts and latency once the route is resolved.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if s.metrics == nil {
			return
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPRequestObserve(route, status, time.Since(start))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	})
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ml.ValidUserID(chi.URLParam(r, "user")) {
			respondError(w, http.StatusBadRequest, "INVALID_USER", "user id must be 1-64 letters, digits, '.', '_' or '-'", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
