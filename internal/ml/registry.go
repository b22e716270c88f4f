package ml

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// Registry keeps one Engine per user, each with its own artifact directory
// under the base model path.
type Registry struct {
	mu      sync.Mutex
	baseDir string
	cfg     EngineConfig
	metrics MetricsInterface
	engines map[string]*Engine
}

// NewRegistry creates a registry. cfg.ModelDir is ignored; each user's
// engine stores artifacts in baseDir/<user>.
func NewRegistry(baseDir string, cfg EngineConfig, metrics MetricsInterface) *Registry {
	return &Registry{
		baseDir: baseDir,
		cfg:     cfg,
		metrics: metrics,
		engines: make(map[string]*Engine),
	}
}

// ValidUserID reports whether id is safe to use as a directory name.
func ValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

// Engine returns the user's engine, loading persisted state on first use.
func (r *Registry) Engine(userID string) (*Engine, error) {
	if !ValidUserID(userID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUser, userID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[userID]; ok {
		return e, nil
	}

	cfg := r.cfg
	cfg.ModelDir = filepath.Join(r.baseDir, userID)
	e := NewEngine(cfg, r.metrics)
	r.engines[userID] = e
	return e, nil
}

// Users lists users with a loaded engine.
func (r *Registry) Users() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]string, 0, len(r.engines))
	for u := range r.engines {
		users = append(users, u)
	}
	return users
}
