// Package storage provides persistent storage for meal and symptom history.
// It uses BoltDB as the underlying storage engine, with one nested bucket per
// user holding that user's meals, symptoms and their id indexes.
//
// Records are keyed by zero-padded timestamp so cursor scans return them in
// chronological order and time-window queries can seek directly.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

// DBFile is the database file name inside the data path.
const DBFile = "tummy-tracker.db"

const (
	usersBucket     = "users"       // Top-level bucket holding one bucket per user
	mealsBucket     = "meals"       // Per-user meals keyed by timestamp and id
	symptomsBucket  = "symptoms"    // Per-user symptoms keyed by onset and id
	mealIDBucket    = "meal_ids"    // Per-user index from meal id to meals key
	symptomIDBucket = "symptom_ids" // Per-user index from symptom id to symptoms key
)

var (
	ErrInvalidUser  = errors.New("storage: user id is required")
	ErrMealNotFound = errors.New("storage: meal not found")
	ErrDuplicateID  = errors.New("storage: record id already exists")
)

// MetricsTracker receives a tick for every accepted record.
type MetricsTracker interface {
	MealsLoggedInc()
	SymptomsLoggedInc()
}

// Store provides persistent storage for tracker events using BoltDB.
type Store struct {
	db      *bbolt.DB
	metrics MetricsTracker
	now     func() time.Time
}

// New creates a new storage instance with the specified data path.
// The directory is created if needed.
func New(dataPath string) (*Store, error) {
	return NewWithMetrics(dataPath, nil)
}

// NewWithMetrics is New with ingestion counters.
func NewWithMetrics(dataPath string, metrics MetricsTracker) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataPath, DBFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(usersBucket)); err != nil {
			return fmt.Errorf("create users bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, metrics: metrics, now: time.Now}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Users lists every user with at least one stored record.
func (s *Store) Users() ([]string, error) {
	var users []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(usersBucket)).ForEach(func(k, v []byte) error {
			if v == nil {
				users = append(users, string(k))
			}
			return nil
		})
	})
	return users, err
}

// buckets holds one user's buckets. Fields are nil for an unknown user in
// a read-only tx.
type buckets struct {
	meals      *bbolt.Bucket
	symptoms   *bbolt.Bucket
	mealIDs    *bbolt.Bucket
	symptomIDs *bbolt.Bucket
}

// userBuckets returns the user's buckets, creating them inside a writable tx.
func userBuckets(tx *bbolt.Tx, userID string) (buckets, error) {
	root := tx.Bucket([]byte(usersBucket))

	if !tx.Writable() {
		u := root.Bucket([]byte(userID))
		if u == nil {
			return buckets{}, nil
		}
		return buckets{
			meals:      u.Bucket([]byte(mealsBucket)),
			symptoms:   u.Bucket([]byte(symptomsBucket)),
			mealIDs:    u.Bucket([]byte(mealIDBucket)),
			symptomIDs: u.Bucket([]byte(symptomIDBucket)),
		}, nil
	}

	u, err := root.CreateBucketIfNotExists([]byte(userID))
	if err != nil {
		return buckets{}, fmt.Errorf("create user bucket: %w", err)
	}
	var b buckets
	for _, nb := range []struct {
		name string
		dst  **bbolt.Bucket
	}{
		{mealsBucket, &b.meals},
		{symptomsBucket, &b.symptoms},
		{mealIDBucket, &b.mealIDs},
		{symptomIDBucket, &b.symptomIDs},
	} {
		if *nb.dst, err = u.CreateBucketIfNotExists([]byte(nb.name)); err != nil {
			return buckets{}, fmt.Errorf("create %s bucket: %w", nb.name, err)
		}
	}
	return b, nil
}

func checkUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUser
	}
	return nil
}

// recordKey orders records by time, then id. Times before 1970 clamp to zero.
func recordKey(ts time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s_%s", timeKey(ts), id))
}

func timeKey(ts time.Time) string {
	n := ts.UnixNano()
	if n < 0 {
		n = 0
	}
	return fmt.Sprintf("%020d", n)
}
