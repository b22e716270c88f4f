package ml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"tummy-tracker/internal/features"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Artifact file names, relative to the store directory.
const (
	ScalerArtifact   = "scaler.json"
	EncodersArtifact = "encoders.json"
)

// ensembleMembers is the fixed set of classifiers a complete bundle holds.
var ensembleMembers = []string{ForestName, LogisticName}

func modelArtifact(name string) string { return name + ".json" }

// ArtifactNames lists every file a complete bundle is written to.
func ArtifactNames() []string {
	names := make([]string, 0, len(ensembleMembers)+2)
	for _, m := range ensembleMembers {
		names = append(names, modelArtifact(m))
	}
	return append(names, ScalerArtifact, EncodersArtifact)
}

// Every artifact carries the bundle generation; files from different
// training runs never load together.
type modelFile struct {
	Generation string          `json:"generation"`
	Name       string          `json:"name"`
	Accuracy   float64         `json:"accuracy"`
	TrainedAt  time.Time       `json:"trained_at"`
	Model      json.RawMessage `json:"model"`
}

type scalerFile struct {
	Generation string    `json:"generation"`
	Fields     []string  `json:"fields"`
	Mean       []float64 `json:"mean"`
	Std        []float64 `json:"std"`
}

type encodersFile struct {
	Generation string              `json:"generation"`
	Encoders   map[string][]string `json:"encoders"`
}

// ArtifactStore persists a Bundle as independently named files in one directory.
type ArtifactStore struct {
	dir string
}

func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

func (s *ArtifactStore) Dir() string { return s.dir }

// Save writes every artifact of b, replacing earlier ones. Each file is
// written to a temporary name and renamed into place.
func (s *ArtifactStore) Save(b *Bundle) error {
	if !b.IsTrained() {
		return ErrModelNotTrained
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}
	gen := b.Generation
	if gen == "" {
		gen = uuid.NewString()
	}

	for _, name := range ensembleMembers {
		m, ok := b.Model(name)
		if !ok {
			return fmt.Errorf("bundle has no %s model", name)
		}
		raw, err := json.Marshal(m.Classifier)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		if err := s.writeJSON(modelArtifact(name), modelFile{
			Generation: gen,
			Name:       name,
			Accuracy:   m.Accuracy,
			TrainedAt:  b.TrainedAt,
			Model:      raw,
		}); err != nil {
			return err
		}
	}

	if err := s.writeJSON(ScalerArtifact, scalerFile{
		Generation: gen,
		Fields:     features.FieldNames[:],
		Mean:       b.Scaler.Mean,
		Std:        b.Scaler.Std,
	}); err != nil {
		return err
	}

	enc := encodersFile{Generation: gen, Encoders: make(map[string][]string, len(b.Encoders))}
	for _, field := range encoderFields(b.Encoders) {
		enc.Encoders[field] = b.Encoders[field].Classes
	}
	if err := s.writeJSON(EncodersArtifact, enc); err != nil {
		return err
	}

	log.Info().Str("model_dir", s.dir).Str("generation", gen).Msg("Model artifacts saved")
	return nil
}

// Load reads a complete bundle. It always returns a usable bundle: when no
// artifacts exist the result is untrained with a nil error, and when only
// some exist or any is unreadable the result is untrained with an error
// wrapping ErrCorruptedArtifact.
func (s *ArtifactStore) Load() (*Bundle, error) {
	var missing []string
	for _, name := range ArtifactNames() {
		_, err := os.Stat(filepath.Join(s.dir, name))
		switch {
		case err == nil:
		case errors.Is(err, os.ErrNotExist):
			missing = append(missing, name)
		default:
			return UntrainedBundle(), fmt.Errorf("%w: stat %s: %v", ErrCorruptedArtifact, name, err)
		}
	}
	if len(missing) == len(ArtifactNames()) {
		return UntrainedBundle(), nil
	}
	if len(missing) > 0 {
		return UntrainedBundle(), fmt.Errorf("%w: missing %v", ErrCorruptedArtifact, missing)
	}

	b, err := s.load()
	if err != nil {
		return UntrainedBundle(), fmt.Errorf("%w: %v", ErrCorruptedArtifact, err)
	}
	return b, nil
}

func (s *ArtifactStore) load() (*Bundle, error) {
	b := &Bundle{Encoders: make(map[string]*CategoricalEncoder)}
	generations := make(map[string]string, len(ArtifactNames()))

	for _, name := range ensembleMembers {
		var mf modelFile
		if err := s.readJSON(modelArtifact(name), &mf); err != nil {
			return nil, err
		}
		if mf.Name != name {
			return nil, fmt.Errorf("%s holds model %q", modelArtifact(name), mf.Name)
		}
		c, ok := newClassifier(name)
		if !ok {
			return nil, fmt.Errorf("unknown classifier %q", name)
		}
		if err := json.Unmarshal(mf.Model, c); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		if err := checkClassifier(c); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		generations[modelArtifact(name)] = mf.Generation
		b.Models = append(b.Models, Model{Name: name, Classifier: c, Accuracy: mf.Accuracy})
		if mf.TrainedAt.After(b.TrainedAt) {
			b.TrainedAt = mf.TrainedAt
		}
	}

	var sf scalerFile
	if err := s.readJSON(ScalerArtifact, &sf); err != nil {
		return nil, err
	}
	if !slices.Equal(sf.Fields, features.FieldNames[:]) {
		return nil, fmt.Errorf("scaler schema %v does not match feature schema", sf.Fields)
	}
	if len(sf.Mean) != features.NumFields || len(sf.Std) != features.NumFields {
		return nil, fmt.Errorf("scaler has %d/%d statistics, want %d", len(sf.Mean), len(sf.Std), features.NumFields)
	}
	b.Scaler = &Scaler{Mean: sf.Mean, Std: sf.Std}
	generations[ScalerArtifact] = sf.Generation

	var ef encodersFile
	if err := s.readJSON(EncodersArtifact, &ef); err != nil {
		return nil, err
	}
	for field, classes := range ef.Encoders {
		enc, err := restoreEncoder(field, classes)
		if err != nil {
			return nil, fmt.Errorf("encoder %s: %w", field, err)
		}
		b.Encoders[field] = enc
	}
	if _, ok := b.Encoders[features.FieldFoodCategory]; !ok {
		return nil, fmt.Errorf("no encoder for %s", features.FieldFoodCategory)
	}
	generations[EncodersArtifact] = ef.Generation

	gen, err := sameGeneration(generations)
	if err != nil {
		return nil, err
	}
	b.Generation = gen
	b.Trained = true
	return b, nil
}

// sameGeneration returns the generation shared by every artifact.
func sameGeneration(generations map[string]string) (string, error) {
	want := generations[ArtifactNames()[0]]
	if want == "" {
		return "", fmt.Errorf("%s has no generation", ArtifactNames()[0])
	}
	for _, name := range ArtifactNames() {
		if got := generations[name]; got != want {
			return "", fmt.Errorf("%s is from generation %q, want %q", name, got, want)
		}
	}
	return want, nil
}

// checkClassifier rejects structurally invalid models. Tree children must
// come after their parent, which rules out cycles.
func checkClassifier(c BinaryClassifier) error {
	switch m := c.(type) {
	case *RandomForest:
		if len(m.Trees) == 0 {
			return errors.New("forest has no trees")
		}
		for i, t := range m.Trees {
			for j, n := range t.Nodes {
				if n.Feature >= features.NumFields {
					return fmt.Errorf("tree %d node %d splits unknown feature %d", i, j, n.Feature)
				}
				if n.Feature < 0 {
					continue
				}
				if n.Left <= j || n.Right <= j || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
					return fmt.Errorf("tree %d node %d has invalid children %d/%d", i, j, n.Left, n.Right)
				}
			}
			if len(t.Nodes) == 0 {
				return fmt.Errorf("tree %d is empty", i)
			}
		}
	case *LogisticRegression:
		if len(m.Weights) != features.NumFields {
			return fmt.Errorf("logistic model has %d weights, want %d", len(m.Weights), features.NumFields)
		}
	}
	return nil
}

func (s *ArtifactStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *ArtifactStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}
