package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	logrus "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"fleet-ops-api/config"
)

const modelArtifactVersion = 1

var modelFeatures = []string{"distance_km", "fuel_used"}

// Bootstrap training set: (distance_km, fuel_used) -> eta minutes.
var (
	bootstrapFeatures = [][2]float64{{1, 1}, {2, 2}, {3, 1.5}, {4, 3}}
	bootstrapETAs     = []float64{10, 20, 22, 35}
)

// Model is the persisted linear ETA regressor.
type Model struct {
	Version      int       `json:"version"`
	Features     []string  `json:"features"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	TrainedAt    time.Time `json:"trained_at"`
	TrainingRows int       `json:"training_rows"`
}

// Predict returns the ETA in minutes for one trip.
func (m *Model) Predict(distanceKM, fuelUsed float64) float64 {
	return m.Intercept + m.Coefficients[0]*distanceKM + m.Coefficients[1]*fuelUsed
}

func (m *Model) validate() error {
	if m.Version != modelArtifactVersion {
		return fmt.Errorf("unsupported artifact version %d", m.Version)
	}
	if len(m.Coefficients) != len(modelFeatures) {
		return fmt.Errorf("expected %d coefficients, got %d", len(modelFeatures), len(m.Coefficients))
	}
	for _, v := range append([]float64{m.Intercept}, m.Coefficients...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("artifact contains non-finite parameters")
		}
	}
	return nil
}

// FitLinearModel fits eta = b0 + b1*distance + b2*fuel by least squares.
func FitLinearModel(features [][2]float64, targets []float64) (*Model, error) {
	n := len(features)
	if n != len(targets) {
		return nil, fmt.Errorf("feature rows (%d) and targets (%d) differ", n, len(targets))
	}
	if n <= len(modelFeatures) {
		return nil, fmt.Errorf("need more than %d rows to fit, got %d", len(modelFeatures), n)
	}

	x := mat.NewDense(n, len(modelFeatures)+1, nil)
	for i, f := range features {
		x.Set(i, 0, 1)
		x.Set(i, 1, f[0])
		x.Set(i, 2, f[1])
	}
	y := mat.NewVecDense(n, append([]float64(nil), targets...))

	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return nil, fmt.Errorf("least squares solve: %w", err)
	}

	m := &Model{
		Version:      modelArtifactVersion,
		Features:     append([]string(nil), modelFeatures...),
		Intercept:    beta.AtVec(0),
		Coefficients: []float64{beta.AtVec(1), beta.AtVec(2)},
		TrainingRows: n,
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ModelStore owns the on-disk model artifact. The first Ensure trains and
// persists when the artifact is absent; later calls reuse it unchanged.
type ModelStore struct {
	path string
	now  func() time.Time

	mu    sync.Mutex
	model *Model
}

func NewModelStore(cfg config.ModelConfig) *ModelStore {
	return &ModelStore{
		path: cfg.Path,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *ModelStore) Path() string {
	return s.path
}

// Ensure returns the persisted model, training it first if no artifact
// exists. A present but unreadable artifact is an error, never retrained.
func (s *ModelStore) Ensure(ctx context.Context) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model != nil {
		return s.model, nil
	}

	m, err := s.load()
	switch {
	case err == nil:
		logrus.WithField("path", s.path).Debug("model artifact loaded")
	case errors.Is(err, fs.ErrNotExist):
		logrus.WithField("path", s.path).Info("model artifact not found, training a new one")
		if m, err = s.trainLocked(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: load %s: %v", ErrModelUnavailable, s.path, err)
	}

	s.model = m
	return m, nil
}

// Train refits the bootstrap model and overwrites the artifact.
func (s *ModelStore) Train(ctx context.Context) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.trainLocked()
	if err != nil {
		return nil, err
	}
	s.model = m
	return m, nil
}

func (s *ModelStore) trainLocked() (*Model, error) {
	m, err := FitLinearModel(bootstrapFeatures, bootstrapETAs)
	if err != nil {
		return nil, fmt.Errorf("%w: fit: %v", ErrModelUnavailable, err)
	}
	m.TrainedAt = s.now()

	if err := s.persist(m); err != nil {
		return nil, fmt.Errorf("%w: persist %s: %v", ErrModelUnavailable, s.path, err)
	}
	modelTrainings.Inc()
	logrus.WithFields(logrus.Fields{
		"path":         s.path,
		"intercept":    m.Intercept,
		"coefficients": m.Coefficients,
	}).Info("model trained and saved to disk")
	return m, nil
}

func (s *ModelStore) load() (*Model, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// persist writes to a temp file in the same directory and renames it into
// place so readers never observe a partial artifact.
func (s *ModelStore) persist(m *Model) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

func (s *ModelStore) invalidate(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return
	}
	s.model = nil
	logrus.WithFields(logrus.Fields{"path": s.path, "event": reason}).Info("model artifact changed on disk, dropping cached model")
}

func (s *ModelStore) cached() *Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Watch drops the in-memory model whenever the artifact is changed or
// removed by something outside this process. It returns once the watcher is
// registered; watching stops when ctx is done.
func (s *ModelStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.Close()
		return err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return err
	}

	target := filepath.Clean(s.path)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					s.invalidate(event.Op.String())
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logrus.WithError(err).Warn("model artifact watcher error")
			}
		}
	}()
	return nil
}
