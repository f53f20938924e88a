package services

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-ops-api/config"
)

func newTestModelStore(t *testing.T) *ModelStore {
	t.Helper()
	return NewModelStore(config.ModelConfig{Path: filepath.Join(t.TempDir(), "model.json")})
}

func TestFitLinearModelBootstrap(t *testing.T) {
	m, err := FitLinearModel(bootstrapFeatures, bootstrapETAs)
	require.NoError(t, err)

	// Exact OLS solution: -13/54, 253/54, 148/27.
	assert.InDelta(t, -13.0/54.0, m.Intercept, 1e-9)
	assert.InDelta(t, 253.0/54.0, m.Coefficients[0], 1e-9)
	assert.InDelta(t, 148.0/27.0, m.Coefficients[1], 1e-9)
	assert.Equal(t, 4, m.TrainingRows)
	assert.Equal(t, []string{"distance_km", "fuel_used"}, m.Features)

	assert.Equal(t, 20.09, RoundETA(m.Predict(2, 2)))
}

func TestFitLinearModelErrors(t *testing.T) {
	t.Run("mismatched lengths", func(t *testing.T) {
		_, err := FitLinearModel([][2]float64{{1, 1}, {2, 2}, {3, 3}, {4, 4}}, []float64{1, 2})
		assert.Error(t, err)
	})

	t.Run("too few rows", func(t *testing.T) {
		_, err := FitLinearModel([][2]float64{{1, 1}, {2, 2}}, []float64{1, 2})
		assert.Error(t, err)
	})
}

func TestModelPredictLinear(t *testing.T) {
	m := &Model{Intercept: 1, Coefficients: []float64{2, 3}}
	assert.Equal(t, 1.0+2*10+3*4, m.Predict(10, 4))
}

func TestEnsureTrainsWhenAbsent(t *testing.T) {
	store := newTestModelStore(t)
	_, err := os.Stat(store.Path())
	require.True(t, errors.Is(err, os.ErrNotExist))

	m, err := store.Ensure(context.Background())
	require.NoError(t, err)
	assert.False(t, m.TrainedAt.IsZero())

	_, err = os.Stat(store.Path())
	assert.NoError(t, err, "artifact should be persisted")

	matches, _ := filepath.Glob(store.Path() + ".tmp-*")
	assert.Empty(t, matches, "temp files should be cleaned up")
}

func TestEnsureLoadsExistingArtifactBitIdentical(t *testing.T) {
	store := newTestModelStore(t)
	first, err := store.Ensure(context.Background())
	require.NoError(t, err)
	info, err := os.Stat(store.Path())
	require.NoError(t, err)

	reopened := NewModelStore(config.ModelConfig{Path: store.Path()})
	second, err := reopened.Ensure(context.Background())
	require.NoError(t, err)

	after, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), after.ModTime(), "loading must not rewrite the artifact")

	inputs := [][2]float64{{2, 2}, {10, 4.5}, {0, 0}, {123.4, 56.7}}
	for _, in := range inputs {
		a := first.Predict(in[0], in[1])
		b := second.Predict(in[0], in[1])
		assert.Equal(t, math.Float64bits(a), math.Float64bits(b), "prediction for %v differs", in)
	}
}

func TestEnsureCorruptArtifactIsUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "this is not a model"},
		{"wrong version", `{"version":7,"intercept":1,"coefficients":[1,2]}`},
		{"missing coefficient", `{"version":1,"intercept":1,"coefficients":[1]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestModelStore(t)
			require.NoError(t, os.WriteFile(store.Path(), []byte(tt.content), 0o644))

			_, err := store.Ensure(context.Background())
			assert.ErrorIs(t, err, ErrModelUnavailable)

			data, _ := os.ReadFile(store.Path())
			assert.Equal(t, tt.content, string(data), "corrupt artifact must not be replaced")
		})
	}
}

func TestEnsurePersistFailureIsUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// The artifact's parent is a regular file, so it can never be created.
	store := NewModelStore(config.ModelConfig{Path: filepath.Join(blocker, "model.json")})
	_, err := store.Ensure(context.Background())
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestEnsureCancelledContext(t *testing.T) {
	store := newTestModelStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Ensure(ctx)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestEnsureConcurrentFirstUseTrainsOnce(t *testing.T) {
	store := newTestModelStore(t)
	trainedAt := time.Date(2025, 8, 5, 7, 23, 29, 0, time.UTC)
	var calls int
	store.now = func() time.Time {
		calls++
		return trainedAt
	}

	var wg sync.WaitGroup
	results := make([]*Model, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := store.Ensure(context.Background())
			assert.NoError(t, err)
			results[i] = m
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, calls, "check-then-train must run once")
	for _, m := range results {
		assert.Same(t, results[0], m)
	}
}

func TestTrainOverwritesArtifact(t *testing.T) {
	store := newTestModelStore(t)
	store.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	_, err := store.Ensure(context.Background())
	require.NoError(t, err)

	store.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	m, err := store.Train(context.Background())
	require.NoError(t, err)

	reloaded, err := NewModelStore(config.ModelConfig{Path: store.Path()}).Ensure(context.Background())
	require.NoError(t, err)
	assert.True(t, reloaded.TrainedAt.Equal(m.TrainedAt))
}

func TestWatchDropsModelWhenArtifactRemoved(t *testing.T) {
	store := newTestModelStore(t)
	_, err := store.Ensure(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, store.Watch(ctx))

	// Ensure again so a model is cached after the watcher is registered.
	_, err = store.Ensure(context.Background())
	require.NoError(t, err)
	require.NotNil(t, store.cached())

	require.NoError(t, os.Remove(store.Path()))
	assert.Eventually(t, func() bool { return store.cached() == nil }, 2*time.Second, 10*time.Millisecond)

	m, err := store.Ensure(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, m)
	_, err = os.Stat(store.Path())
	assert.NoError(t, err, "artifact should be retrained after external deletion")
}
