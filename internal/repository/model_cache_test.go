package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	domrepo "CargoCast/internal/domain/repository"

	"github.com/stretchr/testify/require"
)

type staticEstimator float64

func (e staticEstimator) Predict([]float64) (float64, error) { return float64(e), nil }

// countingStore records how many times each artifact hits the backing store.
type countingStore struct {
	mu           sync.Mutex
	loadCalls    int
	featureCalls int
	missing      bool
}

func (s *countingStore) Load(_ context.Context, _ domrepo.FlowKey, _ domrepo.QuantileLabel) (domrepo.Estimator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadCalls++
	if s.missing {
		return nil, domrepo.ErrModelNotFound
	}
	return staticEstimator(42), nil
}

func (s *countingStore) FeatureNames(_ context.Context, _ domrepo.FlowKey) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.featureCalls++
	return []string{"dow", "lag_1"}, nil
}

func TestModelCacheLoadsOnce(t *testing.T) {
	store := &countingStore{}
	cache := NewModelCache(store)

	for i := 0; i < 5; i++ {
		est, err := cache.Load(context.Background(), domrepo.FlowExport, domrepo.QuantP50)
		require.NoError(t, err)
		v, err := est.Predict(nil)
		require.NoError(t, err)
		require.Equal(t, 42.0, v)
	}
	require.Equal(t, 1, store.loadCalls)
}

func TestModelCacheKeysByFlowAndQuantile(t *testing.T) {
	store := &countingStore{}
	cache := NewModelCache(store)

	_, err := cache.Load(context.Background(), domrepo.FlowExport, domrepo.QuantP50)
	require.NoError(t, err)
	_, err = cache.Load(context.Background(), domrepo.FlowExport, domrepo.QuantP95)
	require.NoError(t, err)
	_, err = cache.Load(context.Background(), domrepo.FlowImport, domrepo.QuantP50)
	require.NoError(t, err)

	require.Equal(t, 3, store.loadCalls)
}

func TestModelCacheDoesNotCacheFailures(t *testing.T) {
	store := &countingStore{missing: true}
	cache := NewModelCache(store)

	_, err := cache.Load(context.Background(), domrepo.FlowExport, domrepo.QuantP05)
	require.True(t, errors.Is(err, domrepo.ErrModelNotFound))

	// The artifact shows up later (model re-trained and dropped in place).
	store.mu.Lock()
	store.missing = false
	store.mu.Unlock()

	_, err = cache.Load(context.Background(), domrepo.FlowExport, domrepo.QuantP05)
	require.NoError(t, err)
	require.Equal(t, 2, store.loadCalls)
}

func TestModelCacheConcurrentLoadsCollapse(t *testing.T) {
	store := &countingStore{}
	cache := NewModelCache(store)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Load(context.Background(), domrepo.FlowTransitExport, domrepo.QuantP50)
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, store.loadCalls)
}

func TestModelCacheFeatureNamesCached(t *testing.T) {
	store := &countingStore{}
	cache := NewModelCache(store)

	for i := 0; i < 3; i++ {
		cols, err := cache.FeatureNames(context.Background(), domrepo.FlowImport)
		require.NoError(t, err)
		require.Equal(t, []string{"dow", "lag_1"}, cols)
	}
	require.Equal(t, 1, store.featureCalls)
}
