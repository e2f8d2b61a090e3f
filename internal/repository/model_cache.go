package repository

import (
	"context"
	"sync"

	domrepo "CargoCast/internal/domain/repository"

	"golang.org/x/sync/singleflight"
)

// ModelCache keeps loaded estimators and feature lists in memory. Artifacts
// never change while the process runs, so entries live for the process
// lifetime; concurrent first loads are collapsed into one disk read.
type ModelCache struct {
	inner domrepo.ModelStore

	mu         sync.RWMutex
	estimators map[string]domrepo.Estimator
	features   map[domrepo.FlowKey][]string

	group singleflight.Group
}

func NewModelCache(inner domrepo.ModelStore) *ModelCache {
	return &ModelCache{
		inner:      inner,
		estimators: make(map[string]domrepo.Estimator),
		features:   make(map[domrepo.FlowKey][]string),
	}
}

func cacheKey(flow domrepo.FlowKey, q domrepo.QuantileLabel) string {
	return string(flow) + "/" + string(q)
}

func (c *ModelCache) Load(ctx context.Context, flow domrepo.FlowKey, q domrepo.QuantileLabel) (domrepo.Estimator, error) {
	key := cacheKey(flow, q)

	c.mu.RLock()
	est, ok := c.estimators[key]
	c.mu.RUnlock()
	if ok {
		return est, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		est, err := c.inner.Load(ctx, flow, q)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.estimators[key] = est
		c.mu.Unlock()
		return est, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(domrepo.Estimator), nil
}

func (c *ModelCache) FeatureNames(ctx context.Context, flow domrepo.FlowKey) ([]string, error) {
	c.mu.RLock()
	cols, ok := c.features[flow]
	c.mu.RUnlock()
	if ok {
		return cols, nil
	}

	v, err, _ := c.group.Do("features/"+string(flow), func() (any, error) {
		cols, err := c.inner.FeatureNames(ctx, flow)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.features[flow] = cols
		c.mu.Unlock()
		return cols, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}
