package optimizer

import (
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/wbrown/kvqueryengine/queryast"
)

// PlanCache memoizes Optimize results keyed by queryast.CanonicalHash,
// the same hash-then-store shape as datalog/planner/cache.go's
// PlanCache, but backed by a bounded concurrent ristretto.Cache instead
// of a hand-rolled map+mutex with manual TTL eviction.
type PlanCache struct {
	cache *ristretto.Cache
}

// NewPlanCache creates a PlanCache sized for maxEntries distinct plans.
func NewPlanCache(maxEntries int64) (*PlanCache, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("optimizer: failed to create plan cache: %w", err)
	}
	return &PlanCache{cache: c}, nil
}

// Get returns the cached plan for key, if present.
func (c *PlanCache) Get(key string) (queryast.Plan, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return queryast.Plan{}, false
	}
	plan, ok := v.(queryast.Plan)
	return plan, ok
}

// Set stores plan under key.
func (c *PlanCache) Set(key string, plan queryast.Plan) {
	c.cache.Set(key, plan, 1)
}

// Clear removes every cached plan.
func (c *PlanCache) Clear() {
	c.cache.Clear()
}
