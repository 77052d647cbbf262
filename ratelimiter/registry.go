package ratelimiter

import (
	"sort"
	"sync"
)

// Registry maps API model names to their limiters. A model with no entry is
// not limited locally.
type Registry interface {
	Get(model string) (Limiter, bool)
	Set(model string, limiter Limiter)
	Delete(model string)
	Models() []string
}

type mapRegistry struct {
	mu       sync.RWMutex
	limiters map[string]Limiter
}

// NewRegistry creates an in-memory Registry.
func NewRegistry() Registry {
	return &mapRegistry{limiters: make(map[string]Limiter)}
}

func (r *mapRegistry) Get(model string) (Limiter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.limiters[model]
	return l, ok
}

// Set replaces the limiter of model; nil removes it.
func (r *mapRegistry) Set(model string, limiter Limiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limiter == nil {
		delete(r.limiters, model)
		return
	}
	r.limiters[model] = limiter
}

func (r *mapRegistry) Delete(model string) {
	r.Set(model, nil)
}

// Models returns the limited model names, sorted.
func (r *mapRegistry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.limiters))
	for m := range r.limiters {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
