package registry

import (
	"sync"

	"github.com/dmitrymomot/stateflow/pkg/graph"
)

// Catalog maps stable names to guard and handler functions so declarative
// definitions (and queued tasks) can reference behaviour by name instead of
// by closure. One catalog is typically shared between the registry and the
// dispatch worker.
type Catalog struct {
	mu     sync.RWMutex
	guards map[string]graph.GuardFunc
	funcs  map[string]graph.Func
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		guards: make(map[string]graph.GuardFunc),
		funcs:  make(map[string]graph.Func),
	}
}

// RegisterGuard names a guard function. Last write wins.
func (c *Catalog) RegisterGuard(name string, fn graph.GuardFunc) {
	if name == "" || fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guards[name] = fn
}

// RegisterFunc names an action/callback handler function. Last write wins.
func (c *Catalog) RegisterFunc(name string, fn graph.Func) {
	if name == "" || fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs[name] = fn
}

// Guard looks up a guard function by name.
func (c *Catalog) Guard(name string) (graph.GuardFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.guards[name]
	return fn, ok
}

// Func looks up a handler function by name. It satisfies the resolver
// interface of the dispatch package.
func (c *Catalog) Func(name string) (graph.Func, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.funcs[name]
	return fn, ok
}
