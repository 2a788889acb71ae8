package registry

import (
	"context"
	"sync"

	"github.com/dmitrymomot/stateflow/pkg/graph"
)

type key struct {
	entityType string
	attribute  string
}

// Registry is the in-memory index of compiled graphs. Safe for concurrent
// use; lookups are lock-free reads under an RWMutex.
type Registry struct {
	mu     sync.RWMutex
	graphs map[key]*graph.Graph
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{graphs: make(map[key]*graph.Graph)}
}

// Register indexes the graph under its (entity type, attribute) pair.
// Registering the same pair again replaces the previous graph.
func (r *Registry) Register(g *graph.Graph) {
	if g == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graphs[key{g.EntityType(), g.Attribute()}] = g
}

// Get returns the graph for an exact (entity type, attribute) match.
func (r *Registry) Get(entityType, attribute string) (*graph.Graph, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.graphs[key{entityType, attribute}]
	return g, ok
}

// InitialState returns the initial state of the graph registered for the
// pair. It satisfies the resolver interface of the event log replay service.
func (r *Registry) InitialState(entityType, attribute string) (string, bool) {
	g, ok := r.Get(entityType, attribute)
	if !ok {
		return "", false
	}
	return g.Initial(), true
}

// Len returns the number of registered graphs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.graphs)
}

// Source yields one compiled graph for discovery.
type Source interface {
	// Name identifies the source in discovery reports.
	Name() string
	// Load parses and compiles the source's graph.
	Load(ctx context.Context) (*graph.Graph, error)
}

// SourceError records one source that failed to compile during discovery.
type SourceError struct {
	Source string
	Err    error
}

// DiscoveryReport summarizes a Discover run.
type DiscoveryReport struct {
	// Registered lists the source names whose graphs were registered.
	Registered []string
	// Failed lists sources that did not compile, with their errors.
	Failed []SourceError
}

// Discover compiles and registers every source. A failing source is
// recorded and skipped; it never aborts the rest of the scan.
func (r *Registry) Discover(ctx context.Context, sources ...Source) *DiscoveryReport {
	report := &DiscoveryReport{}
	for _, src := range sources {
		g, err := src.Load(ctx)
		if err != nil {
			report.Failed = append(report.Failed, SourceError{Source: src.Name(), Err: err})
			continue
		}
		r.Register(g)
		report.Registered = append(report.Registered, src.Name())
	}
	return report
}

// GraphSource wraps an already-built graph as a discovery Source.
func GraphSource(g *graph.Graph) Source {
	return staticSource{g: g}
}

type staticSource struct {
	g *graph.Graph
}

func (s staticSource) Name() string {
	return s.g.EntityType() + "." + s.g.Attribute()
}

func (s staticSource) Load(context.Context) (*graph.Graph, error) {
	return s.g, nil
}
