package registry

import (
	"context"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/stateflow/pkg/graph"
)

// Definition is the declarative, serializable form of a transition graph.
// Guards and handlers are referenced by catalog name; compiling a definition
// binds those names to registered functions. The same structure round-trips
// through YAML (definition files) and JSON (the redis definition cache).
type Definition struct {
	EntityType  string          `yaml:"entity_type" json:"entity_type"`
	Attribute   string          `yaml:"attribute" json:"attribute"`
	Initial     string          `yaml:"initial" json:"initial"`
	States      []StateDef      `yaml:"states,omitempty" json:"states,omitempty"`
	Transitions []TransitionDef `yaml:"transitions" json:"transitions"`
	Meta        map[string]any  `yaml:"meta,omitempty" json:"meta,omitempty"`
}

// StateDef declares a state and its attached behaviour.
type StateDef struct {
	Name        string         `yaml:"name" json:"name"`
	Terminal    bool           `yaml:"terminal,omitempty" json:"terminal,omitempty"`
	Priority    int            `yaml:"priority,omitempty" json:"priority,omitempty"`
	Category    string         `yaml:"category,omitempty" json:"category,omitempty"`
	Meta        map[string]any `yaml:"meta,omitempty" json:"meta,omitempty"`
	EntryGuards []GuardDef     `yaml:"entry_guards,omitempty" json:"entry_guards,omitempty"`
	OnEnter     []CallbackDef  `yaml:"on_enter,omitempty" json:"on_enter,omitempty"`
	OnExit      []CallbackDef  `yaml:"on_exit,omitempty" json:"on_exit,omitempty"`
}

// TransitionDef declares one transition.
type TransitionDef struct {
	From        string        `yaml:"from" json:"from"`
	To          string        `yaml:"to" json:"to"`
	Event       string        `yaml:"event,omitempty" json:"event,omitempty"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Strategy    string        `yaml:"strategy,omitempty" json:"strategy,omitempty"`
	Guards      []GuardDef    `yaml:"guards,omitempty" json:"guards,omitempty"`
	Before      []CallbackDef `yaml:"before,omitempty" json:"before,omitempty"`
	After       []CallbackDef `yaml:"after,omitempty" json:"after,omitempty"`
	Actions     []ActionDef   `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// GuardDef references a catalog guard.
type GuardDef struct {
	Name          string         `yaml:"name" json:"name"`
	Description   string         `yaml:"description,omitempty" json:"description,omitempty"`
	Priority      int            `yaml:"priority,omitempty" json:"priority,omitempty"`
	StopOnFailure bool           `yaml:"stop_on_failure,omitempty" json:"stop_on_failure,omitempty"`
	Params        map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// CallbackDef references a catalog handler used as a callback.
type CallbackDef struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Priority    int            `yaml:"priority,omitempty" json:"priority,omitempty"`
	Queued      bool           `yaml:"queued,omitempty" json:"queued,omitempty"`
	Params      map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// ActionDef references a catalog handler used as a transition action.
type ActionDef struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Tier        string         `yaml:"tier,omitempty" json:"tier,omitempty"`
	Queued      bool           `yaml:"queued,omitempty" json:"queued,omitempty"`
	Params      map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// Compile resolves the definition's guard and handler names against the
// catalog and builds the immutable graph.
func (d Definition) Compile(catalog *Catalog) (*graph.Graph, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog is nil", ErrInvalidDefinition)
	}

	b := graph.NewBuilder(d.EntityType, d.Attribute)
	if d.Initial != "" {
		b.Initial(d.Initial)
	}

	for _, sd := range d.States {
		entryGuards, err := compileGuards(catalog, sd.EntryGuards)
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", sd.Name, err)
		}
		onEnter, err := compileCallbacks(sd.OnEnter)
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", sd.Name, err)
		}
		onExit, err := compileCallbacks(sd.OnExit)
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", sd.Name, err)
		}
		b.State(graph.State{
			Name:        sd.Name,
			Terminal:    sd.Terminal,
			Priority:    sd.Priority,
			Category:    sd.Category,
			Meta:        sd.Meta,
			EntryGuards: entryGuards,
			OnEnter:     onEnter,
			OnExit:      onExit,
		})
	}

	for _, td := range d.Transitions {
		strategy, err := parseStrategy(td.Strategy)
		if err != nil {
			return nil, fmt.Errorf("transition %s -> %s: %w", td.From, td.To, err)
		}
		guards, err := compileGuards(catalog, td.Guards)
		if err != nil {
			return nil, fmt.Errorf("transition %s -> %s: %w", td.From, td.To, err)
		}
		before, err := compileCallbacks(td.Before)
		if err != nil {
			return nil, fmt.Errorf("transition %s -> %s: %w", td.From, td.To, err)
		}
		after, err := compileCallbacks(td.After)
		if err != nil {
			return nil, fmt.Errorf("transition %s -> %s: %w", td.From, td.To, err)
		}
		actions, err := compileActions(td.Actions)
		if err != nil {
			return nil, fmt.Errorf("transition %s -> %s: %w", td.From, td.To, err)
		}
		b.Transition(graph.Transition{
			From:        td.From,
			To:          td.To,
			Event:       td.Event,
			Description: td.Description,
			Strategy:    strategy,
			Guards:      guards,
			Before:      before,
			After:       after,
			Actions:     actions,
		})
	}

	g, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return g, nil
}

func compileGuards(catalog *Catalog, defs []GuardDef) ([]graph.Guard, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]graph.Guard, 0, len(defs))
	for _, gd := range defs {
		fn, ok := catalog.Guard(gd.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownGuard, gd.Name)
		}
		desc := gd.Description
		if desc == "" {
			desc = gd.Name
		}
		out = append(out, graph.Guard{
			Check:         fn,
			Description:   desc,
			Priority:      gd.Priority,
			StopOnFailure: gd.StopOnFailure,
			Params:        gd.Params,
		})
	}
	return out, nil
}

// compileCallbacks binds callbacks as named callables: the name is resolved
// lazily through the dispatcher's resolver at execution time, which keeps
// compiled definitions cacheable and queueable.
func compileCallbacks(defs []CallbackDef) ([]graph.Callback, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]graph.Callback, 0, len(defs))
	for _, cd := range defs {
		if cd.Name == "" {
			return nil, fmt.Errorf("%w: callback without a name", ErrInvalidDefinition)
		}
		out = append(out, graph.Callback{
			Callable:    graph.Named(cd.Name, cd.Params),
			Priority:    cd.Priority,
			Queued:      cd.Queued,
			Description: cd.Description,
		})
	}
	return out, nil
}

func compileActions(defs []ActionDef) ([]graph.Action, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]graph.Action, 0, len(defs))
	for _, ad := range defs {
		if ad.Name == "" {
			return nil, fmt.Errorf("%w: action without a name", ErrInvalidDefinition)
		}
		tier, err := parseTier(ad.Tier)
		if err != nil {
			return nil, err
		}
		out = append(out, graph.Action{
			Callable:    graph.Named(ad.Name, ad.Params),
			Tier:        tier,
			Queued:      ad.Queued,
			Description: ad.Description,
		})
	}
	return out, nil
}

func parseStrategy(s string) (graph.Strategy, error) {
	switch s {
	case "", "all_must_pass":
		return graph.AllMustPass, nil
	case "any_must_pass":
		return graph.AnyMustPass, nil
	case "priority_first":
		return graph.PriorityFirst, nil
	default:
		return graph.AllMustPass, fmt.Errorf("%w: unknown guard strategy %q", ErrInvalidDefinition, s)
	}
}

func parseTier(s string) (graph.Tier, error) {
	switch s {
	case "", "regular":
		return graph.TierRegular, nil
	case "immediate":
		return graph.TierImmediate, nil
	case "cleanup":
		return graph.TierCleanup, nil
	default:
		return graph.TierRegular, fmt.Errorf("%w: unknown action tier %q", ErrInvalidDefinition, s)
	}
}

// YAMLSource compiles one YAML document into a graph during discovery.
type YAMLSource struct {
	name    string
	data    []byte
	catalog *Catalog
}

// NewYAMLSource wraps raw YAML bytes as a discovery Source.
func NewYAMLSource(name string, data []byte, catalog *Catalog) *YAMLSource {
	return &YAMLSource{name: name, data: data, catalog: catalog}
}

func (s *YAMLSource) Name() string {
	return s.name
}

func (s *YAMLSource) Load(context.Context) (*graph.Graph, error) {
	var def Definition
	if err := yaml.Unmarshal(s.data, &def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return def.Compile(s.catalog)
}

// YAMLDir collects every .yml/.yaml file in the filesystem as a source.
// Unreadable files become sources whose Load fails, so they surface in the
// discovery report instead of aborting the scan.
func YAMLDir(fsys fs.FS, catalog *Catalog) ([]Source, error) {
	var sources []Source
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := path.Ext(p); ext != ".yml" && ext != ".yaml" {
			return nil
		}
		data, readErr := fs.ReadFile(fsys, p)
		if readErr != nil {
			sources = append(sources, failingSource{name: p, err: readErr})
			return nil
		}
		sources = append(sources, NewYAMLSource(p, data, catalog))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sources, nil
}

type failingSource struct {
	name string
	err  error
}

func (s failingSource) Name() string { return s.name }

func (s failingSource) Load(context.Context) (*graph.Graph, error) { return nil, s.err }
