package strategies

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the explicit registration table of strategies, keyed by
// stable string id. Each strategy file registers itself into Default from
// init; lookups never depend on registration order.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// Entry is one registered strategy.
type Entry struct {
	Descriptor
	factory Factory
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Default holds the built-in strategies.
var Default = NewRegistry()

// Register adds a strategy to Default.
func Register(d Descriptor, f Factory) {
	Default.Register(d, f)
}

// Register adds a strategy. Registering an empty or duplicate id panics:
// it is a programming error caught at process start.
func (r *Registry) Register(d Descriptor, f Factory) {
	if d.ID == "" {
		panic("strategies: empty id")
	}
	if f == nil {
		panic(fmt.Sprintf("strategies: nil factory for %q", d.ID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.entries[d.ID]; dup {
		panic(fmt.Sprintf("strategies: duplicate id %q", d.ID))
	}
	r.entries[d.ID] = Entry{Descriptor: d, factory: f}
}

// List returns every descriptor sorted by id.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve looks up a strategy by id.
func (r *Registry) Resolve(id string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return Entry{}, &NotFoundError{ID: id}
	}
	return e, nil
}

// New builds a strategy from the defaults overlaid with overrides and
// returns the effective assignment. Unknown parameter names are rejected.
func (e Entry) New(overrides Params) (Strategy, Params, error) {
	p := e.Defaults()
	for k, v := range overrides {
		if !e.Has(k) {
			return nil, nil, &ParamError{Strategy: e.ID, Param: k, Reason: "not declared"}
		}
		p[k] = v
	}

	s, err := e.factory(p)
	if err != nil {
		return nil, nil, err
	}
	return s, p, nil
}
