package definition

import (
	"sort"
	"sync/atomic"

	"github.com/lkpmandiri/backoffice/model"
)

// snapshot is an immutable collection of all definitions indexed by ID.
type snapshot struct {
	resources map[string]model.ResourceDefinition
	lookups   map[string]model.LookupDefinition
	ordered   []model.ResourceDefinition
}

// Registry is a read-optimized, thread-safe store of loaded resource
// definitions. It uses an atomic pointer swap for lock-free concurrent reads.
type Registry struct {
	snap atomic.Pointer[snapshot]
}

// NewRegistry creates a Registry from the given definitions.
func NewRegistry(defs []model.ResourceDefinition) *Registry {
	r := &Registry{}
	r.Replace(defs)
	return r
}

// Replace atomically swaps the registry contents.
func (r *Registry) Replace(defs []model.ResourceDefinition) {
	s := &snapshot{
		resources: make(map[string]model.ResourceDefinition, len(defs)),
		lookups:   make(map[string]model.LookupDefinition),
	}

	for _, def := range defs {
		s.resources[def.ID] = def
		for _, lk := range def.Lookups {
			s.lookups[lk.ID] = lk
		}
	}

	s.ordered = make([]model.ResourceDefinition, 0, len(defs))
	s.ordered = append(s.ordered, defs...)
	sort.SliceStable(s.ordered, func(i, j int) bool {
		if s.ordered[i].Order != s.ordered[j].Order {
			return s.ordered[i].Order < s.ordered[j].Order
		}
		return s.ordered[i].ID < s.ordered[j].ID
	})

	r.snap.Store(s)
}

func (r *Registry) current() *snapshot {
	return r.snap.Load()
}

// GetResource returns the resource definition with the given ID.
func (r *Registry) GetResource(id string) (model.ResourceDefinition, bool) {
	d, ok := r.current().resources[id]
	return d, ok
}

// GetLookup returns the lookup definition with the given ID, searching across
// all resources.
func (r *Registry) GetLookup(id string) (model.LookupDefinition, bool) {
	l, ok := r.current().lookups[id]
	return l, ok
}

// AllResources returns all resource definitions in navigation order.
func (r *Registry) AllResources() []model.ResourceDefinition {
	s := r.current()
	out := make([]model.ResourceDefinition, len(s.ordered))
	copy(out, s.ordered)
	return out
}
