package unit

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/leapstack-labs/leapunit/pkg/core"
)

// MapperRegistry maps entity types to the data mappers responsible for
// physically reading and writing them. Registration is last-wins. The
// registry is safe for concurrent use: it is typically built once at startup
// and shared by every unit of work in the process.
type MapperRegistry struct {
	mu      sync.RWMutex
	mappers map[reflect.Type]core.DataMapper
}

// NewMapperRegistry creates an empty registry.
func NewMapperRegistry() *MapperRegistry {
	return &MapperRegistry{mappers: make(map[reflect.Type]core.DataMapper)}
}

// Register binds the mapper to sample's entity type, replacing any previous
// registration for that type. sample only supplies the type and may be a
// zero-value entity.
func (r *MapperRegistry) Register(sample core.Entity, m core.DataMapper) {
	if sample == nil || m == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappers[entityType(sample)] = m
}

// Get returns the mapper registered for the entity's type, or an error
// wrapping core.ErrMapperNotFound when none is.
func (r *MapperRegistry) Get(e core.Entity) (core.DataMapper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t := entityType(e)
	m, ok := r.mappers[t]
	if !ok {
		return nil, fmt.Errorf("%w for entity type %s", core.ErrMapperNotFound, typeName(t))
	}
	return m, nil
}

// All returns every registered mapper, in no particular order.
func (r *MapperRegistry) All() []core.DataMapper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.DataMapper, 0, len(r.mappers))
	for _, m := range r.mappers {
		out = append(out, m)
	}
	return out
}

// Count returns the number of registered mappers.
func (r *MapperRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mappers)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
