package unit

import (
	"reflect"

	"github.com/leapstack-labs/leapunit/pkg/core"
)

// typeFor resolves the struct type behind the entity pointer type T.
func typeFor[T core.Entity]() reflect.Type {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// Managed returns the tracked instance of entity type T with the given
// identifier, or false when none is tracked.
func Managed[T core.Entity](u *UnitOfWork, id any) (T, bool) {
	var zero T
	e, ok := u.identity.lookupByID(typeFor[T](), id)
	if !ok {
		return zero, false
	}
	typed, ok := e.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// RegisterMapper binds the mapper to entity type T in the registry.
func RegisterMapper[T core.Entity](r *MapperRegistry, m core.DataMapper) {
	if m == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappers[typeFor[T]()] = m
}

// RegisterComparer installs fn as the comparison function for entity type T.
func RegisterComparer[T core.Entity](u *UnitOfWork, fn core.ComparisonFunc) {
	if fn == nil {
		return
	}
	u.comparers[typeFor[T]()] = fn
}
