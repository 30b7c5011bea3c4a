package unit

import (
	"reflect"

	"github.com/leapstack-labs/leapunit/pkg/core"
)

// snapshot is an immutable copy of an entity's state taken at the moment it
// became managed. entity is a deep copy handed to registered comparison
// functions; fields is the field map used by structural comparison.
//
// Snapshots are owned exclusively by the unit of work and destroyed when the
// entity is detached, deleted, or the unit of work is disposed.
type snapshot struct {
	entity core.Entity
	fields map[string]any
}

func takeSnapshot(e core.Entity) *snapshot {
	// The field map is extracted from the clone, not the live entity:
	// container values must not share backing storage with fields the
	// application keeps mutating.
	clone := cloneEntity(e)
	return &snapshot{
		entity: clone,
		fields: fieldMap(clone),
	}
}

// fieldMap extracts the entity's trackable fields. Entities implementing
// core.Snapshotter define their own field set; everything else is reflected
// over exported struct fields.
func fieldMap(e core.Entity) map[string]any {
	if s, ok := e.(core.Snapshotter); ok {
		return s.SnapshotFields()
	}
	v := reflect.ValueOf(e)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	t := v.Type()
	fields := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		fields[f.Name] = v.Field(i).Interface()
	}
	return fields
}

// cloneEntity returns a deep copy of the entity. The struct is copied whole
// (unexported fields included), then exported reference fields are cloned
// recursively so later mutations of the live entity cannot reach the
// snapshot. Cycles are not handled; tracked entities are expected to be
// acyclic value graphs.
func cloneEntity(e core.Entity) core.Entity {
	v := reflect.ValueOf(e)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return e
	}
	cp := reflect.New(v.Elem().Type())
	cp.Elem().Set(v.Elem())
	deepCloneFields(cp.Elem())
	return cp.Interface().(core.Entity)
}

// deepCloneFields replaces every settable reference field of a struct value
// with a recursive copy. Unexported fields keep the shallow copy; reflection
// cannot rewrite them without unsafe, and entities needing them tracked
// should implement core.Snapshotter.
func deepCloneFields(v reflect.Value) {
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if !f.CanSet() {
			continue
		}
		f.Set(cloneValue(f))
	}
}

// cloneValue performs a best-effort recursive clone of common container
// shapes (slices, maps, pointers to structs, interfaces holding them).
// Values of plain comparable kinds are returned as-is.
func cloneValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out
	case reflect.Pointer:
		if v.IsNil() || v.Elem().Kind() != reflect.Struct {
			return v
		}
		out := reflect.New(v.Elem().Type())
		out.Elem().Set(v.Elem())
		deepCloneFields(out.Elem())
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		deepCloneFields(out)
		return out
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		inner := cloneValue(v.Elem())
		out := reflect.New(v.Type()).Elem()
		out.Set(inner)
		return out
	default:
		return v
	}
}
