package unit

import (
	"reflect"

	"github.com/leapstack-labs/leapunit/pkg/core"
)

// identityKey establishes persisted identity: one canonical in-memory
// instance per (entity type, identifier). Identifier values must be
// comparable; entities without an identifier are tracked by pointer only and
// never enter the key index.
type identityKey struct {
	typ reflect.Type
	id  any
}

// identityMap tracks the canonical instance per identity key. It holds a
// reverse index so an entity can be unbound after its identifier has been
// mutated (rollback resets identifiers before unbinding).
type identityMap struct {
	byKey map[identityKey]core.Entity
	keyOf map[core.Entity]identityKey
}

func newIdentityMap() *identityMap {
	return &identityMap{
		byKey: make(map[identityKey]core.Entity),
		keyOf: make(map[core.Entity]identityKey),
	}
}

// lookup returns the canonical instance sharing e's type and identifier.
func (m *identityMap) lookup(e core.Entity) (core.Entity, bool) {
	id := e.EntityID()
	if isUnsetID(id) {
		return nil, false
	}
	canonical, ok := m.byKey[identityKey{typ: entityType(e), id: id}]
	return canonical, ok
}

// lookupByID returns the canonical instance for (typ, id).
func (m *identityMap) lookupByID(typ reflect.Type, id any) (core.Entity, bool) {
	if isUnsetID(id) {
		return nil, false
	}
	canonical, ok := m.byKey[identityKey{typ: typ, id: id}]
	return canonical, ok
}

// bind indexes the entity under its current identifier. No-op while the
// identifier is unset. Rebinding after an identifier change drops the stale
// key first.
func (m *identityMap) bind(e core.Entity) {
	m.unbind(e)
	id := e.EntityID()
	if isUnsetID(id) {
		return
	}
	key := identityKey{typ: entityType(e), id: id}
	m.byKey[key] = e
	m.keyOf[e] = key
}

// unbind removes the entity from the key index, regardless of what its
// identifier reads now.
func (m *identityMap) unbind(e core.Entity) {
	key, ok := m.keyOf[e]
	if !ok {
		return
	}
	if m.byKey[key] == e {
		delete(m.byKey, key)
	}
	delete(m.keyOf, e)
}

// Manage places the entity under tracking and returns the canonical
// instance. If another instance of the same type and identifier is already
// tracked, that instance is returned and the argument stays unmanaged:
// callers must continue with the returned value. Otherwise the entity
// becomes tracked with a fresh snapshot and transitions to StateManaged.
// Managing an already-tracked entity is a no-op returning it unchanged.
//
// A detached entity may be managed again; it re-attaches with a fresh
// snapshot as if seen for the first time. A deleted entity has no row behind
// it anymore and stays StateDeleted; managing it is a no-op.
func (u *UnitOfWork) Manage(e core.Entity) core.Entity {
	if e == nil {
		return nil
	}
	if canonical, ok := u.identity.lookup(e); ok {
		return canonical
	}
	if st := u.states[e]; st == core.StateManaged || st == core.StateAdded || st == core.StateDeleted {
		return e
	}
	u.track(e, core.StateManaged)
	return e
}

// ManagedByID returns the tracked instance for sample's entity type and the
// given identifier, or false when none is tracked. sample only supplies the
// type and may be a zero-value entity.
func (u *UnitOfWork) ManagedByID(sample core.Entity, id any) (core.Entity, bool) {
	if sample == nil {
		return nil, false
	}
	return u.identity.lookupByID(entityType(sample), id)
}

// Detach removes all tracking data for the entity: its snapshot, schedule
// entries, aggregate links, and identity binding. The entity transitions to
// StateDetached. No-op unless the entity is currently managed or added.
func (u *UnitOfWork) Detach(e core.Entity) {
	st := u.states[e]
	if st != core.StateManaged && st != core.StateAdded {
		return
	}
	delete(u.snapshots, e)
	u.inserts.remove(e)
	u.updates.remove(e)
	u.deletes.remove(e)
	u.links.removeFor(e)
	u.identity.unbind(e)
	u.states[e] = core.StateDetached
}
