package core

// Entity is implemented by any domain object the unit of work can track.
// Implementations are expected to be pointers to structs: the identifier
// field is mutated in place when the store generates it during commit.
//
// The identifier is unset (nil or the type's zero value) until the entity
// has been persisted. Before that, identity is by pointer only; once the
// identifier is assigned, identity is established by (entity type, id).
type Entity interface {
	// EntityID returns the persisted identifier, or an unset value for
	// entities that have not been inserted yet. The returned value must be
	// comparable (string, integer, etc.) so it can serve as a map key.
	EntityID() any

	// SetEntityID assigns the persisted identifier. The unit of work calls
	// this after an insert succeeds, and again with the generator's empty
	// value when a failed commit rolls back.
	SetEntityID(id any)
}

// Snapshotter is an optional entity capability. When implemented, change
// detection compares the returned field maps instead of reflecting over the
// entity's exported struct fields, which lets entities expose unexported
// state to dirty checking.
type Snapshotter interface {
	// SnapshotFields returns the entity's trackable fields by name.
	// Values must be comparable or plain containers of comparables.
	SnapshotFields() map[string]any
}

// ComparisonFunc decides whether a managed entity has changed since its
// snapshot was taken. prev is the snapshot copy, current the live entity.
// It returns true when the entity should be scheduled for update.
// Registering one for a type disables structural comparison for that type.
type ComparisonFunc func(prev, current Entity) bool

// PropagateFunc copies state from a persisted parent into a dependent child,
// typically the parent's freshly generated identifier into the child's
// foreign-key field. It runs immediately before the child's own write.
type PropagateFunc func(parent, child Entity)

// State describes where an entity sits in its tracked lifecycle.
type State uint8

const (
	// StateUnmanaged is the zero state: the entity is not tracked.
	StateUnmanaged State = iota

	// StateManaged means the entity is tracked and assumed in sync with the
	// store as of its snapshot.
	StateManaged

	// StateAdded means the entity is scheduled for insertion and has not
	// been committed yet.
	StateAdded

	// StateDeleted means the entity was removed by a committed delete.
	// Terminal.
	StateDeleted

	// StateDetached means the entity was explicitly removed from tracking.
	// Terminal.
	StateDetached
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateUnmanaged:
		return "unmanaged"
	case StateManaged:
		return "managed"
	case StateAdded:
		return "added"
	case StateDeleted:
		return "deleted"
	case StateDetached:
		return "detached"
	default:
		return "unknown"
	}
}
