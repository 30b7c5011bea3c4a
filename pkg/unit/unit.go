package unit

import (
	"context"
	"io"
	"log/slog"
	"reflect"

	"github.com/leapstack-labs/leapunit/pkg/core"
)

// UnitOfWork coordinates a single commit/rollback cycle over tracked
// entities. It owns all transient scheduling state: the identity map,
// snapshots, the three schedule sets, and pending aggregate-root links.
type UnitOfWork struct {
	logger  *slog.Logger
	conn    core.Connection
	mappers *MapperRegistry

	identity  *identityMap
	states    map[core.Entity]core.State
	snapshots map[core.Entity]*snapshot

	// tracked preserves manage order so change detection and accessors are
	// deterministic.
	tracked     []core.Entity
	everTracked map[core.Entity]struct{}

	inserts *scheduleSet
	updates *scheduleSet
	deletes *scheduleSet

	comparers map[reflect.Type]core.ComparisonFunc
	links     *linkSet

	preCommit func(ctx context.Context) error
}

// New creates a unit of work committing through conn with the given mapper
// registry. If logger is nil, a discard logger is used.
func New(conn core.Connection, mappers *MapperRegistry, logger *slog.Logger) *UnitOfWork {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	u := &UnitOfWork{
		logger:  logger,
		conn:    conn,
		mappers: mappers,
	}
	u.reset()
	return u
}

func (u *UnitOfWork) reset() {
	u.identity = newIdentityMap()
	u.states = make(map[core.Entity]core.State)
	u.snapshots = make(map[core.Entity]*snapshot)
	u.tracked = nil
	u.everTracked = make(map[core.Entity]struct{})
	u.inserts = newScheduleSet()
	u.updates = newScheduleSet()
	u.deletes = newScheduleSet()
	u.links = newLinkSet()
	// comparers survive Dispose: they are type-level configuration, not
	// per-cycle tracking state.
	if u.comparers == nil {
		u.comparers = make(map[reflect.Type]core.ComparisonFunc)
	}
}

// Mappers returns the registry this unit of work resolves mappers from.
func (u *UnitOfWork) Mappers() *MapperRegistry {
	return u.mappers
}

// OnPreCommit installs a hook invoked after change detection and before the
// transaction is opened. A hook error aborts the commit without touching the
// store. The default is no hook.
func (u *UnitOfWork) OnPreCommit(hook func(ctx context.Context) error) {
	u.preCommit = hook
}

// RegisterComparer installs a per-type comparison function. Entities whose
// type matches sample skip structural field comparison and use fn instead.
func (u *UnitOfWork) RegisterComparer(sample core.Entity, fn core.ComparisonFunc) {
	if sample == nil || fn == nil {
		return
	}
	u.comparers[entityType(sample)] = fn
}

// State reports the entity's lifecycle state; StateUnmanaged for entities
// this unit of work has never tracked.
func (u *UnitOfWork) State(e core.Entity) core.State {
	return u.states[e]
}

// IsManaged reports whether the entity is currently tracked (managed or
// scheduled for insertion).
func (u *UnitOfWork) IsManaged(e core.Entity) bool {
	st := u.states[e]
	return st == core.StateManaged || st == core.StateAdded
}

// ScheduleForInsert schedules the entity for insertion and transitions it to
// StateAdded. Idempotent per entity. No-op if the entity is already
// scheduled for deletion.
func (u *UnitOfWork) ScheduleForInsert(e core.Entity) {
	if e == nil || u.deletes.contains(e) {
		return
	}
	if u.inserts.add(e) {
		u.track(e, core.StateAdded)
	}
}

// ScheduleForUpdate schedules the entity for update. Idempotent per entity.
// Entities already scheduled for insertion or deletion are left alone: the
// pending insert writes current state anyway, and deletion wins.
func (u *UnitOfWork) ScheduleForUpdate(e core.Entity) {
	if e == nil || u.inserts.contains(e) || u.deletes.contains(e) {
		return
	}
	u.updates.add(e)
}

// ScheduleForDelete schedules the entity for deletion and withdraws any
// pending insert or update for it. Idempotent per entity.
func (u *UnitOfWork) ScheduleForDelete(e core.Entity) {
	if e == nil {
		return
	}
	u.inserts.remove(e)
	u.updates.remove(e)
	u.deletes.add(e)
}

// ScheduledInsertions returns the entities pending insertion, in schedule
// order.
func (u *UnitOfWork) ScheduledInsertions() []core.Entity {
	return u.inserts.entities()
}

// ScheduledUpdates returns the entities pending update, in schedule order.
// Change detection populates this set during Commit; call DetectChanges
// first to observe implicit updates before committing.
func (u *UnitOfWork) ScheduledUpdates() []core.Entity {
	return u.updates.entities()
}

// ScheduledDeletions returns the entities pending deletion, in schedule
// order.
func (u *UnitOfWork) ScheduledDeletions() []core.Entity {
	return u.deletes.entities()
}

// OriginalData returns a copy of the field values captured when the entity
// was last managed, or false if no snapshot exists.
func (u *UnitOfWork) OriginalData(e core.Entity) (map[string]any, bool) {
	snap, ok := u.snapshots[e]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(snap.fields))
	for k, v := range snap.fields {
		out[k] = v
	}
	return out, true
}

// Dispose clears all tracked state unconditionally without touching the
// underlying store. Used for request-scope teardown and test isolation.
func (u *UnitOfWork) Dispose() {
	u.logger.Debug("disposing unit of work",
		slog.Int("tracked", len(u.tracked)),
		slog.Int("inserts", u.inserts.len()),
		slog.Int("updates", u.updates.len()),
		slog.Int("deletes", u.deletes.len()),
	)
	u.reset()
}

// track records the entity under the given state and captures a fresh
// snapshot of its current field values.
func (u *UnitOfWork) track(e core.Entity, st core.State) {
	u.states[e] = st
	u.snapshots[e] = takeSnapshot(e)
	u.identity.bind(e)
	if _, seen := u.everTracked[e]; !seen {
		u.everTracked[e] = struct{}{}
		u.tracked = append(u.tracked, e)
	}
}

// entityType returns the struct type behind an entity pointer, the key used
// for mapper and comparer registration.
func entityType(e core.Entity) reflect.Type {
	t := reflect.TypeOf(e)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// isUnsetID reports whether id is nil or the zero value of its type.
func isUnsetID(id any) bool {
	if id == nil {
		return true
	}
	v := reflect.ValueOf(id)
	return v.IsZero()
}
