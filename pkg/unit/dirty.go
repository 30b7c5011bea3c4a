package unit

import (
	"log/slog"
	"reflect"

	"github.com/leapstack-labs/leapunit/pkg/core"
)

// DetectChanges runs dirty checking over every managed entity not already
// scheduled for insert, update, or delete, and schedules the changed ones
// for update. Commit runs this once before opening the transaction; calling
// it earlier is allowed and idempotent for unchanged entities.
func (u *UnitOfWork) DetectChanges() {
	detected := 0
	for _, e := range u.tracked {
		if u.states[e] != core.StateManaged {
			continue
		}
		if u.inserts.contains(e) || u.updates.contains(e) || u.deletes.contains(e) {
			continue
		}
		snap, ok := u.snapshots[e]
		if !ok {
			continue
		}
		if u.entityChanged(snap, e) {
			u.updates.add(e)
			detected++
		}
	}
	if detected > 0 {
		u.logger.Debug("change detection scheduled updates", slog.Int("entities", detected))
	}
}

// entityChanged decides whether the entity diverged from its snapshot. A
// registered comparison function for the type wins; otherwise the snapshot
// and current field maps are compared structurally.
func (u *UnitOfWork) entityChanged(snap *snapshot, e core.Entity) bool {
	if cmp, ok := u.comparers[entityType(e)]; ok {
		return cmp(snap.entity, e)
	}
	return fieldsChanged(snap.fields, fieldMap(e))
}

// fieldsChanged reports whether the two field maps differ: changed when the
// field sets differ or any field's current value is not equal to the
// snapshot value.
func fieldsChanged(prev, current map[string]any) bool {
	if len(prev) != len(current) {
		return true
	}
	for name, prevVal := range prev {
		curVal, ok := current[name]
		if !ok {
			return true
		}
		if !valueEqual(prevVal, curVal) {
			return true
		}
	}
	return false
}

// valueEqual compares two field values. Comparable kinds use strict
// equality; container kinds (slices, maps, structs holding them) fall back
// to reflect.DeepEqual, the Go rendering of value comparison for types ==
// cannot handle.
func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	if ra.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
