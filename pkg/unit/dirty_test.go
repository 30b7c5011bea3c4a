package unit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapunit/pkg/core"
)

func TestDetectChangesStructural(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *user)
		changed bool
	}{
		{
			name:    "untouched entity stays clean",
			mutate:  func(*user) {},
			changed: false,
		},
		{
			name:    "scalar field mutation",
			mutate:  func(e *user) { e.Name = "renamed" },
			changed: true,
		},
		{
			name:    "slice field mutation",
			mutate:  func(e *user) { e.Tags = append(e.Tags, "vip") },
			changed: true,
		},
		{
			name: "mutation reverted before detection",
			mutate: func(e *user) {
				e.Name = "temporary"
				e.Name = "Ada"
			},
			changed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, _, _ := newTestUnit(t)
			e := &user{id: "u-1", Name: "Ada", Tags: []string{"admin"}}
			u.Manage(e)

			tt.mutate(e)
			u.DetectChanges()

			if tt.changed {
				assert.Equal(t, []core.Entity{e}, u.ScheduledUpdates())
			} else {
				assert.Empty(t, u.ScheduledUpdates())
			}
		})
	}
}

func TestDetectChangesSnapshotIsolation(t *testing.T) {
	// The snapshot must hold copies: mutating a slice in place, not just
	// replacing it, still counts as a change.
	u, _, _ := newTestUnit(t)
	e := &user{id: "u-1", Tags: []string{"admin"}}
	u.Manage(e)

	e.Tags[0] = "banned"
	u.DetectChanges()

	assert.Len(t, u.ScheduledUpdates(), 1)
}

func TestComparerOverridesStructuralComparison(t *testing.T) {
	u, _, _ := newTestUnit(t)

	neverChanged := func(_, _ core.Entity) bool { return false }
	RegisterComparer[*user](u, neverChanged)

	e := &user{id: "u-1", Name: "Ada"}
	u.Manage(e)
	e.Name = "mutated"
	u.DetectChanges()

	assert.Empty(t, u.ScheduledUpdates())
}

func TestComparerReceivesSnapshotAndCurrent(t *testing.T) {
	u, _, _ := newTestUnit(t)

	u.RegisterComparer(&user{}, func(prev, current core.Entity) bool {
		return prev.(*user).Name != current.(*user).Name
	})

	e := &user{id: "u-1", Name: "Ada"}
	u.Manage(e)
	e.Name = "Lovelace"
	u.DetectChanges()

	require.Len(t, u.ScheduledUpdates(), 1)
}

func TestSnapshotterDrivesComparison(t *testing.T) {
	u, _, _ := newTestUnit(t)
	RegisterMapper[*task](u.Mappers(), newFakeMapper())

	e := &task{id: "t-1", title: "write tests"}
	u.Manage(e)

	// title is unexported; only SnapshotFields makes it visible.
	e.title = "rewrite tests"
	u.DetectChanges()
	require.Len(t, u.ScheduledUpdates(), 1)
}

func TestSnapshotterFieldCountChange(t *testing.T) {
	u, _, _ := newTestUnit(t)
	RegisterMapper[*task](u.Mappers(), newFakeMapper())

	e := &task{id: "t-1", title: "stable"}
	u.Manage(e)

	e.extra = map[string]any{"priority": 3}
	u.DetectChanges()
	assert.Len(t, u.ScheduledUpdates(), 1)
}

func TestDetectChangesSkipsScheduledEntities(t *testing.T) {
	u, _, _ := newTestUnit(t)

	doomed := &user{id: "u-1", Name: "doomed"}
	u.Manage(doomed)
	u.ScheduleForDelete(doomed)
	doomed.Name = "mutated after scheduling"

	u.DetectChanges()

	assert.Empty(t, u.ScheduledUpdates())
	assert.Len(t, u.ScheduledDeletions(), 1)
}
