package unit

import "github.com/leapstack-labs/leapunit/pkg/core"

// scheduleSet is an insertion-ordered set of entities keyed by reference.
// Order matters: aggregate-root propagation relies on parents being
// persisted before the children registered after them.
type scheduleSet struct {
	order   []core.Entity
	members map[core.Entity]struct{}
}

func newScheduleSet() *scheduleSet {
	return &scheduleSet{members: make(map[core.Entity]struct{})}
}

// add appends the entity unless already present. Reports whether the entity
// was newly added.
func (s *scheduleSet) add(e core.Entity) bool {
	if _, ok := s.members[e]; ok {
		return false
	}
	s.members[e] = struct{}{}
	s.order = append(s.order, e)
	return true
}

func (s *scheduleSet) remove(e core.Entity) {
	delete(s.members, e)
	// order keeps the stale entry; entities() filters by membership.
}

func (s *scheduleSet) contains(e core.Entity) bool {
	_, ok := s.members[e]
	return ok
}

func (s *scheduleSet) len() int {
	return len(s.members)
}

// entities returns the members in schedule order. Stale order entries from
// remove/re-add cycles are skipped, first occurrence wins.
func (s *scheduleSet) entities() []core.Entity {
	out := make([]core.Entity, 0, len(s.members))
	seen := make(map[core.Entity]struct{}, len(s.members))
	for _, e := range s.order {
		if _, ok := s.members[e]; !ok {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func (s *scheduleSet) clear() {
	s.order = nil
	s.members = make(map[core.Entity]struct{})
}
