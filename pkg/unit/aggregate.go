package unit

import (
	"fmt"

	"github.com/leapstack-labs/leapunit/pkg/core"
)

// link records that child's persisted form depends on parent, typically
// because the child carries the parent's generated identifier. Links are
// explicit records stored by index rather than captured closures, applied
// exactly once immediately before the child's own write.
type link struct {
	parent   core.Entity
	child    core.Entity
	apply    core.PropagateFunc
	consumed bool
}

// linkSet stores links in registration order with a child index. The caller
// is responsible for registering links in dependency order: propagation runs
// right before each child's write, so a chain resolves correctly only when
// parents are scheduled before their children.
type linkSet struct {
	links   []*link
	byChild map[core.Entity][]int
}

func newLinkSet() *linkSet {
	return &linkSet{byChild: make(map[core.Entity][]int)}
}

func (s *linkSet) add(l *link) {
	s.links = append(s.links, l)
	s.byChild[l.child] = append(s.byChild[l.child], len(s.links)-1)
}

// applyFor runs every unconsumed link registered for the entity as child and
// marks them consumed.
func (s *linkSet) applyFor(child core.Entity) {
	for _, idx := range s.byChild[child] {
		l := s.links[idx]
		if l.consumed {
			continue
		}
		l.apply(l.parent, l.child)
		l.consumed = true
	}
}

// removeFor drops every link the entity participates in, as parent or child.
func (s *linkSet) removeFor(e core.Entity) {
	kept := make([]*link, 0, len(s.links))
	for _, l := range s.links {
		if l.parent == e || l.child == e {
			continue
		}
		kept = append(kept, l)
	}
	s.links = kept
	s.byChild = make(map[core.Entity][]int, len(kept))
	for i, l := range kept {
		s.byChild[l.child] = append(s.byChild[l.child], i)
	}
}

// resetConsumed clears the consumed marks. A rolled-back commit withdraws the
// generated identifiers its links propagated, so the retry must run
// propagation again with the fresh ones. A successful commit clears the set
// instead.
func (s *linkSet) resetConsumed() {
	for _, l := range s.links {
		l.consumed = false
	}
}

func (s *linkSet) clear() {
	s.links = nil
	s.byChild = make(map[core.Entity][]int)
}

// RegisterAggregateLink records that child's persisted identifier depends on
// parent: fn runs with both entities immediately before child's own write
// during the insert or update phase, after parent's identifier is known.
// Links are consumed once and discarded after a successful commit.
//
// Malformed registrations (nil parent, child, or fn, or parent == child)
// are rejected with core.ErrInvalidLink.
func (u *UnitOfWork) RegisterAggregateLink(parent, child core.Entity, fn core.PropagateFunc) error {
	switch {
	case parent == nil:
		return fmt.Errorf("%w: parent is nil", core.ErrInvalidLink)
	case child == nil:
		return fmt.Errorf("%w: child is nil", core.ErrInvalidLink)
	case fn == nil:
		return fmt.Errorf("%w: propagation function is nil", core.ErrInvalidLink)
	case parent == child:
		return fmt.Errorf("%w: entity cannot depend on itself", core.ErrInvalidLink)
	}
	u.links.add(&link{parent: parent, child: child, apply: fn})
	return nil
}
