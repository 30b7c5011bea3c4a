package unit

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapunit/pkg/core"
)

var errBoom = errors.New("boom")

// user is a plain entity covered by structural field comparison. The
// identifier is unexported so only Name, Email, and Tags participate.
type user struct {
	id    any
	Name  string
	Email string
	Tags  []string
}

func (u *user) EntityID() any      { return u.id }
func (u *user) SetEntityID(id any) { u.id = id }

// task exposes unexported state to dirty checking via SnapshotFields.
type task struct {
	id    any
	title string
	done  bool
	extra map[string]any
}

func (t *task) EntityID() any      { return t.id }
func (t *task) SetEntityID(id any) { t.id = id }

func (t *task) SnapshotFields() map[string]any {
	fields := map[string]any{
		"title": t.title,
		"done":  t.done,
	}
	for k, v := range t.extra {
		fields[k] = v
	}
	return fields
}

// order and orderLine model an aggregate: a line carries its order's
// generated identifier.
type order struct {
	id  any
	Ref string
}

func (o *order) EntityID() any      { return o.id }
func (o *order) SetEntityID(id any) { o.id = id }

type orderLine struct {
	id      any
	OrderID any
	SKU     string
}

func (l *orderLine) EntityID() any      { return l.id }
func (l *orderLine) SetEntityID(id any) { l.id = id }

// fakeTx records how the transaction ended.
type fakeTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Commit() error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	t.rolledBack = true
	return nil
}

// fakeConn hands out fake transactions and remembers them.
type fakeConn struct {
	beginErr  error
	commitErr error
	begun     []*fakeTx
}

func (c *fakeConn) BeginTx(context.Context) (core.Tx, error) {
	if c.beginErr != nil {
		return nil, c.beginErr
	}
	tx := &fakeTx{commitErr: c.commitErr}
	c.begun = append(c.begun, tx)
	return tx, nil
}

func (c *fakeConn) lastTx() *fakeTx {
	if len(c.begun) == 0 {
		return nil
	}
	return c.begun[len(c.begun)-1]
}

// fakeGen pops identifiers from a fixed list, then falls back to a counter.
type fakeGen struct {
	ids   []any
	empty any
	calls int
}

func (g *fakeGen) Generate(context.Context, core.Entity, core.Tx) (any, error) {
	g.calls++
	if g.calls <= len(g.ids) {
		return g.ids[g.calls-1], nil
	}
	return int64(g.calls), nil
}

func (g *fakeGen) Empty() any {
	if g.empty != nil {
		return g.empty
	}
	return int64(0)
}

// fakeMapper records operations in execution order. describe, when set,
// captures entity state at call time (aggregate tests rely on this).
type fakeMapper struct {
	gen      core.IDGenerator
	calls    []string
	describe func(e core.Entity) string
	failOn   string
}

func newFakeMapper(ids ...any) *fakeMapper {
	return &fakeMapper{gen: &fakeGen{ids: ids}}
}

func (m *fakeMapper) op(name string, e core.Entity) error {
	desc := ""
	if m.describe != nil {
		desc = m.describe(e)
	}
	m.calls = append(m.calls, name+":"+desc)
	if m.failOn == name {
		return fmt.Errorf("%s rejected: %w", name, errBoom)
	}
	return nil
}

func (m *fakeMapper) Insert(_ context.Context, _ core.Tx, e core.Entity) error {
	return m.op("insert", e)
}

func (m *fakeMapper) Update(_ context.Context, _ core.Tx, e core.Entity) error {
	return m.op("update", e)
}

func (m *fakeMapper) Delete(_ context.Context, _ core.Tx, e core.Entity) error {
	return m.op("delete", e)
}

func (m *fakeMapper) IDGenerator() core.IDGenerator {
	return m.gen
}

// kinds returns the operation names without descriptions.
func (m *fakeMapper) kinds() []string {
	out := make([]string, len(m.calls))
	for i, c := range m.calls {
		for j := range c {
			if c[j] == ':' {
				out[i] = c[:j]
				break
			}
		}
	}
	return out
}

// cachedFakeMapper adds the post-commit flush capability.
type cachedFakeMapper struct {
	fakeMapper
	flushes int
}

func (m *cachedFakeMapper) FlushCache(context.Context) error {
	m.flushes++
	return nil
}
