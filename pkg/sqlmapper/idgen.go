package sqlmapper

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapunit/pkg/core"
)

// SerialGenerator produces int64 identifiers by querying the transaction
// for the row id assigned by the last insert. The empty value is 0.
type SerialGenerator struct {
	// Query overrides the id lookup statement. Defaults to SQLite's
	// last_insert_rowid(); set "SELECT lastval()" for postgres serials.
	Query string
}

func (g *SerialGenerator) query() string {
	if g.Query != "" {
		return g.Query
	}
	return "SELECT last_insert_rowid()"
}

// Generate returns the identifier the store assigned to the row just
// inserted in tx.
func (g *SerialGenerator) Generate(ctx context.Context, _ core.Entity, tx core.Tx) (any, error) {
	st, err := sqlTxFrom(tx)
	if err != nil {
		return nil, err
	}
	var id int64
	if err := st.QueryRowContext(ctx, g.query()).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to read generated id: %w", err)
	}
	return id, nil
}

// Empty returns int64(0), the unset serial identifier.
func (g *SerialGenerator) Empty() any {
	return int64(0)
}

var _ core.IDGenerator = (*SerialGenerator)(nil)

// UUIDGenerator produces random UUID string identifiers. The store plays no
// part in generation, so Generate never touches the transaction. The empty
// value is "".
type UUIDGenerator struct{}

// Generate returns a new random UUID string.
func (UUIDGenerator) Generate(_ context.Context, _ core.Entity, _ core.Tx) (any, error) {
	return uuid.NewString(), nil
}

// Empty returns "", the unset UUID identifier.
func (UUIDGenerator) Empty() any {
	return ""
}

var _ core.IDGenerator = UUIDGenerator{}
