package sqlmapper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapunit/pkg/core"
)

// Columns extracts an entity's persistable columns: parallel slices of
// column names and their current values, excluding the identifier column.
type Columns func(e core.Entity) (names []string, values []any)

// Mapper is a declarative table mapper for one entity type. It generates
// parameterized INSERT, UPDATE, and DELETE statements from the table name,
// identifier column, and a column extraction function.
type Mapper struct {
	// Table is the table written to.
	Table string

	// IDColumn is the identifier column, used in UPDATE/DELETE predicates.
	IDColumn string

	// Columns extracts the non-identifier columns from an entity.
	Columns Columns

	// Gen produces identifiers after insertion. Required.
	Gen core.IDGenerator

	// Placeholder formats the n-th (1-based) statement placeholder.
	// Defaults to "?"; use PostgresPlaceholder for $N-style drivers.
	Placeholder func(n int) string

	// Logger defaults to discard when nil.
	Logger *slog.Logger
}

func (m *Mapper) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m.Logger
}

func (m *Mapper) placeholder(n int) string {
	if m.Placeholder != nil {
		return m.Placeholder(n)
	}
	return "?"
}

// PostgresPlaceholder formats $N-style placeholders.
func PostgresPlaceholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// Insert writes a new row for the entity's current column values.
func (m *Mapper) Insert(ctx context.Context, tx core.Tx, e core.Entity) error {
	st, err := sqlTxFrom(tx)
	if err != nil {
		return err
	}
	names, values := m.Columns(e)
	if len(names) == 0 {
		return fmt.Errorf("no columns extracted for insert into %s", m.Table)
	}
	placeholders := make([]string, len(names))
	for i := range names {
		placeholders[i] = m.placeholder(i + 1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		m.Table, strings.Join(names, ", "), strings.Join(placeholders, ", "))

	m.logger().Debug("inserting row", slog.String("table", m.Table))
	if _, err := st.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", m.Table, err)
	}
	return nil
}

// Update rewrites the row identified by the entity's identifier.
func (m *Mapper) Update(ctx context.Context, tx core.Tx, e core.Entity) error {
	st, err := sqlTxFrom(tx)
	if err != nil {
		return err
	}
	names, values := m.Columns(e)
	if len(names) == 0 {
		return fmt.Errorf("no columns extracted for update of %s", m.Table)
	}
	assignments := make([]string, len(names))
	for i, name := range names {
		assignments[i] = fmt.Sprintf("%s = %s", name, m.placeholder(i+1))
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		m.Table, strings.Join(assignments, ", "), m.IDColumn, m.placeholder(len(names)+1))
	args := append(values, e.EntityID())

	m.logger().Debug("updating row", slog.String("table", m.Table), slog.Any("id", e.EntityID()))
	if _, err := st.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s: %w", m.Table, err)
	}
	return nil
}

// Delete removes the row identified by the entity's identifier.
func (m *Mapper) Delete(ctx context.Context, tx core.Tx, e core.Entity) error {
	st, err := sqlTxFrom(tx)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", m.Table, m.IDColumn, m.placeholder(1))

	m.logger().Debug("deleting row", slog.String("table", m.Table), slog.Any("id", e.EntityID()))
	if _, err := st.ExecContext(ctx, query, e.EntityID()); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", m.Table, err)
	}
	return nil
}

// IDGenerator returns the mapper's identifier generator.
func (m *Mapper) IDGenerator() core.IDGenerator {
	return m.Gen
}

var _ core.DataMapper = (*Mapper)(nil)
