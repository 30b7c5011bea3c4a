package sqlmapper

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/leapstack-labs/leapunit/pkg/core"
)

// Connection adapts a *sql.DB to the core.Connection contract. *sql.Tx
// satisfies core.Tx directly, so transactions pass through unwrapped.
type Connection struct {
	DB     *sql.DB
	Logger *slog.Logger
}

// NewConnection wraps db. If logger is nil, a discard logger is used.
func NewConnection(db *sql.DB, logger *slog.Logger) *Connection {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Connection{DB: db, Logger: logger}
}

// BeginTx opens a transaction with the driver's default options.
func (c *Connection) BeginTx(ctx context.Context) (core.Tx, error) {
	if c.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	c.Logger.Debug("beginning transaction")
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// Close closes the underlying database handle.
func (c *Connection) Close() error {
	if c.DB != nil {
		c.Logger.Debug("closing database connection")
		return c.DB.Close()
	}
	return nil
}

var _ core.Connection = (*Connection)(nil)

// sqlTx is the slice of *sql.Tx the mappers need.
type sqlTx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqlTxFrom recovers the SQL execution surface from a core.Tx. Mappers in
// this package only work inside transactions opened by a Connection (or any
// core.Tx backed by database/sql).
func sqlTxFrom(tx core.Tx) (sqlTx, error) {
	st, ok := tx.(sqlTx)
	if !ok {
		return nil, fmt.Errorf("transaction %T does not expose database/sql execution", tx)
	}
	return st, nil
}
