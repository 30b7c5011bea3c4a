package core

import "context"

// Connection is the transactional handle the unit of work commits through.
// A *sql.DB wrapped by sqlmapper.Connection is the usual implementation.
// The connection must not be shared with another transaction during the
// commit window; the unit of work performs exactly one begin per commit and
// ends it with either Commit or Rollback on the returned Tx.
type Connection interface {
	// BeginTx opens a transaction. Cancellation and timeouts are enforced
	// here via ctx; the unit of work defines none of its own.
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is an open transaction. *sql.Tx satisfies this directly.
type Tx interface {
	Commit() error
	Rollback() error
}

// DataMapper translates entity operations into physical store operations for
// one entity type. Each method receives the transaction the surrounding
// commit runs in; mappers must not commit or roll it back themselves.
type DataMapper interface {
	// Insert writes a new row for the entity. The entity's identifier is
	// assigned afterwards by the mapper's IDGenerator.
	Insert(ctx context.Context, tx Tx, e Entity) error

	// Update rewrites the row identified by the entity's identifier.
	Update(ctx context.Context, tx Tx, e Entity) error

	// Delete removes the row identified by the entity's identifier.
	Delete(ctx context.Context, tx Tx, e Entity) error

	// IDGenerator returns the generator that produces identifiers for this
	// mapper's entity type.
	IDGenerator() IDGenerator
}

// IDGenerator produces identifiers for one entity type.
type IDGenerator interface {
	// Generate returns the identifier for an entity that was just inserted
	// in tx (for example by querying last_insert_rowid).
	Generate(ctx context.Context, e Entity, tx Tx) (any, error)

	// Empty returns the unset identifier value for the type. Rollback
	// cleanup assigns it back to every entity that was scheduled for
	// insertion.
	Empty() any
}

// CachedDataMapper is an optional mapper capability. When a registered
// mapper implements it, the unit of work calls FlushCache after the
// surrounding transaction has durably committed, never before: the cache
// must only ever reflect committed state.
type CachedDataMapper interface {
	DataMapper

	// FlushCache publishes writes staged during the transaction to the
	// mapper's read cache.
	FlushCache(ctx context.Context) error
}
