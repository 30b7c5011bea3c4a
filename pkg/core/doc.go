// Package core defines the shared language of the LeapUnit library.
//
// This package contains:
//   - Entity contracts (Entity, Snapshotter) and lifecycle states
//   - Collaborator interfaces (Connection, Tx, DataMapper, IDGenerator)
//   - Comparison and propagation function types
//   - Error kinds surfaced by commit processing
//
// The package holds no behavior beyond small value types; implementations
// live in pkg/unit (the unit-of-work coordinator) and pkg/sqlmapper
// (database/sql-backed collaborators), or are supplied by the application.
package core
