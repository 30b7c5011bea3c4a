// Package sqlmapper provides database/sql-backed implementations of the
// core collaborator contracts: a Connection over *sql.DB, a declarative
// table Mapper generating parameterized INSERT/UPDATE/DELETE statements,
// identifier generators (serial and UUID), and a caching mapper decorator
// whose read cache only ever reflects committed state.
//
// Drivers are the caller's choice; OpenSQLite (modernc.org/sqlite) and
// OpenPostgres (pgx via its database/sql driver) cover the common cases.
package sqlmapper
