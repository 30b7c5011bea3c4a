// Package unit implements the unit-of-work coordinator: it tracks entity
// lifecycle state, detects mutations against snapshots, propagates generated
// identifiers along aggregate-root links, and applies all scheduled writes
// through per-type data mappers as a single atomic transaction.
//
// A UnitOfWork is bound to one logical unit of work (one request, one batch
// job) and is not safe for concurrent use; give each worker its own
// instance. The MapperRegistry is safe to share process-wide.
package unit
