package unit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapunit/pkg/core"
)

// Commit applies every scheduled write atomically. The sequence is fixed:
// change detection, the pre-commit hook, begin, then the insert, update, and
// delete phases in that order inside the transaction, then commit.
//
// On success the schedule sets and pending aggregate links are cleared and
// the caches of any core.CachedDataMapper are flushed. On any failure the
// transaction is rolled back, every entity that was scheduled for insertion
// has its identifier reset to the generator's empty value, and the error is
// returned as a *core.CommitError carrying the original cause; the schedule
// sets are deliberately left populated so the caller can inspect or retry,
// and links applied during the failed attempt are reopened so the retry
// propagates the identifiers generated then.
//
// The fixed insert→update→delete order does not reorder across phases by
// dependency; only aggregate-root links order writes, and only within the
// insert and update phases.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	u.DetectChanges()

	// Deletion wins: an entity scheduled for deletion is never also an
	// insertion or update target in the same commit.
	for _, e := range u.deletes.entities() {
		u.inserts.remove(e)
		u.updates.remove(e)
	}

	if u.preCommit != nil {
		if err := u.preCommit(ctx); err != nil {
			return &core.CommitError{Phase: core.PhasePreCommit, Err: err}
		}
	}

	u.logger.Debug("beginning commit",
		slog.Int("inserts", u.inserts.len()),
		slog.Int("updates", u.updates.len()),
		slog.Int("deletes", u.deletes.len()),
	)

	tx, err := u.conn.BeginTx(ctx)
	if err != nil {
		return &core.CommitError{Phase: core.PhaseBegin, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}

	// Captured before the phases run: rollback cleanup must cover every
	// insertion candidate even after partial re-managing.
	inserted := u.inserts.entities()

	if err := u.insertPhase(ctx, tx); err != nil {
		return u.fail(tx, core.PhaseInsert, err, inserted)
	}
	if err := u.updatePhase(ctx, tx); err != nil {
		return u.fail(tx, core.PhaseUpdate, err, inserted)
	}
	if err := u.deletePhase(ctx, tx); err != nil {
		return u.fail(tx, core.PhaseDelete, err, inserted)
	}

	if err := tx.Commit(); err != nil {
		// The transaction did not commit; generated identifiers are not
		// durable and must be withdrawn like any other failure.
		u.resetInsertedIDs(inserted)
		u.links.resetConsumed()
		return &core.CommitError{Phase: core.PhaseCommit, Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}

	// Deletions become final only now; detaching earlier would drain the
	// delete schedule before a rollback could preserve it.
	for _, e := range u.deletes.entities() {
		u.Detach(e)
		u.states[e] = core.StateDeleted
	}

	u.flushCaches(ctx)
	u.inserts.clear()
	u.updates.clear()
	u.deletes.clear()
	u.links.clear()
	u.logger.Debug("commit complete")
	return nil
}

// insertPhase persists every insertion candidate: pending aggregate links
// first, then the mapper's insert, then the generated identifier is assigned
// and the entity is re-managed into the identity map as StateManaged.
func (u *UnitOfWork) insertPhase(ctx context.Context, tx core.Tx) error {
	for _, e := range u.inserts.entities() {
		mapper, err := u.mappers.Get(e)
		if err != nil {
			return err
		}
		u.links.applyFor(e)
		if err := mapper.Insert(ctx, tx, e); err != nil {
			return fmt.Errorf("failed to insert %s: %w", typeName(entityType(e)), err)
		}
		id, err := mapper.IDGenerator().Generate(ctx, e, tx)
		if err != nil {
			return fmt.Errorf("failed to generate identifier for %s: %w", typeName(entityType(e)), err)
		}
		e.SetEntityID(id)
		u.track(e, core.StateManaged)
	}
	return nil
}

// updatePhase persists every update candidate, applying pending aggregate
// links before each write and re-managing the entity afterwards so its
// snapshot reflects the persisted state.
func (u *UnitOfWork) updatePhase(ctx context.Context, tx core.Tx) error {
	for _, e := range u.updates.entities() {
		mapper, err := u.mappers.Get(e)
		if err != nil {
			return err
		}
		u.links.applyFor(e)
		if err := mapper.Update(ctx, tx, e); err != nil {
			return fmt.Errorf("failed to update %s: %w", typeName(entityType(e)), err)
		}
		u.track(e, core.StateManaged)
	}
	return nil
}

// deletePhase issues every deletion. The lifecycle transition to
// StateDeleted happens after the transaction commits.
func (u *UnitOfWork) deletePhase(ctx context.Context, tx core.Tx) error {
	for _, e := range u.deletes.entities() {
		mapper, err := u.mappers.Get(e)
		if err != nil {
			return err
		}
		if err := mapper.Delete(ctx, tx, e); err != nil {
			return fmt.Errorf("failed to delete %s: %w", typeName(entityType(e)), err)
		}
	}
	return nil
}

// fail rolls the transaction back, withdraws generated identifiers, and
// wraps the cause. Schedule sets stay populated and consumed links are
// reopened so a retry propagates the retry's identifiers, not the withdrawn
// ones.
func (u *UnitOfWork) fail(tx core.Tx, phase string, cause error, inserted []core.Entity) error {
	if rbErr := tx.Rollback(); rbErr != nil {
		u.logger.Warn("rollback failed", slog.String("phase", phase), slog.Any("error", rbErr))
	}
	u.resetInsertedIDs(inserted)
	u.links.resetConsumed()
	return &core.CommitError{Phase: phase, Err: cause}
}

// resetInsertedIDs resets the identifier of every insertion candidate back
// to its generator's empty value and restores the entity to StateAdded: the
// assignment during the insert phase may be partially applied or entirely
// unapplied once the transaction is gone.
func (u *UnitOfWork) resetInsertedIDs(inserted []core.Entity) {
	for _, e := range inserted {
		mapper, err := u.mappers.Get(e)
		if err != nil {
			continue
		}
		u.identity.unbind(e)
		e.SetEntityID(mapper.IDGenerator().Empty())
		u.states[e] = core.StateAdded
		u.snapshots[e] = takeSnapshot(e)
	}
}

// flushCaches invokes the post-commit flush on every registered mapper with
// the cached capability. Flush errors leave the cache stale but the data is
// durably committed, so they are logged rather than returned.
func (u *UnitOfWork) flushCaches(ctx context.Context) {
	for _, m := range u.mappers.All() {
		cached, ok := m.(core.CachedDataMapper)
		if !ok {
			continue
		}
		if err := cached.FlushCache(ctx); err != nil {
			u.logger.Warn("cache flush failed after commit", slog.Any("error", err))
		}
	}
}
