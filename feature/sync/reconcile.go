package sync

import (
	"context"
	"errors"
	"fmt"

	"membersync/feature/sync/models"
)

// FetchFunc produces the authoritative remote set for one entity type. It
// receives the current local mirror so implementations can reuse cached
// entries whose modification timestamp has not advanced.
type FetchFunc[T models.Entity] func(ctx context.Context, cached []T) ([]T, error)

// ProgressFunc reports per-item progress as (current, total). Implementations
// must not block; the reconciler calls it after every upserted item.
type ProgressFunc func(current, total int)

// Reconcile makes the local mirror for one entity type equal to the remote
// set.
//
// Every remote item is inserted, falling back to an update on a primary-key
// conflict, which makes the step idempotent regardless of prior partial runs.
// Afterwards, any local row whose id is absent from the remote set is deleted;
// server-side deletions propagate only through this set difference, never
// through explicit delete events.
//
// If fetch fails, nothing is deleted and partially upserted items remain; the
// next attempt's upserts converge them, so no rollback is needed.
func Reconcile[T models.Entity](ctx context.Context, store Store[T], fetch FetchFunc[T], progress ProgressFunc) error {
	cached, err := store.ListAll(ctx)
	if err != nil {
		return err
	}

	remote, err := fetch(ctx, cached)
	if err != nil {
		return fmt.Errorf("remote fetch failed: %w", err)
	}

	for i, item := range remote {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := store.Insert(ctx, item); err != nil {
			if !errors.Is(err, ErrConflict) {
				return err
			}
			if err := store.Update(ctx, item); err != nil {
				return err
			}
		}
		if progress != nil {
			progress(i+1, len(remote))
		}
	}

	// Re-list and drop everything the remote no longer has.
	local, err := store.ListAll(ctx)
	if err != nil {
		return err
	}

	remoteIDs := make(map[int64]struct{}, len(remote))
	for _, item := range remote {
		remoteIDs[item.GetID()] = struct{}{}
	}

	for _, item := range local {
		if _, ok := remoteIDs[item.GetID()]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := store.Delete(ctx, item); err != nil {
			return err
		}
	}

	return nil
}
