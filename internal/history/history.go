// Package history persists, per bookmark id, whether this tool has
// already placed the bookmark. It makes re-runs idempotent.
package history

import (
	"context"
	"time"
)

// Policy controls whether already-placed items are excluded from a
// scan.
type Policy string

const (
	// PolicyAlways excludes historied items from every run.
	PolicyAlways Policy = "always"
	// PolicyNever reclassifies everything on every run.
	PolicyNever Policy = "never"
	// PolicyOnFullScanOnly excludes historied items on full-tree runs
	// but not on folder-scoped runs.
	PolicyOnFullScanOnly Policy = "onFullScanOnly"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	switch p {
	case PolicyAlways, PolicyNever, PolicyOnFullScanOnly:
		return true
	}
	return false
}

// Store is the persistence the tracker needs. Satisfied by storage.DB.
type Store interface {
	HistoryEntry(ctx context.Context, itemID string) (movedAt time.Time, category string, ok bool, err error)
	PutHistory(ctx context.Context, itemID, category string, movedAt time.Time) error
	HistoryIDs(ctx context.Context) (map[string]bool, error)
	ClearHistory(ctx context.Context) error
}

// Tracker records placements with pure key-value, last-write-wins
// semantics.
type Tracker struct {
	store Store
	now   func() time.Time
}

// NewTracker creates a Tracker over the given store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// IsMoved reports whether the item has a placement record.
func (t *Tracker) IsMoved(ctx context.Context, itemID string) (bool, error) {
	_, _, ok, err := t.store.HistoryEntry(ctx, itemID)
	return ok, err
}

// MarkMoved records that the item was placed into category. Called the
// moment a move succeeds, never before and never batched, so a crash
// mid-run leaves history consistent with what was actually moved.
func (t *Tracker) MarkMoved(ctx context.Context, itemID, category string) error {
	return t.store.PutHistory(ctx, itemID, category, t.now())
}

// MovedIDs returns the set of all historied item ids.
func (t *Tracker) MovedIDs(ctx context.Context) (map[string]bool, error) {
	return t.store.HistoryIDs(ctx)
}

// Clear drops all placement records.
func (t *Tracker) Clear(ctx context.Context) error {
	return t.store.ClearHistory(ctx)
}

// MarkAllOrganized records every given item as placed without moving
// anything. Used to baseline an already-organized tree. Returns the
// number of newly recorded items.
func (t *Tracker) MarkAllOrganized(ctx context.Context, itemIDs []string) (int, error) {
	existing, err := t.store.HistoryIDs(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	now := t.now()
	for _, id := range itemIDs {
		if existing[id] {
			continue
		}
		if err := t.store.PutHistory(ctx, id, "", now); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
