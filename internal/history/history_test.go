package history_test

import (
	"context"
	"testing"
	"time"

	"shelfmark/internal/history"
)

type memStore struct {
	entries map[string]struct {
		movedAt  time.Time
		category string
	}
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]struct {
		movedAt  time.Time
		category string
	})}
}

func (m *memStore) HistoryEntry(_ context.Context, itemID string) (time.Time, string, bool, error) {
	e, ok := m.entries[itemID]
	return e.movedAt, e.category, ok, nil
}

func (m *memStore) PutHistory(_ context.Context, itemID, category string, movedAt time.Time) error {
	m.entries[itemID] = struct {
		movedAt  time.Time
		category string
	}{movedAt, category}
	return nil
}

func (m *memStore) HistoryIDs(_ context.Context) (map[string]bool, error) {
	ids := make(map[string]bool, len(m.entries))
	for id := range m.entries {
		ids[id] = true
	}
	return ids, nil
}

func (m *memStore) ClearHistory(_ context.Context) error {
	m.entries = make(map[string]struct {
		movedAt  time.Time
		category string
	})
	return nil
}

func TestPolicyValid(t *testing.T) {
	for _, p := range []history.Policy{history.PolicyAlways, history.PolicyNever, history.PolicyOnFullScanOnly} {
		if !p.Valid() {
			t.Errorf("%s should be valid", p)
		}
	}
	if history.Policy("sometimes").Valid() {
		t.Error("unknown policy must be invalid")
	}
}

func TestMarkAndQuery(t *testing.T) {
	tracker := history.NewTracker(newMemStore())
	ctx := context.Background()

	moved, err := tracker.IsMoved(ctx, "b1")
	if err != nil || moved {
		t.Fatalf("fresh item: moved=%v err=%v", moved, err)
	}

	if err := tracker.MarkMoved(ctx, "b1", "Tech"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	moved, err = tracker.IsMoved(ctx, "b1")
	if err != nil || !moved {
		t.Fatalf("after mark: moved=%v err=%v", moved, err)
	}

	// Last write wins: re-marking is not an error
	if err := tracker.MarkMoved(ctx, "b1", "News"); err != nil {
		t.Fatalf("re-mark: %v", err)
	}

	ids, err := tracker.MovedIDs(ctx)
	if err != nil || len(ids) != 1 || !ids["b1"] {
		t.Fatalf("ids=%v err=%v", ids, err)
	}

	if err := tracker.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	ids, _ = tracker.MovedIDs(ctx)
	if len(ids) != 0 {
		t.Errorf("expected empty history after clear, got %v", ids)
	}
}

func TestMarkAllOrganized(t *testing.T) {
	tracker := history.NewTracker(newMemStore())
	ctx := context.Background()

	if err := tracker.MarkMoved(ctx, "b1", "Tech"); err != nil {
		t.Fatalf("mark: %v", err)
	}

	count, err := tracker.MarkAllOrganized(ctx, []string{"b1", "b2", "b3"})
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 newly recorded, got %d", count)
	}

	ids, _ := tracker.MovedIDs(ctx)
	if len(ids) != 3 {
		t.Errorf("expected 3 recorded ids, got %v", ids)
	}
}
