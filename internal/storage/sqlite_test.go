package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"shelfmark/internal/model"
	"shelfmark/internal/storage"
)

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "shelfmark.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestTreeRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	folder := model.Folder{ID: "f1", Title: "Development"}
	if err := db.CreateFolder(ctx, folder); err != nil {
		t.Fatalf("create folder: %v", err)
	}

	f1 := "f1"
	bookmark := model.Bookmark{
		ID:        "b1",
		Title:     "Go Docs",
		URL:       "https://go.dev",
		FolderID:  &f1,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := db.CreateBookmark(ctx, bookmark); err != nil {
		t.Fatalf("create bookmark: %v", err)
	}

	folders, err := db.Folders(ctx)
	if err != nil {
		t.Fatalf("list folders: %v", err)
	}
	if len(folders) != 1 || folders[0].Title != "Development" {
		t.Errorf("unexpected folders: %+v", folders)
	}

	bookmarks, err := db.Bookmarks(ctx)
	if err != nil {
		t.Fatalf("list bookmarks: %v", err)
	}
	if len(bookmarks) != 1 {
		t.Fatalf("expected 1 bookmark, got %d", len(bookmarks))
	}
	got := bookmarks[0]
	if got.Title != "Go Docs" || got.URL != "https://go.dev" {
		t.Errorf("unexpected bookmark: %+v", got)
	}
	if got.FolderID == nil || *got.FolderID != "f1" {
		t.Error("expected folder id to survive round trip")
	}
	if !got.CreatedAt.Equal(bookmark.CreatedAt) {
		t.Errorf("expected CreatedAt %v, got %v", bookmark.CreatedAt, got.CreatedAt)
	}
}

func TestBookmarkOrderIsStable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// Same timestamp: order must fall back to id
	for _, id := range []string{"b2", "b1", "b3"} {
		b := model.Bookmark{ID: id, Title: id, URL: "https://example.com/" + id, CreatedAt: base}
		if err := db.CreateBookmark(ctx, b); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	bookmarks, err := db.Bookmarks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"b1", "b2", "b3"}
	for i, id := range want {
		if bookmarks[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, bookmarks[i].ID, id)
		}
	}
}

func TestMoveBookmark(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.CreateFolder(ctx, model.Folder{ID: "f1", Title: "Tech"}); err != nil {
		t.Fatalf("create folder: %v", err)
	}
	b := model.Bookmark{ID: "b1", Title: "GitHub", URL: "https://github.com", CreatedAt: time.Now()}
	if err := db.CreateBookmark(ctx, b); err != nil {
		t.Fatalf("create bookmark: %v", err)
	}

	f1 := "f1"
	if err := db.MoveBookmark(ctx, "b1", &f1); err != nil {
		t.Fatalf("move: %v", err)
	}

	bookmarks, _ := db.Bookmarks(ctx)
	if bookmarks[0].FolderID == nil || *bookmarks[0].FolderID != "f1" {
		t.Error("expected bookmark to be in f1")
	}
}

func TestMoveStaleIDFails(t *testing.T) {
	db := openTestDB(t)

	f1 := "f1"
	err := db.MoveBookmark(context.Background(), "gone", &f1)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRenameAndDeleteFolder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.CreateFolder(ctx, model.Folder{ID: "f1", Title: "Speed Dial"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.RenameFolder(ctx, "f1", "Shortcuts"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	folders, _ := db.Folders(ctx)
	if folders[0].Title != "Shortcuts" {
		t.Errorf("expected renamed title, got %q", folders[0].Title)
	}

	if err := db.DeleteFolder(ctx, "f1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := db.DeleteFolder(ctx, "f1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, _, ok, err := db.HistoryEntry(ctx, "b1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if ok {
		t.Error("expected no entry before put")
	}

	movedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := db.PutHistory(ctx, "b1", "Tech", movedAt); err != nil {
		t.Fatalf("put: %v", err)
	}

	gotAt, category, ok, err := db.HistoryEntry(ctx, "b1")
	if err != nil || !ok {
		t.Fatalf("lookup after put: ok=%v err=%v", ok, err)
	}
	if category != "Tech" || !gotAt.Equal(movedAt) {
		t.Errorf("unexpected entry: %v %q", gotAt, category)
	}

	// Last write wins
	if err := db.PutHistory(ctx, "b1", "News", movedAt.Add(time.Hour)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	_, category, _, _ = db.HistoryEntry(ctx, "b1")
	if category != "News" {
		t.Errorf("expected overwrite, got %q", category)
	}

	ids, err := db.HistoryIDs(ctx)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if !ids["b1"] || len(ids) != 1 {
		t.Errorf("unexpected id set: %v", ids)
	}

	if err := db.ClearHistory(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	ids, _ = db.HistoryIDs(ctx)
	if len(ids) != 0 {
		t.Error("expected empty history after clear")
	}
}

func TestLastReport(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	data, err := db.LastReport(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if data != nil {
		t.Error("expected nil before any run")
	}

	if err := db.SaveLastReport(ctx, []byte(`{"runId":"r1"}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err = db.LastReport(ctx)
	if err != nil {
		t.Fatalf("read after save: %v", err)
	}
	if string(data) != `{"runId":"r1"}` {
		t.Errorf("unexpected data: %s", data)
	}
}
