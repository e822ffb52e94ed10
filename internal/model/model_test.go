package model_test

import (
	"testing"

	"shelfmark/internal/model"
)

func TestNewBookmark(t *testing.T) {
	folderID := "f1"
	b := model.NewBookmark(model.NewBookmarkParams{
		Title:    "Go",
		URL:      "https://go.dev",
		FolderID: &folderID,
	})

	if b.ID == "" {
		t.Error("expected generated ID")
	}
	if b.Title != "Go" || b.URL != "https://go.dev" {
		t.Errorf("unexpected fields: %+v", b)
	}
	if b.FolderID == nil || *b.FolderID != "f1" {
		t.Error("expected folder ID to be set")
	}
	if b.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestHasURL(t *testing.T) {
	if (model.Bookmark{URL: ""}).HasURL() {
		t.Error("empty URL should not count")
	}
	if !(model.Bookmark{URL: "https://example.com"}).HasURL() {
		t.Error("expected HasURL for a real URL")
	}
}

func TestIsProtected(t *testing.T) {
	tests := []struct {
		name      string
		folder    model.Folder
		protected bool
	}{
		{"root id", model.Folder{ID: model.RootFolderID, Title: "anything"}, true},
		{"toolbar id", model.Folder{ID: model.ToolbarFolderID, Title: "My Bar"}, true},
		{"bar title", model.Folder{ID: "x1", Title: "Bookmarks Bar"}, true},
		{"bar title folded", model.Folder{ID: "x2", Title: "  bookmarks BAR  "}, true},
		{"other bookmarks", model.Folder{ID: "x3", Title: "Other Bookmarks"}, true},
		{"mobile", model.Folder{ID: "x4", Title: "Mobile Bookmarks"}, true},
		{"trash", model.Folder{ID: "x5", Title: "Trash"}, true},
		{"reading list", model.Folder{ID: "x6", Title: "Reading List"}, true},
		{"plain folder", model.Folder{ID: "x7", Title: "Shopping"}, false},
		{"similar but different", model.Folder{ID: "x8", Title: "Bookmarks Barn"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := model.IsProtected(tt.folder); got != tt.protected {
				t.Errorf("IsProtected(%q/%q) = %v, want %v", tt.folder.ID, tt.folder.Title, got, tt.protected)
			}
		})
	}
}

func TestIsReservedTabGroup(t *testing.T) {
	if !model.IsReservedTabGroup(model.Folder{ID: "t1", Title: "Tab Groups"}) {
		t.Error("expected Tab Groups to be reserved")
	}
	if model.IsReservedTabGroup(model.Folder{ID: "t2", Title: "Groups"}) {
		t.Error("Groups should not be reserved")
	}
}

func TestNormalizeTitle(t *testing.T) {
	if got := model.NormalizeTitle("  Dev Tools  "); got != "dev tools" {
		t.Errorf("NormalizeTitle = %q", got)
	}
}
