package exporter

import (
	"strings"
	"testing"
	"time"

	"shelfmark/internal/model"
)

func TestExportHTML_Empty(t *testing.T) {
	html := ExportHTML(nil, nil)

	if !strings.Contains(html, "<!DOCTYPE NETSCAPE-Bookmark-file-1>") {
		t.Error("expected DOCTYPE declaration")
	}
	if !strings.Contains(html, "<TITLE>Bookmarks</TITLE>") {
		t.Error("expected TITLE element")
	}
	if !strings.Contains(html, "<H1>Bookmarks</H1>") {
		t.Error("expected H1 element")
	}
}

func TestExportHTML_SingleBookmark(t *testing.T) {
	bookmarks := []model.Bookmark{{
		ID:        "b1",
		Title:     "GitHub",
		URL:       "https://github.com",
		CreatedAt: time.Unix(1700000000, 0),
	}}

	html := ExportHTML(nil, bookmarks)

	if !strings.Contains(html, `<A HREF="https://github.com"`) {
		t.Error("expected bookmark URL")
	}
	if !strings.Contains(html, "GitHub</A>") {
		t.Error("expected bookmark title")
	}
	if !strings.Contains(html, `ADD_DATE="1700000000"`) {
		t.Error("expected ADD_DATE timestamp")
	}
}

func TestExportHTML_NestedFolders(t *testing.T) {
	parentID := "f1"
	childID := "f2"
	folders := []model.Folder{
		{ID: parentID, Title: "Development"},
		{ID: childID, Title: "React", ParentID: &parentID},
	}
	bookmarks := []model.Bookmark{{
		ID:        "b1",
		Title:     "TanStack Router",
		URL:       "https://tanstack.com/router",
		FolderID:  &childID,
		CreatedAt: time.Unix(1700000000, 0),
	}}

	html := ExportHTML(folders, bookmarks)

	devIdx := strings.Index(html, "Development</H3>")
	reactIdx := strings.Index(html, "React</H3>")
	bookmarkIdx := strings.Index(html, "TanStack Router</A>")

	if devIdx == -1 || reactIdx == -1 || bookmarkIdx == -1 {
		t.Fatal("missing elements in output")
	}
	if devIdx >= reactIdx || reactIdx >= bookmarkIdx {
		t.Error("expected nesting order: Development > React > TanStack Router")
	}
}

func TestExportHTML_EscapesSpecialCharacters(t *testing.T) {
	bookmarks := []model.Bookmark{{
		ID:        "b1",
		Title:     "Test <script>alert('xss')</script>",
		URL:       "https://example.com?foo=bar&baz=qux",
		CreatedAt: time.Now(),
	}}

	html := ExportHTML(nil, bookmarks)

	if strings.Contains(html, "<script>") {
		t.Error("script tag should be escaped")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Error("expected escaped script tag")
	}
	if strings.Contains(html, "foo=bar&baz") {
		t.Error("ampersand should be escaped in URL")
	}
	if !strings.Contains(html, "foo=bar&amp;baz") {
		t.Error("expected escaped ampersand in URL")
	}
}

func TestExportHTML_MultipleRootItems(t *testing.T) {
	folders := []model.Folder{
		{ID: "f1", Title: "Folder A"},
		{ID: "f2", Title: "Folder B"},
	}
	bookmarks := []model.Bookmark{{
		ID:        "b1",
		Title:     "Root Bookmark",
		URL:       "https://example.com",
		CreatedAt: time.Now(),
	}}

	html := ExportHTML(folders, bookmarks)

	if !strings.Contains(html, "Folder A</H3>") {
		t.Error("expected Folder A")
	}
	if !strings.Contains(html, "Folder B</H3>") {
		t.Error("expected Folder B")
	}
	if !strings.Contains(html, "Root Bookmark</A>") {
		t.Error("expected root bookmark")
	}
}
