package model

import "time"

// Bookmark represents a saved URL inside the bookmark tree.
type Bookmark struct {
	ID        string
	Title     string
	URL       string
	FolderID  *string // nil = root level
	CreatedAt time.Time
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
type NewBookmarkParams struct {
	Title    string
	URL      string
	FolderID *string
}

// NewBookmark creates a Bookmark with a generated UUID and timestamp.
func NewBookmark(params NewBookmarkParams) Bookmark {
	return Bookmark{
		ID:        GenerateUUID(),
		Title:     params.Title,
		URL:       params.URL,
		FolderID:  params.FolderID,
		CreatedAt: time.Now(),
	}
}

// HasURL reports whether the bookmark points at an actual URL.
// Separator entries imported from some browsers have none.
func (b Bookmark) HasURL() bool {
	return b.URL != ""
}
