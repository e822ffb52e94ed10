package model

import "strings"

// Folder represents a container for bookmarks and other folders.
type Folder struct {
	ID       string
	Title    string
	ParentID *string // nil = root level
}

// NewFolderParams holds parameters for creating a new Folder.
type NewFolderParams struct {
	Title    string
	ParentID *string
}

// NewFolder creates a Folder with a generated UUID.
func NewFolder(params NewFolderParams) Folder {
	return Folder{
		ID:       GenerateUUID(),
		Title:    params.Title,
		ParentID: params.ParentID,
	}
}

// Well-known folder ids assigned by browsers. These exist before any
// import and must survive every run.
const (
	RootFolderID    = "root"
	ToolbarFolderID = "toolbar"
	OtherFolderID   = "other"
	MobileFolderID  = "mobile"
	TrashFolderID   = "trash"
)

var protectedIDs = map[string]bool{
	RootFolderID:    true,
	ToolbarFolderID: true,
	OtherFolderID:   true,
	MobileFolderID:  true,
	TrashFolderID:   true,
}

var protectedTitles = map[string]bool{
	"bookmarks bar":     true,
	"bookmarks toolbar": true,
	"bookmarks menu":    true,
	"other bookmarks":   true,
	"mobile bookmarks":  true,
	"reading list":      true,
	"trash":             true,
}

var tabGroupTitles = map[string]bool{
	"tab groups":       true,
	"saved tab groups": true,
}

// NormalizeTitle trims and case-folds a folder title for comparison.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// IsProtectedID reports whether the id belongs to a system folder.
func IsProtectedID(id string) bool {
	return protectedIDs[id]
}

// IsProtected reports whether the folder must never be deleted or used
// as a creation target. Protection is a static predicate over the id
// and the normalized title.
func IsProtected(f Folder) bool {
	if protectedIDs[f.ID] {
		return true
	}
	return protectedTitles[NormalizeTitle(f.Title)]
}

// IsReservedTabGroup reports whether the folder is a browser-managed
// tab-group container. These are prunable only when explicitly allowed.
func IsReservedTabGroup(f Folder) bool {
	return tabGroupTitles[NormalizeTitle(f.Title)]
}
