// Package store exposes the mutation surface of the bookmark tree used
// by the organizer: traversal, duplicate detection, idempotent folder
// creation, single-item moves and empty-folder pruning.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"shelfmark/internal/model"
)

// Pruning repeats until a pass removes nothing; the ceiling guards
// against pathological trees.
const maxPrunePasses = 10

// Backend is the set of single-operation primitives assumed from the
// underlying bookmark store. Each call is reliable on its own; there is
// no batching primitive.
type Backend interface {
	Folders(ctx context.Context) ([]model.Folder, error)
	Bookmarks(ctx context.Context) ([]model.Bookmark, error)
	CreateFolder(ctx context.Context, f model.Folder) error
	RenameFolder(ctx context.Context, id, title string) error
	DeleteFolder(ctx context.Context, id string) error
	MoveBookmark(ctx context.Context, id string, folderID *string) error
	DeleteBookmark(ctx context.Context, id string) error
}

// RemovedItem describes one deleted bookmark or folder for the audit
// trail in the outcome report.
type RemovedItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Removal reports what a destructive pass actually deleted.
type Removal struct {
	Count   int           `json:"count"`
	Details []RemovedItem `json:"details"`
}

// Adapter wraps a Backend with the tree-level operations the organizer
// needs. It never caches across calls: the organizer mutates the store
// between steps and every read must reflect the live tree.
type Adapter struct {
	backend Backend
	log     *slog.Logger
}

// NewAdapter creates an Adapter over the given backend.
func NewAdapter(backend Backend, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{backend: backend, log: log}
}

// Items returns every bookmark in the live tree.
func (a *Adapter) Items(ctx context.Context) ([]model.Bookmark, error) {
	return a.backend.Bookmarks(ctx)
}

// Folders returns every folder in the live tree.
func (a *Adapter) Folders(ctx context.Context) ([]model.Folder, error) {
	return a.backend.Folders(ctx)
}

// FindDuplicateGroups groups bookmarks whose URLs are byte-identical.
// No normalization: a trailing slash or query string difference is a
// different URL. Only groups with more than one member are returned,
// each sorted oldest-first (creation time, then id) so the survivor of
// a removal is deterministic.
func (a *Adapter) FindDuplicateGroups(ctx context.Context) (map[string][]model.Bookmark, error) {
	items, err := a.backend.Bookmarks(ctx)
	if err != nil {
		return nil, err
	}

	byURL := make(map[string][]model.Bookmark)
	for _, b := range items {
		if !b.HasURL() {
			continue
		}
		byURL[b.URL] = append(byURL[b.URL], b)
	}

	groups := make(map[string][]model.Bookmark)
	for url, group := range byURL {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if !group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].CreatedAt.Before(group[j].CreatedAt)
			}
			return group[i].ID < group[j].ID
		})
		groups[url] = group
	}
	return groups, nil
}

// RemoveDuplicates deletes all but the oldest bookmark of every
// duplicate group. Individual delete failures are logged and skipped;
// the returned Removal lists exactly what was deleted.
func (a *Adapter) RemoveDuplicates(ctx context.Context) (Removal, error) {
	groups, err := a.FindDuplicateGroups(ctx)
	if err != nil {
		return Removal{}, err
	}

	var removal Removal
	for _, group := range groups {
		for _, b := range group[1:] {
			if err := a.backend.DeleteBookmark(ctx, b.ID); err != nil {
				a.log.Warn("duplicate removal failed", "id", b.ID, "url", b.URL, "error", err)
				continue
			}
			removal.Count++
			removal.Details = append(removal.Details, RemovedItem{ID: b.ID, Title: b.Title, URL: b.URL})
		}
	}

	sort.Slice(removal.Details, func(i, j int) bool {
		return removal.Details[i].ID < removal.Details[j].ID
	})
	return removal, nil
}

// EnsureFolder finds or creates a folder with the given title under
// parentID. The match is by normalized title scoped to the parent; a
// same-named folder elsewhere in the tree is not a match. Returns the
// folder id and whether a folder was created.
func (a *Adapter) EnsureFolder(ctx context.Context, title string, parentID *string) (string, bool, error) {
	want := model.NormalizeTitle(title)
	if want == "" {
		return "", false, fmt.Errorf("ensure folder: empty title")
	}
	probe := model.Folder{Title: title}
	if model.IsProtected(probe) {
		return "", false, fmt.Errorf("ensure folder: %q is a protected name", title)
	}

	folders, err := a.backend.Folders(ctx)
	if err != nil {
		return "", false, err
	}
	for _, f := range folders {
		if model.NormalizeTitle(f.Title) == want && ptrEqual(f.ParentID, parentID) {
			return f.ID, false, nil
		}
	}

	folder := model.NewFolder(model.NewFolderParams{Title: title, ParentID: parentID})
	if err := a.backend.CreateFolder(ctx, folder); err != nil {
		return "", false, err
	}
	return folder.ID, true, nil
}

// MoveItem relocates a single bookmark into the destination folder.
func (a *Adapter) MoveItem(ctx context.Context, itemID, destFolderID string) error {
	return a.backend.MoveBookmark(ctx, itemID, &destFolderID)
}

// RenameFolder changes a folder title in place.
func (a *Adapter) RenameFolder(ctx context.Context, folderID, title string) error {
	return a.backend.RenameFolder(ctx, folderID, title)
}

// FindEmptyFolders returns folders with zero direct children that are
// neither protected, nor in the exclusion set, nor reserved tab-group
// containers (unless allowed).
func (a *Adapter) FindEmptyFolders(ctx context.Context, exclusions map[string]bool, allowRemovingReservedTabGroups bool) ([]model.Folder, error) {
	folders, err := a.backend.Folders(ctx)
	if err != nil {
		return nil, err
	}
	items, err := a.backend.Bookmarks(ctx)
	if err != nil {
		return nil, err
	}

	childCount := make(map[string]int)
	for _, f := range folders {
		if f.ParentID != nil {
			childCount[*f.ParentID]++
		}
	}
	for _, b := range items {
		if b.FolderID != nil {
			childCount[*b.FolderID]++
		}
	}

	var empty []model.Folder
	for _, f := range folders {
		if childCount[f.ID] > 0 {
			continue
		}
		if model.IsProtected(f) || exclusions[f.ID] {
			continue
		}
		if model.IsReservedTabGroup(f) && !allowRemovingReservedTabGroups {
			continue
		}
		empty = append(empty, f)
	}
	return empty, nil
}

// PruneEmptyFolders deletes empty folders until a pass removes none,
// recomputing emptiness each pass: deleting a child can make its parent
// eligible. Details are deduplicated by title so a user sees "Shopping"
// once even if ten empty copies existed.
func (a *Adapter) PruneEmptyFolders(ctx context.Context, exclusions map[string]bool, allowRemovingReservedTabGroups bool) (Removal, error) {
	var removal Removal
	seenTitle := make(map[string]bool)

	for pass := 0; pass < maxPrunePasses; pass++ {
		empty, err := a.FindEmptyFolders(ctx, exclusions, allowRemovingReservedTabGroups)
		if err != nil {
			return removal, err
		}
		if len(empty) == 0 {
			break
		}

		removed := 0
		for _, f := range empty {
			if err := a.backend.DeleteFolder(ctx, f.ID); err != nil {
				a.log.Warn("empty folder removal failed", "id", f.ID, "title", f.Title, "error", err)
				continue
			}
			removed++
			removal.Count++
			if !seenTitle[f.Title] {
				seenTitle[f.Title] = true
				removal.Details = append(removal.Details, RemovedItem{ID: f.ID, Title: f.Title})
			}
		}
		if removed == 0 {
			break
		}
	}
	return removal, nil
}

// DescendantFolderIDs expands the given folder ids to include every
// descendant folder. The result contains the roots themselves.
func (a *Adapter) DescendantFolderIDs(ctx context.Context, rootIDs []string) (map[string]bool, error) {
	folders, err := a.backend.Folders(ctx)
	if err != nil {
		return nil, err
	}

	children := make(map[string][]string)
	for _, f := range folders {
		if f.ParentID != nil {
			children[*f.ParentID] = append(children[*f.ParentID], f.ID)
		}
	}

	result := make(map[string]bool)
	queue := append([]string(nil), rootIDs...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if result[id] {
			continue
		}
		result[id] = true
		queue = append(queue, children[id]...)
	}
	return result, nil
}

// TopLevelFolderTitles returns the titles of non-protected folders at
// the root of the tree, in store order. This is the approved vocabulary
// in existing-folders-only mode.
func (a *Adapter) TopLevelFolderTitles(ctx context.Context) ([]string, error) {
	folders, err := a.backend.Folders(ctx)
	if err != nil {
		return nil, err
	}

	var titles []string
	seen := make(map[string]bool)
	for _, f := range folders {
		if f.ParentID != nil || model.IsProtected(f) {
			continue
		}
		key := model.NormalizeTitle(f.Title)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		titles = append(titles, f.Title)
	}
	return titles, nil
}

func ptrEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
