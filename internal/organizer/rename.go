package organizer

import (
	"context"

	"github.com/sahilm/fuzzy"

	"shelfmark/internal/model"
)

// Platform-generated folder names the host browser creates on its own.
// The value is the meaning used to find a matching category; the folder
// itself cannot be deleted by the browser's own UI, so renaming it to a
// category is the only way to absorb it into the organized tree.
var reservedRenameHints = map[string]string{
	"speed dial":            "Shortcuts",
	"imported from chrome":  "Imported",
	"imported from firefox": "Imported",
	"imported from safari":  "Imported",
	"unsorted bookmarks":    "Unsorted",
	"new folder":            "Unsorted",
}

// renameReservedFolders renames platform-generated top-level folders to
// the closest same-meaning vocabulary entry, where one exists. The
// returned set holds the renamed folder ids: later pruning must never
// delete them even while transiently empty.
func (o *Organizer) renameReservedFolders(ctx context.Context, vocab []string, report *Report) map[string]bool {
	renamed := make(map[string]bool)

	folders, err := o.store.Folders(ctx)
	if err != nil {
		report.addError(err)
		return renamed
	}

	for _, f := range folders {
		if f.ParentID != nil || model.IsProtected(f) {
			continue
		}
		hint, ok := reservedRenameHints[model.NormalizeTitle(f.Title)]
		if !ok {
			continue
		}
		category, ok := closestCategory(hint, vocab)
		if !ok || model.NormalizeTitle(category) == model.NormalizeTitle(f.Title) {
			continue
		}

		if err := o.store.RenameFolder(ctx, f.ID, category); err != nil {
			o.log.Warn("reserved folder rename failed", "id", f.ID, "title", f.Title, "error", err)
			report.addError(err)
			continue
		}
		renamed[f.ID] = true
		report.RenamedFolders = append(report.RenamedFolders, RenamedFolder{
			FolderID: f.ID,
			From:     f.Title,
			To:       category,
		})
	}
	return renamed
}

// closestCategory finds the vocabulary entry best matching the hint:
// exact normalized equality first, fuzzy title match second.
func closestCategory(hint string, vocab []string) (string, bool) {
	want := model.NormalizeTitle(hint)
	for _, name := range vocab {
		if model.NormalizeTitle(name) == want {
			return name, true
		}
	}

	matches := fuzzy.Find(hint, vocab)
	if len(matches) == 0 {
		return "", false
	}
	return vocab[matches[0].Index], true
}
