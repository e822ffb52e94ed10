package organizer

import (
	"context"
	"strings"

	"shelfmark/internal/model"
)

// excludedFolderIDs resolves the full ignore-set for a run: the
// configured ids, the caller-supplied ids and every folder whose title
// matches an exclusion pattern, all expanded to their descendants.
func (o *Organizer) excludedFolderIDs(ctx context.Context, callerIDs []string) (map[string]bool, error) {
	roots := append([]string(nil), o.cfg.ExcludedFolderIDs...)
	roots = append(roots, callerIDs...)

	if len(o.cfg.ExcludedFolderPatterns) > 0 {
		folders, err := o.store.Folders(ctx)
		if err != nil {
			return nil, err
		}
		for _, f := range folders {
			if matchesAnyPattern(o.cfg.ExcludedFolderPatterns, f.Title) {
				roots = append(roots, f.ID)
			}
		}
	}

	if len(roots) == 0 {
		return map[string]bool{}, nil
	}
	return o.store.DescendantFolderIDs(ctx, roots)
}

func matchesAnyPattern(patterns []string, title string) bool {
	for _, p := range patterns {
		if wildcardMatch(p, title) {
			return true
		}
	}
	return false
}

// wildcardMatch matches title against pattern with * (any run of
// characters) and ? (exactly one character). The match is
// case-insensitive and fully anchored: "Work*" matches "Workspace" but
// not "My Work".
func wildcardMatch(pattern, title string) bool {
	return matchRunes([]rune(fold(pattern)), []rune(fold(title)))
}

func matchRunes(pattern, name []rune) bool {
	if len(pattern) == 0 {
		return len(name) == 0
	}

	switch pattern[0] {
	case '*':
		// Collapse consecutive stars
		for len(pattern) > 0 && pattern[0] == '*' {
			pattern = pattern[1:]
		}
		if len(pattern) == 0 {
			return true
		}
		for i := 0; i <= len(name); i++ {
			if matchRunes(pattern, name[i:]) {
				return true
			}
		}
		return false
	case '?':
		return len(name) > 0 && matchRunes(pattern[1:], name[1:])
	default:
		return len(name) > 0 && pattern[0] == name[0] && matchRunes(pattern[1:], name[1:])
	}
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// inExcluded reports whether the bookmark sits under an excluded
// folder.
func inExcluded(b model.Bookmark, excluded map[string]bool) bool {
	return b.FolderID != nil && excluded[*b.FolderID]
}
