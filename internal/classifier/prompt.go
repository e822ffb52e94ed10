package classifier

import (
	"fmt"
	"net/url"
	"strings"
)

// buildSystemPrompt describes the task and the fixed reply format. The
// model must answer for every index; replies are matched by position
// because LLMs are unreliable at echoing opaque ids verbatim.
func buildSystemPrompt(vocab []string, allowKeepCurrent bool) string {
	var categories strings.Builder
	for _, name := range vocab {
		categories.WriteString("- ")
		categories.WriteString(name)
		categories.WriteString("\n")
	}

	keepRule := fmt.Sprintf("If a bookmark clearly fits none of them, use %q.", KeepCurrent)
	if !allowKeepCurrent {
		keepRule = fmt.Sprintf("Pick the closest category for every bookmark; use %q only when the bookmark should stay where it is.", KeepCurrent)
	}

	return fmt.Sprintf(`You organize browser bookmarks into category folders.
Choose exactly one destination for each bookmark from these categories:
%s
%s

Respond with JSON only (no markdown), one entry per bookmark:
[{"index": 0, "destination": "Tech"}, {"index": 1, "destination": %q}, ...]
Every submitted index must appear exactly once.`, categories.String(), keepRule, KeepCurrent)
}

// buildUserPrompt lists the batch items and the current folder sizes.
// The size hint nudges later batches toward reusing folders already
// filled by earlier batches instead of fragmenting categories.
func buildUserPrompt(items []Item, vocab []string, destCounts map[string]int) string {
	var sb strings.Builder

	if len(destCounts) > 0 {
		sb.WriteString("Current folder sizes (prefer filling existing folders over fragmenting):\n")
		for _, name := range vocab {
			if n := destCounts[name]; n > 0 {
				fmt.Fprintf(&sb, "- %s: %d\n", name, n)
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Classify these bookmarks:\n")
	for i, item := range items {
		host := hostOnly(item.URL)
		if host != "" {
			fmt.Fprintf(&sb, "index:%d - %s (%s)\n", i, strings.TrimSpace(item.Title), host)
		} else {
			fmt.Fprintf(&sb, "index:%d - %s\n", i, strings.TrimSpace(item.Title))
		}
	}
	return sb.String()
}

// hostOnly derives the bare host from a bookmark URL. Full URLs are
// never sent to the provider.
func hostOnly(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

// stripCodeFence tolerates the reply being wrapped in a fenced code
// block.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
