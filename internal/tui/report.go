package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"shelfmark/internal/organizer"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

const maxListedMoves = 20

// RenderReport renders an outcome report for the terminal.
func RenderReport(r *organizer.Report) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Reorganization report"))
	b.WriteString("\n")
	b.WriteString(renderOutcome(r.Outcome))
	b.WriteString("\n\n")

	counter := func(label string, value int) {
		fmt.Fprintf(&b, "  %s %d\n", labelStyle.Render(label+":"), value)
	}
	counter("Bookmarks moved", r.BookmarksMoved)
	counter("Folders created", r.FoldersCreated)
	counter("Duplicates removed", r.DuplicatesRemoved)
	counter("Empty folders removed", r.EmptyFoldersRemoved)
	counter("Skipped", r.Skipped)

	if r.Usage.TotalTokens > 0 {
		fmt.Fprintf(&b, "  %s %d prompt + %d completion = %d\n",
			labelStyle.Render("Tokens:"),
			r.Usage.PromptTokens, r.Usage.CompletionTokens, r.Usage.TotalTokens)
	}

	if len(r.CreatedFolders) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Created folders"))
		b.WriteString("\n")
		for _, name := range r.CreatedFolders {
			fmt.Fprintf(&b, "  + %s\n", name)
		}
	}

	if len(r.RenamedFolders) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Renamed folders"))
		b.WriteString("\n")
		for _, rn := range r.RenamedFolders {
			fmt.Fprintf(&b, "  %s -> %s\n", rn.From, rn.To)
		}
	}

	if len(r.Moves) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Moves"))
		b.WriteString("\n")
		for i, m := range r.Moves {
			if i == maxListedMoves {
				b.WriteString(dimStyle.Render(fmt.Sprintf("  ... and %d more\n", len(r.Moves)-maxListedMoves)))
				break
			}
			fmt.Fprintf(&b, "  %s: %s -> %s\n", m.Title, emptyAs(m.From, "(root)"), m.To)
		}
	}

	if len(r.Coercions) > 0 {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(fmt.Sprintf("%d destination(s) outside the vocabulary were coerced", len(r.Coercions))))
		b.WriteString("\n")
	}

	if len(r.Errors) > 0 {
		b.WriteString("\n")
		b.WriteString(errStyle.Render("Errors"))
		b.WriteString("\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}

	return b.String()
}

func renderOutcome(outcome organizer.Outcome) string {
	switch outcome {
	case organizer.OutcomeCompleted:
		return okStyle.Render("Completed")
	case organizer.OutcomeNothingToDo:
		return okStyle.Render("Nothing to do")
	case organizer.OutcomeCompletedWithErrors:
		return warnStyle.Render("Completed with errors")
	case organizer.OutcomeFailed:
		return errStyle.Render("Failed")
	}
	return string(outcome)
}

func emptyAs(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
