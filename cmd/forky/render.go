package main

import (
	"charm.land/glamour/v2"
	"charm.land/huh/v2"
	"charm.land/lipgloss/v2"
)

var (
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleDim     = lipgloss.NewStyle().Faint(true)
)

// renderMarkdown renders node content for an interactive terminal. Falls
// back to the raw string on render failure rather than failing the
// command — a malformed code fence in a model reply shouldn't break
// `forky history`.
func renderMarkdown(content string) string {
	if !isTTY() || noColor {
		return content
	}
	out, err := glamour.Render(content, "dark")
	if err != nil {
		return content
	}
	return out
}

// confirmDestructive prompts for confirmation before an irreversible
// operation (delete_node, delete_conversation) when running interactively.
// Non-interactive runs (scripts, --json) proceed without prompting.
func confirmDestructive(prompt string) (bool, error) {
	if !isTTY() || jsonOutput {
		return true, nil
	}
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}
